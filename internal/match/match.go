// Package match resolves whether an upstream-reported name refers to a tracked
// entity. Providers rename, abbreviate, and concatenate protocol names, so the
// policy is deliberately looser than exact equality.
package match

import (
	"strings"
	"unicode"
)

// Resolve reports whether upstreamName names the entity identified by the
// canonical name and its aliases. Tiers, first match wins:
//  1. case-insensitive equality with the canonical name or any alias
//  2. normalized (lowercase, alphanumeric-only) equality or containment in
//     either direction
//  3. for multi-word canonical names, all words present in the normalized
//     upstream name, in any order
func Resolve(upstreamName, canonical string, aliases []string) bool {
	if upstreamName == "" {
		return false
	}

	candidates := append([]string{canonical}, aliases...)

	for _, c := range candidates {
		if c != "" && strings.EqualFold(upstreamName, c) {
			return true
		}
	}

	up := Normalize(upstreamName)
	if up == "" {
		return false
	}
	for _, c := range candidates {
		n := Normalize(c)
		if n == "" {
			continue
		}
		if up == n || strings.Contains(up, n) || strings.Contains(n, up) {
			return true
		}
	}

	words := strings.Fields(canonical)
	if len(words) >= 2 {
		all := true
		for _, w := range words {
			nw := Normalize(w)
			if nw == "" || !strings.Contains(up, nw) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}

	return false
}

// Normalize lowercases and strips everything but letters and digits.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
