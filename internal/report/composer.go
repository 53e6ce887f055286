// Package report renders the daily text report under a hard character budget.
// Lines are tiered by priority; when the draft runs over budget, context is
// sacrificed tier by tier so the headline and primary volume figure always
// survive.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"dexpulse/internal/model"
)

// ErrBudgetInfeasible means even the headline and volume line cannot fit the
// budget next to the reserved suffix. The headline is never silently
// truncated.
var ErrBudgetInfeasible = errors.New("report: headline exceeds character budget")

// Tier priorities, lowest number survives longest.
const (
	tierHeadline  = 0
	tierPrimary   = 1
	tierSecondary = 2
	tierDelta     = 3
	tierRolling   = 4
	tierExtra     = 5
)

// Options controls composition. Budget counts characters (runes) of the full
// output including ReservedSuffix, which is appended verbatim.
type Options struct {
	EntityName     string
	Budget         int
	ReservedSuffix string
}

type line struct {
	tier int
	text string
	// value orders tier-5 drops: the lowest-value line goes first.
	value float64
}

// Compose renders latest (with previous supplying day-over-day context) into
// a report no longer than the budget. Absent fields are omitted, never shown
// as placeholders; a row with no data at all composes to just the headline.
func Compose(latest model.MetricRow, previous *model.MetricRow, opts Options) (string, error) {
	lines := buildLines(latest, previous, opts)

	avail := opts.Budget - utf8.RuneCountInString(opts.ReservedSuffix)
	if runeLen(render(keepTiers(lines, tierPrimary))) > avail {
		return "", fmt.Errorf("%w: budget %d, suffix %d chars",
			ErrBudgetInfeasible, opts.Budget, utf8.RuneCountInString(opts.ReservedSuffix))
	}

	core := degrade(lines, avail)
	return core + opts.ReservedSuffix, nil
}

func buildLines(latest model.MetricRow, previous *model.MetricRow, opts Options) []line {
	name := opts.EntityName
	if name == "" {
		name = latest.EntityID
	}

	lines := []line{{tier: tierHeadline, text: fmt.Sprintf("📊 %s Daily Stats (%s)", name, dateLabel(latest))}}

	if v, ok := latest.Value(model.FieldVolume24h); ok {
		lines = append(lines, line{tier: tierPrimary, text: "🔸 24h Volume: " + FormatUSD(v)})
	}
	if v, ok := latest.Value(model.FieldTVL); ok {
		lines = append(lines, line{tier: tierSecondary, text: "🔹 TVL: " + FormatUSD(v)})
	}
	if v, ok := latest.Value(model.FieldFees24h); ok {
		lines = append(lines, line{tier: tierSecondary, text: "💸 24h Fees: " + FormatUSD(v)})
	}
	if v, ok := latest.Value(model.FieldBribes24h); ok {
		lines = append(lines, line{tier: tierSecondary, text: "🎁 24h Bribes: " + FormatUSD(v)})
	}

	if previous != nil {
		deltas := []struct {
			field model.MetricField
			label string
		}{
			{model.FieldVolume24h, "Volume"},
			{model.FieldTVL, "TVL"},
			{model.FieldFees24h, "Fees"},
		}
		for _, d := range deltas {
			cur, okCur := latest.Value(d.field)
			prev, okPrev := previous.Value(d.field)
			if !okCur || !okPrev || prev <= 0 {
				continue
			}
			pct := 100 * (cur - prev) / prev
			arrow := "🔺"
			if pct < 0 {
				arrow = "🔻"
			}
			lines = append(lines, line{
				tier: tierDelta,
				text: fmt.Sprintf("%s %s %+.1f%% vs prev day", arrow, d.label, pct),
			})
		}
	}

	if latest.Rolling7dVolume != nil {
		lines = append(lines, line{tier: tierRolling, text: "📈 7d Avg Volume: " + FormatUSD(*latest.Rolling7dVolume)})
	}

	if vol, ok := latest.Value(model.FieldVolume24h); ok {
		if chain, ok := latest.Value(model.FieldChainVolume24h); ok && chain > 0 {
			share := 100 * vol / chain
			lines = append(lines, line{
				tier:  tierExtra,
				text:  fmt.Sprintf("🏁 Chain Share: %.2f%%", share),
				value: share,
			})
		}
	}
	lines = append(lines, line{tier: tierExtra, text: "Sources: DexScreener, DefiLlama", value: -1})

	return lines
}

// degrade drops lines in priority order until the core fits: tier-5 lines
// one at a time from the lowest value, then the rolling annotation, then the
// deltas, and as a last resort a hard truncation. Tiers 0 and 1 are never
// dropped.
func degrade(lines []line, avail int) string {
	core := render(lines)
	if runeLen(core) <= avail {
		return core
	}

	var extras []int
	for i, l := range lines {
		if l.tier == tierExtra {
			extras = append(extras, i)
		}
	}
	sort.Slice(extras, func(a, b int) bool { return lines[extras[a]].value < lines[extras[b]].value })

	dropped := make(map[int]bool)
	renderKept := func() string {
		kept := make([]line, 0, len(lines))
		for i, l := range lines {
			if !dropped[i] {
				kept = append(kept, l)
			}
		}
		return render(kept)
	}

	for _, idx := range extras {
		dropped[idx] = true
		if core = renderKept(); runeLen(core) <= avail {
			return core
		}
	}

	for _, tier := range []int{tierRolling, tierDelta} {
		for i, l := range lines {
			if l.tier == tier {
				dropped[i] = true
			}
		}
		if core = renderKept(); runeLen(core) <= avail {
			return core
		}
	}

	return strings.TrimRight(truncateRunes(core, avail), " \n\t")
}

// render joins lines in tier order with a blank line separating the headline
// from the body.
func render(lines []line) string {
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].tier < lines[j].tier })

	parts := make([]string, 0, len(lines)+1)
	for _, l := range lines {
		parts = append(parts, l.text)
	}
	if len(parts) > 1 {
		parts = append([]string{parts[0], ""}, parts[1:]...)
	}
	return strings.Join(parts, "\n")
}

func keepTiers(lines []line, maxTier int) []line {
	var kept []line
	for _, l := range lines {
		if l.tier <= maxTier {
			kept = append(kept, l)
		}
	}
	return kept
}

func dateLabel(row model.MetricRow) string {
	t, err := row.ParseDate()
	if err != nil {
		return row.Date
	}
	return t.Format("January 2")
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func truncateRunes(s string, n int) string {
	if runeLen(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
