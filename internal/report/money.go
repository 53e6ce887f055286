package report

import "fmt"

// FormatUSD renders a dollar amount with magnitude compaction: billions and
// millions keep one decimal, thousands none, anything smaller is a
// comma-grouped integer.
func FormatUSD(v float64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("$%.1fB", v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.0fK", v/1_000)
	default:
		return "$" + addCommas(fmt.Sprintf("%.0f", v))
	}
}

func addCommas(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var result []byte
	for i := 0; i < n; i++ {
		if i > 0 && (n-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, s[i])
	}
	return string(result)
}
