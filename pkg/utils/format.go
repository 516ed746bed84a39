package utils

import (
	"fmt"
	"strings"
	"time"
)

// FormatVolume formats a lot count with thousands separators.
func FormatVolume(volume float64) string {
	s := fmt.Sprintf("%.0f", volume)
	n := len(s)
	if n <= 3 || strings.HasPrefix(s, "-") {
		return s
	}
	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatLeverage formats an effective leverage multiple.
func FormatLeverage(lev float64) string {
	return fmt.Sprintf("%.2fx", lev)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatPrice formats a warrant price in NTD.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}

// FormatDays formats days to maturity.
func FormatDays(days int) string {
	return fmt.Sprintf("%d天", days)
}

// FormatClock formats a result timestamp for the list header.
func FormatClock(t time.Time, layout string) string {
	if t.IsZero() {
		return "-"
	}
	if layout == "" {
		layout = "15:04:05"
	}
	return t.Local().Format(layout)
}
