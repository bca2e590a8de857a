// Package money converts between the wire/chat representation of coin
// amounts (decimal strings with up to 2 fractional digits) and the int64
// minor units (cents) used everywhere in process and in the database.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCents converts a decimal string with up to 2 fractional digits
// into cents. Signs are accepted; callers enforce their own range rules.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount required")
	}
	neg := false
	if s[0] == '+' {
		s = s[1:]
	} else if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("invalid amount")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("invalid amount")
	}
	intPart := parts[0]
	frac := "00"
	if len(parts) == 2 {
		if len(parts[1]) > 2 {
			return 0, fmt.Errorf("amount supports up to 2 decimals")
		}
		frac = parts[1] + strings.Repeat("0", 2-len(parts[1]))
	}
	if intPart == "" {
		intPart = "0"
	}
	ip, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount integer")
	}
	fp, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount fractional")
	}
	total := ip*100 + fp
	if neg {
		total = -total
	}
	return total, nil
}

// FormatCents renders cents as a 2-decimal string, e.g. 1234 -> "12.34".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
