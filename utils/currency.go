package utils

import (
	"fmt"
	"strings"
)

// FormatCurrencyINR formats an amount with Indian digit grouping.
// Example: 1234567.5 -> "Rs 12,34,567.50"
func FormatCurrencyINR(amount float64) string {
	formatted := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(formatted, ".")
	integerPart := parts[0]
	decimalPart := parts[1]

	negative := strings.HasPrefix(integerPart, "-")
	if negative {
		integerPart = integerPart[1:]
	}

	// Last group of three digits, then groups of two.
	var groups []string
	if len(integerPart) > 3 {
		head := integerPart[:len(integerPart)-3]
		groups = append(groups, integerPart[len(integerPart)-3:])
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
	} else {
		groups = []string{integerPart}
	}

	result := strings.Join(groups, ",") + "." + decimalPart
	if negative {
		result = "-" + result
	}
	return "Rs " + result
}
