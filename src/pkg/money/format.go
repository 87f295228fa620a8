package money

import (
	"strconv"
	"strings"
)

// DefaultCurrencySuffix is the Egyptian pound marker appended to every rendered amount.
const DefaultCurrencySuffix = " ج"

/*
Fixed formats an amount with exactly two decimals and no grouping.

Example:

	1234.5 -> "1234.50"
*/
func Fixed(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

/*
Grouped formats an amount with two decimals and comma thousand separators.

Example:

	1234567.891 -> "1,234,567.89"
*/
func Grouped(amount float64) string {
	fixed := Fixed(amount)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	integerPart, fractionPart, _ := strings.Cut(fixed, ".")
	return sign + groupThousands(integerPart, ",") + "." + fractionPart
}

/*
WithSuffix appends the currency suffix to an already formatted amount.
*/
func WithSuffix(formatted string, suffix string) string {
	return formatted + suffix
}

/*
groupThousands groups digits in a base-10 string using the provided separator.
*/
func groupThousands(raw string, sep string) string {
	if len(raw) <= 3 {
		return raw
	}

	var builder strings.Builder
	firstGroupLen := len(raw) % 3
	if firstGroupLen == 0 {
		firstGroupLen = 3
	}

	builder.WriteString(raw[:firstGroupLen])

	for index := firstGroupLen; index < len(raw); index += 3 {
		builder.WriteString(sep)
		builder.WriteString(raw[index : index+3])
	}

	return builder.String()
}
