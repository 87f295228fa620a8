package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

/*
IsDigits reports whether text is not empty and made only of decimal digits
of any script. Anything else is not an invoice request at all.
*/
func IsDigits(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

/*
ParseInvoiceID turns a digits-only message into an invoice id.

ASCII, Arabic-Indic (٠-٩) and Extended Arabic-Indic (۰-۹) digits are
accepted. Digits of other scripts and values that overflow int64 are errors.

Example:

	"١٠٠١" -> 1001
	"0042" -> 42
*/
func ParseInvoiceID(text string) (invoiceID int64, err error) {
	normalized := strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		default:
			return r
		}
	}, text)

	invoiceID, err = strconv.ParseInt(normalized, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not an invoice number: %w", text, err)
	}
	return invoiceID, nil
}
