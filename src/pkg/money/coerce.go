package money

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

/*
Coerce turns any loosely-typed value coming out of the store into a finite amount.

  - numeric kinds (ints, uints, floats, json.Number) are returned as float64
  - bools count as 1.0 and 0.0
  - text made only of decimal digits (any script, "١٢" is 12) and at most one
    decimal point is parsed
  - everything else (nil, signed text, words, maps, slices) is 0.0

NaN and infinities collapse to 0.0. Coerce never fails.
*/
func Coerce(value any) float64 {
	amount := 0.0

	switch typed := value.(type) {
	case bool:
		if typed {
			amount = 1
		}
	case float64:
		amount = typed
	case float32:
		amount = float64(typed)
	case int:
		amount = float64(typed)
	case int8:
		amount = float64(typed)
	case int16:
		amount = float64(typed)
	case int32:
		amount = float64(typed)
	case int64:
		amount = float64(typed)
	case uint:
		amount = float64(typed)
	case uint8:
		amount = float64(typed)
	case uint16:
		amount = float64(typed)
	case uint32:
		amount = float64(typed)
	case uint64:
		amount = float64(typed)
	case json.Number:
		parsed, parseErr := typed.Float64()
		if parseErr != nil {
			return 0
		}
		amount = parsed
	case string:
		amount = parsePlainDecimal(typed)
	case []byte:
		// postgres numeric columns come back from some drivers as raw text
		amount = parsePlainDecimal(string(typed))
	default:
		return 0
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return amount
}

func parsePlainDecimal(text string) float64 {
	normalized, ok := asciiDecimal(text)
	if !ok {
		return 0
	}
	parsed, parseErr := strconv.ParseFloat(normalized, 64)
	if parseErr != nil {
		return 0
	}
	return parsed
}

// asciiDecimal rewrites text with ASCII digits. It reports false unless text has
// at least one digit, at most one '.', and nothing else.
func asciiDecimal(text string) (string, bool) {
	var builder strings.Builder
	digits, points := 0, 0
	for _, r := range text {
		if r == '.' {
			points++
			if points > 1 {
				return "", false
			}
			builder.WriteRune(r)
			continue
		}
		value, ok := digitValue(r)
		if !ok {
			return "", false
		}
		builder.WriteByte(byte('0' + value))
		digits++
	}
	return builder.String(), digits > 0
}

// digitValue maps a Unicode decimal digit (category Nd) to 0-9. Every Nd range
// in the table starts at a zero.
func digitValue(r rune) (int, bool) {
	if r >= '0' && r <= '9' {
		return int(r - '0'), true
	}
	if !unicode.Is(unicode.Nd, r) {
		return 0, false
	}
	for _, block := range unicode.Nd.R16 {
		if rune(block.Lo) <= r && r <= rune(block.Hi) {
			return int(r-rune(block.Lo)) % 10, true
		}
	}
	for _, block := range unicode.Nd.R32 {
		if rune(block.Lo) <= r && r <= rune(block.Hi) {
			return int(r-rune(block.Lo)) % 10, true
		}
	}
	return 0, false
}
