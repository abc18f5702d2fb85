package utils

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jpcardenasg/automatcher/dto"
)

// valueRe matches thousands-grouped currency amounts the way they are
// printed on the soportes: groups of 1-3 digits separated by "." or ",",
// ending in a 2-digit fraction, e.g. "1.234,56" or "1,234.56".
var valueRe = regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{2})`)

// ExtractStatus scans recognized text line by line for the "abonado"
// keyword. A hit on any line means the payment went through; otherwise
// the soporte is treated as rejected.
func ExtractStatus(text string) dto.Status {
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(strings.ToLower(line), "abonado") {
			return dto.StatusAccepted
		}
	}
	return dto.StatusRejected
}

// ExtractValue pulls the monetary amount out of recognized text. When
// several tokens match, the last one wins: the total is conventionally
// printed last on a receipt. Returns (AbsentValue, false) when no
// currency-like token is present.
func ExtractValue(text string) (decimal.Decimal, bool) {
	matches := valueRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return dto.AbsentValue, false
	}
	return normalizeAmount(matches[len(matches)-1]), true
}

// normalizeAmount strips grouping separators and treats the final
// separator as the decimal point.
func normalizeAmount(token string) decimal.Decimal {
	sep := strings.LastIndexAny(token, ".,")
	intPart := strings.NewReplacer(".", "", ",", "").Replace(token[:sep])
	value, err := decimal.NewFromString(intPart + "." + token[sep+1:])
	if err != nil {
		return dto.AbsentValue
	}
	return value.Round(2)
}
