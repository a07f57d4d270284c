package rate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cuongbtq/xe-rate-worker/internal/worker/domain"
	"github.com/shopspring/decimal"
)

// RateDecimals is the number of fractional digits kept in a stored rate
const RateDecimals = 2

// sep matches the spacing of the converter page: HTML &nbsp;, a literal
// U+00A0 or plain whitespace.
const sep = `(?:&nbsp;|\x{00A0}|\s)+`

var ratePattern = regexp.MustCompile(`(?i)1` + sep + `(\S{3})` + sep + `=` + sep + `([\d.,]+)` + sep + `(\S{3})`)

// Extract finds the "1 FROM = NUMBER TO" template in raw and returns the
// rate rounded half away from zero to two decimals. The quoted pair must
// equal the requested pair exactly.
func Extract(raw, from, to string) (*domain.RateResult, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: no input", domain.ErrParse)
	}

	m := ratePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("%w: rate template not found", domain.ErrParse)
	}

	gotFrom, number, gotTo := m[1], m[2], m[3]
	if gotFrom != from || gotTo != to {
		return nil, fmt.Errorf("%w: requested %s/%s, got %s/%s", domain.ErrMismatch, from, to, gotFrom, gotTo)
	}

	value, err := decimal.NewFromString(strings.ReplaceAll(number, ",", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: bad number %q: %v", domain.ErrParse, number, err)
	}

	return &domain.RateResult{
		From: gotFrom,
		To:   gotTo,
		Rate: value.Round(RateDecimals).StringFixed(RateDecimals),
	}, nil
}
