// Package calc implements the correction-dose and carb-matching calculators.
// All arithmetic is done on decimals parsed from the form fields.
package calc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidNumber is returned for fields that are not decimal numbers
var ErrInvalidNumber = errors.New("invalid number")

// Parse reads a form field as a decimal. A comma is accepted as the decimal separator.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidNumber)
	}

	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return d, nil
}

// parseOptional treats a blank field as zero
func parseOptional(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return Parse(s)
}

// sumParsable adds up the entries that parse, skipping the rest
func sumParsable(values []string) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		d, err := Parse(v)
		if err != nil {
			continue
		}
		total = total.Add(d)
	}
	return total
}
