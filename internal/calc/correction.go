package calc

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrZeroFactor is returned when the correction factor is zero
var ErrZeroFactor = errors.New("correction factor must not be zero")

// CorrectionInput holds the raw correction form fields. BG values are mmol/L,
// the factor is mmol/L per unit and IOB is in units.
type CorrectionInput struct {
	Current string `json:"current"`
	Target  string `json:"target"`
	Factor  string `json:"factor"`
	IOB     string `json:"iob"` // Blank means no insulin on board
}

// Correction returns max(0, (current - target) / factor - iob)
func Correction(in CorrectionInput) (decimal.Decimal, error) {
	current, err := Parse(in.Current)
	if err != nil {
		return decimal.Zero, fmt.Errorf("current BG: %w", err)
	}
	target, err := Parse(in.Target)
	if err != nil {
		return decimal.Zero, fmt.Errorf("target BG: %w", err)
	}
	factor, err := Parse(in.Factor)
	if err != nil {
		return decimal.Zero, fmt.Errorf("correction factor: %w", err)
	}
	if factor.IsZero() {
		return decimal.Zero, ErrZeroFactor
	}
	iob, err := parseOptional(in.IOB)
	if err != nil {
		return decimal.Zero, fmt.Errorf("insulin on board: %w", err)
	}

	dose := current.Sub(target).Div(factor).Sub(iob)
	return decimal.Max(decimal.Zero, dose), nil
}

// FormatDose renders a dose with two decimals
func FormatDose(d decimal.Decimal) string {
	return d.StringFixed(2)
}
