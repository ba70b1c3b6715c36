package calc

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultICR is the insulin-to-carb ratio prefilled in the form (grams per unit)
const DefaultICR = "30"

// Outcome classifies a carb match
type Outcome string

// Carb match outcomes
const (
	Matched    Outcome = "matched"
	UnderDosed Outcome = "under-dosed"
	OverDosed  Outcome = "over-dosed"
)

// Match is the result of comparing insulin coverage with the carbs eaten
type Match struct {
	TotalBolus decimal.Decimal `json:"totalBolus"` // Units
	TotalCarbs decimal.Decimal `json:"totalCarbs"` // Grams
	Coverage   decimal.Decimal `json:"coverage"`   // Grams covered by the bolus
	Diff       decimal.Decimal `json:"diff"`       // Carbs minus coverage
	Outcome    Outcome         `json:"outcome"`
	Message    string          `json:"message"`
	ActualICR  string          `json:"actualIcr,omitempty"` // "1U per 12.5g"
}

// CarbMatch totals the parsable bolus and carb entries and compares the
// carbs with what the bolus covers at icr grams per unit. Unparsable entries
// are skipped; an unparsable ratio is an error.
func CarbMatch(boluses, carbs []string, icr string) (*Match, error) {
	ratio, err := Parse(icr)
	if err != nil {
		return nil, fmt.Errorf("insulin to carb ratio: %w", err)
	}

	m := &Match{
		TotalBolus: sumParsable(boluses),
		TotalCarbs: sumParsable(carbs),
	}
	m.Coverage = m.TotalBolus.Mul(ratio)
	m.Diff = m.TotalCarbs.Sub(m.Coverage)

	rounded := m.Diff.Round(0)
	switch {
	case rounded.Abs().LessThan(decimal.NewFromInt(1)):
		m.Outcome = Matched
		m.Message = "matched"
	case m.Diff.IsPositive():
		m.Outcome = UnderDosed
		m.Message = fmt.Sprintf("under-dosed by %sg", rounded.String())
	default:
		m.Outcome = OverDosed
		m.Message = fmt.Sprintf("over-dosed by %sg", rounded.Neg().String())
	}

	if m.TotalBolus.IsPositive() && m.TotalCarbs.IsPositive() {
		m.ActualICR = fmt.Sprintf("1U per %sg", m.TotalCarbs.Div(m.TotalBolus).StringFixed(1))
	}

	return m, nil
}
