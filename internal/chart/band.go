package chart

// Default target range in mmol/L
const (
	DefaultTargetLow  = 4.0
	DefaultTargetHigh = 10.0
)

// Band is the inclusive target range
type Band struct {
	Low  float64
	High float64
}

// DefaultBand returns the 4.0 to 10.0 mmol/L target range
func DefaultBand() Band {
	return Band{Low: DefaultTargetLow, High: DefaultTargetHigh}
}

// InRange reports whether Low <= v <= High
func (b Band) InRange(v float64) bool {
	return v >= b.Low && v <= b.High
}
