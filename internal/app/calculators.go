package app

import "github.com/mrcode/control-tray/internal/calc"

// CorrectionDose returns the correction bolus in units with two decimals
func (s *ControlService) CorrectionDose(in calc.CorrectionInput) (string, error) {
	dose, err := calc.Correction(in)
	if err != nil {
		return "", err
	}
	return calc.FormatDose(dose), nil
}

// CarbMatch compares the carbs eaten with what the boluses cover. A blank
// ratio uses the default of 30 g per unit.
func (s *ControlService) CarbMatch(boluses, carbs []string, icr string) (*calc.Match, error) {
	if icr == "" {
		icr = calc.DefaultICR
	}
	return calc.CarbMatch(boluses, carbs, icr)
}
