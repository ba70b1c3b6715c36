package chart

import (
	"math"

	"github.com/mrcode/control-tray/internal/models"
)

const mgdlPerMmol = 18.0

// Summarize computes window statistics for readings against band
func Summarize(readings []models.Reading, band Band) models.WindowSummary {
	var summary models.WindowSummary
	if len(readings) == 0 {
		return summary
	}

	var sum float64
	var inRange, below, above int

	for _, r := range readings {
		sum += r.Value

		switch {
		case r.Value < band.Low:
			below++
		case r.Value > band.High:
			above++
		default:
			inRange++
		}
	}

	n := float64(len(readings))
	summary.Count = len(readings)
	summary.Average = sum / n

	var sumSq float64
	for _, r := range readings {
		diff := r.Value - summary.Average
		sumSq += diff * diff
	}
	summary.StdDev = math.Sqrt(sumSq / n)

	summary.TimeInRange = float64(inRange) / n * 100
	summary.TimeBelowRange = float64(below) / n * 100
	summary.TimeAboveRange = float64(above) / n * 100

	// GMI = 3.31 + 0.02392 × mean glucose (mg/dL)
	summary.GMI = 3.31 + 0.02392*summary.Average*mgdlPerMmol

	if summary.Average > 0 {
		summary.CoefficientOfVariation = summary.StdDev / summary.Average * 100
	}

	return summary
}
