// Package series combines glucose readings from several sources into one
// time-ordered series
package series

import (
	"slices"

	"github.com/mrcode/control-tray/internal/models"
)

// Merge concatenates health history and remote readings and stable-sorts the
// result by time. Samples reported by both sources at the same instant are
// kept, so the output length is always len(health)+len(remote). Neither
// input is modified.
func Merge(health, remote []models.Reading) []models.Reading {
	merged := make([]models.Reading, 0, len(health)+len(remote))
	merged = append(merged, health...)
	merged = append(merged, remote...)

	slices.SortStableFunc(merged, func(a, b models.Reading) int {
		return a.Time.Compare(b.Time)
	})

	return merged
}

// Newest returns the last reading of an ascending series
func Newest(series []models.Reading) (models.Reading, bool) {
	if len(series) == 0 {
		return models.Reading{}, false
	}
	return series[len(series)-1], true
}

// Sparkline returns the values of the last n readings, oldest first
func Sparkline(series []models.Reading, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if len(series) > n {
		series = series[len(series)-n:]
	}

	values := make([]float64, len(series))
	for i, r := range series {
		values[i] = r.Value
	}
	return values
}
