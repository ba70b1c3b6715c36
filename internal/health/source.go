// Package health reads glucose history from the local health data store.
//
// The store lags reality by up to three hours, so queries stop at the lag
// cutoff and the remote share service covers the most recent window.
package health

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/mrcode/control-tray/internal/models"
)

// Query window relative to now
const (
	HistoryDepth = 3 * 24 * time.Hour
	LagCutoff    = 3 * time.Hour
)

// GlucoseMolarMass is the molar mass of glucose in g/mol
const GlucoseMolarMass = 180.15588

// ErrNotAuthorized is returned when read access to the store was refused
var ErrNotAuthorized = errors.New("health data access not authorized")

// Source provides historical glucose readings
type Source interface {
	// RequestAuthorization asks for read access and reports whether it was granted
	RequestAuthorization(ctx context.Context) (bool, error)
	// FetchGlucoseData returns readings inside Window(now), ascending by time
	FetchGlucoseData(ctx context.Context) ([]models.Reading, error)
}

// Window returns the closed query range [now-3d, now-3h]
func Window(now time.Time) (start, end time.Time) {
	return now.Add(-HistoryDepth), now.Add(-LagCutoff)
}

// MgdlToMmol converts mg/dL to mmol/L using the glucose molar mass
func MgdlToMmol(mgdl float64) float64 {
	return mgdl * 10 / GlucoseMolarMass
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func sortAscending(readings []models.Reading) {
	slices.SortStableFunc(readings, func(a, b models.Reading) int {
		return a.Time.Compare(b.Time)
	})
}
