// Package models contains data structures used throughout the application
package models

import (
	"time"

	"github.com/google/uuid"
)

// Source tags where a reading came from
type Source string

const (
	// SourceRemote marks readings from the sensor's cloud share service
	SourceRemote Source = "remote"
	// SourceHealth marks readings from the local health data store
	SourceHealth Source = "health"
)

// mgdlPerMmol is the divisor the share service values are converted with
const mgdlPerMmol = 18.0

// Reading is one glucose sample
type Reading struct {
	ID     string    `json:"id"`     // Only used for list diffing in the UI
	Value  float64   `json:"value"`  // mmol/L
	Time   time.Time `json:"time"`   // When the sample was taken
	Source Source    `json:"source"` // "remote" or "health"
}

// NewReading creates a reading with a fresh ID
func NewReading(value float64, at time.Time, source Source) Reading {
	return Reading{
		ID:     uuid.NewString(),
		Value:  value,
		Time:   at,
		Source: source,
	}
}

// MgdlToMmol converts a share service value (mg/dL) to mmol/L
func MgdlToMmol(mgdl int) float64 {
	return float64(mgdl) / mgdlPerMmol
}

// GlucoseStatus represents the current glucose status for display
type GlucoseStatus struct {
	Value        float64   `json:"value"`        // mmol/L
	Trend        string    `json:"trend"`        // Arrow character
	TrendLabel   string    `json:"trendLabel"`   // e.g. "slight rise"
	Rate         float64   `json:"rate"`         // mmol/L per minute
	HasTrend     bool      `json:"hasTrend"`     // False when the rate could not be derived
	Time         time.Time `json:"time"`         // Reading time
	Status       string    `json:"status"`       // "normal", "high", "low", "urgent_high", "urgent_low"
	StaleMinutes int       `json:"staleMinutes"` // Minutes since last reading
	IsStale      bool      `json:"isStale"`      // True if data is stale (>15 min)
	Error        string    `json:"error"`        // Placeholder text when the last fetch failed
	TrendError   string    `json:"trendError"`   // Set when the trend timestamps could not be parsed
}

// HasValue reports whether the status carries a reading at all
func (s *GlucoseStatus) HasValue() bool {
	return s != nil && !s.Time.IsZero()
}

// ChartData represents data for the glucose chart
type ChartData struct {
	Entries      []ChartEntry      `json:"entries"`
	Selected     *ChartEntry       `json:"selected,omitempty"`
	TargetLow    float64           `json:"targetLow"`
	TargetHigh   float64           `json:"targetHigh"`
	ZoomHours    int               `json:"zoomHours"`
	OffsetHours  int               `json:"offsetHours"`
	From         int64             `json:"from"` // Unix ms
	To           int64             `json:"to"`   // Unix ms
	Summary      WindowSummary     `json:"summary"`
	SourceErrors map[string]string `json:"sourceErrors,omitempty"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// ChartEntry represents a single point on the chart
type ChartEntry struct {
	ID      string  `json:"id"`
	Time    int64   `json:"time"`  // Unix timestamp in milliseconds
	Value   float64 `json:"value"` // mmol/L
	Source  Source  `json:"source"`
	InRange bool    `json:"inRange"`
}

// WindowSummary holds statistics over the visible chart window
type WindowSummary struct {
	Count                  int     `json:"count"`
	Average                float64 `json:"average"` // mmol/L
	StdDev                 float64 `json:"stdDev"`
	CoefficientOfVariation float64 `json:"coefficientOfVariation"` // CV%
	TimeInRange            float64 `json:"timeInRange"`            // Percentage
	TimeBelowRange         float64 `json:"timeBelowRange"`
	TimeAboveRange         float64 `json:"timeAboveRange"`
	GMI                    float64 `json:"gmi"` // Glucose Management Indicator (estimated HbA1c)
}
