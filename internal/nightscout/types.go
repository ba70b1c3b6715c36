package nightscout

import "time"

// Entry is one sensor glucose value stored by Nightscout
type Entry struct {
	ID        string `json:"_id"`
	SGV       int    `json:"sgv"`  // mg/dL
	Date      int64  `json:"date"` // Unix timestamp in milliseconds
	DateStr   string `json:"dateString"`
	Direction string `json:"direction"`
	Device    string `json:"device"`
	Type      string `json:"type"`
}

// Time returns when the entry was measured
func (e *Entry) Time() time.Time {
	return time.UnixMilli(e.Date)
}

// Status is the subset of /api/v1/status the app reads
type Status struct {
	Status     string `json:"status"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	ServerTime string `json:"serverTime"`
	APIEnabled bool   `json:"apiEnabled"`
}

// Treatment is a care event uploaded to Nightscout
type Treatment struct {
	ID          string  `json:"_id,omitempty"`
	EventType   string  `json:"eventType"`
	CreatedAt   string  `json:"created_at"` // RFC3339
	Insulin     float64 `json:"insulin,omitempty"`
	Carbs       float64 `json:"carbs,omitempty"`
	Glucose     float64 `json:"glucose,omitempty"`
	GlucoseType string  `json:"glucoseType,omitempty"` // "Finger", "Sensor", "Manual"
	Units       string  `json:"units,omitempty"`       // "mg/dl" or "mmol"
	Notes       string  `json:"notes,omitempty"`
	EnteredBy   string  `json:"enteredBy,omitempty"`
}

// Event types used when uploading logbook entries
const (
	EventMealBolus       = "Meal Bolus"
	EventCorrectionBolus = "Correction Bolus"
	EventCarbCorrection  = "Carb Correction"
	EventBGCheck         = "BG Check"
)
