package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Log is one logbook entry: a glucose check with the insulin and carbs taken
type Log struct {
	ID       string          `json:"id"`
	Start    time.Time       `json:"start"`
	Notes    string          `json:"notes"`
	BG       decimal.Decimal `json:"bg"`       // mmol/L
	Bolus    decimal.Decimal `json:"bolus"`    // Units
	NetCarbs decimal.Decimal `json:"netCarbs"` // Grams
	SyncedAt *time.Time      `json:"syncedAt,omitempty"`
	Revision int64           `json:"revision"` // Bumped by every edit
}

// LogForm holds the textual fields of the new-log form
type LogForm struct {
	Start    time.Time `json:"start"`
	Notes    string    `json:"notes"`
	BG       string    `json:"bg"`
	Bolus    string    `json:"bolus"`
	NetCarbs string    `json:"netCarbs"`
}

// DefaultLogForm returns the form values shown for a fresh entry
func DefaultLogForm(now time.Time) LogForm {
	return LogForm{
		Start:    now,
		Notes:    now.Format(time.TimeOnly),
		BG:       "5.6",
		Bolus:    "0",
		NetCarbs: "0",
	}
}

// NewLog creates a log with a fresh ID
func NewLog(start time.Time, notes string, bg, bolus, netCarbs decimal.Decimal) Log {
	return Log{
		ID:       uuid.NewString(),
		Start:    start,
		Notes:    notes,
		BG:       bg,
		Bolus:    bolus,
		NetCarbs: netCarbs,
	}
}

// IsSynced returns true once the entry has been pushed to the cloud
func (l *Log) IsSynced() bool {
	return l.SyncedAt != nil
}

// SyncStatus reports the state of the logbook cloud sync
type SyncStatus struct {
	IsSyncing bool       `json:"isSyncing"`
	LastSync  *time.Time `json:"lastSync,omitempty"`
	LastError string     `json:"lastError,omitempty"`
	Pending   int        `json:"pending"`
}
