// Package notifications raises desktop alerts for out-of-range glucose
package notifications

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/mrcode/control-tray/internal/models"
)

const appTitle = "Control Tray"

// Manager decides when a glucose status warrants an alert and sends it
type Manager struct {
	settings      *models.Settings
	lastAlertTime map[string]time.Time
	lastStatus    string
	send          func(title, message string) error
	now           func() time.Time
	logger        *slog.Logger
	mu            sync.Mutex
}

// NewManager creates a new notification manager
func NewManager(settings *models.Settings, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		settings:      settings,
		lastAlertTime: make(map[string]time.Time),
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		now:    time.Now,
		logger: logger.With("component", "notifications"),
	}
}

// UpdateSettings swaps the settings used for thresholds and toggles
func (m *Manager) UpdateSettings(settings *models.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
}

// CheckAndNotify sends an alert for status when its kind is enabled. The
// same kind is repeated only after RepeatAlertMinutes; with repeats off it
// fires once until the status changes. Stale readings never alert.
func (m *Manager) CheckAndNotify(status *models.GlucoseStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !status.HasValue() || status.IsStale {
		return nil
	}

	changed := status.Status != m.lastStatus
	m.lastStatus = status.Status
	if changed {
		// Back in range or a different alert kind: start over
		m.lastAlertTime = make(map[string]time.Time)
	}

	alertType := m.shouldAlert(status)
	if alertType == "" {
		return nil
	}

	if lastTime, ok := m.lastAlertTime[alertType]; ok {
		if m.settings.RepeatAlertMinutes <= 0 {
			return nil
		}
		repeat := time.Duration(m.settings.RepeatAlertMinutes) * time.Minute
		if m.now().Sub(lastTime) < repeat {
			return nil
		}
	}

	title, message := formatNotification(status, alertType)
	if err := m.send(title, message); err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}

	m.logger.Info("alert sent", "type", alertType, "value", status.Value)
	m.lastAlertTime[alertType] = m.now()
	return nil
}

// shouldAlert returns the alert kind for status, or "" when disabled or in range
func (m *Manager) shouldAlert(status *models.GlucoseStatus) string {
	switch status.Status {
	case models.StatusUrgentLow:
		if m.settings.EnableUrgentLowAlert {
			return models.StatusUrgentLow
		}
	case models.StatusLow:
		if m.settings.EnableLowAlert {
			return models.StatusLow
		}
	case models.StatusUrgentHigh:
		if m.settings.EnableUrgentHighAlert {
			return models.StatusUrgentHigh
		}
	case models.StatusHigh:
		if m.settings.EnableHighAlert {
			return models.StatusHigh
		}
	}
	return ""
}

func formatNotification(status *models.GlucoseStatus, alertType string) (string, string) {
	value := fmt.Sprintf("%.1f mmol/L %s", status.Value, status.Trend)

	switch alertType {
	case models.StatusUrgentLow:
		return "⚠️ URGENT LOW GLUCOSE", "Glucose is critically low: " + value
	case models.StatusLow:
		return "⬇️ Low Glucose", "Glucose is low: " + value
	case models.StatusUrgentHigh:
		return "⚠️ URGENT HIGH GLUCOSE", "Glucose is critically high: " + value
	default:
		return "⬆️ High Glucose", "Glucose is high: " + value
	}
}

// ClearAlertState forgets when alerts were last sent, for one kind or all
func (m *Manager) ClearAlertState(alertType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if alertType == "" {
		m.lastAlertTime = make(map[string]time.Time)
		m.lastStatus = ""
	} else {
		delete(m.lastAlertTime, alertType)
	}
}

// SendTestNotification sends a test notification
func (m *Manager) SendTestNotification() error {
	return m.send(appTitle, "Test notification - alerts are working!")
}
