// Package models contains data structures used throughout the application
package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
)

// Health source kinds
const (
	HealthSourceNone       = "none"
	HealthSourceExport     = "export"
	HealthSourceNightscout = "nightscout"
)

// Dexcom regions
const (
	RegionOutsideUS = "ous"
	RegionUS        = "us"
)

// Glucose status strings
const (
	StatusUrgentLow  = "urgent_low"
	StatusLow        = "low"
	StatusNormal     = "normal"
	StatusHigh       = "high"
	StatusUrgentHigh = "urgent_high"
)

const appDirName = "control-tray"

// Settings contains all application settings
type Settings struct {
	mu sync.RWMutex `json:"-"`

	// Dexcom Share credentials (never logged)
	DexcomUsername string `json:"dexcomUsername"`
	DexcomPassword string `json:"dexcomPassword"`
	DexcomRegion   string `json:"dexcomRegion"` // "ous" or "us"

	// Local health history
	HealthSource     string `json:"healthSource"`     // "export", "nightscout" or "none"
	HealthExportPath string `json:"healthExportPath"` // Apple Health export.xml
	NightscoutURL    string `json:"nightscoutUrl"`
	APISecret        string `json:"apiSecret"` // Plain API secret (will be hashed)
	APIToken         string `json:"apiToken"`  // Token-based auth
	UseToken         bool   `json:"useToken"`  // Use token instead of secret

	// Refresh
	RefreshInterval     int `json:"refreshInterval"`     // Seconds (30-600)
	FetchTimeoutSeconds int `json:"fetchTimeoutSeconds"` // Per fetch cycle

	// Glucose thresholds in mmol/L
	UrgentLow  float64 `json:"urgentLow"`
	TargetLow  float64 `json:"targetLow"`
	TargetHigh float64 `json:"targetHigh"`
	UrgentHigh float64 `json:"urgentHigh"`

	// Alert settings
	EnableHighAlert       bool `json:"enableHighAlert"`
	EnableLowAlert        bool `json:"enableLowAlert"`
	EnableUrgentHighAlert bool `json:"enableUrgentHighAlert"`
	EnableUrgentLowAlert  bool `json:"enableUrgentLowAlert"`
	RepeatAlertMinutes    int  `json:"repeatAlertMinutes"` // 0 = no repeat

	// Chart settings
	ChartZoomHours int `json:"chartZoomHours"` // 1, 3, 6, 12 or 24

	// Logbook
	LogbookPath string `json:"logbookPath"`
	SyncEnabled bool   `json:"syncEnabled"` // Push logs to Nightscout as treatments

	// System settings
	AutoStart      bool   `json:"autoStart"`
	StartMinimized bool   `json:"startMinimized"`
	LogLevel       string `json:"logLevel"`

	// Window state (not user-configurable)
	WindowWidth  int `json:"windowWidth"`
	WindowHeight int `json:"windowHeight"`
}

// DefaultSettings returns settings with default values
func DefaultSettings() *Settings {
	return &Settings{
		DexcomRegion: RegionOutsideUS,

		HealthSource: HealthSourceNone,

		RefreshInterval:     60,
		FetchTimeoutSeconds: 30,

		UrgentLow:  3.0,
		TargetLow:  4.0,
		TargetHigh: 10.0,
		UrgentHigh: 13.9,

		EnableHighAlert:       true,
		EnableLowAlert:        true,
		EnableUrgentHighAlert: true,
		EnableUrgentLowAlert:  true,
		RepeatAlertMinutes:    15,

		ChartZoomHours: 24,

		SyncEnabled: false,

		StartMinimized: true,
		LogLevel:       "info",

		WindowWidth:  900,
		WindowHeight: 700,
	}
}

// GetConfigPath returns the full path to the config file, creating its directory
func GetConfigPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appDirName, "settings.json"))
}

// GetDefaultLogbookPath returns where the logbook database lives unless overridden
func GetDefaultLogbookPath() (string, error) {
	return xdg.DataFile(filepath.Join(appDirName, "logbook.db"))
}

// Load loads settings from the default config path
func (s *Settings) Load() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return s.LoadFrom(path)
}

// LoadFrom loads settings from path. A missing file leaves the defaults in place.
func (s *Settings) LoadFrom(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path) //nolint:gosec // Config path is controlled by the app, not user input
	if err != nil {
		if os.IsNotExist(err) {
			s.copySettingsFields(DefaultSettings())
			return nil
		}
		return err
	}

	return json.Unmarshal(data, s)
}

// Save saves settings to the default config path
func (s *Settings) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return s.SaveTo(path)
}

// SaveTo writes the settings as indented JSON to path
func (s *Settings) SaveTo(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overrides credentials and logging from the environment
func (s *Settings) ApplyEnv(getenv func(string) string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v := strings.TrimSpace(getenv("DEXCOM_USERNAME")); v != "" {
		s.DexcomUsername = v
	}
	if v := getenv("DEXCOM_PASSWORD"); v != "" {
		s.DexcomPassword = v
	}
	if v := strings.TrimSpace(getenv("CONTROL_LOG_LEVEL")); v != "" {
		s.LogLevel = v
	}
}

// Clone creates a copy of the settings
func (s *Settings) Clone() *Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &Settings{}
	clone.copySettingsFields(s)
	return clone
}

// Update updates settings from another Settings object
func (s *Settings) Update(other *Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	s.copySettingsFields(other)
}

// copySettingsFields copies all fields from other to s, excluding the mutex
// The caller must hold the necessary locks on s and other (if other is shared)
func (s *Settings) copySettingsFields(other *Settings) {
	s.DexcomUsername = other.DexcomUsername
	s.DexcomPassword = other.DexcomPassword
	s.DexcomRegion = other.DexcomRegion
	s.HealthSource = other.HealthSource
	s.HealthExportPath = other.HealthExportPath
	s.NightscoutURL = other.NightscoutURL
	s.APISecret = other.APISecret
	s.APIToken = other.APIToken
	s.UseToken = other.UseToken
	s.RefreshInterval = other.RefreshInterval
	s.FetchTimeoutSeconds = other.FetchTimeoutSeconds
	s.UrgentLow = other.UrgentLow
	s.TargetLow = other.TargetLow
	s.TargetHigh = other.TargetHigh
	s.UrgentHigh = other.UrgentHigh
	s.EnableHighAlert = other.EnableHighAlert
	s.EnableLowAlert = other.EnableLowAlert
	s.EnableUrgentHighAlert = other.EnableUrgentHighAlert
	s.EnableUrgentLowAlert = other.EnableUrgentLowAlert
	s.RepeatAlertMinutes = other.RepeatAlertMinutes
	s.ChartZoomHours = other.ChartZoomHours
	s.LogbookPath = other.LogbookPath
	s.SyncEnabled = other.SyncEnabled
	s.AutoStart = other.AutoStart
	s.StartMinimized = other.StartMinimized
	s.LogLevel = other.LogLevel
	s.WindowWidth = other.WindowWidth
	s.WindowHeight = other.WindowHeight
}

// IsConfigured returns true if at least one glucose source is set up
func (s *Settings) IsConfigured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.hasDexcom() || s.hasHealthSource()
}

// HasDexcom returns true if Share credentials are present
func (s *Settings) HasDexcom() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasDexcom()
}

func (s *Settings) hasDexcom() bool {
	return s.DexcomUsername != "" && s.DexcomPassword != ""
}

func (s *Settings) hasHealthSource() bool {
	switch s.HealthSource {
	case HealthSourceExport:
		return s.HealthExportPath != ""
	case HealthSourceNightscout:
		return s.NightscoutURL != ""
	default:
		return false
	}
}

// GetGlucoseStatus returns the status string for a glucose value in mmol/L.
// The target band is inclusive on both ends.
func (s *Settings) GetGlucoseStatus(mmol float64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case mmol <= s.UrgentLow:
		return StatusUrgentLow
	case mmol < s.TargetLow:
		return StatusLow
	case mmol >= s.UrgentHigh:
		return StatusUrgentHigh
	case mmol > s.TargetHigh:
		return StatusHigh
	default:
		return StatusNormal
	}
}
