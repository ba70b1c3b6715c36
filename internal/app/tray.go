package app

import "github.com/wailsapp/wails/v3/pkg/application"

// SystemTray shows readings in a Wails system tray
type SystemTray struct {
	tray *application.SystemTray
}

// NewSystemTray wraps tray
func NewSystemTray(tray *application.SystemTray) *SystemTray {
	return &SystemTray{tray: tray}
}

// Update sets the label, icon and tooltip
func (t *SystemTray) Update(label string, icon []byte, tooltip string) {
	t.tray.SetLabel(label)
	if icon != nil {
		t.tray.SetIcon(icon)
	}
	t.tray.SetTooltip(tooltip)
}
