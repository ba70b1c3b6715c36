// Package autostart registers the app to launch at login
package autostart

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
)

const (
	appName        = "control-tray"
	appDisplayName = "Control Tray"

	runKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`
)

// ErrUnsupported is returned on platforms without a login-item mechanism
var ErrUnsupported = errors.New("autostart not supported on this platform")

// Launcher toggles launch at login for one executable
type Launcher struct {
	goos       string
	execPath   string
	configHome string // XDG config dir, Linux only
	home       string // User home, macOS only
	run        func(name string, args ...string) error
}

// New creates a launcher for the running executable
func New() (*Launcher, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("locating home: %w", err)
	}
	return &Launcher{
		goos:       runtime.GOOS,
		execPath:   execPath,
		configHome: xdg.ConfigHome,
		home:       home,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run() //nolint:gosec // G204: fixed tools, app-controlled args
		},
	}, nil
}

// Set enables or disables launch at login
func (l *Launcher) Set(enabled bool) error {
	if enabled {
		return l.Enable()
	}
	return l.Disable()
}

// IsEnabled reports whether launch at login is registered
func (l *Launcher) IsEnabled() (bool, error) {
	switch l.goos {
	case "windows":
		return l.run("reg", "query", runKey, "/v", appName) == nil, nil
	case "linux", "darwin":
		path, _ := l.entryPath()
		_, err := os.Stat(path)
		if err == nil {
			return true, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	default:
		return false, ErrUnsupported
	}
}

// Enable registers launch at login
func (l *Launcher) Enable() error {
	if l.goos == "windows" {
		return l.run("reg", "add", runKey, "/v", appName, "/t", "REG_SZ", "/d", l.execPath, "/f")
	}

	path, content := l.entryPath()
	if path == "" {
		return ErrUnsupported
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, []byte(content), 0600)
}

// Disable removes launch at login. Disabling twice is not an error.
func (l *Launcher) Disable() error {
	if l.goos == "windows" {
		err := l.run("reg", "delete", runKey, "/v", appName, "/f")
		if err != nil && strings.Contains(err.Error(), "not exist") {
			return nil
		}
		return err
	}

	path, _ := l.entryPath()
	if path == "" {
		return ErrUnsupported
	}
	if l.goos == "darwin" {
		// Not loaded is fine
		_ = l.run("launchctl", "unload", path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// entryPath returns the login item file and its content for file-based platforms
func (l *Launcher) entryPath() (string, string) {
	switch l.goos {
	case "linux":
		return filepath.Join(l.configHome, "autostart", appName+".desktop"), fmt.Sprintf(desktopEntry, appDisplayName, l.execPath, appName)
	case "darwin":
		return filepath.Join(l.home, "Library", "LaunchAgents", "com."+appName+".plist"), fmt.Sprintf(launchAgent, appName, l.execPath)
	default:
		return "", ""
	}
}

const desktopEntry = `[Desktop Entry]
Type=Application
Name=%s
Exec=%s
Icon=%s
Comment=Glucose tracker and dose calculator
Categories=Utility;
Terminal=false
StartupNotify=false
X-GNOME-Autostart-enabled=true
`

const launchAgent = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.%s</string>
    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
</dict>
</plist>
`
