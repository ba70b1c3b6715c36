package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrcode/control-tray/internal/health"
	"github.com/mrcode/control-tray/internal/models"
)

// GetStatus returns the displayed glucose status
func (s *ControlService) GetStatus() *models.GlucoseStatus {
	s.mu.RLock()
	last := s.lastStatus
	s.mu.RUnlock()

	if last == nil {
		status := &models.GlucoseStatus{}
		if !s.settings.IsConfigured() {
			status.Error = errNotConfigured.Error()
		}
		return status
	}

	status := *last
	markStale(&status, s.now())
	return &status
}

// GetSettings returns a copy of the current settings
func (s *ControlService) GetSettings() *models.Settings {
	return s.settings.Clone()
}

// IsConfigured reports whether any glucose source is set up
func (s *ControlService) IsConfigured() bool {
	return s.settings.IsConfigured()
}

// SaveSettings stores the settings and restarts fetching with them
func (s *ControlService) SaveSettings(settings *models.Settings) error {
	s.settings.Update(settings)
	if err := s.save(s.settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	s.notifier.UpdateSettings(s.settings.Clone())
	s.notifier.ClearAlertState("")
	s.configure()

	select {
	case s.reset <- s.interval():
	default:
	}

	if s.launcher != nil {
		if err := s.launcher.Set(settings.AutoStart); err != nil {
			s.logger.Warn("updating autostart", "error", err)
		}
	}

	s.logger.Info("settings saved")
	s.ForceRefresh()
	return nil
}

// TestConnection checks every source configured in settings
func (s *ControlService) TestConnection(ctx context.Context, settings *models.Settings) error {
	src := s.sourcesFor(settings, s.logger)
	if src.dexcom == nil && src.health == nil && src.nightscout == nil {
		return errNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	var errs []error
	if src.dexcom != nil {
		if err := src.dexcom.TestConnection(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if src.nightscout != nil {
		if err := src.nightscout.TestConnection(ctx); err != nil {
			errs = append(errs, fmt.Errorf("nightscout: %w", err))
		}
	}
	if _, ok := src.health.(*health.ExportSource); ok {
		granted, err := src.health.RequestAuthorization(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("health export: %w", err))
		} else if !granted {
			errs = append(errs, errors.New("health export: file not readable"))
		}
	}
	return errors.Join(errs...)
}

// ForceRefresh starts a fetch cycle now, superseding one in flight
func (s *ControlService) ForceRefresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// SendTestNotification shows a sample alert
func (s *ControlService) SendTestNotification() error {
	return s.notifier.SendTestNotification()
}

// GetVersion returns the application version
func (s *ControlService) GetVersion() string {
	return Version
}
