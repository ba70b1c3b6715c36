package app

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"maps"
	"time"

	"github.com/mrcode/control-tray/internal/chart"
	"github.com/mrcode/control-tray/internal/models"
)

// band must be called with s.mu held
func (s *ControlService) band() chart.Band {
	cfg := s.settings.Clone()
	if cfg.TargetLow <= 0 || cfg.TargetHigh <= cfg.TargetLow {
		return chart.DefaultBand()
	}
	return chart.Band{Low: cfg.TargetLow, High: cfg.TargetHigh}
}

// chartDataLocked must be called with s.mu held
func (s *ControlService) chartDataLocked() models.ChartData {
	data := chart.Build(s.series, s.window, s.band(), s.now())
	data.SourceErrors = maps.Clone(s.sourceErrors)
	return data
}

// GetChartData returns the visible window of the merged series
func (s *ControlService) GetChartData() models.ChartData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chartDataLocked()
}

// GetChartImage renders the visible window as a base64 PNG
func (s *ControlService) GetChartImage(width, height int) (string, error) {
	s.mu.RLock()
	now := s.now()
	start, end := s.window.Range(now)
	visible := s.window.Visible(s.series, now)
	opts := chart.RenderOptions{
		Width:  width,
		Height: height,
		Start:  start,
		End:    end,
		Band:   s.band(),
	}
	if s.window.Selected != nil {
		selected := *s.window.Selected
		opts.Selected = &selected
	}
	s.mu.RUnlock()

	var buf bytes.Buffer
	if err := chart.Render(&buf, visible, opts); err != nil {
		return "", fmt.Errorf("rendering chart: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SetZoom changes the window width to 1, 3, 6, 12 or 24 hours
func (s *ControlService) SetZoom(hours int) (models.ChartData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.window.SetZoom(hours); err != nil {
		return models.ChartData{}, fmt.Errorf("zoom %d: %w", hours, err)
	}
	return s.chartDataLocked(), nil
}

// Earlier moves the window one zoom step back
func (s *ControlService) Earlier() models.ChartData {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.window.Earlier()
	return s.chartDataLocked()
}

// Later moves the window one zoom step towards now
func (s *ControlService) Later() models.ChartData {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.window.Later()
	return s.chartDataLocked()
}

// SelectAt inspects the visible reading nearest to the Unix ms timestamp
func (s *ControlService) SelectAt(ms int64) models.ChartData {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.window.Select(s.series, time.UnixMilli(ms), s.now())
	return s.chartDataLocked()
}

// ClearSelection stops inspecting a reading
func (s *ControlService) ClearSelection() models.ChartData {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.window.ClearSelection()
	return s.chartDataLocked()
}
