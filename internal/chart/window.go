// Package chart slices the merged glucose series into the visible time
// window and renders it
package chart

import (
	"errors"
	"slices"
	"time"

	"github.com/mrcode/control-tray/internal/models"
)

// ZoomLevels are the selectable window widths in hours
var ZoomLevels = []int{1, 3, 6, 12, 24}

// DefaultZoomHours is the zoom used when none is configured
const DefaultZoomHours = 24

// ErrInvalidZoom is returned for zoom values outside ZoomLevels
var ErrInvalidZoom = errors.New("invalid zoom level")

// ValidZoom reports whether hours is one of ZoomLevels
func ValidZoom(hours int) bool {
	return slices.Contains(ZoomLevels, hours)
}

// Window is the interactive view state: zoom, offset from now and the
// currently inspected reading. It is not safe for concurrent use.
type Window struct {
	ZoomHours   int
	OffsetHours int
	Selected    *models.Reading
}

// NewWindow creates a window at offset 0. Invalid zoom values fall back to the default.
func NewWindow(zoomHours int) *Window {
	if !ValidZoom(zoomHours) {
		zoomHours = DefaultZoomHours
	}
	return &Window{ZoomHours: zoomHours}
}

// Earlier moves the window one zoom step into the past
func (w *Window) Earlier() {
	w.OffsetHours += w.ZoomHours
}

// Later moves the window one zoom step towards now, stopping at now
func (w *Window) Later() {
	w.OffsetHours = max(0, w.OffsetHours-w.ZoomHours)
}

// SetZoom changes the window width; the offset is kept as is
func (w *Window) SetZoom(hours int) error {
	if !ValidZoom(hours) {
		return ErrInvalidZoom
	}
	w.ZoomHours = hours
	return nil
}

// Range returns the closed interval the window covers at now
func (w *Window) Range(now time.Time) (start, end time.Time) {
	return bounds(w.ZoomHours, w.OffsetHours, now)
}

// Visible returns the readings of series inside the window at now
func (w *Window) Visible(series []models.Reading, now time.Time) []models.Reading {
	return VisibleSlice(series, w.ZoomHours, w.OffsetHours, now)
}

// Select marks the visible reading nearest to at. It returns nil and clears
// the selection when nothing is visible.
func (w *Window) Select(series []models.Reading, at, now time.Time) *models.Reading {
	nearest := SelectNearest(w.Visible(series, now), at)
	if nearest == nil {
		w.Selected = nil
		return nil
	}
	selected := *nearest
	w.Selected = &selected
	return w.Selected
}

// ClearSelection drops the inspected reading
func (w *Window) ClearSelection() {
	w.Selected = nil
}

func bounds(zoomHours, offsetHours int, now time.Time) (time.Time, time.Time) {
	end := now.Add(-time.Duration(offsetHours) * time.Hour)
	start := end.Add(-time.Duration(zoomHours) * time.Hour)
	return start, end
}

// VisibleSlice returns the readings with start <= t <= end, where the bounds
// are derived from the wall clock now rather than from the series itself.
func VisibleSlice(series []models.Reading, zoomHours, offsetHours int, now time.Time) []models.Reading {
	start, end := bounds(zoomHours, offsetHours, now)

	visible := make([]models.Reading, 0, len(series))
	for _, r := range series {
		if !r.Time.Before(start) && !r.Time.After(end) {
			visible = append(visible, r)
		}
	}
	return visible
}

// SelectNearest returns the reading closest in time to at. On an exact tie
// the first one encountered wins. An empty series yields nil.
func SelectNearest(series []models.Reading, at time.Time) *models.Reading {
	var nearest *models.Reading
	var best time.Duration

	for i := range series {
		d := series[i].Time.Sub(at).Abs()
		if nearest == nil || d < best {
			nearest = &series[i]
			best = d
		}
	}
	return nearest
}
