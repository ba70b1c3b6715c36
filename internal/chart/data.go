package chart

import (
	"time"

	"github.com/mrcode/control-tray/internal/models"
)

// Build assembles the frontend view of the window over series at now
func Build(series []models.Reading, w *Window, band Band, now time.Time) models.ChartData {
	visible := w.Visible(series, now)
	start, end := w.Range(now)

	entries := make([]models.ChartEntry, len(visible))
	for i, r := range visible {
		entries[i] = toEntry(r, band)
	}

	data := models.ChartData{
		Entries:     entries,
		TargetLow:   band.Low,
		TargetHigh:  band.High,
		ZoomHours:   w.ZoomHours,
		OffsetHours: w.OffsetHours,
		From:        start.UnixMilli(),
		To:          end.UnixMilli(),
		Summary:     Summarize(visible, band),
		UpdatedAt:   now,
	}
	if w.Selected != nil {
		selected := toEntry(*w.Selected, band)
		data.Selected = &selected
	}

	return data
}

func toEntry(r models.Reading, band Band) models.ChartEntry {
	return models.ChartEntry{
		ID:      r.ID,
		Time:    r.Time.UnixMilli(),
		Value:   r.Value,
		Source:  r.Source,
		InRange: band.InRange(r.Value),
	}
}
