package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrcode/control-tray/internal/models"
	"github.com/mrcode/control-tray/internal/nightscout"
)

// maxEntries covers three days at one sample per minute
const maxEntries = 3 * 24 * 60

// EntryFetcher is the part of the Nightscout client the source needs
type EntryFetcher interface {
	GetEntries(ctx context.Context, from, to time.Time, count int) ([]nightscout.Entry, error)
	TestConnection(ctx context.Context) error
}

// NightscoutSource reads history from a Nightscout server's sgv entries
type NightscoutSource struct {
	client EntryFetcher
	now    func() time.Time
	logger *slog.Logger
}

// NewNightscoutSource creates a source backed by client
func NewNightscoutSource(client EntryFetcher, logger *slog.Logger) *NightscoutSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &NightscoutSource{
		client: client,
		now:    time.Now,
		logger: logger.With("component", "health", "source", "nightscout"),
	}
}

// RequestAuthorization checks that the server accepts the configured credentials
func (s *NightscoutSource) RequestAuthorization(ctx context.Context) (bool, error) {
	if err := s.client.TestConnection(ctx); err != nil {
		s.logger.Warn("nightscout not reachable", "error", err)
		return false, nil
	}
	return true, nil
}

// FetchGlucoseData returns the entries inside the lag-adjusted window
func (s *NightscoutSource) FetchGlucoseData(ctx context.Context) ([]models.Reading, error) {
	start, end := Window(s.now())

	entries, err := s.client.GetEntries(ctx, start, end, maxEntries)
	if err != nil {
		return nil, fmt.Errorf("fetching nightscout entries: %w", err)
	}

	readings := make([]models.Reading, 0, len(entries))
	for _, e := range entries {
		at := e.Time()
		if e.SGV <= 0 || !inWindow(at, start, end) {
			continue
		}
		readings = append(readings, models.NewReading(MgdlToMmol(float64(e.SGV)), at, models.SourceHealth))
	}

	sortAscending(readings)
	return readings, nil
}
