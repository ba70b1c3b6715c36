package logbook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mrcode/control-tray/internal/models"
	"github.com/mrcode/control-tray/internal/nightscout"
)

const enteredBy = "control-tray"

// TreatmentPusher uploads treatments to the cloud
type TreatmentPusher interface {
	PostTreatments(ctx context.Context, treatments []nightscout.Treatment) error
}

// Syncer uploads unsynced log entries. Only one sync runs at a time; a
// trigger while one is running is ignored. Failures are retried on the next
// trigger.
type Syncer struct {
	store  Store
	pusher TreatmentPusher
	logger *slog.Logger
	now    func() time.Time

	onDone func()

	mu        sync.Mutex
	syncing   bool
	lastSync  *time.Time
	lastError string
}

// NewSyncer creates a syncer. onDone, if set, runs after every finished sync.
func NewSyncer(store Store, pusher TreatmentPusher, logger *slog.Logger, onDone func()) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		store:  store,
		pusher: pusher,
		logger: logger.With("component", "sync"),
		now:    time.Now,
		onDone: onDone,
	}
}

// TriggerSync uploads pending entries. It reports false without doing
// anything when a sync is already in progress.
func (s *Syncer) TriggerSync(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		return false, nil
	}
	s.syncing = true
	s.mu.Unlock()

	err := s.sync(ctx)

	s.mu.Lock()
	s.syncing = false
	if err != nil {
		s.lastError = err.Error()
	} else {
		now := s.now()
		s.lastSync = &now
		s.lastError = ""
	}
	s.mu.Unlock()

	if s.onDone != nil {
		s.onDone()
	}
	return true, err
}

func (s *Syncer) sync(ctx context.Context) error {
	if s.pusher == nil {
		return fmt.Errorf("sync not configured")
	}

	pending, err := s.store.Unsynced(ctx)
	if err != nil {
		return fmt.Errorf("loading unsynced logs: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	treatments := make([]nightscout.Treatment, len(pending))
	for i, log := range pending {
		treatments[i] = ToTreatment(log)
	}

	if err := s.pusher.PostTreatments(ctx, treatments); err != nil {
		return fmt.Errorf("uploading treatments: %w", err)
	}

	if err := s.store.MarkSynced(ctx, pending, s.now()); err != nil {
		return fmt.Errorf("marking logs synced: %w", err)
	}

	s.logger.Info("logs synced", "count", len(pending))
	return nil
}

// Status reports whether a sync is running, when the last one finished and
// how many entries are waiting
func (s *Syncer) Status(ctx context.Context) models.SyncStatus {
	s.mu.Lock()
	status := models.SyncStatus{
		IsSyncing: s.syncing,
		LastError: s.lastError,
	}
	if s.lastSync != nil {
		at := *s.lastSync
		status.LastSync = &at
	}
	s.mu.Unlock()

	pending, err := s.store.CountUnsynced(ctx)
	if err != nil {
		s.logger.Warn("counting unsynced logs", "error", err)
	}
	status.Pending = pending
	return status
}

// ToTreatment maps a log entry onto a Nightscout care event
func ToTreatment(log models.Log) nightscout.Treatment {
	t := nightscout.Treatment{
		CreatedAt: log.Start.UTC().Format(time.RFC3339),
		Notes:     log.Notes,
		EnteredBy: enteredBy,
	}

	if log.BG.IsPositive() {
		t.Glucose = log.BG.InexactFloat64()
		t.GlucoseType = "Finger"
		t.Units = "mmol"
	}

	hasBolus := log.Bolus.IsPositive()
	hasCarbs := log.NetCarbs.IsPositive()
	if hasBolus {
		t.Insulin = log.Bolus.InexactFloat64()
	}
	if hasCarbs {
		t.Carbs = log.NetCarbs.InexactFloat64()
	}

	switch {
	case hasBolus && hasCarbs:
		t.EventType = nightscout.EventMealBolus
	case hasBolus:
		t.EventType = nightscout.EventCorrectionBolus
	case hasCarbs:
		t.EventType = nightscout.EventCarbCorrection
	default:
		t.EventType = nightscout.EventBGCheck
	}

	return t
}
