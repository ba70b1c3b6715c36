package app

import (
	"context"
	"fmt"

	"github.com/mrcode/control-tray/internal/logbook"
	"github.com/mrcode/control-tray/internal/models"
)

// openLogbook opens the SQLite logbook and starts forwarding its changes
func (s *ControlService) openLogbook(ctx context.Context) error {
	path := s.settings.Clone().LogbookPath
	if path == "" {
		var err error
		if path, err = models.GetDefaultLogbookPath(); err != nil {
			return fmt.Errorf("locating logbook: %w", err)
		}
	}

	db, err := logbook.Open(ctx, path)
	if err != nil {
		return err
	}
	store := logbook.NewStore(db, s.logger)
	logs := logbook.NewController(store, s.logger)

	s.mu.Lock()
	s.db = db
	s.store = store
	s.logs = logs
	s.mu.Unlock()

	changes, cancel := logs.Subscribe()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				s.emitEvent(EventLogsUpdate, nil)
			}
		}
	}()
	return nil
}

func (s *ControlService) emitEvent(name string, data any) {
	s.mu.RLock()
	emit := s.emit
	s.mu.RUnlock()
	emit(name, data)
}

func (s *ControlService) logController() (*logbook.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logs == nil {
		return nil, errNoLogbook
	}
	return s.logs, nil
}

// NewLogForm returns the defaults for a fresh entry
func (s *ControlService) NewLogForm() (models.LogForm, error) {
	logs, err := s.logController()
	if err != nil {
		return models.LogForm{}, err
	}
	return logs.NewForm(), nil
}

// CreateLog stores a new entry and syncs it when sync is on
func (s *ControlService) CreateLog(ctx context.Context, form models.LogForm) (models.Log, error) {
	logs, err := s.logController()
	if err != nil {
		return models.Log{}, err
	}
	log, err := logs.Create(ctx, form)
	if err != nil {
		return models.Log{}, err
	}
	s.autoSync(s.serviceContext())
	return log, nil
}

// GetLogs returns the most recent entries, newest first
func (s *ControlService) GetLogs(ctx context.Context) ([]models.Log, error) {
	logs, err := s.logController()
	if err != nil {
		return nil, err
	}
	return logs.Recent(ctx)
}

// UpdateLog replaces the fields of an entry
func (s *ControlService) UpdateLog(ctx context.Context, id string, form models.LogForm) (models.Log, error) {
	logs, err := s.logController()
	if err != nil {
		return models.Log{}, err
	}
	log, err := logs.Update(ctx, id, form)
	if err != nil {
		return models.Log{}, err
	}
	s.autoSync(s.serviceContext())
	return log, nil
}

// DeleteLogs deletes entries by their offsets in the last GetLogs result
func (s *ControlService) DeleteLogs(ctx context.Context, offsets []int) error {
	logs, err := s.logController()
	if err != nil {
		return err
	}
	return logs.DeleteAt(ctx, offsets)
}

// TriggerSync pushes unsynced entries now. It reports false when a sync
// was already running.
func (s *ControlService) TriggerSync(ctx context.Context) (bool, error) {
	s.mu.RLock()
	syncer := s.syncer
	s.mu.RUnlock()
	if syncer == nil {
		return false, errNoSync
	}

	return syncer.TriggerSync(ctx)
}

// GetSyncStatus reports the state of the cloud sync
func (s *ControlService) GetSyncStatus(ctx context.Context) (models.SyncStatus, error) {
	s.mu.RLock()
	syncer := s.syncer
	store := s.store
	s.mu.RUnlock()

	if syncer != nil {
		return syncer.Status(ctx), nil
	}
	if store == nil {
		return models.SyncStatus{}, errNoLogbook
	}

	pending, err := store.CountUnsynced(ctx)
	if err != nil {
		return models.SyncStatus{}, err
	}
	return models.SyncStatus{Pending: pending}, nil
}

// autoSync starts a background sync when one is configured
func (s *ControlService) autoSync(ctx context.Context) {
	s.mu.RLock()
	syncer := s.syncer
	s.mu.RUnlock()
	if syncer == nil || ctx == nil || ctx.Err() != nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := syncer.TriggerSync(ctx); err != nil {
			s.logger.Warn("background sync failed", "error", err)
		}
	}()
}

// syncDone runs after every finished sync
func (s *ControlService) syncDone() {
	s.mu.RLock()
	syncer := s.syncer
	logs := s.logs
	ctx := s.ctx
	s.mu.RUnlock()

	if logs != nil {
		// Synced markers changed
		logs.Changed()
	}
	if syncer != nil && ctx != nil {
		s.emitEvent(EventSyncUpdate, syncer.Status(ctx))
	}
}
