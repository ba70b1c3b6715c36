// Package logbook persists glucose log entries in SQLite and pushes them to
// the cloud
package logbook

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrcode/control-tray/internal/models"
)

//go:embed sql/insert-log.sql
var insertLogSQL string

//go:embed sql/get-recent-logs.sql
var getRecentLogsSQL string

//go:embed sql/get-log.sql
var getLogSQL string

//go:embed sql/update-log.sql
var updateLogSQL string

//go:embed sql/delete-log.sql
var deleteLogSQL string

//go:embed sql/get-unsynced-logs.sql
var getUnsyncedLogsSQL string

//go:embed sql/mark-synced.sql
var markSyncedSQL string

//go:embed sql/count-unsynced.sql
var countUnsyncedSQL string

// DefaultRecentLimit is how many entries the log list shows
const DefaultRecentLimit = 20

// ErrNotFound is returned when a log id does not exist
var ErrNotFound = errors.New("log not found")

// Store is the persistent log collection
type Store interface {
	Create(ctx context.Context, log models.Log) error
	Get(ctx context.Context, id string) (models.Log, error)
	Recent(ctx context.Context, limit int) ([]models.Log, error)
	Update(ctx context.Context, log models.Log) error
	Delete(ctx context.Context, ids ...string) error
	Unsynced(ctx context.Context) ([]models.Log, error)
	MarkSynced(ctx context.Context, logs []models.Log, at time.Time) error
	CountUnsynced(ctx context.Context) (int, error)
}

type sqliteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore returns a Store backed by db
func NewStore(db *sql.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &sqliteStore{db: db, logger: logger.With("component", "logbook")}
}

func (s *sqliteStore) Create(ctx context.Context, log models.Log) error {
	_, err := s.db.ExecContext(ctx, insertLogSQL,
		log.ID, log.Start.UnixMilli(), log.Notes,
		log.BG.String(), log.Bolus.String(), log.NetCarbs.String(),
		nullableMillis(log.SyncedAt), log.Revision,
	)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (models.Log, error) {
	row := s.db.QueryRowContext(ctx, getLogSQL, id)
	log, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Log{}, ErrNotFound
	}
	return log, err
}

// Recent returns up to limit entries, newest start first. limit <= 0 uses DefaultRecentLimit.
func (s *sqliteStore) Recent(ctx context.Context, limit int) ([]models.Log, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.query(ctx, getRecentLogsSQL, limit)
}

// Update overwrites an entry and marks it for another upload
func (s *sqliteStore) Update(ctx context.Context, log models.Log) error {
	res, err := s.db.ExecContext(ctx, updateLogSQL,
		log.Start.UnixMilli(), log.Notes,
		log.BG.String(), log.Bolus.String(), log.NetCarbs.String(),
		log.ID,
	)
	if err != nil {
		return fmt.Errorf("update log: %w", err)
	}
	return expectRow(res)
}

func (s *sqliteStore) Delete(ctx context.Context, ids ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, id := range ids {
		res, err := tx.ExecContext(ctx, deleteLogSQL, id)
		if err != nil {
			return fmt.Errorf("delete log %s: %w", id, err)
		}
		if err := expectRow(res); err != nil {
			return fmt.Errorf("delete log %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Unsynced returns entries never uploaded, oldest first
func (s *sqliteStore) Unsynced(ctx context.Context) ([]models.Log, error) {
	return s.query(ctx, getUnsyncedLogsSQL)
}

// MarkSynced records the upload of logs. An entry edited since it was read
// has a newer revision and stays pending.
func (s *sqliteStore) MarkSynced(ctx context.Context, logs []models.Log, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark synced: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, log := range logs {
		res, err := tx.ExecContext(ctx, markSyncedSQL, at.UnixMilli(), log.ID, log.Revision)
		if err != nil {
			return fmt.Errorf("mark synced %s: %w", log.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			s.logger.Debug("log changed during upload", "id", log.ID, "revision", log.Revision)
		}
	}

	return tx.Commit()
}

func (s *sqliteStore) CountUnsynced(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, countUnsyncedSQL).Scan(&n)
	return n, err
}

func (s *sqliteStore) query(ctx context.Context, query string, args ...any) ([]models.Log, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("close log rows", "error", err)
		}
	}()

	var out []models.Log
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, log)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLog(row scanner) (models.Log, error) {
	var (
		log                 models.Log
		startMs             int64
		bg, bolus, netCarbs string
		syncedMs            sql.NullInt64
	)
	if err := row.Scan(&log.ID, &startMs, &log.Notes, &bg, &bolus, &netCarbs, &syncedMs, &log.Revision); err != nil {
		return models.Log{}, err
	}

	var err error
	if log.BG, err = decimal.NewFromString(bg); err != nil {
		return models.Log{}, fmt.Errorf("parse bg %q: %w", bg, err)
	}
	if log.Bolus, err = decimal.NewFromString(bolus); err != nil {
		return models.Log{}, fmt.Errorf("parse bolus %q: %w", bolus, err)
	}
	if log.NetCarbs, err = decimal.NewFromString(netCarbs); err != nil {
		return models.Log{}, fmt.Errorf("parse net carbs %q: %w", netCarbs, err)
	}

	log.Start = time.UnixMilli(startMs)
	if syncedMs.Valid {
		at := time.UnixMilli(syncedMs.Int64)
		log.SyncedAt = &at
	}
	return log, nil
}

func nullableMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
