package logbook

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrcode/control-tray/internal/logging"
	"github.com/mrcode/control-tray/internal/models"
)

var day = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return db
}

func newLog(hours int, notes string) models.Log {
	return models.NewLog(day.Add(time.Duration(hours)*time.Hour), notes,
		decimal.RequireFromString("5.6"), decimal.NewFromInt(2), decimal.NewFromInt(30))
}

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t), logging.Discard())

	log := newLog(8, "breakfast")
	require.NoError(t, store.Create(ctx, log))

	got, err := store.Get(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, log.ID, got.ID)
	assert.Equal(t, "breakfast", got.Notes)
	assert.True(t, got.Start.Equal(log.Start))
	assert.True(t, got.BG.Equal(log.BG), "bg = %s", got.BG)
	assert.True(t, got.Bolus.Equal(log.Bolus))
	assert.True(t, got.NetCarbs.Equal(log.NetCarbs))
	assert.Nil(t, got.SyncedAt)
}

func TestStore_GetMissing(t *testing.T) {
	store := NewStore(setupTestDB(t), logging.Discard())

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RecentOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t), logging.Discard())

	for h := range 25 {
		require.NoError(t, store.Create(ctx, newLog(h, "")))
	}

	logs, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, DefaultRecentLimit)
	assert.True(t, logs[0].Start.Equal(day.Add(24*time.Hour)))
	for i := 1; i < len(logs); i++ {
		assert.True(t, logs[i].Start.Before(logs[i-1].Start), "not descending at %d", i)
	}

	logs, err = store.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t), logging.Discard())

	log := newLog(8, "before")
	require.NoError(t, store.Create(ctx, log))
	require.NoError(t, store.MarkSynced(ctx, []models.Log{log}, day))

	log.Notes = "after"
	log.Bolus = decimal.RequireFromString("3.5")
	require.NoError(t, store.Update(ctx, log))

	got, err := store.Get(ctx, log.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Notes)
	assert.Equal(t, "3.5", got.Bolus.String())
	assert.Nil(t, got.SyncedAt, "an edited entry must be uploaded again")
	assert.Equal(t, int64(1), got.Revision)

	missing := newLog(1, "")
	assert.ErrorIs(t, store.Update(ctx, missing), ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t), logging.Discard())

	a, b := newLog(1, "a"), newLog(2, "b")
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	require.NoError(t, store.Delete(ctx, a.ID))

	logs, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, b.ID, logs[0].ID)

	// Missing ids abort the whole batch.
	assert.ErrorIs(t, store.Delete(ctx, b.ID, "missing"), ErrNotFound)
	logs, err = store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestStore_SyncBookkeeping(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t), logging.Discard())

	a, b, c := newLog(3, "a"), newLog(1, "b"), newLog(2, "c")
	for _, l := range []models.Log{a, b, c} {
		require.NoError(t, store.Create(ctx, l))
	}

	pending, err := store.Unsynced(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, []string{pending[0].ID, pending[1].ID, pending[2].ID})

	require.NoError(t, store.MarkSynced(ctx, []models.Log{b, c}, day))

	n, err := store.CountUnsynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SyncedAt)
	assert.True(t, got.SyncedAt.Equal(day))
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logbook.db")

	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	store := NewStore(db, logging.Discard())
	require.NoError(t, store.Create(context.Background(), newLog(0, "")))
	assert.FileExists(t, path)
}

func TestBuildDSN(t *testing.T) {
	dsn, err := buildDSN("file:/tmp/x.db?mode=rwc")
	require.NoError(t, err)
	assert.Equal(t, "file:/tmp/x.db?mode=rwc&_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", dsn)

	_, err = buildDSN("")
	assert.Error(t, err)
}

func TestStore_MarkSyncedSkipsEditedEntries(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t), logging.Discard())

	log := newLog(4, "read for upload")
	require.NoError(t, store.Create(ctx, log))

	edited := log
	edited.Notes = "edited meanwhile"
	require.NoError(t, store.Update(ctx, edited))

	// log still carries the revision that was uploaded
	require.NoError(t, store.MarkSynced(ctx, []models.Log{log}, day))

	got, err := store.Get(ctx, log.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SyncedAt)
	assert.Equal(t, "edited meanwhile", got.Notes)

	n, err := store.CountUnsynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMigrate_AddsRevisionColumn(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `CREATE TABLE logs (
		id TEXT PRIMARY KEY, start_ms INTEGER NOT NULL, notes TEXT NOT NULL DEFAULT '',
		bg TEXT NOT NULL DEFAULT '0', bolus TEXT NOT NULL DEFAULT '0',
		net_carbs TEXT NOT NULL DEFAULT '0', synced_ms INTEGER)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO logs (id, start_ms) VALUES ('old', ?)`, day.UnixMilli())
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, db))
	// A second run finds the column and leaves it alone.
	require.NoError(t, Migrate(ctx, db))

	got, err := NewStore(db, logging.Discard()).Get(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Revision)
	assert.True(t, got.Start.Equal(day))
}
