package store

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jokebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "audit.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordReply(ctx, domain.ReplyRecord{
		MessageID: "1", Sender: "Ann", Trigger: "generic", Text: "Hey Ann — a (ref:1)", Posted: true, Source: "poll",
	}))
	require.NoError(t, s.RecordReply(ctx, domain.ReplyRecord{
		MessageID: "2", Sender: "Bob", Trigger: "topic", Term: "cats", Text: "Hey Bob — b (ref:2)", Source: "webhook",
	}))

	rows, err := s.RecentReplies(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2", rows[0].MessageID, "newest first")
	assert.Equal(t, "cats", rows[0].Term)
	assert.False(t, rows[0].Posted)
	assert.Equal(t, "webhook", rows[0].Source)
	assert.True(t, rows[1].Posted)
	assert.False(t, rows[1].CreatedAt.IsZero())

	rows, err = s.RecentReplies(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCountReplies(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	st, err := s.CountReplies(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)

	for i, posted := range []bool{true, true, false} {
		require.NoError(t, s.RecordReply(ctx, domain.ReplyRecord{
			MessageID: string(rune('a' + i)), Trigger: "generic", Text: "x", Posted: posted,
		}))
	}
	st, err = s.CountReplies(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Posted: 2, Failed: 1}, st)
}

func TestPrune(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordReply(ctx, domain.ReplyRecord{
		MessageID: "old", Trigger: "generic", Text: "x", CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}))
	require.NoError(t, s.RecordReply(ctx, domain.ReplyRecord{MessageID: "new", Trigger: "generic", Text: "y"}))

	n, err := s.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rows, err := s.RecentReplies(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "new", rows[0].MessageID)
}

func TestNewSQLiteStore_AppliesPragmas(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var mode string
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(db, testLogger()))
	require.NoError(t, RunMigrations(db, testLogger()))

	v, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)
}
