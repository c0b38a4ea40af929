//go:build integration

package integration

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keymate/internal/core"
	"keymate/internal/history"
	"keymate/internal/storage"
)

func TestPostgreSQLHistory_RecordAndRecent(t *testing.T) {
	store, err := history.NewPostgreSQLStore(pgPool)
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Millisecond)
	entries := []*history.Entry{
		{
			ID:          uuid.NewString(),
			Timestamp:   base,
			Fingerprint: core.Fingerprint("sk-integration-old"),
			Provider:    core.ProviderOpenAI,
			Valid:       true,
			Message:     "Valid OpenAI API key (Paid account)",
			DurationMs:  85,
		},
		{
			ID:           uuid.NewString(),
			Timestamp:    base.Add(time.Second),
			Fingerprint:  core.Fingerprint("sk-integration-new"),
			Valid:        false,
			FailureClass: string(core.FailureAuthentication),
			Message:      "Invalid or unauthorized API key",
			DurationMs:   4200,
		},
	}
	for _, e := range entries {
		require.NoError(t, store.Record(testCtx, e))
	}

	got, err := store.Recent(testCtx, 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(got), 2, "expected at least the two recorded entries")

	assert.Equal(t, entries[1].ID, got[0].ID, "newest entry should come first")
	assert.Equal(t, string(core.FailureAuthentication), got[0].FailureClass)
	assert.Equal(t, core.ProviderOpenAI, got[1].Provider)
	assert.True(t, got[1].Valid)
	assert.Equal(t, int64(85), got[1].DurationMs)
}

func TestPostgreSQLStorage_SharedConnection(t *testing.T) {
	store, err := storage.NewPostgreSQL(testCtx, storage.PostgreSQLConfig{URL: pgURL, MaxConns: 2})
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, storage.BackendPostgreSQL, store.Backend())
	assert.NotNil(t, store.PostgreSQLPool())
	assert.Nil(t, store.SQLiteDB(), "SQLite handle should be nil for PostgreSQL storage")

	result, err := history.NewWithSharedStorage(store)
	require.NoError(t, err)
	defer result.Close()

	entry := &history.Entry{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Fingerprint: core.Fingerprint("gsk_integration"),
		Provider:    core.ProviderGroq,
		Valid:       true,
		Message:     "Valid Groq API key (Paid account)",
	}
	require.NoError(t, result.Store.Record(testCtx, entry))
}
