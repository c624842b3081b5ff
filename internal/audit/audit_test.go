package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantasylifeleague/healthapi/internal/audit"
)

func sampleRecord(userID string) audit.Record {
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	return audit.Record{
		ID:          audit.NewID(),
		UserID:      userID,
		Accepted:    true,
		Score:       90,
		Points:      79,
		Warnings:    []string{"Data is 3.0 hours old. Recent data is more trustworthy."},
		Errors:      []string{},
		DataDate:    now.Truncate(24 * time.Hour),
		SubmittedAt: now.Add(-3 * time.Hour),
		ProcessedAt: now,
		Version:     "1.0",
	}
}

func TestInMemoryRepository_ListByUser(t *testing.T) {
	repo := audit.NewInMemoryRepository()
	ctx := context.Background()

	first := sampleRecord("user-1")
	second := sampleRecord("user-1")
	other := sampleRecord("user-2")

	require.NoError(t, repo.Record(ctx, first))
	require.NoError(t, repo.Record(ctx, other))
	require.NoError(t, repo.Record(ctx, second))

	records, err := repo.ListByUser(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID)
	assert.Equal(t, first.ID, records[1].ID)

	records, err = repo.ListByUser(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestInMemoryRepository_IgnoresDuplicateIDs(t *testing.T) {
	repo := audit.NewInMemoryRepository()
	rec := sampleRecord("user-1")

	require.NoError(t, repo.Record(context.Background(), rec))
	require.NoError(t, repo.Record(context.Background(), rec))

	assert.Len(t, repo.All(), 1)
}

func TestMessageHandler_StoresRecord(t *testing.T) {
	repo := audit.NewInMemoryRepository()
	handler := audit.NewMessageHandler(repo, zerolog.Nop())
	rec := sampleRecord("user-1")

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	require.NoError(t, handler.Handle(context.Background(), audit.EventType, data))

	stored := repo.All()
	require.Len(t, stored, 1)
	assert.Equal(t, rec.ID, stored[0].ID)
	assert.Equal(t, rec.Warnings, stored[0].Warnings)
	assert.True(t, rec.ProcessedAt.Equal(stored[0].ProcessedAt))
}

func TestMessageHandler_PoisonMessages(t *testing.T) {
	handler := audit.NewMessageHandler(audit.NewInMemoryRepository(), zerolog.Nop())

	err := handler.Handle(context.Background(), audit.EventType, []byte("{not json"))
	assert.True(t, audit.IsPoison(err))

	err = handler.Handle(context.Background(), audit.EventType, []byte(`{"accepted":true}`))
	assert.True(t, audit.IsPoison(err))
}

func TestMessageHandler_SkipsUnknownEvents(t *testing.T) {
	repo := audit.NewInMemoryRepository()
	handler := audit.NewMessageHandler(repo, zerolog.Nop())

	require.NoError(t, handler.Handle(context.Background(), "something.else", []byte("{}")))
	assert.Empty(t, repo.All())
}

func TestMessageHandler_StoreFailureIsRetryable(t *testing.T) {
	errDown := errors.New("database down")
	failing := audit.RecorderFunc(func(context.Context, audit.Record) error { return errDown })
	handler := audit.NewMessageHandler(failing, zerolog.Nop())

	data, err := json.Marshal(sampleRecord("user-1"))
	require.NoError(t, err)

	err = handler.Handle(context.Background(), audit.EventType, data)
	assert.ErrorIs(t, err, errDown)
	assert.False(t, audit.IsPoison(err))
}

func TestLogRecorder(t *testing.T) {
	recorder := audit.NewLogRecorder(zerolog.Nop())
	assert.NoError(t, recorder.Record(context.Background(), sampleRecord("user-1")))
}
