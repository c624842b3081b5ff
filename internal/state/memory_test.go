package state_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantasylifeleague/healthapi/internal/state"
)

func TestInMemoryStore_GetNotFound(t *testing.T) {
	store := state.NewInMemoryStore()

	_, err := store.Get(context.Background(), "user-1")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestInMemoryStore_UpdateCommits(t *testing.T) {
	store := state.NewInMemoryStore()
	ts := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	err := store.Update(context.Background(), "user-1", func(s *state.UserState) error {
		s.RecordSubmission(ts)
		s.RecordSample(5000, 300, 3750)
		return nil
	})
	require.NoError(t, err)

	got, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []time.Time{ts}, got.Submissions)
	assert.Equal(t, []float64{5000}, got.Steps)
	assert.Equal(t, 1, got.DaysTracked())
}

func TestInMemoryStore_UpdateErrorDiscardsChanges(t *testing.T) {
	store := state.NewInMemoryStore()
	errBoom := errors.New("boom")

	err := store.Update(context.Background(), "user-1", func(s *state.UserState) error {
		s.RecordSample(1, 2, 3)
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	_, err = store.Get(context.Background(), "user-1")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestInMemoryStore_GetReturnsCopy(t *testing.T) {
	store := state.NewInMemoryStore()
	require.NoError(t, store.Update(context.Background(), "user-1", func(s *state.UserState) error {
		s.RecordSample(1, 2, 3)
		return nil
	}))

	got, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	got.Steps[0] = 999

	got, err = store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Steps[0])
}

func TestInMemoryStore_CanceledContext(t *testing.T) {
	store := state.NewInMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Update(ctx, "user-1", func(*state.UserState) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryStore_SerializesSameUser(t *testing.T) {
	store := state.NewInMemoryStore()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Update(context.Background(), "user-1", func(s *state.UserState) error {
				s.RecordSample(float64(i), 0, 0)
				return nil
			})
		}(i)
	}
	wg.Wait()

	got, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, got.Steps, state.StatisticsWindow)
	assert.Len(t, got.Calories, state.StatisticsWindow)
	assert.Len(t, got.Distance, state.StatisticsWindow)
}

func TestInMemoryStore_DifferentUsersDoNotBlock(t *testing.T) {
	store := state.NewInMemoryStore()
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = store.Update(context.Background(), "slow-user", func(*state.UserState) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	done := make(chan error, 1)
	go func() {
		done <- store.Update(context.Background(), "fast-user", func(s *state.UserState) error {
			s.RecordSample(1, 1, 1)
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("update for a different user blocked")
	}
}

func TestUserState_Bounds(t *testing.T) {
	s := &state.UserState{}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 150; i++ {
		s.RecordSubmission(base.Add(time.Duration(i) * time.Hour))
	}
	for i := 0; i < 40; i++ {
		s.RecordSample(float64(i), float64(i), float64(i))
	}

	assert.Len(t, s.Submissions, state.SubmissionHistorySize)
	assert.Equal(t, base.Add(50*time.Hour), s.Submissions[0])

	last, ok := s.LastSubmission()
	require.True(t, ok)
	assert.Equal(t, base.Add(149*time.Hour), last)

	assert.Len(t, s.Steps, state.StatisticsWindow)
	assert.Equal(t, 10.0, s.Steps[0])
	assert.Equal(t, 39.0, s.Distance[state.StatisticsWindow-1])
}
