package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xbookmarks/pkg/errors"
	"xbookmarks/pkg/logger"
	"xbookmarks/pkg/progress"
)

func completeStore() *Store {
	store := NewStore()
	store.SetCookie("cookie")
	store.SetCSRFToken("csrf")
	store.SetAuthorization("auth")
	store.SetRouteID("route")
	return store
}

func TestGateResolvesImmediatelyWhenReady(t *testing.T) {
	gate := NewGate(completeStore(), time.Second, 50, nil, logger.NewTestLogger())

	start := time.Now()
	err := gate.AwaitReady(context.Background())
	require.NoError(t, err)
	// Ready on the first check, so no ticker wait happens.
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestGateTimeoutNamesMissingFields(t *testing.T) {
	store := NewStore()
	store.SetCookie("cookie")
	gate := NewGate(store, time.Millisecond, 5, nil, logger.NewTestLogger())

	err := gate.AwaitReady(context.Background())
	require.Error(t, err)

	var timeoutErr *errors.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 5, timeoutErr.Attempts)
	assert.Equal(t, []string{"csrf", "auth", "bookmarksApiId"}, timeoutErr.Missing)
}

func TestGateTimeoutNamesAllFourFields(t *testing.T) {
	gate := NewGate(NewStore(), time.Millisecond, 3, nil, logger.NewTestLogger())

	err := gate.AwaitReady(context.Background())

	var timeoutErr *errors.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, []string{"cookie", "csrf", "auth", "bookmarksApiId"}, timeoutErr.Missing)
}

func TestGateSeesWritesWhilePolling(t *testing.T) {
	store := NewStore()
	gate := NewGate(store, time.Millisecond, 1000, nil, logger.NewTestLogger())

	// The interceptor keeps writing while the gate waits.
	go func() {
		time.Sleep(5 * time.Millisecond)
		store.SetCookie("cookie")
		store.SetCSRFToken("csrf")
		store.SetAuthorization("auth")
		store.SetRouteID("route")
	}()

	assert.NoError(t, gate.AwaitReady(context.Background()))
}

func TestGateHonorsContextCancellation(t *testing.T) {
	gate := NewGate(NewStore(), 10*time.Millisecond, 1000, nil, logger.NewTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := gate.AwaitReady(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGatePublishesWaitAndTimeout(t *testing.T) {
	store := NewStore()
	store.SetCookie("cookie")
	broker := progress.NewBroker()
	gate := NewGate(store, time.Millisecond, 3, broker, logger.NewTestLogger())

	err := gate.AwaitReady(context.Background())
	require.Error(t, err)

	history := broker.History()
	require.Len(t, history, 2)
	assert.Equal(t, "Waiting for session data (missing: csrf, auth, bookmarksApiId)", history[0].Message)
	assert.Contains(t, history[1].Message, "Export failed: timeout after 3 attempts")
}

func TestGateQuietWhenAlreadyReady(t *testing.T) {
	broker := progress.NewBroker()
	gate := NewGate(completeStore(), time.Millisecond, 3, broker, logger.NewTestLogger())

	require.NoError(t, gate.AwaitReady(context.Background()))
	assert.Empty(t, broker.History())
}

func TestNewGateAppliesDefaults(t *testing.T) {
	gate := NewGate(NewStore(), 0, 0, nil, nil)
	assert.Equal(t, DefaultPollInterval, gate.interval)
	assert.Equal(t, DefaultMaxAttempts, gate.attempts)
	assert.NotNil(t, gate.broker)
}
