package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/doaamohamed88/shortLinks/internal/models"
	"github.com/doaamohamed88/shortLinks/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextSnapshot(t *testing.T, sub *service.Subscription) []models.Alias {
	t.Helper()
	select {
	case snapshot, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed")
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func codes(aliases []models.Alias) []string {
	out := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		out = append(out, alias.ShortCode)
	}
	return out
}

func TestWatcher_InitialSnapshotAndChanges(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, err := env.service.CreateAlias(ctx, &models.CreateAliasInput{OriginalURL: "https://a.example", CustomAlias: "a"})
	require.NoError(t, err)

	sub, err := env.service.Watch(ctx)
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, []string{"a"}, codes(nextSnapshot(t, sub)))

	_, err = env.service.CreateAlias(ctx, &models.CreateAliasInput{OriginalURL: "https://b.example", CustomAlias: "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, codes(nextSnapshot(t, sub)))

	require.NoError(t, env.service.DeleteAlias(ctx, "a"))
	assert.Equal(t, []string{"b"}, codes(nextSnapshot(t, sub)))
}

func TestWatcher_EmptyListing(t *testing.T) {
	env := setupTestService(t)

	sub, err := env.service.Watch(context.Background())
	require.NoError(t, err)
	defer sub.Close()

	snapshot := nextSnapshot(t, sub)
	assert.NotNil(t, snapshot)
	assert.Empty(t, snapshot)
}

func TestWatcher_CloseUnsubscribes(t *testing.T) {
	env := setupTestService(t)

	sub, err := env.service.Watch(context.Background())
	require.NoError(t, err)
	nextSnapshot(t, sub)
	assert.Equal(t, 1, env.notifier.Subscribers())

	sub.Close()
	sub.Close()

	_, ok := <-sub.Updates()
	assert.False(t, ok)
	assert.Equal(t, 0, env.notifier.Subscribers())
}

func TestWatcher_ContextCancelEndsSubscription(t *testing.T) {
	env := setupTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := env.service.Watch(ctx)
	require.NoError(t, err)
	nextSnapshot(t, sub)

	cancel()
	select {
	case _, ok := <-sub.Updates():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end")
	}
}

func TestWatcher_ClosedWatcherRejectsSubscribers(t *testing.T) {
	env := setupTestService(t)

	sub, err := env.service.Watch(context.Background())
	require.NoError(t, err)
	nextSnapshot(t, sub)

	env.watcher.Close()

	_, ok := <-sub.Updates()
	assert.False(t, ok, "live subscriptions end on close")

	_, err = env.service.Watch(context.Background())
	assert.ErrorIs(t, err, service.ErrWatcherClosed)
}

func TestWatcher_SubscribeError(t *testing.T) {
	env := setupTestService(t)
	env.notifier.SubscribeErr = errors.New("redis down")

	_, err := env.service.Watch(context.Background())
	assert.Error(t, err)
}

func TestWatcher_ListFailureKeepsSubscriptionOpen(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	env.aliases.ListErr = errors.New("timeout")

	sub, err := env.service.Watch(ctx)
	require.NoError(t, err)
	defer sub.Close()

	select {
	case <-sub.Updates():
		t.Fatal("no snapshot expected while listing fails")
	case <-time.After(50 * time.Millisecond):
	}
}
