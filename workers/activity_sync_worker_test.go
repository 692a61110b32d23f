package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"studyhub-progression/config"
	"studyhub-progression/models"
	"studyhub-progression/services"
	"studyhub-progression/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkerFixture(t *testing.T, handler http.HandlerFunc) (*ActivitySyncWorker, *services.MemoryStore, *services.ProgressionService) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := services.NewMemoryStore()
	catalog := services.NewDefinitionCatalog(store, utils.NopLogger())
	require.NoError(t, catalog.Reload(context.Background()))
	progression := services.NewProgressionService(store, catalog, utils.NopLogger(), services.ProgressionOptions{Location: time.UTC})

	cfg := &config.Config{
		GatewayToken:         "svc-token",
		ActivityFeedURL:      srv.URL,
		ActivityFeedInterval: time.Minute,
		Weights:              config.DefaultXPWeights,
	}
	return NewActivitySyncWorker(progression, store, cfg, utils.NopLogger()), store, progression
}

func TestSyncOnce_AppliesEachEventOnce(t *testing.T) {
	base := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	events := []models.ActivityEvent{
		{ID: "e2", UserID: "u1", Type: models.ActivityTaskCompleted, OccurredAt: base.Add(time.Minute)},
		{ID: "e1", UserID: "u1", Type: models.ActivityFocusSession, Minutes: 25, OccurredAt: base},
		{ID: "e3", UserID: "u1", Type: "unknown_thing", OccurredAt: base.Add(2 * time.Minute)},
		{ID: "e4", Type: models.ActivityCheckin, OccurredAt: base.Add(3 * time.Minute)},
	}

	var calls int32
	var lastSince atomic.Value
	worker, store, progression := newWorkerFixture(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, ActivityFeedPath, r.URL.Path)
		assert.Equal(t, "svc-token", r.Header.Get("X-Service-Token"))
		lastSince.Store(r.URL.Query().Get("since"))
		_ = json.NewEncoder(w).Encode(GetActivitiesResponse{Activities: events})
	})
	ctx := context.Background()

	require.NoError(t, worker.SyncOnce(ctx))
	// the feed replays the same batch; nothing is granted twice
	require.NoError(t, worker.SyncOnce(ctx))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	p, err := progression.GetProgression(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ActivityCounts[services.SourceFocusSessions])
	assert.Equal(t, int64(1), p.ActivityCounts[services.SourceTasks])
	// 25 min * 2 xp with the first-of-day bonus, then 10 for the task
	assert.Equal(t, int64(85), p.TotalXPEarned)

	cursor, err := store.LastProcessedActivity(ctx, models.ActivityChannelFeed)
	require.NoError(t, err)
	assert.Equal(t, "e4", cursor.EventID, "rejected events still advance the cursor")
	assert.Equal(t, base.Add(3*time.Minute).Format(time.RFC3339Nano), lastSince.Load())
}

func TestSyncOnce_PushedEventsDoNotMoveCursor(t *testing.T) {
	base := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	feed := []models.ActivityEvent{
		{ID: "feed-1", UserID: "u1", Type: models.ActivityTaskCompleted, OccurredAt: base},
	}

	var lastSince atomic.Value
	worker, store, progression := newWorkerFixture(t, func(w http.ResponseWriter, r *http.Request) {
		lastSince.Store(r.URL.Query().Get("since"))
		_ = json.NewEncoder(w).Encode(GetActivitiesResponse{Activities: feed})
	})
	ctx := context.Background()

	pushed := models.ActivityEvent{ID: "http-1", UserID: "u1", Type: models.ActivityCheckin, OccurredAt: base.Add(2 * time.Hour)}
	_, applied, err := progression.RecordActivity(ctx, store, config.DefaultXPWeights, models.ActivityChannelPush, pushed)
	require.NoError(t, err)
	require.True(t, applied)

	require.NoError(t, worker.SyncOnce(ctx))
	assert.Equal(t, time.Time{}.Format(time.RFC3339Nano), lastSince.Load(), "the feed is read from its own cursor")

	p, err := progression.GetProgression(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ActivityCounts[services.SourceTasks])
	assert.Equal(t, int64(1), p.ActivityCounts[services.SourceWellnessCheckins])

	cursor, err := store.LastProcessedActivity(ctx, models.ActivityChannelFeed)
	require.NoError(t, err)
	assert.Equal(t, "feed-1", cursor.EventID)
}

func TestSyncOnce_FeedError(t *testing.T) {
	worker, _, _ := newWorkerFixture(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	err := worker.SyncOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
