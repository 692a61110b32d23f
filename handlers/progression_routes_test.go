package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studyhub-progression/config"
	"studyhub-progression/models"
	"studyhub-progression/services"
	"studyhub-progression/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *services.ProgressionService) {
	t.Helper()
	ctx := context.Background()
	store := services.NewMemoryStore()
	catalog := services.NewDefinitionCatalog(store, utils.NopLogger())

	seed := services.DefaultSeed()
	require.NoError(t, seed.Normalize())
	require.NoError(t, services.SeedDefinitions(ctx, store, catalog, seed))

	progression := services.NewProgressionService(store, catalog, utils.NopLogger(), services.ProgressionOptions{})
	badges := services.NewBadgeService(catalog, store, nil)

	app := fiber.New()
	SetupProgressionRoutes(app, progression, badges, store, config.DefaultXPWeights)
	SetupAdminRoutes(app, progression, badges)
	return app, progression
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func TestGrantXPRoute(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/s/progress/xp", `{"user_id":"u1","amount":100,"source":"focusSessions"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, 150.0, body["xpGained"])
	assert.Equal(t, 2.0, body["level"])
	assert.Equal(t, 1.5, body["multiplier"])
	assert.Equal(t, true, body["leveledUp"])
	assert.NotNil(t, body["unlockedAchievements"], "empty lists are [] not null")

	// "First Steps" unlocks on the first XP
	unlocked, ok := body["unlockedBadges"].([]any)
	require.True(t, ok)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "first-steps", unlocked[0].(map[string]any)["id"])
}

func TestGrantXPRoute_Rejects(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/s/progress/xp", `{"user_id":"u1","amount":0,"source":"tasks"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, _ = doJSON(t, app, http.MethodPost, "/s/progress/xp", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/s/progress/xp", `{"user_id":"u1","amount":9223372036854775807,"source":"tasks"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestActivityRoute_Deduplicates(t *testing.T) {
	app, progression := newTestApp(t)
	event := `{"id":"evt-9","user_id":"u1","type":"task_completed","occurred_at":"2025-05-01T10:00:00Z"}`

	resp, body := doJSON(t, app, http.MethodPost, "/s/progress/activity", event, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 15.0, body["xpGained"])

	resp, body = doJSON(t, app, http.MethodPost, "/s/progress/activity", event, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["duplicate"])

	ledger := progression.Store.(*services.MemoryStore)
	pushed, err := ledger.LastProcessedActivity(context.Background(), models.ActivityChannelPush)
	require.NoError(t, err)
	assert.Equal(t, "evt-9", pushed.EventID)
	feed, err := ledger.LastProcessedActivity(context.Background(), models.ActivityChannelFeed)
	require.NoError(t, err)
	assert.True(t, feed.OccurredAt.IsZero(), "pushed events leave the feed cursor alone")
}

func TestHistoryRoute_PagesPastTheEnd(t *testing.T) {
	app, progression := newTestApp(t)
	user := map[string]string{"X-User-ID": "u1"}

	_, err := progression.GrantXP(context.Background(), "u1", 10, "tasks")
	require.NoError(t, err)

	for _, page := range []string{"2", "922337203685477581", "9223372036854775807"} {
		resp, body := doJSON(t, app, http.MethodGet, "/user/progress/history?size=20&page="+page, "", user)
		require.Equal(t, http.StatusOK, resp.StatusCode, page)
		assert.Empty(t, body["entries"], page)
		assert.Equal(t, 1.0, body["total"], page)
	}

	resp, body := doJSON(t, app, http.MethodGet, "/user/progress/history?page=1", "", user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["entries"], 1)
}

func TestUserProgressRoutes(t *testing.T) {
	app, progression := newTestApp(t)
	user := map[string]string{"X-User-ID": "u1"}

	resp, _ := doJSON(t, app, http.MethodGet, "/user/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/user/progress", "", user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, body["current_level"])
	_, err := progression.GetProgression(context.Background(), "u1")
	assert.ErrorIs(t, err, services.ErrNotFound, "reading never creates a record")

	for i := 0; i < 3; i++ {
		_, err := progression.GrantXP(context.Background(), "u1", 10, "focusSessions")
		require.NoError(t, err)
	}

	resp, body = doJSON(t, app, http.MethodGet, "/user/progress", "", user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sources := body["xp_sources"].([]any)
	require.Len(t, sources, 1)
	assert.Equal(t, "Focus Sessions", sources[0].(map[string]any)["label"])
	assert.Equal(t, 3.0, sources[0].(map[string]any)["count"])

	resp, body = doJSON(t, app, http.MethodGet, "/user/progress/history?page=1&size=2", "", user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3.0, body["total"])
	assert.Len(t, body["entries"], 2)

	req := httptest.NewRequest(http.MethodGet, "/user/progress/badges", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var views []services.BadgeView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	assert.Len(t, views, len(models.DefaultBadges))
}

func TestAdminRoutes_RequireRole(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/s/admin/badges/night-owl/unlock", `{"user_id":"u2"}`,
		map[string]string{"X-User-ID": "staff"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := map[string]string{"X-User-ID": "staff", "X-User-Roles": "user, admin"}
	resp, body := doJSON(t, app, http.MethodPost, "/s/admin/badges/night-owl/unlock", `{"user_id":"u2"}`, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["unlocked"])

	resp, _ = doJSON(t, app, http.MethodPost, "/s/admin/badges/nope/unlock", `{"user_id":"u2"}`, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/s/admin/multipliers",
		`{"user_id":"u2","multiplier":2,"source":"weekend","duration_minutes":60}`, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2.0, body["base_multiplier"])

	resp, body = doJSON(t, app, http.MethodPost, "/s/admin/definitions/reload", "", admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(len(models.DefaultBadges)), body["badges"])
}

func TestLeaderboardRoute(t *testing.T) {
	app, progression := newTestApp(t)
	for user, amount := range map[string]int64{"a": 10, "b": 40} {
		_, err := progression.GrantXP(context.Background(), user, amount, "tasks")
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/leaderboard?limit=5", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []services.LeaderboardEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "Focus Sessions", sourceLabel("focusSessions"))
	assert.Equal(t, "Wellness Checkins", sourceLabel("wellness_checkins"))
	assert.Equal(t, "Tasks", sourceLabel("tasks"))
}
