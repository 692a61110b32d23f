// workers/activity_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"studyhub-progression/config"
	"studyhub-progression/models"
	"studyhub-progression/services"
	"studyhub-progression/utils"
)

// ActivityFeedPath is where the dashboard publishes XP-relevant events
const ActivityFeedPath = "/api/v1/public/activities"

// GetActivitiesResponse is the top-level structure of the feed response.
type GetActivitiesResponse struct {
	Activities []models.ActivityEvent `json:"activities"`
}

// ActivitySyncWorker polls the dashboard activity feed and grants XP for each new event.
type ActivitySyncWorker struct {
	progression  *services.ProgressionService
	ledger       services.ActivityLedger
	weights      config.XPWeights
	interval     time.Duration
	baseURL      string
	serviceToken string
	httpClient   *http.Client
	log          *utils.Logger
}

func NewActivitySyncWorker(progression *services.ProgressionService, ledger services.ActivityLedger, cfg *config.Config, log *utils.Logger) *ActivitySyncWorker {
	return &ActivitySyncWorker{
		progression:  progression,
		ledger:       ledger,
		weights:      cfg.Weights,
		interval:     cfg.ActivityFeedInterval,
		baseURL:      cfg.ActivityFeedURL,
		serviceToken: cfg.GatewayToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With("worker", "ActivitySyncWorker"),
	}
}

func (w *ActivitySyncWorker) Start(ctx context.Context) {
	w.log.Info("🔁 Starting activity sync worker (activity feed → progression)…", "interval", w.interval.String())
	go w.run(ctx)
}

func (w *ActivitySyncWorker) run(ctx context.Context) {
	if err := w.SyncOnce(ctx); err != nil {
		w.log.Warn("⚠️ initial activity sync failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.SyncOnce(ctx); err != nil {
				w.log.Error("❌ activity sync batch failed", "error", err)
			}
		case <-ctx.Done():
			w.log.Info("⏹️ activity sync worker stopped")
			return
		}
	}
}

// SyncOnce fetches events since the cursor and applies them oldest first.
// It stops at the first event that fails for a transient reason so the cursor
// never moves past it.
func (w *ActivitySyncWorker) SyncOnce(ctx context.Context) error {
	last, err := w.ledger.LastProcessedActivity(ctx, models.ActivityChannelFeed)
	if err != nil {
		return fmt.Errorf("read activity cursor: %w", err)
	}

	events, err := w.fetch(ctx, last.OccurredAt)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		w.log.Debug("no new activities", "since", last.OccurredAt)
		return nil
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].OccurredAt.Before(events[j].OccurredAt) })

	var applied, skipped int
	for _, ev := range events {
		ok, err := w.apply(ctx, ev)
		if err != nil {
			return err
		}
		if ok {
			applied++
		} else {
			skipped++
		}
	}
	w.log.Info("✅ activities synced", "received", len(events), "applied", applied, "skipped", skipped)
	return nil
}

func (w *ActivitySyncWorker) apply(ctx context.Context, ev models.ActivityEvent) (bool, error) {
	_, applied, err := w.progression.RecordActivity(ctx, w.ledger, w.weights, models.ActivityChannelFeed, ev)
	if errors.Is(err, services.ErrInvalidGrant) {
		w.log.Warn("⚠️ activity rejected", "event_id", ev.ID, "user_id", ev.UserID, "type", ev.Type, "error", err)
		return false, nil
	}
	return applied, err
}

func (w *ActivitySyncWorker) fetch(ctx context.Context, since time.Time) ([]models.ActivityEvent, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid activity feed URL '%s': %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(ActivityFeedPath)
	q := endpointURL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339Nano))
	endpointURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("activity feed request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("activity feed returned status %d: %s", resp.StatusCode, string(body))
	}

	var response GetActivitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode activity feed response: %w", err)
	}
	return response.Activities, nil
}
