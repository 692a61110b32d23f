package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studyhub-progression/config"
	"studyhub-progression/models"

	"github.com/google/uuid"
)

// Source tags credited by dashboard activities (keys of xpSources)
const (
	SourceFocusSessions    = "focusSessions"
	SourceWellnessCheckins = "wellnessCheckins"
	SourceTasks            = "tasks"
	SourceProjects         = "projects"
	SourceCommunity        = "community"
)

// ActivityGrant is the XP an activity is worth before multipliers
type ActivityGrant struct {
	Amount int64
	Source string
}

// XPForActivity maps a dashboard event to its raw grant. ok is false for events
// that carry no XP (unknown types, zero-minute focus sessions, perfect days).
func XPForActivity(w config.XPWeights, ev models.ActivityEvent) (ActivityGrant, bool) {
	var g ActivityGrant
	switch ev.Type {
	case models.ActivityFocusSession:
		g = ActivityGrant{Amount: ev.Minutes * w.FocusMinuteXP, Source: SourceFocusSessions}
	case models.ActivityCheckin:
		g = ActivityGrant{Amount: w.CheckinXP, Source: SourceWellnessCheckins}
	case models.ActivityTaskCompleted:
		g = ActivityGrant{Amount: w.TaskXP, Source: SourceTasks}
	case models.ActivityProjectCompleted:
		g = ActivityGrant{Amount: w.ProjectXP, Source: SourceProjects}
	case models.ActivityCommunityPost:
		g = ActivityGrant{Amount: w.CommunityPostXP, Source: SourceCommunity}
	case models.ActivityCommunityReply:
		g = ActivityGrant{Amount: w.CommunityReplyXP, Source: SourceCommunity}
	default:
		return g, false
	}
	return g, g.Amount > 0
}

// ApplyActivity turns a dashboard event into the matching progression operation.
// It returns nil, nil for events that are valid but grant nothing.
func (s *ProgressionService) ApplyActivity(ctx context.Context, w config.XPWeights, ev models.ActivityEvent) (*GrantResult, error) {
	if strings.TrimSpace(ev.UserID) == "" {
		return nil, fmt.Errorf("%w: activity %s has no user", ErrInvalidGrant, ev.ID)
	}
	if ev.Type == models.ActivityPerfectDay {
		return s.RecordPerfectDay(ctx, ev.UserID)
	}
	grant, ok := XPForActivity(w, ev)
	if !ok {
		s.log.Debug("activity carries no XP", "event_id", ev.ID, "type", ev.Type)
		return nil, nil
	}
	return s.GrantXP(ctx, ev.UserID, grant.Amount, grant.Source)
}

// ActivityLedger remembers which activity events were applied.
type ActivityLedger interface {
	MarkActivityProcessed(ctx context.Context, marker *models.ProcessedActivity) (bool, error)
	UnmarkActivity(ctx context.Context, eventID string) error
	// LastProcessedActivity is the newest marker written through channel.
	LastProcessedActivity(ctx context.Context, channel string) (models.ProcessedActivity, error)
}

// RecordActivity applies ev at most once per event id, whichever channel
// delivers it first. applied is false when the event was seen before. A
// rejected event keeps its marker so a replaying feed does not retry it
// forever; any other failure releases the marker.
func (s *ProgressionService) RecordActivity(ctx context.Context, ledger ActivityLedger, w config.XPWeights, channel string, ev models.ActivityEvent) (res *GrantResult, applied bool, err error) {
	if strings.TrimSpace(ev.ID) == "" {
		return nil, false, fmt.Errorf("%w: activity id is required", ErrInvalidGrant)
	}

	marker := &models.ProcessedActivity{
		ID:         uuid.NewString(),
		EventID:    ev.ID,
		UserID:     ev.UserID,
		Type:       ev.Type,
		Channel:    channel,
		OccurredAt: ev.OccurredAt,
	}
	fresh, err := ledger.MarkActivityProcessed(ctx, marker)
	if err != nil {
		return nil, false, err
	}
	if !fresh {
		return nil, false, nil
	}

	res, err = s.ApplyActivity(ctx, w, ev)
	switch {
	case err == nil:
		return res, true, nil
	case errors.Is(err, ErrInvalidGrant):
		return nil, false, err
	default:
		if unmarkErr := ledger.UnmarkActivity(ctx, ev.ID); unmarkErr != nil {
			s.log.Error("❌ failed to release activity marker", "event_id", ev.ID, "error", unmarkErr)
		}
		return nil, false, fmt.Errorf("apply activity %s: %w", ev.ID, err)
	}
}
