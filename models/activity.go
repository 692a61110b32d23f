package models

import "time"

// Activity types emitted by the dashboard (focus timer, check-ins, tasks, community)
const (
	ActivityFocusSession     = "focus_session_completed"
	ActivityCheckin          = "checkin_created"
	ActivityTaskCompleted    = "task_completed"
	ActivityProjectCompleted = "project_completed"
	ActivityCommunityPost    = "community_post"
	ActivityCommunityReply   = "community_reply"
	ActivityPerfectDay       = "perfect_day"
)

// Ledger channels: events pulled from the dashboard feed, or pushed to /s/progress/activity
const (
	ActivityChannelFeed = "feed"
	ActivityChannelPush = "push"
)

// ActivityEvent is one XP-relevant action reported by the dashboard
type ActivityEvent struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Type       string    `json:"type"`
	Minutes    int64     `json:"minutes,omitempty"` // focus sessions only
	OccurredAt time.Time `json:"occurred_at"`
}

// ProcessedActivity marks a feed event as applied so a re-poll never grants it twice
type ProcessedActivity struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	EventID     string    `gorm:"uniqueIndex;not null" json:"event_id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	Type        string    `gorm:"type:varchar(48)" json:"type"`
	Channel     string    `gorm:"type:varchar(16);index:idx_activity_channel_time;not null;default:feed" json:"channel"`
	OccurredAt  time.Time `json:"occurred_at" gorm:"index:idx_activity_channel_time"`
	ProcessedAt time.Time `json:"processed_at" gorm:"autoCreateTime"`
}
