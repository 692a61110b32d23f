package models

import (
	"time"

	"gorm.io/gorm"
)

// HistoryLimit caps UserProgression.History; older entries are dropped on append.
const HistoryLimit = 1000

// UserProgression is the per-user progression document (denormalized, one row per user)
type UserProgression struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"` // links to the dashboard account

	// Core progression. CurrentXP is lifetime-cumulative; CurrentLevel is derived from it.
	CurrentLevel  int   `json:"current_level" gorm:"default:1;index"`
	CurrentXP     int64 `json:"current_xp" gorm:"default:0"`
	TotalXPEarned int64 `json:"total_xp_earned" gorm:"default:0;index"`

	XPSources      map[string]int64 `json:"xp_sources" gorm:"serializer:json;type:jsonb"`      // e.g. {"focusSessions": 350}
	ActivityCounts map[string]int64 `json:"activity_counts" gorm:"serializer:json;type:jsonb"` // grants per source tag

	ActiveMultipliers []ActiveMultiplier `json:"active_multipliers" gorm:"serializer:json;type:jsonb"`

	Streak StreakData `json:"streak" gorm:"embedded;embeddedPrefix:streak_"`

	Badges       []UnlockedBadge       `json:"badges" gorm:"serializer:json;type:jsonb"`
	Achievements []AchievementProgress `json:"achievements" gorm:"serializer:json;type:jsonb"`
	History      []HistoryEntry        `json:"history" gorm:"serializer:json;type:jsonb"`

	// Optimistic concurrency token, bumped on every successful save
	Version int64 `json:"-" gorm:"not null;default:0"`

	Timestamps
}

// ActiveMultiplier is a time-limited XP factor (e.g. a weekend event or a wellbeing boost)
type ActiveMultiplier struct {
	Multiplier float64   `json:"multiplier"`
	Source     string    `json:"source"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// StreakData tracks consecutive active calendar days.
type StreakData struct {
	CurrentStreak    int        `json:"current_streak" gorm:"default:0"`
	LongestStreak    int        `json:"longest_streak" gorm:"default:0"`
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`
	TotalActiveDays  int        `json:"total_active_days" gorm:"default:0"`
	PerfectDays      int        `json:"perfect_days" gorm:"default:0"`
	LastPerfectDate  *time.Time `json:"last_perfect_date,omitempty"`
}

// UnlockedBadge is an awarded badge; unique by BadgeID within a user
type UnlockedBadge struct {
	BadgeID    string    `json:"badge_id"`
	Rarity     string    `json:"rarity"`
	Category   string    `json:"category"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// AchievementProgress tracks partial and completed achievements; unique by AchievementID
type AchievementProgress struct {
	AchievementID string     `json:"achievement_id"`
	Category      string     `json:"category"`
	Progress      float64    `json:"progress"`
	Target        float64    `json:"target"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// HistoryEntry is one XP grant. History is a bounded log, not a ledger of record.
type HistoryEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
	XPGained   int64     `json:"xp_gained"`
	Multiplier float64   `json:"multiplier"`
}

// NewUserProgression returns the defaults a user starts with on their first XP-granting action.
func NewUserProgression(id, userID string) *UserProgression {
	return &UserProgression{
		ID:             id,
		UserID:         userID,
		CurrentLevel:   1,
		XPSources:      map[string]int64{},
		ActivityCounts: map[string]int64{},
	}
}

// HasBadge reports whether badgeID is already unlocked.
func (p *UserProgression) HasBadge(badgeID string) bool {
	for _, b := range p.Badges {
		if b.BadgeID == badgeID {
			return true
		}
	}
	return false
}

// Achievement returns the progress record for id, or nil.
func (p *UserProgression) Achievement(id string) *AchievementProgress {
	for i := range p.Achievements {
		if p.Achievements[i].AchievementID == id {
			return &p.Achievements[i]
		}
	}
	return nil
}

// CompletedAchievements counts completed achievements in category ("" counts all).
func (p *UserProgression) CompletedAchievements(category string) int {
	n := 0
	for _, a := range p.Achievements {
		if a.Completed && (category == "" || a.Category == category) {
			n++
		}
	}
	return n
}

// AppendHistory adds an entry and trims to the last HistoryLimit entries.
func (p *UserProgression) AppendHistory(e HistoryEntry) {
	p.History = append(p.History, e)
	if over := len(p.History) - HistoryLimit; over > 0 {
		trimmed := make([]HistoryEntry, HistoryLimit)
		copy(trimmed, p.History[over:])
		p.History = trimmed
	}
}

// Clone deep-copies the record so a grant can be computed without touching the loaded value.
func (p *UserProgression) Clone() *UserProgression {
	c := *p
	c.XPSources = cloneCounts(p.XPSources)
	c.ActivityCounts = cloneCounts(p.ActivityCounts)
	c.ActiveMultipliers = append([]ActiveMultiplier(nil), p.ActiveMultipliers...)
	c.Badges = append([]UnlockedBadge(nil), p.Badges...)
	c.Achievements = make([]AchievementProgress, len(p.Achievements))
	for i, a := range p.Achievements {
		if a.CompletedAt != nil {
			t := *a.CompletedAt
			a.CompletedAt = &t
		}
		c.Achievements[i] = a
	}
	c.History = append([]HistoryEntry(nil), p.History...)
	if p.Streak.LastActivityDate != nil {
		t := *p.Streak.LastActivityDate
		c.Streak.LastActivityDate = &t
	}
	if p.Streak.LastPerfectDate != nil {
		t := *p.Streak.LastPerfectDate
		c.Streak.LastPerfectDate = &t
	}
	return &c
}

func cloneCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
