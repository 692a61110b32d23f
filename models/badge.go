package models

import (
	"time"
)

// ConditionType tags the UnlockCondition variant
type ConditionType string

const (
	ConditionNumeric      ConditionType = "numeric"
	ConditionStreak       ConditionType = "streak"
	ConditionSkill        ConditionType = "skill"
	ConditionSocial       ConditionType = "social"
	ConditionTime         ConditionType = "time"
	ConditionPerfectScore ConditionType = "perfect_score"
	ConditionMilestone    ConditionType = "milestone"
	ConditionHidden       ConditionType = "hidden"
)

// Achievement categories counted by skill and milestone conditions
const (
	CategorySkills    = "skills"
	CategoryMilestone = "milestone"
)

// UnlockCondition: metric is a dotted path into UserProgression (e.g. "streakData.currentStreak")
type UnlockCondition struct {
	Type   ConditionType `json:"type"`
	Metric string        `json:"metric,omitempty"`
	Target float64       `json:"target"`
}

// BadgeDefinition: static config (seeded at startup, immutable at runtime)
type BadgeDefinition struct {
	ID          string          `gorm:"primaryKey;type:varchar(64)" json:"id"` // e.g. "week-warrior"
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	IconURL     string          `gorm:"type:text" json:"icon_url"`
	Category    string          `gorm:"type:varchar(32);index" json:"category"`
	Rarity      string          `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	Condition   UnlockCondition `gorm:"serializer:json;type:jsonb" json:"unlock_condition"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// AchievementReward is granted when an achievement completes
type AchievementReward struct {
	XP      int64  `json:"xp,omitempty"`
	BadgeID string `json:"badge_id,omitempty"`
}

// AchievementDefinition: static config; unlike badges, achievements track partial progress
type AchievementDefinition struct {
	ID          string            `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name        string            `gorm:"not null" json:"name"`
	Description string            `json:"description"`
	IconURL     string            `gorm:"type:text" json:"icon_url"`
	Category    string            `gorm:"type:varchar(32);index" json:"category"` // skills, milestone, wellness, social...
	Condition   UnlockCondition   `gorm:"serializer:json;type:jsonb" json:"unlock_condition"`
	Reward      AchievementReward `gorm:"serializer:json;type:jsonb" json:"reward"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
}
