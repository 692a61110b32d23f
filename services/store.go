package services

import (
	"context"

	"studyhub-progression/models"
)

// ProgressionStore is the only I/O the engine performs.
//
// SaveUserProgression must be a single-document compare-and-swap on Version:
// Version 0 inserts, anything else updates only if the stored version still
// matches. On success the record's Version is advanced; on a lost race it
// returns ErrPersistenceConflict and leaves the stored document untouched.
type ProgressionStore interface {
	LoadUserProgression(ctx context.Context, userID string) (*models.UserProgression, error)
	SaveUserProgression(ctx context.Context, p *models.UserProgression) error
	ListBadgeDefinitions(ctx context.Context) ([]models.BadgeDefinition, error)
	ListAchievementDefinitions(ctx context.Context) ([]models.AchievementDefinition, error)
}

// LeaderboardSource is implemented by stores that can rank persisted records directly.
type LeaderboardSource interface {
	TopProgressions(ctx context.Context, limit int) ([]models.UserProgression, error)
}

// DefinitionWriter is implemented by stores the seed loader can populate.
type DefinitionWriter interface {
	UpsertDefinitions(ctx context.Context, badges []models.BadgeDefinition, achievements []models.AchievementDefinition) error
}
