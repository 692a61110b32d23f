package services

import (
	"context"
	"errors"
	"fmt"

	"studyhub-progression/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists progression documents in Postgres (or any gorm dialect).
// The DB must be opened with gorm.Config{TranslateError: true} so duplicate
// inserts surface as gorm.ErrDuplicatedKey.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// Migrate creates/updates the progression tables.
func (s *GormStore) Migrate() error {
	return s.DB.AutoMigrate(
		&models.UserProgression{},
		&models.BadgeDefinition{},
		&models.AchievementDefinition{},
		&models.ProcessedActivity{},
	)
}

func (s *GormStore) LoadUserProgression(ctx context.Context, userID string) (*models.UserProgression, error) {
	var prog models.UserProgression
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrPersistenceUnavailable, userID, err)
	}
	return &prog, nil
}

func (s *GormStore) SaveUserProgression(ctx context.Context, p *models.UserProgression) error {
	db := s.DB.WithContext(ctx)

	if p.Version == 0 {
		p.Version = 1
		if err := db.Create(p).Error; err != nil {
			p.Version = 0
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: record for %s created concurrently", ErrPersistenceConflict, p.UserID)
			}
			return fmt.Errorf("%w: create %s: %v", ErrPersistenceUnavailable, p.UserID, err)
		}
		return nil
	}

	expected := p.Version
	p.Version = expected + 1
	res := db.Model(p).
		Where("version = ?", expected).
		Select("*").
		Omit("created_at").
		Updates(p)
	if res.Error != nil {
		p.Version = expected
		return fmt.Errorf("%w: update %s: %v", ErrPersistenceUnavailable, p.UserID, res.Error)
	}
	if res.RowsAffected == 0 {
		p.Version = expected
		return fmt.Errorf("%w: %s changed since version %d", ErrPersistenceConflict, p.UserID, expected)
	}
	return nil
}

func (s *GormStore) ListBadgeDefinitions(ctx context.Context) ([]models.BadgeDefinition, error) {
	var defs []models.BadgeDefinition
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("%w: list badges: %v", ErrPersistenceUnavailable, err)
	}
	return defs, nil
}

func (s *GormStore) ListAchievementDefinitions(ctx context.Context) ([]models.AchievementDefinition, error) {
	var defs []models.AchievementDefinition
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("%w: list achievements: %v", ErrPersistenceUnavailable, err)
	}
	return defs, nil
}

// UpsertDefinitions writes seed definitions, replacing rows with the same id.
func (s *GormStore) UpsertDefinitions(ctx context.Context, badges []models.BadgeDefinition, achievements []models.AchievementDefinition) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(badges) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&badges).Error; err != nil {
				return fmt.Errorf("upsert badges: %w", err)
			}
		}
		if len(achievements) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&achievements).Error; err != nil {
				return fmt.Errorf("upsert achievements: %w", err)
			}
		}
		return nil
	})
}

// SetBadgeIcon points a badge definition at an uploaded icon.
func (s *GormStore) SetBadgeIcon(ctx context.Context, badgeID, url string) error {
	res := s.DB.WithContext(ctx).Model(&models.BadgeDefinition{}).Where("id = ?", badgeID).Update("icon_url", url)
	if res.Error != nil {
		return fmt.Errorf("%w: set icon %s: %v", ErrPersistenceUnavailable, badgeID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TopProgressions ranks persisted records by lifetime XP.
func (s *GormStore) TopProgressions(ctx context.Context, limit int) ([]models.UserProgression, error) {
	var rows []models.UserProgression
	err := s.DB.WithContext(ctx).
		Order("total_xp_earned DESC").
		Order("user_id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: leaderboard: %v", ErrPersistenceUnavailable, err)
	}
	return rows, nil
}

// MarkActivityProcessed records a feed event id; false means it was already applied.
func (s *GormStore) MarkActivityProcessed(ctx context.Context, marker *models.ProcessedActivity) (bool, error) {
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(marker)
	if res.Error != nil {
		return false, fmt.Errorf("%w: mark activity %s: %v", ErrPersistenceUnavailable, marker.EventID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UnmarkActivity removes a marker so the event is retried on the next poll.
func (s *GormStore) UnmarkActivity(ctx context.Context, eventID string) error {
	return s.DB.WithContext(ctx).Where("event_id = ?", eventID).Delete(&models.ProcessedActivity{}).Error
}

// LastProcessedActivity is the cursor of one channel: its newest processed event (zero value if none).
func (s *GormStore) LastProcessedActivity(ctx context.Context, channel string) (models.ProcessedActivity, error) {
	var last models.ProcessedActivity
	err := s.DB.WithContext(ctx).Where("channel = ?", channel).Order("occurred_at DESC").Limit(1).Find(&last).Error
	return last, err
}
