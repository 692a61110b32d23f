package services

import (
	"context"
	"mime/multipart"
	"testing"
	"time"

	"studyhub-progression/models"
	"studyhub-progression/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBadgeService(t *testing.T) *BadgeService {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.UpsertDefinitions(context.Background(),
		[]models.BadgeDefinition{streakBadge, secretBadge},
		[]models.AchievementDefinition{centuryAchievement}))
	catalog := NewDefinitionCatalog(store, utils.NopLogger())
	require.NoError(t, catalog.Reload(context.Background()))
	return NewBadgeService(catalog, store, nil)
}

func TestBadgeService_UserBadges(t *testing.T) {
	svc := newBadgeService(t)
	at := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	p := models.NewUserProgression("p1", "u1")
	p.Badges = []models.UnlockedBadge{{BadgeID: "week-warrior", UnlockedAt: at}}

	views := svc.UserBadges(p)
	require.Len(t, views, 2)

	byID := map[string]BadgeView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	ww := byID["week-warrior"]
	assert.True(t, ww.Unlocked)
	assert.Equal(t, at, *ww.UnlockedAt)
	assert.Equal(t, "Rare", ww.RarityLabel)

	owl := byID["night-owl"]
	assert.False(t, owl.Unlocked)
	assert.True(t, owl.Hidden)
	assert.Equal(t, "???", owl.Name)
	assert.Equal(t, "Legendary", owl.RarityLabel)

	p.Badges = append(p.Badges, models.UnlockedBadge{BadgeID: "night-owl", UnlockedAt: at})
	for _, v := range svc.UserBadges(p) {
		if v.ID == "night-owl" {
			assert.Equal(t, "Night Owl", v.Name, "an unlocked hidden badge is revealed")
		}
	}
}

func TestBadgeService_UserAchievements(t *testing.T) {
	svc := newBadgeService(t)
	p := models.NewUserProgression("p1", "u1")

	views := svc.UserAchievements(p)
	require.Len(t, views, 1)
	assert.Zero(t, views[0].Progress)
	assert.Equal(t, 100.0, views[0].Target)
	assert.Equal(t, "Milestone", views[0].CategoryLabel)

	p.Achievements = []models.AchievementProgress{{AchievementID: "century", Progress: 40, Target: 100}}
	views = svc.UserAchievements(p)
	assert.Equal(t, 40.0, views[0].Progress)
	assert.Equal(t, 40.0, views[0].Percent)
	assert.False(t, views[0].Completed)
}

func TestBadgeService_HiddenAchievementsAreMasked(t *testing.T) {
	store := NewMemoryStore()
	secret := models.AchievementDefinition{
		ID: "midnight-club", Name: "Midnight Club", Description: "Study past midnight", Category: models.CategoryMilestone,
		Condition: models.UnlockCondition{Type: models.ConditionHidden},
		Reward:    models.AchievementReward{XP: 25, BadgeID: "night-owl"},
	}
	require.NoError(t, store.UpsertDefinitions(context.Background(), nil, []models.AchievementDefinition{secret}))
	catalog := NewDefinitionCatalog(store, utils.NopLogger())
	require.NoError(t, catalog.Reload(context.Background()))
	svc := NewBadgeService(catalog, store, nil)

	p := models.NewUserProgression("p1", "u1")
	views := svc.UserAchievements(p)
	require.Len(t, views, 1)
	assert.True(t, views[0].Hidden)
	assert.Equal(t, "???", views[0].Name)
	assert.NotEqual(t, secret.Description, views[0].Description)
	assert.Zero(t, views[0].Reward)

	at := time.Date(2025, 2, 1, 0, 30, 0, 0, time.UTC)
	p.Achievements = []models.AchievementProgress{{AchievementID: "midnight-club", Completed: true, CompletedAt: &at}}
	views = svc.UserAchievements(p)
	assert.Equal(t, "Midnight Club", views[0].Name, "a completed hidden achievement is revealed")
	assert.Equal(t, int64(25), views[0].Reward.XP)
}

func TestBadgeService_UploadIconWithoutStorage(t *testing.T) {
	svc := newBadgeService(t)
	_, err := svc.UploadIcon(context.Background(), "week-warrior", &multipart.FileHeader{Filename: "ww.png"})
	assert.ErrorIs(t, err, ErrIconStorageDisabled)
}
