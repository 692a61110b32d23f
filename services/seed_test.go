package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"studyhub-progression/models"
	"studyhub-progression/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedJSON = `{
  "badges": [
    {"name": "Early Bird", "description": "Focus before 8am", "category": "time",
     "unlock_condition": {"type": "numeric", "metric": "activityCounts.earlySessions", "target": 5}},
    {"id": "custom-id", "name": "Custom", "rarity": "rare",
     "unlock_condition": {"type": "streak", "metric": "streakData.currentStreak", "target": 3}}
  ],
  "achievements": [
    {"name": "Getting Started", "category": "milestone",
     "unlock_condition": {"type": "numeric", "metric": "totalXPEarned", "target": 100},
     "reward": {"xp": 25, "badge_id": "early-bird"}}
  ]
}`

func TestParseSeed_Normalize(t *testing.T) {
	seed, err := ParseSeed(strings.NewReader(seedJSON))
	require.NoError(t, err)
	require.NoError(t, seed.Normalize())

	require.Len(t, seed.Badges, 2)
	assert.Equal(t, "early-bird", seed.Badges[0].ID)
	assert.Equal(t, "common", seed.Badges[0].Rarity)
	assert.Equal(t, "custom-id", seed.Badges[1].ID)
	assert.Equal(t, "rare", seed.Badges[1].Rarity)

	require.Len(t, seed.Achievements, 1)
	a := seed.Achievements[0]
	assert.Equal(t, "getting-started", a.ID)
	assert.Equal(t, int64(25), a.Reward.XP)
	assert.Equal(t, 100.0, a.Condition.Target)
}

func TestParseSeed_Invalid(t *testing.T) {
	_, err := ParseSeed(strings.NewReader("{not json"))
	assert.Error(t, err)

	dup := DefinitionSeed{Badges: []models.BadgeDefinition{{Name: "Same"}, {Name: "same"}}}
	assert.Error(t, dup.Normalize())

	unnamed := DefinitionSeed{Achievements: []models.AchievementDefinition{{}}}
	assert.Error(t, unnamed.Normalize())
}

func TestDefaultSeed_IsValid(t *testing.T) {
	seed := DefaultSeed()
	require.NoError(t, seed.Normalize())

	ids := map[string]bool{}
	for _, b := range seed.Badges {
		ids[b.ID] = true
	}
	for _, a := range seed.Achievements {
		assert.NoError(t, ValidateCondition(a.Condition), a.ID)
		if a.Reward.BadgeID != "" {
			assert.True(t, ids[a.Reward.BadgeID], "reward badge %q of %q is defined", a.Reward.BadgeID, a.ID)
		}
	}
	// DefaultSeed copies, Normalize must not leak ids into the package defaults
	assert.Empty(t, models.DefaultBadges[0].ID)
}

func TestLoadSeed_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "definitions.json")
	require.NoError(t, os.WriteFile(path, []byte(seedJSON), 0o600))

	seed, err := LoadSeed(context.Background(), SeedSource{File: path})
	require.NoError(t, err)
	assert.Len(t, seed.Badges, 2)

	_, err = LoadSeed(context.Background(), SeedSource{File: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}

func TestSeedDefinitions_ReloadsCatalog(t *testing.T) {
	store := NewMemoryStore()
	catalog := NewDefinitionCatalog(store, utils.NopLogger())
	assert.Empty(t, catalog.Current().Badges)

	seed, err := LoadSeed(context.Background(), SeedSource{})
	require.NoError(t, err)
	require.NoError(t, SeedDefinitions(context.Background(), store, catalog, seed))

	assert.Len(t, catalog.Current().Badges, len(models.DefaultBadges))
	b, ok := catalog.Current().Badge("week-warrior")
	require.True(t, ok)
	assert.Equal(t, "Week Warrior", b.Name)
}
