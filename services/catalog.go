package services

import (
	"context"
	"sync/atomic"

	"studyhub-progression/models"
	"studyhub-progression/utils"
)

// Definitions is an immutable snapshot of every badge and achievement definition.
type Definitions struct {
	Badges       []models.BadgeDefinition
	Achievements []models.AchievementDefinition
	badgeIndex   map[string]models.BadgeDefinition
}

func newDefinitions(badges []models.BadgeDefinition, achievements []models.AchievementDefinition) *Definitions {
	d := &Definitions{
		Badges:       badges,
		Achievements: achievements,
		badgeIndex:   make(map[string]models.BadgeDefinition, len(badges)),
	}
	for _, b := range badges {
		d.badgeIndex[b.ID] = b
	}
	return d
}

// Badge looks a badge definition up by id.
func (d *Definitions) Badge(id string) (models.BadgeDefinition, bool) {
	b, ok := d.badgeIndex[id]
	return b, ok
}

// DefinitionCatalog caches definitions in memory. Readers get a shared
// read-only snapshot; Reload swaps in a new one atomically.
type DefinitionCatalog struct {
	store    ProgressionStore
	log      *utils.Logger
	snapshot atomic.Pointer[Definitions]
}

func NewDefinitionCatalog(store ProgressionStore, log *utils.Logger) *DefinitionCatalog {
	c := &DefinitionCatalog{store: store, log: log.With("component", "DefinitionCatalog")}
	c.snapshot.Store(newDefinitions(nil, nil))
	return c
}

// Current returns the active snapshot. An empty snapshot means no unlocks are possible.
func (c *DefinitionCatalog) Current() *Definitions {
	return c.snapshot.Load()
}

// Reload reads definitions from the store and logs malformed conditions.
func (c *DefinitionCatalog) Reload(ctx context.Context) error {
	badges, err := c.store.ListBadgeDefinitions(ctx)
	if err != nil {
		return err
	}
	achievements, err := c.store.ListAchievementDefinitions(ctx)
	if err != nil {
		return err
	}

	for _, b := range badges {
		if err := ValidateCondition(b.Condition); err != nil {
			c.log.Warn("⚠️ badge will never unlock", "badge_id", b.ID, "error", err)
		}
	}
	for _, a := range achievements {
		if err := ValidateCondition(a.Condition); err != nil {
			c.log.Warn("⚠️ achievement will never unlock", "achievement_id", a.ID, "error", err)
		}
		if a.Reward.BadgeID != "" && !containsBadge(badges, a.Reward.BadgeID) {
			c.log.Warn("⚠️ achievement reward references unknown badge", "achievement_id", a.ID, "badge_id", a.Reward.BadgeID)
		}
	}

	c.snapshot.Store(newDefinitions(badges, achievements))
	c.log.Info("📚 definitions loaded", "badges", len(badges), "achievements", len(achievements))
	return nil
}

func containsBadge(badges []models.BadgeDefinition, id string) bool {
	for _, b := range badges {
		if b.ID == id {
			return true
		}
	}
	return false
}
