package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"studyhub-progression/models"
)

// EvaluationResult lists what a single pass newly unlocked
type EvaluationResult struct {
	Badges       []models.BadgeDefinition
	Achievements []models.AchievementDefinition
}

func (r EvaluationResult) Empty() bool {
	return len(r.Badges) == 0 && len(r.Achievements) == 0
}

// ValidateCondition reports ErrDefinition for a condition missing its metric or target.
// Unknown and hidden types are not malformed; they simply never unlock.
func ValidateCondition(c models.UnlockCondition) error {
	switch c.Type {
	case models.ConditionNumeric, models.ConditionStreak, models.ConditionSocial, models.ConditionTime:
		if strings.TrimSpace(c.Metric) == "" {
			return fmt.Errorf("%w: %s condition has no metric", ErrDefinition, c.Type)
		}
	case models.ConditionSkill, models.ConditionMilestone, models.ConditionPerfectScore:
	default:
		return nil
	}
	if c.Target <= 0 || math.IsNaN(c.Target) {
		return fmt.Errorf("%w: %s condition has no positive target", ErrDefinition, c.Type)
	}
	return nil
}

// ResolveMetric looks a dotted path up in p. Unknown paths resolve to 0.
func ResolveMetric(p *models.UserProgression, path string) float64 {
	parts := strings.SplitN(strings.TrimSpace(path), ".", 2)
	head, rest := parts[0], ""
	if len(parts) == 2 {
		rest = parts[1]
	}
	switch head {
	case "currentLevel", "level":
		return float64(p.CurrentLevel)
	case "currentXP":
		return float64(p.CurrentXP)
	case "totalXPEarned", "totalXP":
		return float64(p.TotalXPEarned)
	case "xpSources":
		return float64(p.XPSources[rest])
	case "activityCounts":
		return float64(p.ActivityCounts[rest])
	case "streak", "streakData":
		switch rest {
		case "currentStreak":
			return float64(p.Streak.CurrentStreak)
		case "longestStreak":
			return float64(p.Streak.LongestStreak)
		case "totalActiveDays":
			return float64(p.Streak.TotalActiveDays)
		case "perfectDays":
			return float64(p.Streak.PerfectDays)
		}
	case "badges":
		if rest == "length" || rest == "count" {
			return float64(len(p.Badges))
		}
	case "achievements":
		switch rest {
		case "completed":
			return float64(p.CompletedAchievements(""))
		case "length", "count":
			return float64(len(p.Achievements))
		}
	case "history":
		if rest == "length" || rest == "count" {
			return float64(len(p.History))
		}
	}
	return 0
}

// ConditionValue returns the current metric value for c and whether c can auto-unlock at all.
func ConditionValue(p *models.UserProgression, c models.UnlockCondition) (float64, bool) {
	if ValidateCondition(c) != nil {
		return 0, false
	}
	switch c.Type {
	case models.ConditionNumeric, models.ConditionStreak, models.ConditionSocial, models.ConditionTime:
		return ResolveMetric(p, c.Metric), true
	case models.ConditionSkill:
		return float64(p.CompletedAchievements(models.CategorySkills)), true
	case models.ConditionMilestone:
		return float64(p.CompletedAchievements(models.CategoryMilestone)), true
	case models.ConditionPerfectScore:
		return float64(p.Streak.PerfectDays), true
	default:
		// hidden: manual unlock only; unknown types never unlock
		return 0, false
	}
}

// UnlockEvaluator decides which definitions a user newly satisfies.
// It is stateless; idempotence comes from the unlocked sets stored on the user.
type UnlockEvaluator struct{}

type achievementDecision struct {
	def      models.AchievementDefinition
	value    float64
	complete bool
}

// Evaluate runs one pass. Every condition is judged against the state as it was
// before the pass, so the result does not depend on definition order. Unlocks and
// achievement progress are then applied to p.
func (UnlockEvaluator) Evaluate(p *models.UserProgression, badges []models.BadgeDefinition, achievements []models.AchievementDefinition, now time.Time) EvaluationResult {
	var res EvaluationResult

	seen := make(map[string]bool)
	var badgeHits []models.BadgeDefinition
	for _, def := range badges {
		if seen[def.ID] || p.HasBadge(def.ID) {
			continue
		}
		seen[def.ID] = true
		value, ok := ConditionValue(p, def.Condition)
		if ok && value >= def.Condition.Target {
			badgeHits = append(badgeHits, def)
		}
	}

	seen = make(map[string]bool)
	var decisions []achievementDecision
	for _, def := range achievements {
		if seen[def.ID] {
			continue
		}
		seen[def.ID] = true
		if rec := p.Achievement(def.ID); rec != nil && rec.Completed {
			continue
		}
		value, ok := ConditionValue(p, def.Condition)
		if !ok {
			continue
		}
		decisions = append(decisions, achievementDecision{def: def, value: value, complete: value >= def.Condition.Target})
	}

	for _, def := range badgeHits {
		p.Badges = append(p.Badges, models.UnlockedBadge{
			BadgeID:    def.ID,
			Rarity:     def.Rarity,
			Category:   def.Category,
			UnlockedAt: now,
		})
		res.Badges = append(res.Badges, def)
	}

	for _, d := range decisions {
		target := d.def.Condition.Target
		rec := p.Achievement(d.def.ID)
		if rec == nil {
			p.Achievements = append(p.Achievements, models.AchievementProgress{AchievementID: d.def.ID})
			rec = &p.Achievements[len(p.Achievements)-1]
		}
		rec.Category = d.def.Category
		rec.Target = target
		rec.Progress = math.Min(d.value, target)
		if d.complete {
			completedAt := now
			rec.Completed = true
			rec.CompletedAt = &completedAt
			res.Achievements = append(res.Achievements, d.def)
		}
	}

	return res
}
