package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"studyhub-progression/models"
	"studyhub-progression/utils"

	"github.com/google/uuid"
)

// AchievementRewardSource is the xpSources tag credited with achievement reward XP
const AchievementRewardSource = "achievements"

const maxSourceLength = 64

// MaxGrantAmount is the largest raw amount a single grant may request
const MaxGrantAmount int64 = 1_000_000

// errNoChange aborts a mutation without writing
var errNoChange = errors.New("no change")

// GrantResult is what a GrantXP call reports back to the HTTP layer
type GrantResult struct {
	XPGained             int64                          `json:"xpGained"`
	Level                int                            `json:"level"`
	TotalXP              int64                          `json:"totalXP"`
	Multiplier           float64                        `json:"multiplier"`
	LeveledUp            bool                           `json:"leveledUp"`
	NewLevel             int                            `json:"newLevel"`
	PreviousLevel        int                            `json:"previousLevel"`
	RewardXP             int64                          `json:"rewardXP"`
	UnlockedBadges       []models.BadgeDefinition       `json:"unlockedBadges"`
	UnlockedAchievements []models.AchievementDefinition `json:"unlockedAchievements"`

	Progression *models.UserProgression `json:"-"`
}

// ProgressionOptions tune a ProgressionService
type ProgressionOptions struct {
	Location    *time.Location // calendar-day boundary, defaults to time.Local
	MaxAttempts int            // full recomputes on write conflict, defaults to 3
	Leaderboard LeaderboardCache
	Now         func() time.Time
}

// ProgressionService is the only writer of UserProgression records.
type ProgressionService struct {
	Store       ProgressionStore
	Catalog     *DefinitionCatalog
	Leaderboard LeaderboardCache
	Streaks     *StreakTracker
	Evaluator   UnlockEvaluator
	MaxAttempts int

	log *utils.Logger
	now func() time.Time
}

func NewProgressionService(store ProgressionStore, catalog *DefinitionCatalog, log *utils.Logger, opts ProgressionOptions) *ProgressionService {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ProgressionService{
		Store:       store,
		Catalog:     catalog,
		Leaderboard: opts.Leaderboard,
		Streaks:     NewStreakTracker(opts.Location),
		MaxAttempts: opts.MaxAttempts,
		log:         log.With("service", "ProgressionService"),
		now:         opts.Now,
	}
}

// GrantXP applies one XP-granting activity for userID, creating the record on first use.
func (s *ProgressionService) GrantXP(ctx context.Context, userID string, amount int64, source string) (*GrantResult, error) {
	source = strings.TrimSpace(source)
	if err := validateGrant(userID, amount, source); err != nil {
		return nil, err
	}

	var result GrantResult
	prog, err := s.mutate(ctx, userID, true, func(p *models.UserProgression, now time.Time) error {
		result = s.applyGrant(p, amount, source, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Progression = prog

	s.log.Info("🎮 XP granted",
		"user_id", userID, "source", source, "requested", amount, "xp_gained", result.XPGained,
		"multiplier", result.Multiplier, "total_xp", result.TotalXP, "level", result.Level)
	s.logUnlocks(userID, result.UnlockedBadges, result.UnlockedAchievements)
	return &result, nil
}

func validateGrant(userID string, amount int64, source string) error {
	switch {
	case strings.TrimSpace(userID) == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidGrant)
	case amount <= 0:
		return fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidGrant, amount)
	case amount > MaxGrantAmount:
		return fmt.Errorf("%w: amount %d exceeds the %d limit", ErrInvalidGrant, amount, MaxGrantAmount)
	case source == "":
		return fmt.Errorf("%w: source is required", ErrInvalidGrant)
	case len(source) > maxSourceLength:
		return fmt.Errorf("%w: source longer than %d characters", ErrInvalidGrant, maxSourceLength)
	}
	return nil
}

// applyGrant runs steps 2-7 of a grant against p in memory.
func (s *ProgressionService) applyGrant(p *models.UserProgression, amount int64, source string, now time.Time) GrantResult {
	ensureMaps(p)
	oldLevel := LevelFromTotalXP(p.CurrentXP)

	transition := s.Streaks.Classify(p.Streak, now)

	set := MultiplierSet{Entries: p.ActiveMultipliers}
	set.Prune(now)
	p.ActiveMultipliers = set.Entries
	multiplier := set.EffectiveMultiplier(now, transition.NewDay())

	gained := ApplyMultiplier(amount, multiplier)
	p.CurrentXP = addXP(p.CurrentXP, gained)
	p.TotalXPEarned = addXP(p.TotalXPEarned, gained)
	p.XPSources[source] = addXP(p.XPSources[source], gained)
	p.ActivityCounts[source]++
	p.CurrentLevel = LevelFromTotalXP(p.CurrentXP)

	s.Streaks.Apply(&p.Streak, transition, now)

	p.AppendHistory(models.HistoryEntry{
		Timestamp:  now,
		Source:     source,
		XPGained:   gained,
		Multiplier: multiplier,
	})

	unlocked, rewardXP := s.evaluateAndReward(p, now)

	return GrantResult{
		XPGained:             gained,
		Level:                p.CurrentLevel,
		TotalXP:              p.TotalXPEarned,
		Multiplier:           multiplier,
		LeveledUp:            p.CurrentLevel > oldLevel,
		NewLevel:             p.CurrentLevel,
		PreviousLevel:        oldLevel,
		RewardXP:             rewardXP,
		UnlockedBadges:       unlocked.Badges,
		UnlockedAchievements: unlocked.Achievements,
	}
}

// evaluateAndReward runs a single unlock pass, then applies achievement rewards.
// A reward badge is unlocked directly; the evaluator is not re-run.
func (s *ProgressionService) evaluateAndReward(p *models.UserProgression, now time.Time) (EvaluationResult, int64) {
	defs := s.Catalog.Current()
	res := s.Evaluator.Evaluate(p, defs.Badges, defs.Achievements, now)

	var rewardXP int64
	for _, a := range res.Achievements {
		if a.Reward.XP > 0 {
			rewardXP = addXP(rewardXP, a.Reward.XP)
		}
		if a.Reward.BadgeID == "" || p.HasBadge(a.Reward.BadgeID) {
			continue
		}
		badge, ok := defs.Badge(a.Reward.BadgeID)
		if !ok {
			s.log.Warn("⚠️ reward badge not defined", "achievement_id", a.ID, "badge_id", a.Reward.BadgeID)
			continue
		}
		p.Badges = append(p.Badges, models.UnlockedBadge{
			BadgeID:    badge.ID,
			Rarity:     badge.Rarity,
			Category:   badge.Category,
			UnlockedAt: now,
		})
		res.Badges = append(res.Badges, badge)
	}

	if rewardXP > 0 {
		ensureMaps(p)
		p.CurrentXP = addXP(p.CurrentXP, rewardXP)
		p.TotalXPEarned = addXP(p.TotalXPEarned, rewardXP)
		p.XPSources[AchievementRewardSource] = addXP(p.XPSources[AchievementRewardSource], rewardXP)
		p.CurrentLevel = LevelFromTotalXP(p.CurrentXP)
		p.AppendHistory(models.HistoryEntry{
			Timestamp:  now,
			Source:     AchievementRewardSource,
			XPGained:   rewardXP,
			Multiplier: 1,
		})
	}
	return res, rewardXP
}

// GetProgression is the read-only lookup; it never creates a record.
func (s *ProgressionService) GetProgression(ctx context.Context, userID string) (*models.UserProgression, error) {
	return s.Store.LoadUserProgression(ctx, userID)
}

// EnsureProgression returns the user's record, creating it with defaults if absent.
func (s *ProgressionService) EnsureProgression(ctx context.Context, userID string) (*models.UserProgression, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidGrant)
	}
	return s.mutate(ctx, userID, true, func(p *models.UserProgression, _ time.Time) error {
		if p.Version != 0 {
			return errNoChange
		}
		return nil
	})
}

// AddMultiplier activates factor for duration. Expired entries are pruned on the same write.
func (s *ProgressionService) AddMultiplier(ctx context.Context, userID string, factor float64, source string, duration time.Duration) (*models.UserProgression, error) {
	source = strings.TrimSpace(source)
	switch {
	case strings.TrimSpace(userID) == "":
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidGrant)
	case factor <= 0 || math.IsInf(factor, 0) || math.IsNaN(factor):
		return nil, fmt.Errorf("%w: multiplier must be a positive number", ErrInvalidGrant)
	case duration <= 0:
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidGrant)
	case source == "" || len(source) > maxSourceLength:
		return nil, fmt.Errorf("%w: invalid multiplier source", ErrInvalidGrant)
	}

	prog, err := s.mutate(ctx, userID, true, func(p *models.UserProgression, now time.Time) error {
		set := MultiplierSet{Entries: p.ActiveMultipliers}
		set.Prune(now)
		set.Entries = append(set.Entries, models.ActiveMultiplier{
			Multiplier: factor,
			Source:     source,
			ExpiresAt:  now.Add(duration),
		})
		p.ActiveMultipliers = set.Entries
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("✨ multiplier activated", "user_id", userID, "multiplier", factor, "source", source, "duration", duration.String())
	return prog, nil
}

// UnlockBadge awards a badge out of band (hidden badges, staff awards). Returns false if already unlocked.
func (s *ProgressionService) UnlockBadge(ctx context.Context, userID, badgeID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, fmt.Errorf("%w: user id is required", ErrInvalidGrant)
	}
	badge, ok := s.Catalog.Current().Badge(badgeID)
	if !ok {
		return false, fmt.Errorf("%w: badge %q", ErrNotFound, badgeID)
	}

	unlocked := false
	_, err := s.mutate(ctx, userID, true, func(p *models.UserProgression, now time.Time) error {
		unlocked = false
		if p.HasBadge(badge.ID) {
			if p.Version != 0 {
				return errNoChange
			}
			return nil
		}
		p.Badges = append(p.Badges, models.UnlockedBadge{
			BadgeID:    badge.ID,
			Rarity:     badge.Rarity,
			Category:   badge.Category,
			UnlockedAt: now,
		})
		unlocked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if unlocked {
		s.logUnlocks(userID, []models.BadgeDefinition{badge}, nil)
	}
	return unlocked, nil
}

// RecordPerfectDay counts a perfect day (all daily goals met) at most once per
// calendar day, then runs an unlock pass so perfect_score definitions can fire.
func (s *ProgressionService) RecordPerfectDay(ctx context.Context, userID string) (*GrantResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidGrant)
	}

	var result GrantResult
	prog, err := s.mutate(ctx, userID, true, func(p *models.UserProgression, now time.Time) error {
		result = GrantResult{}
		ensureMaps(p)
		oldLevel := LevelFromTotalXP(p.CurrentXP)
		if !s.Streaks.RecordPerfectDay(&p.Streak, now) {
			result.Level, result.NewLevel, result.PreviousLevel = p.CurrentLevel, p.CurrentLevel, oldLevel
			result.TotalXP = p.TotalXPEarned
			return errNoChange
		}
		unlocked, rewardXP := s.evaluateAndReward(p, now)
		result = GrantResult{
			Level:                p.CurrentLevel,
			TotalXP:              p.TotalXPEarned,
			Multiplier:           1,
			LeveledUp:            p.CurrentLevel > oldLevel,
			NewLevel:             p.CurrentLevel,
			PreviousLevel:        oldLevel,
			RewardXP:             rewardXP,
			UnlockedBadges:       unlocked.Badges,
			UnlockedAchievements: unlocked.Achievements,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Progression = prog
	s.logUnlocks(userID, result.UnlockedBadges, result.UnlockedAchievements)
	return &result, nil
}

// mutate is the optimistic read-modify-write loop. fn sees a fresh copy of the
// stored record on every attempt; a conflict re-runs the whole computation.
func (s *ProgressionService) mutate(ctx context.Context, userID string, create bool, fn func(p *models.UserProgression, now time.Time) error) (*models.UserProgression, error) {
	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prog, err := s.Store.LoadUserProgression(ctx, userID)
		if errors.Is(err, ErrNotFound) && create {
			prog = models.NewUserProgression(uuid.NewString(), userID)
		} else if err != nil {
			return nil, err
		}

		if err := fn(prog, s.now()); err != nil {
			if errors.Is(err, errNoChange) {
				return prog, nil
			}
			return nil, err
		}

		err = s.Store.SaveUserProgression(ctx, prog)
		if errors.Is(err, ErrPersistenceConflict) {
			s.log.Debug("🔁 write conflict, recomputing", "user_id", userID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.publish(ctx, prog)
		return prog, nil
	}
	return nil, fmt.Errorf("%w: gave up on %s after %d attempts", ErrPersistenceConflict, userID, s.MaxAttempts)
}

// publish refreshes the leaderboard projection; the stored record stays the source of truth.
func (s *ProgressionService) publish(ctx context.Context, p *models.UserProgression) {
	if s.Leaderboard == nil {
		return
	}
	if err := s.Leaderboard.Record(ctx, LeaderboardEntryFor(p)); err != nil {
		s.log.Warn("⚠️ leaderboard update failed", "user_id", p.UserID, "error", err)
	}
}

func (s *ProgressionService) logUnlocks(userID string, badges []models.BadgeDefinition, achievements []models.AchievementDefinition) {
	for _, b := range badges {
		s.log.Info("🎖️ badge unlocked", "user_id", userID, "badge_id", b.ID, "rarity", b.Rarity)
	}
	for _, a := range achievements {
		s.log.Info("🏆 achievement completed", "user_id", userID, "achievement_id", a.ID)
	}
}

func ensureMaps(p *models.UserProgression) {
	if p.XPSources == nil {
		p.XPSources = map[string]int64{}
	}
	if p.ActivityCounts == nil {
		p.ActivityCounts = map[string]int64{}
	}
	if p.CurrentLevel < 1 {
		p.CurrentLevel = 1
	}
}
