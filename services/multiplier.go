package services

import (
	"math"
	"time"

	"studyhub-progression/models"
)

// FirstActivityBonus multiplies the first grant of each calendar day
const FirstActivityBonus = 1.5

// MultiplierSet composes a user's time-limited multipliers
type MultiplierSet struct {
	Entries []models.ActiveMultiplier
}

// Active returns the entries still live at now (expiresAt strictly after now).
func (m MultiplierSet) Active(now time.Time) []models.ActiveMultiplier {
	var live []models.ActiveMultiplier
	for _, e := range m.Entries {
		if e.ExpiresAt.After(now) {
			live = append(live, e)
		}
	}
	return live
}

// Prune drops expired entries in place and returns how many were removed.
func (m *MultiplierSet) Prune(now time.Time) int {
	live := m.Active(now)
	removed := len(m.Entries) - len(live)
	m.Entries = live
	return removed
}

// EffectiveMultiplier is the product of live entries, seeded at 1.0, times the
// first-activity bonus when firstOfDay is set.
func (m MultiplierSet) EffectiveMultiplier(now time.Time, firstOfDay bool) float64 {
	eff := 1.0
	for _, e := range m.Active(now) {
		eff *= e.Multiplier
	}
	if firstOfDay {
		eff *= FirstActivityBonus
	}
	return eff
}

// ApplyMultiplier returns floor(amount * multiplier), clamped to [0, MaxInt64].
func ApplyMultiplier(amount int64, multiplier float64) int64 {
	v := math.Floor(float64(amount)*multiplier + 1e-9)
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(v)
}

// addXP is a + b for non-negative XP counters, saturating at MaxInt64.
func addXP(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
