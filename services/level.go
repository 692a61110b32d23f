package services

import "math"

// Level curve: XP to advance from level n to n+1 is floor(BaseXPPerLevel * LevelGrowth^(n-1)).
const (
	BaseXPPerLevel = 100
	LevelGrowth    = 1.15
	MaxLevel       = 100
)

// levelThresholds[n] = cumulative XP needed to reach level n (index 0 unused, [1] = 0)
var levelThresholds = buildLevelThresholds()

func buildLevelThresholds() [MaxLevel + 1]int64 {
	var t [MaxLevel + 1]int64
	for n := 2; n <= MaxLevel; n++ {
		t[n] = t[n-1] + RequiredXPForLevel(n-1)
	}
	return t
}

// RequiredXPForLevel returns the XP needed to go from level n to n+1.
// The epsilon keeps products like 100*1.15 from flooring to 114.
func RequiredXPForLevel(n int) int64 {
	if n < 1 {
		n = 1
	}
	return int64(math.Floor(BaseXPPerLevel*math.Pow(LevelGrowth, float64(n-1)) + 1e-9))
}

// CumulativeXPForLevel returns the lifetime XP at which level n is reached.
func CumulativeXPForLevel(n int) int64 {
	if n <= 1 {
		return 0
	}
	if n > MaxLevel {
		n = MaxLevel
	}
	return levelThresholds[n]
}

// LevelFromTotalXP returns the last level fully reached with total lifetime XP, clamped to [1, MaxLevel].
func LevelFromTotalXP(total int64) int {
	level := 1
	for level < MaxLevel && total >= levelThresholds[level+1] {
		level++
	}
	return level
}

// LevelProgress is the "X / Y to next level" view of a cumulative XP total
type LevelProgress struct {
	Level          int     `json:"level"`
	XPIntoLevel    int64   `json:"xp_into_level"`
	XPForNextLevel int64   `json:"xp_for_next_level"` // 0 at MaxLevel
	Percent        float64 `json:"percent"`
}

func LevelProgressFor(total int64) LevelProgress {
	if total < 0 {
		total = 0
	}
	level := LevelFromTotalXP(total)
	p := LevelProgress{Level: level, XPIntoLevel: total - CumulativeXPForLevel(level)}
	if level >= MaxLevel {
		p.Percent = 100
		return p
	}
	p.XPForNextLevel = RequiredXPForLevel(level)
	p.Percent = math.Round(float64(p.XPIntoLevel)/float64(p.XPForNextLevel)*10000) / 100
	return p
}
