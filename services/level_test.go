package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredXPForLevel(t *testing.T) {
	assert.Equal(t, int64(100), RequiredXPForLevel(1))
	assert.Equal(t, int64(115), RequiredXPForLevel(2))
	assert.Equal(t, int64(132), RequiredXPForLevel(3))
	assert.Equal(t, int64(100), RequiredXPForLevel(0), "levels below 1 clamp to 1")
}

func TestCumulativeXPForLevel(t *testing.T) {
	assert.Equal(t, int64(0), CumulativeXPForLevel(1))
	assert.Equal(t, int64(100), CumulativeXPForLevel(2))
	assert.Equal(t, int64(215), CumulativeXPForLevel(3))
	assert.Equal(t, int64(347), CumulativeXPForLevel(4))
	assert.Equal(t, CumulativeXPForLevel(MaxLevel), CumulativeXPForLevel(MaxLevel+5))
}

func TestLevelFromTotalXP(t *testing.T) {
	cases := []struct {
		total int64
		level int
	}{
		{0, 1},
		{-10, 1},
		{99, 1},
		{100, 2},
		{150, 2},
		{214, 2},
		{215, 3},
		{347, 4},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, LevelFromTotalXP(tc.total), "total=%d", tc.total)
	}
}

func TestLevelFromTotalXP_ClampsAtMax(t *testing.T) {
	top := CumulativeXPForLevel(MaxLevel)
	assert.Equal(t, MaxLevel, LevelFromTotalXP(top))
	assert.Equal(t, MaxLevel, LevelFromTotalXP(top*10))
	assert.Equal(t, MaxLevel-1, LevelFromTotalXP(top-1))
}

func TestLevelFromTotalXP_Monotonic(t *testing.T) {
	prev := LevelFromTotalXP(0)
	for total := int64(0); total < 20000; total += 7 {
		lvl := LevelFromTotalXP(total)
		if lvl < prev {
			t.Fatalf("level dropped from %d to %d at total %d", prev, lvl, total)
		}
		prev = lvl
	}
}

func TestLevelProgressFor(t *testing.T) {
	p := LevelProgressFor(150)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, int64(50), p.XPIntoLevel)
	assert.Equal(t, int64(115), p.XPForNextLevel)
	assert.InDelta(t, 43.48, p.Percent, 0.001)

	top := LevelProgressFor(CumulativeXPForLevel(MaxLevel) + 42)
	assert.Equal(t, MaxLevel, top.Level)
	assert.Equal(t, int64(0), top.XPForNextLevel)
	assert.Equal(t, float64(100), top.Percent)
}
