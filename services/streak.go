package services

import (
	"time"

	"studyhub-progression/models"
)

// DayTransition classifies a grant's calendar day against the last active day.
// The streak and the first-activity-of-day bonus both read it, so they cannot disagree.
type DayTransition int

const (
	DayFirst     DayTransition = iota // no previous activity
	DaySame                           // same calendar day
	DayNext                           // exactly one day later
	DayGap                            // two or more days later
	DayBackwards                      // earlier than the last activity (clock skew)
)

// NewDay reports whether this is the first qualifying activity of a calendar day.
func (t DayTransition) NewDay() bool {
	return t == DayFirst || t == DayNext || t == DayGap
}

// calendarDay returns midnight UTC of t's civil date in loc.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts civil days from a to b in loc (DST safe).
func daysBetween(a, b time.Time, loc *time.Location) int {
	return int(calendarDay(b, loc).Sub(calendarDay(a, loc)).Hours() / 24)
}

// ClassifyDay compares now with the last activity date.
func ClassifyDay(last *time.Time, now time.Time, loc *time.Location) DayTransition {
	if last == nil || last.IsZero() {
		return DayFirst
	}
	switch diff := daysBetween(*last, now, loc); {
	case diff == 0:
		return DaySame
	case diff == 1:
		return DayNext
	case diff > 1:
		return DayGap
	default:
		return DayBackwards
	}
}

// StreakTracker applies day transitions to StreakData
type StreakTracker struct {
	Location *time.Location
}

func NewStreakTracker(loc *time.Location) *StreakTracker {
	if loc == nil {
		loc = time.Local
	}
	return &StreakTracker{Location: loc}
}

// Classify is ClassifyDay in the tracker's location.
func (t *StreakTracker) Classify(s models.StreakData, now time.Time) DayTransition {
	return ClassifyDay(s.LastActivityDate, now, t.Location)
}

// Apply updates the streak for one grant at now with an already computed transition.
func (t *StreakTracker) Apply(s *models.StreakData, tr DayTransition, now time.Time) {
	switch tr {
	case DaySame, DayBackwards:
		// counted already / never move the last day backwards
		return
	case DayFirst, DayGap:
		s.CurrentStreak = 1
		s.TotalActiveDays++
	case DayNext:
		s.CurrentStreak++
		s.TotalActiveDays++
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	day := now
	s.LastActivityDate = &day
}

// RecordPerfectDay counts a perfect day at most once per calendar day. Returns false if already counted.
func (t *StreakTracker) RecordPerfectDay(s *models.StreakData, now time.Time) bool {
	if s.LastPerfectDate != nil && daysBetween(*s.LastPerfectDate, now, t.Location) <= 0 {
		return false
	}
	s.PerfectDays++
	day := now
	s.LastPerfectDate = &day
	return true
}
