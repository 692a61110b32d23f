package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"studyhub-progression/models"
)

// MemoryStore is an in-process ProgressionStore (STORE_DRIVER=memory, tests).
// It keeps deep copies so callers can never mutate stored state in place.
type MemoryStore struct {
	mu           sync.RWMutex
	records      map[string]*models.UserProgression
	badges       map[string]models.BadgeDefinition
	achievements map[string]models.AchievementDefinition
	activities   map[string]models.ProcessedActivity
	icons        map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:      make(map[string]*models.UserProgression),
		badges:       make(map[string]models.BadgeDefinition),
		achievements: make(map[string]models.AchievementDefinition),
		activities:   make(map[string]models.ProcessedActivity),
		icons:        make(map[string]string),
	}
}

func (s *MemoryStore) LoadUserProgression(_ context.Context, userID string) (*models.UserProgression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) SaveUserProgression(_ context.Context, p *models.UserProgression) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.records[p.UserID]
	switch {
	case p.Version == 0 && exists:
		return fmt.Errorf("%w: record for %s created concurrently", ErrPersistenceConflict, p.UserID)
	case p.Version != 0 && (!exists || current.Version != p.Version):
		return fmt.Errorf("%w: %s changed since version %d", ErrPersistenceConflict, p.UserID, p.Version)
	}
	p.Version++
	s.records[p.UserID] = p.Clone()
	return nil
}

func (s *MemoryStore) ListBadgeDefinitions(context.Context) ([]models.BadgeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.BadgeDefinition, 0, len(s.badges))
	for _, d := range s.badges {
		if icon, ok := s.icons[d.ID]; ok {
			d.IconURL = icon
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListAchievementDefinitions(context.Context) ([]models.AchievementDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AchievementDefinition, 0, len(s.achievements))
	for _, d := range s.achievements {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpsertDefinitions(_ context.Context, badges []models.BadgeDefinition, achievements []models.AchievementDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range badges {
		s.badges[b.ID] = b
	}
	for _, a := range achievements {
		s.achievements[a.ID] = a
	}
	return nil
}

func (s *MemoryStore) SetBadgeIcon(_ context.Context, badgeID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.badges[badgeID]; !ok {
		return ErrNotFound
	}
	s.icons[badgeID] = url
	return nil
}

func (s *MemoryStore) TopProgressions(_ context.Context, limit int) ([]models.UserProgression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]models.UserProgression, 0, len(s.records))
	for _, r := range s.records {
		rows = append(rows, *r.Clone())
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalXPEarned != rows[j].TotalXPEarned {
			return rows[i].TotalXPEarned > rows[j].TotalXPEarned
		}
		return rows[i].UserID < rows[j].UserID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *MemoryStore) MarkActivityProcessed(_ context.Context, marker *models.ProcessedActivity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[marker.EventID]; ok {
		return false, nil
	}
	s.activities[marker.EventID] = *marker
	return true, nil
}

func (s *MemoryStore) UnmarkActivity(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activities, eventID)
	return nil
}

func (s *MemoryStore) LastProcessedActivity(_ context.Context, channel string) (models.ProcessedActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last models.ProcessedActivity
	for _, a := range s.activities {
		if a.Channel == channel && a.OccurredAt.After(last.OccurredAt) {
			last = a
		}
	}
	return last, nil
}
