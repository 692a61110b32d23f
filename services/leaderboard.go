package services

import (
	"context"
	"encoding/json"
	"fmt"

	"studyhub-progression/models"

	"github.com/redis/go-redis/v9"
)

// LeaderboardEntry is the public ranking view of a persisted record
type LeaderboardEntry struct {
	UserID        string `json:"user_id"`
	Rank          int    `json:"rank"`
	CurrentLevel  int    `json:"current_level"`
	TotalXPEarned int64  `json:"total_xp_earned"`
	BadgeCount    int    `json:"badge_count"`
}

// LeaderboardEntryFor projects a record into its leaderboard row (Rank is filled on read).
func LeaderboardEntryFor(p *models.UserProgression) LeaderboardEntry {
	return LeaderboardEntry{
		UserID:        p.UserID,
		CurrentLevel:  p.CurrentLevel,
		TotalXPEarned: p.TotalXPEarned,
		BadgeCount:    len(p.Badges),
	}
}

// LeaderboardCache is a read-optimized projection refreshed after every save
type LeaderboardCache interface {
	Record(ctx context.Context, entry LeaderboardEntry) error
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	Rebuild(ctx context.Context, entries []LeaderboardEntry) error
}

// RedisLeaderboard keeps a sorted set (member user id, score lifetime XP)
// plus a hash of entry details.
//
// Keys: <key>:xp (zset), <key>:info (hash)
type RedisLeaderboard struct {
	client *redis.Client
	key    string
}

func NewRedisLeaderboard(client *redis.Client, key string) *RedisLeaderboard {
	return &RedisLeaderboard{client: client, key: key}
}

func (l *RedisLeaderboard) xpKey() string   { return l.key + ":xp" }
func (l *RedisLeaderboard) infoKey() string { return l.key + ":info" }

func (l *RedisLeaderboard) Record(ctx context.Context, entry LeaderboardEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal leaderboard entry: %w", err)
	}
	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, l.xpKey(), redis.Z{Score: float64(entry.TotalXPEarned), Member: entry.UserID})
	pipe.HSet(ctx, l.infoKey(), entry.UserID, data)
	_, err = pipe.Exec(ctx)
	return err
}

func (l *RedisLeaderboard) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := l.client.ZRevRange(ctx, l.xpKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	raw, err := l.client.HMGet(ctx, l.infoKey(), ids...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(ids))
	for i, id := range ids {
		entry := LeaderboardEntry{UserID: id}
		if s, ok := raw[i].(string); ok {
			if err := json.Unmarshal([]byte(s), &entry); err != nil {
				return nil, fmt.Errorf("decode leaderboard entry %s: %w", id, err)
			}
		}
		entry.Rank = i + 1
		entries = append(entries, entry)
	}
	return entries, nil
}

// Rebuild replaces the projection with entries read from the store.
func (l *RedisLeaderboard) Rebuild(ctx context.Context, entries []LeaderboardEntry) error {
	pipe := l.client.TxPipeline()
	pipe.Del(ctx, l.xpKey(), l.infoKey())
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal leaderboard entry: %w", err)
		}
		pipe.ZAdd(ctx, l.xpKey(), redis.Z{Score: float64(e.TotalXPEarned), Member: e.UserID})
		pipe.HSet(ctx, l.infoKey(), e.UserID, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// TopUsers returns the top users, from the cache when it has data and from
// the store otherwise.
func (s *ProgressionService) TopUsers(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if s.Leaderboard != nil {
		entries, err := s.Leaderboard.Top(ctx, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			s.log.Warn("⚠️ leaderboard cache read failed, using store", "error", err)
		}
	}
	return s.leaderboardFromStore(ctx, limit)
}

func (s *ProgressionService) leaderboardFromStore(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	src, ok := s.Store.(LeaderboardSource)
	if !ok {
		return nil, nil
	}
	rows, err := src.TopProgressions(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, len(rows))
	for i := range rows {
		entries[i] = LeaderboardEntryFor(&rows[i])
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// RebuildLeaderboard reloads the cache projection from persisted records.
func (s *ProgressionService) RebuildLeaderboard(ctx context.Context, size int) error {
	if s.Leaderboard == nil {
		return nil
	}
	src, ok := s.Store.(LeaderboardSource)
	if !ok {
		return nil
	}
	rows, err := src.TopProgressions(ctx, size)
	if err != nil {
		return err
	}
	entries := make([]LeaderboardEntry, len(rows))
	for i := range rows {
		entries[i] = LeaderboardEntryFor(&rows[i])
	}
	return s.Leaderboard.Rebuild(ctx, entries)
}
