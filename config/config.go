// Package config reads service settings from the environment (optionally seeded from .env).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// XPWeights define the raw XP per dashboard activity (before multipliers)
type XPWeights struct {
	FocusMinuteXP    int64
	CheckinXP        int64
	TaskXP           int64
	ProjectXP        int64
	CommunityPostXP  int64
	CommunityReplyXP int64
}

var DefaultXPWeights = XPWeights{
	FocusMinuteXP:    2,
	CheckinXP:        15,
	TaskXP:           10,
	ProjectXP:        100,
	CommunityPostXP:  20,
	CommunityReplyXP: 5,
}

type Config struct {
	Env            string
	Port           string
	DatabaseURL    string
	StoreDriver    string // "postgres" or "memory"
	GatewayToken   string
	AllowedOrigins []string

	Location    *time.Location // calendar-day boundary for streaks and the first-activity bonus
	MaxAttempts int            // full grant recomputes on write conflict

	RedisURL       string
	LeaderboardKey string

	SeedFile           string
	SeedObjectKey      string
	DefinitionsRefresh time.Duration
	LeaderboardRebuild time.Duration

	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2Bucket          string
	CDNBaseURL        string

	ActivityFeedURL      string
	ActivityFeedInterval time.Duration

	Weights XPWeights
}

// Load reads .env (if present) then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "5300"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		StoreDriver:          strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		GatewayToken:         firstNonEmpty(os.Getenv("GATEWAY_TOKEN"), os.Getenv("GAME_SERVICE_TOKEN")),
		AllowedOrigins:       splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		RedisURL:             os.Getenv("REDIS_URL"),
		LeaderboardKey:       getEnv("LEADERBOARD_KEY", "progression:leaderboard"),
		SeedFile:             os.Getenv("DEFINITIONS_SEED_FILE"),
		SeedObjectKey:        os.Getenv("DEFINITIONS_SEED_KEY"),
		R2AccountID:          os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKeyID:        os.Getenv("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret:    os.Getenv("R2_ACCESS_KEY_SECRET"),
		R2Bucket:             os.Getenv("R2_BUCKET_NAME"),
		CDNBaseURL:           os.Getenv("CDN_BASE_URL"),
		ActivityFeedURL:      os.Getenv("ACTIVITY_FEED_URL"),
		Weights:              DefaultXPWeights,
		MaxAttempts:          3,
		DefinitionsRefresh:   5 * time.Minute,
		LeaderboardRebuild:   15 * time.Minute,
		ActivityFeedInterval: 30 * time.Second,
	}

	var err error
	if cfg.Location, err = loadLocation(os.Getenv("PROGRESSION_TIMEZONE")); err != nil {
		return nil, err
	}
	if v := os.Getenv("PROGRESSION_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid PROGRESSION_MAX_ATTEMPTS %q", v)
		}
		cfg.MaxAttempts = n
	}
	for key, dst := range map[string]*time.Duration{
		"DEFINITIONS_REFRESH":    &cfg.DefinitionsRefresh,
		"LEADERBOARD_REBUILD":    &cfg.LeaderboardRebuild,
		"ACTIVITY_FEED_INTERVAL": &cfg.ActivityFeedInterval,
	} {
		if err := parseDuration(key, dst); err != nil {
			return nil, err
		}
	}
	for key, dst := range map[string]*int64{
		"XP_FOCUS_MINUTE":    &cfg.Weights.FocusMinuteXP,
		"XP_CHECKIN":         &cfg.Weights.CheckinXP,
		"XP_TASK":            &cfg.Weights.TaskXP,
		"XP_PROJECT":         &cfg.Weights.ProjectXP,
		"XP_COMMUNITY_POST":  &cfg.Weights.CommunityPostXP,
		"XP_COMMUNITY_REPLY": &cfg.Weights.CommunityReplyXP,
	} {
		if err := parseInt64(key, dst); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.GatewayToken == "" {
		return fmt.Errorf("GATEWAY_TOKEN (or GAME_SERVICE_TOKEN) environment variable not set")
	}
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable not set")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// R2Enabled reports whether object storage credentials are configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2Bucket != ""
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid PROGRESSION_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func parseDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}

func parseInt64(key string, dst *int64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid %s %q", key, v)
	}
	*dst = n
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
