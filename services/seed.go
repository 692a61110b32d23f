package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"studyhub-progression/models"
	"studyhub-progression/utils"

	"github.com/gosimple/slug"
)

// DefinitionSeed is the JSON seed format: {"badges": [...], "achievements": [...]}
type DefinitionSeed struct {
	Badges       []models.BadgeDefinition       `json:"badges"`
	Achievements []models.AchievementDefinition `json:"achievements"`
}

// DefaultSeed returns the built-in definitions.
func DefaultSeed() DefinitionSeed {
	return DefinitionSeed{
		Badges:       append([]models.BadgeDefinition(nil), models.DefaultBadges...),
		Achievements: append([]models.AchievementDefinition(nil), models.DefaultAchievements...),
	}
}

// ParseSeed decodes a seed document. Call Normalize before use.
func ParseSeed(r io.Reader) (DefinitionSeed, error) {
	var seed DefinitionSeed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return seed, fmt.Errorf("decode definitions seed: %w", err)
	}
	return seed, nil
}

// Normalize fills missing ids from names and rejects duplicates.
func (d *DefinitionSeed) Normalize() error {
	seen := map[string]bool{}
	for i := range d.Badges {
		b := &d.Badges[i]
		if b.ID == "" {
			b.ID = slug.Make(b.Name)
		}
		if b.ID == "" {
			return fmt.Errorf("badge %d has neither id nor name", i)
		}
		if seen[b.ID] {
			return fmt.Errorf("duplicate badge id %q", b.ID)
		}
		if b.Rarity == "" {
			b.Rarity = "common"
		}
		seen[b.ID] = true
	}
	seen = map[string]bool{}
	for i := range d.Achievements {
		a := &d.Achievements[i]
		if a.ID == "" {
			a.ID = slug.Make(a.Name)
		}
		if a.ID == "" {
			return fmt.Errorf("achievement %d has neither id nor name", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate achievement id %q", a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

// SeedSource says where definitions come from; the first configured wins.
type SeedSource struct {
	File      string // local JSON file
	ObjectKey string // R2/S3 object key
	Objects   *utils.R2Client
}

// LoadSeed reads the configured seed, falling back to the built-in definitions.
func LoadSeed(ctx context.Context, src SeedSource) (DefinitionSeed, error) {
	var (
		seed DefinitionSeed
		err  error
	)
	switch {
	case src.File != "":
		var f *os.File
		if f, err = os.Open(src.File); err != nil {
			return seed, fmt.Errorf("open definitions seed: %w", err)
		}
		defer f.Close()
		seed, err = ParseSeed(f)
	case src.ObjectKey != "" && src.Objects != nil:
		var body io.ReadCloser
		if body, err = src.Objects.Download(ctx, src.ObjectKey); err != nil {
			return seed, err
		}
		defer body.Close()
		seed, err = ParseSeed(body)
	default:
		seed = DefaultSeed()
	}
	if err != nil {
		return seed, err
	}
	return seed, seed.Normalize()
}

// SeedDefinitions writes seed into store (when it accepts writes) and reloads the catalog.
func SeedDefinitions(ctx context.Context, store ProgressionStore, catalog *DefinitionCatalog, seed DefinitionSeed) error {
	if w, ok := store.(DefinitionWriter); ok {
		if err := w.UpsertDefinitions(ctx, seed.Badges, seed.Achievements); err != nil {
			return err
		}
	}
	return catalog.Reload(ctx)
}
