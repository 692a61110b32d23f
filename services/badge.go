package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"studyhub-progression/models"
	"studyhub-progression/utils"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrIconStorageDisabled is returned by UploadIcon when R2 is not configured
var ErrIconStorageDisabled = errors.New("badge icon storage is not configured")

// BadgeIconWriter is implemented by stores that keep definition icon URLs.
type BadgeIconWriter interface {
	SetBadgeIcon(ctx context.Context, badgeID, url string) error
}

// BadgeView is a badge definition merged with one user's unlock state
type BadgeView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IconURL     string     `json:"icon_url,omitempty"`
	Category    string     `json:"category"`
	Rarity      string     `json:"rarity"`
	RarityLabel string     `json:"rarity_label"`
	Hidden      bool       `json:"hidden"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// AchievementView is an achievement definition merged with one user's progress
type AchievementView struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	Description   string                   `json:"description"`
	IconURL       string                   `json:"icon_url,omitempty"`
	Category      string                   `json:"category"`
	CategoryLabel string                   `json:"category_label"`
	Hidden        bool                     `json:"hidden"`
	Progress      float64                  `json:"progress"`
	Target        float64                  `json:"target"`
	Percent       float64                  `json:"percent"`
	Completed     bool                     `json:"completed"`
	CompletedAt   *time.Time               `json:"completed_at,omitempty"`
	Reward        models.AchievementReward `json:"reward"`
}

// BadgeService presents definitions to users and manages badge artwork.
type BadgeService struct {
	Catalog *DefinitionCatalog
	Icons   BadgeIconWriter // nil when the store cannot persist icons
	Objects *utils.R2Client // nil when R2 is not configured
}

func NewBadgeService(catalog *DefinitionCatalog, icons BadgeIconWriter, objects *utils.R2Client) *BadgeService {
	return &BadgeService{
		Catalog: catalog,
		Icons:   icons,
		Objects: objects,
	}
}

// UserBadges lists every badge with p's unlock state. Locked hidden badges are masked.
func (s *BadgeService) UserBadges(p *models.UserProgression) []BadgeView {
	unlocked := make(map[string]models.UnlockedBadge, len(p.Badges))
	for _, b := range p.Badges {
		unlocked[b.BadgeID] = b
	}

	title := cases.Title(language.English)
	defs := s.Catalog.Current().Badges
	views := make([]BadgeView, 0, len(defs))
	for _, d := range defs {
		v := BadgeView{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			IconURL:     d.IconURL,
			Category:    d.Category,
			Rarity:      d.Rarity,
			RarityLabel: title.String(d.Rarity),
			Hidden:      d.Condition.Type == models.ConditionHidden,
		}
		if u, ok := unlocked[d.ID]; ok {
			at := u.UnlockedAt
			v.Unlocked, v.UnlockedAt = true, &at
		} else if v.Hidden {
			v.Name, v.Description, v.IconURL = "???", "Keep exploring to discover this badge", ""
		}
		views = append(views, v)
	}
	return views
}

// UserAchievements lists every achievement with p's progress ("X / Y").
// Hidden achievements stay masked until completed.
func (s *BadgeService) UserAchievements(p *models.UserProgression) []AchievementView {
	title := cases.Title(language.English)
	defs := s.Catalog.Current().Achievements
	views := make([]AchievementView, 0, len(defs))
	for _, d := range defs {
		v := AchievementView{
			ID:            d.ID,
			Name:          d.Name,
			Description:   d.Description,
			IconURL:       d.IconURL,
			Category:      d.Category,
			CategoryLabel: title.String(d.Category),
			Target:        d.Condition.Target,
			Reward:        d.Reward,
			Hidden:        d.Condition.Type == models.ConditionHidden,
		}
		if rec := p.Achievement(d.ID); rec != nil {
			v.Progress, v.Completed, v.CompletedAt = rec.Progress, rec.Completed, rec.CompletedAt
		}
		if v.Hidden && !v.Completed {
			v.Name, v.Description, v.IconURL = "???", "Keep exploring to discover this achievement", ""
			v.Reward = models.AchievementReward{}
		}
		if v.Target > 0 {
			v.Percent = float64(int(v.Progress/v.Target*10000)) / 100
		}
		views = append(views, v)
	}
	return views
}

var allowedIconExt = map[string]bool{".png": true, ".svg": true, ".webp": true, ".jpg": true, ".jpeg": true}

// UploadIcon stores new artwork for a badge in R2 and points the definition at it.
func (s *BadgeService) UploadIcon(ctx context.Context, badgeID string, fileHeader *multipart.FileHeader) (string, error) {
	if s.Objects == nil || s.Icons == nil {
		return "", ErrIconStorageDisabled
	}
	if _, ok := s.Catalog.Current().Badge(badgeID); !ok {
		return "", fmt.Errorf("%w: badge %q", ErrNotFound, badgeID)
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedIconExt[ext] {
		return "", fmt.Errorf("%w: unsupported icon type %q", ErrInvalidGrant, ext)
	}

	key := fmt.Sprintf("badges/%s-%d%s", badgeID, time.Now().Unix(), ext)
	url, err := s.Objects.UploadFile(ctx, fileHeader, key)
	if err != nil {
		return "", err
	}
	if err := s.Icons.SetBadgeIcon(ctx, badgeID, url); err != nil {
		return "", err
	}
	return url, s.Catalog.Reload(ctx)
}
