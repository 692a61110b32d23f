// handlers/progression_routes.go
package handlers

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"studyhub-progression/config"
	"studyhub-progression/middleware"
	"studyhub-progression/models"
	"studyhub-progression/services"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// grantResponse is the wire shape of every XP-granting call
type grantResponse struct {
	Success bool `json:"success"`
	*services.GrantResult
}

func newGrantResponse(res *services.GrantResult) grantResponse {
	if res.UnlockedBadges == nil {
		res.UnlockedBadges = []models.BadgeDefinition{}
	}
	if res.UnlockedAchievements == nil {
		res.UnlockedAchievements = []models.AchievementDefinition{}
	}
	return grantResponse{Success: true, GrantResult: res}
}

type xpSourceView struct {
	Source string `json:"source"`
	Label  string `json:"label"`
	XP     int64  `json:"xp"`
	Count  int64  `json:"count"`
}

func SetupProgressionRoutes(app *fiber.App, progression *services.ProgressionService, badges *services.BadgeService, ledger services.ActivityLedger, weights config.XPWeights) {
	// 🌍 Public (gateway-authenticated) routes
	app.Get("/definitions/badges", func(c *fiber.Ctx) error {
		return c.JSON(progression.Catalog.Current().Badges)
	})

	app.Get("/definitions/achievements", func(c *fiber.Ctx) error {
		return c.JSON(progression.Catalog.Current().Achievements)
	})

	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		entries, err := progression.TopUsers(c.UserContext(), limit)
		if err != nil {
			return respondError(c, err)
		}
		if entries == nil {
			entries = []services.LeaderboardEntry{}
		}
		return c.JSON(entries)
	})

	// 🔐 Secured routes: the gateway forwards /api/v1/progression/s/user/... -> /user/...
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Get("/user/progress", func(c *fiber.Ctx) error {
		prog, err := loadOrDefault(c, progression)
		if err != nil {
			return respondError(c, err)
		}

		now := time.Now()
		set := services.MultiplierSet{Entries: prog.ActiveMultipliers}
		active := set.Active(now)
		if active == nil {
			active = []models.ActiveMultiplier{}
		}
		completed := 0
		for _, a := range prog.Achievements {
			if a.Completed {
				completed++
			}
		}

		return c.JSON(fiber.Map{
			"id":                     prog.ID,
			"user_id":                prog.UserID,
			"current_level":          prog.CurrentLevel,
			"current_xp":             prog.CurrentXP,
			"total_xp_earned":        prog.TotalXPEarned,
			"level_progress":         services.LevelProgressFor(prog.CurrentXP),
			"xp_sources":             sourceViews(prog),
			"active_multipliers":     active,
			"base_multiplier":        set.EffectiveMultiplier(now, false),
			"streak":                 prog.Streak,
			"badges_unlocked":        len(prog.Badges),
			"achievements_completed": completed,
		})
	})

	securedGroup.Get("/user/progress/history", func(c *fiber.Ctx) error {
		prog, err := loadOrDefault(c, progression)
		if err != nil {
			return respondError(c, err)
		}
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 100 {
			size = 20
		}

		// newest first; pages past the end are empty
		total := len(prog.History)
		entries := make([]models.HistoryEntry, 0, size)
		if page-1 <= total/size {
			for i := total - 1 - (page-1)*size; i >= 0 && len(entries) < size; i-- {
				entries = append(entries, prog.History[i])
			}
		}
		return c.JSON(fiber.Map{
			"page":    page,
			"size":    size,
			"total":   total,
			"entries": entries,
		})
	})

	securedGroup.Get("/user/progress/badges", func(c *fiber.Ctx) error {
		prog, err := loadOrDefault(c, progression)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(badges.UserBadges(prog))
	})

	securedGroup.Get("/user/progress/achievements", func(c *fiber.Ctx) error {
		prog, err := loadOrDefault(c, progression)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(badges.UserAchievements(prog))
	})

	// 🛠️ Service-to-service routes (other StudyHub services report activity here)
	serviceGroup := app.Group("/s/progress")

	serviceGroup.Post("/xp", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
			Amount int64  `json:"amount"`
			Source string `json:"source"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}

		res, err := progression.GrantXP(c.UserContext(), req.UserID, req.Amount, req.Source)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(newGrantResponse(res))
	})

	serviceGroup.Post("/activity", func(c *fiber.Ctx) error {
		var ev models.ActivityEvent
		if err := c.BodyParser(&ev); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		if ev.OccurredAt.IsZero() {
			ev.OccurredAt = time.Now()
		}

		res, applied, err := progression.RecordActivity(c.UserContext(), ledger, weights, models.ActivityChannelPush, ev)
		if err != nil {
			return respondError(c, err)
		}
		if !applied || res == nil {
			// duplicate delivery, or an event that carries no XP
			return c.JSON(fiber.Map{
				"success":   true,
				"applied":   applied,
				"duplicate": !applied,
			})
		}
		return c.JSON(newGrantResponse(res))
	})
}

// loadOrDefault reads the caller's record; users who never earned XP get a
// level-1 view without a record being created.
func loadOrDefault(c *fiber.Ctx, progression *services.ProgressionService) (*models.UserProgression, error) {
	userID := middleware.UserID(c)
	prog, err := progression.GetProgression(c.UserContext(), userID)
	if errors.Is(err, services.ErrNotFound) {
		return models.NewUserProgression("", userID), nil
	}
	return prog, err
}

func sourceViews(p *models.UserProgression) []xpSourceView {
	views := make([]xpSourceView, 0, len(p.XPSources))
	for src, xp := range p.XPSources {
		views = append(views, xpSourceView{
			Source: src,
			Label:  sourceLabel(src),
			XP:     xp,
			Count:  p.ActivityCounts[src],
		})
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].XP != views[j].XP {
			return views[i].XP > views[j].XP
		}
		return views[i].Source < views[j].Source
	})
	return views
}

// sourceLabel turns a source tag into a display label: "focusSessions" -> "Focus Sessions".
func sourceLabel(tag string) string {
	var b strings.Builder
	for i, r := range tag {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
			continue
		case i > 0 && unicode.IsUpper(r):
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return cases.Title(language.English).String(b.String())
}
