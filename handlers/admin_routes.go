// handlers/admin_routes.go
package handlers

import (
	"errors"
	"time"

	"studyhub-progression/middleware"
	"studyhub-progression/services"

	"github.com/gofiber/fiber/v2"
)

// RoleAdmin is the gateway role allowed on /s/admin
const RoleAdmin = "admin"

func SetupAdminRoutes(app *fiber.App, progression *services.ProgressionService, badges *services.BadgeService) {
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole(RoleAdmin))

	adminGroup.Post("/multipliers", func(c *fiber.Ctx) error {
		type Req struct {
			UserID          string  `json:"user_id"`
			Multiplier      float64 `json:"multiplier"`
			Source          string  `json:"source"`
			DurationMinutes int64   `json:"duration_minutes"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}

		duration := time.Duration(req.DurationMinutes) * time.Minute
		prog, err := progression.AddMultiplier(c.UserContext(), req.UserID, req.Multiplier, req.Source, duration)
		if err != nil {
			return respondError(c, err)
		}
		set := services.MultiplierSet{Entries: prog.ActiveMultipliers}
		return c.JSON(fiber.Map{
			"success":            true,
			"user_id":            prog.UserID,
			"active_multipliers": prog.ActiveMultipliers,
			"base_multiplier":    set.EffectiveMultiplier(time.Now(), false),
		})
	})

	adminGroup.Post("/badges/:id/unlock", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}

		unlocked, err := progression.UnlockBadge(c.UserContext(), req.UserID, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"badge_id": c.Params("id"),
			"user_id":  req.UserID,
			"unlocked": unlocked,
		})
	})

	adminGroup.Post("/perfect-day", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}

		res, err := progression.RecordPerfectDay(c.UserContext(), req.UserID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(newGrantResponse(res))
	})

	adminGroup.Post("/badges/:id/icon", func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("icon")
		if err != nil {
			return badRequest(c, "icon file is required", err)
		}

		url, err := badges.UploadIcon(c.UserContext(), c.Params("id"), fileHeader)
		if errors.Is(err, services.ErrIconStorageDisabled) {
			return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"badge_id": c.Params("id"),
			"icon_url": url,
		})
	})

	adminGroup.Post("/definitions/reload", func(c *fiber.Ctx) error {
		if err := progression.Catalog.Reload(c.UserContext()); err != nil {
			return respondError(c, err)
		}
		defs := progression.Catalog.Current()
		return c.JSON(fiber.Map{
			"success":      true,
			"badges":       len(defs.Badges),
			"achievements": len(defs.Achievements),
		})
	})
}
