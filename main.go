package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"studyhub-progression/config"
	"studyhub-progression/handlers"
	"studyhub-progression/middleware"
	"studyhub-progression/services"
	"studyhub-progression/utils"
	"studyhub-progression/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// backend is what both store implementations provide
type backend interface {
	services.ProgressionStore
	services.ActivityLedger
	services.BadgeIconWriter
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		tmp, _ := utils.NewLogger("development")
		tmp.Fatal("❌ invalid configuration", "error", err)
	}

	logger, err := utils.NewLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg, logger)

	var objects *utils.R2Client
	if cfg.R2Enabled() {
		objects, err = utils.NewR2Client(ctx, utils.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2Bucket,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
		if err != nil {
			logger.Fatal("❌ failed to initialize R2 client", "error", err)
		}
	} else {
		logger.Warn("⚠️ R2 not configured, badge icon upload disabled")
	}

	catalog := services.NewDefinitionCatalog(store, logger)
	seed, err := services.LoadSeed(ctx, services.SeedSource{
		File:      cfg.SeedFile,
		ObjectKey: cfg.SeedObjectKey,
		Objects:   objects,
	})
	if err != nil {
		logger.Fatal("❌ failed to load definitions seed", "error", err)
	}
	if err := services.SeedDefinitions(ctx, store, catalog, seed); err != nil {
		logger.Fatal("❌ failed to seed definitions", "error", err)
	}

	opts := services.ProgressionOptions{
		Location:    cfg.Location,
		MaxAttempts: cfg.MaxAttempts,
	}
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("❌ invalid REDIS_URL", "error", err)
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("⚠️ redis unreachable, leaderboard falls back to the store", "error", err)
		}
		opts.Leaderboard = services.NewRedisLeaderboard(rdb, cfg.LeaderboardKey)
	}

	progressionService := services.NewProgressionService(store, catalog, logger, opts)
	badgeService := services.NewBadgeService(catalog, store, objects)

	scheduler, err := services.StartScheduler(catalog, progressionService, services.SchedulerOptions{
		DefinitionsRefresh: cfg.DefinitionsRefresh,
		LeaderboardRebuild: cfg.LeaderboardRebuild,
	}, logger)
	if err != nil {
		logger.Fatal("❌ failed to start scheduler", "error", err)
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Warn("⚠️ scheduler shutdown", "error", err)
		}
	}()

	if cfg.ActivityFeedURL != "" {
		workers.NewActivitySyncWorker(progressionService, store, cfg, logger).Start(ctx)
	} else {
		logger.Info("ACTIVITY_FEED_URL not set, activity sync worker disabled")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024, // badge icons
	})

	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Service-Token, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// 🔐❗ GLOBAL: Only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken, logger))

	handlers.SetupProgressionRoutes(app, progressionService, badgeService, store, cfg.Weights)
	handlers.SetupAdminRoutes(app, progressionService, badgeService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("❌ server error", "error", err)
			stop()
		}
	}()

	logger.Info("✅ progression service running", "port", cfg.Port, "store", cfg.StoreDriver, "origins", cfg.AllowedOrigins)

	<-ctx.Done()
	logger.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("⚠️ server shutdown", "error", err)
	}
}

func openStore(cfg *config.Config, logger *utils.Logger) backend {
	if cfg.StoreDriver == "memory" {
		logger.Warn("⚠️ using in-memory store, progress is lost on restart")
		return services.NewMemoryStore()
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("❌ failed to connect to database", "error", err)
	}
	store := services.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		logger.Fatal("❌ failed to migrate database", "error", err)
	}
	return store
}
