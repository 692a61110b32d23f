// services/scheduler.go
package services

import (
	"context"
	"time"

	"studyhub-progression/utils"

	"github.com/go-co-op/gocron/v2"
)

// LeaderboardRebuildSize is how many top records the rebuild job projects into the cache
const LeaderboardRebuildSize = 1000

// SchedulerOptions: zero intervals disable a job
type SchedulerOptions struct {
	DefinitionsRefresh time.Duration
	LeaderboardRebuild time.Duration
}

// StartScheduler runs the housekeeping jobs. Multiplier expiry is not one of
// them: expired multipliers are pruned lazily on the next write.
func StartScheduler(catalog *DefinitionCatalog, progression *ProgressionService, opts SchedulerOptions, log *utils.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	log = log.With("component", "Scheduler")

	if opts.DefinitionsRefresh > 0 {
		_, err = sched.NewJob(
			gocron.DurationJob(opts.DefinitionsRefresh),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := catalog.Reload(ctx); err != nil {
					log.Error("[Scheduler] definitions reload failed", "error", err)
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, err
		}
	}

	if opts.LeaderboardRebuild > 0 && progression.Leaderboard != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(opts.LeaderboardRebuild),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()
				if err := progression.RebuildLeaderboard(ctx, LeaderboardRebuildSize); err != nil {
					log.Error("[Scheduler] leaderboard rebuild failed", "error", err)
					return
				}
				log.Info("✅ leaderboard rebuilt")
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, err
		}
	}

	sched.Start()
	return sched, nil
}
