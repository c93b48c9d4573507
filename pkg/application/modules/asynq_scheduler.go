package modules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

type AsynqSchedule struct {
	Cronspec string
	Task     *asynq.Task
	Opts     []asynq.Option
}

// AsynqScheduler ставит периодические задачи в очередь asynq по cron.
type AsynqScheduler struct {
	RedisUsername string
	RedisPassword string
	RedisAddress  string
	RedisDB       int
	Location      *time.Location
}

func (s AsynqScheduler) Run(ctx context.Context, g *errgroup.Group, schedules ...AsynqSchedule) {
	g.Go(func() error {
		scheduler := asynq.NewScheduler(asynq.RedisClientOpt{
			Addr:     s.RedisAddress,
			Username: s.RedisUsername,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		}, &asynq.SchedulerOpts{
			Location: s.Location,
		})

		for _, sch := range schedules {
			entryID, err := scheduler.Register(sch.Cronspec, sch.Task, sch.Opts...)
			if err != nil {
				return fmt.Errorf("scheduler.Register %s: %w", sch.Task.Type(), err)
			}

			logger(ctx).Info("asynq task scheduled",
				slog.String("task", sch.Task.Type()),
				slog.String("cron", sch.Cronspec),
				slog.String("entry-id", entryID),
			)
		}

		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("scheduler.Start: %w", err)
		}

		<-ctx.Done()

		scheduler.Shutdown()

		logger(ctx).Info("asynq scheduler stopped", slog.Int("tasks", len(schedules)))

		return nil
	})
}
