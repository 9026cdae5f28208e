package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CronJob is a named maintenance task run on a cron schedule.
type CronJob struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context)
}

// RunCron schedules jobs and blocks until ctx is canceled. Overlapping runs of
// the same job are skipped rather than queued.
func RunCron(ctx context.Context, logger *zerolog.Logger, jobs ...CronJob) error {
	logger = getLogger(logger)

	c := cron.New(
		cron.WithLogger(cronLogger{logger: logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: logger})),
	)

	for _, job := range jobs {
		if _, err := c.AddFunc(job.Schedule, func() {
			defer RecoverPanic(logger, job.Name)

			logger.Debug().Str("task", job.Name).Msg("cron job fired")
			job.Run(ctx)
		}); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Schedule, err)
		}

		logger.Info().Str("task", job.Name).Str("schedule", job.Schedule).Msg("cron job scheduled")
	}

	c.Start()

	<-ctx.Done()

	<-c.Stop().Done()

	return fmt.Errorf("cron scheduler: %w", ctx.Err())
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
