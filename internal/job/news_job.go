package job

import (
	"context"
	"time"

	"stockcast/internal/domain"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type NewsRunner interface {
	RunCycle(ctx context.Context, now time.Time) (domain.NewsRunResult, error)
}

type NewsJob struct {
	tracer       trace.Tracer
	runner       NewsRunner
	pollInterval time.Duration
}

func NewNewsJob(tracer trace.Tracer, runner NewsRunner, pollInterval time.Duration) *NewsJob {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Minute
	}
	return &NewsJob{tracer: tracer, runner: runner, pollInterval: pollInterval}
}

func (j *NewsJob) Start(ctx context.Context) {
	if j.runner == nil {
		log.Warn().Msg("news job disabled: no runner")
		<-ctx.Done()
		return
	}

	j.runOnce(ctx)
	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *NewsJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "news-job.run-once")
	defer span.End()

	result, err := j.runner.RunCycle(ctx, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("news cycle failed")
		return
	}
	if result.ItemsIngested > 0 || result.ItemsScored > 0 || len(result.Errors) > 0 {
		log.Info().
			Int("ingested", result.ItemsIngested).
			Int("scored", result.ItemsScored).
			Int("warnings", len(result.Errors)).
			Msg("news cycle complete")
	}
}
