package job

import (
	"context"
	"time"

	"stockcast/internal/domain"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type ForecastRunner interface {
	RunForecastPass(ctx context.Context, now time.Time) (domain.RunResult, error)
}

type ForecastJob struct {
	tracer       trace.Tracer
	runner       ForecastRunner
	pollInterval time.Duration
}

func NewForecastJob(tracer trace.Tracer, runner ForecastRunner, pollInterval time.Duration) *ForecastJob {
	if pollInterval <= 0 {
		pollInterval = time.Hour
	}
	return &ForecastJob{tracer: tracer, runner: runner, pollInterval: pollInterval}
}

func (j *ForecastJob) Start(ctx context.Context) {
	if j.runner == nil {
		log.Warn().Msg("forecast job disabled: no runner")
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

func (j *ForecastJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "forecast-job.run-once")
	defer span.End()

	result, err := j.runner.RunForecastPass(ctx, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("forecast pass failed")
		return
	}
	log.Info().
		Str("run_id", result.RunID).
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("forecast pass complete")
}
