package job

import (
	"context"
	"time"

	"stockcast/internal/domain"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type AccuracyRunner interface {
	RunAccuracyPass(ctx context.Context, now time.Time) (domain.RunResult, error)
}

type AccuracyJob struct {
	tracer       trace.Tracer
	runner       AccuracyRunner
	pollInterval time.Duration
}

func NewAccuracyJob(tracer trace.Tracer, runner AccuracyRunner, pollInterval time.Duration) *AccuracyJob {
	if pollInterval <= 0 {
		pollInterval = time.Hour
	}
	return &AccuracyJob{tracer: tracer, runner: runner, pollInterval: pollInterval}
}

func (j *AccuracyJob) Start(ctx context.Context) {
	if j.runner == nil {
		log.Warn().Msg("accuracy job disabled: no runner")
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

func (j *AccuracyJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "accuracy-job.run-once")
	defer span.End()

	result, err := j.runner.RunAccuracyPass(ctx, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("accuracy pass failed")
		return
	}
	log.Info().
		Str("run_id", result.RunID).
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("accuracy pass complete")
}
