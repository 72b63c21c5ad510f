package job

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type QuoteRefresher interface {
	RefreshDailyBars(ctx context.Context) error
}

// QuoteJob keeps the daily close history fresh so the forecast and
// accuracy passes always see recent bars.
type QuoteJob struct {
	tracer       trace.Tracer
	refresher    QuoteRefresher
	pollInterval time.Duration
}

func NewQuoteJob(tracer trace.Tracer, refresher QuoteRefresher, pollInterval time.Duration) *QuoteJob {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Minute
	}
	return &QuoteJob{tracer: tracer, refresher: refresher, pollInterval: pollInterval}
}

func (j *QuoteJob) Start(ctx context.Context) {
	if j.refresher == nil {
		log.Warn().Msg("quote job disabled: no refresher")
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

func (j *QuoteJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "quote-job.run-once")
	defer span.End()

	if err := j.refresher.RefreshDailyBars(ctx); err != nil {
		log.Error().Err(err).Msg("quote refresh failed")
	}
}
