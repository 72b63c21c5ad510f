package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type quoteRefresherTestStub struct {
	calls *int32
	err   error
}

func (s *quoteRefresherTestStub) RefreshDailyBars(ctx context.Context) error {
	atomic.AddInt32(s.calls, 1)
	return s.err
}

func TestQuoteJobRunsAtLeastOnce(t *testing.T) {
	var calls int32
	refresher := &quoteRefresherTestStub{calls: &calls}
	j := NewQuoteJob(trace.NewNoopTracerProvider().Tracer("test"), refresher, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	if atomic.LoadInt32(&calls) == 0 {
		t.Fatal("expected at least one quote refresh")
	}
}

func TestQuoteJobKeepsPollingAfterError(t *testing.T) {
	var calls int32
	refresher := &quoteRefresherTestStub{calls: &calls, err: errors.New("provider down")}
	j := NewQuoteJob(trace.NewNoopTracerProvider().Tracer("test"), refresher, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	time.Sleep(70 * time.Millisecond)
	cancel()
	<-done

	if atomic.LoadInt32(&calls) < 2 {
		t.Fatalf("expected polling to continue after an error, got %d calls", atomic.LoadInt32(&calls))
	}
}

func TestQuoteJobWithoutRefresherWaitsForCancel(t *testing.T) {
	j := NewQuoteJob(trace.NewNoopTracerProvider().Tracer("test"), nil, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop after cancel")
	}
}
