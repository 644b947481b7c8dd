package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cocinarte/internal/metrics"
	"cocinarte/internal/service"
)

type AbandonedReleaser interface {
	ReleaseAbandoned(ctx context.Context, now time.Time, ttl time.Duration) (*service.AbandonedResult, error)
}

// AbandonedHoldJob cancels holds whose customer never confirmed the card within ttl
type AbandonedHoldJob struct {
	releaser AbandonedReleaser
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	running  sync.Mutex
}

func NewAbandonedHoldJob(releaser AbandonedReleaser, interval, ttl time.Duration) *AbandonedHoldJob {
	return &AbandonedHoldJob{
		releaser: releaser,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

func (j *AbandonedHoldJob) Start(ctx context.Context) {
	slog.Info("Starting abandoned hold job", "check_interval", j.interval, "ttl", j.ttl)

	j.ticker = time.NewTicker(j.interval)

	go j.runOnce(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.runOnce(ctx)
			case <-ctx.Done():
				return
			case <-j.done:
				slog.Info("Abandoned hold job stopped")
				return
			}
		}
	}()
}

func (j *AbandonedHoldJob) Stop() {
	j.stopOnce.Do(func() {
		if j.ticker != nil {
			j.ticker.Stop()
		}
		close(j.done)
	})
}

func (j *AbandonedHoldJob) runOnce(ctx context.Context) {
	if !j.running.TryLock() {
		return
	}
	defer j.running.Unlock()

	result, err := j.releaser.ReleaseAbandoned(ctx, j.now(), j.ttl)
	if err != nil {
		metrics.JobRuns.WithLabelValues("abandoned_holds", "error").Inc()
		slog.Error("Abandoned hold sweep failed", "error", err)
		return
	}

	metrics.JobRuns.WithLabelValues("abandoned_holds", "canceled").Add(float64(result.Canceled))
	metrics.JobRuns.WithLabelValues("abandoned_holds", "expired").Add(float64(result.Expired))
	metrics.JobRuns.WithLabelValues("abandoned_holds", "reconciled").Add(float64(result.Reconciled))
	metrics.JobRuns.WithLabelValues("abandoned_holds", "failed").Add(float64(result.Failed))

	if total := result.Canceled + result.Expired + result.Reconciled + result.Failed; total > 0 {
		slog.Info("Abandoned hold sweep finished",
			"canceled", result.Canceled,
			"expired", result.Expired,
			"reconciled", result.Reconciled,
			"failed", result.Failed)
	}
}
