package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cocinarte/internal/metrics"
	"cocinarte/internal/service"
)

type UpcomingSettler interface {
	SettleUpcoming(ctx context.Context, now time.Time, window time.Duration) ([]service.SettlementResult, error)
}

// HoldSettlementJob captures or releases holds for classes starting within the capture window
type HoldSettlementJob struct {
	settler  UpcomingSettler
	interval time.Duration
	window   time.Duration
	now      func() time.Time

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	running  sync.Mutex
}

func NewHoldSettlementJob(settler UpcomingSettler, interval, window time.Duration) *HoldSettlementJob {
	return &HoldSettlementJob{
		settler:  settler,
		interval: interval,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

func (j *HoldSettlementJob) Start(ctx context.Context) {
	slog.Info("Starting hold settlement job", "check_interval", j.interval, "capture_window", j.window)

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
				slog.Info("Hold settlement job stopped")
				return
			}
		}
	}()
}

func (j *HoldSettlementJob) Stop() {
	j.stopOnce.Do(func() {
		if j.ticker != nil {
			j.ticker.Stop()
		}
		close(j.done)
	})
}

// runOnce skips a tick while the previous pass is still running
func (j *HoldSettlementJob) runOnce(ctx context.Context) {
	if !j.running.TryLock() {
		slog.Warn("Previous hold settlement pass still running, skipping")
		return
	}
	defer j.running.Unlock()

	results, err := j.settler.SettleUpcoming(ctx, j.now(), j.window)
	if err != nil {
		metrics.JobRuns.WithLabelValues("hold_settlement", "error").Inc()
		slog.Error("Hold settlement pass failed", "error", err)
		return
	}

	if len(results) == 0 {
		slog.Debug("No classes to settle")
		return
	}

	for _, r := range results {
		metrics.JobRuns.WithLabelValues("hold_settlement", string(r.Decision)).Add(float64(r.Settled))
		metrics.JobRuns.WithLabelValues("hold_settlement", "failed").Add(float64(r.Failed))
	}
	slog.Info("Hold settlement pass finished", "classes", len(results))
}
