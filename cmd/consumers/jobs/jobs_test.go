package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cocinarte/internal/metrics"
	"cocinarte/internal/service"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSettler struct {
	mu      sync.Mutex
	calls   int
	windows []time.Duration
	results []service.SettlementResult
	err     error
}

func (s *stubSettler) SettleUpcoming(_ context.Context, _ time.Time, window time.Duration) ([]service.SettlementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.windows = append(s.windows, window)
	return s.results, s.err
}

func (s *stubSettler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestHoldSettlementCountsOutcomes(t *testing.T) {
	settler := &stubSettler{results: []service.SettlementResult{
		{ClassID: 1, Decision: service.DecisionCapture, Settled: 3},
		{ClassID: 2, Decision: service.DecisionRelease, Settled: 1, Failed: 1},
	}}
	job := NewHoldSettlementJob(settler, time.Hour, 48*time.Hour)

	captured := testutil.ToFloat64(metrics.JobRuns.WithLabelValues("hold_settlement", "capture"))
	failed := testutil.ToFloat64(metrics.JobRuns.WithLabelValues("hold_settlement", "failed"))

	job.runOnce(context.Background())

	assert.Equal(t, []time.Duration{48 * time.Hour}, settler.windows)
	assert.Equal(t, captured+3, testutil.ToFloat64(metrics.JobRuns.WithLabelValues("hold_settlement", "capture")))
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.JobRuns.WithLabelValues("hold_settlement", "failed")))
}

func TestHoldSettlementError(t *testing.T) {
	job := NewHoldSettlementJob(&stubSettler{err: errors.New("db down")}, time.Hour, time.Hour)
	before := testutil.ToFloat64(metrics.JobRuns.WithLabelValues("hold_settlement", "error"))

	job.runOnce(context.Background())

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.JobRuns.WithLabelValues("hold_settlement", "error")))
}

func TestHoldSettlementStartStop(t *testing.T) {
	settler := &stubSettler{}
	job := NewHoldSettlementJob(settler, 10*time.Millisecond, time.Hour)

	job.Start(context.Background())
	require.Eventually(t, func() bool { return settler.count() >= 2 }, time.Second, 5*time.Millisecond)
	job.Stop()
	job.Stop()
}

type stubReleaser struct {
	ttl    time.Duration
	result *service.AbandonedResult
	err    error
}

func (s *stubReleaser) ReleaseAbandoned(_ context.Context, _ time.Time, ttl time.Duration) (*service.AbandonedResult, error) {
	s.ttl = ttl
	return s.result, s.err
}

func TestAbandonedHoldSweep(t *testing.T) {
	releaser := &stubReleaser{result: &service.AbandonedResult{Canceled: 2, Expired: 1, Reconciled: 1}}
	job := NewAbandonedHoldJob(releaser, time.Minute, time.Hour)
	before := testutil.ToFloat64(metrics.JobRuns.WithLabelValues("abandoned_holds", "canceled"))

	job.runOnce(context.Background())

	assert.Equal(t, time.Hour, releaser.ttl)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.JobRuns.WithLabelValues("abandoned_holds", "canceled")))
}

func TestAbandonedHoldSweepError(t *testing.T) {
	job := NewAbandonedHoldJob(&stubReleaser{err: errors.New("db down")}, time.Minute, time.Hour)
	before := testutil.ToFloat64(metrics.JobRuns.WithLabelValues("abandoned_holds", "error"))

	job.runOnce(context.Background())

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.JobRuns.WithLabelValues("abandoned_holds", "error")))
}
