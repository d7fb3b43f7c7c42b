package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basepark/smartpark/internal/service"
)

// stubSweeper counts sweep passes
type stubSweeper struct {
	calls  atomic.Int64
	result service.SweepResult
}

func (s *stubSweeper) Sweep(ctx context.Context) (*service.SweepResult, error) {
	s.calls.Add(1)
	out := s.result
	return &out, nil
}

func TestSweeperWorker_SweepsOnStartAndOnTick(t *testing.T) {
	sweeper := &stubSweeper{result: service.SweepResult{Expired: 2, Cancelled: 1, Notified: 1}}
	w := NewSweeperWorker(sweeper, &SweeperWorkerConfig{SweepInterval: 20 * time.Millisecond})

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond, "one sweep on start plus at least one tick")

	assert.Eventually(t, func() bool {
		stats := w.GetStats()
		return stats.TotalExpired >= 2 && stats.TotalCancelled >= 1 && stats.TotalNotified >= 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSweeperWorker_StopHaltsTicking(t *testing.T) {
	sweeper := &stubSweeper{}
	w := NewSweeperWorker(sweeper, &SweeperWorkerConfig{SweepInterval: 10 * time.Millisecond})

	require.NoError(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	w.Stop()
	after := sweeper.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, sweeper.calls.Load(), "no sweeps after Stop")
	assert.False(t, w.GetStats().IsRunning)
}

func TestSweeperWorker_StartTwice(t *testing.T) {
	w := NewSweeperWorker(&stubSweeper{}, nil)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}
