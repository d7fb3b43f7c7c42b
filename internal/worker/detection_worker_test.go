package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/internal/dto"
)

// stubArbitrator records processed events and signals on each one
type stubArbitrator struct {
	mu        sync.Mutex
	processed []*domain.DetectionEvent
	signal    chan struct{}
}

func newStubArbitrator() *stubArbitrator {
	return &stubArbitrator{signal: make(chan struct{}, 64)}
}

func (s *stubArbitrator) ProcessDetection(ctx context.Context, event *domain.DetectionEvent) (*domain.DetectionResult, error) {
	s.mu.Lock()
	s.processed = append(s.processed, event)
	s.mu.Unlock()
	s.signal <- struct{}{}
	return &domain.DetectionResult{
		Action:      domain.ActionUnknownVehicle,
		PlateNumber: event.PlateNumber,
	}, nil
}

func (s *stubArbitrator) RecentDetections(ctx context.Context, limit int) ([]*dto.DetectionRecordResponse, error) {
	return nil, nil
}

func (s *stubArbitrator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processed)
}

func waitForSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the worker to process an event")
	}
}

func TestDetectionWorker_ProcessesSubmittedEvents(t *testing.T) {
	arb := newStubArbitrator()
	w := NewDetectionWorker(arb, nil)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	ok := w.Submit(&domain.DetectionEvent{PlateNumber: "ABC-123"})
	assert.True(t, ok)

	waitForSignal(t, arb.signal)
	assert.Equal(t, 1, arb.count())

	assert.True(t, w.GetStats().IsRunning)
	assert.Eventually(t, func() bool {
		return w.GetStats().TotalProcessed == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDetectionWorker_CooldownSuppressesRepeats(t *testing.T) {
	arb := newStubArbitrator()
	w := NewDetectionWorker(arb, &DetectionWorkerConfig{
		QueueSize:   16,
		Cooldown:    time.Minute,
		StopTimeout: time.Second,
	})

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.True(t, w.Submit(&domain.DetectionEvent{PlateNumber: "ABC-123"}))
	assert.False(t, w.Submit(&domain.DetectionEvent{PlateNumber: "abc-123"}),
		"a repeat sighting inside the cooldown is dropped, case-insensitively")
	assert.True(t, w.Submit(&domain.DetectionEvent{PlateNumber: "XYZ-999"}),
		"other plates are unaffected")

	waitForSignal(t, arb.signal)
	waitForSignal(t, arb.signal)
	assert.Equal(t, 2, arb.count())
	assert.Equal(t, int64(1), w.GetStats().TotalDropped)
}

func TestDetectionWorker_CooldownExpires(t *testing.T) {
	arb := newStubArbitrator()
	w := NewDetectionWorker(arb, &DetectionWorkerConfig{
		QueueSize:   16,
		Cooldown:    20 * time.Millisecond,
		StopTimeout: time.Second,
	})

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.True(t, w.Submit(&domain.DetectionEvent{PlateNumber: "ABC-123"}))
	time.Sleep(30 * time.Millisecond)
	assert.True(t, w.Submit(&domain.DetectionEvent{PlateNumber: "ABC-123"}))

	waitForSignal(t, arb.signal)
	waitForSignal(t, arb.signal)
	assert.Equal(t, 2, arb.count())
}

func TestDetectionWorker_BackpressureDrops(t *testing.T) {
	arb := newStubArbitrator()
	// Worker never started, so the channel fills up
	w := NewDetectionWorker(arb, &DetectionWorkerConfig{
		QueueSize:   2,
		Cooldown:    time.Millisecond,
		StopTimeout: time.Second,
	})

	assert.True(t, w.Submit(&domain.DetectionEvent{PlateNumber: "P-1"}))
	assert.True(t, w.Submit(&domain.DetectionEvent{PlateNumber: "P-2"}))
	assert.False(t, w.Submit(&domain.DetectionEvent{PlateNumber: "P-3"}),
		"a full channel drops rather than blocks")

	assert.Equal(t, int64(1), w.GetStats().TotalDropped)
	assert.Equal(t, 2, w.GetStats().QueueDepth)
}

func TestDetectionWorker_BackpressureDropDoesNotArmCooldown(t *testing.T) {
	arb := newStubArbitrator()
	w := NewDetectionWorker(arb, &DetectionWorkerConfig{
		QueueSize:   1,
		Cooldown:    time.Minute,
		StopTimeout: time.Second,
	})

	// Worker not started yet, so the second submit hits a full channel
	assert.True(t, w.Submit(&domain.DetectionEvent{PlateNumber: "P-1"}))
	assert.False(t, w.Submit(&domain.DetectionEvent{PlateNumber: "P-2"}))

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	waitForSignal(t, arb.signal)

	assert.True(t, w.Submit(&domain.DetectionEvent{PlateNumber: "P-2"}),
		"a plate dropped for backpressure was never enqueued, so it may retry inside the cooldown")
	waitForSignal(t, arb.signal)
	assert.Equal(t, 2, arb.count())
}

func TestDetectionWorker_RejectsBlankPlate(t *testing.T) {
	w := NewDetectionWorker(newStubArbitrator(), nil)
	assert.False(t, w.Submit(&domain.DetectionEvent{PlateNumber: "   "}))
}

func TestDetectionWorker_StartTwice(t *testing.T) {
	w := NewDetectionWorker(newStubArbitrator(), nil)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

func TestDetectionWorker_StopIsIdempotent(t *testing.T) {
	w := NewDetectionWorker(newStubArbitrator(), nil)

	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()

	assert.False(t, w.GetStats().IsRunning)
}
