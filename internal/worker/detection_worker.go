package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/internal/metrics"
	"github.com/basepark/smartpark/internal/service"
	"github.com/basepark/smartpark/pkg/logger"
)

// DetectionWorkerConfig contains configuration for the detection worker
type DetectionWorkerConfig struct {
	// QueueSize bounds the intake channel; submits beyond it are dropped
	QueueSize int
	// Cooldown suppresses repeat sightings of the same plate
	Cooldown time.Duration
	// StopTimeout bounds how long Stop waits for the consumer to drain
	StopTimeout time.Duration
}

// DefaultDetectionWorkerConfig returns default configuration
func DefaultDetectionWorkerConfig() *DetectionWorkerConfig {
	return &DetectionWorkerConfig{
		QueueSize:   256,
		Cooldown:    10 * time.Second,
		StopTimeout: 5 * time.Second,
	}
}

// DetectionWorker consumes detection events from a bounded channel and runs
// them through the arbitrator one at a time. A per-plate cooldown keeps a
// camera seeing the same plate every frame from hammering the database.
// The cooldown map is in-memory and resets with the process.
type DetectionWorker struct {
	arbitrator service.ArbitratorService
	config     *DetectionWorkerConfig
	log        *logger.Logger
	events     chan *domain.DetectionEvent
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool

	lastSeen map[string]time.Time

	// Stats
	totalProcessed int64
	totalDropped   int64
}

// NewDetectionWorker creates a new detection worker
func NewDetectionWorker(arbitrator service.ArbitratorService, config *DetectionWorkerConfig) *DetectionWorker {
	if config == nil {
		config = DefaultDetectionWorkerConfig()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	return &DetectionWorker{
		arbitrator: arbitrator,
		config:     config,
		log:        logger.Get(),
		events:     make(chan *domain.DetectionEvent, config.QueueSize),
		stopCh:     make(chan struct{}),
		lastSeen:   make(map[string]time.Time),
	}
}

// Start starts the detection worker
func (w *DetectionWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("detection worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting detection worker")

	w.wg.Add(1)
	go w.consume(ctx)

	return nil
}

// Stop stops the detection worker, waiting up to StopTimeout for the
// consumer to finish its current event.
func (w *DetectionWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping detection worker")
	close(w.stopCh)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info("Detection worker stopped")
	case <-time.After(w.config.StopTimeout):
		w.log.Warn("Detection worker stop timed out")
	}
}

// Submit offers one detection event to the worker. It never blocks: events
// in cooldown or beyond the channel capacity are dropped and counted.
func (w *DetectionWorker) Submit(event *domain.DetectionEvent) bool {
	plate := domain.NormalizePlate(event.PlateNumber)
	if plate == "" {
		return false
	}

	if !w.pastCooldown(plate) {
		w.drop("cooldown")
		return false
	}

	select {
	case w.events <- event:
		// The cooldown only arms for events that actually made it in;
		// a plate dropped for backpressure may retry immediately.
		w.recordSighting(plate)
		return true
	default:
		w.drop("backpressure")
		return false
	}
}

// pastCooldown reports whether the plate is outside its cooldown window
func (w *DetectionWorker) pastCooldown(plate string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen, ok := w.lastSeen[plate]
	return !ok || time.Since(seen) >= w.config.Cooldown
}

func (w *DetectionWorker) recordSighting(plate string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastSeen[plate] = time.Now()
}

func (w *DetectionWorker) drop(reason string) {
	w.mu.Lock()
	w.totalDropped++
	w.mu.Unlock()
	metrics.RecordDetectionDropped(context.Background(), reason)
}

func (w *DetectionWorker) consume(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event := <-w.events:
			w.process(ctx, event)
		}
	}
}

func (w *DetectionWorker) process(ctx context.Context, event *domain.DetectionEvent) {
	result, err := w.arbitrator.ProcessDetection(ctx, event)
	if err != nil {
		w.log.Error(fmt.Sprintf("Detection arbitration failed for plate %s: %v", event.PlateNumber, err))
		return
	}

	w.mu.Lock()
	w.totalProcessed++
	w.mu.Unlock()

	if result.Mutated() {
		w.log.Info(fmt.Sprintf("Detection %s: %s", result.Action, result.Message))
	}
}

// GetStats returns worker statistics
func (w *DetectionWorker) GetStats() *DetectionWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &DetectionWorkerStats{
		IsRunning:      w.running,
		QueueDepth:     len(w.events),
		TotalProcessed: w.totalProcessed,
		TotalDropped:   w.totalDropped,
	}
}

// DetectionWorkerStats contains worker statistics
type DetectionWorkerStats struct {
	IsRunning      bool  `json:"is_running"`
	QueueDepth     int   `json:"queue_depth"`
	TotalProcessed int64 `json:"total_processed"`
	TotalDropped   int64 `json:"total_dropped"`
}
