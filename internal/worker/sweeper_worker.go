package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/basepark/smartpark/internal/service"
	"github.com/basepark/smartpark/pkg/logger"
)

// SweeperWorkerConfig contains configuration for the sweeper worker
type SweeperWorkerConfig struct {
	// SweepInterval is the interval between sweep passes
	SweepInterval time.Duration
}

// DefaultSweeperWorkerConfig returns default configuration
func DefaultSweeperWorkerConfig() *SweeperWorkerConfig {
	return &SweeperWorkerConfig{
		SweepInterval: 30 * time.Second,
	}
}

// SweeperWorker periodically expires overdue reservations and reclaims
// their spots.
type SweeperWorker struct {
	sweeper service.SweeperService
	config  *SweeperWorkerConfig
	log     *logger.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// Stats
	totalExpired   int64
	totalCancelled int64
	totalNotified  int64
	lastSweepTime  time.Time
}

// NewSweeperWorker creates a new sweeper worker
func NewSweeperWorker(sweeper service.SweeperService, config *SweeperWorkerConfig) *SweeperWorker {
	if config == nil {
		config = DefaultSweeperWorkerConfig()
	}
	return &SweeperWorker{
		sweeper: sweeper,
		config:  config,
		log:     logger.Get(),
		stopCh:  make(chan struct{}),
	}
}

// Start starts the sweeper worker
func (w *SweeperWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sweeper worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting sweeper worker")

	w.wg.Add(1)
	go w.run(ctx)

	return nil
}

// Stop stops the sweeper worker
func (w *SweeperWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping sweeper worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Sweeper worker stopped")
}

func (w *SweeperWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SweeperWorker) sweep(ctx context.Context) {
	result, err := w.sweeper.Sweep(ctx)
	if err != nil {
		w.log.Error(fmt.Sprintf("Sweep failed: %v", err))
		return
	}

	w.mu.Lock()
	w.totalExpired += int64(result.Expired)
	w.totalCancelled += int64(result.Cancelled)
	w.totalNotified += int64(result.Notified)
	w.lastSweepTime = time.Now()
	w.mu.Unlock()

	if result.Expired > 0 || result.Cancelled > 0 {
		w.log.Info(fmt.Sprintf("Sweep reclaimed %d expired and %d stale reservations, notified %d waiting parties",
			result.Expired, result.Cancelled, result.Notified))
	}
}

// GetStats returns worker statistics
func (w *SweeperWorker) GetStats() *SweeperWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &SweeperWorkerStats{
		IsRunning:      w.running,
		TotalExpired:   w.totalExpired,
		TotalCancelled: w.totalCancelled,
		TotalNotified:  w.totalNotified,
		LastSweepTime:  w.lastSweepTime,
	}
}

// SweeperWorkerStats contains worker statistics
type SweeperWorkerStats struct {
	IsRunning      bool      `json:"is_running"`
	TotalExpired   int64     `json:"total_expired"`
	TotalCancelled int64     `json:"total_cancelled"`
	TotalNotified  int64     `json:"total_notified"`
	LastSweepTime  time.Time `json:"last_sweep_time"`
}
