package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"orangemon/internal/domain"
)

// DefaultPollInterval matches the portal's tolerated polling cadence.
const DefaultPollInterval = time.Hour

// SnapshotCollector is what the coordinator needs from the collector.
type SnapshotCollector interface {
	Collect(ctx context.Context) (*domain.AccountSnapshot, error)
}

// Coordinator owns the single cached snapshot and drives the poll
// cycle on a fixed interval. At most one refresh runs at a time; a
// failed cycle keeps the previous snapshot so readers see a stale view
// rather than none.
type Coordinator struct {
	collector SnapshotCollector
	recorder  domain.CycleRecorder
	interval  time.Duration
	log       *slog.Logger

	refreshMu sync.Mutex

	mu          sync.RWMutex
	snapshot    *domain.AccountSnapshot
	lastErr     error
	lastSuccess time.Time
}

// NewCoordinator creates a coordinator. recorder may be nil when cycle
// history is not persisted; interval <= 0 falls back to the default.
func NewCoordinator(c SnapshotCollector, recorder domain.CycleRecorder, interval time.Duration, log *slog.Logger) *Coordinator {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{collector: c, recorder: recorder, interval: interval, log: log}
}

// Refresh runs one poll cycle now. Concurrent callers are serialized.
func (co *Coordinator) Refresh(ctx context.Context) error {
	co.refreshMu.Lock()
	defer co.refreshMu.Unlock()

	cycleID := uuid.NewString()
	log := co.log.With("cycle_id", cycleID)
	log.Debug("poll cycle started")

	snap, err := co.collector.Collect(ctx)
	if err != nil {
		co.mu.Lock()
		co.lastErr = err
		co.mu.Unlock()
		log.Error("poll cycle failed", "error", err)
		return err
	}

	co.mu.Lock()
	co.snapshot = snap
	co.lastErr = nil
	co.lastSuccess = time.Now()
	co.mu.Unlock()

	log.Info("poll cycle complete",
		"profiles", snap.Summary.TotalProfiles,
		"subscribers", snap.Summary.TotalSubscribers,
		"unpaid_count", snap.Summary.TotalUnpaidCount)

	if co.recorder != nil {
		if err := co.recorder.RecordCycle(ctx, cycleID, snap); err != nil {
			// History is best effort; a failed insert never fails the cycle.
			log.Warn("failed to record poll cycle", "error", err)
		}
	}
	return nil
}

// Run performs the initial refresh and then polls on the configured
// interval until the context is cancelled. An error is returned only
// when the initial refresh fails.
func (co *Coordinator) Run(ctx context.Context) error {
	if err := co.Refresh(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(co.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = co.Refresh(ctx)
		}
	}
}

// Snapshot returns the most recent successful snapshot, or nil before
// the first successful cycle.
func (co *Coordinator) Snapshot() *domain.AccountSnapshot {
	co.mu.RLock()
	defer co.mu.RUnlock()
	return co.snapshot
}

// Status reports the last successful cycle time and the error of the
// most recent cycle, if it failed.
func (co *Coordinator) Status() (time.Time, error) {
	co.mu.RLock()
	defer co.mu.RUnlock()
	return co.lastSuccess, co.lastErr
}
