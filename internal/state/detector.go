// Package state derives the coarse operational state of each asset from the
// configured state-indicator metric and persists its transition history.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/fieldwatch/fieldwatch/internal/collab"
	"github.com/fieldwatch/fieldwatch/internal/types"
)

// Detector is a per-asset state machine over {UNKNOWN, RUNNING, STOPPED}.
// Readings of the indicator metric with value >= threshold mean RUNNING,
// anything below means STOPPED; other metrics are ignored.
type Detector struct {
	metric      string
	threshold   float64
	history     collab.HistoryStore
	log         zerolog.Logger
	transitions prometheus.Counter
	now         func() time.Time

	mu      sync.Mutex
	current map[string]types.AssetState
	locks   map[string]*sync.Mutex
}

// NewDetector creates a detector. transitions may be nil.
func NewDetector(metric string, threshold float64, history collab.HistoryStore, log zerolog.Logger, transitions prometheus.Counter) *Detector {
	return &Detector{
		metric:      metric,
		threshold:   threshold,
		history:     history,
		log:         log.With().Str("component", "state-detector").Logger(),
		transitions: transitions,
		now:         time.Now,
		current:     make(map[string]types.AssetState),
		locks:       make(map[string]*sync.Mutex),
	}
}

// Process feeds one reading through the state machine. Readings that do not
// change state are no-ops. Readings for different assets may be processed
// fully in parallel; readings for the same asset are serialized by a
// per-asset lock so only one caller can open a new history record.
func (d *Detector) Process(ctx context.Context, r types.CanonicalReading) {
	if r.Metric != d.metric {
		return
	}

	next := types.StateStopped
	if r.Value >= d.threshold {
		next = types.StateRunning
	}

	lock := d.assetLock(r.AssetID)
	lock.Lock()
	defer lock.Unlock()

	if d.GetCurrentState(r.AssetID) == next {
		return
	}

	now := d.now()

	// History is best-effort: a failed write is logged, never retried, and
	// the in-memory state is still updated so live queries stay correct.
	// The new record is only opened once the close succeeded, so the store
	// can never hold two open records for one asset.
	if err := d.history.CloseOpenRecord(ctx, r.AssetID, now); err != nil {
		d.log.Error().
			Err(err).
			Str("asset", r.AssetID).
			Msg("Failed to close open history record")
	} else if err := d.history.OpenRecord(ctx, r.AssetID, next, now); err != nil {
		d.log.Error().
			Err(err).
			Str("asset", r.AssetID).
			Str("state", string(next)).
			Msg("Failed to open history record")
	}

	d.mu.Lock()
	prev := d.current[r.AssetID]
	d.current[r.AssetID] = next
	d.mu.Unlock()

	if d.transitions != nil {
		d.transitions.Inc()
	}
	d.log.Info().
		Str("asset", r.AssetID).
		Str("from", string(stateOrUnknown(prev))).
		Str("to", string(next)).
		Float64("value", r.Value).
		Msg("Asset state changed")
}

// GetCurrentState returns the asset's current state, UNKNOWN for assets
// never observed.
func (d *Detector) GetCurrentState(assetID string) types.AssetState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return stateOrUnknown(d.current[assetID])
}

func (d *Detector) assetLock(assetID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.locks[assetID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[assetID] = lock
	}
	return lock
}

func stateOrUnknown(s types.AssetState) types.AssetState {
	if s == "" {
		return types.StateUnknown
	}
	return s
}
