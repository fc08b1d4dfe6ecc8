package connector

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/fieldwatch/fieldwatch/internal/types"
)

// Manager keeps exactly one running connector per active data source. Each
// source gets a supervision goroutine that restarts its connector with
// bounded backoff after session failure.
type Manager struct {
	log      zerolog.Logger
	factory  Factory
	emit     EmitFunc
	backoff  Backoff
	restarts prometheus.Counter

	ctx       context.Context
	cancelAll context.CancelFunc

	mu      sync.Mutex
	running map[string]*handle
	closed  bool
}

type handle struct {
	src    types.DataSource
	cancel context.CancelFunc
	done   chan struct{}
}

// ManagerOptions tunes restart behavior. Restarts may be nil.
type ManagerOptions struct {
	Backoff  Backoff
	Restarts prometheus.Counter
}

// NewManager creates a connector manager. Call Reconcile to start work.
func NewManager(factory Factory, emit EmitFunc, log zerolog.Logger, opts ManagerOptions) *Manager {
	if opts.Backoff.Min == 0 {
		opts.Backoff.Min = defaultBackoffMin
	}
	if opts.Backoff.Max == 0 {
		opts.Backoff.Max = defaultBackoffMax
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		log:       log.With().Str("component", "connector-manager").Logger(),
		factory:   factory,
		emit:      emit,
		backoff:   opts.Backoff,
		restarts:  opts.Restarts,
		ctx:       ctx,
		cancelAll: cancel,
		running:   make(map[string]*handle),
	}
}

// Reconcile aligns running connectors with the given source set: sources no
// longer active are stopped, newly active ones are started, unchanged ones
// are left running. Idempotent; safe to call while connectors are starting
// or stopping.
func (m *Manager) Reconcile(sources []types.DataSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	desired := make(map[string]types.DataSource, len(sources))
	for _, src := range sources {
		if src.Active {
			desired[src.ID] = src
		}
	}

	for id, h := range m.running {
		src, ok := desired[id]
		if ok && sameSource(h.src, src) {
			delete(desired, id)
			continue
		}
		// Removed, deactivated or reconfigured: stop; reconfigured sources
		// are restarted below with the new parameters.
		m.stopLocked(id, h)
	}

	for _, src := range desired {
		m.startLocked(src)
	}
}

// Running returns the ids of sources with a running connector, sorted.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.running))
	for id := range m.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops all connectors and waits for their sessions to be released.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	for id, h := range m.running {
		m.stopLocked(id, h)
	}
	m.mu.Unlock()
	m.cancelAll()
}

func (m *Manager) startLocked(src types.DataSource) {
	ctx, cancel := context.WithCancel(m.ctx)
	h := &handle{src: src, cancel: cancel, done: make(chan struct{})}
	m.running[src.ID] = h

	m.log.Info().
		Str("source", src.ID).
		Str("protocol", string(src.Protocol)).
		Str("asset", src.AssetID).
		Msg("Starting connector")

	go m.supervise(ctx, src, h.done)
}

// stopLocked cancels the connector and blocks until its session is released.
// Holding the manager lock across the wait is what prevents a double start
// for the same source id.
func (m *Manager) stopLocked(id string, h *handle) {
	h.cancel()
	<-h.done
	delete(m.running, id)
	m.log.Info().Str("source", id).Msg("Connector stopped")
}

func (m *Manager) supervise(ctx context.Context, src types.DataSource, done chan struct{}) {
	defer close(done)

	log := m.log.With().Str("source", src.ID).Str("protocol", string(src.Protocol)).Logger()
	delay := m.backoff.Min

	for {
		conn, err := m.factory(src, m.emit, log)
		if err != nil {
			log.Error().Err(err).Msg("Connector construction failed")
			return
		}

		started := time.Now()
		runErr := conn.Run(ctx)
		if ctx.Err() != nil {
			return
		}

		// A session that outlived the max backoff earns a fresh delay.
		if time.Since(started) > m.backoff.Max {
			delay = m.backoff.Min
		}
		if m.restarts != nil {
			m.restarts.Inc()
		}
		log.Warn().
			Err(runErr).
			Dur("restart_in", delay).
			Msg("Connector exited, restarting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = m.backoff.Next(delay)
	}
}

func sameSource(a, b types.DataSource) bool {
	return reflect.DeepEqual(a, b)
}
