package connector

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldwatch/fieldwatch/internal/types"
)

// blockingConnector runs until cancelled.
type blockingConnector struct{}

func (blockingConnector) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func countingFactory(starts *atomic.Int64) Factory {
	return func(src types.DataSource, emit EmitFunc, log zerolog.Logger) (Connector, error) {
		starts.Add(1)
		return blockingConnector{}, nil
	}
}

func testSource(id string) types.DataSource {
	return types.DataSource{
		ID:       id,
		AssetID:  "asset-" + id,
		Protocol: types.ProtocolModbus,
		Host:     "10.0.0.1",
		Port:     502,
		Active:   true,
	}
}

func TestManager_ReconcileStartsActiveSources(t *testing.T) {
	var starts atomic.Int64
	m := NewManager(countingFactory(&starts), func([]types.CanonicalReading) {}, zerolog.Nop(), ManagerOptions{})
	defer m.Close()

	inactive := testSource("s3")
	inactive.Active = false
	m.Reconcile([]types.DataSource{testSource("s1"), testSource("s2"), inactive})

	assert.Equal(t, []string{"s1", "s2"}, m.Running())
	require.Eventually(t, func() bool { return starts.Load() == 2 }, time.Second, 10*time.Millisecond)
}

func TestManager_ReconcileIsIdempotent(t *testing.T) {
	var starts atomic.Int64
	m := NewManager(countingFactory(&starts), func([]types.CanonicalReading) {}, zerolog.Nop(), ManagerOptions{})
	defer m.Close()

	sources := []types.DataSource{testSource("s1"), testSource("s2")}
	m.Reconcile(sources)
	m.Reconcile(sources)

	assert.Equal(t, []string{"s1", "s2"}, m.Running())
	require.Eventually(t, func() bool { return starts.Load() == 2 }, time.Second, 10*time.Millisecond)
	// Give any spurious restart a chance to show up.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(2), starts.Load())
}

func TestManager_ReconcileStopsRemovedSources(t *testing.T) {
	var starts atomic.Int64
	m := NewManager(countingFactory(&starts), func([]types.CanonicalReading) {}, zerolog.Nop(), ManagerOptions{})
	defer m.Close()

	m.Reconcile([]types.DataSource{testSource("s1"), testSource("s2")})
	m.Reconcile([]types.DataSource{testSource("s1")})

	assert.Equal(t, []string{"s1"}, m.Running())

	deactivated := testSource("s1")
	deactivated.Active = false
	m.Reconcile([]types.DataSource{deactivated})
	assert.Empty(t, m.Running())
}

func TestManager_ReconcileRestartsChangedSources(t *testing.T) {
	var starts atomic.Int64
	m := NewManager(countingFactory(&starts), func([]types.CanonicalReading) {}, zerolog.Nop(), ManagerOptions{})
	defer m.Close()

	m.Reconcile([]types.DataSource{testSource("s1")})
	require.Eventually(t, func() bool { return starts.Load() == 1 }, time.Second, 10*time.Millisecond)

	changed := testSource("s1")
	changed.Port = 1502
	m.Reconcile([]types.DataSource{changed})

	assert.Equal(t, []string{"s1"}, m.Running())
	require.Eventually(t, func() bool { return starts.Load() == 2 }, time.Second, 10*time.Millisecond)
}

func TestManager_SupervisionRestartsFailedConnector(t *testing.T) {
	var starts atomic.Int64
	factory := func(src types.DataSource, emit EmitFunc, log zerolog.Logger) (Connector, error) {
		starts.Add(1)
		return failingConnector{}, nil
	}
	m := NewManager(factory, func([]types.CanonicalReading) {}, zerolog.Nop(), ManagerOptions{
		Backoff: Backoff{Min: time.Millisecond, Max: 4 * time.Millisecond},
	})
	defer m.Close()

	m.Reconcile([]types.DataSource{testSource("s1")})
	require.Eventually(t, func() bool { return starts.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

type failingConnector struct{}

func (failingConnector) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(time.Millisecond):
		return context.DeadlineExceeded
	}
}

func TestManager_CloseWaitsForConnectors(t *testing.T) {
	var starts atomic.Int64
	m := NewManager(countingFactory(&starts), func([]types.CanonicalReading) {}, zerolog.Nop(), ManagerOptions{})

	m.Reconcile([]types.DataSource{testSource("s1")})
	m.Close()

	assert.Empty(t, m.Running())
	// Reconcile after Close is a no-op.
	m.Reconcile([]types.DataSource{testSource("s2")})
	assert.Empty(t, m.Running())
}
