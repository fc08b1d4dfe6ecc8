package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldwatch/fieldwatch/internal/types"
)

// fakeHistory records open/close calls and tracks the open-record invariant.
type fakeHistory struct {
	mu        sync.Mutex
	failClose bool
	failOpen  bool
	open      map[string]*types.StateRecord
	closed    []types.StateRecord
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{open: make(map[string]*types.StateRecord)}
}

func (f *fakeHistory) CloseOpenRecord(_ context.Context, assetID string, end time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failClose {
		return errors.New("history unavailable")
	}
	rec, ok := f.open[assetID]
	if !ok {
		return nil
	}
	rec.EndTime = &end
	rec.Duration = end.Sub(rec.StartTime)
	f.closed = append(f.closed, *rec)
	delete(f.open, assetID)
	return nil
}

func (f *fakeHistory) OpenRecord(_ context.Context, assetID string, state types.AssetState, start time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOpen {
		return errors.New("history unavailable")
	}
	if _, ok := f.open[assetID]; ok {
		return errors.New("asset already has an open record")
	}
	f.open[assetID] = &types.StateRecord{AssetID: assetID, State: state, StartTime: start}
	return nil
}

func (f *fakeHistory) openCount(assetID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.open[assetID]; ok {
		return 1
	}
	return 0
}

func reading(asset, metric string, value float64) types.CanonicalReading {
	return types.CanonicalReading{AssetID: asset, Timestamp: time.Now(), Metric: metric, Value: value}
}

func TestDetector_UnobservedAssetIsUnknown(t *testing.T) {
	d := NewDetector("process_speed", 10, newFakeHistory(), zerolog.Nop(), nil)
	assert.Equal(t, types.StateUnknown, d.GetCurrentState("a1"))
}

func TestDetector_IgnoresOtherMetrics(t *testing.T) {
	history := newFakeHistory()
	d := NewDetector("process_speed", 10, history, zerolog.Nop(), nil)

	d.Process(context.Background(), reading("a1", "temperature_celsius", 80))

	assert.Equal(t, types.StateUnknown, d.GetCurrentState("a1"))
	assert.Empty(t, history.open)
	assert.Empty(t, history.closed)
}

func TestDetector_ThresholdDecidesState(t *testing.T) {
	d := NewDetector("process_speed", 10, newFakeHistory(), zerolog.Nop(), nil)
	ctx := context.Background()

	d.Process(ctx, reading("a1", "process_speed", 5))
	assert.Equal(t, types.StateStopped, d.GetCurrentState("a1"))

	d.Process(ctx, reading("a1", "process_speed", 10))
	assert.Equal(t, types.StateRunning, d.GetCurrentState("a1"))
}

func TestDetector_TransitionClosesAndOpensRecords(t *testing.T) {
	history := newFakeHistory()
	d := NewDetector("process_speed", 10, history, zerolog.Nop(), nil)
	ctx := context.Background()

	start := time.Unix(1_700_000_000, 0)
	clock := start
	d.now = func() time.Time { return clock }

	d.Process(ctx, reading("a1", "process_speed", 50)) // UNKNOWN -> RUNNING
	clock = start.Add(time.Hour)
	d.Process(ctx, reading("a1", "process_speed", 5)) // RUNNING -> STOPPED

	require.Len(t, history.closed, 1)
	closed := history.closed[0]
	assert.Equal(t, types.StateRunning, closed.State)
	assert.Equal(t, time.Hour, closed.Duration)
	require.NotNil(t, closed.EndTime)
	assert.Equal(t, closed.Duration, closed.EndTime.Sub(closed.StartTime))

	assert.Equal(t, 1, history.openCount("a1"))
	assert.Equal(t, types.StateStopped, history.open["a1"].State)
}

func TestDetector_SameStateIsNoOp(t *testing.T) {
	history := newFakeHistory()
	d := NewDetector("process_speed", 10, history, zerolog.Nop(), nil)
	ctx := context.Background()

	d.Process(ctx, reading("a1", "process_speed", 50))
	d.Process(ctx, reading("a1", "process_speed", 60))
	d.Process(ctx, reading("a1", "process_speed", 70))

	assert.Empty(t, history.closed)
	assert.Equal(t, 1, history.openCount("a1"))
}

func TestDetector_HistoryFailureStillUpdatesMemory(t *testing.T) {
	history := newFakeHistory()
	history.failClose = true
	d := NewDetector("process_speed", 10, history, zerolog.Nop(), nil)

	d.Process(context.Background(), reading("a1", "process_speed", 50))

	// Live state queries stay correct even with degraded persistence.
	assert.Equal(t, types.StateRunning, d.GetCurrentState("a1"))
	assert.Equal(t, 0, history.openCount("a1"))
}

func TestDetector_ConcurrentReadingsKeepSingleOpenRecord(t *testing.T) {
	history := newFakeHistory()
	d := NewDetector("process_speed", 10, history, zerolog.Nop(), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.Process(ctx, reading("a1", "process_speed", float64(i%20)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, history.openCount("a1"))
	for _, rec := range history.closed {
		require.NotNil(t, rec.EndTime)
		assert.Equal(t, rec.Duration, rec.EndTime.Sub(rec.StartTime))
	}
}

func TestDetector_AssetsAreIndependent(t *testing.T) {
	d := NewDetector("process_speed", 10, newFakeHistory(), zerolog.Nop(), nil)
	ctx := context.Background()

	d.Process(ctx, reading("a1", "process_speed", 50))
	d.Process(ctx, reading("a2", "process_speed", 2))

	assert.Equal(t, types.StateRunning, d.GetCurrentState("a1"))
	assert.Equal(t, types.StateStopped, d.GetCurrentState("a2"))
}
