package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldwatch/fieldwatch/internal/types"
)

// recorder logs the order of Process/Evaluate/Append calls across all sinks.
type recorder struct {
	calls []string
}

type recordingDetector struct{ rec *recorder }

func (d *recordingDetector) Process(_ context.Context, r types.CanonicalReading) {
	d.rec.calls = append(d.rec.calls, "state:"+r.Metric)
}

type recordingEngine struct{ rec *recorder }

func (e *recordingEngine) Evaluate(_ context.Context, r types.CanonicalReading) {
	e.rec.calls = append(e.rec.calls, "alarm:"+r.Metric)
}

type recordingStore struct {
	rec      *recorder
	failOn   string
	appended []types.CanonicalReading
}

func (s *recordingStore) Append(_ context.Context, readings []types.CanonicalReading) error {
	for _, r := range readings {
		s.rec.calls = append(s.rec.calls, "store:"+r.Metric)
		if r.Metric == s.failOn {
			return errors.New("disk full")
		}
		s.appended = append(s.appended, r)
	}
	return nil
}

func batch(metrics ...string) []types.CanonicalReading {
	readings := make([]types.CanonicalReading, 0, len(metrics))
	for _, m := range metrics {
		readings = append(readings, types.CanonicalReading{
			AssetID:   "a1",
			Timestamp: time.Now(),
			Metric:    m,
			Value:     1,
		})
	}
	return readings
}

func TestDispatcher_PerReadingOrder(t *testing.T) {
	rec := &recorder{}
	store := &recordingStore{rec: rec}
	d := NewDispatcher(&recordingDetector{rec}, &recordingEngine{rec}, store, zerolog.Nop(), nil)

	stored := d.Ingest(context.Background(), batch("speed", "temp"))

	assert.Equal(t, 2, stored)
	// State detection runs before alarm evaluation, storage last, and the
	// second reading is not touched until the first is fully handled.
	assert.Equal(t, []string{
		"state:speed", "alarm:speed", "store:speed",
		"state:temp", "alarm:temp", "store:temp",
	}, rec.calls)
}

func TestDispatcher_StoreFailureSkipsOnlyThatReading(t *testing.T) {
	rec := &recorder{}
	store := &recordingStore{rec: rec, failOn: "temp"}
	d := NewDispatcher(&recordingDetector{rec}, &recordingEngine{rec}, store, zerolog.Nop(), nil)

	stored := d.Ingest(context.Background(), batch("speed", "temp", "vibration"))

	assert.Equal(t, 2, stored)
	require.Len(t, store.appended, 2)
	assert.Equal(t, "speed", store.appended[0].Metric)
	assert.Equal(t, "vibration", store.appended[1].Metric)
	// Failed storage never suppresses detection or evaluation.
	assert.Contains(t, rec.calls, "state:temp")
	assert.Contains(t, rec.calls, "alarm:temp")
}

func TestDispatcher_EmptyBatch(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(&recordingDetector{rec}, &recordingEngine{rec}, &recordingStore{rec: rec}, zerolog.Nop(), nil)

	assert.Equal(t, 0, d.Ingest(context.Background(), nil))
	assert.Empty(t, rec.calls)
}
