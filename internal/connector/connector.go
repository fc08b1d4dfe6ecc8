// Package connector owns the long-lived sessions to field devices. Each
// connector speaks one protocol to one data source and normalizes whatever
// the device produces into canonical readings.
package connector

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/fieldwatch/fieldwatch/internal/types"
)

const (
	defaultDialTimeout  = 10 * time.Second
	defaultPollInterval = 10 * time.Second
	defaultBackoffMin   = 2 * time.Second
	defaultBackoffMax   = 120 * time.Second

	// A polling cycle that keeps failing backs off by doubling, capped at
	// this multiple of the poll interval.
	maxPollBackoffMultiple = 8
)

// EmitFunc receives a batch of readings produced by one connector. The
// callback hands off asynchronously; connectors tolerate it being slow but
// never block on anything beyond the call itself.
type EmitFunc func(readings []types.CanonicalReading)

// Connector is one session to a single field device. Run blocks for the
// session lifetime and returns on session failure or context cancellation;
// the underlying session is released before Run returns.
type Connector interface {
	Run(ctx context.Context) error
}

// Options carries session defaults shared by all connector variants.
// Dropped counts values a connector could not turn into a reading; nil
// disables counting.
type Options struct {
	DialTimeout  time.Duration
	PollInterval time.Duration
	Dropped      prometheus.Counter
}

func (o Options) countDropped() {
	if o.Dropped != nil {
		o.Dropped.Inc()
	}
}

func (o Options) withDefaults() Options {
	if o.DialTimeout == 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaultPollInterval
	}
	return o
}

// Factory builds a connector for a data source. The Manager is generic over
// this so tests can substitute fakes.
type Factory func(src types.DataSource, emit EmitFunc, log zerolog.Logger) (Connector, error)

// NewFactory returns the production factory covering the supported protocols.
func NewFactory(opts Options) Factory {
	opts = opts.withDefaults()
	return func(src types.DataSource, emit EmitFunc, log zerolog.Logger) (Connector, error) {
		switch src.Protocol {
		case types.ProtocolOPCUA:
			return newOPCUAConnector(src, emit, log, opts), nil
		case types.ProtocolModbus:
			return newModbusConnector(src, emit, log, opts), nil
		default:
			return nil, fmt.Errorf("unsupported protocol %q for source %s", src.Protocol, src.ID)
		}
	}
}

// Backoff holds restart backoff configuration.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

// Next doubles the delay, capped at Max, with jitter up to Min.
func (b Backoff) Next(current time.Duration) time.Duration {
	next := current * 2
	if next > b.Max {
		next = b.Max
	}
	return next + time.Duration(rand.Int63n(int64(b.Min)))
}
