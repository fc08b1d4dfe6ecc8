package types

import "time"

// CanonicalReading is a normalized, protocol-agnostic telemetry value.
// Connectors produce them; the pipeline never mutates them.
type CanonicalReading struct {
	AssetID   string
	Timestamp time.Time
	Metric    string
	Value     float64
}
