package types

import "time"

// AssetState is the coarse operational state derived from the configured
// state-indicator metric.
type AssetState string

const (
	StateUnknown AssetState = "UNKNOWN"
	StateRunning AssetState = "RUNNING"
	StateStopped AssetState = "STOPPED"
)

// StateRecord is one interval of an asset's state history. A nil EndTime
// marks the open interval; an asset has at most one open record.
type StateRecord struct {
	AssetID   string
	State     AssetState
	StartTime time.Time
	EndTime   *time.Time
	Duration  time.Duration
}
