package types

import "time"

// Condition is a threshold comparison operator.
type Condition string

const (
	ConditionGreater Condition = ">"
	ConditionLess    Condition = "<"
)

// Match evaluates the condition. Equal values never trigger either operator.
func (c Condition) Match(value, threshold float64) bool {
	switch c {
	case ConditionGreater:
		return value > threshold
	case ConditionLess:
		return value < threshold
	default:
		return false
	}
}

// Valid reports whether the operator is supported.
func (c Condition) Valid() bool {
	return c == ConditionGreater || c == ConditionLess
}

// AlarmRule is a threshold rule evaluated against readings. Rules are
// immutable once loaded into an evaluation snapshot.
type AlarmRule struct {
	ID        string
	AssetID   string
	Metric    string
	Condition Condition
	Threshold float64
	Severity  string
	Enabled   bool
}

// AlarmStatus is the lifecycle state of an alarm.
type AlarmStatus string

const (
	AlarmActive       AlarmStatus = "ACTIVE"
	AlarmAcknowledged AlarmStatus = "ACKNOWLEDGED"
	AlarmCleared      AlarmStatus = "CLEARED"
)

// Alarm records one rule firing. At most one alarm per rule may be in a
// non-CLEARED status at a time.
type Alarm struct {
	ID             string
	RuleID         string
	AssetID        string
	TriggeredAt    time.Time
	Value          float64
	Status         AlarmStatus
	AcknowledgedAt *time.Time
}

// SeverityCritical marks rules whose alarms request a corrective work order.
const SeverityCritical = "critical"
