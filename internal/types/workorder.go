package types

// Source trigger kinds for work orders created by the pipeline.
const (
	TriggerAlarm           = "ALARM"
	TriggerMaintenancePlan = "MAINTENANCE_PLAN"
)

// Work order categories and priorities used by system-initiated requests.
const (
	CategoryCorrective = "CORRECTIVE"
	CategoryPreventive = "PREVENTIVE"
	PriorityUrgent     = "URGENT"
)

// SourceTrigger records what caused a work order to be requested.
type SourceTrigger struct {
	Type   string
	ID     string
	RuleID string
}

// WorkOrderRequest carries the template fields for a new work order.
type WorkOrderRequest struct {
	Summary     string
	Description string
	Priority    string
	Category    string
	AssetID     string
	Source      SourceTrigger
}

// WorkOrderTask is one ordered task attached to a work order.
type WorkOrderTask struct {
	Description string
	Order       int
	Done        bool
}
