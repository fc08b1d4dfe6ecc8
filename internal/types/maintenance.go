package types

import "time"

// TriggerTimeBased marks plans executed on a day interval.
const TriggerTimeBased = "TIME_BASED"

// MaintenancePlan is a preventive maintenance template. Only LastExecutedAt
// is mutated by the pipeline, and only after a successful generation run.
type MaintenancePlan struct {
	ID              string
	AssetID         string
	TriggerType     string
	IntervalDays    int
	LastExecutedAt  *time.Time
	Active          bool
	SummaryTemplate string
	Description     string
	Priority        string
	Category        string
	Tasks           []TaskTemplate
}

// TaskTemplate is one ordered task copied into generated work orders.
type TaskTemplate struct {
	Description string
	Order       int
}

// Due reports whether the plan should execute at the given time.
func (p MaintenancePlan) Due(now time.Time) bool {
	if p.LastExecutedAt == nil {
		return true
	}
	next := p.LastExecutedAt.Add(time.Duration(p.IntervalDays) * 24 * time.Hour)
	return !now.Before(next)
}
