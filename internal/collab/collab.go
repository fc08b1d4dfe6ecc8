// Package collab declares the narrow interfaces the pipeline consumes from
// the surrounding record-management modules. The core never reaches into
// their storage directly; internal/store ships the default implementations.
package collab

import (
	"context"
	"errors"
	"time"

	"github.com/fieldwatch/fieldwatch/internal/types"
)

// ErrNotFound reports that the requested record does not exist. Store
// implementations wrap it so callers can tell a missing record from a
// failing store.
var ErrNotFound = errors.New("record not found")

// Audit records pipeline actions for the audit trail.
type Audit interface {
	Log(ctx context.Context, actor types.Actor, action, entityType, entityID string, details map[string]string) error
}

// Notifier delivers a notification to a single user.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, message, kind, referenceID string) error
}

// WorkOrders requests work order creation from the work-order module.
type WorkOrders interface {
	Create(ctx context.Context, req types.WorkOrderRequest, actor types.Actor) (string, error)
	AppendTasks(ctx context.Context, workOrderID string, tasks []types.WorkOrderTask) error
}

// Directory resolves the users responsible for an asset via its sector.
type Directory interface {
	ResolveResponsibleUsers(ctx context.Context, assetID string) ([]string, error)
}

// ConfigStore exposes the configuration records the pipeline reacts to.
type ConfigStore interface {
	ListActiveDataSources(ctx context.Context) ([]types.DataSource, error)
	ListEnabledAlarmRules(ctx context.Context) ([]types.AlarmRule, error)
	ListActiveMaintenancePlans(ctx context.Context) ([]types.MaintenancePlan, error)
}

// ReadingStore appends readings to durable storage.
type ReadingStore interface {
	Append(ctx context.Context, readings []types.CanonicalReading) error
}

// HistoryStore persists asset state-transition history. CloseOpenRecord is a
// no-op when the asset has no open record.
type HistoryStore interface {
	CloseOpenRecord(ctx context.Context, assetID string, end time.Time) error
	OpenRecord(ctx context.Context, assetID string, state types.AssetState, start time.Time) error
}

// AlarmStore persists alarm lifecycle state.
type AlarmStore interface {
	// HasOpenAlarm reports whether the rule has an alarm in a non-CLEARED status.
	HasOpenAlarm(ctx context.Context, ruleID string) (bool, error)
	Create(ctx context.Context, alarm types.Alarm) error
	Get(ctx context.Context, id string) (types.Alarm, error)
	SetAcknowledged(ctx context.Context, id string, at time.Time) error
	SetCleared(ctx context.Context, id string) error
}

// MaintenancePlans mutates plan execution bookkeeping.
type MaintenancePlans interface {
	MarkExecuted(ctx context.Context, planID string, at time.Time) error
}
