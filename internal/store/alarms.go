package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fieldwatch/fieldwatch/internal/collab"
	"github.com/fieldwatch/fieldwatch/internal/types"
)

// Alarms is the alarm-lifecycle facet of the store.
type Alarms struct {
	db *gorm.DB
}

// Alarms returns the alarm store facet.
func (s *Store) Alarms() *Alarms {
	return &Alarms{db: s.db}
}

// HasOpenAlarm reports whether the rule has an alarm in a non-CLEARED status.
func (a *Alarms) HasOpenAlarm(ctx context.Context, ruleID string) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&alarmRow{}).
		Where("rule_id = ? AND status <> ?", ruleID, string(types.AlarmCleared)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("counting open alarms: %w", err)
	}
	return count > 0, nil
}

// Create persists a new alarm.
func (a *Alarms) Create(ctx context.Context, alarm types.Alarm) error {
	row := alarmRow{
		ID:             alarm.ID,
		RuleID:         alarm.RuleID,
		AssetID:        alarm.AssetID,
		TriggeredAt:    alarm.TriggeredAt,
		Value:          alarm.Value,
		Status:         string(alarm.Status),
		AcknowledgedAt: alarm.AcknowledgedAt,
	}
	if err := a.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("creating alarm: %w", err)
	}
	return nil
}

// Get returns the alarm by id.
func (a *Alarms) Get(ctx context.Context, id string) (types.Alarm, error) {
	var row alarmRow
	err := a.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Alarm{}, fmt.Errorf("alarm %s: %w", id, collab.ErrNotFound)
	}
	if err != nil {
		return types.Alarm{}, fmt.Errorf("loading alarm: %w", err)
	}
	return types.Alarm{
		ID:             row.ID,
		RuleID:         row.RuleID,
		AssetID:        row.AssetID,
		TriggeredAt:    row.TriggeredAt,
		Value:          row.Value,
		Status:         types.AlarmStatus(row.Status),
		AcknowledgedAt: row.AcknowledgedAt,
	}, nil
}

// SetAcknowledged marks the alarm acknowledged at the given time.
func (a *Alarms) SetAcknowledged(ctx context.Context, id string, at time.Time) error {
	return a.setStatus(ctx, id, map[string]interface{}{
		"status":          string(types.AlarmAcknowledged),
		"acknowledged_at": at,
	})
}

// SetCleared marks the alarm cleared, re-opening its rule for deduplication.
// Clearing itself is driven by the surrounding CRUD, not the pipeline.
func (a *Alarms) SetCleared(ctx context.Context, id string) error {
	return a.setStatus(ctx, id, map[string]interface{}{
		"status": string(types.AlarmCleared),
	})
}

func (a *Alarms) setStatus(ctx context.Context, id string, updates map[string]interface{}) error {
	result := a.db.WithContext(ctx).Model(&alarmRow{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating alarm %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("alarm %s: %w", id, collab.ErrNotFound)
	}
	return nil
}
