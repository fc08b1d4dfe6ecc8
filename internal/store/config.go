package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldwatch/fieldwatch/internal/collab"
	"github.com/fieldwatch/fieldwatch/internal/types"
)

// ListActiveDataSources returns the sources the connector manager should run.
func (s *Store) ListActiveDataSources(ctx context.Context) ([]types.DataSource, error) {
	var rows []dataSourceRow
	if err := s.db.WithContext(ctx).Where("active = ?", true).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing active data sources: %w", err)
	}

	sources := make([]types.DataSource, len(rows))
	for i, row := range rows {
		sources[i] = types.DataSource{
			ID:           row.ID,
			AssetID:      row.AssetID,
			Protocol:     types.Protocol(row.Protocol),
			Host:         row.Host,
			Port:         row.Port,
			Active:       row.Active,
			PollInterval: time.Duration(row.PollIntervalSeconds) * time.Second,
			SlaveID:      byte(row.SlaveID),
			Nodes:        row.Nodes,
			Registers:    row.Registers,
		}
	}
	return sources, nil
}

// ListEnabledAlarmRules returns the rules for the next evaluation snapshot.
func (s *Store) ListEnabledAlarmRules(ctx context.Context) ([]types.AlarmRule, error) {
	var rows []alarmRuleRow
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing enabled alarm rules: %w", err)
	}

	rules := make([]types.AlarmRule, len(rows))
	for i, row := range rows {
		rules[i] = types.AlarmRule{
			ID:        row.ID,
			AssetID:   row.AssetID,
			Metric:    row.Metric,
			Condition: types.Condition(row.Condition),
			Threshold: row.Threshold,
			Severity:  row.Severity,
			Enabled:   row.Enabled,
		}
	}
	return rules, nil
}

// ListActiveMaintenancePlans returns the plans the scheduler evaluates.
func (s *Store) ListActiveMaintenancePlans(ctx context.Context) ([]types.MaintenancePlan, error) {
	var rows []maintenancePlanRow
	if err := s.db.WithContext(ctx).Where("active = ?", true).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing active maintenance plans: %w", err)
	}

	plans := make([]types.MaintenancePlan, len(rows))
	for i, row := range rows {
		plans[i] = types.MaintenancePlan{
			ID:              row.ID,
			AssetID:         row.AssetID,
			TriggerType:     row.TriggerType,
			IntervalDays:    row.IntervalDays,
			LastExecutedAt:  row.LastExecutedAt,
			Active:          row.Active,
			SummaryTemplate: row.SummaryTemplate,
			Description:     row.Description,
			Priority:        row.Priority,
			Category:        row.Category,
			Tasks:           row.Tasks,
		}
	}
	return plans, nil
}

// MarkExecuted records a successful generation run for the plan.
func (s *Store) MarkExecuted(ctx context.Context, planID string, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&maintenancePlanRow{}).
		Where("id = ?", planID).
		Update("last_execution_at", at)
	if result.Error != nil {
		return fmt.Errorf("marking plan %s executed: %w", planID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("plan %s: %w", planID, collab.ErrNotFound)
	}
	return nil
}
