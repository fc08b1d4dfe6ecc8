package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fieldwatch/fieldwatch/internal/types"
)

// Append writes a batch of readings.
func (s *Store) Append(ctx context.Context, readings []types.CanonicalReading) error {
	if len(readings) == 0 {
		return nil
	}
	rows := make([]readingRow, len(readings))
	for i, r := range readings {
		rows[i] = readingRow{
			AssetID:   r.AssetID,
			Timestamp: r.Timestamp,
			Metric:    r.Metric,
			Value:     r.Value,
		}
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("appending readings: %w", err)
	}
	return nil
}

// CloseOpenRecord closes the asset's open history record, setting end time
// and duration. A no-op when the asset has no open record.
func (s *Store) CloseOpenRecord(ctx context.Context, assetID string, end time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open stateRecordRow
		err := tx.Where("asset_id = ? AND end_time IS NULL", assetID).First(&open).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("finding open record: %w", err)
		}

		open.EndTime = &end
		open.DurationSeconds = end.Sub(open.StartTime).Seconds()
		if err := tx.Save(&open).Error; err != nil {
			return fmt.Errorf("closing record: %w", err)
		}
		return nil
	})
}

// OpenRecord opens a new history record for the asset's new state.
func (s *Store) OpenRecord(ctx context.Context, assetID string, state types.AssetState, start time.Time) error {
	row := stateRecordRow{
		AssetID:   assetID,
		State:     string(state),
		StartTime: start,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("opening record: %w", err)
	}
	return nil
}

// StateHistory returns the asset's history, oldest first.
func (s *Store) StateHistory(ctx context.Context, assetID string) ([]types.StateRecord, error) {
	var rows []stateRecordRow
	if err := s.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("start_time").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing state history: %w", err)
	}

	records := make([]types.StateRecord, len(rows))
	for i, row := range rows {
		records[i] = types.StateRecord{
			AssetID:   row.AssetID,
			State:     types.AssetState(row.State),
			StartTime: row.StartTime,
			EndTime:   row.EndTime,
			Duration:  time.Duration(row.DurationSeconds * float64(time.Second)),
		}
	}
	return records, nil
}
