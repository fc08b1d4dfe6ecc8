package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fieldwatch/fieldwatch/internal/types"
)

// Log writes one audit entry.
func (s *Store) Log(ctx context.Context, actor types.Actor, action, entityType, entityID string, details map[string]string) error {
	row := auditEntryRow{
		Actor:      actor.String(),
		System:     actor.IsSystem(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
		Details:    details,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}

// WorkOrders is the work-order facet of the store.
type WorkOrders struct {
	db *gorm.DB
}

// WorkOrders returns the work-order store facet.
func (s *Store) WorkOrders() *WorkOrders {
	return &WorkOrders{db: s.db}
}

// Create persists a work order from the request template and returns its id.
func (w *WorkOrders) Create(ctx context.Context, req types.WorkOrderRequest, actor types.Actor) (string, error) {
	row := workOrderRow{
		ID:           uuid.NewString(),
		Summary:      req.Summary,
		Description:  req.Description,
		Priority:     req.Priority,
		Category:     req.Category,
		AssetID:      req.AssetID,
		SourceType:   req.Source.Type,
		SourceID:     req.Source.ID,
		SourceRuleID: req.Source.RuleID,
		CreatedBy:    actor.String(),
		System:       actor.IsSystem(),
		CreatedAt:    time.Now(),
	}
	if err := w.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("creating work order: %w", err)
	}
	return row.ID, nil
}

// AppendTasks attaches ordered tasks to a work order.
func (w *WorkOrders) AppendTasks(ctx context.Context, workOrderID string, tasks []types.WorkOrderTask) error {
	if len(tasks) == 0 {
		return nil
	}
	rows := make([]workOrderTaskRow, len(tasks))
	for i, task := range tasks {
		rows[i] = workOrderTaskRow{
			WorkOrderID: workOrderID,
			Description: task.Description,
			Order:       task.Order,
			Done:        task.Done,
		}
	}
	if err := w.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("appending tasks to work order %s: %w", workOrderID, err)
	}
	return nil
}

// ResolveResponsibleUsers resolves asset -> sector -> users.
func (s *Store) ResolveResponsibleUsers(ctx context.Context, assetID string) ([]string, error) {
	var userIDs []string
	err := s.db.WithContext(ctx).
		Model(&sectorUserRow{}).
		Distinct().
		Joins("JOIN asset_sectors ON asset_sectors.sector_id = sector_users.sector_id").
		Where("asset_sectors.asset_id = ?", assetID).
		Pluck("sector_users.user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("resolving responsible users for asset %s: %w", assetID, err)
	}
	return userIDs, nil
}
