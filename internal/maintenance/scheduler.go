// Package maintenance evaluates time-based maintenance plans on a fixed
// cadence and generates preventive work orders from their templates.
package maintenance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldwatch/fieldwatch/internal/collab"
	"github.com/fieldwatch/fieldwatch/internal/types"
)

// PlanSource lists the plans eligible for evaluation.
type PlanSource interface {
	ListActiveMaintenancePlans(ctx context.Context) ([]types.MaintenancePlan, error)
}

// Scheduler periodically turns due maintenance plans into work orders.
type Scheduler struct {
	log        zerolog.Logger
	plans      PlanSource
	bookkeeper collab.MaintenancePlans
	workorders collab.WorkOrders
	interval   time.Duration
	now        func() time.Time
}

// NewScheduler creates a scheduler evaluating plans every interval.
func NewScheduler(plans PlanSource, bookkeeper collab.MaintenancePlans, workorders collab.WorkOrders, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		log:        log.With().Str("component", "maintenance-scheduler").Logger(),
		plans:      plans,
		bookkeeper: bookkeeper,
		workorders: workorders,
		interval:   interval,
		now:        time.Now,
	}
}

// Run evaluates once immediately, then on every tick until the context is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce evaluates every active time-based plan and returns how many work
// orders were generated. A failure generating one plan's order is logged,
// leaves the plan's last execution untouched so it is retried next run, and
// never aborts the remaining plans.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	now := s.now()

	plans, err := s.plans.ListActiveMaintenancePlans(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list maintenance plans")
		return 0
	}

	generated := 0
	for _, plan := range plans {
		if plan.TriggerType != types.TriggerTimeBased || !plan.Due(now) {
			continue
		}
		if err := s.generate(ctx, plan, now); err != nil {
			s.log.Error().
				Err(err).
				Str("plan", plan.ID).
				Str("asset", plan.AssetID).
				Msg("Failed to generate work order for plan")
			continue
		}
		generated++
	}

	if generated > 0 {
		s.log.Info().Int("work_orders", generated).Msg("Maintenance run complete")
	}
	return generated
}

func (s *Scheduler) generate(ctx context.Context, plan types.MaintenancePlan, now time.Time) error {
	category := plan.Category
	if category == "" {
		category = types.CategoryPreventive
	}

	req := types.WorkOrderRequest{
		Summary:     plan.SummaryTemplate,
		Description: plan.Description,
		Priority:    plan.Priority,
		Category:    category,
		AssetID:     plan.AssetID,
		Source: types.SourceTrigger{
			Type: types.TriggerMaintenancePlan,
			ID:   plan.ID,
		},
	}

	id, err := s.workorders.Create(ctx, req, types.SystemActor())
	if err != nil {
		return fmt.Errorf("creating work order: %w", err)
	}

	if len(plan.Tasks) > 0 {
		tasks := make([]types.WorkOrderTask, len(plan.Tasks))
		templates := append([]types.TaskTemplate(nil), plan.Tasks...)
		sort.SliceStable(templates, func(i, j int) bool { return templates[i].Order < templates[j].Order })
		for i, tmpl := range templates {
			tasks[i] = types.WorkOrderTask{Description: tmpl.Description, Order: tmpl.Order}
		}
		if err := s.workorders.AppendTasks(ctx, id, tasks); err != nil {
			return fmt.Errorf("appending tasks to work order %s: %w", id, err)
		}
	}

	if err := s.bookkeeper.MarkExecuted(ctx, plan.ID, now); err != nil {
		return fmt.Errorf("marking plan executed: %w", err)
	}

	s.log.Info().
		Str("plan", plan.ID).
		Str("work_order", id).
		Int("tasks", len(plan.Tasks)).
		Msg("Preventive work order generated")
	return nil
}
