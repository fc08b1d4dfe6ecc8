// Package alarm evaluates readings against the enabled rule set and manages
// the alarm lifecycle, deduplication and escalation side effects.
package alarm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fieldwatch/fieldwatch/internal/collab"
	"github.com/fieldwatch/fieldwatch/internal/metrics"
	"github.com/fieldwatch/fieldwatch/internal/types"
)

var (
	// ErrNotFound is returned when the alarm id is unknown.
	ErrNotFound = errors.New("alarm not found")
	// ErrNotApplicable is returned when the alarm is not in a state the
	// requested transition applies to.
	ErrNotApplicable = errors.New("alarm not in an applicable state")
)

// RuleSource provides the enabled rule set for snapshot rebuilds.
type RuleSource interface {
	ListEnabledAlarmRules(ctx context.Context) ([]types.AlarmRule, error)
}

// Engine holds the rule snapshot and drives alarm creation, deduplication
// and side effects. The snapshot is replaced wholesale by Reload and read
// lock-free by every evaluation call.
type Engine struct {
	log        zerolog.Logger
	rules      RuleSource
	alarms     collab.AlarmStore
	audit      collab.Audit
	notifier   collab.Notifier
	workorders collab.WorkOrders
	directory  collab.Directory
	metrics    *metrics.Metrics
	now        func() time.Time

	snap atomic.Pointer[snapshot]

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates an engine with an empty rule snapshot; call Reload to
// populate it. metrics may be nil.
func NewEngine(rules RuleSource, alarms collab.AlarmStore, audit collab.Audit, notifier collab.Notifier, workorders collab.WorkOrders, directory collab.Directory, log zerolog.Logger, m *metrics.Metrics) *Engine {
	e := &Engine{
		log:        log.With().Str("component", "alarm-engine").Logger(),
		rules:      rules,
		alarms:     alarms,
		audit:      audit,
		notifier:   notifier,
		workorders: workorders,
		directory:  directory,
		metrics:    m,
		now:        time.Now,
		locks:      make(map[string]*sync.Mutex),
	}
	e.snap.Store(buildSnapshot(nil))
	return e
}

// Reload rebuilds the rule snapshot from the rule source. Invoked after any
// rule create, update or delete; in-flight evaluations keep reading the
// snapshot they loaded.
func (e *Engine) Reload(ctx context.Context) error {
	rules, err := e.rules.ListEnabledAlarmRules(ctx)
	if err != nil {
		return fmt.Errorf("listing enabled alarm rules: %w", err)
	}
	snap := buildSnapshot(rules)
	e.snap.Store(snap)
	e.log.Info().Int("rules", snap.count).Msg("Rule snapshot reloaded")
	return nil
}

// Evaluate checks one reading against every enabled rule matching its asset
// and metric. A true condition creates a new ACTIVE alarm unless the rule
// already has an outstanding (non-CLEARED) one.
func (e *Engine) Evaluate(ctx context.Context, r types.CanonicalReading) {
	snap := e.snap.Load()
	for _, rule := range snap.match(r.AssetID, r.Metric) {
		if !rule.Condition.Match(r.Value, rule.Threshold) {
			continue
		}
		e.fire(ctx, rule, r)
	}
}

// fire creates the alarm for one matched rule. Readings for different rules
// may fire fully in parallel; firings for the same rule are serialized by a
// per-rule lock so only one caller can pass the dedup lookup and create.
func (e *Engine) fire(ctx context.Context, rule types.AlarmRule, r types.CanonicalReading) {
	lock := e.ruleLock(rule.ID)
	lock.Lock()
	defer lock.Unlock()

	open, err := e.alarms.HasOpenAlarm(ctx, rule.ID)
	if err != nil {
		e.log.Error().
			Err(err).
			Str("rule", rule.ID).
			Msg("Dedup lookup failed, skipping evaluation")
		return
	}
	if open {
		if e.metrics != nil {
			e.metrics.AlarmsSuppressed.Inc()
		}
		e.log.Debug().
			Str("rule", rule.ID).
			Msg("Alarm already outstanding, skipping duplicate")
		return
	}

	alarm := types.Alarm{
		ID:          uuid.NewString(),
		RuleID:      rule.ID,
		AssetID:     rule.AssetID,
		TriggeredAt: e.now(),
		Value:       r.Value,
		Status:      types.AlarmActive,
	}
	if err := e.alarms.Create(ctx, alarm); err != nil {
		e.log.Error().
			Err(err).
			Str("rule", rule.ID).
			Msg("Failed to create alarm")
		return
	}

	if e.metrics != nil {
		e.metrics.AlarmsFired.Inc()
	}
	e.log.Info().
		Str("alarm", alarm.ID).
		Str("rule", rule.ID).
		Str("asset", rule.AssetID).
		Str("severity", rule.Severity).
		Float64("value", r.Value).
		Msg("Alarm fired")

	// Side effects are each independently best-effort: a failing
	// collaborator is logged and never rolls back the alarm.
	e.auditAlarm(ctx, alarm, rule)
	e.notifyResponsibleUsers(ctx, alarm, rule)
	if strings.EqualFold(rule.Severity, types.SeverityCritical) {
		e.requestCorrectiveWorkOrder(ctx, alarm, rule)
	}
}

func (e *Engine) auditAlarm(ctx context.Context, alarm types.Alarm, rule types.AlarmRule) {
	details := map[string]string{
		"rule_id":  rule.ID,
		"asset_id": rule.AssetID,
		"metric":   rule.Metric,
		"value":    fmt.Sprintf("%g", alarm.Value),
		"severity": rule.Severity,
	}
	if err := e.audit.Log(ctx, types.SystemActor(), "alarm.created", "alarm", alarm.ID, details); err != nil {
		e.log.Error().Err(err).Str("alarm", alarm.ID).Msg("Failed to write audit entry")
	}
}

func (e *Engine) notifyResponsibleUsers(ctx context.Context, alarm types.Alarm, rule types.AlarmRule) {
	users, err := e.directory.ResolveResponsibleUsers(ctx, rule.AssetID)
	if err != nil {
		e.log.Error().
			Err(err).
			Str("asset", rule.AssetID).
			Msg("Failed to resolve responsible users")
		return
	}

	message := fmt.Sprintf("Alarm on asset %s: %s %s %g (value %g)",
		rule.AssetID, rule.Metric, rule.Condition, rule.Threshold, alarm.Value)
	for _, userID := range users {
		if err := e.notifier.NotifyUser(ctx, userID, message, "alarm", alarm.ID); err != nil {
			e.log.Error().
				Err(err).
				Str("user", userID).
				Str("alarm", alarm.ID).
				Msg("Failed to notify user")
		}
	}
}

func (e *Engine) requestCorrectiveWorkOrder(ctx context.Context, alarm types.Alarm, rule types.AlarmRule) {
	req := types.WorkOrderRequest{
		Summary:     fmt.Sprintf("Corrective action for alarm on asset %s", rule.AssetID),
		Description: fmt.Sprintf("Rule %s fired: %s %s %g, observed %g", rule.ID, rule.Metric, rule.Condition, rule.Threshold, alarm.Value),
		Priority:    types.PriorityUrgent,
		Category:    types.CategoryCorrective,
		AssetID:     rule.AssetID,
		Source: types.SourceTrigger{
			Type:   types.TriggerAlarm,
			ID:     alarm.ID,
			RuleID: rule.ID,
		},
	}

	id, err := e.workorders.Create(ctx, req, types.SystemActor())
	if err != nil {
		e.log.Error().
			Err(err).
			Str("alarm", alarm.ID).
			Msg("Failed to request corrective work order")
		return
	}

	if e.metrics != nil {
		e.metrics.WorkOrdersRequested.Inc()
	}
	e.log.Info().
		Str("alarm", alarm.ID).
		Str("work_order", id).
		Msg("Corrective work order requested")
}

func (e *Engine) ruleLock(ruleID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[ruleID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[ruleID] = lock
	}
	return lock
}

// Acknowledge transitions an alarm from ACTIVE to ACKNOWLEDGED. Any other
// current status returns ErrNotApplicable and writes no audit entry.
func (e *Engine) Acknowledge(ctx context.Context, alarmID string, actor types.Actor) error {
	alarm, err := e.alarms.Get(ctx, alarmID)
	if errors.Is(err, collab.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, alarmID)
	}
	if err != nil {
		return fmt.Errorf("loading alarm %s: %w", alarmID, err)
	}
	if alarm.Status != types.AlarmActive {
		return ErrNotApplicable
	}

	at := e.now()
	if err := e.alarms.SetAcknowledged(ctx, alarmID, at); err != nil {
		return fmt.Errorf("acknowledging alarm %s: %w", alarmID, err)
	}

	e.log.Info().
		Str("alarm", alarmID).
		Str("actor", actor.String()).
		Msg("Alarm acknowledged")

	if err := e.audit.Log(ctx, actor, "alarm.acknowledged", "alarm", alarmID, nil); err != nil {
		e.log.Error().Err(err).Str("alarm", alarmID).Msg("Failed to write audit entry")
	}
	return nil
}
