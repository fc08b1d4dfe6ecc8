package store

import (
	"time"

	"github.com/fieldwatch/fieldwatch/internal/types"
)

type dataSourceRow struct {
	ID                  string `gorm:"column:id;primaryKey"`
	AssetID             string `gorm:"column:asset_id;index"`
	Protocol            string `gorm:"column:protocol"`
	Host                string `gorm:"column:host"`
	Port                int    `gorm:"column:port"`
	Active              bool   `gorm:"column:active;index"`
	PollIntervalSeconds int    `gorm:"column:poll_interval_seconds"`
	SlaveID             int    `gorm:"column:slave_id"`

	Nodes     []types.NodeMapping     `gorm:"column:nodes;serializer:json"`
	Registers []types.RegisterMapping `gorm:"column:registers;serializer:json"`
}

func (dataSourceRow) TableName() string { return "data_sources" }

type readingRow struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	AssetID   string    `gorm:"column:asset_id;index"`
	Timestamp time.Time `gorm:"column:timestamp;index"`
	Metric    string    `gorm:"column:metric"`
	Value     float64   `gorm:"column:value"`
}

func (readingRow) TableName() string { return "readings" }

type stateRecordRow struct {
	ID              uint       `gorm:"column:id;primaryKey;autoIncrement"`
	AssetID         string     `gorm:"column:asset_id;index"`
	State           string     `gorm:"column:state"`
	StartTime       time.Time  `gorm:"column:start_time"`
	EndTime         *time.Time `gorm:"column:end_time"`
	DurationSeconds float64    `gorm:"column:duration_seconds"`
}

func (stateRecordRow) TableName() string { return "asset_state_history" }

type alarmRuleRow struct {
	ID        string  `gorm:"column:id;primaryKey"`
	AssetID   string  `gorm:"column:asset_id;index"`
	Metric    string  `gorm:"column:metric"`
	Condition string  `gorm:"column:condition"`
	Threshold float64 `gorm:"column:threshold"`
	Severity  string  `gorm:"column:severity"`
	Enabled   bool    `gorm:"column:enabled;index"`
}

func (alarmRuleRow) TableName() string { return "alarm_rules" }

type alarmRow struct {
	ID             string     `gorm:"column:id;primaryKey"`
	RuleID         string     `gorm:"column:rule_id;index"`
	AssetID        string     `gorm:"column:asset_id;index"`
	TriggeredAt    time.Time  `gorm:"column:triggered_at"`
	Value          float64    `gorm:"column:triggering_value"`
	Status         string     `gorm:"column:status;index"`
	AcknowledgedAt *time.Time `gorm:"column:acknowledged_at"`
}

func (alarmRow) TableName() string { return "alarms" }

type maintenancePlanRow struct {
	ID              string     `gorm:"column:id;primaryKey"`
	AssetID         string     `gorm:"column:asset_id;index"`
	TriggerType     string     `gorm:"column:trigger_type"`
	IntervalDays    int        `gorm:"column:interval_days"`
	LastExecutedAt  *time.Time `gorm:"column:last_execution_at"`
	Active          bool       `gorm:"column:active;index"`
	SummaryTemplate string     `gorm:"column:summary_template"`
	Description     string     `gorm:"column:description"`
	Priority        string     `gorm:"column:priority"`
	Category        string     `gorm:"column:category"`

	Tasks []types.TaskTemplate `gorm:"column:tasks;serializer:json"`
}

func (maintenancePlanRow) TableName() string { return "maintenance_plans" }

type auditEntryRow struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Actor      string    `gorm:"column:actor"`
	System     bool      `gorm:"column:system_initiated"`
	Action     string    `gorm:"column:action;index"`
	EntityType string    `gorm:"column:entity_type"`
	EntityID   string    `gorm:"column:entity_id;index"`
	CreatedAt  time.Time `gorm:"column:created_at"`

	Details map[string]string `gorm:"column:details;serializer:json"`
}

func (auditEntryRow) TableName() string { return "audit_entries" }

type workOrderRow struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Summary      string    `gorm:"column:summary"`
	Description  string    `gorm:"column:description"`
	Priority     string    `gorm:"column:priority"`
	Category     string    `gorm:"column:category"`
	AssetID      string    `gorm:"column:asset_id;index"`
	SourceType   string    `gorm:"column:source_type"`
	SourceID     string    `gorm:"column:source_id;index"`
	SourceRuleID string    `gorm:"column:source_rule_id"`
	CreatedBy    string    `gorm:"column:created_by"`
	System       bool      `gorm:"column:system_initiated"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (workOrderRow) TableName() string { return "work_orders" }

type workOrderTaskRow struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement"`
	WorkOrderID string `gorm:"column:work_order_id;index"`
	Description string `gorm:"column:description"`
	Order       int    `gorm:"column:task_order"`
	Done        bool   `gorm:"column:done"`
}

func (workOrderTaskRow) TableName() string { return "work_order_tasks" }

type assetSectorRow struct {
	AssetID  string `gorm:"column:asset_id;primaryKey"`
	SectorID string `gorm:"column:sector_id;index"`
}

func (assetSectorRow) TableName() string { return "asset_sectors" }

type sectorUserRow struct {
	SectorID string `gorm:"column:sector_id;primaryKey"`
	UserID   string `gorm:"column:user_id;primaryKey"`
}

func (sectorUserRow) TableName() string { return "sector_users" }
