package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters for the pipeline.
type Metrics struct {
	ReadingsTotal       prometheus.Counter
	ReadingsStored      prometheus.Counter
	ReadingStoreErrors  prometheus.Counter
	ReadingsDropped     prometheus.Counter
	StateTransitions    prometheus.Counter
	AlarmsFired         prometheus.Counter
	AlarmsSuppressed    prometheus.Counter
	WorkOrdersRequested prometheus.Counter
	ConnectorRestarts   prometheus.Counter
}

// New registers and returns all pipeline counters on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReadingsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldwatch_readings_total",
			Help: "Total number of readings ingested",
		}),
		ReadingsStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldwatch_readings_stored_total",
			Help: "Total number of readings durably stored",
		}),
		ReadingStoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldwatch_reading_store_errors_total",
			Help: "Total number of readings that failed durable storage",
		}),
		ReadingsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldwatch_readings_dropped_total",
			Help: "Total number of malformed or unmapped values dropped by connectors",
		}),
		StateTransitions: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldwatch_state_transitions_total",
			Help: "Total number of asset operational state transitions",
		}),
		AlarmsFired: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldwatch_alarms_fired_total",
			Help: "Total number of alarms created",
		}),
		AlarmsSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldwatch_alarms_suppressed_total",
			Help: "Total number of rule matches suppressed by an outstanding alarm",
		}),
		WorkOrdersRequested: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldwatch_work_orders_requested_total",
			Help: "Total number of work order creation requests",
		}),
		ConnectorRestarts: factory.NewCounter(prometheus.CounterOpts{
			Name: "fieldwatch_connector_restarts_total",
			Help: "Total number of connector restarts after failure",
		}),
	}
}
