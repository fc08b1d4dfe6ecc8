package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
	"github.com/rs/zerolog"

	"github.com/fieldwatch/fieldwatch/internal/types"
)

const subscriptionInterval = time.Second

// opcuaConnector is the subscription variant: it opens one OPC-UA session,
// registers monitored items for the configured node map and emits a reading
// per value change. On session failure it logs and terminates; restarting is
// the Manager's responsibility.
type opcuaConnector struct {
	src  types.DataSource
	emit EmitFunc
	log  zerolog.Logger
	opts Options
}

func newOPCUAConnector(src types.DataSource, emit EmitFunc, log zerolog.Logger, opts Options) *opcuaConnector {
	return &opcuaConnector{src: src, emit: emit, log: log, opts: opts}
}

func (c *opcuaConnector) Run(ctx context.Context) error {
	endpoint := fmt.Sprintf("opc.tcp://%s:%d", c.src.Host, c.src.Port)

	client, err := opcua.NewClient(endpoint,
		opcua.SecurityMode(ua.MessageSecurityModeNone),
		opcua.DialTimeout(c.opts.DialTimeout),
	)
	if err != nil {
		return fmt.Errorf("opcua client: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	err = client.Connect(connectCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("opcua connect %s: %w", endpoint, err)
	}
	defer client.Close(ctx)

	c.log.Info().Str("endpoint", endpoint).Msg("OPC-UA session established")

	notifyCh := make(chan *opcua.PublishNotificationData, 64)
	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: subscriptionInterval,
	}, notifyCh)
	if err != nil {
		return fmt.Errorf("opcua subscribe: %w", err)
	}
	defer sub.Cancel(ctx)

	metricByHandle, err := c.monitorNodes(ctx, sub)
	if err != nil {
		return err
	}
	if len(metricByHandle) == 0 {
		return fmt.Errorf("source %s: no monitorable nodes", c.src.ID)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-notifyCh:
			if msg.Error != nil {
				return fmt.Errorf("opcua publish: %w", msg.Error)
			}
			c.handleNotification(msg, metricByHandle)
		}
	}
}

// monitorNodes registers one monitored item per mapped node. Unparseable
// node ids are dropped with a warning, not fatal to the session.
func (c *opcuaConnector) monitorNodes(ctx context.Context, sub *opcua.Subscription) (map[uint32]string, error) {
	metricByHandle := make(map[uint32]string, len(c.src.Nodes))
	requests := make([]*ua.MonitoredItemCreateRequest, 0, len(c.src.Nodes))

	for i, node := range c.src.Nodes {
		id, err := ua.ParseNodeID(node.NodeID)
		if err != nil {
			c.log.Warn().
				Err(err).
				Str("node_id", node.NodeID).
				Str("metric", node.Metric).
				Msg("Unparseable node id, dropping")
			continue
		}
		handle := uint32(i)
		metricByHandle[handle] = node.Metric
		requests = append(requests, opcua.NewMonitoredItemCreateRequestWithDefaults(id, ua.AttributeIDValue, handle))
	}

	if len(requests) == 0 {
		return metricByHandle, nil
	}
	if _, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, requests...); err != nil {
		return nil, fmt.Errorf("opcua monitor: %w", err)
	}
	return metricByHandle, nil
}

// handleNotification turns one data-change notification into a batch of
// canonical readings, tagged with the source timestamp when available.
func (c *opcuaConnector) handleNotification(msg *opcua.PublishNotificationData, metricByHandle map[uint32]string) {
	change, ok := msg.Value.(*ua.DataChangeNotification)
	if !ok {
		return
	}

	readings := make([]types.CanonicalReading, 0, len(change.MonitoredItems))
	for _, item := range change.MonitoredItems {
		metric, ok := metricByHandle[item.ClientHandle]
		if !ok {
			c.opts.countDropped()
			c.log.Warn().
				Uint32("client_handle", item.ClientHandle).
				Msg("Update for unmapped monitored item, dropping")
			continue
		}
		if item.Value == nil || item.Value.Value == nil {
			continue
		}

		value, ok := numericValue(item.Value.Value.Value())
		if !ok {
			c.opts.countDropped()
			c.log.Warn().
				Str("metric", metric).
				Interface("value", item.Value.Value.Value()).
				Msg("Non-numeric value, dropping")
			continue
		}

		ts := item.Value.SourceTimestamp
		if ts.IsZero() {
			ts = time.Now()
		}

		readings = append(readings, types.CanonicalReading{
			AssetID:   c.src.AssetID,
			Timestamp: ts,
			Metric:    metric,
			Value:     value,
		})
	}

	if len(readings) > 0 {
		c.emit(readings)
	}
}

// numericValue normalizes the variant types a server may publish.
func numericValue(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
