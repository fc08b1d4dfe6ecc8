package connector

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"

	"github.com/fieldwatch/fieldwatch/internal/types"
)

// modbusConnector is the polling variant: every poll interval it connects,
// reads each mapped holding register once and emits one reading per register
// that read successfully. Registers that error are skipped and logged, not
// retried within the cycle. A cycle-level connection error doubles the wait
// before the next cycle, capped, and retries until cancelled.
type modbusConnector struct {
	src  types.DataSource
	emit EmitFunc
	log  zerolog.Logger
	opts Options
}

func newModbusConnector(src types.DataSource, emit EmitFunc, log zerolog.Logger, opts Options) *modbusConnector {
	return &modbusConnector{src: src, emit: emit, log: log, opts: opts}
}

func (c *modbusConnector) Run(ctx context.Context) error {
	interval := c.src.PollInterval
	if interval <= 0 {
		interval = c.opts.PollInterval
	}
	maxWait := interval * maxPollBackoffMultiple
	wait := interval

	for {
		readings, err := c.pollOnce()
		if err != nil {
			wait = wait * 2
			if wait > maxWait {
				wait = maxWait
			}
			c.log.Warn().
				Err(err).
				Dur("next_cycle_in", wait).
				Msg("Modbus poll cycle failed, backing off")
		} else {
			wait = interval
			if len(readings) > 0 {
				c.emit(readings)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// pollOnce opens a connection, reads each mapped register and closes the
// session. Each request is bounded by the dial timeout.
func (c *modbusConnector) pollOnce() ([]types.CanonicalReading, error) {
	handler := modbus.NewTCPClientHandler(fmt.Sprintf("%s:%d", c.src.Host, c.src.Port))
	handler.Timeout = c.opts.DialTimeout
	handler.SlaveId = c.src.SlaveID

	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("modbus connect: %w", err)
	}
	defer handler.Close()

	client := modbus.NewClient(handler)
	now := time.Now()

	readings := make([]types.CanonicalReading, 0, len(c.src.Registers))
	for _, reg := range c.src.Registers {
		raw, err := client.ReadHoldingRegisters(reg.Address, registerQuantity(reg.DataType))
		if err != nil {
			c.opts.countDropped()
			c.log.Warn().
				Err(err).
				Uint16("address", reg.Address).
				Str("metric", reg.Metric).
				Msg("Register read failed, skipping")
			continue
		}

		value, err := decodeRegisters(raw, reg.DataType)
		if err != nil {
			c.opts.countDropped()
			c.log.Warn().
				Err(err).
				Uint16("address", reg.Address).
				Str("metric", reg.Metric).
				Msg("Malformed register value, dropping")
			continue
		}
		if reg.Scale != 0 {
			value *= reg.Scale
		}

		readings = append(readings, types.CanonicalReading{
			AssetID:   c.src.AssetID,
			Timestamp: now,
			Metric:    reg.Metric,
			Value:     value,
		})
	}

	return readings, nil
}

// registerQuantity returns how many 16-bit registers the data type spans.
func registerQuantity(dataType string) uint16 {
	switch dataType {
	case "uint32", "int32", "float32":
		return 2
	default:
		return 1
	}
}

// decodeRegisters interprets big-endian register bytes per the mapped data type.
func decodeRegisters(raw []byte, dataType string) (float64, error) {
	switch dataType {
	case "", "uint16":
		if len(raw) < 2 {
			return 0, fmt.Errorf("short read: %d bytes", len(raw))
		}
		return float64(binary.BigEndian.Uint16(raw)), nil
	case "int16":
		if len(raw) < 2 {
			return 0, fmt.Errorf("short read: %d bytes", len(raw))
		}
		return float64(int16(binary.BigEndian.Uint16(raw))), nil
	case "uint32":
		if len(raw) < 4 {
			return 0, fmt.Errorf("short read: %d bytes", len(raw))
		}
		return float64(binary.BigEndian.Uint32(raw)), nil
	case "int32":
		if len(raw) < 4 {
			return 0, fmt.Errorf("short read: %d bytes", len(raw))
		}
		return float64(int32(binary.BigEndian.Uint32(raw))), nil
	case "float32":
		if len(raw) < 4 {
			return 0, fmt.Errorf("short read: %d bytes", len(raw))
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(raw))), nil
	default:
		return 0, fmt.Errorf("unsupported data type %q", dataType)
	}
}
