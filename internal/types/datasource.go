package types

import "time"

// Protocol identifies the field protocol a data source speaks.
type Protocol string

const (
	ProtocolOPCUA  Protocol = "opcua"
	ProtocolModbus Protocol = "modbus"
)

// DataSource is a configured connection to one field device. It is created
// and edited by the surrounding configuration CRUD; the pipeline treats it
// as read-only and reacts to the Active flag through Manager.Reconcile.
type DataSource struct {
	ID           string
	AssetID      string
	Protocol     Protocol
	Host         string
	Port         int
	Active       bool
	PollInterval time.Duration
	SlaveID      byte

	// Nodes maps OPC-UA node ids to metric names (subscription variant).
	Nodes []NodeMapping
	// Registers maps Modbus holding registers to metric names (polling variant).
	Registers []RegisterMapping
}

// NodeMapping binds one remote OPC-UA node to a canonical metric name.
type NodeMapping struct {
	NodeID string
	Metric string
}

// RegisterMapping binds one Modbus holding register to a canonical metric
// name. Scale is applied to the decoded value; zero means 1.
type RegisterMapping struct {
	Address  uint16
	DataType string
	Metric   string
	Scale    float64
}
