package entities

import "time"

// MonitorEventType is the upward event vocabulary of an activity source
type MonitorEventType string

const (
	EventConnected    MonitorEventType = "connected"
	EventDisconnected MonitorEventType = "disconnected"
	EventError        MonitorEventType = "error"
	EventTransaction  MonitorEventType = "transaction"
)

// MonitorEvent is published on the event bus
type MonitorEvent struct {
	Type     MonitorEventType `json:"type"`
	Strategy string           `json:"strategy"`
	Transfer *TransferEvent   `json:"transfer,omitempty"`
	Error    string           `json:"error,omitempty"`
	At       time.Time        `json:"at"`
}

// MonitorStatus is the status() query result of an activity source
type MonitorStatus struct {
	Running         bool   `json:"running"`
	Connected       bool   `json:"connected"`
	WalletCount     int    `json:"wallet_count"`
	CredentialCount int    `json:"credential_count"`
	Strategy        string `json:"strategy"`
}
