package events

import "time"

// SessionStartedEvent is published when a session is successfully started.
type SessionStartedEvent struct {
	StationID   string
	SessionID   string
	ChargerID   string
	ConnectorID int
	Time        time.Time
}

// SessionStoppedEvent is published when a session is stopped.
type SessionStoppedEvent struct {
	StationID      string
	SessionID      string
	ChargerID      string
	ConnectorID    int
	FinalAllocated float64
	TotalEnergy    float64
	Time           time.Time
}

// PowerUpdatedEvent is published when a session reports new consumption.
type PowerUpdatedEvent struct {
	StationID     string
	SessionID     string
	ConsumedPower float64
	TotalEnergy   float64
	Time          time.Time
}
