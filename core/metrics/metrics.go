// Package metrics defines the sink interface and domain event types used to
// report allocation and battery activity for observability purposes. Sinks
// implement MetricsSink plus any of the optional recorder interfaces they
// support; a sink that implements none of the optional interfaces still
// satisfies MetricsSink and silently drops events it cannot record.
package metrics

import "time"

// AllocationEvent is recorded after every allocator recomputation.
type AllocationEvent struct {
	StationID    string
	ActiveCount  int
	RealizedLoad float64
	BudgetTotal  float64
	Fairness     float64
	Time         time.Time
}

// MetricsSink records allocation events for observability purposes.
type MetricsSink interface {
	RecordAllocation(ev AllocationEvent) error
}

// BessStateEvent is a snapshot of the battery after a policy decision.
type BessStateEvent struct {
	StationID   string
	Action      string // "discharge", "charge", "idle"
	PowerKw     float64
	Soc         float64
	SocFraction float64
	Time        time.Time
}

// BessStateRecorder records battery state snapshots.
type BessStateRecorder interface {
	RecordBessState(ev BessStateEvent) error
}

// SessionLifecycleEvent records a session start or stop.
type SessionLifecycleEvent struct {
	StationID   string
	SessionID   string
	ChargerID   string
	ConnectorID int
	Action      string // "started", "stopped"
	TotalEnergy float64
	Time        time.Time
}

// SessionLifecycleRecorder records session lifecycle transitions.
type SessionLifecycleRecorder interface {
	RecordSessionLifecycle(ev SessionLifecycleEvent) error
}

// RecomputeLatency records how long one allocator recomputation took.
type RecomputeLatency struct {
	StationID string
	Duration  time.Duration
	Time      time.Time
}

// LatencyRecorder is implemented by sinks able to record recompute latency.
type LatencyRecorder interface {
	RecordRecomputeLatency(lat RecomputeLatency) error
}

// NopSink implements MetricsSink and every optional recorder interface with
// no-op methods. It is the zero-value default when no sink is configured.
type NopSink struct{}

func (NopSink) RecordAllocation(AllocationEvent) error             { return nil }
func (NopSink) RecordBessState(BessStateEvent) error                { return nil }
func (NopSink) RecordSessionLifecycle(SessionLifecycleEvent) error { return nil }
func (NopSink) RecordRecomputeLatency(RecomputeLatency) error      { return nil }
