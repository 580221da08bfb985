package events

import "time"

// AllocationComputedEvent is published after every recomputation.
type AllocationComputedEvent struct {
	StationID    string
	Allocations  map[string]float64
	RealizedLoad float64
	BudgetTotal  float64
	Fairness     float64
	Time         time.Time
}

// BessActionEvent is published whenever the battery controller applies a
// charge, discharge, or idle decision.
type BessActionEvent struct {
	StationID string
	Action    string // "discharge", "charge", "idle"
	PowerKw   float64
	Soc       float64
	Time      time.Time
}
