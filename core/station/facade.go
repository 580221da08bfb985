// Package station implements the in-process façade consumed by external
// collaborators (HTTP layer, CLI, tests): the single entry point that wires
// the registry, the allocator, and the battery controller together and
// recomputes allocations synchronously after every mutating call.
package station

import (
	"sync"
	"time"

	"github.com/kilianp07/stationcore/core/allocator"
	"github.com/kilianp07/stationcore/core/bess"
	"github.com/kilianp07/stationcore/core/events"
	"github.com/kilianp07/stationcore/core/logger"
	"github.com/kilianp07/stationcore/core/model"
	"github.com/kilianp07/stationcore/core/registry"
)

// Status strings returned by the façade, matching the reference controller
// vocabulary.
const (
	StatusSessionStarted           = "SESSION_STARTED"
	StatusInvalidChargerOrConn     = "INVALID_CHARGER_OR_CONNECTOR"
	StatusConnectorOccupied        = "CONNECTOR_OCCUPIED"
	StatusSessionStartFailed       = "SESSION_START_FAILED"
	StatusPowerUpdated             = "POWER_UPDATED"
	StatusSessionNotFound          = "SESSION_NOT_FOUND"
	StatusInvalidConsumedPower     = "INVALID_CONSUMED_POWER"
	StatusOK                       = "OK"
	StatusInternalError            = "INTERNAL_ERROR"
)

// Facade is the control core's single entry point.
type Facade struct {
	// recomputeMu serializes the mutate-then-recompute sequence so that a
	// successful mutation is always followed by a recomputation before this
	// call returns control, per the propagation policy.
	recomputeMu sync.Mutex

	station  model.StationConfig
	registry *registry.Registry
	battery  *bess.Controller
	alloc    *allocator.Allocator
	bus      *events.Bus
	log      logger.Logger
}

// New constructs a Facade for the given station configuration. now is the
// startup time, used to initialize the battery at full charge if present.
func New(station model.StationConfig, now time.Time, log logger.Logger) *Facade {
	var battery *bess.Controller
	if station.Battery != nil {
		battery = bess.New(bess.Config{Capacity: station.Battery.Capacity, Power: station.Battery.Power}, now)
	}

	reg := registry.New()
	f := &Facade{
		station:  station,
		registry: reg,
		battery:  battery,
		alloc:    allocator.New(station, batteryOrNil(battery), log),
		bus:      events.NewBus(),
		log:      log,
	}
	return f
}

func batteryOrNil(b *bess.Controller) allocator.Battery {
	if b == nil {
		return nil
	}
	return b
}

// Events returns a subscription channel for every event the façade emits.
func (f *Facade) Events() <-chan any { return f.bus.Subscribe() }

// StartSessionResult is the return value of StartSession.
type StartSessionResult struct {
	SessionID      string
	AllocatedPower float64
	TotalEnergy    float64
	Status         string
}

// StartSession registers a new session on (chargerID, connectorID) and
// recomputes allocations before returning.
func (f *Facade) StartSession(chargerID string, connectorID int, vehicleMaxPower float64) StartSessionResult {
	f.recomputeMu.Lock()
	defer f.recomputeMu.Unlock()

	now := time.Now()
	charger, ok := f.station.ChargerByID(chargerID)
	if !ok {
		return StartSessionResult{Status: StatusInvalidChargerOrConn}
	}

	sess, err := f.registry.Start(charger, connectorID, vehicleMaxPower, now)
	if err != nil {
		switch err {
		case model.ErrInvalidConnector:
			return StartSessionResult{Status: StatusInvalidChargerOrConn}
		case model.ErrConnectorOccupied:
			return StartSessionResult{Status: StatusConnectorOccupied}
		default:
			if f.log != nil {
				f.log.Errorf("station: start session failed: %v", err)
			}
			return StartSessionResult{Status: StatusSessionStartFailed}
		}
	}

	f.recompute(now)
	f.bus.Publish(events.SessionStartedEvent{
		StationID: f.station.StationID, SessionID: sess.ID(), ChargerID: sess.ChargerID(), ConnectorID: sess.ConnectorID(), Time: now,
	})

	snap, _ := f.registry.Get(sess.ID())
	return StartSessionResult{
		SessionID:      snap.ID,
		AllocatedPower: snap.AllocatedPower,
		TotalEnergy:    snap.TotalEnergy,
		Status:         StatusSessionStarted,
	}
}

// UpdatePowerResult is the return value of UpdatePower.
type UpdatePowerResult struct {
	NewAllocatedPower float64
	TotalEnergy       float64
	Status            string
}

// UpdatePower records a session's reported consumption and recomputes
// allocations before returning.
func (f *Facade) UpdatePower(sessionID string, consumedPower, vehicleMaxPower float64) UpdatePowerResult {
	f.recomputeMu.Lock()
	defer f.recomputeMu.Unlock()

	now := time.Now()
	snap, err := f.registry.UpdatePower(sessionID, consumedPower, vehicleMaxPower, now)
	if err != nil {
		switch err {
		case model.ErrSessionNotFound:
			return UpdatePowerResult{Status: StatusSessionNotFound}
		case model.ErrInvalidInput:
			// Leave state unchanged; return current allocated power so the
			// caller can resynchronize.
			current, getErr := f.registry.Get(sessionID)
			if getErr != nil {
				return UpdatePowerResult{Status: StatusSessionNotFound}
			}
			return UpdatePowerResult{NewAllocatedPower: current.AllocatedPower, TotalEnergy: current.TotalEnergy, Status: StatusInvalidConsumedPower}
		default:
			return UpdatePowerResult{Status: StatusInternalError}
		}
	}

	f.recompute(now)
	f.bus.Publish(events.PowerUpdatedEvent{StationID: f.station.StationID, SessionID: sessionID, ConsumedPower: consumedPower, TotalEnergy: snap.TotalEnergy, Time: now})

	final, _ := f.registry.Get(sessionID)
	return UpdatePowerResult{NewAllocatedPower: final.AllocatedPower, TotalEnergy: final.TotalEnergy, Status: StatusPowerUpdated}
}

// StopSessionResult is the return value of StopSession.
type StopSessionResult struct {
	ChargerID           string
	ConnectorID         int
	FinalAllocatedPower float64
	LastConsumedPower   float64
	StopTime            time.Time
	Status              string
}

// StopSession removes a session from the registry and recomputes
// allocations among the remaining sessions before returning.
func (f *Facade) StopSession(sessionID string) StopSessionResult {
	f.recomputeMu.Lock()
	defer f.recomputeMu.Unlock()

	now := time.Now()
	snap, err := f.registry.Stop(sessionID, now)
	if err != nil {
		return StopSessionResult{Status: StatusSessionNotFound}
	}

	f.recompute(now)
	f.bus.Publish(events.SessionStoppedEvent{
		StationID: f.station.StationID, SessionID: sessionID, ChargerID: snap.ChargerID, ConnectorID: snap.ConnectorID,
		FinalAllocated: snap.AllocatedPower, TotalEnergy: snap.TotalEnergy, Time: now,
	})

	return StopSessionResult{
		ChargerID:           snap.ChargerID,
		ConnectorID:         snap.ConnectorID,
		FinalAllocatedPower: snap.AllocatedPower,
		LastConsumedPower:   snap.ConsumedPower,
		StopTime:            now,
		Status:              StatusOK,
	}
}

// GetSession returns a single session's current snapshot.
func (f *Facade) GetSession(sessionID string) (model.Snapshot, bool) {
	snap, err := f.registry.Get(sessionID)
	if err != nil {
		return model.Snapshot{}, false
	}
	return snap, true
}

// ListSessions returns every active session's current snapshot.
func (f *Facade) ListSessions() []model.Snapshot {
	return f.registry.Snapshot()
}

// BatteryBlock is the optional battery summary embedded in StationStatus.
type BatteryBlock struct {
	Soc      float64
	Capacity float64
	MaxPower float64
}

// StationStatusResult is the return value of StationStatus.
type StationStatusResult struct {
	StationID       string
	GridCapacity    float64
	ActiveSessions  int
	TotalAllocated  float64
	TotalConsumed   float64
	Allocations     map[string]float64
	Battery         *BatteryBlock
}

// StationStatus reports the station's current aggregate state.
func (f *Facade) StationStatus() StationStatusResult {
	sessions := f.registry.Snapshot()
	totals := f.registry.Totals()

	allocations := make(map[string]float64, len(sessions))
	for _, s := range sessions {
		allocations[s.ID] = s.AllocatedPower
	}

	res := StationStatusResult{
		StationID:      f.station.StationID,
		GridCapacity:   f.station.GridCapacity,
		ActiveSessions: len(sessions),
		TotalAllocated: totals.AllocatedPower,
		TotalConsumed:  totals.ConsumedPower,
		Allocations:    allocations,
	}
	if f.battery != nil {
		state := f.battery.Snapshot()
		res.Battery = &BatteryBlock{Soc: state.Soc, Capacity: state.Capacity, MaxPower: state.MaxPower}
	}
	return res
}

// BatteryStatusResult is the return value of BatteryStatus.
type BatteryStatusResult struct {
	Available          bool
	Soc                float64
	SocPercentage      float64
	Capacity           float64
	MaxPower           float64
	CurrentPower       float64
	AvailableDischarge float64
	AvailableCharge    float64
	EmergencyState     bool
	LastUpdate         time.Time
}

// BatteryStatus reports the battery's current state, or Available=false if
// the station has no battery.
func (f *Facade) BatteryStatus() BatteryStatusResult {
	if f.battery == nil {
		return BatteryStatusResult{Available: false}
	}
	state := f.battery.Snapshot()
	socPct := 0.0
	if state.Capacity > 0 {
		socPct = state.Soc / state.Capacity * 100
	}
	return BatteryStatusResult{
		Available:          true,
		Soc:                state.Soc,
		SocPercentage:      socPct,
		Capacity:           state.Capacity,
		MaxPower:           state.MaxPower,
		CurrentPower:       state.CurrentPower,
		AvailableDischarge: f.battery.AvailableDischarge(),
		AvailableCharge:    f.battery.AvailableCharge(),
		EmergencyState:     f.battery.IsEmergencyState(),
		LastUpdate:         state.LastUpdate,
	}
}

// LoadSummaryResult is the return value of LoadSummary.
type LoadSummaryResult struct {
	TotalAllocated   float64
	TotalConsumed    float64
	GridUtilization  float64
	JainsFairness    float64
	PerChargerTotals map[string]float64
	BatterySoc       *float64
	BatteryPower     *float64
}

// LoadSummary reports station-wide load and fairness metrics, plus a
// per-charger breakdown not named by the external interface contract but
// useful for operational visibility into where budget is spent.
func (f *Facade) LoadSummary() LoadSummaryResult {
	sessions := f.registry.Snapshot()
	totals := f.registry.Totals()

	allocated := make([]float64, len(sessions))
	perCharger := make(map[string]float64)
	for i, s := range sessions {
		allocated[i] = s.AllocatedPower
		perCharger[s.ChargerID] += s.AllocatedPower
	}

	res := LoadSummaryResult{
		TotalAllocated:   totals.AllocatedPower,
		TotalConsumed:    totals.ConsumedPower,
		JainsFairness:    jainsFairnessIndex(allocated),
		PerChargerTotals: perCharger,
	}
	if f.station.GridCapacity > 0 {
		res.GridUtilization = totals.AllocatedPower / f.station.GridCapacity
	}
	if f.battery != nil {
		state := f.battery.Snapshot()
		soc := state.Soc
		power := state.CurrentPower
		res.BatterySoc = &soc
		res.BatteryPower = &power
	}
	return res
}

// jainsFairnessIndex computes (Σx)²/(n·Σx²), returning 1.0 by convention
// when there are no samples or all samples are zero.
func jainsFairnessIndex(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 1.0
	}
	var sum, sumSq float64
	for _, v := range x {
		sum += v
		sumSq += v * v
	}
	if sumSq == 0 {
		return 1.0
	}
	return (sum * sum) / (float64(n) * sumSq)
}

// Recompute forces a recomputation and returns the new allocation map.
func (f *Facade) Recompute() map[string]float64 {
	f.recomputeMu.Lock()
	defer f.recomputeMu.Unlock()
	return f.recompute(time.Now())
}

// recompute must be called with recomputeMu held.
func (f *Facade) recompute(now time.Time) map[string]float64 {
	snapshot := f.registry.Snapshot()
	result := f.alloc.Recompute(snapshot, now)
	for id, power := range result.Allocations {
		f.registry.SetAllocated(id, power, now)
	}
	allocated := make([]float64, 0, len(result.Allocations))
	for _, power := range result.Allocations {
		allocated = append(allocated, power)
	}
	f.bus.Publish(events.AllocationComputedEvent{
		StationID:    f.station.StationID,
		Allocations:  result.Allocations,
		RealizedLoad: result.RealizedLoad,
		BudgetTotal:  result.BudgetTotal,
		Fairness:     jainsFairnessIndex(allocated),
		Time:         now,
	})
	if f.battery != nil {
		state := f.battery.Snapshot()
		action := "idle"
		switch {
		case state.CurrentPower > 0:
			action = "discharge"
		case state.CurrentPower < 0:
			action = "charge"
		}
		f.bus.Publish(events.BessActionEvent{
			StationID: f.station.StationID, Action: action, PowerKw: state.CurrentPower, Soc: state.Soc, Time: now,
		})
	}
	return result.Allocations
}

// CleanupStale reports the number of sessions that have been idle for at
// least maxAge, without removing them.
func (f *Facade) CleanupStale(maxAge time.Duration) int {
	return f.registry.CleanupStale(maxAge, time.Now())
}
