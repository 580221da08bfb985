package allocator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/stationcore/core/bess"
	"github.com/kilianp07/stationcore/core/model"
)

func snap(id, chargerID string, connectorID int, vehicleMax float64) model.Snapshot {
	return model.Snapshot{ID: id, ChargerID: chargerID, ConnectorID: connectorID, VehicleMaxPower: vehicleMax}
}

func TestRecomputeEmptySnapshotIsNoop(t *testing.T) {
	station := model.StationConfig{StationID: "S1", GridCapacity: 400, Chargers: []model.ChargerConfig{
		{ID: "CP001", MaxPower: 200, Connectors: 2},
	}}
	a := New(station, nil, nil)
	res := a.Recompute(nil, time.Now())
	assert.Empty(t, res.Allocations)
}

func TestRecomputeEmptySnapshotIdlesBess(t *testing.T) {
	station := model.StationConfig{StationID: "S1", GridCapacity: 400, Chargers: []model.ChargerConfig{
		{ID: "CP001", MaxPower: 200, Connectors: 2},
	}, Battery: &model.BatteryConfig{Capacity: 200, Power: 100}}

	now := time.Now()
	battery := bess.New(bess.Config{Capacity: 200, Power: 100}, now)
	a := New(station, battery, nil)

	// Discharge first so an accidental valley-fill charge would be visible.
	battery.Discharge(50, 300, now)
	a.Recompute(nil, now)

	assert.Equal(t, 0.0, battery.Snapshot().CurrentPower)
}

func TestRecomputeZeroBudgetIdlesBess(t *testing.T) {
	station := model.StationConfig{StationID: "S1", GridCapacity: 3, Chargers: []model.ChargerConfig{
		{ID: "CP001", MaxPower: 200, Connectors: 2},
	}, Battery: &model.BatteryConfig{Capacity: 200, Power: 100}}

	now := time.Now()
	battery := bess.New(bess.Config{Capacity: 200, Power: 100}, now)
	// Drain to the soc floor so AvailableDischarge is also 0: with
	// GridCapacity(3) - staticLoad(3) - safetyMargin(5) clamped to 0,
	// totalBudget is then genuinely 0, not just grid-starved.
	battery.Discharge(1000, 1e9, now)
	require.Equal(t, 0.0, battery.AvailableDischarge())
	require.NotEqual(t, 0.0, battery.Snapshot().CurrentPower)

	a := New(station, battery, nil)
	res := a.Recompute([]model.Snapshot{snap("s1", "CP001", 1, 150)}, now)

	assert.Equal(t, 0.0, res.Allocations["s1"])
	assert.Equal(t, 0.0, battery.Snapshot().CurrentPower)
}

func TestRecomputeZeroVehicleCapsIdlesBess(t *testing.T) {
	station := model.StationConfig{StationID: "S1", GridCapacity: 400, Chargers: []model.ChargerConfig{
		{ID: "CP001", MaxPower: 200, Connectors: 2},
	}, Battery: &model.BatteryConfig{Capacity: 200, Power: 100}}

	now := time.Now()
	battery := bess.New(bess.Config{Capacity: 200, Power: 100}, now)
	battery.Discharge(10, 300, now) // non-idle starting point
	a := New(station, battery, nil)

	res := a.Recompute([]model.Snapshot{
		snap("s1", "CP001", 1, 0),
		snap("s2", "CP001", 2, 0),
	}, now)
	assert.InDelta(t, 0.0, res.Allocations["s1"], 0.01)
	assert.InDelta(t, 0.0, res.Allocations["s2"], 0.01)
	assert.Equal(t, 0.0, battery.Snapshot().CurrentPower)
}

func TestScenarioASingleChargerFairSplit(t *testing.T) {
	station := model.StationConfig{StationID: "S1", GridCapacity: 400, Chargers: []model.ChargerConfig{
		{ID: "CP001", MaxPower: 200, Connectors: 2},
	}}
	a := New(station, nil, nil)

	sessions := []model.Snapshot{
		snap("s1", "CP001", 1, 150),
		snap("s2", "CP001", 2, 150),
	}
	res := a.Recompute(sessions, time.Now())

	assert.InDelta(t, 100.0, res.Allocations["s1"], 1.0)
	assert.InDelta(t, 100.0, res.Allocations["s2"], 1.0)
	total := res.Allocations["s1"] + res.Allocations["s2"]
	assert.InDelta(t, 200.0, total, 1.0)

	// Invariant: per-session cap.
	assert.LessOrEqual(t, res.Allocations["s1"], 150.0)
	// Invariant: per-charger cap.
	assert.LessOrEqual(t, total, 200.0)
}

func TestScenarioBDynamicReallocation(t *testing.T) {
	station := model.StationConfig{StationID: "S1", GridCapacity: 400, Chargers: []model.ChargerConfig{
		{ID: "CP001", MaxPower: 300, Connectors: 2},
		{ID: "CP002", MaxPower: 300, Connectors: 2},
	}}
	a := New(station, nil, nil)

	sessions := []model.Snapshot{
		snap("s1", "CP001", 1, 150),
		snap("s2", "CP002", 1, 150),
	}
	res := a.Recompute(sessions, time.Now())
	assert.InDelta(t, 150.0, res.Allocations["s1"], 1.0)
	assert.InDelta(t, 150.0, res.Allocations["s2"], 1.0)

	sessions = append(sessions, snap("s3", "CP001", 2, 150))
	res = a.Recompute(sessions, time.Now())
	total := res.Allocations["s1"] + res.Allocations["s2"] + res.Allocations["s3"]
	assert.LessOrEqual(t, total, 392.01)
	cp1Total := res.Allocations["s1"] + res.Allocations["s3"]
	assert.LessOrEqual(t, cp1Total, 300.01)

	sessions = append(sessions, snap("s4", "CP002", 2, 150))
	res = a.Recompute(sessions, time.Now())
	for _, id := range []string{"s1", "s2", "s3", "s4"} {
		assert.InDelta(t, 98.0, res.Allocations[id], 2.0)
	}
	cp1Total = res.Allocations["s1"] + res.Allocations["s3"]
	cp2Total := res.Allocations["s2"] + res.Allocations["s4"]
	assert.LessOrEqual(t, cp1Total, 300.01)
	assert.LessOrEqual(t, cp2Total, 300.01)

	sessions = sessions[1:] // stop s1
	res = a.Recompute(sessions, time.Now())
	remaining := res.Allocations["s2"] + res.Allocations["s3"] + res.Allocations["s4"]
	assert.InDelta(t, 392.0, remaining, 1.0)
	cp1Total = res.Allocations["s3"]
	cp2Total = res.Allocations["s2"] + res.Allocations["s4"]
	assert.LessOrEqual(t, cp1Total, 300.01)
	assert.LessOrEqual(t, cp2Total, 300.01)
}

func TestScenarioCBessBoost(t *testing.T) {
	station := model.StationConfig{StationID: "S1", GridCapacity: 400, Chargers: []model.ChargerConfig{
		{ID: "CP001", MaxPower: 300, Connectors: 2},
		{ID: "CP002", MaxPower: 300, Connectors: 2},
	}, Battery: &model.BatteryConfig{Capacity: 200, Power: 100}}

	now := time.Now()
	battery := bess.New(bess.Config{Capacity: 200, Power: 100}, now)
	a := New(station, battery, nil)

	sessions := []model.Snapshot{
		snap("s1", "CP001", 1, 150),
		snap("s2", "CP001", 2, 150),
		snap("s3", "CP002", 1, 150),
		snap("s4", "CP002", 2, 150),
	}
	res := a.Recompute(sessions, now)

	assert.InDelta(t, 492.0, res.BudgetTotal, 1.0)
	total := 0.0
	for _, id := range []string{"s1", "s2", "s3", "s4"} {
		total += res.Allocations[id]
		assert.InDelta(t, 123.0, res.Allocations[id], 3.0)
	}
	assert.LessOrEqual(t, total, 492.01)
}

func TestScenarioFFairnessBoundary(t *testing.T) {
	// Fairness index is tested at the façade level (core/station), since
	// spec.md defines it as a façade operation; this test only checks the
	// allocator does not crash on degenerate zero-cap sessions.
	station := model.StationConfig{StationID: "S1", GridCapacity: 400, Chargers: []model.ChargerConfig{
		{ID: "CP001", MaxPower: 200, Connectors: 1},
	}}
	a := New(station, nil, nil)
	res := a.Recompute([]model.Snapshot{snap("s1", "CP001", 1, 0)}, time.Now())
	assert.Equal(t, 0.0, res.Allocations["s1"])
}

func TestVehicleMaxExceedingGridCapacitySingleSession(t *testing.T) {
	station := model.StationConfig{StationID: "S1", GridCapacity: 400, Chargers: []model.ChargerConfig{
		{ID: "CP001", MaxPower: 200, Connectors: 1},
	}}
	a := New(station, nil, nil)
	res := a.Recompute([]model.Snapshot{snap("s1", "CP001", 1, 1000)}, time.Now())
	// bound by chargerMax=200 and by gridBudget=392; chargerMax is binding.
	assert.InDelta(t, 200.0, res.Allocations["s1"], 1.0)
}

func TestRecomputeIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	station := model.StationConfig{StationID: "S1", GridCapacity: 400, Chargers: []model.ChargerConfig{
		{ID: "CP001", MaxPower: 300, Connectors: 2},
	}}
	a := New(station, nil, nil)
	sessions := []model.Snapshot{snap("s1", "CP001", 1, 150), snap("s2", "CP001", 2, 150)}

	r1 := a.Recompute(sessions, time.Now())
	r2 := a.Recompute(sessions, time.Now())
	assert.InDelta(t, r1.Allocations["s1"], r2.Allocations["s1"], 0.001)
	assert.InDelta(t, r1.Allocations["s2"], r2.Allocations["s2"], 0.001)
}

func TestUnknownChargerInSnapshotIsSkippedNotFatal(t *testing.T) {
	station := model.StationConfig{StationID: "S1", GridCapacity: 400, Chargers: []model.ChargerConfig{
		{ID: "CP001", MaxPower: 200, Connectors: 1},
	}}
	a := New(station, nil, nil)
	sessions := []model.Snapshot{snap("s1", "CP_GHOST", 1, 100)}
	assert.NotPanics(t, func() {
		a.Recompute(sessions, time.Now())
	})
}
