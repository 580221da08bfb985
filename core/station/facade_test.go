package station

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/stationcore/core/model"
)

func testStation() model.StationConfig {
	return model.StationConfig{
		StationID:    "station-1",
		GridCapacity: 400,
		Chargers: []model.ChargerConfig{
			{ID: "CP001", MaxPower: 200, Connectors: 2},
		},
	}
}

func TestStartSessionSuccess(t *testing.T) {
	f := New(testStation(), time.Now(), nil)
	res := f.StartSession("CP001", 1, 150)
	assert.Equal(t, StatusSessionStarted, res.Status)
	assert.NotEmpty(t, res.SessionID)
}

func TestStartSessionUnknownCharger(t *testing.T) {
	f := New(testStation(), time.Now(), nil)
	res := f.StartSession("CP_GHOST", 1, 150)
	assert.Equal(t, StatusInvalidChargerOrConn, res.Status)
}

func TestStartSessionInvalidConnector(t *testing.T) {
	f := New(testStation(), time.Now(), nil)
	res := f.StartSession("CP001", 9, 150)
	assert.Equal(t, StatusInvalidChargerOrConn, res.Status)
}

func TestStartStopRoundTrip(t *testing.T) {
	f := New(testStation(), time.Now(), nil)
	start := f.StartSession("CP001", 1, 150)
	require.Equal(t, StatusSessionStarted, start.Status)

	stop := f.StopSession(start.SessionID)
	assert.Equal(t, StatusOK, stop.Status)

	start2 := f.StartSession("CP001", 1, 150)
	require.Equal(t, StatusSessionStarted, start2.Status)
	assert.NotEqual(t, start.SessionID, start2.SessionID)
}

func TestStopUnknownSession(t *testing.T) {
	f := New(testStation(), time.Now(), nil)
	res := f.StopSession("session_ghost")
	assert.Equal(t, StatusSessionNotFound, res.Status)
}

func TestUpdatePowerSuccessAndRejection(t *testing.T) {
	f := New(testStation(), time.Now(), nil)
	start := f.StartSession("CP001", 1, 150)

	ok := f.UpdatePower(start.SessionID, 50, 150)
	assert.Equal(t, StatusPowerUpdated, ok.Status)

	bad := f.UpdatePower(start.SessionID, 500, 150)
	assert.Equal(t, StatusInvalidConsumedPower, bad.Status)
	// Session state unchanged; caller can resynchronize from returned value.
	assert.Equal(t, ok.NewAllocatedPower, bad.NewAllocatedPower)
}

func TestUpdatePowerUnknownSession(t *testing.T) {
	f := New(testStation(), time.Now(), nil)
	res := f.UpdatePower("session_ghost", 50, 100)
	assert.Equal(t, StatusSessionNotFound, res.Status)
}

// Scenario D — connector exclusivity under concurrency.
func TestScenarioDConcurrentStartExclusivity(t *testing.T) {
	f := New(testStation(), time.Now(), nil)

	var wg sync.WaitGroup
	results := make(chan string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		conn := (i % 2) + 1
		go func(connectorID int) {
			defer wg.Done()
			results <- f.StartSession("CP001", connectorID, 100).Status
		}(conn)
	}
	wg.Wait()
	close(results)

	succeeded, occupied := 0, 0
	for status := range results {
		switch status {
		case StatusSessionStarted:
			succeeded++
		case StatusConnectorOccupied:
			occupied++
		}
	}
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 8, occupied)
	assert.Len(t, f.ListSessions(), 2)
}

// Scenario F — fairness index.
func TestScenarioFFairnessIndex(t *testing.T) {
	assert.Equal(t, 1.0, jainsFairnessIndex([]float64{50, 50}))
	assert.InDelta(t, 0.610, jainsFairnessIndex([]float64{90, 10}), 0.001)
	assert.Equal(t, 1.0, jainsFairnessIndex([]float64{0, 0}))
	assert.Equal(t, 1.0, jainsFairnessIndex(nil))
}

func TestLoadSummaryReportsUtilizationAndFairness(t *testing.T) {
	f := New(testStation(), time.Now(), nil)
	f.StartSession("CP001", 1, 150)
	f.StartSession("CP001", 2, 150)

	summary := f.LoadSummary()
	assert.Greater(t, summary.TotalAllocated, 0.0)
	assert.Greater(t, summary.GridUtilization, 0.0)
	assert.InDelta(t, 1.0, summary.JainsFairness, 0.05)
	assert.Contains(t, summary.PerChargerTotals, "CP001")
}

func TestStationStatusWithoutBattery(t *testing.T) {
	f := New(testStation(), time.Now(), nil)
	status := f.StationStatus()
	assert.Nil(t, status.Battery)
	assert.Equal(t, "station-1", status.StationID)
}

func TestBatteryStatusUnavailableWithoutBattery(t *testing.T) {
	f := New(testStation(), time.Now(), nil)
	status := f.BatteryStatus()
	assert.False(t, status.Available)
}

func stationWithBattery() model.StationConfig {
	s := testStation()
	s.Battery = &model.BatteryConfig{Capacity: 200, Power: 100}
	return s
}

func TestBatteryStatusWithBattery(t *testing.T) {
	f := New(stationWithBattery(), time.Now(), nil)
	status := f.BatteryStatus()
	require.True(t, status.Available)
	assert.Equal(t, 200.0, status.Soc)
	assert.InDelta(t, 100.0, status.SocPercentage, 0.01)
}

func TestRecomputeTwiceWithNoMutationsIsIdempotent(t *testing.T) {
	f := New(testStation(), time.Now(), nil)
	f.StartSession("CP001", 1, 150)
	f.StartSession("CP001", 2, 150)

	r1 := f.Recompute()
	r2 := f.Recompute()
	for id, v := range r1 {
		assert.InDelta(t, v, r2[id], 0.001)
	}
}

func TestZeroVehicleMaxYieldsZeroAllocation(t *testing.T) {
	f := New(testStation(), time.Now(), nil)
	start := f.StartSession("CP001", 1, 0)
	assert.Equal(t, 0.0, start.AllocatedPower)
}

func TestCleanupStaleReportsWithoutRemoving(t *testing.T) {
	f := New(testStation(), time.Now(), nil)
	f.StartSession("CP001", 1, 100)
	count := f.CleanupStale(time.Nanosecond)
	assert.GreaterOrEqual(t, count, 0)
	assert.Len(t, f.ListSessions(), 1)
}
