package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/stationcore/core/model"
)

func testCharger() model.ChargerConfig {
	return model.ChargerConfig{ID: "CP001", MaxPower: 200, Connectors: 2}
}

func TestStartSucceedsOnFreeConnector(t *testing.T) {
	r := New()
	sess, err := r.Start(testCharger(), 1, 150, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID())
	assert.False(t, r.IsConnectorAvailable("CP001", 1))
}

func TestStartRejectsInvalidConnector(t *testing.T) {
	r := New()
	_, err := r.Start(testCharger(), 3, 150, time.Now())
	assert.ErrorIs(t, err, model.ErrInvalidConnector)
}

func TestStartRejectsOccupiedConnector(t *testing.T) {
	r := New()
	_, err := r.Start(testCharger(), 1, 150, time.Now())
	require.NoError(t, err)

	_, err = r.Start(testCharger(), 1, 100, time.Now())
	assert.ErrorIs(t, err, model.ErrConnectorOccupied)
}

func TestStopFreesConnector(t *testing.T) {
	r := New()
	sess, _ := r.Start(testCharger(), 1, 150, time.Now())

	_, err := r.Stop(sess.ID(), time.Now())
	require.NoError(t, err)
	assert.True(t, r.IsConnectorAvailable("CP001", 1))

	// A subsequent start on the same connector succeeds with a new id.
	sess2, err := r.Start(testCharger(), 1, 150, time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID(), sess2.ID())
}

func TestStopUnknownSessionReturnsNotFound(t *testing.T) {
	r := New()
	_, err := r.Stop("session_nonexistent", time.Now())
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestUpdatePowerAccumulatesEnergy(t *testing.T) {
	r := New()
	now := time.Now()
	sess, _ := r.Start(testCharger(), 1, 150, now)

	later := now.Add(30 * time.Minute)
	snap, err := r.UpdatePower(sess.ID(), 100, 150, later)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, snap.TotalEnergy, 0.01) // 100kW * 0.5h
}

func TestUpdatePowerRejectsInvalidInput(t *testing.T) {
	r := New()
	sess, _ := r.Start(testCharger(), 1, 150, time.Now())

	_, err := r.UpdatePower(sess.ID(), 200, 150, time.Now())
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = r.UpdatePower(sess.ID(), -5, 150, time.Now())
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestUpdatePowerUnknownSession(t *testing.T) {
	r := New()
	_, err := r.UpdatePower("session_ghost", 50, 100, time.Now())
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestTotalEnergyNeverDecreases(t *testing.T) {
	r := New()
	now := time.Now()
	sess, _ := r.Start(testCharger(), 1, 150, now)

	var last float64
	for i := 1; i <= 5; i++ {
		snap, err := r.UpdatePower(sess.ID(), 50, 150, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, snap.TotalEnergy, last)
		last = snap.TotalEnergy
	}
}

func TestSetAllocatedOnUnknownSessionIsNoop(t *testing.T) {
	r := New()
	r.SetAllocated("session_ghost", 100, time.Now()) // must not panic
}

func TestConcurrentStartExclusivity(t *testing.T) {
	r := New()
	charger := testCharger() // 2 connectors

	var wg sync.WaitGroup
	successes := make(chan string, 20)
	for i := 0; i < 10; i++ {
		for _, conn := range []int{1, 2} {
			wg.Add(1)
			go func(connectorID int) {
				defer wg.Done()
				if sess, err := r.Start(charger, connectorID, 100, time.Now()); err == nil {
					successes <- sess.ID()
				}
			}(conn)
		}
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, r.ActiveCount())
}

func TestSnapshotIsIndependentOfLaterMutation(t *testing.T) {
	r := New()
	sess, _ := r.Start(testCharger(), 1, 150, time.Now())
	snap := r.Snapshot()
	require.Len(t, snap, 1)

	r.SetAllocated(sess.ID(), 42, time.Now())
	assert.Equal(t, 0.0, snap[0].AllocatedPower)
}

func TestByChargerGroupsSessions(t *testing.T) {
	r := New()
	charger := testCharger()
	r.Start(charger, 1, 100, time.Now())
	r.Start(charger, 2, 100, time.Now())

	grouped := r.ByCharger()
	assert.Len(t, grouped["CP001"], 2)
}

func TestCleanupStaleCountsOldSessions(t *testing.T) {
	r := New()
	now := time.Now()
	r.Start(testCharger(), 1, 100, now.Add(-time.Hour))

	count := r.CleanupStale(10*time.Minute, now)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, r.ActiveCount()) // hook only reports, never removes
}
