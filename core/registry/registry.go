// Package registry owns charging session identity and connector exclusivity.
// It provides atomic mutations and consistent read snapshots over the set of
// active sessions, mirroring the dual-index commit discipline of the system
// it was modeled on.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/stationcore/core/model"
)

func connectorKey(chargerID string, connectorID int) string {
	return fmt.Sprintf("%s#%d", chargerID, connectorID)
}

// Registry holds the active session set and the connector→session index.
// start and stop commit both indexes atomically under mu; no observer ever
// sees one index updated without the other.
type Registry struct {
	mu sync.RWMutex

	sessions    map[string]*model.Session
	connectorTo map[string]string // connectorKey -> sessionID
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{
		sessions:    make(map[string]*model.Session),
		connectorTo: make(map[string]string),
	}
}

// Start registers a new session on (chargerID, connectorID) if the connector
// is free. charger is used only to validate the connector number; callers
// look the charger up in the station config and pass it in.
func (r *Registry) Start(charger model.ChargerConfig, connectorID int, vehicleMaxPower float64, now time.Time) (*model.Session, error) {
	if !charger.ValidConnector(connectorID) {
		return nil, model.ErrInvalidConnector
	}

	key := connectorKey(charger.ID, connectorID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, occupied := r.connectorTo[key]; occupied {
		return nil, model.ErrConnectorOccupied
	}

	id := "session_" + uuid.NewString()
	if _, exists := r.sessions[id]; exists {
		// Vanishingly unlikely uuid collision; fail rather than overwrite.
		return nil, model.ErrInvalidInput
	}

	sess := model.NewSession(id, charger.ID, connectorID, vehicleMaxPower, now)
	r.sessions[id] = sess
	r.connectorTo[key] = id
	return sess, nil
}

// Stop removes a session from both indexes and marks it STOPPING.
func (r *Registry) Stop(sessionID string, now time.Time) (model.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[sessionID]
	if !ok {
		return model.Snapshot{}, model.ErrSessionNotFound
	}

	sess.MarkStopping(now)
	snap := sess.Snapshot()

	delete(r.sessions, sessionID)
	delete(r.connectorTo, connectorKey(snap.ChargerID, snap.ConnectorID))
	return snap, nil
}

// UpdatePower validates and applies a reported consumed power and vehicle
// capability update to an existing session.
func (r *Registry) UpdatePower(sessionID string, consumedPower, vehicleMaxPower float64, now time.Time) (model.Snapshot, error) {
	if consumedPower < 0 || vehicleMaxPower < 0 || consumedPower > vehicleMaxPower {
		return model.Snapshot{}, model.ErrInvalidInput
	}

	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return model.Snapshot{}, model.ErrSessionNotFound
	}

	sess.UpdatePower(consumedPower, vehicleMaxPower, now)
	return sess.Snapshot(), nil
}

// SetAllocated writes the allocator's decision back into a session. Unknown
// session ids (the session was stopped mid-compute) are silently skipped,
// per the snapshot/write-back contract.
func (r *Registry) SetAllocated(sessionID string, power float64, now time.Time) {
	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	sess.SetAllocated(power, now)
}

// Get returns a snapshot of a single session.
func (r *Registry) Get(sessionID string) (model.Snapshot, error) {
	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return model.Snapshot{}, model.ErrSessionNotFound
	}
	return sess.Snapshot(), nil
}

// Snapshot returns an immutable list of every active session's fields, the
// input the allocator computes over. The allocator must not hold this
// registry's lock across its own iteration, so this method copies eagerly
// and releases the lock before returning.
func (r *Registry) Snapshot() []model.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Snapshot, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess.Snapshot())
	}
	return out
}

// IsConnectorAvailable reports whether no session currently occupies the
// given connector.
func (r *Registry) IsConnectorAvailable(chargerID string, connectorID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, occupied := r.connectorTo[connectorKey(chargerID, connectorID)]
	return !occupied
}

// ActiveCount returns the number of currently active sessions.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Totals aggregates allocated power, consumed power, and total energy across
// every active session.
type Totals struct {
	AllocatedPower float64
	ConsumedPower  float64
	TotalEnergy    float64
}

// Totals computes the station-wide aggregates.
func (r *Registry) Totals() Totals {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var t Totals
	for _, sess := range r.sessions {
		snap := sess.Snapshot()
		t.AllocatedPower += snap.AllocatedPower
		t.ConsumedPower += snap.ConsumedPower
		t.TotalEnergy += snap.TotalEnergy
	}
	return t
}

// ByCharger groups active session snapshots by charger id.
func (r *Registry) ByCharger() map[string][]model.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]model.Snapshot)
	for _, sess := range r.sessions {
		snap := sess.Snapshot()
		out[snap.ChargerID] = append(out[snap.ChargerID], snap)
	}
	return out
}

// CleanupStale reports how many active sessions have not been updated for
// at least maxAge. It is a visibility hook only: it does not remove
// sessions, leaving the decision to stop a stale session to the caller.
func (r *Registry) CleanupStale(maxAge time.Duration, now time.Time) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, sess := range r.sessions {
		snap := sess.Snapshot()
		if now.Sub(snap.LastUpdate) >= maxAge {
			count++
		}
	}
	return count
}
