package eventlog

import (
	"context"

	"github.com/kilianp07/stationcore/core/events"
)

// StartCollector subscribes to a station's event channel and appends a
// Record to store for every event it recognizes. It stops when the context
// is canceled or the channel is closed. Append errors are swallowed: the
// event log is an observability aid, not a path any operation depends on.
func StartCollector(ctx context.Context, ch <-chan any, store Store) {
	if ch == nil || store == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				rec, ok := toRecord(ev)
				if !ok {
					continue
				}
				_ = store.Append(ctx, rec)
			}
		}
	}()
}

func toRecord(ev any) (Record, bool) {
	switch e := ev.(type) {
	case events.SessionStartedEvent:
		return Record{
			Timestamp: e.Time, StationID: e.StationID, Kind: "session_started",
			SessionID: e.SessionID, ChargerID: e.ChargerID, ConnectorID: e.ConnectorID,
		}, true
	case events.SessionStoppedEvent:
		return Record{
			Timestamp: e.Time, StationID: e.StationID, Kind: "session_stopped",
			SessionID: e.SessionID, ChargerID: e.ChargerID, ConnectorID: e.ConnectorID,
			AllocatedPower: e.FinalAllocated, TotalEnergy: e.TotalEnergy,
		}, true
	case events.PowerUpdatedEvent:
		return Record{
			Timestamp: e.Time, StationID: e.StationID, Kind: "power_updated",
			SessionID: e.SessionID, TotalEnergy: e.TotalEnergy,
		}, true
	case events.AllocationComputedEvent:
		return Record{
			Timestamp: e.Time, StationID: e.StationID, Kind: "allocation_computed",
			Allocations: e.Allocations,
		}, true
	default:
		return Record{}, false
	}
}
