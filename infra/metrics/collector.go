package metrics

import (
	"context"

	"github.com/kilianp07/stationcore/core/events"
	coremetrics "github.com/kilianp07/stationcore/core/metrics"
)

// StartEventCollector subscribes to a station's event channel and records
// metrics for each event it recognizes. It stops when the context is
// canceled or the channel is closed.
func StartEventCollector(ctx context.Context, ch <-chan any, sink coremetrics.MetricsSink) {
	if ch == nil || sink == nil {
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
				switch e := ev.(type) {
				case events.AllocationComputedEvent:
					_ = sink.RecordAllocation(coremetrics.AllocationEvent{
						StationID:    e.StationID,
						ActiveCount:  len(e.Allocations),
						RealizedLoad: e.RealizedLoad,
						BudgetTotal:  e.BudgetTotal,
						Fairness:     e.Fairness,
						Time:         e.Time,
					})
				case events.BessActionEvent:
					if rec, ok := sink.(coremetrics.BessStateRecorder); ok {
						_ = rec.RecordBessState(coremetrics.BessStateEvent{
							StationID: e.StationID,
							Action:    e.Action,
							PowerKw:   e.PowerKw,
							Soc:       e.Soc,
							Time:      e.Time,
						})
					}
				case events.SessionStartedEvent:
					if rec, ok := sink.(coremetrics.SessionLifecycleRecorder); ok {
						_ = rec.RecordSessionLifecycle(coremetrics.SessionLifecycleEvent{
							StationID: e.StationID, SessionID: e.SessionID, ChargerID: e.ChargerID, ConnectorID: e.ConnectorID,
							Action: "started", Time: e.Time,
						})
					}
				case events.SessionStoppedEvent:
					if rec, ok := sink.(coremetrics.SessionLifecycleRecorder); ok {
						_ = rec.RecordSessionLifecycle(coremetrics.SessionLifecycleEvent{
							StationID: e.StationID, SessionID: e.SessionID, ChargerID: e.ChargerID, ConnectorID: e.ConnectorID,
							Action: "stopped", TotalEnergy: e.TotalEnergy, Time: e.Time,
						})
					}
				}
			}
		}
	}()
}
