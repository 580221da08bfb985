package metrics

import coremetrics "github.com/kilianp07/stationcore/core/metrics"

// MultiSink fans out every event to multiple sinks, forwarding optional
// events only to sinks that implement the corresponding recorder interface.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAllocation forwards the event to every sink, returning the first
// error encountered.
func (m *MultiSink) RecordAllocation(ev coremetrics.AllocationEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAllocation(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordBessState forwards the event to sinks that support it.
func (m *MultiSink) RecordBessState(ev coremetrics.BessStateEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.BessStateRecorder); ok {
			if err := rec.RecordBessState(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSessionLifecycle forwards the event to sinks that support it.
func (m *MultiSink) RecordSessionLifecycle(ev coremetrics.SessionLifecycleEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.SessionLifecycleRecorder); ok {
			if err := rec.RecordSessionLifecycle(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRecomputeLatency forwards the event to sinks that support it.
func (m *MultiSink) RecordRecomputeLatency(lat coremetrics.RecomputeLatency) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.LatencyRecorder); ok {
			if err := rec.RecordRecomputeLatency(lat); err != nil {
				return err
			}
		}
	}
	return nil
}
