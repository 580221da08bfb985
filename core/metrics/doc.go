package metrics

// Package metrics defines interfaces and implementations for collecting
// allocation and battery metrics. The InfluxDB sink in infra/metrics records
// AllocationEvent, BessStateEvent, and SessionLifecycleEvent; the Prometheus
// sink records AllocationEvent and BessStateEvent. Sinks can be combined with
// a fan-out MultiSink.
