package metrics

import (
	coremetrics "github.com/kilianp07/stationcore/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records allocation and battery events as Prometheus metrics.
type PromSink struct {
	allocatedTotal *prometheus.GaugeVec
	fairness       *prometheus.GaugeVec
	socFraction    *prometheus.GaugeVec
	bessPower      *prometheus.GaugeVec
	recomputeLat   *prometheus.HistogramVec
}

// NewPromSink registers station metrics on the default Prometheus registerer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer. A
// nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	allocatedTotal := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "station_allocated_power_kw",
		Help: "Realized station load: power allocated across active sessions plus static auxiliary load",
	}, []string{"station_id"})
	fairness := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "station_jains_fairness_index",
		Help: "Jain's fairness index over the current allocation",
	}, []string{"station_id"})
	socFraction := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "station_bess_soc_fraction",
		Help: "Battery state of charge as a fraction of capacity",
	}, []string{"station_id"})
	bessPower := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "station_bess_power_kw",
		Help: "Battery power, positive discharging, negative charging",
	}, []string{"station_id", "action"})
	recomputeLat := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "station_recompute_duration_seconds",
		Help:    "Time spent computing one allocation recomputation",
		Buckets: prometheus.DefBuckets,
	}, []string{"station_id"})

	for _, c := range []prometheus.Collector{allocatedTotal, fairness, socFraction, bessPower, recomputeLat} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}

	return &PromSink{
		allocatedTotal: allocatedTotal,
		fairness:       fairness,
		socFraction:    socFraction,
		bessPower:      bessPower,
		recomputeLat:   recomputeLat,
	}, nil
}

// RecordAllocation reports the station's realized load (total allocated
// power plus the allocator's static auxiliary load) and fairness.
func (s *PromSink) RecordAllocation(ev coremetrics.AllocationEvent) error {
	s.allocatedTotal.WithLabelValues(ev.StationID).Set(ev.RealizedLoad)
	s.fairness.WithLabelValues(ev.StationID).Set(ev.Fairness)
	return nil
}

// RecordBessState reports the battery's state of charge and action power.
func (s *PromSink) RecordBessState(ev coremetrics.BessStateEvent) error {
	s.socFraction.WithLabelValues(ev.StationID).Set(ev.SocFraction)
	s.bessPower.WithLabelValues(ev.StationID, ev.Action).Set(ev.PowerKw)
	return nil
}

// RecordRecomputeLatency records the duration of one recomputation.
func (s *PromSink) RecordRecomputeLatency(lat coremetrics.RecomputeLatency) error {
	s.recomputeLat.WithLabelValues(lat.StationID).Observe(lat.Duration.Seconds())
	return nil
}
