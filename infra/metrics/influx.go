package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/stationcore/core/metrics"
	"github.com/kilianp07/stationcore/infra/logger"
)

// InfluxSink writes allocation and battery events to an InfluxDB instance
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordAllocation writes the station's allocation totals as a line
// protocol point.
func (s *InfluxSink) RecordAllocation(ev coremetrics.AllocationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("allocation").
		AddTag("station_id", ev.StationID).
		AddField("active_count", ev.ActiveCount).
		AddField("realized_load_kw", round3(ev.RealizedLoad)).
		AddField("budget_total_kw", round3(ev.BudgetTotal)).
		AddField("fairness", round3(ev.Fairness)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBessState writes a battery state snapshot.
func (s *InfluxSink) RecordBessState(ev coremetrics.BessStateEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("bess_state").
		AddTag("station_id", ev.StationID).
		AddTag("action", ev.Action).
		AddField("power_kw", round3(ev.PowerKw)).
		AddField("soc_kwh", round3(ev.Soc)).
		AddField("soc_fraction", round3(ev.SocFraction)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSessionLifecycle writes a session start/stop event.
func (s *InfluxSink) RecordSessionLifecycle(ev coremetrics.SessionLifecycleEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("session_lifecycle").
		AddTag("station_id", ev.StationID).
		AddTag("charger_id", ev.ChargerID).
		AddTag("action", ev.Action).
		AddField("session_id", ev.SessionID).
		AddField("connector_id", ev.ConnectorID).
		AddField("total_energy_kwh", round3(ev.TotalEnergy)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRecomputeLatency writes one recomputation's duration.
func (s *InfluxSink) RecordRecomputeLatency(lat coremetrics.RecomputeLatency) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("recompute_latency").
		AddTag("station_id", lat.StationID).
		AddField("duration_ms", round3(lat.Duration.Seconds()*1000)).
		SetTime(lat.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
