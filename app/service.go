package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/stationcore/config"
	"github.com/kilianp07/stationcore/core/eventlog"
	coremetrics "github.com/kilianp07/stationcore/core/metrics"
	"github.com/kilianp07/stationcore/core/station"
	"github.com/kilianp07/stationcore/infra/logger"
	"github.com/kilianp07/stationcore/infra/metrics"
)

// Service owns the station façade and the background collectors reading
// its event stream.
type Service struct {
	Facade *station.Facade

	log        logger.Logger
	eventStore eventlog.Store
	promAddr   string
	promOn     bool
	cancel     context.CancelFunc
}

// New constructs a Service from the configuration: the façade, the
// configured metrics sink(s), and the event log backend.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	sink, promOn, promAddr, err := buildMetricsSink(cfg.Metrics, logg)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	store, err := buildEventStore(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("event store: %w", err)
	}

	facade := station.New(cfg.Station, time.Now(), logg)
	collectorCtx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		Facade:     facade,
		log:        logg,
		eventStore: store,
		promAddr:   promAddr,
		promOn:     promOn,
		cancel:     cancel,
	}

	metrics.StartEventCollector(collectorCtx, facade.Events(), sink)
	eventlog.StartCollector(collectorCtx, facade.Events(), store)
	return svc, nil
}

func buildMetricsSink(cfg config.MetricsConfig, log logger.Logger) (coremetrics.MetricsSink, bool, string, error) {
	var sinks []coremetrics.MetricsSink
	if cfg.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, false, "", fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, cfg.PrometheusEnabled, cfg.PrometheusAddr, nil
	case 1:
		return sinks[0], cfg.PrometheusEnabled, cfg.PrometheusAddr, nil
	default:
		return metrics.NewMultiSink(sinks...), cfg.PrometheusEnabled, cfg.PrometheusAddr, nil
	}
}

func buildEventStore(cfg config.LoggingConfig) (eventlog.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return eventlog.NewSQLiteStore(cfg.Path)
	case "jsonl":
		if cfg.MaxSizeMB > 0 {
			return eventlog.NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return eventlog.NewJSONLStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown logging backend %q", cfg.Backend)
	}
}

// Run starts the Prometheus exposition server if enabled and blocks until
// ctx is canceled. The façade itself needs no background loop: it
// recomputes synchronously on every mutating call.
func (s *Service) Run(ctx context.Context) error {
	if s.promOn {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	<-ctx.Done()
	return nil
}

// Close stops the background collectors and releases the event store.
func (s *Service) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.eventStore != nil {
		return s.eventStore.Close()
	}
	return nil
}
