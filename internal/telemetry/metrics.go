package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/edeas123/aws-terraform-casper/internal/config"
	"github.com/edeas123/aws-terraform-casper/types"
)

// Metrics records build and scan results. Values are collected on a private
// Prometheus registry and, when an endpoint is configured, pushed over OTLP.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	buildStates         metric.Int64Gauge
	buildResources      metric.Int64Gauge
	buildResourceGroups metric.Int64Gauge
	ghostResources      metric.Int64Gauge
	scanDuration        metric.Float64Histogram
}

// NewMetrics creates the meter provider and its instruments.
func NewMetrics(ctx context.Context, cfg config.OTELConfig) (*Metrics, error) {
	registry := prometheus.NewRegistry()

	promExporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithReader(promExporter)}

	if cfg.Endpoint != "" {
		exp, err := createMetricExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	m := &Metrics{
		registry: registry,
		provider: sdkmetric.NewMeterProvider(opts...),
	}

	if err := m.initInstruments(); err != nil {
		return nil, err
	}

	return m, nil
}

func createMetricExporter(ctx context.Context, cfg config.OTELConfig) (sdkmetric.Exporter, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		))
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func (m *Metrics) initInstruments() error {
	meter := m.provider.Meter(TracerName)

	var err error

	m.buildStates, err = meter.Int64Gauge(
		"casper_build_states",
		metric.WithDescription("Terraform project directories listed in the last build"),
	)
	if err != nil {
		return fmt.Errorf("create build_states gauge: %w", err)
	}

	m.buildResources, err = meter.Int64Gauge(
		"casper_build_resources",
		metric.WithDescription("Tracked resources resolved in the last build"),
	)
	if err != nil {
		return fmt.Errorf("create build_resources gauge: %w", err)
	}

	m.buildResourceGroups, err = meter.Int64Gauge(
		"casper_build_resource_groups",
		metric.WithDescription("Supported resource groups discovered in the last build"),
	)
	if err != nil {
		return fmt.Errorf("create build_resource_groups gauge: %w", err)
	}

	m.ghostResources, err = meter.Int64Gauge(
		"casper_ghost_resources",
		metric.WithDescription("Live resources not tracked by any Terraform state"),
	)
	if err != nil {
		return fmt.Errorf("create ghost_resources gauge: %w", err)
	}

	m.scanDuration, err = meter.Float64Histogram(
		"casper_scan_duration_seconds",
		metric.WithDescription("Time taken to scan one service"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create scan_duration histogram: %w", err)
	}

	return nil
}

// RecordBuild records the counters of a build pass.
func (m *Metrics) RecordBuild(ctx context.Context, c types.BuildCounters) {
	m.buildStates.Record(ctx, int64(c.State))
	m.buildResources.Record(ctx, int64(c.Resource))
	m.buildResourceGroups.Record(ctx, int64(c.ResourceGroup))
}

// RecordGhosts records the ghost count of every group of a service.
func (m *Metrics) RecordGhosts(ctx context.Context, service string, result types.ServiceResult) {
	for group, ghost := range result {
		m.ghostResources.Record(ctx, int64(ghost.Count), metric.WithAttributes(
			attribute.String("service", service),
			attribute.String("group", group),
		))
	}
}

// RecordScanDuration records how long a service scan took.
func (m *Metrics) RecordScanDuration(ctx context.Context, service string, d time.Duration) {
	m.scanDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
	))
}

// WriteTextfile writes the current values in the node exporter textfile
// format. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

// Shutdown stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if err := m.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter: %w", err)
	}
	return nil
}
