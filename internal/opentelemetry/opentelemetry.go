package opentelemetry

import (
	"context"
	"github.com/cirruslabs/mocha/internal/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
	"os"
	"time"
)

// DefaultMeter is backed by the global meter provider, so instruments
// created before Init() start reporting once Init() installs the provider.
//
//nolint:gochecknoglobals // shared by all instrumented packages
var DefaultMeter = otel.Meter("github.com/cirruslabs/mocha")

const exportInterval = 30 * time.Second

func Init(ctx context.Context) (*sdkmetric.MeterProvider, func(), error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", "mocha"),
		attribute.String("service.version", version.FullVersion),
	)

	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
	}

	// Only export metrics when the collector endpoint is configured
	// through the standard OpenTelemetry environment variables
	if exportEnabled() {
		exporter, err := otlpmetrichttp.New(ctx)
		if err != nil {
			return nil, nil, err
		}

		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval)),
		))
	}

	meterProvider := sdkmetric.NewMeterProvider(opts...)

	otel.SetMeterProvider(meterProvider)

	deinit := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := meterProvider.Shutdown(ctx); err != nil {
			zap.S().Warnf("failed to shut down OpenTelemetry meter provider: %v", err)
		}
	}

	return meterProvider, deinit, nil
}

// Int64Counter creates a counter on the meter. It never fails: an
// instrument that could not be created is replaced by a no-op one.
func Int64Counter(meter metric.Meter, name string, opts ...metric.Int64CounterOption) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, opts...)
	if err != nil {
		zap.S().Warnf("failed to create counter %s: %v", name, err)

		return noop.Int64Counter{}
	}

	return counter
}

func exportEnabled() bool {
	for _, name := range []string{"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"} {
		if os.Getenv(name) != "" {
			return true
		}
	}

	return false
}
