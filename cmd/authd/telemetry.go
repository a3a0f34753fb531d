package main

import (
	"context"
	"io"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	auth "github.com/justincavery/yoga-app-sub000"
	otelexport "github.com/justincavery/yoga-app-sub000/metrics/export/otel"
)

// startOTelMetrics installs an SDK MeterProvider that writes the engine's
// instruments to w every interval and returns its shutdown func. A
// non-positive interval leaves OpenTelemetry untouched.
func startOTelMetrics(engine *auth.Engine, interval time.Duration, w io.Writer) (func(context.Context) error, error) {
	if interval <= 0 {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, oops.Code("OTEL_EXPORTER_FAILED").Wrap(err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	)

	if _, err := otelexport.NewExporter(provider.Meter("authd"), engine); err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, oops.Code("OTEL_INSTRUMENTS_FAILED").Wrap(err)
	}
	otel.SetMeterProvider(provider)

	return provider.Shutdown, nil
}
