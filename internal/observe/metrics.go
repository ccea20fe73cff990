// Package observe provides observability primitives for fmclient:
// OpenTelemetry metrics, tracing helpers, and HTTP middleware for the
// metrics/health listener.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all fmclient metrics.
const meterName = "github.com/pattupetti/fmclient"

// Metrics holds all OpenTelemetry metric instruments for the client.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// TTSDuration tracks text-to-speech synthesis latency per segment.
	TTSDuration metric.Float64Histogram

	// ResolveDuration tracks yt-dlp stream URL resolution latency.
	ResolveDuration metric.Float64Histogram

	// TracksStarted counts playback starts. Use with attribute:
	//   attribute.String("mode", "fixed"|"sequential")
	TracksStarted metric.Int64Counter

	// AlertsSpoken counts delivered alerts. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("status", ...)
	AlertsSpoken metric.Int64Counter

	// ProviderErrors counts TTS backend errors by provider name.
	ProviderErrors metric.Int64Counter

	// DBErrors counts swallowed database errors by query site.
	DBErrors metric.Int64Counter

	// HTTPRequestDuration tracks metrics/health listener request time.
	// Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// network TTS calls and subprocess resolution.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TTSDuration, err = m.Float64Histogram("fmclient.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis per segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ResolveDuration, err = m.Float64Histogram("fmclient.resolve.duration",
		metric.WithDescription("Latency of stream URL resolution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.TracksStarted, err = m.Int64Counter("fmclient.tracks.started",
		metric.WithDescription("Total playback starts by selection mode."),
	); err != nil {
		return nil, err
	}
	if met.AlertsSpoken, err = m.Int64Counter("fmclient.alerts.spoken",
		metric.WithDescription("Total delivered alerts by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("fmclient.provider.errors",
		metric.WithDescription("Total TTS backend errors by provider."),
	); err != nil {
		return nil, err
	}
	if met.DBErrors, err = m.Int64Counter("fmclient.db.errors",
		metric.WithDescription("Total swallowed database errors by query site."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("fmclient.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTrackStarted records one playback start.
func (m *Metrics) RecordTrackStarted(ctx context.Context, mode string) {
	m.TracksStarted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("mode", mode)),
	)
}

// RecordAlertSpoken records one alert delivery attempt.
func (m *Metrics) RecordAlertSpoken(ctx context.Context, kind, status string) {
	m.AlertsSpoken.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records one TTS backend failure.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordDBError records one swallowed database error.
func (m *Metrics) RecordDBError(ctx context.Context, site string) {
	m.DBErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("site", site)),
	)
}
