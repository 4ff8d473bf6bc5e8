package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aliweather/aliweather/internal/weather"
)

const meterName = "github.com/aliweather/aliweather/internal/api/middleware"

// unmatchedRoute labels requests chi could not route, bounding cardinality.
const unmatchedRoute = "unmatched"

// MetricsOption configures NewMetrics and NewProviderMetrics.
type MetricsOption func(*metricsOptions)

type metricsOptions struct {
	provider metric.MeterProvider
}

// WithMeterProvider records into mp instead of the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) MetricsOption {
	return func(o *metricsOptions) { o.provider = mp }
}

func newMeter(opts []MetricsOption) metric.Meter {
	o := metricsOptions{provider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}
	return o.provider.Meter(meterName)
}

// Metrics holds the HTTP server instruments.
type Metrics struct {
	requestDuration  metric.Float64Histogram
	requestTotal     metric.Int64Counter
	requestsInFlight metric.Int64UpDownCounter
	responseSize     metric.Int64Histogram
}

// NewMetrics creates the HTTP server instruments.
func NewMetrics(opts ...MetricsOption) (*Metrics, error) {
	meter := newMeter(opts)

	var m Metrics
	var err, e error

	m.requestDuration, e = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s"),
	)
	err = errors.Join(err, e)

	m.requestTotal, e = meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("HTTP server requests by route and status"),
		metric.WithUnit("{request}"),
	)
	err = errors.Join(err, e)

	m.requestsInFlight, e = meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("HTTP requests currently being served"),
		metric.WithUnit("{request}"),
	)
	err = errors.Join(err, e)

	m.responseSize, e = meter.Int64Histogram(
		"http.server.response.body.size",
		metric.WithDescription("Size of HTTP response bodies"),
		metric.WithUnit("By"),
	)
	err = errors.Join(err, e)

	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Middleware records duration, count and body size of every request,
// labelled by chi route pattern and status code.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			method := attribute.String("http.request.method", r.Method)
			m.requestsInFlight.Add(ctx, 1, metric.WithAttributes(method))
			defer m.requestsInFlight.Add(ctx, -1, metric.WithAttributes(method))

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			route := routePattern(r)
			if route == "" {
				route = unmatchedRoute
			}
			attrs := metric.WithAttributes(
				method,
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", rec.statusCode),
				attribute.Bool("error", rec.statusCode >= http.StatusBadRequest),
			)

			m.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
			m.requestTotal.Add(ctx, 1, attrs)
			m.responseSize.Record(ctx, rec.written, attrs)
		})
	}
}

var _ weather.MetricsRecorder = (*ProviderMetrics)(nil)

// ProviderMetrics records weather provider calls and snapshot cache use.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	cacheLookups    metric.Int64Counter
}

// NewProviderMetrics creates the provider instruments.
func NewProviderMetrics(opts ...MetricsOption) (*ProviderMetrics, error) {
	meter := newMeter(opts)

	var m ProviderMetrics
	var err, e error

	m.requestDuration, e = meter.Float64Histogram(
		"weather.provider.request.duration",
		metric.WithDescription("Duration of weather provider requests"),
		metric.WithUnit("s"),
	)
	err = errors.Join(err, e)

	m.requestTotal, e = meter.Int64Counter(
		"weather.provider.request.total",
		metric.WithDescription("Weather provider requests by operation and outcome"),
		metric.WithUnit("{request}"),
	)
	err = errors.Join(err, e)

	m.cacheLookups, e = meter.Int64Counter(
		"weather.cache.lookups",
		metric.WithDescription("Snapshot cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	err = errors.Join(err, e)

	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordRequest records one provider call. Recording is detached from the
// request context so canceled requests are still counted.
func (m *ProviderMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.Bool("error", err != nil),
	)
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), attrs)
	m.requestTotal.Add(ctx, 1, attrs)
}

// RecordCacheHit records a snapshot served from cache.
func (m *ProviderMetrics) RecordCacheHit(provider, operation string) {
	m.recordLookup(provider, operation, "hit")
}

// RecordCacheMiss records a lookup that went to the provider.
func (m *ProviderMetrics) RecordCacheMiss(provider, operation string) {
	m.recordLookup(provider, operation, "miss")
}

func (m *ProviderMetrics) recordLookup(provider, operation, result string) {
	m.cacheLookups.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.String("cache.result", result),
	))
}
