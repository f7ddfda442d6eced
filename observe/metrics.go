package observe

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records execution metrics for outgoing requests.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records one completed request attempt chain: final
	// status (0 when no response was received), response body size, wall
	// duration and terminal error, if any.
	RecordRequest(ctx context.Context, meta RequestMeta, status int, bytes int64, duration time.Duration, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	bytesCount   metric.Int64Counter
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"http.client.requests",
		metric.WithDescription("Total number of requests executed"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"http.client.errors",
		metric.WithDescription("Total number of requests that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"http.client.duration_ms",
		metric.WithDescription("Request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	bytesCount, err := meter.Int64Counter(
		"http.client.response_bytes",
		metric.WithDescription("Total response bytes received"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		bytesCount:   bytesCount,
	}, nil
}

// RecordRequest records metrics for one completed request.
func (m *metricsImpl) RecordRequest(ctx context.Context, meta RequestMeta, status int, bytes int64, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", meta.Method),
		attribute.String("http.status", strconv.Itoa(status)),
	}
	if meta.Service != "" {
		attrs = append(attrs, attribute.String("service.logical_name", meta.Service))
	}

	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	if bytes > 0 {
		m.bytesCount.Add(ctx, bytes, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordRequest(ctx context.Context, meta RequestMeta, status int, bytes int64, duration time.Duration, err error) {
}

var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = (*noopMetrics)(nil)
)
