package metrics

import (
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	TourismRequestsTotal  metric.Int64Counter
	StepDurationSeconds   metric.Float64Histogram
	LLMCallsTotal         metric.Int64Counter
	LLMCallDurationSecond metric.Float64Histogram
	LookupFailuresTotal   metric.Int64Counter
}

var (
	appMetrics  *AppMetrics
	once        sync.Once
	noopMetrics = Noop()
)

// New creates the instruments on the given meter.
func New(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	m.TourismRequestsTotal, err = meter.Int64Counter(
		"tourism_requests_total",
		metric.WithDescription("Total number of tourism chat requests processed"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("tourism_requests_total: %w", err)
	}

	m.StepDurationSeconds, err = meter.Float64Histogram(
		"tourism_step_duration_seconds",
		metric.WithDescription("Duration of orchestrator steps in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("tourism_step_duration_seconds: %w", err)
	}

	m.LLMCallsTotal, err = meter.Int64Counter(
		"llm_calls_total",
		metric.WithDescription("Total number of completion calls by provider and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("llm_calls_total: %w", err)
	}

	m.LLMCallDurationSecond, err = meter.Float64Histogram(
		"llm_call_duration_seconds",
		metric.WithDescription("Duration of completion calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("llm_call_duration_seconds: %w", err)
	}

	m.LookupFailuresTotal, err = meter.Int64Counter(
		"lookup_failures_total",
		metric.WithDescription("Total number of failed geocode, weather and places lookups"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("lookup_failures_total: %w", err)
	}

	return m, nil
}

// InitAppMetrics initializes the global instruments once, using the
// globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		m, err := New(otel.GetMeterProvider().Meter("TravelMate"))
		if err != nil {
			log.Fatalf("Metrics: %v", err)
		}
		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the global instruments. Before InitAppMetrics has run it
// hands out no-op instruments so packages can be used in isolation.
func Get() *AppMetrics {
	if appMetrics == nil {
		return noopMetrics
	}
	return appMetrics
}

// Noop returns instruments that record nothing.
func Noop() *AppMetrics {
	m, _ := New(noop.NewMeterProvider().Meter("noop"))
	return m
}
