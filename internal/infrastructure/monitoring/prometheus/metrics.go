package prometheus

import (
	"strconv"
	"time"
)

// Transition outcomes recorded by ObserveTransition.
const (
	OutcomeApplied  = "applied"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// EngineMetrics holds every metric the scheduling engine reports.
type EngineMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// gRPC
	RPCRequestsTotal CounterVec

	// Generation
	SchedulesGenerated CounterVec
	EventsGenerated    CounterVec
	GenerationDuration HistogramVec

	// Lifecycle
	TransitionsTotal   CounterVec
	TransitionDuration HistogramVec
	OverdueEvents      GaugeVec
	TableReloads       CounterVec

	// Infrastructure
	CacheAccess       CounterVec
	MessagesPublished CounterVec
	TicketsIngested   CounterVec
	JobRuns           CounterVec
	JobDuration       HistogramVec
}

func NewEngineMetrics(c *Collector) *EngineMetrics {
	fast := []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}

	return &EngineMetrics{
		HTTPRequestsTotal:   c.Counter("http_requests_total", "Total HTTP requests", "method", "path", "status"),
		HTTPRequestDuration: c.Histogram("http_request_duration_seconds", "HTTP request latency", nil, "method", "path"),
		HTTPActiveRequests:  c.Gauge("http_active_requests", "In-flight HTTP requests"),

		RPCRequestsTotal: c.Counter("grpc_requests_total", "Total gRPC requests", "method", "code"),

		SchedulesGenerated: c.Counter("schedules_generated_total", "Schedule generation calls", "payment_mode", "outcome"),
		EventsGenerated:    c.Counter("events_generated_total", "Events produced by schedule generation", "event_type"),
		GenerationDuration: c.Histogram("generation_duration_seconds", "Schedule generation latency", fast, "payment_mode"),

		TransitionsTotal:   c.Counter("transitions_total", "Status transition attempts", "event_type", "outcome"),
		TransitionDuration: c.Histogram("transition_duration_seconds", "Status transition latency", fast, "event_type"),
		OverdueEvents:      c.Gauge("overdue_events", "Events past their effective date and not terminal", "event_type"),
		TableReloads:       c.Counter("lifecycle_table_reloads_total", "Lifecycle table reloads", "source", "outcome"),

		CacheAccess:       c.Counter("cache_access_total", "Cache lookups", "cache", "result"),
		MessagesPublished: c.Counter("messages_published_total", "Messages published", "topic", "outcome"),
		TicketsIngested:   c.Counter("tickets_ingested_total", "Completed service tickets ingested", "outcome"),
		JobRuns:           c.Counter("job_runs_total", "Scheduled job runs", "job", "outcome"),
		JobDuration:       c.Histogram("job_duration_seconds", "Scheduled job latency", nil, "job"),
	}
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func (m *EngineMetrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RequestInFlight moves the active request gauge by delta.
func (m *EngineMetrics) RequestInFlight(delta int) {
	g := m.HTTPActiveRequests.WithLabelValues()
	if delta > 0 {
		g.Inc()
	} else {
		g.Dec()
	}
}

func (m *EngineMetrics) RecordRPC(method, code string, _ time.Duration) {
	m.RPCRequestsTotal.WithLabelValues(method, code).Inc()
}

func (m *EngineMetrics) ObserveGeneration(paymentMode string, eventCounts map[string]int, d time.Duration, err error) {
	m.SchedulesGenerated.WithLabelValues(paymentMode, outcome(err)).Inc()
	m.GenerationDuration.WithLabelValues(paymentMode).Observe(d.Seconds())
	for eventType, n := range eventCounts {
		m.EventsGenerated.WithLabelValues(eventType).Add(float64(n))
	}
}

func (m *EngineMetrics) ObserveTransition(eventType, result string, d time.Duration) {
	m.TransitionsTotal.WithLabelValues(eventType, result).Inc()
	m.TransitionDuration.WithLabelValues(eventType).Observe(d.Seconds())
}

// SetOverdue replaces the overdue gauge so types that dropped to zero disappear.
func (m *EngineMetrics) SetOverdue(byType map[string]int) {
	m.OverdueEvents.Reset()
	for eventType, n := range byType {
		m.OverdueEvents.WithLabelValues(eventType).Set(float64(n))
	}
}

func (m *EngineMetrics) CacheAccessed(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheAccess.WithLabelValues(cache, result).Inc()
}

func (m *EngineMetrics) Published(topic string, err error) {
	m.MessagesPublished.WithLabelValues(topic, outcome(err)).Inc()
}

func (m *EngineMetrics) TicketIngested(err error) {
	m.TicketsIngested.WithLabelValues(outcome(err)).Inc()
}

func (m *EngineMetrics) TableReloaded(source string, err error) {
	m.TableReloads.WithLabelValues(source, outcome(err)).Inc()
}

func (m *EngineMetrics) JobRun(job string, d time.Duration, err error) {
	m.JobRuns.WithLabelValues(job, outcome(err)).Inc()
	m.JobDuration.WithLabelValues(job).Observe(d.Seconds())
}
