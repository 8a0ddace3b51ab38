package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName    = "dayplan-api"
	daysSpanName  = "dayplan.days.request"
	daysEventName = "days.request.metrics"
)

// dayRequestMetrics collects timings for the day-view read path and emits
// them as one span plus one structured log entry per request.
type dayRequestMetrics struct {
	logger        *log.Logger
	span          trace.Span
	start         time.Time
	authDuration  time.Duration
	fetchDuration time.Duration
	daysReturned  int
	tasksReturned int
	errorStage    string
}

func newDayRequestMetrics(ctx context.Context, logger *log.Logger) (*dayRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, daysSpanName)
	return &dayRequestMetrics{logger: logger, span: span, start: time.Now()}, spanCtx
}

func (m *dayRequestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDuration = d
	}
}

func (m *dayRequestMetrics) ObserveFetch(d time.Duration) {
	if d > 0 {
		m.fetchDuration = d
	}
}

func (m *dayRequestMetrics) SetDaysReturned(days, tasks int) {
	if days > 0 {
		m.daysReturned = days
	}
	if tasks > 0 {
		m.tasksReturned = tasks
	}
}

func (m *dayRequestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

func (m *dayRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	total := time.Since(m.start)
	if m.span != nil {
		m.span.SetAttributes(
			attribute.String("http.route", "/api/days"),
			attribute.Int("http.status_code", status),
			attribute.Float64("dayplan.days.total_ms", durationToMillis(total)),
			attribute.Int("dayplan.days.days_returned", m.daysReturned),
			attribute.Int("dayplan.days.tasks_returned", m.tasksReturned),
		)
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("dayplan.days.error_stage", m.errorStage))
		}
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}
	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"route":          "/api/days",
		"status":         status,
		"total_ms":       durationToMillis(total),
		"days_returned":  m.daysReturned,
		"tasks_returned": m.tasksReturned,
	}
	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.fetchDuration > 0 {
		fields["fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}
	m.logger.WithFields(fields).Info(daysEventName)
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
