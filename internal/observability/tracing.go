package observability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a tracer for the given name
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartDBSpan starts a span for database operations
func StartDBSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("DB %s %s", operation, table),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "sql"),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		),
	)
}

// StartServiceSpan starts a span for service operations
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.component", service),
			attribute.String("service.operation", operation),
		),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// DatabaseMetrics holds database-related metrics
type DatabaseMetrics struct {
	queryDuration metric.Float64Histogram
	queryCount    metric.Int64Counter
	errorCount    metric.Int64Counter
}

// NewDatabaseMetrics creates database metrics instruments
func NewDatabaseMetrics() (*DatabaseMetrics, error) {
	meter := otel.Meter(instrumentationName)

	queryDuration, err := meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	queryCount, err := meter.Int64Counter(
		"db.query.count",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{queries}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"db.error.count",
		metric.WithDescription("Total number of database errors"),
		metric.WithUnit("{errors}"),
	)
	if err != nil {
		return nil, err
	}

	return &DatabaseMetrics{
		queryDuration: queryDuration,
		queryCount:    queryCount,
		errorCount:    errorCount,
	}, nil
}

// RecordQuery records a database query metrics
func (m *DatabaseMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
	}

	m.queryCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.queryDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.errorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// TraceDB wraps sql.DB with tracing
type TraceDB struct {
	db      *sql.DB
	metrics *DatabaseMetrics
}

// NewTraceDB creates a traced database wrapper
func NewTraceDB(db *sql.DB) (*TraceDB, error) {
	metrics, err := NewDatabaseMetrics()
	if err != nil {
		return nil, err
	}

	return &TraceDB{
		db:      db,
		metrics: metrics,
	}, nil
}

// QueryContext executes a query with tracing
func (t *TraceDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	ctx, span := StartSpan(ctx, "DB Query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "sql"),
			attribute.String("db.statement", truncateQuery(query)),
		),
	)
	defer span.End()

	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	duration := time.Since(start)

	if err != nil {
		RecordError(span, err)
	} else {
		SetSuccess(span)
	}

	span.SetAttributes(attribute.Int64("db.query_duration_ms", duration.Milliseconds()))

	return rows, err
}

// ExecContext executes a statement with tracing
func (t *TraceDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, span := StartSpan(ctx, "DB Exec",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "sql"),
			attribute.String("db.statement", truncateQuery(query)),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	duration := time.Since(start)

	if err != nil {
		RecordError(span, err)
	} else {
		SetSuccess(span)
		if rowsAffected, raErr := result.RowsAffected(); raErr == nil {
			span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
		}
	}

	span.SetAttributes(attribute.Int64("db.query_duration_ms", duration.Milliseconds()))

	return result, err
}

// QueryRowContext executes a query that returns a single row with tracing
func (t *TraceDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	ctx, span := StartSpan(ctx, "DB QueryRow",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "sql"),
			attribute.String("db.statement", truncateQuery(query)),
		),
	)
	// span.End() cannot wrap the row scan; sql.Row has no completion hook

	row := t.db.QueryRowContext(ctx, query, args...)
	span.End()
	return row
}

// DB returns the underlying database connection
func (t *TraceDB) DB() *sql.DB {
	return t.db
}

func truncateQuery(query string) string {
	if len(query) > 500 {
		return query[:500] + "..."
	}
	return query
}

// SyncMetrics holds sync protocol metrics
type SyncMetrics struct {
	pulls            metric.Int64Counter
	pushes           metric.Int64Counter
	changesDelivered metric.Int64Counter
	changesAccepted  metric.Int64Counter
	conflicts        metric.Int64Counter
	rejections       metric.Int64Counter
	pairings         metric.Int64Counter
}

// NewSyncMetrics creates sync metrics instruments
func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter(instrumentationName)

	pulls, err := meter.Int64Counter(
		"ledgersync.sync.pulls",
		metric.WithDescription("Total number of pull calls"),
		metric.WithUnit("{calls}"),
	)
	if err != nil {
		return nil, err
	}

	pushes, err := meter.Int64Counter(
		"ledgersync.sync.pushes",
		metric.WithDescription("Total number of push calls"),
		metric.WithUnit("{calls}"),
	)
	if err != nil {
		return nil, err
	}

	changesDelivered, err := meter.Int64Counter(
		"ledgersync.sync.changes_delivered",
		metric.WithDescription("Total number of changes delivered on pull"),
		metric.WithUnit("{changes}"),
	)
	if err != nil {
		return nil, err
	}

	changesAccepted, err := meter.Int64Counter(
		"ledgersync.sync.changes_accepted",
		metric.WithDescription("Total number of pushed changes accepted"),
		metric.WithUnit("{changes}"),
	)
	if err != nil {
		return nil, err
	}

	conflicts, err := meter.Int64Counter(
		"ledgersync.sync.conflicts",
		metric.WithDescription("Total number of push conflicts"),
		metric.WithUnit("{changes}"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter(
		"ledgersync.sync.rejections",
		metric.WithDescription("Total number of rejected push items"),
		metric.WithUnit("{changes}"),
	)
	if err != nil {
		return nil, err
	}

	pairings, err := meter.Int64Counter(
		"ledgersync.device.pairings",
		metric.WithDescription("Total number of device pairing attempts"),
		metric.WithUnit("{attempts}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		pulls:            pulls,
		pushes:           pushes,
		changesDelivered: changesDelivered,
		changesAccepted:  changesAccepted,
		conflicts:        conflicts,
		rejections:       rejections,
		pairings:         pairings,
	}, nil
}

// RecordPull records a pull call and how many changes it delivered
func (m *SyncMetrics) RecordPull(ctx context.Context, businessID string, delivered int, hasMore bool) {
	attrs := []attribute.KeyValue{
		attribute.String("business_id", businessID),
		attribute.Bool("has_more", hasMore),
	}
	m.pulls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.changesDelivered.Add(ctx, int64(delivered), metric.WithAttributes(attrs...))
}

// RecordPush records a push call and its per-item outcome counts
func (m *SyncMetrics) RecordPush(ctx context.Context, businessID string, accepted, conflicted, rejected int) {
	attrs := []attribute.KeyValue{
		attribute.String("business_id", businessID),
	}
	m.pushes.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.changesAccepted.Add(ctx, int64(accepted), metric.WithAttributes(attrs...))
	m.conflicts.Add(ctx, int64(conflicted), metric.WithAttributes(attrs...))
	m.rejections.Add(ctx, int64(rejected), metric.WithAttributes(attrs...))
}

// RecordPairing records a device pairing attempt
func (m *SyncMetrics) RecordPairing(ctx context.Context, success bool) {
	m.pairings.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
