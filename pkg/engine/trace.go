package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lifectx/engine/pkg/trace"
)

// opTrace accumulates spans for one engine operation and exports the record
// when the operation finishes. A nil opTrace is a valid no-op.
type opTrace struct {
	exporter trace.Exporter
	record   *trace.TraceRecord
	start    time.Time
}

// startOp begins a trace for the named operation; returns nil when tracing
// is disabled.
func (e *Engine) startOp(operation string) *opTrace {
	if e.tracer == nil {
		return nil
	}
	return &opTrace{
		exporter: e.tracer,
		record: &trace.TraceRecord{
			Timestamp:   time.Now().UTC(),
			OperationID: uuid.New().String(),
			Operation:   operation,
		},
		start: time.Now(),
	}
}

// span times a stage within the operation.
func (t *opTrace) span(name string) *spanTimer {
	if t == nil {
		return &spanTimer{}
	}
	return &spanTimer{trace: t, name: name, start: time.Now()}
}

// end finishes the operation and exports the record. Export failures are
// swallowed: tracing never fails an operation.
func (t *opTrace) end(ctx context.Context, err error) {
	if t == nil {
		return
	}
	t.record.DurationMs = time.Since(t.start).Milliseconds()
	if err != nil {
		t.record.Status = "error"
		t.record.ErrorType = string(Classify(err))
	} else {
		t.record.Status = "success"
	}
	_ = t.exporter.Export(ctx, t.record)
}

// spanTimer measures one stage. The zero value is a no-op.
type spanTimer struct {
	trace *opTrace
	name  string
	start time.Time
}

// finish records the span.
func (st *spanTimer) finish(err error, counters map[string]int64) {
	if st.trace == nil {
		return
	}
	span := trace.SpanRecord{
		Name:       st.name,
		DurationMs: time.Since(st.start).Milliseconds(),
		OK:         err == nil,
		Counters:   counters,
	}
	if err != nil {
		span.ErrorType = string(Classify(err))
	}
	st.trace.record.Spans = append(st.trace.record.Spans, span)
}
