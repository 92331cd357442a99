// Package trace exports sanitized operation traces for the memory engine.
// Trace records carry timing and identifiers only, never user content.
package trace

import (
	"context"
	"time"
)

// Exporter writes operation traces to a destination.
// Implementations must be safe for concurrent use.
type Exporter interface {
	// Export writes one trace record.
	Export(ctx context.Context, record *TraceRecord) error

	// Close flushes buffered records and releases resources.
	Close() error
}

// TraceRecord is one completed engine operation.
type TraceRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	OperationID string    `json:"operationId"`
	// Operation is the operation type: "extract_document", "extract_turn",
	// "compact", "respond", "confirm".
	Operation  string       `json:"operation"`
	DurationMs int64        `json:"durationMs"`
	Status     string       `json:"status"`
	Spans      []SpanRecord `json:"spans"`
	// ErrorType classifies the failure when Status is "error".
	ErrorType string                 `json:"errorType,omitempty"`
	IDs       map[string]interface{} `json:"ids,omitempty"`
}

// SpanRecord is a single timed stage within an operation.
// Stage names are stable: "gate", "prompt", "model", "filter", "summarize",
// "rank", "write-store".
type SpanRecord struct {
	Name       string           `json:"name"`
	DurationMs int64            `json:"durationMs"`
	OK         bool             `json:"ok"`
	ErrorType  string           `json:"errorType,omitempty"`
	Counters   map[string]int64 `json:"counters,omitempty"`
}

// NoopExporter discards all records.
type NoopExporter struct{}

// Export does nothing.
func (n *NoopExporter) Export(ctx context.Context, record *TraceRecord) error {
	return nil
}

// Close does nothing.
func (n *NoopExporter) Close() error {
	return nil
}
