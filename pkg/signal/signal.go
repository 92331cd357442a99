// Package signal defines normalized events from external data sources
// (biometric providers, calendars, etc). Signals are read-only input to the
// engine: it consumes them as capacity and domain context and never mutates
// them.
package signal

import (
	"context"
	"time"

	"github.com/lifectx/engine/pkg/store"
)

// Signal is a normalized event from an external source.
type Signal struct {
	ID        string
	Source    string
	Type      string
	Timestamp time.Time
	Domain    store.Domain
	EntityIDs []string
	Data      map[string]interface{}
	// CapacityImpact estimates how much the event affects the user's
	// available capacity, negative meaning drain.
	CapacityImpact float64
}

// Source is a plugin that syncs signals from an external provider.
type Source interface {
	// Name identifies the source ("whoop", "calendar", ...).
	Name() string

	// Sync returns signals since the given time, or all when since is nil.
	Sync(ctx context.Context, since *time.Time) ([]Signal, error)
}
