// Package history persists detection outcomes. Each entry records which
// provider a probe run settled on and how, keyed by the credential's
// fingerprint — the credential itself is never written to storage.
package history

import (
	"context"
	"time"

	"keymate/internal/core"
)

// Entry is one recorded detection outcome.
type Entry struct {
	ID           string          `json:"id" bson:"_id"`
	Timestamp    time.Time       `json:"timestamp" bson:"timestamp"`
	Fingerprint  string          `json:"fingerprint" bson:"fingerprint"`
	Provider     core.ProviderID `json:"provider" bson:"provider"`
	Valid        bool            `json:"valid" bson:"valid"`
	FailureClass string          `json:"failure_class,omitempty" bson:"failure_class,omitempty"`
	Message      string          `json:"message" bson:"message"`
	DurationMs   int64           `json:"duration_ms" bson:"duration_ms"`
}

// Store persists and reads detection history. Implementations must be safe
// for concurrent use.
type Store interface {
	Record(ctx context.Context, entry *Entry) error
	Recent(ctx context.Context, limit int) ([]*Entry, error)
	Close() error
}

// DefaultRecentLimit caps Recent queries when the caller passes no limit.
const DefaultRecentLimit = 50

// NoopStore discards every entry. Used when history is disabled.
type NoopStore struct{}

func (NoopStore) Record(context.Context, *Entry) error          { return nil }
func (NoopStore) Recent(context.Context, int) ([]*Entry, error) { return []*Entry{}, nil }
func (NoopStore) Close() error                                  { return nil }
