// Package persistence mirrors matched state to a document store. It is a
// best-effort collaborator: the in-memory book is authoritative for every
// matching decision, and a persistence fault never unwinds a fill that has
// already been booked (spec: the engine "tolerates each write succeeding or
// failing independently").
package persistence

import (
	"context"

	"bourse/internal/domain"
)

// Recorder is the storage boundary the matching engine writes through.
// Implementations must not block the caller indefinitely; ctx governs that.
type Recorder interface {
	RecordOrder(ctx context.Context, doc domain.Document) error
	RecordHistory(ctx context.Context, entry domain.History) error
}

// Noop discards every write. Useful as a default Recorder when no store is
// configured, and as a base to embed in tests that only care about a subset
// of the interface.
type Noop struct{}

func (Noop) RecordOrder(context.Context, domain.Document) error  { return nil }
func (Noop) RecordHistory(context.Context, domain.History) error { return nil }
