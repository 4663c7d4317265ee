// Package history is the durable record of slots the user has already
// been told about. The store is append-only: the portal reuses doctor
// names across many distinct slots, so old entries are never evicted.
// A slot that is rescheduled away and back must not alert twice.
package history

import (
	"context"
	"time"
)

// SchemaVersion is written into every persisted document. Nothing reads
// it yet; it is reserved so a future layout change can migrate.
const SchemaVersion = 1

// Store decides whether a slot has already triggered a notification.
// Implementations must treat a missing doctor key as an empty history,
// never as an error, and must not hold the underlying resource open
// between calls: every operation is a scoped open-access-close so that
// concurrent processes sharing the store observe a consistent view.
type Store interface {
	// IsKnown reports whether the (doctorName, at) pair was recorded before.
	IsKnown(ctx context.Context, doctorName string, at time.Time) (bool, error)

	// Record appends at to doctorName's history, creating the key if
	// absent. Recording the same pair twice is harmless: IsKnown only
	// checks membership.
	Record(ctx context.Context, doctorName string, at time.Time) error
}
