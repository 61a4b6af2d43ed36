// Package remote defines the contract between the sync engine and the
// durable document store, together with its error taxonomy and an in-memory
// implementation.
//
// Backends (SQLite, Postgres, HTTP) live in their own packages; this one
// deliberately carries no driver dependencies so the engine can be tested
// against the memory store alone.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/duoplan/duoplan/internal/plan"
)

// Unsubscribe tears down a push subscription. Safe to call more than once.
type Unsubscribe func()

// OnChange delivers a newly committed snapshot. Delivery is at-least-once
// with no ordering guarantee stronger than "eventually reflects the latest
// committed write"; consumers must use the envelope's Rev to discard stale
// or duplicate deliveries.
type OnChange func(plan.Envelope)

// Store is the durable keyed document store consumed by the sync engine.
//
// One document per pairing id. Upsert is an atomic replace-or-insert of the
// whole document; there is no partial update.
type Store interface {
	// Fetch returns the current snapshot for a pairing, or nil when no
	// document exists yet.
	Fetch(ctx context.Context, pairingID string) (*plan.Envelope, error)

	// Upsert atomically replaces (or inserts) the document and returns the
	// new revision. The revision is strictly monotonic per pairing.
	Upsert(ctx context.Context, pairingID string, doc plan.Document) (int64, error)

	// Subscribe registers a push callback for a pairing. The callback may be
	// invoked from an arbitrary goroutine.
	Subscribe(pairingID string, fn OnChange) (Unsubscribe, error)
}

// ErrUnauthorized is returned when the store rejects a caller that is not a
// recognized member of the pairing. Fatal to the session: the engine stops
// writing until re-hydration.
var ErrUnauthorized = errors.New("remote: caller is not a pairing member")

// TransientError wraps a recoverable network or store failure. The engine
// surfaces it and stays usable offline; the next debounce cycle retries.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("remote: transient %s failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError, preserving nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is a recoverable store failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
