package engine

import (
	"errors"
	"fmt"
)

// SyncErrorCode categorizes synchronization failures.
type SyncErrorCode string

const (
	// ErrCodeTransient indicates a recoverable fetch or upsert failure.
	// The engine stays usable against the in-memory document; the next
	// mutation's debounce cycle attempts persistence again.
	ErrCodeTransient SyncErrorCode = "TRANSIENT_STORE"

	// ErrCodeUnauthorized indicates the store rejected the caller as not a
	// recognized pairing member. Fatal for the session: writes stop until
	// the next hydration.
	ErrCodeUnauthorized SyncErrorCode = "UNAUTHORIZED"

	// ErrCodeMalformedRemote indicates an incoming snapshot failed shape
	// validation and was not adopted.
	ErrCodeMalformedRemote SyncErrorCode = "MALFORMED_REMOTE"

	// ErrCodeNotReady indicates an operation before hydration completed.
	ErrCodeNotReady SyncErrorCode = "NOT_READY"
)

// SyncError is the structured error surfaced to the UI layer. All engine
// failures cross the asynchronous boundary through the error callback as
// *SyncError; nothing is thrown across it uncaught.
type SyncError struct {
	Code      SyncErrorCode
	Op        string // "hydrate", "save", "push"
	PairingID string
	Err       error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s failed for pairing %s: %v", e.Code, e.Op, e.PairingID, e.Err)
	}
	return fmt.Sprintf("%s: %s failed for pairing %s", e.Code, e.Op, e.PairingID)
}

func (e *SyncError) Unwrap() error { return e.Err }

// CodeOf extracts the sync error code, or "" for foreign errors.
func CodeOf(err error) SyncErrorCode {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
