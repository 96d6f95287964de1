package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and the broker
// adapter return these (optionally wrapped) so callers can tell the cause apart
// in logs and translate it into a domain error where one is needed.
//
//   - ErrNotFound: record does not exist in the store
//   - ErrConflict: a record with the same key already exists
//   - ErrUnavailable: backing service temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
