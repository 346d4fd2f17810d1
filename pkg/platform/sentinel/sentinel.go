package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and external data
// providers return these (optionally wrapped) so the screening service can decide
// how to degrade without knowing which backend produced them.
//
//   - ErrNotFound: the record does not exist in the store or cache
//   - ErrConflict: a write collided with an existing immutable record
//   - ErrUnavailable: the backend or remote provider is temporarily unavailable
//   - ErrBadData: the backend returned data that cannot be decoded
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
	ErrBadData     = errors.New("bad data")
)
