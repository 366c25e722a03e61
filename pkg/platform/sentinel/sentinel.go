package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into protocol or domain errors.
//
//   - ErrNotFound: no record under the key
//   - ErrExpired: the record exists but its lifetime has elapsed
//   - ErrConflict: a record with the same key already exists
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrExpired  = errors.New("expired")
)
