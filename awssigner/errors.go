package awssigner

import "errors"

// ErrInvalidConfig marks configuration errors surfaced eagerly at setup.
var ErrInvalidConfig = errors.New("invalid aws signing configuration")

// ErrSigningFailure wraps any failure while signing an in-flight request:
// credential resolution, reading the body for the payload hash, or the
// signing computation itself. The request must be aborted, never sent
// unsigned.
var ErrSigningFailure = errors.New("failed to sign request with AWS SigV4")
