package boundary

import "errors"

// ErrNotStarted is returned by every per-provider and instance-level
// method invoked before Start has completed.
var ErrNotStarted = errors.New("boundary: not started, call Start first")

// ErrAlreadyStarted is returned by Start if called more than once.
var ErrAlreadyStarted = errors.New("boundary: already started")

// ErrUnknownProvider is returned by Provider/GetCircuitStatus for a
// name with no registered pipeline.
var ErrUnknownProvider = errors.New("boundary: unknown provider")

// ErrStateStorageRequired is returned by Start when mode requires a
// StateStorage implementation that was not supplied.
var ErrStateStorageRequired = errors.New("boundary: stateStorage is required for this mode unless localUnsafe is set")
