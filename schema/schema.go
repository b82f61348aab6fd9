// Package schema declares the interface the gateway forwards schema
// drift detection to. Schema validation and on-disk schema storage are
// an external collaborator, not part of the core; this package carries
// only the contract, with no implementation.
package schema

import "context"

// Snapshot is an opaque, provider-defined recording of a response
// shape, as handed to Save and returned from Load.
type Snapshot struct {
	Provider string
	Endpoint string
	Version  string
	Recorded []byte
}

// Drift describes a detected divergence between a stored snapshot and
// an observed response shape.
type Drift struct {
	Provider string
	Endpoint string
	Fields   []string
	Message  string
}

// Validator is the external collaborator responsible for persisting
// schema snapshots and detecting drift against them. The core never
// implements this; it only forwards a configured Validator, if any, to
// the caller-facing parts of a request where schema tracking applies.
type Validator interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, provider, endpoint string) (Snapshot, bool, error)
	List(ctx context.Context, provider string) ([]Snapshot, error)
	Detect(ctx context.Context, provider, endpoint string, observed []byte) (*Drift, error)
}
