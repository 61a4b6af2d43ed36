// Package schema validates incoming document snapshots against an embedded
// CUE contract.
//
// The sync engine never adopts a remote snapshot that fails validation: a
// malformed document keeps the last good local state and surfaces a warning
// instead of crashing the session. Validation is shape-level on the wire
// form, so a snapshot written by a newer client with extra fields still
// passes (every struct in the contract is open).
package schema

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed document.cue
var documentCUE string

// ValidationError reports why a snapshot was rejected.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema: malformed document: %s", e.Message)
}

// Validator checks document snapshots against the embedded contract.
// Construct once and reuse; compilation of the contract is not free.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded contract.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(documentCUE, cue.Filename("document.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("schema: compile contract: %w", err)
	}
	schema := v.LookupPath(cue.ParsePath("#Document"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("schema: missing #Document: %w", err)
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

// ValidateJSON checks the raw wire form of a document snapshot. Returns a
// *ValidationError when the shape is wrong, nil when it is acceptable.
func (v *Validator) ValidateJSON(raw []byte) error {
	val := v.ctx.CompileBytes(raw, cue.Filename("snapshot.json"))
	if err := val.Err(); err != nil {
		return &ValidationError{Message: cueerrors.Details(err, nil)}
	}

	unified := v.schema.Unify(val)
	// Concrete validation is what catches missing required fields: a field
	// the snapshot never supplied stays a bare constraint after unification.
	if err := unified.Validate(cue.Final(), cue.Concrete(true)); err != nil {
		return &ValidationError{Message: cueerrors.Details(err, nil)}
	}
	return nil
}
