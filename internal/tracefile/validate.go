package tracefile

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaCUE string

// Archive validation error codes (E200-E299)
const (
	ErrMalformedJSON  = "E200" // document is not parseable JSON
	ErrSchemaMismatch = "E201" // document violates the archive schema
)

// ValidationError is one schema violation found in an archive document.
type ValidationError struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}

// Validator checks archive documents against the embedded CUE schema.
// Construct once and reuse; Validate is safe for concurrent use.
type Validator struct {
	session cue.Value
}

// NewValidator compiles the embedded schema. Failure means the binary
// shipped with a broken schema, so callers treat it as fatal.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile archive schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Session"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("archive schema has no #Session: %w", err)
	}
	return &Validator{session: def}, nil
}

// Validate reports every schema violation in the document (it does not
// fail fast). A nil return means the document is a well-formed session
// archive; it says nothing about timestamp parsability.
func (v *Validator) Validate(doc []byte) []ValidationError {
	expr, err := cuejson.Extract("session.json", doc)
	if err != nil {
		return []ValidationError{{
			Message: err.Error(),
			Code:    ErrMalformedJSON,
		}}
	}

	val := v.session.Context().BuildExpr(expr)
	if err := val.Err(); err != nil {
		return toValidationErrors(err)
	}

	unified := v.session.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

// toValidationErrors flattens a CUE error list into schema violations
// with dotted document paths.
func toValidationErrors(err error) []ValidationError {
	errs := errors.Errors(err)
	out := make([]ValidationError, 0, len(errs))
	for _, e := range errs {
		msg, args := e.Msg()
		out = append(out, ValidationError{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(msg, args...),
			Code:    ErrSchemaMismatch,
		})
	}
	return out
}
