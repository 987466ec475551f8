// Package schema validates jobspec documents against the embedded CUE
// schema.
//
// The lookup path assumes stored values are well-formed, because they
// come from a trusted writer. This package is that trust boundary: the
// admin write path and the validate command check documents here
// before they ever reach the store.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed jobspec.cue
var jobspecCUE string

// ValidateJobspec checks that data is a JSON document satisfying the
// jobspec schema. Returns nil when the document is valid.
//
// Compiles the schema per call: validation runs on the admin write
// path and the validate command, never on the lookup hot path, and a
// fresh cue context per call avoids sharing one across goroutines.
func ValidateJobspec(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("jobspec is not valid JSON")
	}

	ctx := cuecontext.New()
	root := ctx.CompileString(jobspecCUE)
	if err := root.Err(); err != nil {
		return fmt.Errorf("compile jobspec schema: %w", err)
	}
	def := root.LookupPath(cue.ParsePath("#Jobspec"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup #Jobspec: %w", err)
	}

	doc := ctx.CompileBytes(data)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("parse jobspec: %w", err)
	}

	unified := def.Unify(doc)
	if err := unified.Err(); err != nil {
		return fmt.Errorf("jobspec does not satisfy schema: %w", err)
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("jobspec does not satisfy schema: %w", err)
	}
	return nil
}
