package model

import (
	"context"
	"fmt"
)

// FieldType distinguishes persistable text fields from file uploads,
// which are never autosaved.
type FieldType string

const (
	FieldTypeText FieldType = "text"
	FieldTypeFile FieldType = "file"
)

// CheckFunc evaluates a submitted value. It may suspend (network, sandbox
// execution) and must honor ctx. A returned error carries the user-facing
// failure reason; (false, nil) means incorrect with no specific reason.
type CheckFunc func(ctx context.Context, value string) (bool, error)

// AnswerSpec is a question's answer specification: a literal compared by
// string equality, a check function, or absent (zero value) for
// manual-credit questions where any non-empty value passes.
type AnswerSpec struct {
	Literal *string
	Check   CheckFunc
}

// LiteralAnswer builds an AnswerSpec comparing against the literal's
// string form ("42" and 42 compare equal, "42.0" does not).
func LiteralAnswer(v interface{}) AnswerSpec {
	s := fmt.Sprintf("%v", v)
	return AnswerSpec{Literal: &s}
}

// FuncAnswer builds an AnswerSpec backed by a check function.
func FuncAnswer(fn CheckFunc) AnswerSpec {
	return AnswerSpec{Check: fn}
}

// Absent reports whether no answer specification was supplied.
func (a AnswerSpec) Absent() bool {
	return a.Literal == nil && a.Check == nil
}

// Question is one exam question as produced by a question provider.
// Read-only to the engine.
type Question struct {
	ID     string
	Weight float64
	Type   FieldType
	// Mount names the DOM target the embedding page renders this question
	// into. Opaque to the engine; echoed back in session snapshots.
	Mount  string
	Answer AnswerSpec
}
