package model

import (
	"time"
)

// Predicate decides a per-exam capability for a visitor email.
type Predicate func(email string) bool

// TimeSpec is an exam boundary: either an absolute instant or a function of
// the visitor's email (staggered windows). Exactly one of the two is set.
type TimeSpec struct {
	At *time.Time
	Fn func(email string) time.Time
}

// AbsoluteTime builds a TimeSpec for a fixed instant.
func AbsoluteTime(t time.Time) TimeSpec {
	return TimeSpec{At: &t}
}

// TimeFor builds a TimeSpec computed per visitor.
func TimeFor(fn func(email string) time.Time) TimeSpec {
	return TimeSpec{Fn: fn}
}

// Resolve returns the boundary instant for the given visitor.
func (ts TimeSpec) Resolve(email string) time.Time {
	if ts.Fn != nil {
		return ts.Fn(email)
	}
	if ts.At != nil {
		return *ts.At
	}
	return time.Time{}
}

// ExamDescriptor is the immutable metadata of one exam, produced by a
// registered descriptor provider. Predicates are optional; a nil Allowed
// defaults to open access, a nil Read defaults to no read-only tier.
type ExamDescriptor struct {
	ID           string
	Title        string
	Start        TimeSpec
	End          TimeSpec
	Instructions string // free-form markup, rendered by the embedding page
	Admin        Predicate
	Allowed      Predicate
	Read         Predicate
}

// Window resolves the [start, end) interval for the given visitor.
func (d *ExamDescriptor) Window(email string) (start, end time.Time) {
	return d.Start.Resolve(email), d.End.Resolve(email)
}
