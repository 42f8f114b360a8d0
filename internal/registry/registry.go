// Package registry maps exam identifiers to the providers that supply
// their descriptor and question set. Providers are registered once at
// startup; unknown identifiers fail with ErrUnknownExam instead of a
// runtime lookup panic.
package registry

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/examforge/sessiond/internal/model"
)

// ErrUnknownExam is returned when no provider is registered for an exam
// identifier (ResolutionError: terminal, rendered inline).
var ErrUnknownExam = errors.New("no such exam")

// DescriptorProvider supplies exam metadata on demand.
type DescriptorProvider interface {
	Descriptor(ctx context.Context) (*model.ExamDescriptor, error)
}

// QuestionProvider supplies the question set. It is invoked lazily, only
// after access is confirmed, with the visitor identity and the page's
// mount targets. It may fail or panic; both surface as a *LoadError.
type QuestionProvider interface {
	Questions(ctx context.Context, identity model.Identity, mounts map[string]string) ([]model.Question, error)
}

// Provider is the full capability set of a registered exam.
type Provider interface {
	DescriptorProvider
	QuestionProvider
}

// LoadError wraps a question-provider failure with its message and stack
// trace so the controller can render a "couldn't load questions" panel
// without crashing.
type LoadError struct {
	ExamID string
	Err    error
	Stack  string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load questions for %s: %v", e.ExamID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Registry is the capability map from exam id to provider.
type Registry struct {
	mu    sync.RWMutex
	exams map[string]Provider
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{exams: make(map[string]Provider)}
}

// Register binds an exam identifier to its provider. Later registrations
// of the same id replace earlier ones.
func (r *Registry) Register(id string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exams[id] = p
}

// IDs returns all registered exam identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.exams))
	for id := range r.exams {
		ids = append(ids, id)
	}
	return ids
}

// Descriptor resolves an exam id to its descriptor.
func (r *Registry) Descriptor(ctx context.Context, id string) (*model.ExamDescriptor, error) {
	p, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	desc, err := p.Descriptor(ctx)
	if err != nil {
		return nil, fmt.Errorf("descriptor for %s: %w", id, err)
	}
	return desc, nil
}

// Questions invokes the question provider, converting errors and panics
// into a *LoadError.
func (r *Registry) Questions(ctx context.Context, id string, identity model.Identity, mounts map[string]string) (qs []model.Question, err error) {
	p, perr := r.lookup(id)
	if perr != nil {
		return nil, perr
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = &LoadError{
				ExamID: id,
				Err:    fmt.Errorf("question provider panicked: %v", rec),
				Stack:  string(debug.Stack()),
			}
		}
	}()

	qs, err = p.Questions(ctx, identity, mounts)
	if err != nil {
		return nil, &LoadError{ExamID: id, Err: err}
	}
	return qs, nil
}

func (r *Registry) lookup(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.exams[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExam, id)
	}
	return p, nil
}
