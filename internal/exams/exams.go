// Package exams holds the exam definitions served by this deployment.
// Exams are code: each one registers a descriptor and a question set
// (literal answers, custom check functions, or ungraded fields).
package exams

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/examforge/sessiond/internal/model"
	"github.com/examforge/sessiond/internal/registry"
)

// RegisterAll registers every exam this deployment serves. Called once
// at startup, before the router accepts traffic.
func RegisterAll(r *registry.Registry) {
	r.Register("go-basics-2026", goBasics())
	r.Register("networking-quiz", networkingQuiz())
}

// goBasics is a fixed-window exam with literal and checked answers.
func goBasics() registry.Provider {
	admins := map[string]bool{"proctor@examforge.org": true}

	return registry.Static(
		model.ExamDescriptor{
			ID:           "go-basics-2026",
			Title:        "Go Basics, Spring 2026",
			Start:        model.AbsoluteTime(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
			End:          model.AbsoluteTime(time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)),
			Instructions: "Answer every question. Answers are autosaved as you type.",
			Admin:        func(email string) bool { return admins[email] },
		},
		[]model.Question{
			{ID: "q1", Weight: 1, Type: model.FieldTypeText, Answer: model.LiteralAnswer(42)},
			{ID: "q2", Weight: 2, Type: model.FieldTypeText, Answer: model.FuncAnswer(evenNumber)},
			{ID: "q3", Weight: 1, Type: model.FieldTypeText, Answer: model.LiteralAnswer("goroutine")},
			// Free-form, graded by hand: any non-empty answer passes.
			{ID: "essay", Weight: 3, Type: model.FieldTypeText},
		},
	)
}

// networkingQuiz staggers each visitor's window by the length of their
// email local part, spreading load on the grading backend.
func networkingQuiz() registry.Provider {
	base := time.Date(2026, 4, 10, 13, 0, 0, 0, time.UTC)
	stagger := func(email string) time.Duration {
		local := strings.SplitN(email, "@", 2)[0]
		return time.Duration(len(local)%10) * time.Minute
	}

	return &staggeredExam{
		desc: model.ExamDescriptor{
			ID:    "networking-quiz",
			Title: "Networking Quiz",
			Start: model.TimeFor(func(email string) time.Time { return base.Add(stagger(email)) }),
			End:   model.TimeFor(func(email string) time.Time { return base.Add(stagger(email) + 45*time.Minute) }),
			Read:  func(email string) bool { return strings.HasSuffix(email, "@examforge.org") },
		},
	}
}

// staggeredExam computes its question set per visitor so each email sees
// a distinct expected value.
type staggeredExam struct {
	desc model.ExamDescriptor
}

func (e *staggeredExam) Descriptor(_ context.Context) (*model.ExamDescriptor, error) {
	d := e.desc
	return &d, nil
}

func (e *staggeredExam) Questions(_ context.Context, ident model.Identity, _ map[string]string) ([]model.Question, error) {
	expected := fmt.Sprintf("%d", len(ident.Email)*7)
	return []model.Question{
		{ID: "port", Weight: 1, Type: model.FieldTypeText, Answer: model.LiteralAnswer(443)},
		{ID: "personal", Weight: 2, Type: model.FieldTypeText, Answer: model.LiteralAnswer(expected)},
	}, nil
}

// evenNumber accepts any even integer and explains each rejection.
func evenNumber(_ context.Context, value string) (bool, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("expected a whole number, got %q", value)
	}
	if n%2 != 0 {
		return false, fmt.Errorf("%d is odd", n)
	}
	return true, nil
}
