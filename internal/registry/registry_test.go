package registry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/examforge/sessiond/internal/model"
)

func testDescriptor(id string) model.ExamDescriptor {
	return model.ExamDescriptor{
		ID:    id,
		Title: "Test Exam",
		Start: model.AbsoluteTime(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		End:   model.AbsoluteTime(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)),
	}
}

func TestUnknownExam(t *testing.T) {
	r := New()

	if _, err := r.Descriptor(context.Background(), "nope"); !errors.Is(err, ErrUnknownExam) {
		t.Errorf("Descriptor error = %v, want ErrUnknownExam", err)
	}
	if _, err := r.Questions(context.Background(), "nope", model.Identity{}, nil); !errors.Is(err, ErrUnknownExam) {
		t.Errorf("Questions error = %v, want ErrUnknownExam", err)
	}
}

func TestStaticProviderRoundTrip(t *testing.T) {
	r := New()
	questions := []model.Question{
		{ID: "q1", Weight: 1, Type: model.FieldTypeText, Answer: model.LiteralAnswer("yes")},
	}
	r.Register("exam-1", Static(testDescriptor("exam-1"), questions))

	desc, err := r.Descriptor(context.Background(), "exam-1")
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	if desc.ID != "exam-1" || desc.Title != "Test Exam" {
		t.Errorf("descriptor = %+v", desc)
	}

	qs, err := r.Questions(context.Background(), "exam-1", model.Identity{Email: "a@b.c"}, nil)
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	if len(qs) != 1 || qs[0].ID != "q1" {
		t.Errorf("questions = %+v", qs)
	}
}

type failingProvider struct {
	desc  model.ExamDescriptor
	err   error
	panic bool
}

func (p *failingProvider) Descriptor(_ context.Context) (*model.ExamDescriptor, error) {
	d := p.desc
	return &d, nil
}

func (p *failingProvider) Questions(_ context.Context, _ model.Identity, _ map[string]string) ([]model.Question, error) {
	if p.panic {
		panic("provider exploded")
	}
	return nil, p.err
}

func TestQuestionErrorBecomesLoadError(t *testing.T) {
	r := New()
	cause := errors.New("question bank unreachable")
	r.Register("exam-1", &failingProvider{desc: testDescriptor("exam-1"), err: cause})

	_, err := r.Questions(context.Background(), "exam-1", model.Identity{}, nil)

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error = %v, want *LoadError", err)
	}
	if loadErr.ExamID != "exam-1" {
		t.Errorf("ExamID = %q", loadErr.ExamID)
	}
	if !errors.Is(err, cause) {
		t.Error("LoadError does not unwrap to the provider error")
	}
}

func TestQuestionPanicBecomesLoadError(t *testing.T) {
	r := New()
	r.Register("exam-1", &failingProvider{desc: testDescriptor("exam-1"), panic: true})

	_, err := r.Questions(context.Background(), "exam-1", model.Identity{}, nil)

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error = %v, want *LoadError", err)
	}
	if !strings.Contains(loadErr.Error(), "provider exploded") {
		t.Errorf("message = %q, want panic value included", loadErr.Error())
	}
	if loadErr.Stack == "" {
		t.Error("panic LoadError carries no stack trace")
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := New()
	r.Register("exam-1", Static(testDescriptor("exam-1"), nil))
	second := testDescriptor("exam-1")
	second.Title = "Replacement"
	r.Register("exam-1", Static(second, nil))

	desc, err := r.Descriptor(context.Background(), "exam-1")
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	if desc.Title != "Replacement" {
		t.Errorf("Title = %q, want later registration to win", desc.Title)
	}
}
