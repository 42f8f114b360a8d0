package registry

import (
	"context"

	"github.com/examforge/sessiond/internal/model"
)

// StaticProvider serves a fixed descriptor and question list. It covers
// exams whose content is known at startup; exams with computed questions
// implement Provider directly.
type StaticProvider struct {
	Desc  model.ExamDescriptor
	Items []model.Question
}

// Static builds a StaticProvider.
func Static(desc model.ExamDescriptor, questions []model.Question) *StaticProvider {
	return &StaticProvider{Desc: desc, Items: questions}
}

// Descriptor implements DescriptorProvider.
func (p *StaticProvider) Descriptor(_ context.Context) (*model.ExamDescriptor, error) {
	d := p.Desc
	return &d, nil
}

// Questions implements QuestionProvider.
func (p *StaticProvider) Questions(_ context.Context, _ model.Identity, _ map[string]string) ([]model.Question, error) {
	out := make([]model.Question, len(p.Items))
	copy(out, p.Items)
	return out, nil
}
