// Package evaluator checks submitted answers against their question's
// answer specification and keeps the weighted score tally.
package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/examforge/sessiond/internal/model"
)

// DefaultFailureReason is shown when a check function reports incorrect
// without supplying a reason of its own.
const DefaultFailureReason = "Incorrect. Try again."

// ErrUnknownQuestion is returned when a check targets a question id the
// loaded set does not contain.
var ErrUnknownQuestion = errors.New("unknown question")

// Evaluator holds the loaded question set and the visitor's ScoreState.
// It is not safe for concurrent use; the session controller serializes
// access (single UI thread in the source model).
type Evaluator struct {
	questions map[string]model.Question
	order     []string
	scores    map[string]float64
	max       float64
}

// New creates an Evaluator for the loaded question set. Max is the sum of
// all weights and never changes afterwards.
func New(questions []model.Question) *Evaluator {
	e := &Evaluator{
		questions: make(map[string]model.Question, len(questions)),
		order:     make([]string, 0, len(questions)),
		scores:    make(map[string]float64),
	}
	for _, q := range questions {
		e.questions[q.ID] = q
		e.order = append(e.order, q.ID)
		e.max += q.Weight
	}
	return e
}

// CheckOne evaluates a single submitted value and records the verdict.
// Repeated checks of an unchanged value converge to the same verdict and
// never double-count the score. A check-function error becomes the
// verdict's reason, not a failure of CheckOne itself.
func (e *Evaluator) CheckOne(ctx context.Context, questionID, value string) (model.Verdict, error) {
	q, ok := e.questions[questionID]
	if !ok {
		return model.Verdict{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}

	verdict := e.evaluate(ctx, q, value)

	// Latest verdict wins: the entry is overwritten, never accumulated.
	if verdict.Correct {
		e.scores[questionID] = q.Weight
	} else {
		e.scores[questionID] = 0
	}
	verdict.Awarded = e.scores[questionID]

	return verdict, nil
}

// CheckAll evaluates every currently-submitted field sequentially, in
// question order. Per-question failures are local: they produce incorrect
// verdicts but never abort the sweep.
func (e *Evaluator) CheckAll(ctx context.Context, draft model.Draft) model.CheckResult {
	for _, qid := range e.order {
		value, submitted := draft[qid]
		if !submitted {
			continue
		}
		// Unknown ids cannot occur here; qid comes from the loaded set.
		_, _ = e.CheckOne(ctx, qid, value)
	}

	state := e.State()
	return model.CheckResult{
		Answers: draft.Clone(),
		Scores:  state.Scores,
		Total:   state.Total,
		Max:     state.Max,
	}
}

// State returns a copy of the current ScoreState. Total is always the sum
// of recorded scores; unchecked questions are absent.
func (e *Evaluator) State() model.ScoreState {
	scores := make(map[string]float64, len(e.scores))
	total := 0.0
	for qid, awarded := range e.scores {
		scores[qid] = awarded
		total += awarded
	}
	return model.ScoreState{Scores: scores, Total: total, Max: e.max}
}

// Question returns the loaded question for an id.
func (e *Evaluator) Question(questionID string) (model.Question, bool) {
	q, ok := e.questions[questionID]
	return q, ok
}

func (e *Evaluator) evaluate(ctx context.Context, q model.Question, value string) model.Verdict {
	v := model.Verdict{QuestionID: q.ID}

	switch {
	case q.Answer.Literal != nil:
		if value == *q.Answer.Literal {
			v.Correct = true
		} else {
			v.Reason = DefaultFailureReason
		}

	case q.Answer.Check != nil:
		ok, err := q.Answer.Check(ctx, value)
		switch {
		case err != nil:
			v.Reason = err.Error()
		case ok:
			v.Correct = true
		default:
			v.Reason = DefaultFailureReason
		}

	default:
		// Absent spec: manual-credit question, any non-empty value passes.
		if value != "" {
			v.Correct = true
		} else {
			v.Reason = DefaultFailureReason
		}
	}

	return v
}
