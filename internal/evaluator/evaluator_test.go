package evaluator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/examforge/sessiond/internal/model"
)

func testQuestions() []model.Question {
	return []model.Question{
		{ID: "literal", Weight: 1, Type: model.FieldTypeText, Answer: model.LiteralAnswer(42)},
		{ID: "checked", Weight: 2, Type: model.FieldTypeText, Answer: model.FuncAnswer(positiveNumber)},
		{ID: "manual", Weight: 3, Type: model.FieldTypeText},
	}
}

func positiveNumber(_ context.Context, value string) (bool, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return false, fmt.Errorf("not a number: %q", value)
	}
	return n > 0, nil
}

func TestLiteralStringComparison(t *testing.T) {
	e := New(testQuestions())

	// Literal answers compare as strings: "42" matches the numeric 42,
	// "42.0" does not.
	v, err := e.CheckOne(context.Background(), "literal", "42")
	if err != nil {
		t.Fatalf("CheckOne: %v", err)
	}
	if !v.Correct || v.Awarded != 1 {
		t.Errorf("verdict = %+v, want correct with 1 point", v)
	}

	v, _ = e.CheckOne(context.Background(), "literal", "42.0")
	if v.Correct {
		t.Error("\"42.0\" accepted for literal 42")
	}
	if v.Reason != DefaultFailureReason {
		t.Errorf("reason = %q, want default", v.Reason)
	}
}

func TestCheckFuncSemantics(t *testing.T) {
	e := New(testQuestions())

	v, _ := e.CheckOne(context.Background(), "checked", "7")
	if !v.Correct || v.Awarded != 2 {
		t.Errorf("verdict = %+v, want correct with 2 points", v)
	}

	// false with nil error: generic failure message.
	v, _ = e.CheckOne(context.Background(), "checked", "-3")
	if v.Correct || v.Reason != DefaultFailureReason {
		t.Errorf("verdict = %+v, want default reason", v)
	}

	// An error from the check function is the user-facing reason, not a
	// failure of the check call.
	v, err := e.CheckOne(context.Background(), "checked", "abc")
	if err != nil {
		t.Fatalf("CheckOne returned error: %v", err)
	}
	if v.Correct || v.Reason != `not a number: "abc"` {
		t.Errorf("verdict = %+v", v)
	}
}

func TestAbsentSpecAcceptsNonEmpty(t *testing.T) {
	e := New(testQuestions())

	v, _ := e.CheckOne(context.Background(), "manual", "some essay text")
	if !v.Correct || v.Awarded != 3 {
		t.Errorf("verdict = %+v, want non-empty accepted", v)
	}

	v, _ = e.CheckOne(context.Background(), "manual", "")
	if v.Correct {
		t.Error("empty value accepted for manual question")
	}
}

func TestUnknownQuestion(t *testing.T) {
	e := New(testQuestions())
	if _, err := e.CheckOne(context.Background(), "ghost", "x"); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("error = %v, want ErrUnknownQuestion", err)
	}
}

func TestRepeatedChecksNeverDoubleCount(t *testing.T) {
	e := New(testQuestions())

	for i := 0; i < 5; i++ {
		if _, err := e.CheckOne(context.Background(), "literal", "42"); err != nil {
			t.Fatalf("CheckOne: %v", err)
		}
	}

	state := e.State()
	if state.Scores["literal"] != 1 || state.Total != 1 {
		t.Errorf("state = %+v, want single point after repeated checks", state)
	}

	// A later wrong answer replaces the earlier score entirely.
	e.CheckOne(context.Background(), "literal", "nope")
	state = e.State()
	if state.Scores["literal"] != 0 || state.Total != 0 {
		t.Errorf("state = %+v, want score reset on wrong answer", state)
	}
}

func TestCheckAll(t *testing.T) {
	e := New(testQuestions())

	draft := model.Draft{
		"literal": "42",
		"checked": "abc", // fails with a reason
		// "manual" never submitted: must stay absent from scores
	}
	result := e.CheckAll(context.Background(), draft)

	if result.Total != 1 || result.Max != 6 {
		t.Errorf("total/max = %v/%v, want 1/6", result.Total, result.Max)
	}
	if result.Scores["literal"] != 1 || result.Scores["checked"] != 0 {
		t.Errorf("scores = %+v", result.Scores)
	}
	if _, present := result.Scores["manual"]; present {
		t.Error("unsubmitted question appears in scores")
	}
	if result.Answers["literal"] != "42" {
		t.Errorf("answers = %+v", result.Answers)
	}
}

func TestStateTotalIsSumOfScores(t *testing.T) {
	e := New(testQuestions())

	e.CheckOne(context.Background(), "literal", "42")
	e.CheckOne(context.Background(), "checked", "5")
	e.CheckOne(context.Background(), "manual", "answer")

	state := e.State()
	sum := 0.0
	for _, awarded := range state.Scores {
		sum += awarded
	}
	if state.Total != sum {
		t.Errorf("Total = %v, sum of scores = %v", state.Total, sum)
	}
	if state.Total != 6 || state.Max != 6 {
		t.Errorf("state = %+v, want full marks", state)
	}
}
