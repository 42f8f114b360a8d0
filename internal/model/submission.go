package model

import (
	"time"
)

// Draft is the in-progress mapping from question id to submitted value.
// File-typed fields never enter a draft.
type Draft map[string]string

// Clone returns an independent copy of the draft.
func (d Draft) Clone() Draft {
	out := make(Draft, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Verdict is the outcome of checking one answer.
type Verdict struct {
	QuestionID string  `json:"question_id"`
	Correct    bool    `json:"correct"`
	Awarded    float64 `json:"awarded"`
	// Reason is the user-facing failure message; empty when correct.
	Reason string `json:"reason,omitempty"`
}

// ScoreState maps question id → awarded points (0 or the question's
// weight). A question is either absent (unchecked) or holds its latest
// verdict — never partially stale.
type ScoreState struct {
	Scores map[string]float64 `json:"scores"`
	Total  float64            `json:"total"`
	Max    float64            `json:"max"`
}

// CheckResult is the aggregate outcome of checking all submitted answers.
type CheckResult struct {
	Answers Draft              `json:"answers"`
	Scores  map[string]float64 `json:"scores"`
	Total   float64            `json:"total"`
	Max     float64            `json:"max"`
}

// SignedSubmission is the final, tamper-evident payload sent to the
// grading backend. Created exactly once per submit action; immutable after
// signing. Hash is the hex SHA-256 of the deterministic JSON serialization
// of every field above it; Signature is that digest encrypted under the
// embedded public key, base64-encoded.
type SignedSubmission struct {
	Answers   map[string]string  `json:"answers"`
	Scores    map[string]float64 `json:"scores"`
	Total     float64            `json:"total"`
	Max       float64            `json:"max"`
	Quiz      string             `json:"quiz"`
	Deadline  time.Time          `json:"deadline"`
	Email     string             `json:"email"`
	ExamToken string             `json:"token"`
	Hash      string             `json:"hash,omitempty"`
	Signature string             `json:"signature,omitempty"`
}

// HistoryRecord is one prior save/submission as returned by the grading
// backend. The most recent record is the visitor's official score.
type HistoryRecord struct {
	Time    time.Time         `json:"time"`
	Total   float64           `json:"total"`
	Answers map[string]string `json:"answers"`
}
