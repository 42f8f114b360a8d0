package session

import (
	"time"

	"github.com/examforge/sessiond/internal/model"
)

// QuestionView is a question as exposed to the page: no answer
// specification ever leaves the engine.
type QuestionView struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
	Type   string  `json:"type"`
	Mount  string  `json:"mount,omitempty"`
}

// Snapshot is the full render state of a session.
type Snapshot struct {
	ExamID       string             `json:"exam_id"`
	Title        string             `json:"title,omitempty"`
	Instructions string             `json:"instructions,omitempty"`
	State        State              `json:"state"`
	BlockReason  string             `json:"block_reason,omitempty"`
	Access       model.AccessLevel  `json:"access"`
	Phase        model.SessionPhase `json:"phase"`
	Countdown    string             `json:"countdown"`
	Start        time.Time          `json:"start"`
	End          time.Time          `json:"end"`
	Email        string             `json:"email"`
	Impersonated bool               `json:"impersonated,omitempty"`
	Questions    []QuestionView     `json:"questions,omitempty"`
	Draft        model.Draft        `json:"draft,omitempty"`
	Scores       model.ScoreState   `json:"scores"`
	Submitted    bool               `json:"submitted"`
	// CanEdit/CanSubmit mirror the gates so the page can disable inputs
	// and controls the way the phase/role combination requires.
	CanEdit   bool `json:"can_edit"`
	CanSubmit bool `json:"can_submit"`
}

// Snapshot captures the current render state under the session lock.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		ExamID:       c.examID,
		State:        c.state,
		Access:       c.level,
		Phase:        c.lastTick.Phase,
		Countdown:    c.countdown,
		Start:        c.start,
		End:          c.end,
		Email:        c.effective.Email,
		Impersonated: c.effective.Email != c.real.Email,
		Submitted:    c.submitted,
		CanEdit:      c.editGateLocked() == nil,
		CanSubmit:    c.submitGateLocked() == nil,
	}

	if c.desc != nil {
		snap.Title = c.desc.Title
		snap.Instructions = c.desc.Instructions
	}
	if c.blockErr != nil {
		snap.BlockReason = c.blockErr.Error()
	}
	if c.state == StateReady {
		snap.Questions = make([]QuestionView, 0, len(c.questions))
		for _, q := range c.questions {
			snap.Questions = append(snap.Questions, QuestionView{
				ID:     q.ID,
				Weight: q.Weight,
				Type:   string(q.Type),
				Mount:  q.Mount,
			})
		}
		snap.Draft = c.draft.Clone()
		snap.Scores = c.eval.State()
	}

	return snap
}

// BlockedBy returns the terminal error when the session is blocked.
func (c *Controller) BlockedBy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateBlocked {
		return c.blockErr
	}
	return nil
}
