package ws

import (
	"github.com/examforge/sessiond/internal/model"
	"github.com/examforge/sessiond/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSave     Action = "save"
	ActionCheck    Action = "check"
	ActionCheckAll Action = "check_all"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload is the single client message shape; unused fields stay
// empty per action.
type RequestPayload struct {
	Action Action `json:"action"`
	QID    string `json:"q_id,omitempty"`
	// Value is a pointer so "check without re-sending the value" (nil)
	// is distinguishable from checking an empty string.
	Value *string `json:"value,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick      Event = "tick"
	EventSaved     Event = "saved"
	EventVerdict   Event = "verdict"
	EventChecked   Event = "checked"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// TickResponse streams the clock state roughly once per second.
type TickResponse struct {
	Event     Event              `json:"event"`
	Phase     model.SessionPhase `json:"phase"`
	Countdown string             `json:"countdown"`
	CanEdit   bool               `json:"can_edit"`
	CanSubmit bool               `json:"can_submit"`
	State     session.State      `json:"state"`
}

// SavedResponse acknowledges one autosaved field.
type SavedResponse struct {
	Event  Event  `json:"event"`
	QID    string `json:"q_id"`
	Status string `json:"status"`
}

// VerdictResponse carries one question's check outcome.
type VerdictResponse struct {
	Event   Event            `json:"event"`
	Verdict model.Verdict    `json:"verdict"`
	Scores  model.ScoreState `json:"scores"`
}

// CheckedResponse carries the aggregate of a full check.
type CheckedResponse struct {
	Event  Event             `json:"event"`
	Result model.CheckResult `json:"result"`
}

// SubmittedResponse confirms an accepted submission. Resubmission
// overwrites the prior score; the client is reminded of that.
type SubmittedResponse struct {
	Event   Event   `json:"event"`
	Total   float64 `json:"total"`
	Max     float64 `json:"max"`
	Message string  `json:"message"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
