package model

// SessionPhase is derived purely from wall-clock time vs the exam window.
// Transitions are monotonic: pending → running → ended.
type SessionPhase string

const (
	PhasePending SessionPhase = "pending"
	PhaseRunning SessionPhase = "running"
	PhaseEnded   SessionPhase = "ended"
)

// AccessLevel is the visitor's permission tier, computed once per session
// load. Admin bypasses all timing gates.
type AccessLevel string

const (
	AccessAdmin    AccessLevel = "admin"
	AccessAllowed  AccessLevel = "allowed"
	AccessReadOnly AccessLevel = "read-only"
	AccessDenied   AccessLevel = "denied"
)

// CanView reports whether the question form may be shown at all.
func (l AccessLevel) CanView() bool {
	return l != AccessDenied
}

// CanSubmit reports whether final submission is permitted (phase gating
// is applied separately by the session controller).
func (l AccessLevel) CanSubmit() bool {
	return l == AccessAdmin || l == AccessAllowed
}

// Identity is the visitor's verified identity as supplied by the external
// identity provider.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	// ExamToken is the server-issued per-exam signature token attached to
	// the final submission.
	ExamToken string `json:"exam_token,omitempty"`
}
