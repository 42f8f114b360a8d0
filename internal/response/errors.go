package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrNotAuthorized ErrCode = "NOT_AUTHORIZED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Session / exam ────────────────────────────────────────────────
	ErrExamNotFound        ErrCode = "EXAM_NOT_FOUND"
	ErrQuestionsLoadFailed ErrCode = "QUESTIONS_LOAD_FAILED"
	ErrExamNotStarted      ErrCode = "EXAM_NOT_STARTED"
	ErrExamEnded           ErrCode = "EXAM_ENDED"
	ErrReadOnlyAccess      ErrCode = "READ_ONLY_ACCESS"
	ErrSessionNotReady     ErrCode = "SESSION_NOT_READY"
	ErrUnknownQuestion     ErrCode = "UNKNOWN_QUESTION"
	ErrSubmitFailed        ErrCode = "SUBMIT_FAILED"
	ErrRestoreUsed         ErrCode = "RESTORE_ALREADY_USED"
	ErrNoHistoryEntry      ErrCode = "NO_HISTORY_ENTRY"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An identity token is required."
	case ErrTokenInvalid:
		return "The identity token is invalid."
	case ErrNotAuthorized:
		return "You are not authorized to take this exam."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "The request payload is invalid."
	case ErrExamNotFound:
		return "There is no exam with this identifier."
	case ErrQuestionsLoadFailed:
		return "Couldn't load the questions for this exam."
	case ErrExamNotStarted:
		return "This exam has not started yet."
	case ErrExamEnded:
		return "This exam has ended."
	case ErrReadOnlyAccess:
		return "Your access to this exam is read-only."
	case ErrSessionNotReady:
		return "The exam session is still loading."
	case ErrUnknownQuestion:
		return "No such question in this exam."
	case ErrSubmitFailed:
		return "Submission failed. You may try again; resubmitting overwrites your previous score."
	case ErrRestoreUsed:
		return "This history entry was already restored."
	case ErrNoHistoryEntry:
		return "No such history entry."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
