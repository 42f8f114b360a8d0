package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/examforge/sessiond/internal/evaluator"
	"github.com/examforge/sessiond/internal/identity"
	"github.com/examforge/sessiond/internal/middleware"
	"github.com/examforge/sessiond/internal/registry"
	"github.com/examforge/sessiond/internal/response"
	"github.com/examforge/sessiond/internal/session"
	"github.com/examforge/sessiond/internal/upstream"
	"github.com/examforge/sessiond/internal/validator"
)

// SessionHandler exposes the session engine over HTTP.
type SessionHandler struct {
	manager  *session.Manager
	identity *identity.Service
	log      zerolog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(manager *session.Manager, identitySvc *identity.Service, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		manager:  manager,
		identity: identitySvc,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// open resolves the caller's controller for the exam in the path,
// starting the session on first contact. The exam signature token is
// exchanged lazily and attached to the identity before the session opens.
func (h *SessionHandler) open(c *gin.Context) *session.Controller {
	examID := c.Param("exam_id")

	ident, ok := middleware.GetIdentity(c)
	if !ok {
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil
	}

	if existing := h.manager.Get(examID, ident.Email); existing != nil {
		return existing
	}

	token, err := h.identity.ExamToken(c.Request.Context(), examID, ident, middleware.GetCredential(c))
	if err != nil {
		// Sessions still work unsigned-token-less up to submission time;
		// the submit itself will fail upstream if the token is required.
		h.log.Warn().Err(err).Str("exam_id", examID).Str("email", ident.Email).Msg("Exam token exchange failed")
	}
	ident.ExamToken = token

	return h.manager.Open(c.Request.Context(), examID, ident, c.Query("as"))
}

// GetSession handles GET /api/v1/exams/:exam_id/session.
// ?as=<email> requests impersonation (honored for admins only).
func (h *SessionHandler) GetSession(c *gin.Context) {
	ctrl := h.open(c)
	if ctrl == nil {
		return
	}

	if err := ctrl.BlockedBy(); err != nil {
		h.failBlocked(c, err)
		return
	}

	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

// saveAnswerRequest is the body of a field autosave.
type saveAnswerRequest struct {
	Value string `json:"value"`
}

// SaveAnswer handles POST /api/v1/exams/:exam_id/answers/:question_id.
func (h *SessionHandler) SaveAnswer(c *gin.Context) {
	ctrl := h.open(c)
	if ctrl == nil {
		return
	}

	var req saveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := ctrl.Save(c.Request.Context(), c.Param("question_id"), req.Value); err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// checkOneRequest optionally carries a fresh value; omitted means
// "check what is already in the draft".
type checkOneRequest struct {
	Value *string `json:"value"`
}

// CheckOne handles POST /api/v1/exams/:exam_id/check/:question_id.
func (h *SessionHandler) CheckOne(c *gin.Context) {
	ctrl := h.open(c)
	if ctrl == nil {
		return
	}

	var req checkOneRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	verdict, err := ctrl.CheckOne(c.Request.Context(), c.Param("question_id"), req.Value)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, verdict)
}

// CheckAll handles POST /api/v1/exams/:exam_id/check.
func (h *SessionHandler) CheckAll(c *gin.Context) {
	ctrl := h.open(c)
	if ctrl == nil {
		return
	}

	result, err := ctrl.CheckAll(c.Request.Context())
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Submit handles POST /api/v1/exams/:exam_id/submit.
func (h *SessionHandler) Submit(c *gin.Context) {
	ctrl := h.open(c)
	if ctrl == nil {
		return
	}

	sub, err := ctrl.Submit(c.Request.Context())
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"total":   sub.Total,
		"max":     sub.Max,
		"message": "Submission accepted. Resubmitting overwrites your previous score.",
	})
}

// GetHistory handles GET /api/v1/exams/:exam_id/history.
func (h *SessionHandler) GetHistory(c *gin.Context) {
	ctrl := h.open(c)
	if ctrl == nil {
		return
	}

	if err := ctrl.BlockedBy(); err != nil {
		h.failBlocked(c, err)
		return
	}

	response.Success(c, http.StatusOK, ctrl.History(c.Request.Context()))
}

// RestoreHistory handles POST /api/v1/exams/:exam_id/history/:index/restore.
func (h *SessionHandler) RestoreHistory(c *gin.Context) {
	ctrl := h.open(c)
	if ctrl == nil {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	draft, err := ctrl.RestoreHistory(c.Request.Context(), index)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"draft": draft})
}

// failBlocked maps a terminal session block to an HTTP error.
func (h *SessionHandler) failBlocked(c *gin.Context, err error) {
	var loadErr *registry.LoadError
	switch {
	case errors.Is(err, registry.ErrUnknownExam):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
	case errors.As(err, &loadErr):
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrQuestionsLoadFailed, loadErr.Error())
	case errors.Is(err, session.ErrNotAuthorized):
		response.Fail(c, http.StatusForbidden, response.ErrNotAuthorized)
	default:
		h.log.Error().Err(err).Msg("Unmapped session block")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// failSession maps an operation error to an HTTP error.
func (h *SessionHandler) failSession(c *gin.Context, err error) {
	var loadErr *registry.LoadError
	switch {
	case errors.Is(err, registry.ErrUnknownExam):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
	case errors.As(err, &loadErr):
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrQuestionsLoadFailed, loadErr.Error())
	case errors.Is(err, session.ErrNotAuthorized):
		response.Fail(c, http.StatusForbidden, response.ErrNotAuthorized)
	case errors.Is(err, session.ErrNotStarted):
		response.Fail(c, http.StatusForbidden, response.ErrExamNotStarted)
	case errors.Is(err, session.ErrEnded):
		response.Fail(c, http.StatusForbidden, response.ErrExamEnded)
	case errors.Is(err, session.ErrReadOnly):
		response.Fail(c, http.StatusForbidden, response.ErrReadOnlyAccess)
	case errors.Is(err, session.ErrNotReady):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotReady)
	case errors.Is(err, evaluator.ErrUnknownQuestion):
		response.Fail(c, http.StatusNotFound, response.ErrUnknownQuestion)
	case errors.Is(err, session.ErrRestoreUsed):
		response.Fail(c, http.StatusConflict, response.ErrRestoreUsed)
	case errors.Is(err, session.ErrNoHistoryEntry):
		response.Fail(c, http.StatusNotFound, response.ErrNoHistoryEntry)
	case errors.Is(err, upstream.ErrSubmitRejected):
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrSubmitFailed, err.Error())
	default:
		h.log.Error().Err(err).Msg("Unmapped session error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
