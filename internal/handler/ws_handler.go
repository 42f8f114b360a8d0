package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/examforge/sessiond/internal/identity"
	"github.com/examforge/sessiond/internal/middleware"
	"github.com/examforge/sessiond/internal/session"
	"github.com/examforge/sessiond/internal/ws"
)

// WSHandler streams clock ticks to the page and accepts autosave/check/
// submit actions over one socket.
type WSHandler struct {
	manager  *session.Manager
	identity *identity.Service
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewWSHandler creates a WSHandler. allowedOrigins follows the CORS
// configuration; "*" disables the origin check.
func NewWSHandler(manager *session.Manager, identitySvc *identity.Service, allowedOrigins []string, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		manager:  manager,
		identity: identitySvc,
		upgrader: buildUpgrader(allowedOrigins),
		log:      log.With().Str("component", "ws_handler").Logger(),
	}
}

func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// Stream handles GET /ws/v1/exams/:exam_id/stream.
func (h *WSHandler) Stream(c *gin.Context) {
	examID := c.Param("exam_id")

	ident, ok := middleware.GetIdentity(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}

	ctrl := h.manager.Get(examID, ident.Email)
	if ctrl == nil {
		token, err := h.identity.ExamToken(c.Request.Context(), examID, ident, middleware.GetCredential(c))
		if err != nil {
			h.log.Warn().Err(err).Str("exam_id", examID).Msg("Exam token exchange failed")
		}
		ident.ExamToken = token
		ctrl = h.manager.Open(c.Request.Context(), examID, ident, c.Query("as"))
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	log := h.log.With().Str("exam_id", examID).Str("email", ident.Email).Logger()
	log.Info().Msg("Stream opened")

	done := make(chan struct{})
	go h.pushTicks(conn, ctrl, done)
	defer close(done)

	for {
		var req ws.RequestPayload
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Stream read error")
			}
			return
		}
		h.handleAction(c, conn, ctrl, req)
	}
}

// pushTicks writes one tick event per second until the socket or session
// goes away. The session's own clock monitor already throttles phase
// emission; this loop only mirrors the latest state out to the page.
func (h *WSHandler) pushTicks(conn *ws.Conn, ctrl *session.Controller, done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			snap := ctrl.Snapshot()
			err := conn.WriteTyped(ws.TickResponse{
				Event:     ws.EventTick,
				Phase:     snap.Phase,
				Countdown: snap.Countdown,
				CanEdit:   snap.CanEdit,
				CanSubmit: snap.CanSubmit,
				State:     snap.State,
			})
			if err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) handleAction(c *gin.Context, conn *ws.Conn, ctrl *session.Controller, req ws.RequestPayload) {
	ctx := c.Request.Context()

	switch req.Action {
	case ws.ActionPing:
		conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})

	case ws.ActionSave:
		value := ""
		if req.Value != nil {
			value = *req.Value
		}
		if err := ctrl.Save(ctx, req.QID, value); err != nil {
			conn.WriteError(err.Error())
			return
		}
		conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, QID: req.QID, Status: "saved"})

	case ws.ActionCheck:
		verdict, err := ctrl.CheckOne(ctx, req.QID, req.Value)
		if err != nil {
			conn.WriteError(err.Error())
			return
		}
		snap := ctrl.Snapshot()
		conn.WriteTyped(ws.VerdictResponse{Event: ws.EventVerdict, Verdict: verdict, Scores: snap.Scores})

	case ws.ActionCheckAll:
		result, err := ctrl.CheckAll(ctx)
		if err != nil {
			conn.WriteError(err.Error())
			return
		}
		conn.WriteTyped(ws.CheckedResponse{Event: ws.EventChecked, Result: result})

	case ws.ActionSubmit:
		sub, err := ctrl.Submit(ctx)
		if err != nil {
			conn.WriteError(err.Error())
			return
		}
		conn.WriteTyped(ws.SubmittedResponse{
			Event:   ws.EventSubmitted,
			Total:   sub.Total,
			Max:     sub.Max,
			Message: "Submission accepted. Resubmitting overwrites your previous score.",
		})

	default:
		conn.WriteError("unknown action")
	}
}
