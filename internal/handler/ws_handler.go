package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/examind/examind-backend/internal/middleware"
	"github.com/examind/examind-backend/internal/service"
	ws "github.com/examind/examind-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams an in-progress attempt: autosave, submit, and server
// time over one connection.
type WSHandler struct {
	attemptService  *service.AttemptService
	autosaveService *service.AutosaveService
	log             zerolog.Logger
	upgrader        websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	attemptService *service.AttemptService,
	autosaveService *service.AutosaveService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		attemptService:  attemptService,
		autosaveService: autosaveService,
		log:             log.With().Str("component", "ws_handler").Logger(),
		upgrader:        buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:attempt_id/stream
// Upgrades to WebSocket for real-time autosave and submission.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	// Ownership check before upgrading; services re-check on every message.
	if _, err := h.attemptService.State(c.Request.Context(), attemptID, claims.UserID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "no access to this attempt"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("attempt_id", attemptID.String()).
		Logger()

	wsLog.Info().Msg("Attempt stream connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, claims.UserID, attemptID, &msg)
		case ws.ActionSubmit:
			if h.handleSubmit(conn, wsLog, claims.UserID, attemptID, &msg) {
				return
			}
		case ws.ActionTime:
			h.handleTime(conn, claims.UserID, attemptID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAutosave(conn *websocket.Conn, userID int, attemptID uuid.UUID, msg *ws.RequestPayload) {
	answers, ok := parseAnswerMap(msg.Answers)
	if !ok {
		ws.WriteError(conn, "answers must be keyed by question UUID")
		return
	}
	if len(answers) == 0 {
		ws.WriteError(conn, "answers are required")
		return
	}

	if err := h.autosaveService.SaveAnswers(context.Background(), attemptID, userID, answers); err != nil {
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Count: len(answers)})
}

// handleSubmit finalizes the attempt; returns true when the stream should
// close because the attempt reached a terminal state.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, userID int, attemptID uuid.UUID, msg *ws.RequestPayload) bool {
	finalAnswers, ok := parseAnswerMap(msg.Answers)
	if !ok {
		ws.WriteError(conn, "answers must be keyed by question UUID")
		return false
	}

	result, err := h.attemptService.Submit(context.Background(), attemptID, userID, finalAnswers)
	if err != nil {
		if errors.Is(err, service.ErrAlreadySubmitted) {
			ws.WriteError(conn, "attempt already submitted")
			return true
		}
		wsLog.Error().Err(err).Msg("Submit over stream failed")
		ws.WriteError(conn, "submit failed")
		return false
	}

	ws.WriteTyped(conn, ws.GradedResponse{
		Event:  ws.EventGraded,
		Status: string(result.Status),
		Score:  result.Score,
	})
	return true
}

func (h *WSHandler) handleTime(conn *websocket.Conn, userID int, attemptID uuid.UUID) {
	state, err := h.attemptService.State(context.Background(), attemptID, userID)
	if err != nil {
		ws.WriteError(conn, "state unavailable")
		return
	}
	ws.WriteTyped(conn, ws.TimeResponse{
		Event:            ws.EventTime,
		RemainingSeconds: state.RemainingSeconds,
	})
}
