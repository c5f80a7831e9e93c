package handler

import (
	"net/http"

	"github.com/examind/examind-backend/internal/middleware"
	"github.com/examind/examind-backend/internal/response"
	"github.com/examind/examind-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TestHandler handles student-facing test endpoints (lobby, paper).
type TestHandler struct {
	testService    *service.TestService
	attemptService *service.AttemptService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(testService *service.TestService, attemptService *service.AttemptService) *TestHandler {
	return &TestHandler{
		testService:    testService,
		attemptService: attemptService,
	}
}

// GetLobby godoc
// GET /api/v1/student/lobby
// Returns active tests with the student's attempt standing.
func (h *TestHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.testService.Lobby(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if lobby == nil {
		lobby = []service.LobbyItem{}
	}

	response.Success(c, http.StatusOK, gin.H{"tests": lobby})
}

// GetTestPaper godoc
// GET /api/v1/student/tests/:test_id/paper
// Returns the question payload from Redis (PostgreSQL on miss).
// SECURITY: requires an IN_PROGRESS attempt for this test, so the paper
// cannot be pulled before starting or after finishing.
func (h *TestHandler) GetTestPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.attemptService.VerifyActive(c.Request.Context(), claims.UserID, testID); err != nil {
		failFromError(c, err)
		return
	}

	paper, err := h.testService.Paper(c.Request.Context(), testID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, paper)
}
