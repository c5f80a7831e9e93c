package handler

import (
	"net/http"
	"strconv"

	"github.com/examind/examind-backend/internal/repository"
	"github.com/examind/examind-backend/internal/response"
	"github.com/examind/examind-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler handles administrative endpoints: result listings, forced
// expiry, session resets.
type AdminHandler struct {
	attemptRepo    *repository.AttemptRepository
	attemptService *service.AttemptService
	authService    *service.AuthService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	attemptRepo *repository.AttemptRepository,
	attemptService *service.AttemptService,
	authService *service.AuthService,
) *AdminHandler {
	return &AdminHandler{
		attemptRepo:    attemptRepo,
		attemptService: attemptService,
		authService:    authService,
	}
}

// ListTestResults godoc
// GET /api/v1/admin/tests/:test_id/results
// Lists attempt results for a test with pagination.
func (h *AdminHandler) ListTestResults(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	results, total, err := h.attemptRepo.ListByTest(c.Request.Context(), testID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage != 0 {
		totalPages++
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	})
}

// ExpireAttempt godoc
// POST /api/v1/admin/attempts/:attempt_id/expire
// Force-finalizes an overdue attempt immediately instead of waiting for the
// expiry worker.
func (h *AdminHandler) ExpireAttempt(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.attemptService.ForceExpire(c.Request.Context(), attemptID); err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ResetUserSession godoc
// POST /api/v1/admin/users/:user_id/reset-session
// Clears a student's single-device session so they can log in again.
func (h *AdminHandler) ResetUserSession(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), userID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
