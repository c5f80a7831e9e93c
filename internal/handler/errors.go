package handler

import (
	"errors"
	"net/http"

	"github.com/examind/examind-backend/internal/response"
	"github.com/examind/examind-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// failFromError maps a service-layer error to its HTTP status and typed
// response code. Unknown errors become a 500 without leaking detail.
func failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTestNotFound), errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrTestInactive):
		response.Fail(c, http.StatusConflict, response.ErrTestInactive)
	case errors.Is(err, service.ErrTestNotYetOpen):
		response.Fail(c, http.StatusConflict, response.ErrTestNotYetOpen)
	case errors.Is(err, service.ErrTestClosed):
		response.Fail(c, http.StatusConflict, response.ErrTestClosed)
	case errors.Is(err, service.ErrAlreadyCompleted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyCompleted)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrInvalidState):
		response.Fail(c, http.StatusConflict, response.ErrInvalidState)
	case errors.Is(err, service.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
