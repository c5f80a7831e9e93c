package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/examind/examind-backend/internal/model"
	"github.com/examind/examind-backend/internal/response"
	"github.com/examind/examind-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ContextKeyClaims is the Gin context key holding validated JWT claims.
const ContextKeyClaims = "claims"

// tokenFromHeader pulls the bearer token out of the Authorization header.
func tokenFromHeader(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", fmt.Errorf("authorization header required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("authorization header malformed")
	}
	return parts[1], nil
}

// authenticate validates the token from source, optionally requires a role,
// and stores the claims in the context. role == "" accepts any role.
func authenticate(
	authService *service.AuthService,
	source func(*gin.Context) (string, error),
	role model.UserRole,
	roleErr response.ErrCode,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := source(c)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := authService.ValidateToken(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		if role != "" && claims.Role != role {
			response.AbortFail(c, http.StatusForbidden, roleErr)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireJWT accepts a valid bearer token of any role.
func RequireJWT(authService *service.AuthService) gin.HandlerFunc {
	return authenticate(authService, tokenFromHeader, "", "")
}

// RequireStudentJWT accepts a valid student bearer token.
func RequireStudentJWT(authService *service.AuthService) gin.HandlerFunc {
	return authenticate(authService, tokenFromHeader, model.RoleStudent, response.ErrStudentAccessOnly)
}

// RequireAdminJWT accepts a valid admin bearer token.
func RequireAdminJWT(authService *service.AuthService) gin.HandlerFunc {
	return authenticate(authService, tokenFromHeader, model.RoleAdmin, response.ErrAdminAccessOnly)
}

// RequireStudentWSAuth accepts a student token from the ?token= query param.
// Browsers cannot set headers on WebSocket upgrade requests.
func RequireStudentWSAuth(authService *service.AuthService) gin.HandlerFunc {
	fromQuery := func(c *gin.Context) (string, error) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			return "", fmt.Errorf("token query param required")
		}
		return tokenStr, nil
	}
	return authenticate(authService, fromQuery, model.RoleStudent, response.ErrStudentAccessOnly)
}

// GetClaims returns the claims stored by the auth middlewares, or nil when
// the request never passed one.
func GetClaims(c *gin.Context) *service.Claims {
	val, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}
