package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/examforge/sessiond/internal/identity"
	"github.com/examforge/sessiond/internal/model"
	"github.com/examforge/sessiond/internal/response"
)

const (
	// ContextKeyIdentity is the Gin context key for the verified identity.
	ContextKeyIdentity = "identity"
	// ContextKeyCredential is the Gin context key for the raw sign-in
	// credential, needed for the exam-token GET exchange.
	ContextKeyCredential = "credential"
)

// RequireIdentity validates an identity-provider token from the
// Authorization header (or ?token=, for WebSocket upgrades and
// EventSource, which cannot send headers).
func RequireIdentity(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		ident, err := svc.Verify(c.Request.Context(), tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyIdentity, ident)
		c.Set(ContextKeyCredential, tokenStr)
		c.Next()
	}
}

// GetIdentity retrieves the verified identity from the Gin context.
func GetIdentity(c *gin.Context) (model.Identity, bool) {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return model.Identity{}, false
	}
	ident, ok := val.(model.Identity)
	return ident, ok
}

// GetCredential retrieves the raw sign-in credential from the Gin context.
func GetCredential(c *gin.Context) string {
	return c.GetString(ContextKeyCredential)
}

func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1], nil
		}
	}

	if token := c.Query("token"); token != "" {
		return token, nil
	}

	return "", fmt.Errorf("authorization header or token query required")
}
