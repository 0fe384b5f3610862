package middleware

import (
	"strings"

	"github.com/bomdev/auth-service/internal/domain"
	ctxlog "github.com/bomdev/auth-service/internal/log"
	"github.com/bomdev/auth-service/internal/transport/http/handler"
	"github.com/bomdev/auth-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

type tokenParser interface {
	Parse(raw string) (*usecase.AccessClaims, error)
}

// Auth validates a Bearer access token and stores its claims on the context.
func Auth(parser tokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			handler.Unauthorized(c)
			return
		}

		claims, err := parser.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			handler.Unauthorized(c)
			return
		}

		handler.SetClaims(c, claims)
		c.Request = c.Request.WithContext(ctxlog.WithIdentity(c.Request.Context(), claims.UserID, claims.ProjectID))
		c.Next()
	}
}

// RequireRole runs after Auth and admits callers holding any of roles.
func RequireRole(roles ...domain.RoleName) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := handler.ClaimsFrom(c)
		if !ok {
			handler.Unauthorized(c)
			return
		}
		for _, r := range roles {
			if claims.HasRole(r) {
				c.Next()
				return
			}
		}
		handler.Unauthorized(c)
	}
}
