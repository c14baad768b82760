package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/zlog"

	"campreg/internal/gate"
)

// TokenParser resolves a session token to its principal id.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// RoleResolver classifies a principal; the gate implements it.
type RoleResolver interface {
	ResolveRole(ctx context.Context, principalID string) (gate.Role, error)
}

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		zlog.Logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}

// RequireAdmin gates admin routes. Anything short of a valid session
// resolving to Administrator is rejected; the fail-safe default for a
// session with no profile row is Registrant, which lands in the 403
// branch.
func RequireAdmin(tokens TokenParser, roles RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		principalID, err := tokens.ParseToken(token)
		if err != nil {
			zlog.Logger.Warn().Err(err).Msg("rejected invalid session token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		role, err := roles.ResolveRole(c.Request.Context(), principalID)
		if err != nil {
			zlog.Logger.Error().Err(err).Str("principal_id", principalID).Msg("role resolution failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Service is currently unavailable"})
			return
		}
		if role != gate.RoleAdministrator {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Administrator access required"})
			return
		}

		c.Set("principal_id", principalID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
