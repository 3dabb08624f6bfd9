package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imran-vz/cocoacomaastore/internal/auth"
	"github.com/imran-vz/cocoacomaastore/pkg/errors"
)

// ActorContextKey is the gin context key carrying the authenticated
// actor id used for audit attribution.
const ActorContextKey = "actor_id"

// AuthMiddleware validates JWT tokens and stores the actor identity.
func AuthMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Warn("Missing authorization header",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			c.JSON(http.StatusUnauthorized, errors.NewStandardError("Unauthorized", "missing authorization header", "Header: Authorization"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Warn("Invalid authorization header format",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			c.JSON(http.StatusUnauthorized, errors.NewStandardError("Unauthorized", "invalid authorization header format", "Expected: Bearer <token>"))
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			if err == auth.ErrExpiredToken {
				c.JSON(http.StatusUnauthorized, errors.NewStandardError("Unauthorized", "token expired", "Token has expired, please login again"))
				c.Abort()
				return
			}
			logger.Warn("Invalid token",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			c.JSON(http.StatusUnauthorized, errors.NewStandardError("Unauthorized", "invalid token", err.Error()))
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Set(ActorContextKey, claims.Subject)
		c.Next()
	}
}

// GetActorID returns the authenticated actor id, empty when the request
// skipped auth.
func GetActorID(c *gin.Context) string {
	if actorID, exists := c.Get(ActorContextKey); exists {
		if id, ok := actorID.(string); ok {
			return id
		}
	}
	return ""
}
