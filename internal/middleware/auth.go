package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fleet-wars-backend/internal/models"
	"fleet-wars-backend/internal/services"
)

const (
	identityKey  = "identity"
	sessionIDKey = "session_id"
)

func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			// Browsers cannot set headers on websocket upgrades.
			tokenString = c.Query("token")
			if tokenString == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				c.Abort()
				return
			}
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(identityKey, claims.Identity)
		c.Set(sessionIDKey, claims.SessionID)

		c.Next()
	}
}

// Identity returns the authenticated caller, or the zero identity.
func Identity(c *gin.Context) models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}
	}
	id, _ := v.(models.Identity)
	return id
}

func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, player models.Identity, action string, limit int, window time.Duration) (bool, error)
}

func RateLimitMiddleware(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := Identity(c)
		if id.IsZero() || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		path := c.FullPath()

		var action string
		var limit int
		window := time.Minute

		switch {
		case strings.HasSuffix(path, "/fire"), strings.HasSuffix(path, "/respond"):
			action, limit = "move", services.DefaultRateLimitMoves
		case path == "/api/matches", strings.HasSuffix(path, "/join"):
			action, limit = "lobby", services.DefaultRateLimitLobby
		default:
			c.Next()
			return
		}

		allowed, err := limiter.CheckRateLimit(c.Request.Context(), id, action, limit, window)
		if err != nil || !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
