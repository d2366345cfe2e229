package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"marketpulse/internal/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware guards the operational API. Tokens are HS256 bearer tokens
// issued to operators out of band; there is no login flow in this service.
type AuthMiddleware struct {
	secret []byte
}

const ctxOperatorKey = "operator"

func NewAuthMiddleware(cfg config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(cfg.OperatorSecret)}
}

func (m *AuthMiddleware) RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}
		tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			slog.Warn("operator token validation failed", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		if sub, err := token.Claims.GetSubject(); err == nil {
			c.Set(ctxOperatorKey, sub)
		}
		c.Next()
	}
}

// GetOperator returns the authenticated operator subject from context.
func GetOperator(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxOperatorKey)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
