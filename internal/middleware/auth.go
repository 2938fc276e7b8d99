package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/services"
)

const (
	ContextActorKey = "actor"
	ContextRoleKey  = "role"
)

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
	policy services.PolicyService
}

func NewAuthMiddleware(log *logger.Logger, jwtSecret string, policy services.PolicyService) *AuthMiddleware {
	return &AuthMiddleware{
		log:    log.With("Middleware", "AuthMiddleware"),
		secret: []byte(jwtSecret),
		policy: policy,
	}
}

// RequireAuth validates the bearer token and stashes the actor and role
// claims on the request context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return am.secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}
		actor, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		if actor == "" || role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token missing sub or role"})
			return
		}
		c.Set(ContextActorKey, actor)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// RequireAccess gates a route on one ACL triple. No rule, no entry.
func (am *AuthMiddleware) RequireAccess(action, entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRoleKey)
		allowed, err := am.policy.Authorize(c.Request.Context(), role, action, entityType)
		if err != nil {
			am.log.Error("authorization check failed", "role", role, "action", action, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authorization check failed"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
