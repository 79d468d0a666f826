package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Principal is the authenticated identity handed to the service by the
// upstream gateway. The service itself performs no signature verification on
// these endpoints; whoever resolves the principal owns that.
type Principal struct {
	UserID string
	Role   string
	Email  string
}

// PrincipalResolver extracts a principal from a request, if one is present.
// Keep this small so tests can fake it easily.
type PrincipalResolver interface {
	Resolve(c *gin.Context) (Principal, bool)
}

// GatewayResolver trusts the identity headers the API gateway forwards after
// it has validated the session cookie.
type GatewayResolver struct{}

func NewGatewayResolver() *GatewayResolver { return &GatewayResolver{} }

func (GatewayResolver) Resolve(c *gin.Context) (Principal, bool) {
	id := c.GetHeader("x-user-id")

	if id == "" {
		return Principal{}, false
	}

	return Principal{
		UserID: id,
		Role:   c.GetHeader("x-user-role"),
		Email:  c.GetHeader("x-user-email"),
	}, true
}

type PrincipalMiddleware struct {
	resolver PrincipalResolver
}

func NewPrincipalMiddleware(resolver PrincipalResolver) *PrincipalMiddleware {
	return &PrincipalMiddleware{resolver: resolver}
}

// Attach resolves the principal when present and stashes it on the context.
// It never aborts: flows that allow anonymous callers (forgot/reset password)
// share routes with authenticated ones.
func (m *PrincipalMiddleware) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := m.resolver.Resolve(c)

		if ok {
			c.Set(ctxUserIDKey, p.UserID)
			c.Set(ctxRoleKey, p.Role)
			c.Set(ctxEmailKey, p.Email)
		}

		c.Next()
	}
}

// RequireIdentity aborts with 401 when no principal was resolved.
func (m *PrincipalMiddleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := UserIDFromContext(c)

		if !ok || id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Unauthorized: no user session found.",
			})
			return
		}

		c.Next()
	}
}

// Helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func RoleFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxEmailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}
