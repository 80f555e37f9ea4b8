// Package middleware – request identity
//
// This file resolves the acting user from trusted headers set by the edge
// proxy (X-User-ID, X-User-Name, X-User-Role) and stashes a domain.Actor in
// the Gin context for handlers. AdminRequired gates admin-only routes on the
// resolved role.
//
// There is no session or token handling here; authentication happens upstream
// and these headers are assumed to be stripped from client input at the edge.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devports/go-lending-backend/internal/domain"
)

// Identity headers populated by the edge proxy.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"
)

// ctxKeyActor is the Gin context key under which the resolved actor is stored.
const ctxKeyActor = "actor"

// Identity resolves the acting user from request headers and stores it in the
// context. Requests without an X-User-ID pass through with an empty actor;
// endpoints that need an identity reject those themselves.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := domain.Actor{
			ID:   strings.TrimSpace(c.GetHeader(HeaderUserID)),
			Name: strings.TrimSpace(c.GetHeader(HeaderUserName)),
		}
		if strings.EqualFold(strings.TrimSpace(c.GetHeader(HeaderUserRole)), string(domain.RoleAdmin)) {
			actor.Role = domain.RoleAdmin
		} else {
			actor.Role = domain.RoleUser
		}
		c.Set(ctxKeyActor, actor)
		c.Next()
	}
}

// ActorFrom returns the actor resolved by Identity, or a zero Actor when the
// middleware did not run.
func ActorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(ctxKeyActor); ok {
		if a, ok := v.(domain.Actor); ok {
			return a
		}
	}
	return domain.Actor{}
}

// AdminRequired rejects requests whose actor is not an admin. Anonymous
// requests get 401, authenticated non-admins get 403.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor.ID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unauthorized",
				"message":    "authentication required",
			})
			return
		}
		if !actor.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "forbidden",
				"message":    "admin role required",
			})
			return
		}
		c.Next()
	}
}
