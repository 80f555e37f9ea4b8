package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/devports/go-lending-backend/internal/domain"
)

func TestIdentity_ResolvesActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity())

	var got domain.Actor
	r.GET("/", func(c *gin.Context) {
		got = ActorFrom(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, " u-1 ")
	req.Header.Set(HeaderUserName, "Alice")
	req.Header.Set(HeaderUserRole, "ADMIN")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got.ID != "u-1" || got.Name != "Alice" || got.Role != domain.RoleAdmin {
		t.Fatalf("unexpected actor: %+v", got)
	}
}

func TestIdentity_DefaultsToUserRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity())

	var got domain.Actor
	r.GET("/", func(c *gin.Context) {
		got = ActorFrom(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "u-2")
	req.Header.Set(HeaderUserRole, "superuser") // unknown role -> user
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got.Role != domain.RoleUser {
		t.Fatalf("expected user role, got %q", got.Role)
	}
}

func TestActorFrom_MissingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if a := ActorFrom(c); a.ID != "" || a.Role != "" {
		t.Fatalf("expected zero actor, got %+v", a)
	}
}

func TestAdminRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity())
	r.GET("/admin", AdminRequired(), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name   string
		id     string
		role   string
		status int
	}{
		{"anonymous", "", "", http.StatusUnauthorized},
		{"plain user", "u-1", "user", http.StatusForbidden},
		{"admin", "u-1", "admin", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.id != "" {
				req.Header.Set(HeaderUserID, tc.id)
				req.Header.Set(HeaderUserRole, tc.role)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d (body %s)", tc.status, w.Code, w.Body.String())
			}
		})
	}
}
