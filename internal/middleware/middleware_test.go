package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"interior-ledger/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withActor(actor models.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ActorKey, actor)
		c.Next()
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		actor  *models.Actor
		status int
	}{
		{"allowed", &models.Actor{UserID: 1, Role: models.RoleAccounts}, http.StatusOK},
		{"wrong role", &models.Actor{UserID: 1, Role: models.RoleDesigner}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			if tt.actor != nil {
				r.Use(withActor(*tt.actor))
			}
			r.GET("/x", RequireRole(models.RoleAdmin, models.RoleAccounts), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestRequireAuthSetsActor(t *testing.T) {
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("secret"))))
	r.GET("/login", func(c *gin.Context) {
		sess := sessions.Default(c)
		sess.Set("user_id", uint(7))
		sess.Set("role", string(models.RoleManager))
		_ = sess.Save()
		c.Status(http.StatusOK)
	})
	r.GET("/me", RequireAuth(), func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok || actor.UserID != 7 || actor.Role != models.RoleManager {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", w.Code)
	}

	login := httptest.NewRecorder()
	r.ServeHTTP(login, httptest.NewRequest(http.MethodGet, "/login", nil))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, ck := range login.Result().Cookies() {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with session, got %d", w.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Level != zap.WarnLevel {
		t.Fatalf("expected warn level for 404, got %s", entries[0].Level)
	}
	if entries[0].ContextMap()["path"] != "/missing" {
		t.Fatalf("unexpected fields %v", entries[0].ContextMap())
	}
}
