package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"agentic-rag/internal/model"
	"agentic-rag/internal/pkg/jwtutil"
)

const secret = "middleware-secret"

type mapLoader map[uint]*model.User

func (m mapLoader) GetUserByID(_ context.Context, id uint) (*model.User, error) {
	return m[id], nil
}

type flagChecker struct{}

func (flagChecker) IsAdmin(_ context.Context, u *model.User) (bool, error) {
	return u.IsAdmin, nil
}

func newAuthRouter(users mapLoader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	protected := r.Group("/", AuthJWT(secret, users))
	protected.GET("/me", func(c *gin.Context) {
		id, _ := CurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})
	protected.GET("/admin", RequireAdmin(flagChecker{}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRequest(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func mustToken(t *testing.T, key string, exp time.Duration, id uint) string {
	t.Helper()
	tok, err := jwtutil.GenerateToken(key, exp, id)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

func TestAuthJWT(t *testing.T) {
	users := mapLoader{
		1: {ID: 1, IsActive: true},
		2: {ID: 2, IsActive: false},
	}
	r := newAuthRouter(users)

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"valid", mustToken(t, secret, time.Hour, 1), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong secret", mustToken(t, "other-secret", time.Hour, 1), http.StatusUnauthorized},
		{"expired", mustToken(t, secret, -time.Minute, 1), http.StatusUnauthorized},
		{"unknown user", mustToken(t, secret, time.Hour, 99), http.StatusUnauthorized},
		{"inactive user", mustToken(t, secret, time.Hour, 2), http.StatusUnauthorized},
		{"garbage", "not.a.jwt", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := doRequest(r, "/me", tc.token); w.Code != tc.want {
				t.Fatalf("status: got %d want %d (%s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestAuthJWTRejectsOtherSchemes(t *testing.T) {
	r := newAuthRouter(mapLoader{1: {ID: 1, IsActive: true}})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d", w.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	r := newAuthRouter(mapLoader{
		1: {ID: 1, IsActive: true},
		2: {ID: 2, IsActive: true, IsAdmin: true},
	})
	if w := doRequest(r, "/admin", mustToken(t, secret, time.Hour, 1)); w.Code != http.StatusForbidden {
		t.Fatalf("viewer: got %d", w.Code)
	}
	if w := doRequest(r, "/admin", mustToken(t, secret, time.Hour, 2)); w.Code != http.StatusOK {
		t.Fatalf("admin: got %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(0.001, 2, time.Minute)
	r := gin.New()
	r.POST("/login", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, code)
		}
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("over the burst: got %d", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("other client must have its own bucket: got %d", code)
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("preflight: %d %v", w.Code, w.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unlisted origin must not be allowed")
	}
}
