package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/healthsphere/go-health-backend/internal/auth"
)

func authRouter(t *testing.T, optional bool) (*gin.Engine, *auth.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	mw := RequireAuth(tokens)
	if optional {
		mw = OptionalAuth(tokens)
	}

	r := gin.New()
	r.GET("/ping", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(ContextUserID)})
	})
	return r, tokens
}

func TestRequireAuth_MissingToken(t *testing.T) {
	r, _ := authRouter(t, false)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token -> %d", w.Code)
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	r, tokens := authRouter(t, false)

	tok, err := tokens.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token -> %d body=%s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); body != `{"user":"u1"}` {
		t.Fatalf("body = %s", body)
	}
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	r, _ := authRouter(t, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token -> %d", w.Code)
	}
}

func TestRequireAuth_WrongSigningKey(t *testing.T) {
	r, _ := authRouter(t, false)

	other := auth.NewTokenIssuer("other-secret", time.Hour)
	tok, err := other.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("cross-key token -> %d", w.Code)
	}
}

func TestOptionalAuth_AnonymousPasses(t *testing.T) {
	r, _ := authRouter(t, true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous -> %d", w.Code)
	}
	if body := w.Body.String(); body != `{"user":""}` {
		t.Fatalf("body = %s", body)
	}
}

func TestOptionalAuth_InvalidTokenStillRejected(t *testing.T) {
	r, _ := authRouter(t, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer broken")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("broken token -> %d", w.Code)
	}
}

func TestBearerToken_CaseInsensitivePrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Authorization", "bEaReR abc123")
	if got := bearerToken(c); got != "abc123" {
		t.Fatalf("token = %q", got)
	}

	c.Request.Header.Set("Authorization", "Basic abc123")
	if got := bearerToken(c); got != "" {
		t.Fatalf("basic scheme token = %q", got)
	}
}
