package server

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	identitydomain "github.com/happybase/portal/internal/identity/domain"
	"github.com/happybase/portal/internal/identity/session"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSessionRequiredWithSignedCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	s := &Server{
		engine:   gin.New(),
		log:      zaptest.NewLogger(t),
		verifier: session.NewWithKey(&key.PublicKey),
	}
	s.engine.Use(ErrorHandlingMiddleware())

	var seen identitydomain.Session
	s.engine.GET("/api/me", s.SessionRequired(), func(c *gin.Context) {
		sess, ok := identitydomain.SessionFromContext(c.Request.Context())
		if !ok {
			t.Errorf("expected session on request context")
		}
		seen = sess
		c.Status(http.StatusOK)
	})

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, &session.Claims{
		SessionID: "sess_1",
		OrgID:     "org_1",
		OrgRole:   "org:admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(key)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen.UserID != "user_1" || seen.OrgID != "org_1" || !seen.IsAdmin() {
		t.Fatalf("unexpected session %+v", seen)
	}

	expired, err := jwt.NewWithClaims(jwt.SigningMethodRS256, &session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString(key)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rec.Code)
	}
}
