package session

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/happybase/portal/internal/config"
	"github.com/happybase/portal/internal/identity/domain"
)

const CookieName = "__session"

// Claims covers both session token layouts: flat org claims and the compact "o" object.
type Claims struct {
	SessionID string     `json:"sid"`
	OrgID     string     `json:"org_id,omitempty"`
	OrgRole   string     `json:"org_role,omitempty"`
	Org       *orgClaims `json:"o,omitempty"`
	jwt.RegisteredClaims
}

type orgClaims struct {
	ID   string `json:"id"`
	Role string `json:"rol"`
}

// Verifier validates session tokens networklessly against the instance public key.
type Verifier struct {
	key    *rsa.PublicKey
	parser *jwt.Parser
}

func New(cfg config.Config) (*Verifier, error) {
	pem := strings.TrimSpace(cfg.Clerk.JWTKey)
	if pem == "" {
		return nil, errors.New("clerk jwt key is required")
	}
	pem = strings.ReplaceAll(pem, `\n`, "\n")
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("parse clerk jwt key: %w", err)
	}
	return NewWithKey(key), nil
}

func NewWithKey(key *rsa.PublicKey) *Verifier {
	return &Verifier{
		key: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(5*time.Second),
		),
	}
}

// Verify parses a raw token into a Session.
func (v *Verifier) Verify(raw string) (domain.Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Session{}, domain.ErrUnauthenticated
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return domain.Session{}, domain.ErrUnauthenticated
	}

	s := domain.Session{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		OrgID:     claims.OrgID,
		OrgRole:   claims.OrgRole,
	}
	if claims.Org != nil {
		if s.OrgID == "" {
			s.OrgID = claims.Org.ID
		}
		if s.OrgRole == "" {
			s.OrgRole = claims.Org.Role
		}
	}
	return s, nil
}

// TokenFromRequest reads the bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
			return strings.TrimSpace(auth[7:])
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
