package server

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	obslogger "github.com/happybase/portal/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	redirectSignup    = "/auth/signup"
	redirectHome      = "/home"
	redirectSuspended = "/suspended"
	redirectError     = "/error"
)

// publicPrefixes never require a session.
var publicPrefixes = []string{
	"/auth",
	"/pricing",
	"/privacy",
	"/portal/",
	"/terms",
	"/api/",
	"/health",
	"/metrics",
	redirectSuspended,
	redirectError,
}

// allowedPrefixes are the navigable areas of the dashboard.
var allowedPrefixes = []string{
	"/home",
	"/users",
	"/query",
	"/auth",
	"/api/",
	"/portals",
	"/billing",
	"/portal",
	"/apps",
	"/terms",
	"/privacy",
	"/health",
	"/metrics",
	redirectSuspended,
	redirectError,
}

func isPublicPath(p string) bool {
	return hasAnyPrefix(p, publicPrefixes)
}

func isAllowedPath(p string) bool {
	return hasAnyPrefix(p, allowedPrefixes)
}

func hasAnyPrefix(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// isStaticAsset matches file requests such as /assets/app.js.
func isStaticAsset(p string) bool {
	return path.Ext(p) != ""
}

// RouteGate redirects dashboard navigation based on session and organization
// state. API routes authenticate on their own and are passed through.
func (s *Server) RouteGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/webhooks") || isStaticAsset(p) {
			c.Next()
			return
		}
		if !isAllowedPath(p) {
			s.redirect(c, redirectHome)
			return
		}
		if isPublicPath(p) {
			c.Next()
			return
		}

		sess, err := s.resolveSession(c)
		if err != nil {
			s.redirect(c, redirectSignup)
			return
		}

		orgID := sess.OrgID
		if orgID == "" && s.directory != nil {
			user, err := s.directory.GetUser(c.Request.Context(), sess.UserID)
			if err != nil {
				s.gateFailure(c, "gate user lookup failed", err)
				return
			}
			if user != nil {
				orgID, _ = user.PublicMetadata["organization_id"].(string)
			}
		}
		if orgID != "" && s.directory != nil {
			org, err := s.directory.GetOrganization(c.Request.Context(), orgID)
			if err != nil {
				s.gateFailure(c, "gate organization lookup failed", err)
				return
			}
			if org.Suspended() {
				s.redirect(c, redirectSuspended)
				return
			}
		}

		c.Next()
	}
}

func (s *Server) gateFailure(c *gin.Context, msg string, err error) {
	obslogger.WithContext(c.Request.Context(), s.log).Error(msg,
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	s.redirect(c, redirectError)
}

func (s *Server) redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
	c.Abort()
}
