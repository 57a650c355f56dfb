package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/happybase/portal/internal/authorization"
	merchantdomain "github.com/happybase/portal/internal/merchant/domain"
	"go.uber.org/zap"
)

// GenerateConnectLink ensures the organization has a connected account and
// returns its onboarding link. Only admins may create a new account.
func (s *Server) GenerateConnectLink(c *gin.Context) {
	sess, _ := sessionFromGin(c)

	admin, err := s.authzSvc.Allowed(c.Request.Context(), sess, authorization.ObjectMerchant, authorization.ActionMerchantCreate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.merchants.EnsureMerchant(c.Request.Context(), merchantdomain.EnsureRequest{
		OrganizationID: sess.OrgID,
		UserID:         sess.UserID,
		Admin:          admin,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RefreshConnectLink mints a fresh onboarding link and redirects to it.
func (s *Server) RefreshConnectLink(c *gin.Context) {
	sess, _ := sessionFromGin(c)

	link, err := s.merchants.RefreshOnboardingLink(c.Request.Context(), sess.OrgID)
	if err != nil {
		s.log.Warn("refresh onboarding link failed",
			zap.String("organization_id", sess.OrgID),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, link)
}

func (s *Server) GetMerchant(c *gin.Context) {
	sess, _ := sessionFromGin(c)

	m, err := s.merchants.GetByOrganization(c.Request.Context(), sess.OrgID)
	if err != nil {
		if errors.Is(err, merchantdomain.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"status": "pending"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": m})
}
