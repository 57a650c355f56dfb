package server

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	portaldomain "github.com/happybase/portal/internal/portal/domain"
	"github.com/shopspring/decimal"
)

type broadcastPortalRequest struct {
	ID       string          `json:"id" binding:"required"`
	Name     string          `json:"name"`
	AppName  string          `json:"appName"`
	Price    decimal.Decimal `json:"price"`
	Interval string          `json:"interval" binding:"required"`
}

func (r broadcastPortalRequest) productName() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return strings.TrimSpace(r.AppName)
}

// BroadcastPortal turns an owned app into a purchasable portal.
func (s *Server) BroadcastPortal(c *gin.Context) {
	var req broadcastPortalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	sess, _ := sessionFromGin(c)
	resp, err := s.portals.Broadcast(c.Request.Context(), portaldomain.BroadcastRequest{
		AppID:          strings.TrimSpace(req.ID),
		CreatorID:      sess.UserID,
		OrganizationID: sess.OrgID,
		Name:           req.productName(),
		Price:          req.Price.String(),
		Interval:       strings.TrimSpace(req.Interval),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetPortalView(c *gin.Context) {
	view, err := s.portals.View(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) RenderPortal(c *gin.Context) {
	view, err := s.portals.View(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.renderPortal(c, view)
}

// RenderPortalAccess is the post-checkout landing page.
func (s *Server) RenderPortalAccess(c *gin.Context) {
	view, err := s.portals.Access(c.Request.Context(), strings.TrimSpace(c.Param("id")), c.Param("token"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.renderPortal(c, view)
}

func (s *Server) renderPortal(c *gin.Context, view *portaldomain.AccessView) {
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := s.portalPage.Execute(c.Writer, view); err != nil {
		_ = c.Error(err)
	}
}

var portalTemplate = template.Must(template.New("portal").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Happybase</title>
<style>
html, body { margin: 0; height: 100%; }
iframe { border: 0; width: 100%; height: 100%; display: block; }
.cta {
  position: fixed; right: 24px; bottom: 24px;
  padding: 12px 20px; border-radius: 9999px;
  background: #111827; color: #fff; font: 600 15px system-ui, sans-serif;
  text-decoration: none; box-shadow: 0 4px 14px rgba(0, 0, 0, .25);
}
</style>
</head>
<body>
<iframe src="{{.SourceURL}}" title="portal" allow="fullscreen"></iframe>
{{- if .ShowCheckout}}
<a class="cta" href="{{.PaymentLink}}" target="_top">{{.CTA}}</a>
{{- end}}
</body>
</html>
`))
