package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appdomain "github.com/happybase/portal/internal/app/domain"
)

type createAppRequest struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required"`
}

func (s *Server) CreateApp(c *gin.Context) {
	var req createAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	sess, _ := sessionFromGin(c)
	resp, err := s.apps.Create(c.Request.Context(), appdomain.CreateRequest{
		CreatorID: sess.UserID,
		Name:      strings.TrimSpace(req.Name),
		URL:       strings.TrimSpace(req.URL),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListApps(c *gin.Context) {
	sess, _ := sessionFromGin(c)
	resp, err := s.apps.List(c.Request.Context(), sess.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetApp(c *gin.Context) {
	sess, _ := sessionFromGin(c)
	resp, err := s.apps.Get(c.Request.Context(), sess.UserID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteApp(c *gin.Context) {
	sess, _ := sessionFromGin(c)
	if err := s.apps.Delete(c.Request.Context(), sess.UserID, strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListAppCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.apps.Catalog()})
}
