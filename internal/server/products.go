package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	productdomain "github.com/happybase/portal/internal/product/domain"
	"github.com/shopspring/decimal"
)

type createProductRequest struct {
	Name              string          `json:"name" binding:"required"`
	Price             decimal.Decimal `json:"price"`
	Interval          string          `json:"interval" binding:"required"`
	PrivateContentURL string          `json:"private_content_url"`
	RedirectURL       string          `json:"redirect_url"`
	CreatePaymentLink *bool           `json:"create_payment_link"`
}

// CreateProduct registers a product under the caller's organization. The
// merchant is always the organization's own connected account.
func (s *Server) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	sess, _ := sessionFromGin(c)
	merchant, err := s.merchants.GetByOrganization(c.Request.Context(), sess.OrgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	withLink := true
	if req.CreatePaymentLink != nil {
		withLink = *req.CreatePaymentLink
	}

	resp, err := s.products.Create(c.Request.Context(), productdomain.CreateRequest{
		Name:              strings.TrimSpace(req.Name),
		Price:             req.Price.String(),
		Interval:          strings.TrimSpace(req.Interval),
		MerchantID:        merchant.ID,
		OrganizationID:    sess.OrgID,
		PrivateContentURL: strings.TrimSpace(req.PrivateContentURL),
		CreatePaymentLink: withLink,
		RedirectURL:       strings.TrimSpace(req.RedirectURL),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProducts(c *gin.Context) {
	sess, _ := sessionFromGin(c)
	resp, err := s.products.List(c.Request.Context(), sess.OrgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProduct(c *gin.Context) {
	sess, _ := sessionFromGin(c)
	resp, err := s.products.Get(c.Request.Context(), sess.OrgID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
