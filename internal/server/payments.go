package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	paymentdomain "github.com/kolamart/kolamart/internal/payment/domain"
)

type initializePaymentRequest struct {
	OrderID  int64  `json:"order_id" binding:"required"`
	Provider string `json:"provider" binding:"required"`
}

func (s *Server) InitializePayment(c *gin.Context) {
	var req initializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.paymentSvc.Initialize(c.Request.Context(), paymentdomain.InitializePaymentRequest{
		OrderID:  snowflake.ID(req.OrderID),
		Provider: req.Provider,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VerifyPayment is the customer-facing poll endpoint for the post-checkout
// "waiting for confirmation" page.
func (s *Server) VerifyPayment(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	reference := strings.TrimSpace(c.Param("reference"))
	if provider == "" || reference == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.paymentSvc.VerifyPoll(c.Request.Context(), provider, reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
