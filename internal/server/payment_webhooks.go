package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/kolamart/kolamart/internal/payment/domain"
)

// maxWebhookBody caps webhook reads; real provider payloads are a few KB.
const maxWebhookBody = 1 << 20

// HandlePaymentWebhook acks fast and defers all real work to the queue. An
// event type we do not act on still gets a 200 so the provider stops
// redelivering it.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	err = s.paymentSvc.IngestWebhook(c.Request.Context(), provider, payload, c.Request.Header)
	if errors.Is(err, paymentdomain.ErrEventIgnored) {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
