package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListAdminAlerts(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	alerts, err := s.alerts.ListForAdmins(c.Request.Context(), unreadOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (s *Server) ListCustomerAlerts(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	unreadOnly := c.Query("unread") == "true"
	alerts, err := s.alerts.ListForCustomer(c.Request.Context(), id, unreadOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (s *Server) MarkAlertRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.alerts.MarkRead(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
