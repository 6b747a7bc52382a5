package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	orderdomain "github.com/kolamart/kolamart/internal/order/domain"
)

func parseID(c *gin.Context, name string) (snowflake.ID, bool) {
	raw, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || raw <= 0 {
		AbortWithError(c, ErrInvalidRequest)
		return 0, false
	}
	return snowflake.ID(raw), true
}

type createOrderRequest struct {
	CustomerID    int64             `json:"customer_id"`
	CustomerEmail string            `json:"customer_email" binding:"required,email"`
	CustomerName  string            `json:"customer_name"`
	Items         []createOrderItem `json:"items" binding:"required,min=1,dive"`
}

type createOrderItem struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	items := make([]orderdomain.CreateItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, orderdomain.CreateItem{
			ProductID: snowflake.ID(item.ProductID),
			Quantity:  item.Quantity,
		})
	}
	order, err := s.orderSvc.Create(c.Request.Context(), orderdomain.CreateRequest{
		CustomerID:    snowflake.ID(req.CustomerID),
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Items:         items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) GetOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := s.orderSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) CancelOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := s.orderSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type advanceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) AdvanceOrderStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req advanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	order, err := s.orderSvc.AdvanceStatus(c.Request.Context(), id, orderdomain.OrderStatus(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
