package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	productdomain "github.com/kolamart/kolamart/internal/product/domain"
)

type createProductRequest struct {
	SKU               string `json:"sku" binding:"required"`
	Name              string `json:"name" binding:"required"`
	Price             int64  `json:"price" binding:"required,min=1"`
	Currency          string `json:"currency"`
	Stock             int    `json:"stock" binding:"min=0"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = s.cfg.HomeCurrency
	}

	product, err := s.productSvc.Create(c.Request.Context(), &productdomain.Product{
		SKU:               req.SKU,
		Name:              req.Name,
		Price:             req.Price,
		Currency:          currency,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	product, err := s.productSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) ListProducts(c *gin.Context) {
	products, err := s.productSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

type stockAdjustmentRequest struct {
	Adjustments []stockAdjustment `json:"adjustments" binding:"required,min=1,dive"`
}

type stockAdjustment struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Delta     int   `json:"delta" binding:"required"`
}

func (s *Server) AdjustStock(c *gin.Context) {
	var req stockAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	adjustments := make([]productdomain.StockAdjustment, 0, len(req.Adjustments))
	for _, adj := range req.Adjustments {
		adjustments = append(adjustments, productdomain.StockAdjustment{
			ProductID: snowflake.ID(adj.ProductID),
			Delta:     adj.Delta,
		})
	}
	updated, err := s.productSvc.AdjustStock(c.Request.Context(), adjustments)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": updated})
}
