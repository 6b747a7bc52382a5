package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateSKU      = errors.New("sku already exists")
)

type Product struct {
	ID snowflake.ID `json:"id" gorm:"primaryKey"`

	SKU  string `json:"sku" gorm:"type:text;not null;uniqueIndex"`
	Name string `json:"name" gorm:"type:text;not null"`

	// Price is in minor units of Currency.
	Price    int64  `json:"price" gorm:"not null"`
	Currency string `json:"currency" gorm:"type:text;not null"`

	Stock             int  `json:"stock" gorm:"not null"`
	LowStockThreshold int  `json:"low_stock_threshold" gorm:"not null"`
	Active            bool `json:"active" gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string { return "products" }

func (p *Product) LowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

type StockAdjustment struct {
	ProductID snowflake.ID `json:"product_id"`
	Delta     int          `json:"delta"`
}

type Repository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id snowflake.ID) (*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, product *Product) error
	// AdjustStock applies all deltas atomically; a delta that would take any
	// product below zero fails the whole batch.
	AdjustStock(ctx context.Context, adjustments []StockAdjustment) ([]Product, error)
}

// Service owns catalog writes and the low-stock alerting that rides on them.
type Service interface {
	Create(ctx context.Context, product *Product) (*Product, error)
	Get(ctx context.Context, id snowflake.ID) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	// AdjustStock applies a batch of stock deltas and raises at most one
	// admin alert summarizing every product the batch left low.
	AdjustStock(ctx context.Context, adjustments []StockAdjustment) ([]Product, error)
}
