package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrEmptyOrder = errors.New("order has no items")

type CreateItem struct {
	ProductID snowflake.ID `json:"product_id"`
	Quantity  int          `json:"quantity"`
}

type CreateRequest struct {
	CustomerID    snowflake.ID `json:"customer_id"`
	CustomerEmail string       `json:"customer_email"`
	CustomerName  string       `json:"customer_name"`
	Items         []CreateItem `json:"items"`
}

// Service owns the order lifecycle up to and after payment. Payment
// settlement itself belongs to the payment service; this one never flips
// IsPaid.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Order, error)
	Get(ctx context.Context, id snowflake.ID) (*Order, error)
	AdvanceStatus(ctx context.Context, id snowflake.ID, next OrderStatus) (*Order, error)
	Cancel(ctx context.Context, id snowflake.ID) (*Order, error)
}
