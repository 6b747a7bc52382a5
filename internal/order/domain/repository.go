package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id snowflake.ID) (*Order, error)
	FindByProviderReference(ctx context.Context, reference string) (*Order, error)
	Save(ctx context.Context, order *Order) error
	// UpdatePaymentFields persists only the payment-owned columns so the
	// reconciliation path never clobbers concurrent fulfilment edits.
	UpdatePaymentFields(ctx context.Context, order *Order) error
}
