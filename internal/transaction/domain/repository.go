package domain

import "context"

type Repository interface {
	FindByID(ctx context.Context, id int64) (*Transaction, error)
	Create(ctx context.Context, txn *Transaction) error
	Save(ctx context.Context, txn *Transaction) error
}
