package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/kolamart/kolamart/internal/product/domain"
	"github.com/kolamart/kolamart/pkg/db"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func Provide(gdb *gorm.DB) domain.Repository {
	return &Repository{db: gdb}
}

func (r *Repository) Create(ctx context.Context, product *domain.Product) error {
	err := r.db.WithContext(ctx).Create(product).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateSKU
	}
	return err
}

func (r *Repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).First(&product, "sku = ?", sku).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).Order("sku").Find(&products).Error
	return products, err
}

func (r *Repository) Save(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// AdjustStock runs the whole batch in one transaction with the rows locked,
// so concurrent checkouts cannot oversell.
func (r *Repository) AdjustStock(ctx context.Context, adjustments []domain.StockAdjustment) ([]domain.Product, error) {
	var updated []domain.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, adj := range adjustments {
			var product domain.Product
			err := db.LockForUpdate(tx).First(&product, "id = ?", adj.ProductID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", domain.ErrProductNotFound, adj.ProductID)
			}
			if err != nil {
				return err
			}
			next := product.Stock + adj.Delta
			if next < 0 {
				return fmt.Errorf("%w: %s has %d, need %d", domain.ErrInsufficientStock, product.SKU, product.Stock, -adj.Delta)
			}
			product.Stock = next
			if err := tx.Save(&product).Error; err != nil {
				return err
			}
			updated = append(updated, product)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
