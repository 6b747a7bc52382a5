package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/kolamart/kolamart/internal/product/domain"
	"github.com/kolamart/kolamart/internal/queue"
	"go.uber.org/zap"
)

type service struct {
	repo     domain.Repository
	enqueuer queue.Enqueuer
	genID    *snowflake.Node
	log      *zap.Logger
}

func NewService(repo domain.Repository, enqueuer queue.Enqueuer, genID *snowflake.Node, log *zap.Logger) domain.Service {
	return &service{
		repo:     repo,
		enqueuer: enqueuer,
		genID:    genID,
		log:      log.Named("product.service"),
	}
}

func (s *service) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product.ID == 0 {
		product.ID = s.genID.Generate()
	}
	if product.LowStockThreshold <= 0 {
		product.LowStockThreshold = 5
	}
	product.Active = true
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.Product, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

// AdjustStock applies the batch and raises one summary alert covering every
// product the batch left at or below its threshold. One alert per batch, not
// one per product; a checkout touching ten low items must not page ten times.
func (s *service) AdjustStock(ctx context.Context, adjustments []domain.StockAdjustment) ([]domain.Product, error) {
	if len(adjustments) == 0 {
		return nil, nil
	}

	updated, err := s.repo.AdjustStock(ctx, adjustments)
	if err != nil {
		return nil, err
	}

	var low []string
	for _, product := range updated {
		if product.LowStock() {
			low = append(low, fmt.Sprintf("%s (%d left)", product.SKU, product.Stock))
		}
	}
	if len(low) == 0 {
		return updated, nil
	}

	summary := strings.Join(low, ", ")
	if err := s.enqueuer.EnqueueAdminAlert(ctx, queue.TypeAdminLowStock, queue.AdminAlertPayload{
		Kind:      "low_stock",
		Reference: summary,
		Message:   fmt.Sprintf("%d product(s) low on stock: %s", len(low), summary),
	}); err != nil {
		// Stock already moved; alerting is best effort.
		s.log.Warn("failed to enqueue low stock alert", zap.Error(err))
	}
	return updated, nil
}
