package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/kolamart/kolamart/internal/config"
	"github.com/kolamart/kolamart/internal/order/domain"
	productdomain "github.com/kolamart/kolamart/internal/product/domain"
	"github.com/kolamart/kolamart/internal/queue"
	"go.uber.org/zap"
)

type service struct {
	orders   domain.Repository
	products productdomain.Service
	enqueuer queue.Enqueuer
	genID    *snowflake.Node
	log      *zap.Logger

	homeCurrency string
}

func NewService(
	orders domain.Repository,
	products productdomain.Service,
	enqueuer queue.Enqueuer,
	genID *snowflake.Node,
	cfg config.Config,
	log *zap.Logger,
) domain.Service {
	return &service{
		orders:       orders,
		products:     products,
		enqueuer:     enqueuer,
		genID:        genID,
		log:          log.Named("order.service"),
		homeCurrency: cfg.HomeCurrency,
	}
}

// Create reserves stock, snapshots catalog prices into order items, and
// persists the order in its initial state. Stock moves first; a failed
// order write puts it back.
func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Order, error) {
	if len(req.Items) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	adjustments := make([]productdomain.StockAdjustment, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrEmptyOrder)
		}
		adjustments = append(adjustments, productdomain.StockAdjustment{
			ProductID: item.ProductID,
			Delta:     -item.Quantity,
		})
	}

	reserved, err := s.products.AdjustStock(ctx, adjustments)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]productdomain.Product, len(reserved))
	for _, product := range reserved {
		byID[product.ID] = product
	}

	order := &domain.Order{
		ID:            s.genID.Generate(),
		Status:        domain.OrderStatusNew,
		PaymentStatus: domain.PaymentStatusPending,
		Currency:      s.homeCurrency,
		CustomerID:    req.CustomerID,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
	}
	for _, item := range req.Items {
		product := byID[item.ProductID]
		if product.Currency != "" {
			order.Currency = product.Currency
		}
		subtotal := product.Price * int64(item.Quantity)
		order.Items = append(order.Items, domain.OrderItem{
			ID:        s.genID.Generate(),
			OrderID:   order.ID,
			ProductID: product.ID,
			SKU:       product.SKU,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			Subtotal:  subtotal,
		})
		order.TotalAmount += subtotal
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.restoreStock(ctx, order.Items)
		return nil, err
	}

	if err := s.enqueuer.EnqueueAdminAlert(ctx, queue.TypeAdminNewOrder, queue.AdminAlertPayload{
		Kind:     "new_order",
		OrderID:  int64(order.ID),
		Amount:   order.TotalAmount,
		Currency: order.Currency,
		Message:  fmt.Sprintf("new order %d for %d %s", order.ID, order.TotalAmount, order.Currency),
	}); err != nil {
		s.log.Warn("failed to enqueue new order alert", zap.Error(err))
	}

	s.log.Info("order created",
		zap.Int64("order_id", int64(order.ID)),
		zap.Int64("total_amount", order.TotalAmount),
		zap.Int("items", len(order.Items)),
	)
	return order, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.Order, error) {
	return s.orders.FindByID(ctx, id)
}

func (s *service) AdvanceStatus(ctx context.Context, id snowflake.ID, next domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if next == domain.OrderStatusCancelled {
		return s.cancel(ctx, order)
	}
	if err := order.AdvanceTo(next); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	s.notifyStatus(ctx, order)
	return order, nil
}

func (s *service) Cancel(ctx context.Context, id snowflake.ID) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, order)
}

func (s *service) cancel(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := order.Cancel(); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	s.restoreStock(ctx, order.Items)
	s.notifyStatus(ctx, order)
	return order, nil
}

func (s *service) notifyStatus(ctx context.Context, order *domain.Order) {
	if err := s.enqueuer.EnqueueOrderStatusEmail(ctx, queue.OrderStatusEmailPayload{
		OrderID: int64(order.ID),
		Email:   order.CustomerEmail,
		Status:  string(order.Status),
	}); err != nil {
		s.log.Warn("failed to enqueue order status email", zap.Error(err))
	}
	if err := s.enqueuer.EnqueueUserAlert(ctx, queue.UserAlertPayload{
		CustomerID: int64(order.CustomerID),
		OrderID:    int64(order.ID),
		Status:     string(order.Status),
		Message:    fmt.Sprintf("order %d is now %s", order.ID, order.Status),
	}); err != nil {
		s.log.Warn("failed to enqueue user alert", zap.Error(err))
	}
}

func (s *service) restoreStock(ctx context.Context, items []domain.OrderItem) {
	if len(items) == 0 {
		return
	}
	adjustments := make([]productdomain.StockAdjustment, 0, len(items))
	for _, item := range items {
		adjustments = append(adjustments, productdomain.StockAdjustment{
			ProductID: item.ProductID,
			Delta:     item.Quantity,
		})
	}
	if _, err := s.products.AdjustStock(ctx, adjustments); err != nil {
		s.log.Error("failed to restore reserved stock", zap.Error(err))
	}
}
