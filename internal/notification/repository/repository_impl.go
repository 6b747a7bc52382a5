package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/kolamart/kolamart/internal/notification/domain"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, alert *domain.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *Repository) ListForCustomer(ctx context.Context, customerID snowflake.ID, unreadOnly bool) ([]domain.Alert, error) {
	query := r.db.WithContext(ctx).
		Where("audience = ? AND customer_id = ?", domain.AudienceCustomer, customerID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	var alerts []domain.Alert
	err := query.Order("created_at DESC").Find(&alerts).Error
	return alerts, err
}

func (r *Repository) ListForAdmins(ctx context.Context, unreadOnly bool) ([]domain.Alert, error) {
	query := r.db.WithContext(ctx).Where("audience = ?", domain.AudienceAdmin)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	var alerts []domain.Alert
	err := query.Order("created_at DESC").Find(&alerts).Error
	return alerts, err
}

func (r *Repository) MarkRead(ctx context.Context, id snowflake.ID) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Alert{}).
		Where("id = ?", id).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}
