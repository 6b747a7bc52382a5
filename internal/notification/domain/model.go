package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Audience string

const (
	AudienceAdmin    Audience = "admin"
	AudienceCustomer Audience = "customer"
)

var ErrAlertNotFound = errors.New("alert not found")

// Alert is a persisted in-app notification. Emails are fire-and-forget;
// alerts are what the dashboard and the customer's notification feed read.
type Alert struct {
	ID snowflake.ID `json:"id" gorm:"primaryKey"`

	Audience   Audience     `json:"audience" gorm:"type:text;not null;index"`
	CustomerID snowflake.ID `json:"customer_id" gorm:"index"`
	OrderID    snowflake.ID `json:"order_id" gorm:"index"`

	Kind    string `json:"kind" gorm:"type:text;not null"`
	Message string `json:"message" gorm:"type:text;not null"`
	Read    bool   `json:"read" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Alert) TableName() string { return "alerts" }

type Repository interface {
	Create(ctx context.Context, alert *Alert) error
	ListForCustomer(ctx context.Context, customerID snowflake.ID, unreadOnly bool) ([]Alert, error)
	ListForAdmins(ctx context.Context, unreadOnly bool) ([]Alert, error)
	MarkRead(ctx context.Context, id snowflake.ID) error
}
