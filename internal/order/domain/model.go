package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "New"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "Pending"
	PaymentStatusProcessing PaymentStatus = "Processing"
	PaymentStatusCompleted  PaymentStatus = "Completed"
	PaymentStatusFailed     PaymentStatus = "Failed"
	PaymentStatusRefunded   PaymentStatus = "Refunded"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidTransition   = errors.New("invalid order status transition")
	ErrAlreadyCancelled    = errors.New("order already cancelled")
	ErrAlreadyPaid         = errors.New("order already paid")
	ErrNoFrozenAmount      = errors.New("order has no frozen payment amount")
	ErrPaymentNotCompleted = errors.New("order payment not completed")
)

type Order struct {
	ID snowflake.ID `json:"id" gorm:"primaryKey"`

	Status        OrderStatus   `json:"status" gorm:"type:text;not null"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"type:text;not null"`

	IsPaid        bool       `json:"is_paid" gorm:"not null"`
	PaidAt        *time.Time `json:"paid_at"`
	PaymentMethod string     `json:"payment_method" gorm:"type:text"`

	// ProviderReference is assigned at most once per payment attempt; NULL rows
	// stay unconstrained so orders without an attempt do not collide.
	ProviderReference *string `json:"provider_reference" gorm:"type:text;uniqueIndex"`

	// AmountAtPayment freezes the charged amount in minor units at
	// initialization time; the live TotalAmount may drift afterwards.
	AmountAtPayment *int64 `json:"amount_at_payment"`
	TotalAmount     int64  `json:"total_amount" gorm:"not null"`
	Currency        string `json:"currency" gorm:"type:text;not null"`

	CustomerID    snowflake.ID `json:"customer_id" gorm:"index"`
	CustomerEmail string       `json:"customer_email" gorm:"type:text;not null"`
	CustomerName  string       `json:"customer_name" gorm:"type:text"`

	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// OrderItem snapshots one line of the cart at checkout time. Prices are
// copied from the catalog so later catalog edits cannot rewrite history.
type OrderItem struct {
	ID      snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderID snowflake.ID `json:"order_id" gorm:"index;not null"`

	ProductID snowflake.ID `json:"product_id" gorm:"not null"`
	SKU       string       `json:"sku" gorm:"type:text;not null"`
	Name      string       `json:"name" gorm:"type:text;not null"`

	UnitPrice int64 `json:"unit_price" gorm:"not null"`
	Quantity  int   `json:"quantity" gorm:"not null"`
	Subtotal  int64 `json:"subtotal" gorm:"not null"`
}

func (OrderItem) TableName() string { return "order_items" }

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:        {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AdvanceTo moves the fulfilment status along the legal chain.
func (o *Order) AdvanceTo(next OrderStatus) error {
	if o.Status == OrderStatusCancelled && next == OrderStatusCancelled {
		return ErrAlreadyCancelled
	}
	if !o.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	o.Status = next
	return nil
}

func (o *Order) Cancel() error {
	return o.AdvanceTo(OrderStatusCancelled)
}

// FreezePayment pins the charge amount and provider reference for a payment
// attempt. Re-initialization is rejected once the order is paid.
func (o *Order) FreezePayment(reference, method, homeCurrency string) error {
	if o.IsPaid {
		return ErrAlreadyPaid
	}
	if o.AmountAtPayment == nil {
		amount := o.TotalAmount
		o.AmountAtPayment = &amount
	}
	if o.Currency == "" {
		o.Currency = homeCurrency
	}
	o.ProviderReference = &reference
	o.PaymentMethod = method
	o.PaymentStatus = PaymentStatusProcessing
	return nil
}

// MarkPaid records a confirmed payment. It reports whether this call was the
// first confirmation; repeat confirmations are no-ops so duplicate webhook
// deliveries cannot fire duplicate side effects.
func (o *Order) MarkPaid(at time.Time) bool {
	if o.IsPaid {
		return false
	}
	o.IsPaid = true
	paidAt := at.UTC()
	o.PaidAt = &paidAt
	o.PaymentStatus = PaymentStatusCompleted
	if o.Status == OrderStatusNew {
		o.Status = OrderStatusProcessing
	}
	return true
}

// MarkPaymentFailed records a failed attempt. A late failure for an already
// settled payment must not un-pay the order.
func (o *Order) MarkPaymentFailed() bool {
	if o.IsPaid {
		return false
	}
	o.PaymentStatus = PaymentStatusFailed
	return true
}

// MarkRefunded transitions a completed payment to refunded.
func (o *Order) MarkRefunded() error {
	if o.PaymentStatus != PaymentStatusCompleted {
		return ErrPaymentNotCompleted
	}
	o.PaymentStatus = PaymentStatusRefunded
	return nil
}
