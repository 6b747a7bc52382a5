package domain

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusChargeback Status = "chargeback"
	StatusExpired    Status = "expired"
)

var (
	ErrInvalidTransition   = errors.New("invalid transaction status transition")
	ErrTransactionNotFound = errors.New("transaction not found")
)

type StatusChange struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}

// Transaction is the provider-side payment ledger record, keyed by the
// provider-assigned transaction ID and independent of the Order lifecycle.
type Transaction struct {
	// ID is the provider's numeric transaction identifier.
	ID int64 `json:"id" gorm:"primaryKey;autoIncrement:false"`

	Status        Status         `json:"status" gorm:"type:text;not null"`
	StatusHistory datatypes.JSON `json:"status_history" gorm:"not null"`

	Amount    int64  `json:"amount" gorm:"not null"`
	Currency  string `json:"currency" gorm:"type:text;not null"`
	Reference string `json:"reference" gorm:"type:text;index;not null"`

	PaidAt *time.Time `json:"paid_at"`

	CustomerCode  string `json:"customer_code" gorm:"type:text"`
	CustomerEmail string `json:"customer_email" gorm:"type:text"`
	CustomerName  string `json:"customer_name" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Transaction) TableName() string { return "transactions" }

func (s Status) terminal() bool {
	switch s {
	case StatusSuccessful, StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// CanTransitionTo reports whether a move to next is legal. Re-asserting the
// current status is always legal (and a history no-op); chargebacks are
// reachable from any state.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	if next == StatusChargeback {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusProcessing || next.terminal()
	case StatusProcessing:
		return next.terminal()
	case StatusSuccessful:
		return next == StatusRefunded
	default:
		return false
	}
}

// UpdateStatus applies a transition, appending to the history only when the
// status actually changed. It reports whether anything changed.
func (t *Transaction) UpdateStatus(next Status, at time.Time) (bool, error) {
	if !t.Status.CanTransitionTo(next) {
		return false, ErrInvalidTransition
	}
	if t.Status == next {
		return false, nil
	}
	t.Status = next
	return true, t.appendHistory(next, at)
}

// InitHistory seeds the history with the record's initial status.
func (t *Transaction) InitHistory(at time.Time) error {
	return t.appendHistory(t.Status, at)
}

func (t *Transaction) appendHistory(status Status, at time.Time) error {
	history, err := t.History()
	if err != nil {
		return err
	}
	history = append(history, StatusChange{Status: status, ChangedAt: at.UTC()})
	raw, err := json.Marshal(history)
	if err != nil {
		return err
	}
	t.StatusHistory = datatypes.JSON(raw)
	return nil
}

func (t *Transaction) History() ([]StatusChange, error) {
	if len(t.StatusHistory) == 0 {
		return nil, nil
	}
	var history []StatusChange
	if err := json.Unmarshal(t.StatusHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}
