package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalCompleted WithdrawalStatus = "completed"
	WithdrawalRejected  WithdrawalStatus = "rejected"
)

// IsDecision reports whether s is a valid admin resolution.
func (s WithdrawalStatus) IsDecision() bool {
	return s == WithdrawalCompleted || s == WithdrawalRejected
}

// WithdrawalRequest is created pending, with winnings already debited, and
// resolved exactly once by an admin.
type WithdrawalRequest struct {
	ID            string           `json:"id" gorm:"primaryKey"`
	UserID        string           `json:"user_id" gorm:"not null;index"`
	UserName      string           `json:"user_name"`
	UserEmail     string           `json:"user_email"`
	Amount        decimal.Decimal  `json:"amount" gorm:"type:numeric(12,2);not null;check:chk_withdrawal_positive,amount > 0"`
	UpiID         string           `json:"upi_id" gorm:"not null"`
	Status        WithdrawalStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending';index"`
	RequestDate   time.Time        `json:"request_date" gorm:"not null"`
	ProcessedDate *time.Time       `json:"processed_date,omitempty"`
}
