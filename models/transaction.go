package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WalletType string

const (
	WalletDeposit  WalletType = "deposit"
	WalletWinnings WalletType = "winnings"
)

func (w WalletType) Valid() bool {
	return w == WalletDeposit || w == WalletWinnings
}

type TransactionType string

const (
	TxDeposit     TransactionType = "deposit"
	TxWithdrawal  TransactionType = "withdrawal"
	TxJoinFee     TransactionType = "join_fee"
	TxPrize       TransactionType = "prize"
	TxRefund      TransactionType = "refund"
	TxAdminCredit TransactionType = "admin_credit"
	TxAdminDebit  TransactionType = "admin_debit"
)

// Transaction is an append-only ledger entry. Amount is signed; the sum of a
// user's entries equals deposit + winnings.
type Transaction struct {
	ID             string          `json:"id" gorm:"primaryKey"`
	UserID         string          `json:"user_id" gorm:"not null;index:idx_transactions_user_date,priority:1"`
	Type           TransactionType `json:"type" gorm:"type:varchar(16);not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Description    string          `json:"description"`
	Reference      string          `json:"reference,omitempty" gorm:"index"`
	IdempotencyKey *string         `json:"-" gorm:"uniqueIndex"`

	// balances right after this entry was applied
	DepositAfter  decimal.Decimal `json:"deposit_after" gorm:"type:numeric(12,2);not null"`
	WinningsAfter decimal.Decimal `json:"winnings_after" gorm:"type:numeric(12,2);not null"`

	Date time.Time `json:"date" gorm:"not null;index:idx_transactions_user_date,priority:2,sort:desc"`
}
