package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusBanned UserStatus = "banned"
)

// UserProfile is one account. ID is the identity provider's user id.
// Both balances are guarded by CHECK constraints as well as by the ledger.
type UserProfile struct {
	ID              string `json:"id" gorm:"primaryKey"`
	Name            string `json:"name" gorm:"not null"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username" gorm:"uniqueIndex;not null"`
	Email           string `json:"email" gorm:"index"`
	MobileNumber    string `json:"mobile_number"`
	ProfilePhotoURL string `json:"profile_photo_url"`

	DepositBalance  decimal.Decimal `json:"deposit_balance" gorm:"type:numeric(12,2);not null;default:0;check:chk_deposit_non_negative,deposit_balance >= 0"`
	WinningsBalance decimal.Decimal `json:"winnings_balance" gorm:"type:numeric(12,2);not null;default:0;check:chk_winnings_non_negative,winnings_balance >= 0"`

	TournamentsPlayed int             `json:"tournaments_played" gorm:"not null;default:0"`
	Wins              int             `json:"wins" gorm:"not null;default:0"`
	TotalEarnings     decimal.Decimal `json:"total_earnings" gorm:"type:numeric(12,2);not null;default:0"`

	Role         UserRole   `json:"role" gorm:"type:varchar(16);not null;default:'user'"`
	Status       UserStatus `json:"status" gorm:"type:varchar(16);not null;default:'active'"`
	ReferralCode string     `json:"referral_code" gorm:"uniqueIndex;size:6;not null"`
	ReferredBy   *string    `json:"referred_by,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Balance returns the named wallet's balance.
func (u *UserProfile) Balance(w WalletType) decimal.Decimal {
	if w == WalletDeposit {
		return u.DepositBalance
	}
	return u.WinningsBalance
}

// SetBalance overwrites the named wallet's balance.
func (u *UserProfile) SetBalance(w WalletType, v decimal.Decimal) {
	if w == WalletDeposit {
		u.DepositBalance = v
		return
	}
	u.WinningsBalance = v
}

// TotalBalance is deposit + winnings.
func (u *UserProfile) TotalBalance() decimal.Decimal {
	return u.DepositBalance.Add(u.WinningsBalance)
}

func (u *UserProfile) IsBanned() bool {
	return u.Status == UserStatusBanned
}
