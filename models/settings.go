package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettingsID is the key of the single AppSettings row.
const SettingsID = "global"

// AppSettings holds operator-editable configuration.
type AppSettings struct {
	ID             string          `json:"-" gorm:"primaryKey"`
	AppName        string          `json:"app_name"`
	LogoURL        string          `json:"logo_url"`
	UpiAddress     string          `json:"upi_address"`
	SupportContact string          `json:"support_contact"`
	MinWithdrawal  decimal.Decimal `json:"min_withdrawal" gorm:"type:numeric(12,2);not null;default:100"`
	ReferralBonus  decimal.Decimal `json:"referral_bonus" gorm:"type:numeric(12,2);not null;default:50"`
	PrivacyPolicy  string          `json:"privacy_policy" gorm:"type:text"`
	RefundPolicy   string          `json:"refund_policy" gorm:"type:text"`
	TermsOfUse     string          `json:"terms_of_use" gorm:"type:text"`
	FairPlayPolicy string          `json:"fair_play_policy" gorm:"type:text"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// DefaultSettings is served until an admin saves settings.
func DefaultSettings() AppSettings {
	return AppSettings{
		ID:            SettingsID,
		AppName:       "Tournament Wallet",
		MinWithdrawal: decimal.NewFromInt(100),
		ReferralBonus: decimal.NewFromInt(50),
	}
}
