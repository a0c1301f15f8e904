package models

import "time"

type ReferralOutcome string

const (
	ReferralCredited     ReferralOutcome = "credited"
	ReferralInvalidCode  ReferralOutcome = "invalid_code"
	ReferralSelfReferral ReferralOutcome = "self_referral"
	ReferralNoBonus      ReferralOutcome = "no_bonus"
	ReferralUserMissing  ReferralOutcome = "user_missing"
)

// PendingReferral is the referral outbox. NewUserID is unique, so a user can
// trigger at most one bonus no matter how often the worker retries.
type PendingReferral struct {
	ID           string          `json:"id" gorm:"primaryKey"`
	NewUserID    string          `json:"new_user_id" gorm:"uniqueIndex;not null"`
	ReferrerCode string          `json:"referrer_code" gorm:"not null"`
	Processed    bool            `json:"processed" gorm:"not null;default:false;index"`
	Outcome      ReferralOutcome `json:"outcome,omitempty" gorm:"type:varchar(16)"`
	ReferrerID   *string         `json:"referrer_id,omitempty"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
}
