package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"tournament-wallet/database"
	"tournament-wallet/models"
	"tournament-wallet/notify"

	"github.com/decred/slog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralService drains the referral outbox written by CreateProfile.
type ReferralService struct {
	Store  *database.Client
	Notify notify.Publisher
	Log    slog.Logger
}

func NewReferralService(store *database.Client, pub notify.Publisher, log slog.Logger) *ReferralService {
	return &ReferralService{Store: store, Notify: pub, Log: log}
}

// ReferralKey is the idempotency key of one side of a referral bonus.
func ReferralKey(newUserID, side string) string {
	return "referral:" + newUserID + ":" + side
}

// ProcessPending handles up to batch unprocessed referrals, one transaction
// each, and returns how many were finished. Rows held by another worker are
// skipped.
func (s *ReferralService) ProcessPending(ctx context.Context, batch int) (int, error) {
	if !s.Store.Available() {
		return 0, nil
	}
	done := 0
	for done < batch {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		found, err := s.processOne(ctx)
		if err != nil {
			return done, err
		}
		if !found {
			break
		}
		done++
	}
	return done, nil
}

func (s *ReferralService) processOne(ctx context.Context) (bool, error) {
	var found bool
	var outcome models.ReferralOutcome
	var ref models.PendingReferral
	var credited []*models.UserProfile

	err := s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		found, outcome, credited = false, "", nil
		ref = models.PendingReferral{}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("processed = ?", false).
			Order("created_at ASC").
			Limit(1).
			Find(&ref).Error
		if err != nil {
			return fmt.Errorf("failed to claim referral: %w", err)
		}
		if ref.ID == "" {
			return nil
		}
		found = true

		settings, err := loadSettings(tx)
		if err != nil {
			return err
		}

		var referrerID *string
		outcome, referrerID, credited, err = s.credit(tx, &ref, settings.ReferralBonus)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		return tx.Model(&models.PendingReferral{}).Where("id = ?", ref.ID).Updates(map[string]interface{}{
			"processed":    true,
			"outcome":      outcome,
			"referrer_id":  referrerID,
			"processed_at": now,
		}).Error
	})
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	s.Log.Infof("🤝 [REFERRAL] %s via code %s: %s", ref.NewUserID, ref.ReferrerCode, outcome)
	for _, u := range credited {
		publishProfile(ctx, s.Notify, u)
	}
	return true, nil
}

// credit resolves the referrer and pays the bonus to both sides.
func (s *ReferralService) credit(tx *gorm.DB, ref *models.PendingReferral, bonus decimal.Decimal) (models.ReferralOutcome, *string, []*models.UserProfile, error) {
	var referrer models.UserProfile
	if err := tx.Select("id").First(&referrer, "referral_code = ?", ref.ReferrerCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ReferralInvalidCode, nil, nil, nil
		}
		return "", nil, nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}
	referrerID := referrer.ID
	if referrerID == ref.NewUserID {
		return models.ReferralSelfReferral, &referrerID, nil, nil
	}
	if !bonus.IsPositive() {
		return models.ReferralNoBonus, &referrerID, nil, nil
	}

	sides := map[string]string{
		ref.NewUserID: ReferralKey(ref.NewUserID, "new"),
		referrerID:    ReferralKey(ref.NewUserID, "referrer"),
	}
	ids := []string{ref.NewUserID, referrerID}
	sort.Strings(ids)

	locked := make([]*models.UserProfile, 0, len(ids))
	for _, id := range ids {
		u, err := lockUser(tx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return models.ReferralUserMissing, &referrerID, nil, nil
			}
			return "", nil, nil, err
		}
		locked = append(locked, u)
	}

	now := time.Now().UTC()
	for _, u := range locked {
		desc := "Referral bonus"
		if u.ID == referrerID {
			desc = "Referral bonus for inviting a friend"
		}
		if _, err := applyEntry(tx, u, entry{
			Wallet:         models.WalletDeposit,
			Amount:         bonus,
			Type:           models.TxAdminCredit,
			Description:    desc,
			Reference:      ref.ID,
			IdempotencyKey: sides[u.ID],
		}, nil, now); err != nil {
			return "", nil, nil, err
		}
	}
	return models.ReferralCredited, &referrerID, locked, nil
}

// ListPending returns the referrals still waiting for the worker.
func (s *ReferralService) ListPending(ctx context.Context) ([]models.PendingReferral, error) {
	db, ok := s.Store.Reader(ctx, "ListPendingReferrals")
	if !ok {
		return []models.PendingReferral{}, nil
	}
	var out []models.PendingReferral
	if err := db.Where("processed = ?", false).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	return out, nil
}
