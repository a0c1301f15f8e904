package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tournament-wallet/database"
	"tournament-wallet/models"
	"tournament-wallet/notify"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WithdrawalService runs the pending -> completed|rejected workflow.
type WithdrawalService struct {
	Store  *database.Client
	Notify notify.Publisher
	Log    slog.Logger
}

func NewWithdrawalService(store *database.Client, pub notify.Publisher, log slog.Logger) *WithdrawalService {
	return &WithdrawalService{Store: store, Notify: pub, Log: log}
}

// Create debits winnings and files a pending request in one atomic section.
func (s *WithdrawalService) Create(ctx context.Context, userID string, amount decimal.Decimal, upiID string) (*models.WithdrawalRequest, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := checkMoney("amount", amount); err != nil {
		return nil, err
	}
	upiID = strings.TrimSpace(upiID)
	if upiID == "" {
		return nil, ErrInvalidUpi
	}

	var req *models.WithdrawalRequest
	var user *models.UserProfile
	err := s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		u, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if u.IsBanned() {
			return ErrAccountBanned
		}
		if amount.GreaterThan(u.WinningsBalance) {
			return ErrInsufficientWinnings
		}

		now := time.Now().UTC()
		r := &models.WithdrawalRequest{
			ID:          uuid.NewString(),
			UserID:      u.ID,
			UserName:    u.Name,
			UserEmail:   u.Email,
			Amount:      amount,
			UpiID:       upiID,
			Status:      models.WithdrawalPending,
			RequestDate: now,
		}
		if _, err := applyEntry(tx, u, entry{
			Wallet:      models.WalletWinnings,
			Amount:      amount.Neg(),
			Type:        models.TxWithdrawal,
			Description: "Withdrawal request to " + upiID,
			Reference:   r.ID,
		}, nil, now); err != nil {
			if errors.Is(err, ErrInsufficientFunds) {
				return ErrInsufficientWinnings
			}
			return err
		}
		if err := tx.Create(r).Error; err != nil {
			return fmt.Errorf("failed to create withdrawal request: %w", err)
		}
		req, user = r, u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Infof("💸 [WITHDRAWAL] %s requested %s to %s (%s)", userID, amount, upiID, req.ID)
	publishProfile(ctx, s.Notify, user)
	return req, nil
}

// Resolve records the admin decision on a pending request. A rejection refunds
// the amount to winnings in the same transaction. Requests resolve once;
// anything but pending fails with ErrInvalidTransition. userID and amount must
// match the stored request.
func (s *WithdrawalService) Resolve(ctx context.Context, withdrawalID string, decision models.WithdrawalStatus, userID string, amount decimal.Decimal) (*models.WithdrawalRequest, error) {
	if !decision.IsDecision() {
		return nil, fmt.Errorf("decision must be completed or rejected: %w", ErrInvalidInput)
	}
	if err := checkMoney("amount", amount); err != nil {
		return nil, err
	}

	var req *models.WithdrawalRequest
	var user *models.UserProfile
	err := s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		user = nil

		var r models.WithdrawalRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", withdrawalID).
			First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("withdrawal %s: %w", withdrawalID, ErrNotFound)
			}
			return fmt.Errorf("failed to lock withdrawal %s: %w", withdrawalID, err)
		}
		if r.Status != models.WithdrawalPending {
			return fmt.Errorf("withdrawal %s is already %s: %w", withdrawalID, r.Status, ErrInvalidTransition)
		}
		if r.UserID != userID || !r.Amount.Equal(amount) {
			return ErrWithdrawalMismatch
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.WithdrawalRequest{}).Where("id = ?", r.ID).Updates(map[string]interface{}{
			"status":         decision,
			"processed_date": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to update withdrawal: %w", err)
		}
		r.Status = decision
		r.ProcessedDate = &now

		if decision == models.WithdrawalRejected {
			u, err := lockUser(tx, r.UserID)
			if err != nil {
				return err
			}
			if _, err := applyEntry(tx, u, entry{
				Wallet:      models.WalletWinnings,
				Amount:      r.Amount,
				Type:        models.TxRefund,
				Description: "Withdrawal request rejected",
				Reference:   r.ID,
			}, nil, now); err != nil {
				return err
			}
			user = u
		}
		req = &r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Infof("[WITHDRAWAL] %s resolved as %s", withdrawalID, decision)
	publishProfile(ctx, s.Notify, user)
	return req, nil
}

// List returns requests for the admin panel, newest first, optionally by status.
func (s *WithdrawalService) List(ctx context.Context, status models.WithdrawalStatus) ([]models.WithdrawalRequest, error) {
	db, ok := s.Store.Reader(ctx, "ListWithdrawals")
	if !ok {
		return []models.WithdrawalRequest{}, nil
	}
	q := db.Order("request_date DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.WithdrawalRequest
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return out, nil
}

// ListForUser returns one user's requests, newest first.
func (s *WithdrawalService) ListForUser(ctx context.Context, userID string) ([]models.WithdrawalRequest, error) {
	db, ok := s.Store.Reader(ctx, "ListUserWithdrawals")
	if !ok {
		return []models.WithdrawalRequest{}, nil
	}
	var out []models.WithdrawalRequest
	if err := db.Where("user_id = ?", userID).Order("request_date DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return out, nil
}
