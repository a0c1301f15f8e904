package services

import (
	"context"
	"errors"
	"fmt"
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

// LedgerService owns the balance primitive and the transaction log.
type LedgerService struct {
	Store  *database.Client
	Notify notify.Publisher
	Log    slog.Logger
}

func NewLedgerService(store *database.Client, pub notify.Publisher, log slog.Logger) *LedgerService {
	return &LedgerService{Store: store, Notify: pub, Log: log}
}

// entry is one signed movement on one wallet.
type entry struct {
	Wallet         models.WalletType
	Amount         decimal.Decimal
	Type           models.TransactionType
	Description    string
	Reference      string
	IdempotencyKey string
}

// lockUser loads a user row FOR UPDATE inside tx.
func lockUser(tx *gorm.DB, userID string) (*models.UserProfile, error) {
	var user models.UserProfile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock user %s: %w", userID, err)
	}
	return &user, nil
}

func balanceColumn(w models.WalletType) string {
	if w == models.WalletDeposit {
		return "deposit_balance"
	}
	return "winnings_balance"
}

// applyEntry moves e.Amount on the locked user's wallet, persists the new
// balance together with extra column updates and appends the ledger row.
// A result below zero fails with ErrInsufficientFunds and writes nothing.
func applyEntry(tx *gorm.DB, user *models.UserProfile, e entry, extra map[string]interface{}, now time.Time) (*models.Transaction, error) {
	next := user.Balance(e.Wallet).Add(e.Amount)
	if next.IsNegative() {
		return nil, fmt.Errorf("%s wallet of %s: %w", e.Wallet, user.ID, ErrInsufficientFunds)
	}
	if err := checkMoney("balance", next); err != nil {
		return nil, err
	}
	user.SetBalance(e.Wallet, next)

	updates := map[string]interface{}{balanceColumn(e.Wallet): next}
	for k, v := range extra {
		updates[k] = v
	}
	if err := saveUser(tx, user.ID, updates); err != nil {
		return nil, err
	}
	return recordTransaction(tx, user, e, now)
}

func saveUser(tx *gorm.DB, userID string, updates map[string]interface{}) error {
	if err := tx.Model(&models.UserProfile{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update user %s: %w", userID, err)
	}
	return nil
}

// recordTransaction appends a ledger row snapshotting the user's current balances.
func recordTransaction(tx *gorm.DB, user *models.UserProfile, e entry, now time.Time) (*models.Transaction, error) {
	txn := &models.Transaction{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Type:          e.Type,
		Amount:        e.Amount,
		Description:   e.Description,
		Reference:     e.Reference,
		DepositAfter:  user.DepositBalance,
		WinningsAfter: user.WinningsBalance,
		Date:          now,
	}
	if e.IdempotencyKey != "" {
		key := e.IdempotencyKey
		txn.IdempotencyKey = &key
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("failed to append %s transaction: %w", e.Type, err)
	}
	return txn, nil
}

// publishProfile pushes the committed profile to live subscribers.
func publishProfile(ctx context.Context, pub notify.Publisher, user *models.UserProfile) {
	if pub == nil || user == nil {
		return
	}
	pub.Publish(ctx, notify.ProfileChannel(user.ID), user)
}

// AdjustBalance is the admin primitive: one wallet, one signed amount, one
// admin_credit or admin_debit entry, all in one atomic section.
func (s *LedgerService) AdjustBalance(ctx context.Context, userID string, wallet models.WalletType, amount decimal.Decimal, reason string) (*models.UserProfile, *models.Transaction, error) {
	if amount.IsZero() {
		return nil, nil, fmt.Errorf("adjustment cannot be zero: %w", ErrInvalidAmount)
	}
	if err := checkMoney("amount", amount); err != nil {
		return nil, nil, err
	}
	if !wallet.Valid() {
		return nil, nil, fmt.Errorf("unknown wallet %q: %w", wallet, ErrInvalidInput)
	}
	txType := models.TxAdminCredit
	if amount.IsNegative() {
		txType = models.TxAdminDebit
	}

	var user *models.UserProfile
	var txn *models.Transaction
	err := s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		u, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		t, err := applyEntry(tx, u, entry{
			Wallet:      wallet,
			Amount:      amount,
			Type:        txType,
			Description: reason,
		}, nil, time.Now().UTC())
		if err != nil {
			return err
		}
		user, txn = u, t
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.Log.Infof("💰 [LEDGER] %s %s on %s wallet of %s (%s)", txType, amount, wallet, userID, reason)
	publishProfile(ctx, s.Notify, user)
	return user, txn, nil
}

// AddFunds credits a user-funded deposit.
func (s *LedgerService) AddFunds(ctx context.Context, userID string, amount decimal.Decimal) (*models.UserProfile, *models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}
	if err := checkMoney("amount", amount); err != nil {
		return nil, nil, err
	}

	var user *models.UserProfile
	var txn *models.Transaction
	err := s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		u, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		t, err := applyEntry(tx, u, entry{
			Wallet:      models.WalletDeposit,
			Amount:      amount,
			Type:        models.TxDeposit,
			Description: "Added funds to wallet",
		}, nil, time.Now().UTC())
		if err != nil {
			return err
		}
		user, txn = u, t
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.Log.Infof("[LEDGER] deposit %s for %s", amount, userID)
	publishProfile(ctx, s.Notify, user)
	return user, txn, nil
}

// ListTransactions returns a user's history, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	db, ok := s.Store.Reader(ctx, "ListTransactions")
	if !ok {
		return []models.Transaction{}, nil
	}
	q := db.Where("user_id = ?", userID).Order("date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var txns []models.Transaction
	if err := q.Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

// AuditMismatch is a user whose ledger sum disagrees with their balances.
type AuditMismatch struct {
	UserID    string
	Balance   decimal.Decimal
	LedgerSum decimal.Decimal
}

// Audit compares every user's deposit+winnings with the signed sum of their transactions.
func (s *LedgerService) Audit(ctx context.Context) ([]AuditMismatch, error) {
	db, ok := s.Store.Reader(ctx, "Audit")
	if !ok {
		return nil, nil
	}
	var rows []AuditMismatch
	err := db.Raw(`
		SELECT u.id AS user_id,
		       u.deposit_balance + u.winnings_balance AS balance,
		       COALESCE(SUM(t.amount), 0) AS ledger_sum
		FROM user_profiles u
		LEFT JOIN transactions t ON t.user_id = u.id
		GROUP BY u.id, u.deposit_balance, u.winnings_balance
		HAVING u.deposit_balance + u.winnings_balance <> COALESCE(SUM(t.amount), 0)
	`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ledger audit query failed: %w", err)
	}
	return rows, nil
}
