package services

import (
	"context"
	"errors"
	"fmt"

	"tournament-wallet/database"
	"tournament-wallet/models"

	"github.com/decred/slog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsService struct {
	Store *database.Client
	Log   slog.Logger
}

func NewSettingsService(store *database.Client, log slog.Logger) *SettingsService {
	return &SettingsService{Store: store, Log: log}
}

// Get returns the stored settings, or the defaults if none were saved yet or
// storage is down.
func (s *SettingsService) Get(ctx context.Context) (*models.AppSettings, error) {
	def := models.DefaultSettings()
	db, ok := s.Store.Reader(ctx, "GetSettings")
	if !ok {
		return &def, nil
	}
	return loadSettings(db)
}

func loadSettings(db *gorm.DB) (*models.AppSettings, error) {
	var settings models.AppSettings
	if err := db.First(&settings, "id = ?", models.SettingsID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			def := models.DefaultSettings()
			return &def, nil
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &settings, nil
}

// Update upserts the single settings row.
func (s *SettingsService) Update(ctx context.Context, in models.AppSettings) (*models.AppSettings, error) {
	if in.MinWithdrawal.IsNegative() || in.ReferralBonus.IsNegative() {
		return nil, fmt.Errorf("amounts cannot be negative: %w", ErrInvalidAmount)
	}
	db, err := s.Store.Writer(ctx)
	if err != nil {
		return nil, err
	}
	in.ID = models.SettingsID
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&in).Error; err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	s.Log.Infof("⚙️ [SETTINGS] updated (min withdrawal %s, referral bonus %s)", in.MinWithdrawal, in.ReferralBonus)
	return &in, nil
}

// MinWithdrawal is the smallest amount a user may request.
func (s *SettingsService) MinWithdrawal(ctx context.Context) decimal.Decimal {
	settings, err := s.Get(ctx)
	if err != nil {
		s.Log.Warnf("[SETTINGS] falling back to default min withdrawal: %v", err)
		return models.DefaultSettings().MinWithdrawal
	}
	return settings.MinWithdrawal
}
