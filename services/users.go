package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"tournament-wallet/database"
	"tournament-wallet/models"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/gosimple/unidecode"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

const (
	referralCodeLength  = 6
	referralCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referralCodeTries   = 8
)

type UserService struct {
	Store *database.Client
	Log   slog.Logger
}

func NewUserService(store *database.Client, log slog.Logger) *UserService {
	return &UserService{Store: store, Log: log}
}

// CreateProfileInput is what signup collects on top of the identity provider's data.
type CreateProfileInput struct {
	UserID       string
	Email        string
	PhotoURL     string
	FirstName    string
	LastName     string
	Username     string
	MobileNumber string
	ReferralCode string // code the new user entered, optional
}

// GenerateReferralCode returns a random 6-character A-Z0-9 code.
func GenerateReferralCode() (string, error) {
	code := make([]byte, referralCodeLength)
	for i := range code {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralCodeCharset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		code[i] = referralCodeCharset[idx.Int64()]
	}
	return string(code), nil
}

// NormalizeUsername trims and NFKC-folds a username so visually identical
// names collide on the unique index.
func NormalizeUsername(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}

// NormalizeReferralCode upper-cases and trims an entered code.
func NormalizeReferralCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func fullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// CreateProfile stores a new account with zero balances. An entered referral
// code is recorded and queued for the referral worker in the same transaction;
// no bonus is credited here.
func (s *UserService) CreateProfile(ctx context.Context, in CreateProfileInput) (*models.UserProfile, error) {
	username := NormalizeUsername(in.Username)
	if in.UserID == "" || username == "" || strings.TrimSpace(in.FirstName) == "" {
		return nil, fmt.Errorf("user id, username and first name are required: %w", ErrInvalidInput)
	}
	referredBy := NormalizeReferralCode(in.ReferralCode)

	var created *models.UserProfile
	err := s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.UserProfile{}).Where("id = ?", in.UserID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrProfileExists
		}
		if err := tx.Model(&models.UserProfile{}).Where("LOWER(username) = LOWER(?)", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}

		code, err := uniqueReferralCode(tx)
		if err != nil {
			return err
		}

		profile := &models.UserProfile{
			ID:              in.UserID,
			Name:            fullName(in.FirstName, in.LastName),
			FirstName:       strings.TrimSpace(in.FirstName),
			LastName:        strings.TrimSpace(in.LastName),
			Username:        username,
			Email:           in.Email,
			MobileNumber:    strings.TrimSpace(in.MobileNumber),
			ProfilePhotoURL: in.PhotoURL,
			Role:            models.RoleUser,
			Status:          models.UserStatusActive,
			ReferralCode:    code,
		}
		if referredBy != "" {
			profile.ReferredBy = &referredBy
		}
		if err := tx.Create(profile).Error; err != nil {
			if database.IsUniqueViolation(err, "") {
				return ErrUsernameTaken
			}
			return fmt.Errorf("failed to create profile: %w", err)
		}

		if referredBy != "" {
			pending := &models.PendingReferral{
				ID:           uuid.NewString(),
				NewUserID:    in.UserID,
				ReferrerCode: referredBy,
			}
			if err := tx.Create(pending).Error; err != nil {
				return fmt.Errorf("failed to queue referral: %w", err)
			}
		}
		created = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Infof("👤 [USERS] created profile %s (%s), referred by %q", created.ID, created.Username, referredBy)
	return created, nil
}

func uniqueReferralCode(tx *gorm.DB) (string, error) {
	for i := 0; i < referralCodeTries; i++ {
		code, err := GenerateReferralCode()
		if err != nil {
			return "", err
		}
		var count int64
		if err := tx.Model(&models.UserProfile{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique referral code")
}

// GetProfile loads one profile.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	db, ok := s.Store.Reader(ctx, "GetProfile")
	if !ok {
		return nil, ErrNotFound
	}
	var user models.UserProfile
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &user, nil
}

// UpdateProfileInput carries optional profile edits; nil fields are left alone.
// Balances, stats, role and status are never editable here.
type UpdateProfileInput struct {
	FirstName       *string
	LastName        *string
	Username        *string
	MobileNumber    *string
	ProfilePhotoURL *string
}

// UpdateProfile applies the edits and recomputes the display name.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*models.UserProfile, error) {
	var updated *models.UserProfile
	err := s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		u, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if in.FirstName != nil {
			u.FirstName = strings.TrimSpace(*in.FirstName)
			updates["first_name"] = u.FirstName
		}
		if in.LastName != nil {
			u.LastName = strings.TrimSpace(*in.LastName)
			updates["last_name"] = u.LastName
		}
		if in.FirstName != nil || in.LastName != nil {
			u.Name = fullName(u.FirstName, u.LastName)
			updates["name"] = u.Name
		}
		if in.Username != nil {
			name := NormalizeUsername(*in.Username)
			if name == "" {
				return fmt.Errorf("username cannot be empty: %w", ErrInvalidInput)
			}
			var count int64
			if err := tx.Model(&models.UserProfile{}).
				Where("LOWER(username) = LOWER(?) AND id <> ?", name, userID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrUsernameTaken
			}
			u.Username = name
			updates["username"] = name
		}
		if in.MobileNumber != nil {
			u.MobileNumber = strings.TrimSpace(*in.MobileNumber)
			updates["mobile_number"] = u.MobileNumber
		}
		if in.ProfilePhotoURL != nil {
			u.ProfilePhotoURL = *in.ProfilePhotoURL
			updates["profile_photo_url"] = u.ProfilePhotoURL
		}
		if len(updates) > 0 {
			if err := saveUser(tx, userID, updates); err != nil {
				return err
			}
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// likeEscaper makes user input literal inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// SearchUsers lists profiles for the admin panel. q matches name, username or
// email; accented input is also tried in its ASCII-folded form.
func (s *UserService) SearchUsers(ctx context.Context, q string, limit int) ([]models.UserProfile, error) {
	db, ok := s.Store.Reader(ctx, "SearchUsers")
	if !ok {
		return []models.UserProfile{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := db.Model(&models.UserProfile{}).Order("created_at DESC").Limit(limit)

	if q = strings.ToLower(strings.TrimSpace(q)); q != "" {
		raw := "%" + likeEscaper.Replace(q) + "%"
		folded := "%" + likeEscaper.Replace(strings.ToLower(unidecode.Unidecode(q))) + "%"
		query = query.Where(
			`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' `+
				`OR LOWER(name) LIKE ? ESCAPE '\' OR LOWER(username) LIKE ? ESCAPE '\'`,
			raw, raw, raw, folded, folded,
		)
	}

	var users []models.UserProfile
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return users, nil
}

// SetStatus bans or reinstates a user.
func (s *UserService) SetStatus(ctx context.Context, userID string, status models.UserStatus) (*models.UserProfile, error) {
	if status != models.UserStatusActive && status != models.UserStatusBanned {
		return nil, fmt.Errorf("unknown status %q: %w", status, ErrInvalidInput)
	}
	db, err := s.Store.Writer(ctx)
	if err != nil {
		return nil, err
	}
	res := db.Model(&models.UserProfile{}).Where("id = ?", userID).Update("status", status)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	s.Log.Infof("[USERS] %s is now %s", userID, status)
	return s.GetProfile(ctx, userID)
}

// IdentityUpdate is the identity provider's view of a user.
type IdentityUpdate struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	PhotoURL string    `json:"photo_url"`
	Updated  time.Time `json:"updated_at"`
}

// ApplyIdentityUpdates copies email and photo from the identity provider onto
// existing profiles and returns how many rows changed. Unknown users are skipped.
func (s *UserService) ApplyIdentityUpdates(ctx context.Context, updates []IdentityUpdate) (int64, error) {
	db, err := s.Store.Writer(ctx)
	if err != nil {
		return 0, err
	}
	var changed int64
	for _, u := range updates {
		if u.UserID == "" {
			continue
		}
		fields := map[string]interface{}{}
		if u.Email != "" {
			fields["email"] = u.Email
		}
		if u.PhotoURL != "" {
			fields["profile_photo_url"] = u.PhotoURL
		}
		if len(fields) == 0 {
			continue
		}
		res := db.Model(&models.UserProfile{}).Where("id = ?", u.UserID).Updates(fields)
		if res.Error != nil {
			return changed, fmt.Errorf("failed to sync identity %s: %w", u.UserID, res.Error)
		}
		changed += res.RowsAffected
	}
	return changed, nil
}
