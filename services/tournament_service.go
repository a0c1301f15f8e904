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
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TournamentService struct {
	Store  *database.Client
	Notify notify.Publisher
	Log    slog.Logger
}

func NewTournamentService(store *database.Client, pub notify.Publisher, log slog.Logger) *TournamentService {
	return &TournamentService{Store: store, Notify: pub, Log: log}
}

// TournamentInput is the admin form for creating a tournament.
type TournamentInput struct {
	Name             string          `json:"name"`
	GameID           string          `json:"game_id"`
	EntryFee         decimal.Decimal `json:"entry_fee"`
	PrizePool        decimal.Decimal `json:"prize_pool"`
	PrizeDescription string          `json:"prize_description"`
	PerKillReward    decimal.Decimal `json:"per_kill_reward"`
	StartTime        time.Time       `json:"start_time"`
	MaxPlayers       int             `json:"max_players"`
	TeamType         models.TeamType `json:"team_type"`
	Map              string          `json:"map"`
	Mode             string          `json:"mode"`
	Rules            string          `json:"rules"`
}

func (in TournamentInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("name is required: %w", ErrInvalidInput)
	case in.GameID == "":
		return fmt.Errorf("game_id is required: %w", ErrInvalidInput)
	case in.MaxPlayers < 1:
		return fmt.Errorf("max_players must be at least 1: %w", ErrInvalidInput)
	case in.EntryFee.IsNegative(), in.PrizePool.IsNegative(), in.PerKillReward.IsNegative():
		return fmt.Errorf("fees and prizes cannot be negative: %w", ErrInvalidInput)
	case in.TeamType.Size() == 0:
		return fmt.Errorf("team_type must be solo, duo or squad: %w", ErrInvalidInput)
	case in.StartTime.IsZero():
		return fmt.Errorf("start_time is required: %w", ErrInvalidInput)
	}
	for field, v := range map[string]decimal.Decimal{
		"entry_fee":       in.EntryFee,
		"prize_pool":      in.PrizePool,
		"per_kill_reward": in.PerKillReward,
	} {
		if err := checkMoney(field, v); err != nil {
			return fmt.Errorf("%v: %w", err, ErrInvalidInput)
		}
	}
	return nil
}

func loadGame(tx *gorm.DB, gameID string) (*models.Game, error) {
	var game models.Game
	if err := tx.First(&game, "id = ?", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
		}
		return nil, err
	}
	return &game, nil
}

func lockTournament(tx *gorm.DB, id string) (*models.Tournament, error) {
	var t models.Tournament
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tournament %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock tournament %s: %w", id, err)
	}
	return &t, nil
}

// Create adds an upcoming tournament with no players. Game name and image are
// copied from the game so listings need no join.
func (s *TournamentService) Create(ctx context.Context, in TournamentInput) (*models.Tournament, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var created *models.Tournament
	err := s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		game, err := loadGame(tx, in.GameID)
		if err != nil {
			return err
		}
		t := &models.Tournament{
			ID:               uuid.NewString(),
			Name:             strings.TrimSpace(in.Name),
			GameID:           game.ID,
			GameName:         game.Name,
			GameImageURL:     game.ImageURL,
			EntryFee:         in.EntryFee,
			PrizePool:        in.PrizePool,
			PrizeDescription: in.PrizeDescription,
			PerKillReward:    in.PerKillReward,
			StartTime:        in.StartTime.UTC(),
			MaxPlayers:       in.MaxPlayers,
			PlayersJoined:    0,
			Status:           models.TournamentUpcoming,
			TeamType:         in.TeamType,
			Map:              in.Map,
			Mode:             in.Mode,
			Rules:            in.Rules,
		}
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("failed to create tournament: %w", err)
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.Infof("🏆 [TOURNAMENT] created %s (%s), fee %s, %d slots", created.Name, created.ID, created.EntryFee, created.MaxPlayers)
	return created, nil
}

// TournamentUpdate holds optional edits. Status, counters and results are not editable.
type TournamentUpdate struct {
	Name             *string          `json:"name"`
	GameID           *string          `json:"game_id"`
	EntryFee         *decimal.Decimal `json:"entry_fee"`
	PrizePool        *decimal.Decimal `json:"prize_pool"`
	PrizeDescription *string          `json:"prize_description"`
	PerKillReward    *decimal.Decimal `json:"per_kill_reward"`
	StartTime        *time.Time       `json:"start_time"`
	MaxPlayers       *int             `json:"max_players"`
	TeamType         *models.TeamType `json:"team_type"`
	Map              *string          `json:"map"`
	Mode             *string          `json:"mode"`
	Rules            *string          `json:"rules"`
	RoomID           *string          `json:"room_id"`
	RoomPassword     *string          `json:"room_password"`
}

func (s *TournamentService) Update(ctx context.Context, id string, in TournamentUpdate) (*models.Tournament, error) {
	var updated *models.Tournament
	err := s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		t, err := lockTournament(tx, id)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return fmt.Errorf("name cannot be empty: %w", ErrInvalidInput)
			}
			updates["name"] = strings.TrimSpace(*in.Name)
		}
		if in.GameID != nil && *in.GameID != t.GameID {
			game, err := loadGame(tx, *in.GameID)
			if err != nil {
				return err
			}
			updates["game_id"] = game.ID
			updates["game_name"] = game.Name
			updates["game_image_url"] = game.ImageURL
		}
		for col, v := range map[string]*decimal.Decimal{
			"entry_fee":       in.EntryFee,
			"prize_pool":      in.PrizePool,
			"per_kill_reward": in.PerKillReward,
		} {
			if v == nil {
				continue
			}
			if v.IsNegative() {
				return fmt.Errorf("%s cannot be negative: %w", col, ErrInvalidInput)
			}
			if err := checkMoney(col, *v); err != nil {
				return fmt.Errorf("%v: %w", err, ErrInvalidInput)
			}
			updates[col] = *v
		}
		if in.MaxPlayers != nil {
			if *in.MaxPlayers < 1 {
				return fmt.Errorf("max_players must be at least 1: %w", ErrInvalidInput)
			}
			if *in.MaxPlayers < t.PlayersJoined {
				return ErrInvalidCapacity
			}
			updates["max_players"] = *in.MaxPlayers
		}
		if in.TeamType != nil {
			if in.TeamType.Size() == 0 {
				return fmt.Errorf("team_type must be solo, duo or squad: %w", ErrInvalidInput)
			}
			updates["team_type"] = *in.TeamType
		}
		if in.StartTime != nil {
			updates["start_time"] = in.StartTime.UTC()
		}
		for col, v := range map[string]*string{
			"prize_description": in.PrizeDescription,
			"map":               in.Map,
			"mode":              in.Mode,
			"rules":             in.Rules,
			"room_id":           in.RoomID,
			"room_password":     in.RoomPassword,
		} {
			if v != nil {
				updates[col] = *v
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Tournament{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update tournament: %w", err)
			}
		}
		var fresh models.Tournament
		if err := tx.First(&fresh, "id = ?", id).Error; err != nil {
			return err
		}
		updated = &fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a tournament nobody has joined.
func (s *TournamentService) Delete(ctx context.Context, id string) error {
	return s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		t, err := lockTournament(tx, id)
		if err != nil {
			return err
		}
		if t.PlayersJoined > 0 {
			return ErrTournamentHasParticipants
		}
		if err := tx.Delete(&models.Tournament{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete tournament: %w", err)
		}
		s.Log.Infof("[TOURNAMENT] deleted %s", id)
		return nil
	})
}

// Transition moves a tournament along its lifecycle. Going ongoing requires
// room credentials. completed is only reachable by submitting results.
// Cancelling does not refund anyone.
func (s *TournamentService) Transition(ctx context.Context, id string, next models.TournamentStatus, roomID, roomPassword string) (*models.Tournament, error) {
	if next == models.TournamentCompleted {
		return nil, fmt.Errorf("tournaments complete by submitting results: %w", ErrInvalidTransition)
	}
	var out *models.Tournament
	err := s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		t, err := lockTournament(tx, id)
		if err != nil {
			return err
		}
		if !t.Status.CanTransitionTo(next) {
			return fmt.Errorf("%s -> %s: %w", t.Status, next, ErrInvalidTransition)
		}
		updates := map[string]interface{}{"status": next}
		if next == models.TournamentOngoing {
			roomID, roomPassword = strings.TrimSpace(roomID), strings.TrimSpace(roomPassword)
			if roomID == "" || roomPassword == "" {
				return fmt.Errorf("room_id and room_password are required to start: %w", ErrInvalidInput)
			}
			updates["room_id"] = roomID
			updates["room_password"] = roomPassword
		}
		if err := tx.Model(&models.Tournament{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		prev := t.Status
		t.Status = next
		if next == models.TournamentOngoing {
			t.RoomID, t.RoomPassword = roomID, roomPassword
		}
		s.Log.Infof("[TOURNAMENT] %s: %s -> %s", id, prev, next)
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Status == models.TournamentCancelled && out.PlayersJoined > 0 {
		s.Log.Warnf("⚠️ [TOURNAMENT] %s cancelled with %d players; entry fees must be refunded manually", id, out.PlayersJoined)
	}
	return out, nil
}

// cleanRoster trims names and rejects rosters that are empty, contain blanks
// or exceed the team size.
func cleanRoster(names []string, teamType models.TeamType) ([]string, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one in-game name is required: %w", ErrInvalidTeam)
	}
	if size := teamType.Size(); size > 0 && len(names) > size {
		return nil, fmt.Errorf("%s teams have at most %d players: %w", teamType, size, ErrInvalidTeam)
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, fmt.Errorf("in-game names cannot be blank: %w", ErrInvalidTeam)
		}
		out = append(out, n)
	}
	return out, nil
}

// splitEntryFee drains the deposit wallet first and takes any shortfall from
// winnings. It fails with ErrInsufficientBalance if winnings would go negative.
func splitEntryFee(deposit, winnings, fee decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if deposit.GreaterThanOrEqual(fee) {
		return deposit.Sub(fee), winnings, nil
	}
	newWinnings := winnings.Sub(fee.Sub(deposit))
	if newWinnings.IsNegative() {
		return deposit, winnings, ErrInsufficientBalance
	}
	return decimal.Zero, newWinnings, nil
}

// Join admits userID into the tournament once, paying the entry fee from
// deposit then winnings. The tournament row lock serializes concurrent
// joiners so the capacity check is authoritative at commit.
func (s *TournamentService) Join(ctx context.Context, userID, tournamentID string, teamMembers []string) (*models.Participant, error) {
	db, err := s.Store.Writer(ctx)
	if err != nil {
		return nil, err
	}

	// informational pre-check, repeated under lock below
	var snapshot models.Tournament
	if err := db.First(&snapshot, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tournament %s: %w", tournamentID, ErrNotFound)
		}
		return nil, err
	}
	var profile models.UserProfile
	if err := db.First(&profile, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	if profile.TotalBalance().LessThan(snapshot.EntryFee) {
		return nil, ErrInsufficientBalance
	}

	var joined *models.Participant
	var user *models.UserProfile
	err = s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		t, err := lockTournament(tx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status != models.TournamentUpcoming {
			return ErrTournamentClosed
		}
		roster, err := cleanRoster(teamMembers, t.TeamType)
		if err != nil {
			return err
		}
		u, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if u.IsBanned() {
			return ErrAccountBanned
		}
		if t.PlayersJoined >= t.MaxPlayers {
			return ErrTournamentFull
		}
		var existing int64
		if err := tx.Model(&models.Participant{}).
			Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyJoined
		}

		newDeposit, newWinnings, err := splitEntryFee(u.DepositBalance, u.WinningsBalance, t.EntryFee)
		if err != nil {
			return err
		}
		now := time.Now().UTC()

		if err := tx.Model(&models.Tournament{}).Where("id = ?", t.ID).
			Update("players_joined", gorm.Expr("players_joined + 1")).Error; err != nil {
			return fmt.Errorf("failed to bump players_joined: %w", err)
		}

		u.DepositBalance, u.WinningsBalance = newDeposit, newWinnings
		u.TournamentsPlayed++
		if err := saveUser(tx, u.ID, map[string]interface{}{
			"deposit_balance":    newDeposit,
			"winnings_balance":   newWinnings,
			"tournaments_played": gorm.Expr("tournaments_played + 1"),
		}); err != nil {
			return err
		}

		p := &models.Participant{
			TournamentID: t.ID,
			UserID:       u.ID,
			Name:         u.Name,
			Email:        u.Email,
			InGameName:   roster[0],
			TeamMembers:  datatypes.JSONSlice[string](roster),
			JoinedAt:     now,
		}
		if err := tx.Create(p).Error; err != nil {
			if database.IsUniqueViolation(err, "") {
				return ErrAlreadyJoined
			}
			return fmt.Errorf("failed to create participant: %w", err)
		}

		if _, err := recordTransaction(tx, u, entry{
			Wallet:      models.WalletDeposit,
			Amount:      t.EntryFee.Neg(),
			Type:        models.TxJoinFee,
			Description: fmt.Sprintf(`Joined "%s"`, t.Name),
			Reference:   t.ID,
		}, now); err != nil {
			return err
		}

		joined, user = p, u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Infof("🎮 [JOIN] %s joined %s as %q", userID, tournamentID, joined.InGameName)
	publishProfile(ctx, s.Notify, user)
	return joined, nil
}

// Get returns a tournament with its results ordered by rank.
func (s *TournamentService) Get(ctx context.Context, id string) (*models.Tournament, error) {
	db, ok := s.Store.Reader(ctx, "GetTournament")
	if !ok {
		return nil, ErrNotFound
	}
	var t models.Tournament
	err := db.Preload("Results", func(db *gorm.DB) *gorm.DB {
		return db.Order("rank ASC")
	}).First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	return &t, nil
}

// List returns tournaments, optionally filtered by status, soonest first.
func (s *TournamentService) List(ctx context.Context, status models.TournamentStatus) ([]models.Tournament, error) {
	db, ok := s.Store.Reader(ctx, "ListTournaments")
	if !ok {
		return []models.Tournament{}, nil
	}
	q := db.Order("start_time ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Tournament
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return out, nil
}

// ListByGame returns every tournament of one game.
func (s *TournamentService) ListByGame(ctx context.Context, gameID string) ([]models.Tournament, error) {
	db, ok := s.Store.Reader(ctx, "ListTournamentsByGame")
	if !ok {
		return []models.Tournament{}, nil
	}
	var out []models.Tournament
	if err := db.Where("game_id = ?", gameID).Order("start_time ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return out, nil
}

// ListParticipants returns the players of one tournament in join order.
func (s *TournamentService) ListParticipants(ctx context.Context, tournamentID string) ([]models.Participant, error) {
	db, ok := s.Store.Reader(ctx, "ListParticipants")
	if !ok {
		return []models.Participant{}, nil
	}
	var out []models.Participant
	if err := db.Where("tournament_id = ?", tournamentID).Order("joined_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return out, nil
}

// ListJoined returns the tournaments a user has joined, newest join first.
func (s *TournamentService) ListJoined(ctx context.Context, userID string) ([]models.Tournament, error) {
	db, ok := s.Store.Reader(ctx, "ListJoinedTournaments")
	if !ok {
		return []models.Tournament{}, nil
	}
	var out []models.Tournament
	err := db.Joins("JOIN tournament_participants p ON p.tournament_id = tournaments.id").
		Where("p.user_id = ?", userID).
		Order("p.joined_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list joined tournaments: %w", err)
	}
	return out, nil
}

// HasJoined reports whether userID holds a seat in the tournament.
func (s *TournamentService) HasJoined(ctx context.Context, tournamentID, userID string) bool {
	db, ok := s.Store.Reader(ctx, "HasJoined")
	if !ok {
		return false
	}
	var count int64
	if err := db.Model(&models.Participant{}).
		Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
		Count(&count).Error; err != nil {
		s.Log.Errorf("❌ [TOURNAMENT] seat lookup for %s in %s failed: %v", userID, tournamentID, err)
		return false
	}
	return count > 0
}
