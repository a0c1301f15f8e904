package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tournament-wallet/database"
	"tournament-wallet/models"
	"tournament-wallet/notify"

	"github.com/decred/slog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ResultInput is one line of the admin's final standings.
type ResultInput struct {
	PlayerID string          `json:"player_id"`
	Rank     int             `json:"rank"`
	Kills    int             `json:"kills"`
	Prize    decimal.Decimal `json:"prize"`
}

// SettlementService records final standings and pays prizes.
type SettlementService struct {
	Store  *database.Client
	Notify notify.Publisher
	Log    slog.Logger
}

func NewSettlementService(store *database.Client, pub notify.Publisher, log slog.Logger) *SettlementService {
	return &SettlementService{Store: store, Notify: pub, Log: log}
}

// PrizeKey is the idempotency key of one payout.
func PrizeKey(tournamentID, playerID string) string {
	return "prize:" + tournamentID + ":" + playerID
}

func validateResults(results []ResultInput) error {
	if len(results) == 0 {
		return fmt.Errorf("no results: %w", ErrInvalidResults)
	}
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		switch {
		case r.PlayerID == "":
			return fmt.Errorf("player_id is required: %w", ErrInvalidResults)
		case seen[r.PlayerID]:
			return fmt.Errorf("player %s listed twice: %w", r.PlayerID, ErrInvalidResults)
		case r.Rank < 1:
			return fmt.Errorf("player %s: rank must be at least 1: %w", r.PlayerID, ErrInvalidResults)
		case r.Kills < 0:
			return fmt.Errorf("player %s: kills cannot be negative: %w", r.PlayerID, ErrInvalidResults)
		case r.Prize.IsNegative():
			return fmt.Errorf("player %s: prize cannot be negative: %w", r.PlayerID, ErrInvalidResults)
		case checkMoney("prize", r.Prize) != nil:
			return fmt.Errorf("player %s: prize must be a whole number of paise within range: %w", r.PlayerID, ErrInvalidResults)
		}
		seen[r.PlayerID] = true
	}
	return nil
}

// TotalPrize sums the prizes of a result set.
func TotalPrize(results []ResultInput) decimal.Decimal {
	total := decimal.Zero
	for _, r := range results {
		total = total.Add(r.Prize)
	}
	return total
}

// SubmitResults settles an ongoing tournament in a single transaction: the
// results, every winner's balance, stats and prize entry, and the move to
// completed either all commit or none do. A tournament settles once.
func (s *SettlementService) SubmitResults(ctx context.Context, tournamentID string, results []ResultInput) (*models.Tournament, error) {
	if err := validateResults(results); err != nil {
		return nil, err
	}

	var settled *models.Tournament
	var winners []*models.UserProfile
	err := s.Store.Transaction(ctx, func(tx *gorm.DB) error {
		winners = nil

		t, err := lockTournament(tx, tournamentID)
		if err != nil {
			return err
		}
		if t.ResultsSubmittedAt != nil || t.Status == models.TournamentCompleted {
			return ErrAlreadySettled
		}
		if !t.Status.CanTransitionTo(models.TournamentCompleted) {
			return fmt.Errorf("cannot settle a %s tournament: %w", t.Status, ErrInvalidTransition)
		}

		var participants []models.Participant
		if err := tx.Where("tournament_id = ?", tournamentID).Find(&participants).Error; err != nil {
			return fmt.Errorf("failed to load participants: %w", err)
		}
		seats := make(map[string]models.Participant, len(participants))
		for _, p := range participants {
			seats[p.UserID] = p
		}

		now := time.Now().UTC()
		rows := make([]models.TournamentResult, 0, len(results))
		for _, r := range results {
			p, ok := seats[r.PlayerID]
			if !ok {
				return fmt.Errorf("player %s: %w", r.PlayerID, ErrUnknownParticipant)
			}
			rows = append(rows, models.TournamentResult{
				TournamentID: tournamentID,
				PlayerID:     r.PlayerID,
				Rank:         r.Rank,
				Kills:        r.Kills,
				Prize:        r.Prize,
				Name:         p.Name,
				Email:        p.Email,
				InGameName:   p.InGameName,
				TeamMembers:  p.TeamMembers,
				JoinedAt:     p.JoinedAt,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			if database.IsUniqueViolation(err, "") {
				return ErrAlreadySettled
			}
			return fmt.Errorf("failed to store results: %w", err)
		}

		// lock winners in id order so concurrent settlements cannot deadlock
		payouts := make([]ResultInput, 0, len(results))
		for _, r := range results {
			if r.Prize.IsPositive() {
				payouts = append(payouts, r)
			}
		}
		sort.Slice(payouts, func(i, j int) bool { return payouts[i].PlayerID < payouts[j].PlayerID })

		for _, r := range payouts {
			u, err := lockUser(tx, r.PlayerID)
			if err != nil {
				return err
			}
			extra := map[string]interface{}{
				"total_earnings": gorm.Expr("total_earnings + ?", r.Prize),
			}
			if r.Rank == 1 {
				extra["wins"] = gorm.Expr("wins + 1")
			}
			if _, err := applyEntry(tx, u, entry{
				Wallet:         models.WalletWinnings,
				Amount:         r.Prize,
				Type:           models.TxPrize,
				Description:    fmt.Sprintf(`Prize from "%s"`, t.Name),
				Reference:      tournamentID,
				IdempotencyKey: PrizeKey(tournamentID, r.PlayerID),
			}, extra, now); err != nil {
				if database.IsUniqueViolation(err, "") {
					return ErrAlreadySettled
				}
				return err
			}
			u.TotalEarnings = u.TotalEarnings.Add(r.Prize)
			if r.Rank == 1 {
				u.Wins++
			}
			winners = append(winners, u)
		}

		if err := tx.Model(&models.Tournament{}).Where("id = ?", tournamentID).Updates(map[string]interface{}{
			"status":               models.TournamentCompleted,
			"results_submitted_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to complete tournament: %w", err)
		}
		t.Status = models.TournamentCompleted
		t.ResultsSubmittedAt = &now
		t.Results = rows
		settled = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Log.Infof("🏁 [SETTLEMENT] %s settled: %d results, %d payouts, %s paid",
		tournamentID, len(results), len(winners), TotalPrize(results))
	for _, u := range winners {
		publishProfile(ctx, s.Notify, u)
	}
	return settled, nil
}
