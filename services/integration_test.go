package services

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"tournament-wallet/database"
	"tournament-wallet/models"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests run against a real Postgres when DATABASE_URL is set.

type env struct {
	store       *database.Client
	users       *UserService
	ledger      *LedgerService
	tournaments *TournamentService
	settlement  *SettlementService
	withdrawals *WithdrawalService
	games       *GameService
	referrals   *ReferralService
	settings    *SettingsService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	store, err := database.Open(dsn, slog.Disabled, 8)
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })

	return &env{
		store:       store,
		users:       NewUserService(store, slog.Disabled),
		ledger:      NewLedgerService(store, nil, slog.Disabled),
		tournaments: NewTournamentService(store, nil, slog.Disabled),
		settlement:  NewSettlementService(store, nil, slog.Disabled),
		withdrawals: NewWithdrawalService(store, nil, slog.Disabled),
		games:       NewGameService(store, nil, slog.Disabled),
		referrals:   NewReferralService(store, nil, slog.Disabled),
		settings:    NewSettingsService(store, slog.Disabled),
	}
}

func (e *env) user(t *testing.T, deposit, winnings string) *models.UserProfile {
	return e.referredUser(t, deposit, winnings, "")
}

func (e *env) referredUser(t *testing.T, deposit, winnings, code string) *models.UserProfile {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	u, err := e.users.CreateProfile(ctx, CreateProfileInput{
		UserID:       id,
		Email:        id + "@example.com",
		FirstName:    "Test",
		LastName:     "Player",
		Username:     "p_" + id[:12],
		ReferralCode: code,
	})
	require.NoError(t, err)
	if dep := d(deposit); dep.IsPositive() {
		_, _, err = e.ledger.AdjustBalance(ctx, id, models.WalletDeposit, dep, "seed")
		require.NoError(t, err)
	}
	if win := d(winnings); win.IsPositive() {
		_, _, err = e.ledger.AdjustBalance(ctx, id, models.WalletWinnings, win, "seed")
		require.NoError(t, err)
	}
	return u
}

func (e *env) tournament(t *testing.T, fee string, maxPlayers int) *models.Tournament {
	t.Helper()
	ctx := context.Background()
	game, err := e.games.CreateGame(ctx, GameInput{Name: "Free Fire", ImageURL: "https://img.example.com/ff.png"}, nil)
	require.NoError(t, err)
	tr, err := e.tournaments.Create(ctx, TournamentInput{
		Name:       "Cup " + uuid.NewString()[:6],
		GameID:     game.ID,
		EntryFee:   d(fee),
		PrizePool:  d("1000"),
		StartTime:  time.Now().Add(24 * time.Hour),
		MaxPlayers: maxPlayers,
		TeamType:   models.TeamSolo,
	})
	require.NoError(t, err)
	return tr
}

func (e *env) profile(t *testing.T, id string) *models.UserProfile {
	t.Helper()
	u, err := e.users.GetProfile(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *env) assertLedgerConsistent(t *testing.T, ids ...string) {
	t.Helper()
	mismatches, err := e.ledger.Audit(context.Background())
	require.NoError(t, err)
	bad := map[string]bool{}
	for _, m := range mismatches {
		bad[m.UserID] = true
	}
	for _, id := range ids {
		assert.False(t, bad[id], "ledger mismatch for %s", id)
	}
}

func TestIntegrationJoinSplitsFee(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "50", "30")
	tr := e.tournament(t, "60", 10)

	p, err := e.tournaments.Join(ctx, u.ID, tr.ID, []string{"Sniper"})
	require.NoError(t, err)
	assert.Equal(t, "Sniper", p.InGameName)

	after := e.profile(t, u.ID)
	assert.True(t, after.DepositBalance.IsZero())
	assert.True(t, after.WinningsBalance.Equal(d("20")))
	assert.Equal(t, 1, after.TournamentsPlayed)

	got, err := e.tournaments.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PlayersJoined)

	txns, err := e.ledger.ListTransactions(ctx, u.ID, 1)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, models.TxJoinFee, txns[0].Type)
	assert.True(t, txns[0].Amount.Equal(d("-60")))
	assert.Equal(t, `Joined "`+tr.Name+`"`, txns[0].Description)

	_, err = e.tournaments.Join(ctx, u.ID, tr.ID, []string{"Sniper"})
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	e.assertLedgerConsistent(t, u.ID)
}

func TestIntegrationJoinInsufficientLeavesNoTrace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "10", "5")
	tr := e.tournament(t, "60", 10)

	_, err := e.tournaments.Join(ctx, u.ID, tr.ID, []string{"Rusher"})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	after := e.profile(t, u.ID)
	assert.True(t, after.DepositBalance.Equal(d("10")))
	assert.True(t, after.WinningsBalance.Equal(d("5")))
	assert.Zero(t, after.TournamentsPlayed)

	got, err := e.tournaments.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Zero(t, got.PlayersJoined)
	assert.False(t, e.tournaments.HasJoined(ctx, tr.ID, u.ID))
}

func TestIntegrationConcurrentJoinRespectsCapacity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tr := e.tournament(t, "10", 1)

	const players = 6
	ids := make([]string, players)
	for i := range ids {
		ids[i] = e.user(t, "10", "0").ID
	}

	var wg sync.WaitGroup
	errs := make([]error, players)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = e.tournaments.Join(ctx, id, tr.ID, []string{"P"})
		}(i, id)
	}
	wg.Wait()

	joined := 0
	for _, err := range errs {
		if err == nil {
			joined++
			continue
		}
		assert.ErrorIs(t, err, ErrTournamentFull)
	}
	assert.Equal(t, 1, joined)

	got, err := e.tournaments.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PlayersJoined)

	participants, err := e.tournaments.ListParticipants(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 1)

	e.assertLedgerConsistent(t, ids...)
}

func TestIntegrationWithdrawalRejectRefunds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "0", "500")

	_, err := e.withdrawals.Create(ctx, u.ID, d("600"), "player@upi")
	assert.ErrorIs(t, err, ErrInsufficientWinnings)

	w, err := e.withdrawals.Create(ctx, u.ID, d("200"), "player@upi")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalPending, w.Status)
	assert.True(t, e.profile(t, u.ID).WinningsBalance.Equal(d("300")))

	_, err = e.withdrawals.Resolve(ctx, w.ID, models.WithdrawalRejected, u.ID, d("150"))
	assert.ErrorIs(t, err, ErrWithdrawalMismatch)

	resolved, err := e.withdrawals.Resolve(ctx, w.ID, models.WithdrawalRejected, u.ID, d("200"))
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalRejected, resolved.Status)
	assert.NotNil(t, resolved.ProcessedDate)
	assert.True(t, e.profile(t, u.ID).WinningsBalance.Equal(d("500")))

	_, err = e.withdrawals.Resolve(ctx, w.ID, models.WithdrawalCompleted, u.ID, d("200"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.True(t, e.profile(t, u.ID).WinningsBalance.Equal(d("500")))

	txns, err := e.ledger.ListTransactions(ctx, u.ID, 0)
	require.NoError(t, err)
	var refunds int
	for _, tx := range txns {
		if tx.Type == models.TxRefund {
			refunds++
			assert.Equal(t, "Withdrawal request rejected", tx.Description)
		}
	}
	assert.Equal(t, 1, refunds)
	e.assertLedgerConsistent(t, u.ID)
}

func TestIntegrationSettlementPaysOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tr := e.tournament(t, "20", 4)
	a := e.user(t, "20", "0")
	b := e.user(t, "20", "0")
	outsider := e.user(t, "0", "0")

	for _, u := range []*models.UserProfile{a, b} {
		_, err := e.tournaments.Join(ctx, u.ID, tr.ID, []string{"IGN"})
		require.NoError(t, err)
	}

	results := []ResultInput{
		{PlayerID: a.ID, Rank: 1, Kills: 9, Prize: d("300")},
		{PlayerID: b.ID, Rank: 2, Kills: 4, Prize: d("100")},
	}

	_, err := e.settlement.SubmitResults(ctx, tr.ID, results)
	assert.ErrorIs(t, err, ErrInvalidTransition, "upcoming tournaments cannot settle")

	_, err = e.tournaments.Transition(ctx, tr.ID, models.TournamentOngoing, "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.tournaments.Transition(ctx, tr.ID, models.TournamentOngoing, "room-42", "pw")
	require.NoError(t, err)

	_, err = e.settlement.SubmitResults(ctx, tr.ID, append(results, ResultInput{PlayerID: outsider.ID, Rank: 3}))
	assert.ErrorIs(t, err, ErrUnknownParticipant)
	assert.True(t, e.profile(t, a.ID).WinningsBalance.IsZero(), "failed settlement must not pay")

	settled, err := e.settlement.SubmitResults(ctx, tr.ID, results)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCompleted, settled.Status)
	assert.NotNil(t, settled.ResultsSubmittedAt)

	pa, pb := e.profile(t, a.ID), e.profile(t, b.ID)
	assert.True(t, pa.WinningsBalance.Equal(d("300")))
	assert.True(t, pa.TotalEarnings.Equal(d("300")))
	assert.Equal(t, 1, pa.Wins)
	assert.True(t, pb.WinningsBalance.Equal(d("100")))
	assert.Equal(t, 0, pb.Wins)

	_, err = e.settlement.SubmitResults(ctx, tr.ID, results)
	assert.ErrorIs(t, err, ErrAlreadySettled)
	assert.True(t, e.profile(t, a.ID).WinningsBalance.Equal(d("300")))

	got, err := e.tournaments.Get(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, got.Results, 2)
	assert.Equal(t, a.ID, got.Results[0].PlayerID)

	_, err = e.tournaments.Transition(ctx, tr.ID, models.TournamentCancelled, "", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	e.assertLedgerConsistent(t, a.ID, b.ID)
}

func TestIntegrationDeleteAndCapacityGuards(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tr := e.tournament(t, "0", 2)
	for _, ign := range []string{"Solo", "Lone"} {
		u := e.user(t, "0", "0")
		_, err := e.tournaments.Join(ctx, u.ID, tr.ID, []string{ign})
		require.NoError(t, err)
	}

	zero, one := 0, 1
	_, err := e.tournaments.Update(ctx, tr.ID, TournamentUpdate{MaxPlayers: &zero})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.tournaments.Update(ctx, tr.ID, TournamentUpdate{MaxPlayers: &one})
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	assert.ErrorIs(t, e.tournaments.Delete(ctx, tr.ID), ErrTournamentHasParticipants)

	empty := e.tournament(t, "0", 2)
	require.NoError(t, e.tournaments.Delete(ctx, empty.ID))
	_, err = e.tournaments.Get(ctx, empty.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIntegrationReferralBonusIsPaidOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	settings, err := e.settings.Get(ctx)
	require.NoError(t, err)
	bonus := settings.ReferralBonus

	referrer := e.user(t, "0", "0")
	newcomer := e.referredUser(t, "0", "0", referrer.ReferralCode)
	assert.Equal(t, referrer.ReferralCode, *e.profile(t, newcomer.ID).ReferredBy)

	drain := func() {
		for {
			n, err := e.referrals.ProcessPending(ctx, 100)
			require.NoError(t, err)
			if n == 0 {
				return
			}
		}
	}
	drain()
	drain()

	assert.True(t, e.profile(t, newcomer.ID).DepositBalance.Equal(bonus))
	assert.True(t, e.profile(t, referrer.ID).DepositBalance.Equal(bonus))

	pending, err := e.referrals.ListPending(ctx)
	require.NoError(t, err)
	for _, p := range pending {
		assert.NotEqual(t, newcomer.ID, p.NewUserID)
	}
	e.assertLedgerConsistent(t, referrer.ID, newcomer.ID)
}

func TestIntegrationInvalidReferralCodeIsClosed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.referredUser(t, "0", "0", "ZZZZZ9")

	for {
		n, err := e.referrals.ProcessPending(ctx, 100)
		require.NoError(t, err)
		if n == 0 {
			break
		}
	}
	assert.True(t, e.profile(t, u.ID).DepositBalance.IsZero())

	db, err := e.store.Writer(ctx)
	require.NoError(t, err)
	var ref models.PendingReferral
	require.NoError(t, db.First(&ref, "new_user_id = ?", u.ID).Error)
	assert.True(t, ref.Processed)
	assert.Equal(t, models.ReferralInvalidCode, ref.Outcome)
}

func TestIntegrationAdjustBalanceCannotOverdraw(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "25", "0")

	_, _, err := e.ledger.AdjustBalance(ctx, u.ID, models.WalletDeposit, d("-30"), "chargeback")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	after, txn, err := e.ledger.AdjustBalance(ctx, u.ID, models.WalletDeposit, decimal.NewFromInt(-25), "chargeback")
	require.NoError(t, err)
	assert.True(t, after.DepositBalance.IsZero())
	assert.Equal(t, models.TxAdminDebit, txn.Type)
	e.assertLedgerConsistent(t, u.ID)
}

func TestIntegrationJoinGuards(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ongoing := e.tournament(t, "10", 4)
	_, err := e.tournaments.Transition(ctx, ongoing.ID, models.TournamentOngoing, "room-1", "pw")
	require.NoError(t, err)
	cancelled := e.tournament(t, "10", 4)
	_, err = e.tournaments.Transition(ctx, cancelled.ID, models.TournamentCancelled, "", "")
	require.NoError(t, err)

	u := e.user(t, "50", "0")
	for _, tr := range []*models.Tournament{ongoing, cancelled} {
		_, err = e.tournaments.Join(ctx, u.ID, tr.ID, []string{"Late"})
		assert.ErrorIs(t, err, ErrTournamentClosed)
	}

	solo := e.tournament(t, "10", 4)
	_, err = e.tournaments.Join(ctx, u.ID, solo.ID, []string{"One", "Two"})
	assert.ErrorIs(t, err, ErrInvalidTeam)

	after := e.profile(t, u.ID)
	assert.True(t, after.DepositBalance.Equal(d("50")))
	assert.Zero(t, after.TournamentsPlayed)
	got, err := e.tournaments.Get(ctx, solo.ID)
	require.NoError(t, err)
	assert.Zero(t, got.PlayersJoined)
	e.assertLedgerConsistent(t, u.ID)
}

func TestIntegrationBannedUserCannotSpend(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "50", "500")
	tr := e.tournament(t, "10", 4)

	_, err := e.users.SetStatus(ctx, u.ID, models.UserStatusBanned)
	require.NoError(t, err)

	_, err = e.tournaments.Join(ctx, u.ID, tr.ID, []string{"Banned"})
	assert.ErrorIs(t, err, ErrAccountBanned)
	_, err = e.withdrawals.Create(ctx, u.ID, d("200"), "banned@upi")
	assert.ErrorIs(t, err, ErrAccountBanned)

	after := e.profile(t, u.ID)
	assert.True(t, after.DepositBalance.Equal(d("50")))
	assert.True(t, after.WinningsBalance.Equal(d("500")))
	assert.False(t, e.tournaments.HasJoined(ctx, tr.ID, u.ID))
}

func TestIntegrationMoneyStaysWithinColumnRange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "9999999999.99", "110")

	_, _, err := e.ledger.AdjustBalance(ctx, u.ID, models.WalletDeposit, d("0.01"), "overflow")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = e.withdrawals.Create(ctx, u.ID, d("109.995"), "player@upi")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	tr := e.tournament(t, "10", 4)
	fee := d("10.005")
	_, err = e.tournaments.Update(ctx, tr.ID, TournamentUpdate{EntryFee: &fee})
	assert.ErrorIs(t, err, ErrInvalidInput)

	after := e.profile(t, u.ID)
	assert.True(t, after.DepositBalance.Equal(d("9999999999.99")))
	assert.True(t, after.WinningsBalance.Equal(d("110")))
	e.assertLedgerConsistent(t, u.ID)
}

func TestIntegrationHasJoinedLogsLookupFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "0", "0")
	tr := e.tournament(t, "0", 4)
	_, err := e.tournaments.Join(ctx, u.ID, tr.ID, []string{"Seat"})
	require.NoError(t, err)

	var buf bytes.Buffer
	log := slog.NewBackend(&buf).Logger("TRNY")
	tournaments := NewTournamentService(e.store, nil, log)
	assert.True(t, tournaments.HasJoined(ctx, tr.ID, u.ID))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, tournaments.HasJoined(cancelled, tr.ID, u.ID))
	assert.Contains(t, buf.String(), "seat lookup")
}
