package services

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"tournament-wallet/database"
	"tournament-wallet/models"

	"github.com/decred/slog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSplitEntryFee(t *testing.T) {
	cases := []struct {
		name              string
		deposit, winnings string
		fee               string
		wantDep, wantWin  string
		wantErr           error
	}{
		{"deposit covers fee", "100", "20", "60", "40", "20", nil},
		{"deposit exactly fee", "60", "0", "60", "0", "0", nil},
		{"shortfall from winnings", "50", "30", "60", "0", "20", nil},
		{"winnings only", "0", "75.50", "25.25", "0", "50.25", nil},
		{"free tournament", "0", "0", "0", "0", "0", nil},
		{"not enough in total", "10", "5", "60", "10", "5", ErrInsufficientBalance},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dep, win, err := splitEntryFee(d(tc.deposit), d(tc.winnings), d(tc.fee))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.True(t, dep.Equal(d(tc.wantDep)), "deposit %s", dep)
			assert.True(t, win.Equal(d(tc.wantWin)), "winnings %s", win)
		})
	}
}

func TestSplitEntryFeeConservesMoney(t *testing.T) {
	dep, win, err := splitEntryFee(d("12.34"), d("100"), d("50"))
	require.NoError(t, err)
	spent := d("12.34").Add(d("100")).Sub(dep).Sub(win)
	assert.True(t, spent.Equal(d("50")))
}

func TestCleanRoster(t *testing.T) {
	roster, err := cleanRoster([]string{"  Alpha ", "Bravo"}, models.TeamDuo)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Bravo"}, roster)

	_, err = cleanRoster(nil, models.TeamSolo)
	assert.ErrorIs(t, err, ErrInvalidTeam)

	_, err = cleanRoster([]string{"a", "b"}, models.TeamSolo)
	assert.ErrorIs(t, err, ErrInvalidTeam)

	_, err = cleanRoster([]string{"a", "  "}, models.TeamSquad)
	assert.ErrorIs(t, err, ErrInvalidTeam)

	roster, err = cleanRoster([]string{"a", "b", "c"}, models.TeamSquad)
	require.NoError(t, err)
	assert.Len(t, roster, 3)
}

func TestValidateResults(t *testing.T) {
	ok := []ResultInput{
		{PlayerID: "u1", Rank: 1, Kills: 7, Prize: d("500")},
		{PlayerID: "u2", Rank: 2, Kills: 3, Prize: d("0")},
	}
	require.NoError(t, validateResults(ok))
	assert.True(t, TotalPrize(ok).Equal(d("500")))

	bad := [][]ResultInput{
		nil,
		{{PlayerID: "", Rank: 1}},
		{{PlayerID: "u1", Rank: 1}, {PlayerID: "u1", Rank: 2}},
		{{PlayerID: "u1", Rank: 0}},
		{{PlayerID: "u1", Rank: 1, Kills: -1}},
		{{PlayerID: "u1", Rank: 1, Prize: d("-5")}},
	}
	for i, results := range bad {
		assert.ErrorIs(t, validateResults(results), ErrInvalidResults, "case %d", i)
	}
}

func TestIdempotencyKeys(t *testing.T) {
	assert.Equal(t, "prize:t1:u1", PrizeKey("t1", "u1"))
	assert.Equal(t, "referral:u9:new", ReferralKey("u9", "new"))
	assert.Equal(t, "referral:u9:referrer", ReferralKey("u9", "referrer"))
}

func TestGenerateReferralCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateReferralCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 40)
}

func TestNormalizers(t *testing.T) {
	assert.Equal(t, "player1", NormalizeUsername("  player1 "))
	// fullwidth letters fold to ASCII under NFKC
	assert.Equal(t, "ABC", NormalizeUsername("ＡＢＣ"))
	assert.Equal(t, "AB12CD", NormalizeReferralCode(" ab12cd "))
	assert.Equal(t, "Asha Rao", fullName(" Asha ", "Rao "))
	assert.Equal(t, "Asha", fullName("Asha", ""))
}

func TestGameHint(t *testing.T) {
	assert.Equal(t, "free_fire_max", GameHint("Free Fire MAX"))
	assert.Equal(t, "bgmi", GameHint("  BGMI "))
	assert.Equal(t, "call_of_duty_mobile", GameHint("Call of Duty: Mobile"))
}

func TestTournamentInputValidate(t *testing.T) {
	in := TournamentInput{Name: "Sunday Cup", GameID: "g1", MaxPlayers: 48, TeamType: models.TeamSquad}
	err := in.validate()
	assert.ErrorIs(t, err, ErrInvalidInput, "start time missing")

	in.StartTime = time.Date(2030, 1, 5, 18, 0, 0, 0, time.UTC)
	require.NoError(t, in.validate())

	in.EntryFee = d("-1")
	assert.ErrorIs(t, in.validate(), ErrInvalidInput)
}

type recordingPublisher struct {
	channels []string
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, _ interface{}) {
	p.channels = append(p.channels, channel)
}

func TestPublishProfileSkipsNil(t *testing.T) {
	pub := &recordingPublisher{}
	publishProfile(context.Background(), pub, nil)
	publishProfile(context.Background(), nil, &models.UserProfile{ID: "u1"})
	publishProfile(context.Background(), pub, &models.UserProfile{ID: "u1"})
	assert.Equal(t, []string{"profile:u1"}, pub.channels)
}

func unavailableStore() *database.Client {
	return database.Unavailable(errors.New("no DATABASE_URL"), slog.Disabled)
}

func TestUnavailableStorageReadsAreEmpty(t *testing.T) {
	ctx := context.Background()
	store := unavailableStore()

	tournaments := NewTournamentService(store, nil, slog.Disabled)
	list, err := tournaments.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	_, err = tournaments.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	ledger := NewLedgerService(store, nil, slog.Disabled)
	txns, err := ledger.ListTransactions(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, txns)

	settings, err := NewSettingsService(store, slog.Disabled).Get(ctx)
	require.NoError(t, err)
	assert.True(t, settings.MinWithdrawal.Equal(d("100")))

	n, err := NewReferralService(store, nil, slog.Disabled).ProcessPending(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnavailableStorageWritesFail(t *testing.T) {
	ctx := context.Background()
	store := unavailableStore()

	_, err := NewTournamentService(store, nil, slog.Disabled).Join(ctx, "u1", "t1", []string{"x"})
	assert.ErrorIs(t, err, database.ErrUnavailable)

	_, _, err = NewLedgerService(store, nil, slog.Disabled).AddFunds(ctx, "u1", d("10"))
	assert.ErrorIs(t, err, database.ErrUnavailable)

	_, err = NewWithdrawalService(store, nil, slog.Disabled).Create(ctx, "u1", d("150"), "user@upi")
	assert.ErrorIs(t, err, database.ErrUnavailable)

	_, err = NewSettlementService(store, nil, slog.Disabled).SubmitResults(ctx, "t1", []ResultInput{{PlayerID: "u1", Rank: 1}})
	assert.ErrorIs(t, err, database.ErrUnavailable)
}

func TestInputValidationRunsBeforeStorage(t *testing.T) {
	ctx := context.Background()
	store := unavailableStore()

	_, _, err := NewLedgerService(store, nil, slog.Disabled).AddFunds(ctx, "u1", d("0"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = NewLedgerService(store, nil, slog.Disabled).AdjustBalance(ctx, "u1", models.WalletDeposit, d("0"), "noop")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	w := NewWithdrawalService(store, nil, slog.Disabled)
	_, err = w.Create(ctx, "u1", d("-5"), "user@upi")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = w.Create(ctx, "u1", d("150"), "   ")
	assert.ErrorIs(t, err, ErrInvalidUpi)
	_, err = w.Resolve(ctx, "w1", models.WithdrawalPending, "u1", d("150"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewTournamentService(store, nil, slog.Disabled).Transition(ctx, "t1", models.TournamentCompleted, "", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = NewSupportService(store, nil, slog.Disabled).CreateTicket(ctx, "u1", TicketInput{IssueType: "Billing", Description: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewGameService(store, nil, slog.Disabled).CreateGame(ctx, GameInput{Name: strings.Repeat(" ", 3)}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

type fakeUploader struct {
	keys []string
}

func (f *fakeUploader) Upload(_ context.Context, key, _ string, _ io.Reader) (string, error) {
	f.keys = append(f.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func TestUploadImage(t *testing.T) {
	ctx := context.Background()
	games := NewGameService(unavailableStore(), nil, slog.Disabled)
	_, err := games.UploadImage(ctx, &Image{Key: "profiles/u1/a.png", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrUploadsDisabled)

	up := &fakeUploader{}
	games.Uploader = up
	url, err := games.UploadImage(ctx, &Image{Key: "profiles/u1/a.png", Body: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/profiles/u1/a.png", url)
	assert.Equal(t, []string{"profiles/u1/a.png"}, up.keys)
}

func TestCheckMoney(t *testing.T) {
	for _, ok := range []string{"0", "0.01", "110.5", "-25.25", "9999999999.99"} {
		assert.NoError(t, checkMoney("amount", d(ok)), ok)
	}
	for _, bad := range []string{"0.004", "109.995", "-0.001", "10000000000", "-10000000000.00"} {
		assert.ErrorIs(t, checkMoney("amount", d(bad)), ErrInvalidAmount, bad)
	}
}

func TestSubPaiseAmountsRejectedBeforeStorage(t *testing.T) {
	ctx := context.Background()
	store := unavailableStore()
	ledger := NewLedgerService(store, nil, slog.Disabled)

	_, _, err := ledger.AdjustBalance(ctx, "u1", models.WalletDeposit, d("0.004"), "rounding")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = ledger.AdjustBalance(ctx, "u1", models.WalletDeposit, d("-12.345"), "rounding")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = ledger.AddFunds(ctx, "u1", d("10.001"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = ledger.AddFunds(ctx, "u1", d("20000000000"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	w := NewWithdrawalService(store, nil, slog.Disabled)
	_, err = w.Create(ctx, "u1", d("109.995"), "user@upi")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = w.Resolve(ctx, "w1", models.WithdrawalRejected, "u1", d("109.995"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.ErrorIs(t, validateResults([]ResultInput{{PlayerID: "u1", Rank: 1, Prize: d("0.125")}}), ErrInvalidResults)
	_, err = NewSettlementService(store, nil, slog.Disabled).SubmitResults(ctx, "t1", []ResultInput{{PlayerID: "u1", Rank: 1, Prize: d("50.001")}})
	assert.ErrorIs(t, err, ErrInvalidResults)

	in := TournamentInput{
		Name:       "Sunday Cup",
		GameID:     "g1",
		MaxPlayers: 48,
		TeamType:   models.TeamSquad,
		StartTime:  time.Date(2030, 1, 5, 18, 0, 0, 0, time.UTC),
	}
	for _, set := range []func(*TournamentInput){
		func(in *TournamentInput) { in.EntryFee = d("10.005") },
		func(in *TournamentInput) { in.PrizePool = d("1000.999") },
		func(in *TournamentInput) { in.PerKillReward = d("0.001") },
		func(in *TournamentInput) { in.PrizePool = d("99999999999") },
	} {
		bad := in
		set(&bad)
		assert.ErrorIs(t, bad.validate(), ErrInvalidInput)
	}
}

func TestLikeEscaper(t *testing.T) {
	assert.Equal(t, `100\%`, likeEscaper.Replace("100%"))
	assert.Equal(t, `a\_b`, likeEscaper.Replace("a_b"))
	assert.Equal(t, `c:\\x`, likeEscaper.Replace(`c:\x`))
	assert.Equal(t, "plain", likeEscaper.Replace("plain"))
}
