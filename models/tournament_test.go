package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTournamentStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to TournamentStatus
		ok       bool
	}{
		{TournamentUpcoming, TournamentOngoing, true},
		{TournamentUpcoming, TournamentCancelled, true},
		{TournamentUpcoming, TournamentCompleted, false},
		{TournamentOngoing, TournamentCompleted, true},
		{TournamentOngoing, TournamentCancelled, true},
		{TournamentOngoing, TournamentUpcoming, false},
		{TournamentCompleted, TournamentCancelled, false},
		{TournamentCancelled, TournamentOngoing, false},
		{TournamentCancelled, TournamentUpcoming, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
	assert.True(t, TournamentCompleted.Terminal())
	assert.True(t, TournamentCancelled.Terminal())
	assert.False(t, TournamentOngoing.Terminal())
}

func TestTeamTypeSize(t *testing.T) {
	assert.Equal(t, 1, TeamSolo.Size())
	assert.Equal(t, 2, TeamDuo.Size())
	assert.Equal(t, 4, TeamSquad.Size())
	assert.Equal(t, 0, TeamType("trio").Size())
}

func TestUserBalanceAccessors(t *testing.T) {
	u := &UserProfile{DepositBalance: decimal.NewFromInt(50), WinningsBalance: decimal.NewFromInt(30)}
	assert.True(t, u.Balance(WalletDeposit).Equal(decimal.NewFromInt(50)))
	assert.True(t, u.Balance(WalletWinnings).Equal(decimal.NewFromInt(30)))
	assert.True(t, u.TotalBalance().Equal(decimal.NewFromInt(80)))

	u.SetBalance(WalletWinnings, decimal.NewFromInt(5))
	assert.True(t, u.WinningsBalance.Equal(decimal.NewFromInt(5)))
	assert.False(t, WalletType("bonus").Valid())
}

func TestWithdrawalDecision(t *testing.T) {
	assert.True(t, WithdrawalCompleted.IsDecision())
	assert.True(t, WithdrawalRejected.IsDecision())
	assert.False(t, WithdrawalPending.IsDecision())
}
