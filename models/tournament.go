package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "upcoming"
	TournamentOngoing   TournamentStatus = "ongoing"
	TournamentCompleted TournamentStatus = "completed"
	TournamentCancelled TournamentStatus = "cancelled"
)

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// completed is reachable only through result settlement, which checks it here too.
func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	switch s {
	case TournamentUpcoming:
		return next == TournamentOngoing || next == TournamentCancelled
	case TournamentOngoing:
		return next == TournamentCompleted || next == TournamentCancelled
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s TournamentStatus) Terminal() bool {
	return s == TournamentCompleted || s == TournamentCancelled
}

type TeamType string

const (
	TeamSolo  TeamType = "solo"
	TeamDuo   TeamType = "duo"
	TeamSquad TeamType = "squad"
)

// Size is the maximum roster length for the team type; 0 for unknown types.
func (t TeamType) Size() int {
	switch t {
	case TeamSolo:
		return 1
	case TeamDuo:
		return 2
	case TeamSquad:
		return 4
	}
	return 0
}

// Tournament is one contest instance.
type Tournament struct {
	ID               string           `json:"id" gorm:"primaryKey"`
	Name             string           `json:"name" gorm:"not null"`
	GameID           string           `json:"game_id" gorm:"not null;index"`
	GameName         string           `json:"game_name"`
	GameImageURL     string           `json:"game_image_url"`
	EntryFee         decimal.Decimal  `json:"entry_fee" gorm:"type:numeric(12,2);not null;default:0;check:chk_entry_fee_non_negative,entry_fee >= 0"`
	PrizePool        decimal.Decimal  `json:"prize_pool" gorm:"type:numeric(12,2);not null;default:0"`
	PrizeDescription string           `json:"prize_description,omitempty"`
	PerKillReward    decimal.Decimal  `json:"per_kill_reward" gorm:"type:numeric(12,2);not null;default:0"`
	StartTime        time.Time        `json:"start_time" gorm:"not null"`
	MaxPlayers       int              `json:"max_players" gorm:"not null"`
	PlayersJoined    int              `json:"players_joined" gorm:"not null;default:0;check:chk_players_within_capacity,players_joined >= 0 AND players_joined <= max_players"`
	Status           TournamentStatus `json:"status" gorm:"type:varchar(16);not null;default:'upcoming';index"`
	TeamType         TeamType         `json:"team_type" gorm:"type:varchar(8);not null;default:'solo'"`
	Map              string           `json:"map,omitempty"`
	Mode             string           `json:"mode,omitempty"`
	Rules            string           `json:"rules,omitempty" gorm:"type:text"`
	RoomID           string           `json:"room_id,omitempty"`
	RoomPassword     string           `json:"room_password,omitempty"`

	ResultsSubmittedAt *time.Time `json:"results_submitted_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Results []TournamentResult `json:"results,omitempty" gorm:"foreignKey:TournamentID"`
}

// Participant is a user's seat in a tournament; the composite key allows one per user.
type Participant struct {
	TournamentID string                      `json:"tournament_id" gorm:"primaryKey"`
	UserID       string                      `json:"user_id" gorm:"primaryKey;index"`
	Name         string                      `json:"name"`
	Email        string                      `json:"email"`
	InGameName   string                      `json:"in_game_name"`
	TeamMembers  datatypes.JSONSlice[string] `json:"team_members"`
	JoinedAt     time.Time                   `json:"joined_at" gorm:"not null"`
}

func (Participant) TableName() string {
	return "tournament_participants"
}

// TournamentResult is one ranked line of a settled tournament. The composite
// key makes every payout unique per (tournament, player).
type TournamentResult struct {
	TournamentID string                      `json:"tournament_id" gorm:"primaryKey"`
	PlayerID     string                      `json:"player_id" gorm:"primaryKey"`
	Rank         int                         `json:"rank" gorm:"not null"`
	Kills        int                         `json:"kills" gorm:"not null;default:0"`
	Prize        decimal.Decimal             `json:"prize" gorm:"type:numeric(12,2);not null;default:0"`
	Name         string                      `json:"name"`
	Email        string                      `json:"email"`
	InGameName   string                      `json:"in_game_name"`
	TeamMembers  datatypes.JSONSlice[string] `json:"team_members"`
	JoinedAt     time.Time                   `json:"joined_at"`
	CreatedAt    time.Time                   `json:"created_at" gorm:"autoCreateTime"`
}
