package services

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInsufficientWinnings = errors.New("insufficient winnings balance")

	ErrTournamentFull            = errors.New("tournament is full")
	ErrAlreadyJoined             = errors.New("already joined this tournament")
	ErrTournamentClosed          = errors.New("tournament is not open for joining")
	ErrInvalidTeam               = errors.New("invalid team roster")
	ErrAccountBanned             = errors.New("account is banned")
	ErrInvalidCapacity           = errors.New("max players cannot be below players joined")
	ErrTournamentHasParticipants = errors.New("tournament has participants")

	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAlreadySettled     = errors.New("results already submitted")
	ErrInvalidResults     = errors.New("invalid results")
	ErrUnknownParticipant = errors.New("result references a player who did not join")

	ErrInvalidUpi         = errors.New("upi id is required")
	ErrWithdrawalMismatch = errors.New("withdrawal user or amount does not match the request")
	ErrBelowMinWithdrawal = errors.New("amount is below the minimum withdrawal")
	ErrProfileExists      = errors.New("profile already exists")
	ErrUsernameTaken      = errors.New("username is taken")
	ErrInvalidInput       = errors.New("invalid input")
)
