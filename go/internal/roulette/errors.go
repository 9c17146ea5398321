package roulette

import "errors"

var (
	// ErrInsufficientFunds is returned when a stake exceeds the seat's chips.
	ErrInsufficientFunds = errors.New("insufficient chips")
	// ErrInvalidStake is returned for a stake that is zero or negative.
	ErrInvalidStake = errors.New("stake must be positive")
	// ErrInvalidBet is returned for an unknown bet kind or selector.
	ErrInvalidBet = errors.New("invalid bet")
	// ErrBettingClosed is returned when the round is not taking bets.
	ErrBettingClosed = errors.New("betting is closed")
	// ErrBetsPending is returned by Spin while a seated participant has not bet.
	ErrBetsPending = errors.New("every participant must place a bet before the spin")
	// ErrNotSeated is returned when the participant has no seat at the table.
	ErrNotSeated = errors.New("participant is not seated")
	// ErrRoundOpen is returned by NewRound while betting is already open.
	ErrRoundOpen = errors.New("round is already open")
	// ErrSpinInProgress is returned while a drawn outcome is still being settled.
	ErrSpinInProgress = errors.New("spin in progress")
)
