package roulette

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/mcdev12/rendezvous/go/internal/models"
)

// redNumbers holds the 18 red pockets; every other non-zero pocket is black.
var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true, 14: true, 16: true, 17: true,
	19: true, 21: true, 23: true, 25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// IsRed reports whether pocket n is red. Zero is neither red nor black.
func IsRed(n int) bool {
	return redNumbers[n]
}

// Multiplier returns the payout multiple for a winning bet of kind.
func Multiplier(kind models.BetKind) int {
	switch kind {
	case models.BetSingleNumber:
		return 35
	case models.BetColor, models.BetParity:
		return 2
	case models.BetDozen:
		return 3
	default:
		return 0
	}
}

// ValidateBet checks the kind, selector and stake of b.
func ValidateBet(b models.Bet) error {
	if b.Stake <= 0 {
		return ErrInvalidStake
	}
	switch b.Kind {
	case models.BetSingleNumber:
		n, err := strconv.Atoi(b.Selector)
		if err != nil || n < 0 || n >= WheelSize {
			return fmt.Errorf("%w: number %q", ErrInvalidBet, b.Selector)
		}
	case models.BetColor:
		if b.Selector != models.SelectorRed && b.Selector != models.SelectorBlack {
			return fmt.Errorf("%w: color %q", ErrInvalidBet, b.Selector)
		}
	case models.BetParity:
		if b.Selector != models.SelectorEven && b.Selector != models.SelectorOdd {
			return fmt.Errorf("%w: parity %q", ErrInvalidBet, b.Selector)
		}
	case models.BetDozen:
		if _, ok := dozenStart(b.Selector); !ok {
			return fmt.Errorf("%w: dozen %q", ErrInvalidBet, b.Selector)
		}
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidBet, b.Kind)
	}
	return nil
}

// Wins reports whether b wins on outcome. Zero only wins a bet on zero.
func Wins(b models.Bet, outcome int) bool {
	switch b.Kind {
	case models.BetSingleNumber:
		n, err := strconv.Atoi(b.Selector)
		return err == nil && n == outcome
	}
	if outcome <= 0 || outcome >= WheelSize {
		return false
	}
	switch b.Kind {
	case models.BetColor:
		switch b.Selector {
		case models.SelectorRed:
			return IsRed(outcome)
		case models.SelectorBlack:
			return !IsRed(outcome)
		}
	case models.BetParity:
		switch b.Selector {
		case models.SelectorEven:
			return outcome%2 == 0
		case models.SelectorOdd:
			return outcome%2 == 1
		}
	case models.BetDozen:
		start, ok := dozenStart(b.Selector)
		return ok && outcome >= start && outcome < start+12
	}
	return false
}

// Payout returns the chips credited for b on outcome: stake times the
// multiplier when it wins, 0 otherwise.
func Payout(b models.Bet, outcome int) int {
	if !Wins(b, outcome) {
		return 0
	}
	return b.Stake * Multiplier(b.Kind)
}

// Settle credits every seat's winnings for outcome. Bets stay on the seat
// so the settled round still shows them; NewRound clears them.
// It returns the settled seats and the per-participant winnings ledger.
func Settle(seats map[string]models.Seat, outcome int) (map[string]models.Seat, map[string]int) {
	settled := make(map[string]models.Seat, len(seats))
	ledger := make(map[string]int, len(seats))
	for name, seat := range seats {
		won := 0
		for _, b := range seat.Bets {
			won += Payout(b, outcome)
		}
		ledger[name] = won
		settled[name] = models.Seat{Chips: seat.Chips + won, Bets: cloneBets(seat.Bets)}
	}
	return settled, ledger
}

func cloneBets(bets []models.Bet) []models.Bet {
	if bets == nil {
		return []models.Bet{}
	}
	return slices.Clone(bets)
}

func dozenStart(selector string) (int, bool) {
	switch selector {
	case models.SelectorDozen1:
		return 1, true
	case models.SelectorDozen2:
		return 13, true
	case models.SelectorDozen3:
		return 25, true
	default:
		return 0, false
	}
}
