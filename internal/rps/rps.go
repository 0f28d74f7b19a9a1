package rps

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// Move is one of the three hand shapes.
type Move string

const (
	Rock     Move = "rock"
	Paper    Move = "paper"
	Scissors Move = "scissors"
)

var ErrInvalidMove = errors.New("invalid move")

// Moves lists the valid moves in a fixed order.
var Moves = []Move{Rock, Paper, Scissors}

// beats maps a move to the move it defeats.
var beats = map[Move]Move{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// ParseMove accepts the move name in any case, surrounded by whitespace.
func ParseMove(s string) (Move, error) {
	m := Move(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", ErrInvalidMove
	}
	return m, nil
}

func (m Move) Valid() bool {
	_, ok := beats[m]
	return ok
}

func (m Move) String() string { return string(m) }

// Outcome is the result of a round relative to the slot order of the caller.
type Outcome string

const (
	OutcomeA   Outcome = "A"
	OutcomeB   Outcome = "B"
	OutcomeTie Outcome = "tie"
)

// Flip swaps the A/B perspective. Ties are unchanged.
func (o Outcome) Flip() Outcome {
	switch o {
	case OutcomeA:
		return OutcomeB
	case OutcomeB:
		return OutcomeA
	default:
		return o
	}
}

// Resolve decides a round. Both moves must be valid; callers validate first.
func Resolve(a, b Move) Outcome {
	if a == b {
		return OutcomeTie
	}
	if beats[a] == b {
		return OutcomeA
	}
	return OutcomeB
}

// RandomMove picks a move for the computer opponent.
func RandomMove() Move {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(Moves))))
	if err != nil {
		return Rock
	}
	return Moves[n.Int64()]
}
