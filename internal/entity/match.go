package entity

import (
	"github.com/rocketscienceinc/xo-arena-backend/internal/tictactoe"
)

const (
	StatusOngoing  = "ongoing"
	StatusFinished = "finished"
)

// Match is one best-of-N contest between two paired players. Live matches are
// held in memory only; the match service serializes every mutation.
type Match struct {
	ID         string
	Players    [2]string
	Marks      map[string]string
	Board      tictactoe.Board
	Turn       string
	Round      int
	Rounds     int
	RoundWins  map[string]int
	Staked     bool
	MessageIDs map[string]int
	Status     string
}

// NewMatch pairs two players. The first player in creation order opens round 1
// and plays X for the whole match.
func NewMatch(id, playerOne, playerTwo string, staked bool, rounds int) *Match {
	return &Match{
		ID:      id,
		Players: [2]string{playerOne, playerTwo},
		Marks: map[string]string{
			playerOne: tictactoe.MarkX,
			playerTwo: tictactoe.MarkO,
		},
		Board:      tictactoe.Board{},
		Turn:       playerOne,
		Round:      1,
		Rounds:     rounds,
		RoundWins:  map[string]int{playerOne: 0, playerTwo: 0},
		Staked:     staked,
		MessageIDs: make(map[string]int),
		Status:     StatusOngoing,
	}
}

func (that *Match) Opponent(playerID string) string {
	if that.Players[0] == playerID {
		return that.Players[1]
	}
	return that.Players[0]
}

func (that *Match) PlayerByMark(mark string) string {
	for _, player := range that.Players {
		if that.Marks[player] == mark {
			return player
		}
	}
	return ""
}

// NeededWins is the round majority that decides the match.
func (that *Match) NeededWins() int {
	return (that.Rounds + 1) / 2
}

func (that *Match) RecordRoundWin(playerID string) {
	that.RoundWins[playerID]++
}

// Decide reports whether the match is over after the round that just
// concluded. The match ends on a majority of round wins or when the format is
// exhausted; an exhausted format with equal scores is a draw.
func (that *Match) Decide() (winner string, draw, decided bool) {
	first, second := that.Players[0], that.Players[1]
	needed := that.NeededWins()

	if that.RoundWins[first] < needed && that.RoundWins[second] < needed && that.Round < that.Rounds {
		return "", false, false
	}

	switch {
	case that.RoundWins[first] > that.RoundWins[second]:
		return first, false, true
	case that.RoundWins[second] > that.RoundWins[first]:
		return second, false, true
	default:
		return "", true, true
	}
}

// StartNextRound resets the board and hands the opening move to the player
// picked by round parity, regardless of who won the previous round.
func (that *Match) StartNextRound() {
	that.Round++
	that.Board = tictactoe.Board{}
	that.Turn = that.Players[(that.Round-1)%2]
}

func (that *Match) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Match) Finish() {
	that.Status = StatusFinished
}
