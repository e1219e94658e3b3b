package tictactoe

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/xo-arena-backend/internal/apperror"
)

const (
	MarkX = "X"
	MarkO = "O"

	EmptyCell = ""

	BoardSize = 9
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is a 3x3 grid in row-major order. Cells hold MarkX, MarkO or EmptyCell.
type Board [BoardSize]string

const (
	VerdictNone = iota
	VerdictWin
	VerdictDraw
)

// Result of evaluating a board: a win carries the winning mark and combo.
type Result struct {
	Verdict int
	Winner  string
	Line    [3]int
}

// Apply places a mark and returns the resulting board, leaving the receiver untouched.
func (that Board) Apply(cell int, mark string) (Board, error) {
	if cell < 0 || cell >= len(that) {
		return that, fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if that[cell] != EmptyCell {
		return that, apperror.ErrCellOccupied
	}

	that[cell] = mark

	return that, nil
}

// Evaluate checks for a winning combo first, then for a filled board.
// A move that completes a line and fills the board is a win, not a draw.
func (that Board) Evaluate() Result {
	for _, combo := range WinCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return Result{Verdict: VerdictWin, Winner: a, Line: combo}
		}
	}

	for _, cell := range that {
		if cell == EmptyCell {
			return Result{Verdict: VerdictNone}
		}
	}

	return Result{Verdict: VerdictDraw}
}

// Text renders the board as three emoji rows.
func (that Board) Text() string {
	glyphs := map[string]string{
		EmptyCell: "▫️",
		MarkX:     "❌",
		MarkO:     "⭕",
	}

	var sb strings.Builder
	sb.WriteString("\n")
	for row := 0; row < len(that); row += 3 {
		sb.WriteString(glyphs[that[row]])
		sb.WriteString(glyphs[that[row+1]])
		sb.WriteString(glyphs[that[row+2]])
		sb.WriteString("\n")
	}

	return sb.String()
}
