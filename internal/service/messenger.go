package service

import (
	"context"

	"github.com/rocketscienceinc/xo-arena-backend/internal/tictactoe"
)

// Messenger delivers text and board controls to a player. SendBoard returns
// an opaque message handle that EditBoard can use to update the rendering in
// place. Delivery failures are never fatal to game state; callers log them
// and move on, falling back from a failed edit to a fresh send.
type Messenger interface {
	Send(ctx context.Context, playerID, text string) error
	SendBoard(ctx context.Context, playerID, text string, board tictactoe.Board, disabled bool) (int, error)
	EditBoard(ctx context.Context, playerID string, messageID int, text string, board tictactoe.Board, disabled bool) error
}
