package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rocketscienceinc/xo-arena-backend/internal/tictactoe"
)

const (
	callbackMovePrefix = "move:"
	callbackSurrender  = "surrender"
	callbackNoop       = "noop"
)

var cellLabels = map[string]string{
	tictactoe.EmptyCell: "▫️",
	tictactoe.MarkX:     "❌",
	tictactoe.MarkO:     "⭕",
}

// boardKeyboard renders the grid as a 3x3 inline keyboard. Empty cells carry
// a move callback; occupied cells and every cell of a disabled board are
// no-ops, so a stale tap never reaches the game.
func boardKeyboard(board tictactoe.Board, disabled bool) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 4)

	for row := 0; row < 3; row++ {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, 3)

		for col := 0; col < 3; col++ {
			cell := row*3 + col

			data := callbackNoop
			if !disabled && board[cell] == tictactoe.EmptyCell {
				data = fmt.Sprintf("%s%d", callbackMovePrefix, cell)
			}

			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(cellLabels[board[cell]], data))
		}

		rows = append(rows, buttons)
	}

	if !disabled {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🏳️ Surrender", callbackSurrender),
		})
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
