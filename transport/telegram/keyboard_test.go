package telegram

import (
	"testing"

	"github.com/rocketscienceinc/xo-arena-backend/internal/tictactoe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardKeyboard(t *testing.T) {
	t.Run("Empty cells carry move callbacks", func(t *testing.T) {
		var board tictactoe.Board
		board[4] = tictactoe.MarkX

		markup := boardKeyboard(board, false)

		// 3 board rows plus the surrender row
		require.Len(t, markup.InlineKeyboard, 4)

		topLeft := markup.InlineKeyboard[0][0]
		assert.Equal(t, "▫️", topLeft.Text)
		assert.Equal(t, "move:0", *topLeft.CallbackData)

		center := markup.InlineKeyboard[1][1]
		assert.Equal(t, "❌", center.Text)
		assert.Equal(t, callbackNoop, *center.CallbackData)

		surrender := markup.InlineKeyboard[3][0]
		assert.Equal(t, callbackSurrender, *surrender.CallbackData)
	})

	t.Run("Disabled board is all no-ops without a surrender row", func(t *testing.T) {
		var board tictactoe.Board
		board[0] = tictactoe.MarkO

		markup := boardKeyboard(board, true)

		require.Len(t, markup.InlineKeyboard, 3)
		for _, row := range markup.InlineKeyboard {
			for _, button := range row {
				assert.Equal(t, callbackNoop, *button.CallbackData)
			}
		}
	})
}
