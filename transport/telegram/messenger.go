package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rocketscienceinc/xo-arena-backend/internal/tictactoe"
)

// Messenger delivers game messages over the Telegram Bot API. Player IDs are
// decimal chat IDs, so a private chat maps one to one onto a player.
type Messenger struct {
	api *tgbotapi.BotAPI
}

func NewMessenger(api *tgbotapi.BotAPI) *Messenger {
	return &Messenger{api: api}
}

func (that *Messenger) Send(_ context.Context, playerID, text string) error {
	chatID, err := parseChatID(playerID)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err = that.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func (that *Messenger) SendBoard(_ context.Context, playerID, text string, board tictactoe.Board, disabled bool) (int, error) {
	chatID, err := parseChatID(playerID)
	if err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = boardKeyboard(board, disabled)

	sent, err := that.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send board: %w", err)
	}

	return sent.MessageID, nil
}

func (that *Messenger) EditBoard(_ context.Context, playerID string, messageID int, text string, board tictactoe.Board, disabled bool) error {
	chatID, err := parseChatID(playerID)
	if err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, boardKeyboard(board, disabled))
	if _, err = that.api.Send(edit); err != nil {
		return fmt.Errorf("failed to edit board: %w", err)
	}

	return nil
}

func parseChatID(playerID string) (int64, error) {
	chatID, err := strconv.ParseInt(playerID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid player id %q: %w", playerID, err)
	}

	return chatID, nil
}
