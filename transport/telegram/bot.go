package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rocketscienceinc/xo-arena-backend/internal/apperror"
	"github.com/rocketscienceinc/xo-arena-backend/internal/config"
	"github.com/rocketscienceinc/xo-arena-backend/internal/entity"
)

const handlerTimeout = 30 * time.Second

type matchmaker interface {
	Join(ctx context.Context, playerID string, staked bool) error
}

type gameplay interface {
	MakeTurn(ctx context.Context, playerID string, cell int) error
	Surrender(ctx context.Context, playerID string) error
}

type profiles interface {
	GetOrCreate(ctx context.Context, id string) (*entity.Profile, error)
}

// Bot runs the long-polling update loop and routes commands and board taps
// into the game services.
type Bot struct {
	api     *tgbotapi.BotAPI
	logger  *slog.Logger
	conf    config.Telegram
	queue   matchmaker
	matches gameplay
	ledger  profiles

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewBot(logger *slog.Logger, conf config.Telegram, ledger profiles) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(conf.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	api.Debug = conf.Debug

	log := logger.With("component", "telegram")
	log.Info("bot authorized", "username", api.Self.UserName)

	return &Bot{
		api:    api,
		logger: log,
		conf:   conf,
		ledger: ledger,
		stopCh: make(chan struct{}),
	}, nil
}

// API exposes the underlying client so a Messenger can share the session.
func (that *Bot) API() *tgbotapi.BotAPI {
	return that.api
}

// Attach binds the game services. The services need a Messenger built on
// this bot's client, so they are wired after construction and before Start.
func (that *Bot) Attach(queue matchmaker, matches gameplay) {
	that.queue = queue
	that.matches = matches
}

// Start blocks on the update loop until Stop is called or the channel closes.
func (that *Bot) Start() {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = that.conf.PollTimeout

	updates := that.api.GetUpdatesChan(updateConfig)
	that.logger.Info("starting update loop")

	for {
		select {
		case <-that.stopCh:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			that.dispatch(update)
		}
	}
}

// Stop halts polling and waits briefly for in-flight handlers.
func (that *Bot) Stop() {
	close(that.stopCh)
	that.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		that.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		that.logger.Info("bot stopped")
	case <-time.After(10 * time.Second):
		that.logger.Warn("bot shutdown timed out, some handlers may not have completed")
	}
}

func (that *Bot) dispatch(update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		that.wg.Add(1)
		go func(query *tgbotapi.CallbackQuery) {
			defer that.wg.Done()
			that.handleCallback(query)
		}(update.CallbackQuery)

	case update.Message != nil && update.Message.IsCommand():
		that.wg.Add(1)
		go func(msg *tgbotapi.Message) {
			defer that.wg.Done()
			that.handleCommand(msg)
		}(update.Message)
	}
}

func (that *Bot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	playerID := strconv.FormatInt(msg.Chat.ID, 10)

	var response string

	switch msg.Command() {
	case "start":
		response = welcomeText()
	case "help":
		response = helpText()
	case "battle":
		response = that.handleJoin(ctx, playerID, false)
	case "starbattle":
		response = that.handleJoin(ctx, playerID, true)
	case "surrender":
		response = that.handleSurrenderCommand(ctx, playerID)
	case "profile":
		response = that.handleProfile(ctx, playerID)
	default:
		response = "Unknown command. Use /help."
	}

	if response == "" {
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	if _, err := that.api.Send(reply); err != nil {
		that.logger.Error("failed to send reply", "chatID", msg.Chat.ID, "error", err)
	}
}

// handleJoin enqueues the player. Success is silent here; the queue service
// sends its own searching notification.
func (that *Bot) handleJoin(ctx context.Context, playerID string, staked bool) string {
	err := that.queue.Join(ctx, playerID, staked)
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, apperror.ErrAlreadyQueued):
		return "⏳ You are already searching for an opponent."
	case errors.Is(err, apperror.ErrAlreadyInMatch):
		return "🎮 You are already in a match. Finish it first."
	case errors.Is(err, apperror.ErrInsufficientStars):
		return "⭐ Not enough stars. A star match needs 1 star."
	}

	that.logger.Error("failed to join queue", "playerID", playerID, "error", err)

	return "⚠️ Something went wrong. Try again later."
}

func (that *Bot) handleSurrenderCommand(ctx context.Context, playerID string) string {
	err := that.matches.Surrender(ctx, playerID)
	if err == nil {
		return ""
	}

	if errors.Is(err, apperror.ErrMatchNotFound) || errors.Is(err, apperror.ErrMatchFinished) {
		return "🎮 You have no active match."
	}

	that.logger.Error("failed to surrender", "playerID", playerID, "error", err)

	return "⚠️ Something went wrong. Try again later."
}

func (that *Bot) handleProfile(ctx context.Context, playerID string) string {
	profile, err := that.ledger.GetOrCreate(ctx, playerID)
	if err != nil {
		that.logger.Error("failed to load profile", "playerID", playerID, "error", err)
		return "⚠️ Could not load your profile. Try again later."
	}

	return fmt.Sprintf(`👤 Your Profile

🏆 Trophies: %d
⭐ Stars: %.1f

🎮 Games: %d
✅ Wins: %d
❌ Losses: %d
🤝 Draws: %d
📈 Win rate: %.0f%%`,
		profile.Trophies,
		profile.Stars,
		profile.GamesPlayed,
		profile.Wins,
		profile.Losses,
		profile.Draws,
		profile.WinRate(),
	)
}

func (that *Bot) handleCallback(query *tgbotapi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	playerID := strconv.FormatInt(query.From.ID, 10)
	data := query.Data

	var toast string

	switch {
	case data == callbackNoop:
	case data == callbackSurrender:
		toast = that.callbackSurrender(ctx, playerID)
	case strings.HasPrefix(data, callbackMovePrefix):
		toast = that.callbackMove(ctx, playerID, strings.TrimPrefix(data, callbackMovePrefix))
	}

	answer := tgbotapi.NewCallback(query.ID, toast)
	if _, err := that.api.Request(answer); err != nil {
		that.logger.Warn("failed to answer callback", "playerID", playerID, "error", err)
	}
}

func (that *Bot) callbackMove(ctx context.Context, playerID, rawCell string) string {
	cell, err := strconv.Atoi(rawCell)
	if err != nil {
		return "Invalid move."
	}

	err = that.matches.MakeTurn(ctx, playerID, cell)
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, apperror.ErrNotYourTurn):
		return "Not your turn."
	case errors.Is(err, apperror.ErrCellOccupied):
		return "That cell is taken."
	case errors.Is(err, apperror.ErrInvalidCell):
		return "Invalid move."
	case errors.Is(err, apperror.ErrMatchNotFound), errors.Is(err, apperror.ErrMatchFinished):
		return "This match is over."
	}

	that.logger.Error("failed to make turn", "playerID", playerID, "error", err)

	return "Something went wrong."
}

func (that *Bot) callbackSurrender(ctx context.Context, playerID string) string {
	err := that.matches.Surrender(ctx, playerID)
	if err == nil {
		return ""
	}

	if errors.Is(err, apperror.ErrMatchNotFound) || errors.Is(err, apperror.ErrMatchFinished) {
		return "This match is over."
	}

	that.logger.Error("failed to surrender", "playerID", playerID, "error", err)

	return "Something went wrong."
}

func welcomeText() string {
	return `👋 Welcome to XO Arena!

Play best-of-3 tic-tac-toe against real opponents.

🏆 /battle — free match for trophies
⭐ /starbattle — stake 1 star, winner takes +0.5
👤 /profile — your stats

Use /help for the full list of commands.`
}

func helpText() string {
	return `🎮 Commands

/battle — find a trophy match
/starbattle — find a star match (1 star stake)
/surrender — give up the current match
/profile — trophies, stars and stats
/help — this message

During a match, tap an empty cell on the board to move.`
}
