package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/xo-arena-backend/internal/config"
	"github.com/rocketscienceinc/xo-arena-backend/internal/entity"
	"github.com/rocketscienceinc/xo-arena-backend/internal/repository"
)

// ledger writes during settlement are retried before being escalated for
// manual reconciliation.
const settleRetries = 3

type ledger interface {
	GetOrCreate(ctx context.Context, id string) (*entity.Profile, error)
	ApplyDelta(ctx context.Context, id string, delta entity.BalanceDelta) (*entity.Profile, error)
}

type resultArchive interface {
	Save(ctx context.Context, result *repository.MatchResult) error
}

// SettlementService turns a terminal match outcome into ledger deltas, final
// board renders and an archived result. The match service guarantees it runs
// at most once per match.
type SettlementService struct {
	logger    *slog.Logger
	messenger Messenger
	ledger    ledger
	archive   resultArchive
	conf      config.Game
}

func NewSettlementService(logger *slog.Logger, messenger Messenger, ledger ledger, archive resultArchive, conf config.Game) *SettlementService {
	return &SettlementService{
		logger:    logger.With("component", "settlement"),
		messenger: messenger,
		ledger:    ledger,
		archive:   archive,
		conf:      conf,
	}
}

func (that *SettlementService) Settle(ctx context.Context, match *entity.Match, outcome entity.Outcome) {
	for _, player := range match.Players {
		that.renderFinal(ctx, match, player, outcome)
	}

	switch outcome.Kind {
	case entity.OutcomeWin:
		that.settleWin(ctx, match, outcome)
	case entity.OutcomeDraw:
		that.settleDraw(ctx, match)
	case entity.OutcomeAbandoned:
		that.settleAbandoned(ctx, match)
	}

	that.archiveResult(ctx, match, outcome)
}

func (that *SettlementService) settleWin(ctx context.Context, match *entity.Match, outcome entity.Outcome) {
	if match.Staked {
		// the loser's stake was debited at enqueue time; only the winner
		// gets a settlement credit: stake back plus the bonus
		that.applyDelta(ctx, match, outcome.Winner, entity.BalanceDelta{
			Stars: that.conf.Stake + that.conf.WinBonus, Wins: 1, Games: 1,
		})
		that.applyDelta(ctx, match, outcome.Loser, entity.BalanceDelta{Losses: 1, Games: 1})

		that.send(ctx, outcome.Winner, fmt.Sprintf("🎉 You won the match!\n⭐ +%.1f stars!", that.conf.WinBonus))
		that.send(ctx, outcome.Loser, fmt.Sprintf("😢 You lost the match.\n⭐ -%.0f star.", that.conf.Stake))

		return
	}

	that.applyDelta(ctx, match, outcome.Winner, entity.BalanceDelta{Trophies: 1, Wins: 1, Games: 1})
	that.applyDelta(ctx, match, outcome.Loser, entity.BalanceDelta{Trophies: -1, Losses: 1, Games: 1})

	that.send(ctx, outcome.Winner, "🎉 You won the match!\n🏆 +1 trophy!")
	that.send(ctx, outcome.Loser, "😢 You lost the match.\n🏆 -1 trophy.")
}

func (that *SettlementService) settleDraw(ctx context.Context, match *entity.Match) {
	delta := entity.BalanceDelta{Draws: 1, Games: 1}
	if match.Staked {
		delta.Stars = that.conf.Stake
	}

	for _, player := range match.Players {
		that.applyDelta(ctx, match, player, delta)
		that.send(ctx, player, "🤝 The match was a draw!")
		if match.Staked {
			that.send(ctx, player, "💸 Draw refund: 1 star returned.")
		}
	}
}

// settleAbandoned records no win, loss or draw; a no-fault abandonment only
// returns the stakes.
func (that *SettlementService) settleAbandoned(ctx context.Context, match *entity.Match) {
	if !match.Staked {
		return
	}

	for _, player := range match.Players {
		that.applyDelta(ctx, match, player, entity.BalanceDelta{Stars: that.conf.Stake})
		that.send(ctx, player, "💸 Inactivity refund: 1 star returned.")
	}
}

// applyDelta retries the ledger write a few times. A write that still fails
// leaves the match outcome unpaid, so it is logged for manual reconciliation.
func (that *SettlementService) applyDelta(ctx context.Context, match *entity.Match, playerID string, delta entity.BalanceDelta) {
	var err error

	for attempt := 1; attempt <= settleRetries; attempt++ {
		if _, err = that.ledger.ApplyDelta(ctx, playerID, delta); err == nil {
			return
		}
	}

	that.logger.Error("settlement ledger write failed, manual reconciliation required",
		"matchID", match.ID, "playerID", playerID, "delta", fmt.Sprintf("%+v", delta), "error", err)
}

func (that *SettlementService) renderFinal(ctx context.Context, match *entity.Match, player string, outcome entity.Outcome) {
	text := finalText(match, player, outcome)

	if messageID, ok := match.MessageIDs[player]; ok {
		if err := that.messenger.EditBoard(ctx, player, messageID, text, match.Board, true); err == nil {
			return
		}
	}

	if _, err := that.messenger.SendBoard(ctx, player, text, match.Board, true); err != nil {
		that.logger.Warn("failed to render final board", "matchID", match.ID, "playerID", player, "error", err)
	}
}

func (that *SettlementService) archiveResult(ctx context.Context, match *entity.Match, outcome entity.Outcome) {
	result := &repository.MatchResult{
		ID:           match.ID,
		PlayerX:      match.Players[0],
		PlayerO:      match.Players[1],
		Outcome:      outcome.Kind,
		Winner:       outcome.Winner,
		Staked:       match.Staked,
		RoundsPlayed: match.Round,
		FinishedAt:   time.Now(),
	}

	if err := that.archive.Save(ctx, result); err != nil {
		that.logger.Error("failed to archive match result", "matchID", match.ID, "error", err)
	}
}

func (that *SettlementService) send(ctx context.Context, playerID, text string) {
	if err := that.messenger.Send(ctx, playerID, text); err != nil {
		that.logger.Warn("failed to send message", "playerID", playerID, "error", err)
	}
}
