package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/xo-arena-backend/internal/apperror"
	"github.com/rocketscienceinc/xo-arena-backend/internal/config"
	"github.com/rocketscienceinc/xo-arena-backend/internal/entity"
	"github.com/rocketscienceinc/xo-arena-backend/internal/metrics"
	"github.com/rocketscienceinc/xo-arena-backend/internal/pkg"
	"github.com/rocketscienceinc/xo-arena-backend/internal/scheduler"
	"github.com/rocketscienceinc/xo-arena-backend/internal/tictactoe"
)

type settler interface {
	Settle(ctx context.Context, match *entity.Match, outcome entity.Outcome)
}

// activeMatch pairs a live match with its deadlines and the mutex that
// serializes every mutation path: moves, surrender and both timer expiries.
//
// The epochs count how many times each deadline slot has been armed. A fired
// callback that lost the race against Arm's Stop carries an older epoch and
// must treat itself as stale.
type activeMatch struct {
	mu sync.Mutex

	match        *entity.Match
	turnDeadline *scheduler.Deadline
	turnEpoch    uint64
	idleDeadline *scheduler.Deadline
	idleEpoch    uint64
}

type MatchService struct {
	logger     *slog.Logger
	messenger  Messenger
	settlement settler
	metrics    *metrics.Metrics
	conf       config.Game

	mu       sync.Mutex
	byPlayer map[string]*activeMatch
}

func NewMatchService(logger *slog.Logger, messenger Messenger, settlement settler, m *metrics.Metrics, conf config.Game) *MatchService {
	return &MatchService{
		logger:     logger.With("component", "match"),
		messenger:  messenger,
		settlement: settlement,
		metrics:    m,
		conf:       conf,

		byPlayer: make(map[string]*activeMatch),
	}
}

// HasMatch reports whether the player is in a live match.
func (that *MatchService) HasMatch(playerID string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	_, ok := that.byPlayer[playerID]

	return ok
}

func (that *MatchService) lookup(playerID string) *activeMatch {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.byPlayer[playerID]
}

// Create pairs two players into a new match, announces it and opens round 1.
// The first player opens the match and plays X.
func (that *MatchService) Create(ctx context.Context, playerOne, playerTwo string, staked bool) (*entity.Match, error) {
	matchID, err := pkg.GenerateMatchID()
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	match := entity.NewMatch(matchID, playerOne, playerTwo, staked, that.conf.Rounds)

	active := &activeMatch{
		match:        match,
		turnDeadline: scheduler.NewDeadline(),
		idleDeadline: scheduler.NewDeadline(),
	}

	that.mu.Lock()
	if _, ok := that.byPlayer[playerOne]; ok {
		that.mu.Unlock()
		return nil, fmt.Errorf("%w: player %s", apperror.ErrAlreadyInMatch, playerOne)
	}
	if _, ok := that.byPlayer[playerTwo]; ok {
		that.mu.Unlock()
		return nil, fmt.Errorf("%w: player %s", apperror.ErrAlreadyInMatch, playerTwo)
	}
	that.byPlayer[playerOne] = active
	that.byPlayer[playerTwo] = active
	that.mu.Unlock()

	for _, player := range match.Players {
		that.send(ctx, player, introText(match, player))
	}

	active.mu.Lock()
	that.startRound(ctx, active)
	active.mu.Unlock()

	that.logger.Info("match created", "matchID", match.ID, "staked", staked)

	return match, nil
}

// MakeTurn applies one move for the player. Rejections leave the board and
// the messages untouched.
func (that *MatchService) MakeTurn(ctx context.Context, playerID string, cell int) error {
	active := that.lookup(playerID)
	if active == nil {
		return apperror.ErrMatchNotFound
	}

	active.mu.Lock()
	defer active.mu.Unlock()

	match := active.match
	if match.IsFinished() {
		return apperror.ErrMatchFinished
	}

	if match.Turn != playerID {
		return apperror.ErrNotYourTurn
	}

	board, err := match.Board.Apply(cell, match.Marks[playerID])
	if err != nil {
		return fmt.Errorf("failed to make turn: %w", err)
	}

	match.Board = board
	that.metrics.MovesTotal.Inc()

	// the next mover gets a fresh turn window
	that.armTurnDeadline(active)

	result := match.Board.Evaluate()
	if result.Verdict == tictactoe.VerdictNone {
		match.Turn = match.Opponent(playerID)
		that.updateBoards(ctx, match)

		return nil
	}

	that.concludeRound(ctx, active, result)

	return nil
}

// Surrender ends the whole match with the opponent as winner, regardless of
// the round or score.
func (that *MatchService) Surrender(ctx context.Context, playerID string) error {
	active := that.lookup(playerID)
	if active == nil {
		return apperror.ErrMatchNotFound
	}

	active.mu.Lock()
	defer active.mu.Unlock()

	match := active.match
	if match.IsFinished() {
		return apperror.ErrMatchFinished
	}

	opponent := match.Opponent(playerID)

	that.send(ctx, playerID, "🏳️ You surrendered.")
	that.send(ctx, opponent, "🏳️ Opponent surrendered. You won!")

	that.finish(ctx, active, entity.WinOutcome(opponent, playerID))

	return nil
}

// expireTurn fires when the current mover's window runs out. The timeout is
// scored as a loss, same termination path as a surrender. An epoch mismatch
// means the slot was re-armed while this fire was in flight: the window it
// was measuring no longer exists, so it must not touch the match.
func (that *MatchService) expireTurn(active *activeMatch, epoch uint64) {
	ctx := context.Background()

	active.mu.Lock()
	defer active.mu.Unlock()

	match := active.match
	if match.IsFinished() || epoch != active.turnEpoch {
		return
	}

	loser := match.Turn
	winner := match.Opponent(loser)

	that.send(ctx, loser, "⚠️ You ran out of time. You surrendered.")
	that.send(ctx, winner, "⚠️ Opponent ran out of time. You won!")

	that.finish(ctx, active, entity.WinOutcome(winner, loser))
}

// expireIdle fires when a whole match sits inactive. Nobody is at fault, so
// nothing is scored; settlement refunds both stakes on a staked match. A
// stale epoch means a new round re-armed the slot after this fire started.
func (that *MatchService) expireIdle(active *activeMatch, epoch uint64) {
	ctx := context.Background()

	active.mu.Lock()
	defer active.mu.Unlock()

	match := active.match
	if match.IsFinished() || epoch != active.idleEpoch {
		return
	}

	for _, player := range match.Players {
		that.send(ctx, player, "⚠️ Match ended due to inactivity.")
	}

	that.finish(ctx, active, entity.AbandonedOutcome())
}

// startRound sends a fresh board message to both players and arms the idle
// and turn deadlines. Caller holds the match lock.
func (that *MatchService) startRound(ctx context.Context, active *activeMatch) {
	match := active.match

	for _, player := range match.Players {
		messageID, err := that.messenger.SendBoard(ctx, player, roundText(match, player), match.Board, false)
		if err != nil {
			that.logger.Error("failed to send round start", "matchID", match.ID, "playerID", player, "error", err)
			continue
		}
		match.MessageIDs[player] = messageID
	}

	active.idleEpoch++
	idleEpoch := active.idleEpoch
	active.idleDeadline.Arm(that.conf.IdleTimeout, func() { that.expireIdle(active, idleEpoch) })

	that.armTurnDeadline(active)
}

func (that *MatchService) armTurnDeadline(active *activeMatch) {
	active.turnEpoch++
	epoch := active.turnEpoch
	active.turnDeadline.Arm(that.conf.TurnTimeout, func() { that.expireTurn(active, epoch) })
}

// concludeRound records the round verdict, shows it to both players and
// either finishes the match or opens the next round. Caller holds the lock.
func (that *MatchService) concludeRound(ctx context.Context, active *activeMatch, result tictactoe.Result) {
	match := active.match

	var roundWinner string
	if result.Verdict == tictactoe.VerdictWin {
		roundWinner = match.PlayerByMark(result.Winner)
		match.RecordRoundWin(roundWinner)
	}

	for _, player := range match.Players {
		that.editBoard(ctx, match, player, roundResultText(match, player, result, roundWinner), true)
	}

	winner, draw, decided := match.Decide()
	if !decided {
		match.StartNextRound()
		that.startRound(ctx, active)

		return
	}

	outcome := entity.DrawOutcome()
	if !draw {
		outcome = entity.WinOutcome(winner, match.Opponent(winner))
	}

	that.finish(ctx, active, outcome)
}

// finish is the single terminal transition. It marks the match finished,
// disarms both deadlines and removes the match from the registry before
// settlement runs, so a concurrent termination path becomes a no-op.
// Caller holds the match lock.
func (that *MatchService) finish(ctx context.Context, active *activeMatch, outcome entity.Outcome) {
	match := active.match
	match.Finish()

	active.turnDeadline.Stop()
	active.idleDeadline.Stop()

	that.mu.Lock()
	delete(that.byPlayer, match.Players[0])
	delete(that.byPlayer, match.Players[1])
	that.mu.Unlock()

	that.metrics.MatchesFinished.WithLabelValues(outcome.Kind).Inc()

	that.settlement.Settle(ctx, match, outcome)

	that.logger.Info("match finished", "matchID", match.ID, "outcome", outcome.Kind)
}

// updateBoards edits both players' board messages in place mid-round. A
// failed edit falls back to a fresh send so the player recovers a live board.
func (that *MatchService) updateBoards(ctx context.Context, match *entity.Match) {
	for _, player := range match.Players {
		that.editBoard(ctx, match, player, roundText(match, player), false)
	}
}

func (that *MatchService) editBoard(ctx context.Context, match *entity.Match, player, text string, disabled bool) {
	messageID, ok := match.MessageIDs[player]
	if ok {
		err := that.messenger.EditBoard(ctx, player, messageID, text, match.Board, disabled)
		if err == nil {
			return
		}

		that.logger.Warn("failed to edit board, sending a fresh one", "matchID", match.ID, "playerID", player, "error", err)
	}

	messageID, err := that.messenger.SendBoard(ctx, player, text, match.Board, disabled)
	if err != nil {
		that.logger.Error("failed to send board", "matchID", match.ID, "playerID", player, "error", err)
		return
	}

	match.MessageIDs[player] = messageID
}

func (that *MatchService) send(ctx context.Context, playerID, text string) {
	if err := that.messenger.Send(ctx, playerID, text); err != nil {
		that.logger.Warn("failed to send message", "playerID", playerID, "error", err)
	}
}
