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
	"github.com/rocketscienceinc/xo-arena-backend/internal/scheduler"
)

type matchStarter interface {
	Create(ctx context.Context, playerOne, playerTwo string, staked bool) (*entity.Match, error)
	HasMatch(playerID string) bool
}

type queueEntry struct {
	playerID string
	deadline *scheduler.Deadline
}

// QueueService runs the two matchmaking queues. One mutex covers both, which
// also serializes pairing against search expiry and enforces the invariant
// that a player sits in at most one queue and never in a queue and a match.
type QueueService struct {
	logger    *slog.Logger
	messenger Messenger
	ledger    ledger
	matches   matchStarter
	metrics   *metrics.Metrics
	conf      config.Game

	mu     sync.Mutex
	trophy []*queueEntry
	star   []*queueEntry

	// pending holds players popped for pairing whose match is still being
	// created, closing the window between dequeue and registry insertion.
	pending map[string]struct{}
}

func NewQueueService(logger *slog.Logger, messenger Messenger, ledger ledger, matches matchStarter, m *metrics.Metrics, conf config.Game) *QueueService {
	return &QueueService{
		logger:    logger.With("component", "queue"),
		messenger: messenger,
		ledger:    ledger,
		matches:   matches,
		metrics:   m,
		conf:      conf,
		pending:   make(map[string]struct{}),
	}
}

// Join puts the player into the trophy or star queue. A star entry debits the
// stake before the player is queued; the stake comes back if the search times
// out or the match is later abandoned. Pairing is FIFO, oldest entries first.
func (that *QueueService) Join(ctx context.Context, playerID string, staked bool) error {
	that.mu.Lock()

	if that.inQueueLocked(playerID) {
		that.mu.Unlock()
		return apperror.ErrAlreadyQueued
	}

	if _, ok := that.pending[playerID]; ok {
		that.mu.Unlock()
		return apperror.ErrAlreadyInMatch
	}

	if that.matches.HasMatch(playerID) {
		that.mu.Unlock()
		return apperror.ErrAlreadyInMatch
	}

	if staked {
		if err := that.debitStake(ctx, playerID); err != nil {
			that.mu.Unlock()
			return err
		}
	}

	entry := &queueEntry{
		playerID: playerID,
		deadline: scheduler.NewDeadline(),
	}

	queue := that.queueFor(staked)
	*queue = append(*queue, entry)
	that.metrics.QueueDepth.WithLabelValues(metrics.QueueLabel(staked)).Inc()

	entry.deadline.Arm(that.conf.SearchTimeout, func() { that.expireSearch(entry.playerID, staked) })

	var playerOne, playerTwo string
	paired := len(*queue) >= 2
	if paired {
		first, second := (*queue)[0], (*queue)[1]
		*queue = (*queue)[2:]

		// pairing and timer fire are mutually exclusive on the queue lock;
		// stopping here guarantees no refund races the new match
		first.deadline.Stop()
		second.deadline.Stop()

		that.metrics.QueueDepth.WithLabelValues(metrics.QueueLabel(staked)).Sub(2)

		playerOne, playerTwo = first.playerID, second.playerID
		that.pending[playerOne] = struct{}{}
		that.pending[playerTwo] = struct{}{}
	}

	that.mu.Unlock()

	searchText := "🔍 Searching for an opponent..."
	if staked {
		searchText = "🔍 Searching for an opponent... (1 star staked)"
	}
	that.send(ctx, playerID, searchText)

	if paired {
		that.startMatch(ctx, playerOne, playerTwo, staked)
	}

	return nil
}

func (that *QueueService) queueFor(staked bool) *[]*queueEntry {
	if staked {
		return &that.star
	}
	return &that.trophy
}

func (that *QueueService) inQueueLocked(playerID string) bool {
	for _, entry := range that.trophy {
		if entry.playerID == playerID {
			return true
		}
	}
	for _, entry := range that.star {
		if entry.playerID == playerID {
			return true
		}
	}
	return false
}

func (that *QueueService) debitStake(ctx context.Context, playerID string) error {
	profile, err := that.ledger.GetOrCreate(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}

	if profile.Stars < that.conf.Stake {
		return apperror.ErrInsufficientStars
	}

	if _, err = that.ledger.ApplyDelta(ctx, playerID, entity.BalanceDelta{Stars: -that.conf.Stake}); err != nil {
		return fmt.Errorf("failed to debit stake: %w", err)
	}

	return nil
}

func (that *QueueService) startMatch(ctx context.Context, playerOne, playerTwo string, staked bool) {
	_, err := that.matches.Create(ctx, playerOne, playerTwo, staked)

	// on success the registry already holds both players, so clearing the
	// reservations leaves no window where a player is in neither
	that.mu.Lock()
	delete(that.pending, playerOne)
	delete(that.pending, playerTwo)
	that.mu.Unlock()

	if err != nil {
		that.logger.Error("failed to start match", "playerOne", playerOne, "playerTwo", playerTwo, "error", err)

		for _, player := range []string{playerOne, playerTwo} {
			if staked {
				that.refundStake(ctx, player)
				that.send(ctx, player, "⚠️ Could not start the match. 1 star refunded, please search again.")
				continue
			}
			that.send(ctx, player, "⚠️ Could not start the match. Please search again.")
		}

		return
	}

	that.metrics.MatchesStarted.WithLabelValues(metrics.QueueLabel(staked)).Inc()
}

// expireSearch fires when a queued player's search window elapses. If the
// player was already paired the entry is gone and this is a no-op.
func (that *QueueService) expireSearch(playerID string, staked bool) {
	ctx := context.Background()

	that.mu.Lock()

	queue := that.queueFor(staked)
	found := false
	for i, entry := range *queue {
		if entry.playerID == playerID {
			*queue = append((*queue)[:i], (*queue)[i+1:]...)
			found = true
			break
		}
	}

	if !found {
		that.mu.Unlock()
		return
	}

	that.metrics.QueueDepth.WithLabelValues(metrics.QueueLabel(staked)).Dec()
	that.metrics.SearchTimeouts.WithLabelValues(metrics.QueueLabel(staked)).Inc()

	that.mu.Unlock()

	if staked {
		that.refundStake(ctx, playerID)
		that.send(ctx, playerID, "⏱️ Search timed out. 1 star refunded.")
		return
	}

	that.send(ctx, playerID, "⏱️ Search timed out. No opponent found.")
}

func (that *QueueService) refundStake(ctx context.Context, playerID string) {
	if _, err := that.ledger.ApplyDelta(ctx, playerID, entity.BalanceDelta{Stars: that.conf.Stake}); err != nil {
		that.logger.Error("failed to refund stake, manual reconciliation required", "playerID", playerID, "error", err)
	}
}

func (that *QueueService) send(ctx context.Context, playerID, text string) {
	if err := that.messenger.Send(ctx, playerID, text); err != nil {
		that.logger.Warn("failed to send message", "playerID", playerID, "error", err)
	}
}
