package service

import (
	"context"
	"testing"

	"github.com/rocketscienceinc/xo-arena-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettledMatch(staked bool) *entity.Match {
	match := entity.NewMatch("m-test", "alice", "bob", staked, 3)
	match.RecordRoundWin("alice")
	match.StartNextRound()
	match.RecordRoundWin("alice")
	match.Finish()

	return match
}

func TestSettlementService_Settle(t *testing.T) {
	t.Run("Trophy win moves one trophy from loser to winner", func(t *testing.T) {
		// Given: both players hold trophies
		ar := newArena(t, testGameConfig())
		ar.ledger.grant("alice", entity.BalanceDelta{Trophies: 3})
		ar.ledger.grant("bob", entity.BalanceDelta{Trophies: 3})

		// When: alice's win settles
		match := newSettledMatch(false)
		ar.settlement.Settle(context.Background(), match, entity.WinOutcome("alice", "bob"))

		// Then: the trophy and the counters moved
		winner := ar.ledger.balance("alice")
		assert.Equal(t, 4, winner.Trophies)
		assert.Equal(t, 1, winner.Wins)
		assert.Equal(t, 1, winner.GamesPlayed)

		loser := ar.ledger.balance("bob")
		assert.Equal(t, 2, loser.Trophies)
		assert.Equal(t, 1, loser.Losses)
	})

	t.Run("Trophy loss floors at zero but still counts", func(t *testing.T) {
		// Given: bob has no trophies to lose
		ar := newArena(t, testGameConfig())

		// When: his loss settles
		match := newSettledMatch(false)
		ar.settlement.Settle(context.Background(), match, entity.WinOutcome("alice", "bob"))

		// Then: the balance floors while the loss is recorded
		loser := ar.ledger.balance("bob")
		assert.Equal(t, 0, loser.Trophies)
		assert.Equal(t, 1, loser.Losses)
		assert.Equal(t, 1, loser.GamesPlayed)
	})

	t.Run("Star win credits stake plus bonus to the winner only", func(t *testing.T) {
		// Given: both stakes already left the ledger at enqueue time
		ar := newArena(t, testGameConfig())

		// When: the staked win settles
		match := newSettledMatch(true)
		ar.settlement.Settle(context.Background(), match, entity.WinOutcome("alice", "bob"))

		// Then: the winner gets stake plus bonus, the loser gets nothing back
		assert.InDelta(t, 1.5, ar.ledger.balance("alice").Stars, 0.001)
		assert.InDelta(t, 0.0, ar.ledger.balance("bob").Stars, 0.001)
		assert.Equal(t, 1, ar.ledger.balance("bob").Losses)

		assert.True(t, ar.messenger.received("alice", "+0.5 stars"))
		assert.True(t, ar.messenger.received("bob", "-1 star"))
	})

	t.Run("Star draw refunds both stakes", func(t *testing.T) {
		ar := newArena(t, testGameConfig())

		match := newSettledMatch(true)
		ar.settlement.Settle(context.Background(), match, entity.DrawOutcome())

		for _, player := range []string{"alice", "bob"} {
			profile := ar.ledger.balance(player)
			assert.InDelta(t, 1.0, profile.Stars, 0.001, player)
			assert.Equal(t, 1, profile.Draws, player)
			assert.True(t, ar.messenger.received(player, "Draw refund"), player)
		}
	})

	t.Run("Abandonment refunds stakes without touching counters", func(t *testing.T) {
		ar := newArena(t, testGameConfig())

		match := newSettledMatch(true)
		ar.settlement.Settle(context.Background(), match, entity.AbandonedOutcome())

		for _, player := range []string{"alice", "bob"} {
			profile := ar.ledger.balance(player)
			assert.InDelta(t, 1.0, profile.Stars, 0.001, player)
			assert.Zero(t, profile.GamesPlayed, player)
			assert.Zero(t, profile.Wins, player)
			assert.Zero(t, profile.Losses, player)
			assert.Zero(t, profile.Draws, player)
		}
	})

	t.Run("Trophy abandonment changes nothing", func(t *testing.T) {
		ar := newArena(t, testGameConfig())

		match := newSettledMatch(false)
		ar.settlement.Settle(context.Background(), match, entity.AbandonedOutcome())

		for _, player := range []string{"alice", "bob"} {
			profile := ar.ledger.balance(player)
			assert.Zero(t, profile.Trophies, player)
			assert.Zero(t, profile.GamesPlayed, player)
		}
	})

	t.Run("Archives the result with the final score line", func(t *testing.T) {
		// Given: a finished staked match
		ar := newArena(t, testGameConfig())
		match := newSettledMatch(true)

		// When: it settles
		ar.settlement.Settle(context.Background(), match, entity.WinOutcome("alice", "bob"))

		// Then: the archive holds one fully populated record
		results := ar.archive.saved()
		require.Len(t, results, 1)

		result := results[0]
		assert.Equal(t, "m-test", result.ID)
		assert.Equal(t, "alice", result.PlayerX)
		assert.Equal(t, "bob", result.PlayerO)
		assert.Equal(t, entity.OutcomeWin, result.Outcome)
		assert.Equal(t, "alice", result.Winner)
		assert.True(t, result.Staked)
		assert.Equal(t, 2, result.RoundsPlayed)
		assert.False(t, result.FinishedAt.IsZero())
	})

	t.Run("Retries transient ledger failures", func(t *testing.T) {
		// Given: a ledger that fails twice before recovering
		ar := newArena(t, testGameConfig())
		ar.ledger.setFailFor(2)

		// When: a trophy win settles
		match := newSettledMatch(false)
		ar.settlement.Settle(context.Background(), match, entity.WinOutcome("alice", "bob"))

		// Then: the retries pushed the winner's delta through
		assert.Equal(t, 1, ar.ledger.balance("alice").Trophies)
	})

	t.Run("Gives up after the retry budget and still archives", func(t *testing.T) {
		// Given: a ledger that fails every attempt for the winner
		ar := newArena(t, testGameConfig())
		ar.ledger.setFailFor(settleRetries)

		// When: the win settles
		match := newSettledMatch(false)
		ar.settlement.Settle(context.Background(), match, entity.WinOutcome("alice", "bob"))

		// Then: the winner's write was dropped, the loser's went through and
		// the result is archived regardless
		assert.Zero(t, ar.ledger.balance("alice").Trophies)
		assert.Equal(t, 1, ar.ledger.balance("bob").Losses)
		assert.Len(t, ar.archive.saved(), 1)
	})
}
