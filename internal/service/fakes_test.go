package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rocketscienceinc/xo-arena-backend/internal/config"
	"github.com/rocketscienceinc/xo-arena-backend/internal/entity"
	"github.com/rocketscienceinc/xo-arena-backend/internal/metrics"
	"github.com/rocketscienceinc/xo-arena-backend/internal/repository"
	"github.com/rocketscienceinc/xo-arena-backend/internal/tictactoe"
)

var errFakeDelivery = errors.New("delivery failed")

// fakeMessenger records every outbound message per player.
type fakeMessenger struct {
	mu       sync.Mutex
	nextID   int
	sent     map[string][]string
	edits    map[string]int
	failEdit bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		sent:  make(map[string][]string),
		edits: make(map[string]int),
	}
}

func (that *fakeMessenger) Send(_ context.Context, playerID, text string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sent[playerID] = append(that.sent[playerID], text)

	return nil
}

func (that *fakeMessenger) SendBoard(_ context.Context, playerID, text string, _ tictactoe.Board, _ bool) (int, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.nextID++
	that.sent[playerID] = append(that.sent[playerID], text)

	return that.nextID, nil
}

func (that *fakeMessenger) EditBoard(_ context.Context, playerID string, _ int, text string, _ tictactoe.Board, _ bool) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.failEdit {
		return errFakeDelivery
	}

	that.edits[playerID]++
	that.sent[playerID] = append(that.sent[playerID], text)

	return nil
}

func (that *fakeMessenger) received(playerID, fragment string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, text := range that.sent[playerID] {
		if strings.Contains(text, fragment) {
			return true
		}
	}

	return false
}

func (that *fakeMessenger) editCount(playerID string) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.edits[playerID]
}

func (that *fakeMessenger) setFailEdit(fail bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.failEdit = fail
}

// memLedger is an in-memory stand-in for the redis profile ledger.
type memLedger struct {
	mu       sync.Mutex
	profiles map[string]*entity.Profile
	failFor  int
}

func newMemLedger() *memLedger {
	return &memLedger{
		profiles: make(map[string]*entity.Profile),
	}
}

func (that *memLedger) GetOrCreate(_ context.Context, id string) (*entity.Profile, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.getOrCreateLocked(id), nil
}

func (that *memLedger) ApplyDelta(_ context.Context, id string, delta entity.BalanceDelta) (*entity.Profile, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.failFor > 0 {
		that.failFor--
		return nil, errFakeDelivery
	}

	profile := that.getOrCreateLocked(id)
	profile.Apply(delta)

	copied := *profile

	return &copied, nil
}

func (that *memLedger) getOrCreateLocked(id string) *entity.Profile {
	profile, ok := that.profiles[id]
	if !ok {
		profile = &entity.Profile{ID: id}
		that.profiles[id] = profile
	}

	return profile
}

func (that *memLedger) balance(id string) entity.Profile {
	that.mu.Lock()
	defer that.mu.Unlock()

	return *that.getOrCreateLocked(id)
}

func (that *memLedger) setFailFor(n int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.failFor = n
}

func (that *memLedger) grant(id string, delta entity.BalanceDelta) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.getOrCreateLocked(id).Apply(delta)
}

// memArchive collects settled match results.
type memArchive struct {
	mu      sync.Mutex
	results []*repository.MatchResult
}

func (that *memArchive) Save(_ context.Context, result *repository.MatchResult) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.results = append(that.results, result)

	return nil
}

func (that *memArchive) saved() []*repository.MatchResult {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]*repository.MatchResult(nil), that.results...)
}

// arena wires queue, match and settlement services on fakes.
type arena struct {
	queue      *QueueService
	matches    *MatchService
	settlement *SettlementService
	messenger  *fakeMessenger
	ledger     *memLedger
	archive    *memArchive
}

func testGameConfig() config.Game {
	return config.Game{
		Rounds:        3,
		Stake:         1,
		WinBonus:      0.5,
		SearchTimeout: time.Hour,
		TurnTimeout:   time.Hour,
		IdleTimeout:   time.Hour,
	}
}

func newArena(t *testing.T, conf config.Game) *arena {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	messenger := newFakeMessenger()
	ledger := newMemLedger()
	archive := &memArchive{}

	settlement := NewSettlementService(logger, messenger, ledger, archive, conf)
	matches := NewMatchService(logger, messenger, settlement, m, conf)
	queue := NewQueueService(logger, messenger, ledger, matches, m, conf)

	return &arena{
		queue:      queue,
		matches:    matches,
		settlement: settlement,
		messenger:  messenger,
		ledger:     ledger,
		archive:    archive,
	}
}
