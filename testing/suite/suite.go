package suite

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/xo-arena-backend/internal/repository/storage"
)

const (
	expireDuration  = 120
	maxWaitDuration = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"
)

// Suite provisions the arena's storages for repository tests: a disposable
// redis container for the profile ledger and a temp-dir sqlite file for the
// result archive.
type Suite struct {
	*testing.T
	Logger *slog.Logger

	Ledger  *redis.Client
	Archive *sql.DB
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(func() {
		cancel()
	})

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	return ctx, &Suite{
		T:       t,
		Logger:  logger,
		Ledger:  newLedger(ctx, t),
		Archive: NewArchive(ctx, t),
	}
}

// NewArchive opens a fresh sqlite result archive in a temp dir and creates
// the schema. Tests that never touch the ledger can use it directly and skip
// the container bring-up.
func NewArchive(ctx context.Context, t *testing.T) *sql.DB {
	t.Helper()

	archive, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("could not open sqlite archive: %v", err)
	}

	t.Cleanup(func() {
		if err = archive.Close(); err != nil {
			t.Fatalf("could not close sqlite archive: %v", err)
		}
	})

	if err = archive.Init(ctx); err != nil {
		t.Fatalf("could not init sqlite archive: %v", err)
	}

	return archive.Connection
}

// newLedger runs a throwaway redis container and hands back a flushed client.
func newLedger(ctx context.Context, t *testing.T) *redis.Client {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
		Env:        []string{},
	}, func(config *docker.HostConfig) {
		// stopped containers clean themselves up
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start resource: %v", err)
	}

	// hard kill the container if the test run hangs
	_ = resource.Expire(expireDuration)

	ledgerAddr := resource.GetHostPort(redisPort)

	// backoff-retry: the container might not accept connections yet
	pool.MaxWait = maxWaitDuration

	var ledger *redis.Client
	if err = pool.Retry(func() error {
		ledger = redis.NewClient(&redis.Options{
			Addr: ledgerAddr,
		})
		return ledger.Ping(ctx).Err()
	}); err != nil {
		if err = pool.Purge(resource); err != nil {
			t.Fatalf("could not purge resource: %v", err)
		}

		t.Fatalf("could not connect to redis ledger: %v", err)
	}

	if err = ledger.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("could not flush ledger: %v", err)
	}

	t.Cleanup(func() {
		t.Helper()

		if err = pool.Purge(resource); err != nil {
			t.Fatalf("could not purge resource: %v", err)
		}
	})

	return ledger
}
