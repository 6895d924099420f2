package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/migrations/*.sql
var testMigrations embed.FS

// newTestPool connects to the shared container, applying any config
// tweaks first. The pool is closed when the test finishes.
func newTestPool(t *testing.T, mutate ...func(*Config)) *Pool {
	t.Helper()

	cfg := testConfig(t)
	for _, fn := range mutate {
		fn(&cfg)
	}

	pool, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPoolConnectAndHealthcheck(t *testing.T) {
	pool := newTestPool(t)

	require.NoError(t, pool.Healthcheck(context.Background()))

	stat := pool.Stat()
	assert.Equal(t, int32(10), stat.MaxConns())
	assert.Zero(t, stat.AcquiredConns())
}

func TestAcquireTimeoutWhenSaturated(t *testing.T) {
	const acquireTimeout = 250 * time.Millisecond

	cfg := testConfig(t)
	cfg.MaxConns = 3
	cfg.MinConns = 1
	cfg.AcquireTimeout = acquireTimeout

	fm := &fakePoolMetrics{}
	pool, err := New(context.Background(), cfg, fm)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ctx := context.Background()

	// Two long-held leases leave exactly one free slot.
	held1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer held1.Release()
	held2, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer held2.Release()

	var (
		mu         sync.Mutex
		acquired   []*pgxpool.Conn
		timeouts   int
		unexpected []error
	)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := pool.Acquire(ctx)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				acquired = append(acquired, conn)
			case errors.Is(err, ErrAcquireTimeout):
				timeouts++
			default:
				unexpected = append(unexpected, err)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	defer func() {
		for _, conn := range acquired {
			conn.Release()
		}
	}()

	require.Empty(t, unexpected)
	assert.Len(t, acquired, 1, "exactly one waiter should win the free slot")
	assert.Equal(t, 2, timeouts, "the other waiters should time out")
	assert.GreaterOrEqual(t, elapsed, acquireTimeout)
	assert.Less(t, elapsed, acquireTimeout+2*time.Second, "timeouts should fire near the configured bound")
	assert.Equal(t, 2, fm.outcome("timeout"))

	// Releasing a held lease makes the next acquire succeed immediately.
	held1.Release()
	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	conn.Release()
}

func TestWithConnQueryAndRelease(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	var answer int
	err := pool.WithConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, "SELECT 21 * 2").Scan(&answer)
	})
	require.NoError(t, err)
	assert.Equal(t, 42, answer)
	assert.Zero(t, pool.Stat().AcquiredConns(), "lease must be back in the pool")
}

func TestWithConnReleasesOnPanic(t *testing.T) {
	pool := newTestPool(t)

	require.Panics(t, func() {
		_ = pool.WithConn(context.Background(), func(context.Context, *pgxpool.Conn) error {
			panic("handler exploded mid-query")
		})
	})
	assert.Zero(t, pool.Stat().AcquiredConns(), "lease must be released even on panic")
}

func TestWithConnSurfacesFatalErrors(t *testing.T) {
	pool := newTestPool(t)

	err := pool.WithConn(context.Background(), func(ctx context.Context, conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, "SELECT definitely not sql")
		return err
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable, "fatal errors must not be dressed up as unavailability")
	assert.Equal(t, FailureFatal, Classify(err))
	assert.Zero(t, pool.Stat().AcquiredConns())
}

func TestWithTxCommitAndRollback(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	table := fmt.Sprintf("tx_probe_%d", time.Now().UnixNano())
	err := pool.WithConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (id int PRIMARY KEY, note text)", table))
		return err
	})
	require.NoError(t, err)

	// Committed work stays.
	err = pool.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (id, note) VALUES (1, 'kept')", table))
		return err
	})
	require.NoError(t, err)

	// A returned error rolls the whole transaction back.
	boom := errors.New("abort this one")
	err = pool.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (id, note) VALUES (2, 'discarded')", table)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	err = pool.WithConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", table)).Scan(&count)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count, "only the committed row should exist")
	assert.Zero(t, pool.Stat().AcquiredConns())
}

func TestWithTxReleasesOnPanic(t *testing.T) {
	pool := newTestPool(t)

	require.Panics(t, func() {
		_ = pool.WithTx(context.Background(), func(context.Context, pgx.Tx) error {
			panic("mid-transaction panic")
		})
	})
	assert.Zero(t, pool.Stat().AcquiredConns())
}

func TestMigrateAppliesEmbeddedFiles(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	require.NoError(t, pool.Migrate(ctx, testMigrations, "testdata/migrations"))

	// Both steps should have landed: the table from step one and the
	// note column from step two.
	var note string
	err := pool.WithConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, "INSERT INTO gadgets (name, note) VALUES ('probe', 'works') ON CONFLICT (name) DO UPDATE SET note = 'works'"); err != nil {
			return err
		}
		return conn.QueryRow(ctx, "SELECT note FROM gadgets WHERE name = 'probe'").Scan(&note)
	})
	require.NoError(t, err)
	assert.Equal(t, "works", note)

	// Re-running with nothing new to apply is a no-op, not an error.
	require.NoError(t, pool.Migrate(ctx, testMigrations, "testdata/migrations"))
}

func TestProcessLifecycle(t *testing.T) {
	pool := newTestPool(t, func(cfg *Config) {
		cfg.HealthCheckPeriod = 50 * time.Millisecond
	})

	proc := pool.Process()
	assert.Equal(t, "postgres-pool", proc.Name())
	require.NoError(t, proc.PreRun(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- proc.Run(ctx)
	}()

	// Let at least one probe tick fire before shutting down.
	time.Sleep(120 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("process did not stop after context cancellation")
	}

	// The process closes the pool on the way out.
	require.Error(t, pool.Healthcheck(context.Background()))
}
