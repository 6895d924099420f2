// Package postgres manages a PostgreSQL connection pool with bounded
// acquisition, scoped leases and a retry policy for transient failures.
//
// The pool wraps pgxpool: connections grow lazily up to MaxConns, shrink
// back toward MinConns as they idle out, and are probed in the background
// every HealthCheckPeriod. On top of that the pool bounds every lease
// with an acquire timeout, guarantees release on all exit paths through
// WithConn and WithTx, and retries operations that hit a transient
// failure on a fresh connection before reporting ErrUnavailable.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gantrykit/gantry/internal/logger"
	"github.com/gantrykit/gantry/pkg/metrics"
	"github.com/gantrykit/gantry/pkg/telemetry"
)

// Pool is a managed PostgreSQL connection pool. All methods are safe for
// concurrent use. The zero value is not usable; create pools with New.
type Pool struct {
	pool    *pgxpool.Pool
	config  Config
	metrics metrics.PoolMetrics

	closeOnce sync.Once
}

// New creates a connection pool and verifies connectivity with an initial
// ping. Pass nil metrics to disable pool instrumentation.
func New(ctx context.Context, cfg Config, m metrics.PoolMetrics) (*Pool, error) {
	// Apply defaults before validation
	cfg.ApplyDefaults()

	if err := cfg.validateConnection(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	// Apply connection pool settings
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "gantry"

	// Cap statements server-side so a runaway query cannot hold a
	// connection past the query timeout.
	if cfg.QueryTimeout > 0 {
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%dms", cfg.QueryTimeout.Milliseconds())
	}

	logger.InfoCtx(ctx, "creating database pool",
		logger.Component("pool"),
		logger.Database(cfg.Database),
		logger.Addr(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		slog.Int("max_conns", int(cfg.MaxConns)),
		slog.Int("min_conns", int(cfg.MinConns)),
		slog.String("ssl_mode", cfg.SSLMode),
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.InfoCtx(ctx, "database pool ready",
		logger.Component("pool"),
		logger.Database(cfg.Database),
	)

	return &Pool{pool: pool, config: cfg, metrics: m}, nil
}

// Config returns a copy of the pool configuration with defaults applied.
func (p *Pool) Config() Config {
	return p.config
}

// Acquire leases a connection from the pool, waiting at most the
// configured acquire timeout for one to become available. A saturated
// pool yields ErrAcquireTimeout instead of blocking indefinitely.
//
// The returned connection must be released exactly once. Prefer WithConn
// unless the lease has to outlive a single function call.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	ctx, span := telemetry.StartDBSpan(ctx, telemetry.OpDBAcquire, telemetry.DBName(p.config.Database))
	defer span.End()

	acquireCtx, cancel := context.WithTimeout(ctx, p.config.AcquireTimeout)
	defer cancel()

	start := time.Now()
	conn, err := p.pool.Acquire(acquireCtx)
	if err != nil {
		// Only the pool's own bound is a saturation signal; the caller
		// giving up first is their deadline, not ours.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			if p.metrics != nil {
				p.metrics.RecordAcquire(time.Since(start), "timeout")
			}
			telemetry.RecordError(ctx, ErrAcquireTimeout)
			logger.WarnCtx(ctx, "connection acquire timed out",
				logger.Component("pool"),
				logger.DurationMs(logger.Duration(start)),
			)
			return nil, ErrAcquireTimeout
		}
		if p.metrics != nil {
			p.metrics.RecordAcquire(time.Since(start), "error")
		}
		telemetry.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	if p.metrics != nil {
		p.metrics.RecordAcquire(time.Since(start), "ok")
	}
	p.publishStats()
	return conn, nil
}

// WithConn runs fn with a leased connection and releases it on every exit
// path, including panics. Transient failures are retried on a fresh
// connection up to the configured retry budget; an exhausted budget
// surfaces ErrUnavailable.
func (p *Pool) WithConn(ctx context.Context, fn func(context.Context, *pgxpool.Conn) error) error {
	ctx, span := telemetry.StartDBSpan(ctx, telemetry.OpDBQuery, telemetry.DBName(p.config.Database))
	defer span.End()

	return p.runWithRetry(ctx, func(ctx context.Context) error {
		conn, err := p.Acquire(ctx)
		if err != nil {
			return err
		}
		defer func() {
			conn.Release()
			p.publishStats()
		}()

		return fn(ctx, conn)
	})
}

// WithTx runs fn inside a transaction. The transaction commits only when
// fn returns nil; every other path, panics included, rolls it back and
// releases the connection. The retry budget matches WithConn, with each
// attempt running in a fresh transaction.
func (p *Pool) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	ctx, span := telemetry.StartDBSpan(ctx, telemetry.OpDBTransaction, telemetry.DBName(p.config.Database))
	defer span.End()

	return p.runWithRetry(ctx, func(ctx context.Context) error {
		conn, err := p.Acquire(ctx)
		if err != nil {
			return err
		}
		defer func() {
			conn.Release()
			p.publishStats()
		}()

		tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		// Rollback after a successful commit is a harmless no-op.
		defer func() { _ = tx.Rollback(ctx) }()

		if err := fn(ctx, tx); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

// runWithRetry runs op up to 1+RetryAttempts times. Only failures
// positively classified as transient earn another attempt; acquire
// timeouts and fatal errors surface immediately.
func (p *Pool) runWithRetry(ctx context.Context, op func(context.Context) error) error {
	attempts := p.config.RetryAttempts + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if p.metrics != nil {
				p.metrics.RecordRetry()
			}
			telemetry.SetAttributes(ctx, telemetry.DBAttempt(attempt))
			logger.DebugCtx(ctx, "retrying database operation",
				logger.Component("pool"),
				logger.Attempt(attempt),
				logger.MaxRetries(p.config.RetryAttempts),
				logger.Err(lastErr),
			)
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		// A saturated pool is the caller's cue to back off, not ours to
		// hammer.
		if errors.Is(err, ErrAcquireTimeout) {
			return err
		}
		if Classify(err) != FailureRetryable {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}

	logger.WarnCtx(ctx, "database operation failed after retries",
		logger.Component("pool"),
		logger.MaxRetries(p.config.RetryAttempts),
		logger.Err(lastErr),
	)
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Healthcheck verifies the database answers a ping, bounded by the
// connect timeout. The readiness endpoint and the background probe loop
// both go through here.
func (p *Pool) Healthcheck(ctx context.Context) error {
	ctx, span := telemetry.StartDBSpan(ctx, telemetry.OpDBHealthCheck, telemetry.DBName(p.config.Database))
	defer span.End()

	pingCtx, cancel := context.WithTimeout(ctx, p.config.ConnectTimeout)
	defer cancel()

	err := p.pool.Ping(pingCtx)
	if p.metrics != nil {
		p.metrics.RecordHealthCheck(err == nil)
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
		return fmt.Errorf("database ping failed: %w", err)
	}

	p.publishStats()
	return nil
}

// Stat returns a snapshot of the underlying pool counters.
func (p *Pool) Stat() *pgxpool.Stat {
	return p.pool.Stat()
}

// Close shuts the pool down, waiting for leased connections to be
// released. Safe to call more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		logger.Info("closing database pool",
			logger.Component("pool"),
			logger.Database(p.config.Database),
		)
		p.pool.Close()
	})
}

// publishStats exports the pool sizing gauges.
func (p *Pool) publishStats() {
	if p.metrics == nil {
		return
	}
	stat := p.pool.Stat()
	p.metrics.SetConnStats(stat.TotalConns(), stat.IdleConns(), stat.AcquiredConns())
}
