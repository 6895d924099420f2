package postgres

import (
	"context"
	"time"

	"github.com/gantrykit/gantry/internal/logger"
)

// Process adapts the pool to the orchestrator's managed-process contract:
// PreRun verifies connectivity before the server accepts traffic, Run
// probes the database on the health check cadence until shutdown.
type Process struct {
	pool *Pool
}

// Process wraps the pool for registration with the server orchestrator.
func (p *Pool) Process() *Process {
	return &Process{pool: p}
}

// Name identifies the process in orchestrator logs.
func (p *Process) Name() string {
	return "postgres-pool"
}

// PreRun verifies the database is reachable. A failure here aborts
// server startup before the listener binds.
func (p *Process) PreRun(ctx context.Context) error {
	return p.pool.Healthcheck(ctx)
}

// Run probes the database every HealthCheckPeriod until ctx is
// cancelled, then closes the pool. The orchestrator cancels processes
// only after in-flight requests have drained, so closing here cannot
// strand a lease.
func (p *Process) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.pool.config.HealthCheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.pool.Close()
			return nil
		case <-ticker.C:
			if err := p.pool.Healthcheck(ctx); err != nil {
				logger.WarnCtx(ctx, "database health probe failed",
					logger.Component("pool"),
					logger.Err(err),
				)
			}
		}
	}
}
