package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gantrykit/gantry/internal/logger"
)

// Process is a background resource manager owned by the server.
//
// PreRun is the preflight: verify the resource is usable (ping a database,
// warm a cache) before the listeners bind. Run is the long-running loop and
// must return promptly once ctx is cancelled; returning nil after
// cancellation is the normal, healthy exit.
//
// A Run that returns an error while the server is still running is treated
// as an unrecoverable fault and brings the whole server down.
type Process interface {
	Name() string
	PreRun(ctx context.Context) error
	Run(ctx context.Context) error
}

// funcProcess adapts a pair of functions into a Process.
type funcProcess struct {
	name   string
	preRun func(ctx context.Context) error
	run    func(ctx context.Context) error
}

// NewProcess builds a Process from plain functions. Either function may be
// nil; a nil run blocks until ctx is cancelled so the process still
// participates in ordered teardown.
func NewProcess(name string, preRun, run func(ctx context.Context) error) Process {
	return &funcProcess{name: name, preRun: preRun, run: run}
}

func (p *funcProcess) Name() string { return p.name }

func (p *funcProcess) PreRun(ctx context.Context) error {
	if p.preRun == nil {
		return nil
	}
	return p.preRun(ctx)
}

func (p *funcProcess) Run(ctx context.Context) error {
	if p.run == nil {
		<-ctx.Done()
		return nil
	}
	return p.run(ctx)
}

// runningProcess tracks one started Run loop so shutdown can cancel and
// await it individually, in reverse registration order.
type runningProcess struct {
	proc   Process
	cancel context.CancelFunc
	done   chan error
}

// preRunAll runs every process's preflight concurrently, bounded by
// PreRunTimeout. The first failure cancels the rest and wins.
func (s *Server) preRunAll(ctx context.Context) error {
	if len(s.processes) == 0 {
		return nil
	}

	preCtx, cancel := context.WithTimeout(ctx, s.config.PreRunTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(preCtx)
	for _, p := range s.processes {
		g.Go(func() error {
			start := time.Now()
			if err := p.PreRun(gctx); err != nil {
				return fmt.Errorf("process %s failed to initialize: %w", p.Name(), err)
			}
			logger.DebugCtx(ctx, "Process initialized",
				logger.Process(p.Name()),
				logger.DurationMs(logger.Duration(start)))
			return nil
		})
	}
	return g.Wait()
}

// startProcesses launches every Run loop in registration order. Each process
// gets its own cancellable context so teardown can stop them one at a time.
func (s *Server) startProcesses(procCtx context.Context) {
	for _, p := range s.processes {
		pctx, cancel := context.WithCancel(procCtx)
		rp := &runningProcess{proc: p, cancel: cancel, done: make(chan error, 1)}
		s.running = append(s.running, rp)

		go func() {
			err := p.Run(pctx)
			rp.done <- err

			// A failure before shutdown begins is fatal for the server.
			// Errors during teardown are reported through rp.done instead.
			if err != nil && !errors.Is(err, context.Canceled) && s.State() < StateDraining {
				select {
				case s.procErr <- fmt.Errorf("process %s: %w", p.Name(), err):
				default:
				}
			}
		}()
	}
}

// teardownProcesses cancels and awaits Run loops in reverse registration
// order, so dependents stop before their dependencies.
func (s *Server) teardownProcesses(ctx context.Context) {
	for i := len(s.running) - 1; i >= 0; i-- {
		rp := s.running[i]
		rp.cancel()

		select {
		case err := <-rp.done:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.WarnCtx(ctx, "Process stopped with error",
					logger.Process(rp.proc.Name()), logger.Err(err))
			} else {
				logger.DebugCtx(ctx, "Process stopped", logger.Process(rp.proc.Name()))
			}
		case <-ctx.Done():
			logger.WarnCtx(ctx, "Process did not stop in time",
				logger.Process(rp.proc.Name()))
		}
	}
	s.running = nil
}
