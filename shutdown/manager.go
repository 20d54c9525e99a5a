// Package shutdown coordinates graceful shutdown of the serve command.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"classifier_backend/core"
)

// DefaultTimeout bounds the whole shutdown sequence.
const DefaultTimeout = 30 * time.Second

// Manager cancels a context on SIGINT or SIGTERM, then on Shutdown waits for
// in-flight operations and runs registered cleanup in priority order. A
// second signal exits immediately.
//
//	m := shutdown.NewManager(logger)
//	m.Register("http", shutdown.PriorityServer, server.Shutdown)
//	m.Start()
//	<-m.Context().Done()
//	err := m.Shutdown()
//	os.Exit(m.ExitCode())
type Manager struct {
	logger    *zap.Logger
	timeout   time.Duration
	forceExit func(code int)

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *OperationTracker
	registry *Registry

	mu      sync.Mutex
	started bool
	done    bool
	signal  os.Signal
	signals int
	sigChan chan os.Signal
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout sets the shutdown timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) { m.timeout = timeout }
}

// WithForceExit replaces os.Exit for the second-signal path.
func WithForceExit(exit func(code int)) Option {
	return func(m *Manager) { m.forceExit = exit }
}

// NewManager creates a Manager. Call Start to listen for signals.
func NewManager(logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:    logger,
		timeout:   DefaultTimeout,
		forceExit: os.Exit,
		ctx:       ctx,
		cancel:    cancel,
		tracker:   NewOperationTracker(),
		registry:  NewRegistry(),
		sigChan:   make(chan os.Signal, 2),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context is cancelled when shutdown begins.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Tracker returns the in-flight operation tracker.
func (m *Manager) Tracker() *OperationTracker {
	return m.tracker
}

// Register adds a cleanup function. Lower priorities run first.
func (m *Manager) Register(name string, priority int, fn Func) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("registered shutdown handler",
		zap.String("name", name),
		zap.Int("priority", priority))
}

// RegisteredHandlers returns handler names in execution order.
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}

// Start listens for SIGINT and SIGTERM. Extra calls are no-ops.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			m.handleSignal(sig)
		}
	}()
}

func (m *Manager) handleSignal(sig os.Signal) {
	m.mu.Lock()
	m.signals++
	count := m.signals
	if m.signal == nil {
		m.signal = sig
	}
	m.mu.Unlock()

	if count == 1 {
		m.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		m.cancel()
		return
	}
	m.logger.Warn("received second signal, forcing exit", zap.String("signal", sig.String()))
	m.forceExit(exitCodeForSignal(sig))
}

// Trigger begins shutdown without a signal, e.g. after a fatal server error.
func (m *Manager) Trigger() {
	m.cancel()
}

// ExitCode returns the process exit code for the signal that started
// shutdown, or ExitCodeSuccess when no signal was received.
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.signal == nil {
		return core.ExitCodeSuccess
	}
	return exitCodeForSignal(m.signal)
}

// ActiveOperations returns the number of tracked operations still running.
func (m *Manager) ActiveOperations() int64 {
	return m.tracker.ActiveCount()
}

// IsShuttingDown reports whether shutdown has begun.
func (m *Manager) IsShuttingDown() bool {
	return m.ctx.Err() != nil || m.tracker.IsClosed()
}

// Shutdown rejects new operations, waits for running ones and runs cleanup,
// all within the configured timeout. It is idempotent.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	m.done = true
	started := m.started
	m.mu.Unlock()

	m.cancel()
	start := time.Now()
	m.logger.Info("initiating graceful shutdown",
		zap.Duration("timeout", m.timeout),
		zap.Int("handlers", m.registry.Count()))

	m.tracker.Close()
	if err := m.tracker.Wait(m.timeout); err != nil {
		m.logger.Warn("in-flight operations did not finish",
			zap.Int64("remaining", m.tracker.ActiveCount()))
	}

	remaining := m.timeout - time.Since(start)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	errs := m.registry.Run(ctx)
	for _, err := range errs {
		m.logger.Error("shutdown handler failed", zap.Error(err))
	}

	if started {
		signal.Stop(m.sigChan)
		close(m.sigChan)
	}

	m.logger.Info("shutdown complete",
		zap.Duration("duration", time.Since(start)),
		zap.Int("errors", len(errs)))
	return errors.Join(errs...)
}

func exitCodeForSignal(sig os.Signal) int {
	if sig == syscall.SIGTERM {
		return core.ExitCodeSIGTERM
	}
	return core.ExitCodeSIGINT
}
