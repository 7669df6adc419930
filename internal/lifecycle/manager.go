// Package lifecycle drives the process through start-up, serving and
// graceful shutdown, and reports the current phase to the HTTP layer.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// State is a phase of the process lifecycle.
type State string

// Lifecycle phases, in order.
const (
	StateStarting     State = "starting"
	StateConnectingDB State = "connecting-db"
	StateListening    State = "listening"
	StateDraining     State = "draining"
	StateStopped      State = "stopped"
)

// Process exit codes.
const (
	ExitOK    = 0
	ExitError = 1
)

// ErrConnectExhausted is returned by Connect when every attempt failed.
var ErrConnectExhausted = errors.New("database connection attempts exhausted")

// Config bounds the retry and drain phases.
type Config struct {
	ConnectRetries  int           // attempts before giving up, at least 1
	RetryDelay      time.Duration // pause between attempts
	ConnectTimeout  time.Duration // bound on each attempt
	ShutdownTimeout time.Duration // drain bound before connections are closed forcibly
}

// Manager owns the process state machine:
//
//	starting -> connecting-db -> listening -> draining -> stopped
//
// Background components report unrecoverable failures through Fatal, which
// starts the drain with a non-zero exit code.
type Manager struct {
	cfg       Config
	logger    *slog.Logger
	state     atomic.Value // State
	startedAt time.Time

	fatalOnce sync.Once
	fatal     chan error

	mu        sync.Mutex
	observers []func(from, to State)
	closers   []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// New creates a manager in the starting state.
func New(cfg Config, logger *slog.Logger) *Manager {
	if cfg.ConnectRetries < 1 {
		cfg.ConnectRetries = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{
		cfg:       cfg,
		logger:    logger,
		startedAt: time.Now(),
		fatal:     make(chan error, 1),
	}
	m.state.Store(StateStarting)
	return m
}

// State returns the current phase.
func (m *Manager) State() State {
	return m.state.Load().(State)
}

// Draining reports whether new requests should be refused.
func (m *Manager) Draining() bool {
	s := m.State()
	return s == StateDraining || s == StateStopped
}

// Uptime returns the time since the manager was created.
func (m *Manager) Uptime() time.Duration {
	return time.Since(m.startedAt)
}

// OnTransition registers fn to be called after every state change.
func (m *Manager) OnTransition(fn func(from, to State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// OnShutdown registers a cleanup step run after the HTTP server has drained.
// Steps run in reverse registration order.
func (m *Manager) OnShutdown(name string, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closers = append(m.closers, closer{name: name, fn: fn})
}

func (m *Manager) transition(to State) {
	from := m.state.Swap(to).(State)
	if from == to {
		return
	}
	m.logger.Info("lifecycle transition", "from", from, "to", to)

	m.mu.Lock()
	observers := append([]func(from, to State){}, m.observers...)
	m.mu.Unlock()
	for _, fn := range observers {
		fn(from, to)
	}
}

// Fatal reports an unrecoverable error from a background component. Only the
// first report is kept.
func (m *Manager) Fatal(err error) {
	m.fatalOnce.Do(func() {
		m.fatal <- err
	})
}

// Go runs fn in the background. A returned error or a panic is reported
// through Fatal; context cancellation is not an error.
func (m *Manager) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("background task panicked", "task", name, "panic", r, "stack", string(debug.Stack()))
				m.Fatal(fmt.Errorf("%s panicked: %v", name, r))
			}
		}()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.Fatal(fmt.Errorf("%s: %w", name, err))
		}
	}()
}

// Connect calls connect until it succeeds, retrying up to ConnectRetries
// times with RetryDelay between attempts. Each attempt is bounded by
// ConnectTimeout.
func (m *Manager) Connect(ctx context.Context, connect func(ctx context.Context) error) error {
	m.transition(StateConnectingDB)

	var lastErr error
	for attempt := 1; attempt <= m.cfg.ConnectRetries; attempt++ {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if m.cfg.ConnectTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, m.cfg.ConnectTimeout)
		}
		lastErr = connect(attemptCtx)
		cancel()
		if lastErr == nil {
			m.logger.Info("database connected", "attempt", attempt)
			return nil
		}

		m.logger.Warn("database connection failed",
			"attempt", attempt,
			"max_attempts", m.cfg.ConnectRetries,
			"error", lastErr,
		)
		if attempt == m.cfg.ConnectRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.RetryDelay):
		}
	}
	return fmt.Errorf("%w: %w", ErrConnectExhausted, lastErr)
}

// Serve serves handler on ln until ctx is cancelled (a shutdown signal), a
// fatal error is reported or the server fails, then drains and runs the
// shutdown steps. It returns the process exit code.
func (m *Manager) Serve(ctx context.Context, ln net.Listener, srv *http.Server) int {
	serveErr := make(chan error, 1)
	m.transition(StateListening)
	m.logger.Info("HTTP server listening", "addr", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := ExitOK
	select {
	case <-ctx.Done():
		m.logger.Info("shutdown signal received")
	case err := <-m.fatal:
		m.logger.Error("fatal error, shutting down", "error", err)
		exitCode = ExitError
	case err, ok := <-serveErr:
		if ok {
			m.logger.Error("HTTP server failed", "error", err)
			exitCode = ExitError
		}
	}

	if code := m.drain(srv); code != ExitOK {
		exitCode = code
	}
	if code := m.runClosers(); code != ExitOK {
		exitCode = code
	}

	m.transition(StateStopped)
	m.logger.Info("server stopped", "exit_code", exitCode)
	return exitCode
}

// Shutdown runs the shutdown steps without an HTTP server, for failures that
// happen before listening. It returns ExitError.
func (m *Manager) Shutdown() int {
	m.transition(StateDraining)
	m.runClosers()
	m.transition(StateStopped)
	return ExitError
}

func (m *Manager) drain(srv *http.Server) int {
	m.transition(StateDraining)
	srv.SetKeepAlivesEnabled(false)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		m.logger.Error("drain timed out, closing connections forcibly",
			"timeout", m.cfg.ShutdownTimeout,
			"error", err,
		)
		_ = srv.Close()
		return ExitError
	}
	m.logger.Info("HTTP server drained")
	return ExitOK
}

func (m *Manager) runClosers() int {
	m.mu.Lock()
	closers := append([]closer{}, m.closers...)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ShutdownTimeout)
	defer cancel()

	code := ExitOK
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.fn(ctx); err != nil {
			m.logger.Error("shutdown step failed", "step", c.name, "error", err)
			code = ExitError
			continue
		}
		m.logger.Info("shutdown step complete", "step", c.name)
	}
	return code
}
