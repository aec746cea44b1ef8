// SPDX-License-Identifier: MPL-2.0

package sshserve

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"

	"borgbridge/pkg/engine"
	"borgbridge/pkg/flags"
)

const (
	// StateCreated indicates the server has been created but not started.
	StateCreated ServerState = iota
	// StateStarting indicates the server is in the process of starting.
	StateStarting
	// StateRunning indicates the server is running and accepting connections.
	StateRunning
	// StateStopping indicates the server is shutting down.
	StateStopping
	// StateStopped indicates the server has stopped (terminal state).
	StateStopped
	// StateFailed indicates the server failed to start or encountered a fatal error (terminal state).
	StateFailed
)

type (
	// ServerState represents the lifecycle state of the server.
	ServerState int32

	// Server bridges SSH sessions onto engine serve invocations.
	// A Server instance is single-use: once stopped or failed, create a new instance.
	Server struct {
		// Immutable configuration (set at creation, never modified)
		cfg Config
		eng engine.StreamEngine

		// State management (atomic for lock-free reads)
		state atomic.Int32

		// Initialized during Start() - protected by srvMu for writes
		srvMu    sync.Mutex
		srv      *ssh.Server
		listener net.Listener
		addr     string // Actual bound address (including resolved port)

		// Lifecycle management
		ctx       context.Context
		cancel    context.CancelFunc
		wg        sync.WaitGroup
		startedCh chan struct{} // Closed when server is ready to accept connections
		errCh     chan error    // Receives fatal errors from background goroutines
		lastErr   error         // Stores the last error for State() == StateFailed

		logger *log.Logger
	}

	// Config holds immutable configuration for the serve front end.
	Config struct {
		// Host is the address to bind to (default: 127.0.0.1)
		Host string
		// Port is the port to listen on (0 = auto-select)
		Port int
		// HostKeyPath locates the server host key; generated when missing.
		HostKeyPath string
		// Token is the shared secret clients authenticate with.
		Token string
		// RestrictToPaths limits served repositories to these path prefixes.
		// Empty means the engine's own defaults apply.
		RestrictToPaths []string
		// AppendOnly makes every served repository append-only.
		AppendOnly bool
		// ShutdownTimeout is the timeout for graceful shutdown (default: 10s)
		ShutdownTimeout time.Duration
		// StartupTimeout is the max time to wait for server to be ready (default: 5s)
		StartupTimeout time.Duration
	}
)

// String returns a human-readable representation of the server state.
func (s ServerState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// New creates a new serve front end around eng.
// The server is not started; call Start() to begin accepting connections.
func New(cfg Config, eng engine.StreamEngine) *Server {
	// Apply defaults
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = 5 * time.Second
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "sshserve",
	})

	s := &Server{
		cfg:       cfg,
		eng:       eng,
		startedCh: make(chan struct{}),
		errCh:     make(chan error, 1), // Buffered so goroutines don't block
		logger:    logger,
	}
	s.state.Store(int32(StateCreated))

	return s
}

// Start starts the server and blocks until either:
//   - The server is ready to accept connections (returns nil)
//   - The server fails to start (returns error)
//   - The context is cancelled (returns context error)
//   - The startup timeout is exceeded (returns error)
//
// After Start() returns nil, use Err() to monitor for runtime errors.
func (s *Server) Start(ctx context.Context) error {
	// Check for already-cancelled context BEFORE any setup.
	// This prevents a race condition where the serve goroutine could transition
	// to StateRunning before the cancelled context is detected in the select.
	select {
	case <-ctx.Done():
		s.transitionToFailed(fmt.Errorf("context cancelled before start: %w", ctx.Err()))
		return s.lastErr
	default:
	}

	// Transition: Created -> Starting
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		currentState := ServerState(s.state.Load())
		return fmt.Errorf("cannot start server in state %s", currentState)
	}

	// Create internal context for lifecycle management
	s.ctx, s.cancel = context.WithCancel(context.Background())

	// Setup timeout for startup
	startupCtx, startupCancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer startupCancel()

	// Initialize listener
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var lc net.ListenConfig
	listener, err := lc.Listen(startupCtx, "tcp", addr)
	if err != nil {
		s.transitionToFailed(fmt.Errorf("failed to listen on %s: %w", addr, err))
		return s.lastErr
	}

	s.srvMu.Lock()
	s.listener = listener
	s.addr = listener.Addr().String()
	s.srvMu.Unlock()

	opts := []ssh.Option{
		wish.WithAddress(addr),
		wish.WithPublicKeyAuth(s.publicKeyHandler),
		wish.WithPasswordAuth(s.passwordHandler),
		wish.WithMiddleware(s.serveMiddleware()),
	}
	if s.cfg.HostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(s.cfg.HostKeyPath))
	}

	srv, err := wish.NewServer(opts...)
	if err != nil {
		_ = listener.Close() // Best-effort cleanup on error
		s.transitionToFailed(fmt.Errorf("failed to create SSH server: %w", err))
		return s.lastErr
	}

	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()

	// Start the serve goroutine
	s.wg.Add(1)
	go s.serve()

	// Wait for server to be ready or fail
	select {
	case <-s.startedCh:
		// Server is ready
		s.logger.Info("repository server started", "address", s.addr)
		return nil

	case err := <-s.errCh:
		// Server failed during startup
		s.transitionToFailed(err)
		return err

	case <-startupCtx.Done():
		// Startup timeout or caller cancelled
		s.cancel() // Stop any background work
		s.transitionToFailed(fmt.Errorf("startup timeout: %w", startupCtx.Err()))
		return s.lastErr
	}
}

// Stop gracefully stops the server.
// It blocks until all connections are closed or the shutdown timeout is reached.
// Safe to call multiple times; subsequent calls are no-ops.
func (s *Server) Stop() error {
	// Only proceed if we're in a stoppable state
	for {
		currentState := ServerState(s.state.Load())
		switch currentState {
		case StateStopped, StateFailed:
			return nil // Already stopped
		case StateCreated:
			if s.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				return nil // Never started
			}
			continue // State changed, retry
		case StateStopping:
			// Wait for ongoing stop to complete
			s.wg.Wait()
			return nil
		case StateStarting, StateRunning:
			// Transition to Stopping
			if !s.state.CompareAndSwap(int32(currentState), int32(StateStopping)) {
				continue // State changed, retry
			}
			// Proceed with shutdown
			return s.doStop()
		default:
			return fmt.Errorf("unknown server state: %d", currentState)
		}
	}
}

// Err returns a channel that receives fatal server errors.
// Use this to monitor for unexpected failures after Start() returns.
// The channel is closed when the server stops.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// State returns the current server state.
func (s *Server) State() ServerState {
	return ServerState(s.state.Load())
}

// IsRunning returns whether the server is currently running and accepting connections.
// This is a convenience method equivalent to State() == StateRunning.
func (s *Server) IsRunning() bool {
	return s.State() == StateRunning
}

// Address returns the server's bound address (host:port).
// Blocks until the server has started or failed.
// Returns empty string if server never started or failed.
func (s *Server) Address() string {
	select {
	case <-s.startedCh:
		s.srvMu.Lock()
		defer s.srvMu.Unlock()
		return s.addr
	case <-s.ctx.Done():
		return ""
	}
}

// Port returns the server's listening port.
// Blocks until the server has started or failed.
// Returns 0 if server never started or failed.
func (s *Server) Port() int {
	addr := s.Address()
	if addr == "" {
		return 0
	}
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return 0 // Invalid port string
	}
	return port
}

// Host returns the server's configured host address.
func (s *Server) Host() string {
	return s.cfg.Host
}

// Wait blocks until the server stops (either gracefully or due to error).
// Returns the error if the server failed, nil otherwise.
func (s *Server) Wait() error {
	s.wg.Wait()

	state := s.State()
	if state == StateFailed {
		return s.lastErr
	}
	return nil
}

// serve runs the SSH server and handles errors.
func (s *Server) serve() {
	defer s.wg.Done()

	// Transition: Starting -> Running (signals readiness)
	if s.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		close(s.startedCh)
	}

	// Block serving connections
	s.srvMu.Lock()
	srv := s.srv
	listener := s.listener
	s.srvMu.Unlock()

	if srv == nil || listener == nil {
		return
	}

	err := srv.Serve(listener)
	// Handle serve completion
	if err != nil {
		// Ignore expected shutdown errors
		if errors.Is(err, ssh.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
			return
		}

		// Report unexpected errors
		select {
		case s.errCh <- fmt.Errorf("serve error: %w", err):
		default:
			// Error channel full, log instead
			s.logger.Error("SSH server error (channel full)", "error", err)
		}
	}
}

// doStop performs the actual shutdown logic.
func (s *Server) doStop() error {
	// Signal all goroutines to stop
	if s.cancel != nil {
		s.cancel()
	}

	// Shutdown SSH server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	s.srvMu.Lock()
	if s.srv != nil {
		shutdownErr = s.srv.Shutdown(shutdownCtx)
		if shutdownErr != nil && !isClosedConnError(shutdownErr) {
			s.logger.Error("shutdown error", "error", shutdownErr)
		} else {
			shutdownErr = nil
		}
	}
	if s.listener != nil {
		_ = s.listener.Close() // Best-effort cleanup during shutdown
	}
	s.srvMu.Unlock()

	// Wait for all goroutines to exit
	s.wg.Wait()

	// Transition to Stopped
	s.state.Store(int32(StateStopped))
	s.logger.Info("repository server stopped")

	// Close error channel to signal consumers
	close(s.errCh)

	return shutdownErr
}

// transitionToFailed sets the server state to Failed and stores the error.
func (s *Server) transitionToFailed(err error) {
	s.lastErr = err
	s.state.Store(int32(StateFailed))
	if s.cancel != nil {
		s.cancel()
	}
	// Send error to channel for Err() consumers (non-blocking)
	select {
	case s.errCh <- err:
	default:
	}
}

// passwordHandler authenticates the shared token presented as the password.
func (s *Server) passwordHandler(ctx ssh.Context, password string) bool {
	if s.cfg.Token == "" {
		s.logger.Warn("rejecting connection, no token configured", "user", ctx.User())
		return false
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Token)) != 1 {
		s.logger.Warn("invalid token authentication attempt", "user", ctx.User())
		return false
	}

	s.logger.Debug("token authentication successful", "user", ctx.User())
	return true
}

// publicKeyHandler rejects all public key authentication.
// We only want token-based authentication.
func (s *Server) publicKeyHandler(_ ssh.Context, _ ssh.PublicKey) bool {
	return false
}

// serveMiddleware bridges each session onto an engine serve invocation.
// Whatever command the client requested is ignored: sessions always land in
// the restricted serve loop, never a shell.
func (s *Server) serveMiddleware() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			args, err := s.serveArgs()
			if err != nil {
				_, _ = fmt.Fprintf(sess.Stderr(), "Error: %v\n", err)
				_ = sess.Exit(1)
				return
			}

			s.logger.Info("session opened", "user", sess.User(), "remote", sess.RemoteAddr())
			err = s.eng.RunStreams(sess.Context(), args, sess, sess, sess.Stderr())
			s.logger.Info("session closed", "user", sess.User(), "err", err)

			if err != nil {
				_ = sess.Exit(1)
				return
			}
			_ = sess.Exit(0)
		}
	}
}

// serveArgs builds the restricted serve argument vector.
func (s *Server) serveArgs() ([]string, error) {
	optArgs, err := flags.Parse(&flags.Serve{
		RestrictToPath: s.cfg.RestrictToPaths,
		AppendOnly:     s.cfg.AppendOnly,
	})
	if err != nil {
		return nil, err
	}
	return append([]string{"serve"}, optArgs...), nil
}

// isClosedConnError checks if the error is a "use of closed network connection" error.
func isClosedConnError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Err.Error() == "use of closed network connection"
	}
	return false
}
