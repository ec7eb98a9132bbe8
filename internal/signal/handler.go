// Package signal turns SIGINT and SIGTERM into cancellation of the run.
//
// The first signal cancels the handler's context, which kills in-flight
// test processes and lets workers release their workspaces. Further
// signals are logged and ignored so cleanup can finish.
//
// Import rules:
//   - CAN import: std lib, zerolog
//   - MUST NOT import: internal packages (to avoid circular dependencies)
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
)

// Handler cancels a context when SIGINT or SIGTERM is received.
type Handler struct {
	ctx         context.Context //nolint:containedctx // intentional: handler manages context lifecycle
	cancel      context.CancelFunc
	logger      zerolog.Logger
	interrupted chan struct{}
	done        chan struct{} // signals listen() to exit cleanly
	once        sync.Once
	stopOnce    sync.Once
	sigChan     chan os.Signal

	mu       sync.Mutex
	received []os.Signal
}

// NewHandler creates a signal handler that listens for SIGINT and SIGTERM.
//
// Usage:
//
//	h := signal.NewHandler(ctx, logger)
//	defer h.Stop()
//	report := engine.Run(h.Context(), plan)
func NewHandler(parent context.Context, logger zerolog.Logger) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		interrupted: make(chan struct{}),
		done:        make(chan struct{}),
		// Buffer of 1 ensures signal.Notify doesn't drop signals if handler is busy.
		sigChan: make(chan os.Signal, 1),
	}

	signal.Notify(h.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go h.listen()

	return h
}

// Context returns the context cancelled by the first signal.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Interrupted returns a channel that closes when the first signal is received.
func (h *Handler) Interrupted() <-chan struct{} {
	return h.interrupted
}

// Signals returns the signals received so far, in order.
func (h *Handler) Signals() []os.Signal {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]os.Signal, len(h.received))
	copy(out, h.received)
	return out
}

// Stop stops listening for signals and cancels the context.
// Always call this when done to prevent resource leaks.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigChan)
		close(h.done)
		h.cancel()
	})
}

// handleSignal processes a received signal.
func (h *Handler) handleSignal(sig os.Signal) {
	h.mu.Lock()
	h.received = append(h.received, sig)
	h.mu.Unlock()

	first := false
	h.once.Do(func() {
		first = true
		h.logger.Warn().Str("signal", sig.String()).Msg("interrupt received, stopping jobs and removing workspaces")
		h.cancel()
		close(h.interrupted)
	})
	if !first {
		h.logger.Warn().Str("signal", sig.String()).Msg("cleanup in progress, signal ignored")
	}
}

// listen handles signals until Stop is called. It keeps draining after the
// first signal so a repeated Ctrl-C never falls through to the default
// handler while workspaces are being removed.
func (h *Handler) listen() {
	for {
		select {
		case <-h.done:
			return
		case sig := <-h.sigChan:
			h.handleSignal(sig)
		}
	}
}
