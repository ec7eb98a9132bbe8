package signal

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// TestHandler_Signal_CancelsContext verifies that receiving a signal
// cancels the context.
func TestHandler_Signal_CancelsContext(t *testing.T) {
	h := NewHandler(context.Background(), zerolog.Nop())
	defer h.Stop()

	// Simulate signal via internal method (no real OS signals)
	h.handleSignal(syscall.SIGINT)

	require.Error(t, h.Context().Err())
	assert.Equal(t, context.Canceled, h.Context().Err())

	select {
	case <-h.Interrupted():
	default:
		t.Fatal("interrupted channel should be closed after signal")
	}
}

// TestHandler_SecondSignalIsIgnored verifies that later signals are logged
// and have no further effect.
func TestHandler_SecondSignalIsIgnored(t *testing.T) {
	var logs bytes.Buffer
	h := NewHandler(context.Background(), zerolog.New(&logs))
	defer h.Stop()

	h.handleSignal(syscall.SIGINT)
	h.handleSignal(syscall.SIGINT)
	h.handleSignal(syscall.SIGTERM)

	assert.Equal(t, []string{"interrupt", "interrupt", "terminated"}, signalNames(h))
	assert.Equal(t, 1, strings.Count(logs.String(), "interrupt received"))
	assert.Equal(t, 2, strings.Count(logs.String(), "signal ignored"))
}

func signalNames(h *Handler) []string {
	var names []string
	for _, s := range h.Signals() {
		names = append(names, s.String())
	}
	return names
}

// TestHandler_ListenDeliversSignals verifies the listen loop keeps handling
// signals after the context is cancelled.
func TestHandler_ListenDeliversSignals(t *testing.T) {
	var logs syncBuffer
	h := NewHandler(context.Background(), zerolog.New(&logs))
	defer h.Stop()

	h.sigChan <- syscall.SIGTERM
	select {
	case <-h.Interrupted():
	case <-time.After(time.Second):
		t.Fatal("signal was not handled")
	}

	h.sigChan <- syscall.SIGINT
	require.Eventually(t, func() bool {
		return len(h.Signals()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, logs.String(), "signal ignored")
}

// TestHandler_Stop_CancelsContext verifies that Stop cancels the context
// without marking the run interrupted.
func TestHandler_Stop_CancelsContext(t *testing.T) {
	h := NewHandler(context.Background(), zerolog.Nop())
	h.Stop()
	h.Stop()

	require.Error(t, h.Context().Err())
	select {
	case <-h.Interrupted():
		t.Fatal("interrupted channel should stay open when no signal arrived")
	default:
	}
}

// TestHandler_ParentCancellation verifies that cancelling the parent
// cancels the handler context.
func TestHandler_ParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	h := NewHandler(parent, zerolog.Nop())
	defer h.Stop()

	cancel()

	require.Error(t, h.Context().Err())
	assert.Empty(t, h.Signals())
}
