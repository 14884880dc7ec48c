// Package interrupt turns SIGINT/SIGTERM into context cancellation, with a
// second Ctrl+C escalating to an immediate abort.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

// interruptWindow is the time window for a second Ctrl+C to trigger abort.
const interruptWindow = 2 * time.Second

const (
	stopMessage  = "\nInterrupted, stopping. Press Ctrl+C again to abort."
	abortMessage = "\nAborted."
)

// Handler manages graceful interrupt handling with double Ctrl+C detection.
//
// The first signal cancels the handler's context so running subprocesses are
// killed and deferred cleanups run. A second signal within the window runs
// the abort hooks (most recently registered first) and exits with
// ExitInterrupt.
type Handler struct {
	mu             sync.Mutex
	firstInterrupt time.Time
	interrupted    bool
	aborted        bool
	stopped        bool
	hooks          []func()
	cancelFunc     context.CancelFunc
	done           chan struct{}

	exitFunc func(int)
	nowFunc  func() time.Time
	stderr   io.Writer
}

// Options holds injectable dependencies for testing.
type Options struct {
	SigCh    <-chan os.Signal
	ExitFunc func(int)
	NowFunc  func() time.Time
	// Stderr is the writer for user-facing messages.
	// Must be safe for concurrent writes.
	Stderr io.Writer
}

// NewHandler creates a handler that listens for SIGINT/SIGTERM.
// Returns the handler and a context that is canceled on first interrupt.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return newHandler(parent, Options{SigCh: sigCh})
}

// NewHandlerWithOptions creates a handler with injectable dependencies.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	return newHandler(parent, opts)
}

func newHandler(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	exitFunc := opts.ExitFunc
	if exitFunc == nil {
		exitFunc = os.Exit
	}
	nowFunc := opts.NowFunc
	if nowFunc == nil {
		nowFunc = time.Now
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	h := &Handler{
		cancelFunc: cancel,
		done:       make(chan struct{}),
		exitFunc:   exitFunc,
		nowFunc:    nowFunc,
		stderr:     stderr,
	}

	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}

	return h, ctx
}

// OnAbort registers fn to run when the user aborts with a double Ctrl+C.
// Hooks run before the process exits, in reverse registration order.
// A panicking hook does not prevent the others from running.
func (h *Handler) OnAbort(fn func()) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, fn)
}

func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}
			if h.handleSignal() {
				return
			}
		}
	}
}

// handleSignal processes one signal and reports whether the handler aborted.
func (h *Handler) handleSignal() bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return true
	}
	now := h.nowFunc()

	if !h.interrupted || now.Sub(h.firstInterrupt) > interruptWindow {
		// First interrupt, or a late second one that restarts the window.
		first := !h.interrupted
		h.interrupted = true
		h.firstInterrupt = now
		h.mu.Unlock()
		if first {
			fmt.Fprintln(h.stderr, stopMessage)
			h.cancelFunc()
		}
		return false
	}

	h.aborted = true
	hooks := make([]func(), len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		runHook(hooks[i])
	}
	fmt.Fprintln(h.stderr, abortMessage)
	h.exitFunc(ExitInterrupt)
	return true
}

func runHook(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

// WasInterrupted returns true if at least one interrupt was received.
func (h *Handler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}

// Aborted returns true once a double Ctrl+C has been handled.
func (h *Handler) Aborted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.aborted
}

// Stop releases the signal subscription. Safe to call more than once.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	close(h.done)
}
