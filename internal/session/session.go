// Package session implements the AR session lifecycle: Idle, Running and
// Paused, and owns the detection-tracking configuration.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/arcampus/arcampus/internal/catalog"
	"github.com/arcampus/arcampus/internal/tracking"
	"github.com/arcampus/arcampus/pkg/core"
)

// ErrInvalidTransition is returned when an operation is not allowed in the
// current state.
var ErrInvalidTransition = errors.New("invalid session transition")

// pauseCause records why a session is Paused.
type pauseCause int

const (
	pausedByNone pauseCause = iota
	pausedByView
	pausedByInterruption
)

// Controller is the session state machine. Operations are expected to be
// called from the serialized update path; reads are safe from any goroutine.
type Controller struct {
	mu      sync.RWMutex
	runtime tracking.Runtime
	images  []core.ImageDescriptor
	logger  *slog.Logger

	state   core.SessionState
	cause   pauseCause
	lastErr error

	// current mirrors state for lock-free readers such as log handlers
	current atomic.Int32
}

// New creates an Idle controller. images is the full reference image set used
// for every tracking run and must not be empty.
func New(rt tracking.Runtime, images []core.ImageDescriptor, logger *slog.Logger) (*Controller, error) {
	if len(images) == 0 {
		return nil, catalog.ErrMissingReferenceImageSet
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		runtime: rt,
		images:  append([]core.ImageDescriptor(nil), images...),
		logger:  logger,
	}
	c.set(core.SessionIdle, pausedByNone)
	return c, nil
}

// State returns the current state. It does not take the controller lock, so
// it may be called from code that runs while a transition is logging.
func (c *Controller) State() core.SessionState {
	return core.SessionState(c.current.Load())
}

// AcceptsAnchors reports whether new anchors should be processed.
func (c *Controller) AcceptsAnchors() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == core.SessionRunning
}

// Interrupted reports whether the session is paused by a runtime interruption.
func (c *Controller) Interrupted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == core.SessionPaused && c.cause == pausedByInterruption
}

// LastError returns the most recent failure, or nil.
func (c *Controller) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Start begins tracking from Idle without reset options.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != core.SessionIdle {
		return c.invalid("start")
	}
	return c.begin(false)
}

// ViewWillAppear resumes a Paused session, or starts an Idle one.
func (c *Controller) ViewWillAppear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case core.SessionIdle:
		return c.begin(false)
	case core.SessionPaused:
		if c.cause == pausedByInterruption {
			return c.invalid("appear")
		}
		return c.begin(false)
	default:
		return c.invalid("appear")
	}
}

// ViewWillDisappear suspends a Running session.
func (c *Controller) ViewWillDisappear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != core.SessionRunning {
		return c.invalid("disappear")
	}
	c.runtime.Pause()
	c.set(core.SessionPaused, pausedByView)
	c.logger.Info("Session paused", "cause", "view")
	return nil
}

// Reset suspends tracking and begins it again with reset options, issuing
// exactly one BeginTracking call. It is also the recovery path from Idle
// after a failure.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != core.SessionIdle {
		c.runtime.Pause()
	}
	return c.begin(true)
}

// Interrupt moves a Running session to Paused until EndInterruption.
// The runtime has already stopped itself, so it is not called.
func (c *Controller) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != core.SessionRunning {
		c.logger.Debug("Interruption ignored", "state", c.state)
		return
	}
	c.set(core.SessionPaused, pausedByInterruption)
	c.logger.Warn("Session interrupted")
}

// EndInterruption returns an interrupted session to Running.
func (c *Controller) EndInterruption() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != core.SessionPaused || c.cause != pausedByInterruption {
		c.logger.Debug("Interruption end ignored", "state", c.state)
		return
	}
	c.set(core.SessionRunning, pausedByNone)
	c.logger.Info("Session interruption ended")
}

// Fail records a runtime failure and returns to Idle. No retry is attempted.
func (c *Controller) Fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wrapped := fmt.Errorf("%w: %w", tracking.ErrSessionFailed, err)
	c.set(core.SessionIdle, pausedByNone)
	c.lastErr = wrapped
	c.logger.Error("Session failed", "error", err)
	return wrapped
}

// begin issues a single BeginTracking call with the full reference image set.
// Callers hold c.mu.
func (c *Controller) begin(reset bool) error {
	cfg := tracking.Config{
		ReferenceImages:       append([]core.ImageDescriptor(nil), c.images...),
		ResetTracking:         reset,
		RemoveExistingAnchors: reset,
	}

	if err := c.runtime.BeginTracking(cfg); err != nil {
		wrapped := fmt.Errorf("%w: %w", tracking.ErrSessionFailed, err)
		c.set(core.SessionIdle, pausedByNone)
		c.lastErr = wrapped
		c.logger.Error("Failed to begin tracking", "reset", reset, "error", err)
		return wrapped
	}

	c.set(core.SessionRunning, pausedByNone)
	c.lastErr = nil
	c.logger.Info("Tracking started", "reset", reset, "referenceImages", len(cfg.ReferenceImages))
	return nil
}

// set changes state; callers hold c.mu.
func (c *Controller) set(state core.SessionState, cause pauseCause) {
	c.state = state
	c.cause = cause
	c.current.Store(int32(state))
}

func (c *Controller) invalid(op string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, op, c.state)
}
