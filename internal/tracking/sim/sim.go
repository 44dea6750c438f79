// Package sim is an in-process tracking runtime. It stands in for a camera:
// callers point it at reference images and it reports anchors to a
// tracking.Delegate from its own goroutine.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/arcampus/arcampus/internal/channel"
	"github.com/arcampus/arcampus/internal/tracking"
	"github.com/arcampus/arcampus/pkg/core"
)

var (
	ErrNotRunning      = errors.New("tracking is not running")
	ErrNotDetectable   = errors.New("image is not in the reference set")
	ErrAlreadyAnchored = errors.New("image already anchored")
	ErrClosed          = errors.New("runtime closed")
	ErrNoImages        = errors.New("no reference images configured")
)

// Anchor is the opaque anchor handed to the delegate.
type Anchor struct {
	ID      int
	ImageID string
}

func (a Anchor) String() string {
	return fmt.Sprintf("anchor#%d(%s)", a.ID, a.ImageID)
}

// Runtime is the simulated tracking runtime.
type Runtime struct {
	// sendMu orders callbacks; mu guards state
	sendMu   sync.Mutex
	mu       sync.Mutex
	delegate tracking.Delegate
	logger   *slog.Logger

	images      []core.ImageDescriptor
	anchored    map[string]bool
	running     bool
	interrupted bool
	nextAnchor  int
	runs        []tracking.Config
	closed      bool

	callbacks channel.Channel[func()]
	done      chan struct{}
}

// New starts a runtime. Callbacks are dropped until SetDelegate is called.
func New(logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runtime{
		logger:    logger.With("component", "sim"),
		anchored:  make(map[string]bool),
		callbacks: channel.New[func()](64),
		done:      make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Runtime) loop() {
	defer close(r.done)
	for fn := range r.callbacks.Receive() {
		fn()
	}
}

// SetDelegate installs the receiver of runtime callbacks.
func (r *Runtime) SetDelegate(d tracking.Delegate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delegate = d
}

// BeginTracking implements tracking.Runtime.
func (r *Runtime) BeginTracking(cfg tracking.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if len(cfg.ReferenceImages) == 0 {
		return ErrNoImages
	}
	r.images = append([]core.ImageDescriptor(nil), cfg.ReferenceImages...)
	if cfg.RemoveExistingAnchors {
		r.anchored = make(map[string]bool)
	}
	r.running = true
	r.interrupted = false
	r.runs = append(r.runs, cfg)

	r.logger.Debug("tracking started",
		"images", len(cfg.ReferenceImages),
		"reset", cfg.ResetTracking,
		"removeAnchors", cfg.RemoveExistingAnchors)
	return nil
}

// Pause implements tracking.Runtime.
func (r *Runtime) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.logger.Debug("tracking paused")
}

// Runs returns the configurations of every BeginTracking call so far.
func (r *Runtime) Runs() []tracking.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tracking.Config(nil), r.runs...)
}

// Running reports whether tracking is active and not interrupted.
func (r *Runtime) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running && !r.interrupted
}

// ReferenceImages returns the image set of the current run.
func (r *Runtime) ReferenceImages() []core.ImageDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.ImageDescriptor(nil), r.images...)
}

// Point simulates the camera seeing imageID. A new anchor is reported for
// images in the reference set that are not already anchored.
func (r *Runtime) Point(imageID string) error {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if !r.running || r.interrupted {
		r.mu.Unlock()
		return ErrNotRunning
	}
	var img *core.ImageDescriptor
	for i := range r.images {
		if r.images[i].ID == imageID {
			img = &r.images[i]
			break
		}
	}
	if img == nil {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotDetectable, imageID)
	}
	if r.anchored[imageID] {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyAnchored, imageID)
	}

	r.anchored[imageID] = true
	r.nextAnchor++
	ev := core.DetectionEvent{
		ImageID:      img.ID,
		PhysicalSize: img.PhysicalSize,
		Anchor:       Anchor{ID: r.nextAnchor, ImageID: img.ID},
	}
	d := r.delegate
	r.mu.Unlock()

	r.emit(d, func(d tracking.Delegate) { d.OnAnchorAdded(ev) })
	return nil
}

// Interrupt simulates the system suspending the camera.
func (r *Runtime) Interrupt() {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	r.mu.Lock()
	if r.closed || r.interrupted {
		r.mu.Unlock()
		return
	}
	r.interrupted = true
	d := r.delegate
	r.mu.Unlock()

	r.emit(d, func(d tracking.Delegate) { d.OnSessionInterrupted() })
}

// EndInterruption simulates the camera becoming available again.
func (r *Runtime) EndInterruption() {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	r.mu.Lock()
	if r.closed || !r.interrupted {
		r.mu.Unlock()
		return
	}
	r.interrupted = false
	d := r.delegate
	r.mu.Unlock()

	r.emit(d, func(d tracking.Delegate) { d.OnSessionInterruptionEnded() })
}

// Fail stops tracking and reports err to the delegate.
func (r *Runtime) Fail(err error) {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.running = false
	d := r.delegate
	r.mu.Unlock()

	r.emit(d, func(d tracking.Delegate) { d.OnSessionFailed(err) })
}

// Sync blocks until every callback emitted so far has been delivered.
func (r *Runtime) Sync() {
	r.sendMu.Lock()
	if r.isClosed() {
		r.sendMu.Unlock()
		return
	}
	delivered := make(chan struct{})
	r.callbacks.Send(func() { close(delivered) })
	r.sendMu.Unlock()
	<-delivered
}

// Close stops the callback goroutine after pending callbacks are delivered.
func (r *Runtime) Close() {
	r.sendMu.Lock()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.sendMu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	r.callbacks.Close()
	r.sendMu.Unlock()
	<-r.done
}

func (r *Runtime) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// emit must be called with sendMu held and mu released, so a full buffer
// never blocks BeginTracking or Pause.
func (r *Runtime) emit(d tracking.Delegate, call func(tracking.Delegate)) {
	if d == nil {
		r.logger.Warn("no delegate, dropping callback")
		return
	}
	r.callbacks.Send(func() { call(d) })
}
