package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arcampus/arcampus/internal/queue"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrClosed is returned when dispatching to a closed dispatcher.
var ErrClosed = errors.New("dispatcher closed")

// Event is a command delivered to the core by the tracking runtime or a user control.
type Event struct {
	Command   string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	serialized bool
	logged     bool
}

// Serialized runs the handler on the dispatcher's single update lane.
// Dispatch returns immediately; handlers on the lane run one at a time in
// dispatch order.
func Serialized() Option {
	return func(c *config) {
		c.serialized = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// job is one unit of work on the lane. A job with a barrier only signals.
type job struct {
	event   Event
	handler HandlerFunc
	barrier chan struct{}
}

// Dispatcher routes events to registered handlers and owns the serialized
// update lane.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   Logger

	lane      *queue.Queue[job]
	closed    atomic.Bool
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates a new Dispatcher with the given logger and starts its lane.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
		lane:     queue.New[job](),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.lane.size",
		metric.WithDescription("Current number of events waiting on the update lane"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lane size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(d.queueSize, int64(d.lane.Len()))
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering lane callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed on the update lane"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Total lane events whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	go d.run()

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	if cfg.serialized {
		handler = d.withLane(handler)
	}

	d.mu.Lock()
	d.handlers[command] = handler
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Pending returns the number of jobs waiting on the lane.
func (d *Dispatcher) Pending() int {
	return d.lane.Len()
}

// Drain blocks until every job queued before the call has run, or ctx is done.
func (d *Dispatcher) Drain(ctx context.Context) error {
	if d.closed.Load() {
		select {
		case <-d.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	barrier := make(chan struct{})
	d.lane.Push(job{barrier: barrier})

	select {
	case <-barrier:
		return nil
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting lane work, runs what is already queued, and waits
// for the lane to exit.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.closing)
	})
	<-d.done
}

func (d *Dispatcher) withLane(h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		if d.closed.Load() {
			return nil, fmt.Errorf("%w: %s", ErrClosed, e.Command)
		}
		d.lane.Push(job{event: e, handler: h})
		return "queued", nil
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		j, ok := d.lane.TryPop()
		if !ok {
			select {
			case <-d.lane.Ready():
				continue
			case <-d.closing:
				if d.lane.Empty() {
					return
				}
				continue
			}
		}

		if j.barrier != nil {
			close(j.barrier)
			continue
		}

		cmdAttr := attribute.String("command", j.event.Command)
		if _, err := j.handler(j.event); err != nil {
			d.failed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			d.logger.Error("lane handler failed", "command", j.event.Command, "error", err)
		}
		d.processed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "queued", start.Sub(e.Timestamp))

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
