// Package detection turns tracking callbacks and user controls into UI
// updates, overlay planes, and history records. Every state-changing step
// runs on the dispatcher's serialized update lane.
package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arcampus/arcampus/internal/catalog"
	"github.com/arcampus/arcampus/internal/dispatcher"
	"github.com/arcampus/arcampus/internal/history"
	"github.com/arcampus/arcampus/internal/session"
	"github.com/arcampus/arcampus/internal/sink"
	"github.com/arcampus/arcampus/internal/tracking"
	"github.com/arcampus/arcampus/pkg/core"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/arcampus/arcampus/internal/detection"

// Lane commands
const (
	CmdAnchorAdded       = ":ANCHOR:ADDED:"
	CmdStart             = ":SESSION:START:"
	CmdReset             = ":SESSION:RESET:"
	CmdViewWillAppear    = ":VIEW:APPEAR:"
	CmdViewWillDisappear = ":VIEW:DISAPPEAR:"
	CmdInterrupted       = ":SESSION:INTERRUPTED:"
	CmdInterruptionEnded = ":SESSION:INTERRUPTION:ENDED:"
	CmdSessionFailed     = ":SESSION:FAILED:"
	CmdHelp              = ":HELP:"
)

// Tutorial text shown by the help control.
const (
	HelpTitle   = "Tutorial"
	HelpMessage = "Point your camera at desired landmark or object. Press reset if new landmark isn't refreshing."
)

// Status lines shown for session events.
const (
	StatusTracking    = "Point your camera at a landmark"
	StatusPaused      = "Tracking paused"
	StatusInterrupted = "Session interrupted"
	StatusResumed     = "Tracking resumed"
	StatusReset       = "Tracking reset"
	StatusFailed      = "Tracking failed. Press reset to try again."
	failureAlertTitle = "Tracking failed"
)

// Resolver resolves a recognized image identifier to display content.
type Resolver interface {
	Resolve(imageID string) core.ResolvedContent
}

// Journal receives every history record after it is appended.
type Journal interface {
	RecordDetection(rec core.HistoryRecord) error
}

// Metrics receives every history record after it is appended.
type Metrics interface {
	RecordDetection(rec core.HistoryRecord)
}

// Dependencies holds everything the controller needs
type Dependencies struct {
	Resolver   Resolver
	History    *history.Log
	Session    *session.Controller
	Dispatcher *dispatcher.Dispatcher
	Renderer   sink.Renderer
	UI         sink.UI

	// Optional
	Journal Journal
	Metrics Metrics
	Logger  *slog.Logger
	Clock   func() time.Time

	// RecordUnmatched writes history records for detections without a
	// catalog entry.
	RecordUnmatched bool
	// LogEvents adds per-event debug logging on the lane.
	LogEvents bool
}

// Controller implements tracking.Delegate and the user controls.
type Controller struct {
	deps Dependencies

	// lane-only state
	widgetsCreated bool

	detections metric.Int64Counter
	rejected   metric.Int64Counter
}

var _ tracking.Delegate = (*Controller)(nil)

// New validates deps and registers the controller's lane handlers on the dispatcher.
func New(deps Dependencies) (*Controller, error) {
	switch {
	case deps.Resolver == nil:
		return nil, errors.New("detection: resolver is required")
	case deps.History == nil:
		return nil, errors.New("detection: history log is required")
	case deps.Session == nil:
		return nil, errors.New("detection: session controller is required")
	case deps.Dispatcher == nil:
		return nil, errors.New("detection: dispatcher is required")
	case deps.Dispatcher.HasHandler(CmdAnchorAdded):
		// a second controller would replace the first one's handlers
		return nil, errors.New("detection: dispatcher already drives a controller")
	}
	if deps.Renderer == nil {
		deps.Renderer = sink.Discard{}
	}
	if deps.UI == nil {
		deps.UI = sink.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	c := &Controller{deps: deps}

	m := otel.Meter(instrumentationName)
	var err error
	c.detections, err = m.Int64Counter(
		"detection.anchors.handled",
		metric.WithDescription("Anchors resolved and shown"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating detections counter: %w", err)
	}
	c.rejected, err = m.Int64Counter(
		"detection.anchors.rejected",
		metric.WithDescription("Anchors delivered while the session was not running"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	c.registerHandlers()
	return c, nil
}

func (c *Controller) registerHandlers() {
	opts := []dispatcher.Option{dispatcher.Serialized()}
	if c.deps.LogEvents {
		opts = append(opts, dispatcher.Logged())
	}

	d := c.deps.Dispatcher
	d.Register(CmdAnchorAdded, c.handleAnchorAdded, opts...)
	d.Register(CmdStart, c.handleStart, opts...)
	d.Register(CmdReset, c.handleReset, opts...)
	d.Register(CmdViewWillAppear, c.handleAppear, opts...)
	d.Register(CmdViewWillDisappear, c.handleDisappear, opts...)
	d.Register(CmdInterrupted, c.handleInterrupted, opts...)
	d.Register(CmdInterruptionEnded, c.handleInterruptionEnded, opts...)
	d.Register(CmdSessionFailed, c.handleSessionFailed, opts...)
	d.Register(CmdHelp, c.handleHelp, opts...)
}

// OnAnchorAdded is called by the tracking runtime on its own goroutine. The
// whole event, overlay plane included, is queued on the lane so it is judged
// against the session state left by every callback delivered before it.
func (c *Controller) OnAnchorAdded(ev core.DetectionEvent) {
	c.enqueue(CmdAnchorAdded, ev)
}

// OnSessionInterrupted queues an interruption.
func (c *Controller) OnSessionInterrupted() {
	c.enqueue(CmdInterrupted, nil)
}

// OnSessionInterruptionEnded queues the end of an interruption.
func (c *Controller) OnSessionInterruptionEnded() {
	c.enqueue(CmdInterruptionEnded, nil)
}

// OnSessionFailed queues a session failure.
func (c *Controller) OnSessionFailed(err error) {
	c.enqueue(CmdSessionFailed, err)
}

// Start queues the initial session start.
func (c *Controller) Start() error { return c.enqueue(CmdStart, nil) }

// Reset queues a tracking reset. History is kept.
func (c *Controller) Reset() error { return c.enqueue(CmdReset, nil) }

// ViewWillAppear queues a resume of the session.
func (c *Controller) ViewWillAppear() error { return c.enqueue(CmdViewWillAppear, nil) }

// ViewWillDisappear queues a pause of the session.
func (c *Controller) ViewWillDisappear() error { return c.enqueue(CmdViewWillDisappear, nil) }

// Help queues the tutorial alert.
func (c *Controller) Help() error { return c.enqueue(CmdHelp, nil) }

// History returns a snapshot of the history log for presentation.
func (c *Controller) History() []core.HistoryRecord {
	return c.deps.History.All()
}

// Drain waits until all work queued before the call has been handled.
func (c *Controller) Drain(ctx context.Context) error {
	return c.deps.Dispatcher.Drain(ctx)
}

func (c *Controller) enqueue(command string, payload any) error {
	_, err := c.deps.Dispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		c.deps.Logger.Error("Failed to queue event", "command", command, "error", err)
	}
	return err
}

func (c *Controller) handleAnchorAdded(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(core.DetectionEvent)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T for %s", e.Payload, e.Command)
	}

	if !c.deps.Session.AcceptsAnchors() {
		c.rejected.Add(context.Background(), 1)
		c.deps.Logger.Debug("Anchor ignored, session not running", "imageId", ev.ImageID, "state", c.deps.Session.State())
		return nil, nil
	}

	c.deps.Renderer.AddOverlayPlane(ev.Anchor, ev.PhysicalSize.Width, ev.PhysicalSize.Height)
	content := c.deps.Resolver.Resolve(ev.ImageID)

	ui := c.deps.UI
	if !c.widgetsCreated {
		ui.EnsureOverlayWidgetsExist()
		c.widgetsCreated = true
	}
	ui.SetLabelText(content.Title)
	ui.SetDetailText(content.Detail)
	ui.SetOverlaysVisible(true)

	c.detections.Add(context.Background(), 1,
		metric.WithAttributes(attribute.Bool("matched", content.Matched)))

	if !content.Matched && !c.deps.RecordUnmatched {
		c.deps.Logger.Info("Unmatched image shown, not recorded", "imageId", ev.ImageID)
		return nil, nil
	}

	rec := c.deps.History.Append(core.HistoryRecord{
		Name:      catalog.ShortName(content),
		Timestamp: c.deps.Clock(),
		Detail:    content.Detail,
		ImageID:   ev.ImageID,
		Matched:   content.Matched,
	})
	c.deps.Logger.Info("Landmark detected", "name", rec.Name, "imageId", ev.ImageID, "matched", rec.Matched, "seq", rec.Seq)

	if c.deps.Journal != nil {
		if err := c.deps.Journal.RecordDetection(rec); err != nil {
			c.deps.Logger.Error("Failed to journal detection", "seq", rec.Seq, "error", err)
		}
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.RecordDetection(rec)
	}

	return rec, nil
}

func (c *Controller) handleStart(dispatcher.Event) (any, error) {
	if err := c.deps.Session.Start(); err != nil {
		return nil, c.surface(err)
	}
	c.deps.UI.SetStatusText(StatusTracking)
	return nil, nil
}

func (c *Controller) handleReset(dispatcher.Event) (any, error) {
	err := c.deps.Session.Reset()
	if c.widgetsCreated {
		c.deps.UI.SetOverlaysVisible(false)
	}
	if err != nil {
		return nil, c.surface(err)
	}
	c.deps.UI.SetStatusText(StatusReset)
	return nil, nil
}

func (c *Controller) handleAppear(dispatcher.Event) (any, error) {
	if err := c.deps.Session.ViewWillAppear(); err != nil {
		return nil, c.surface(err)
	}
	c.deps.UI.SetStatusText(StatusTracking)
	return nil, nil
}

func (c *Controller) handleDisappear(dispatcher.Event) (any, error) {
	if err := c.deps.Session.ViewWillDisappear(); err != nil {
		return nil, c.surface(err)
	}
	c.deps.UI.SetStatusText(StatusPaused)
	return nil, nil
}

func (c *Controller) handleInterrupted(dispatcher.Event) (any, error) {
	c.deps.Session.Interrupt()
	if c.deps.Session.Interrupted() {
		c.deps.UI.SetStatusText(StatusInterrupted)
	}
	return nil, nil
}

func (c *Controller) handleInterruptionEnded(dispatcher.Event) (any, error) {
	c.deps.Session.EndInterruption()
	if c.deps.Session.State() == core.SessionRunning {
		c.deps.UI.SetStatusText(StatusResumed)
	}
	return nil, nil
}

func (c *Controller) handleSessionFailed(e dispatcher.Event) (any, error) {
	cause, _ := e.Payload.(error)
	if cause == nil {
		cause = errors.New("unknown error")
	}
	err := c.deps.Session.Fail(cause)
	c.deps.UI.SetStatusText(StatusFailed)
	c.deps.UI.ShowAlert(failureAlertTitle, err.Error())
	return nil, nil
}

func (c *Controller) handleHelp(dispatcher.Event) (any, error) {
	c.deps.UI.ShowAlert(HelpTitle, HelpMessage)
	return nil, nil
}

// surface reports a lifecycle error to the user and returns it for the lane log.
func (c *Controller) surface(err error) error {
	switch {
	case errors.Is(err, tracking.ErrSessionFailed):
		c.deps.UI.SetStatusText(StatusFailed)
		c.deps.UI.ShowAlert(failureAlertTitle, err.Error())
	default:
		c.deps.UI.SetStatusText(err.Error())
	}
	return err
}
