package detection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/arcampus/arcampus/internal/catalog"
	"github.com/arcampus/arcampus/internal/dispatcher"
	"github.com/arcampus/arcampus/internal/history"
	"github.com/arcampus/arcampus/internal/logging"
	"github.com/arcampus/arcampus/internal/session"
	"github.com/arcampus/arcampus/internal/tracking"
	"github.com/arcampus/arcampus/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rushRheesDetail = "Located on the River Campus..."

// fakeRuntime records tracking calls
type fakeRuntime struct {
	mu     sync.Mutex
	begins []tracking.Config
	pauses int
}

func (r *fakeRuntime) BeginTracking(cfg tracking.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begins = append(r.begins, cfg)
	return nil
}

func (r *fakeRuntime) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauses++
}

func (r *fakeRuntime) resetBegins() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, cfg := range r.begins {
		if cfg.ResetTracking {
			n++
		}
	}
	return n
}

// recordingUI records UI and rendering commands
type recordingUI struct {
	mu      sync.Mutex
	calls   []string
	label   string
	detail  string
	visible bool
	status  string
	alerts  []string
	planes  []core.AnchorRef
	created int
}

func (u *recordingUI) AddOverlayPlane(anchor core.AnchorRef, width, height float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.planes = append(u.planes, anchor)
	u.calls = append(u.calls, fmt.Sprintf("plane %v %.2fx%.2f", anchor, width, height))
}

func (u *recordingUI) EnsureOverlayWidgetsExist() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.created++
	u.calls = append(u.calls, "create")
}

func (u *recordingUI) SetLabelText(text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.label = text
	u.calls = append(u.calls, "label "+text)
}

func (u *recordingUI) SetDetailText(text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.detail = text
	u.calls = append(u.calls, "detail")
}

func (u *recordingUI) SetOverlaysVisible(visible bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.visible = visible
	u.calls = append(u.calls, fmt.Sprintf("visible %t", visible))
}

func (u *recordingUI) SetStatusText(text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = text
}

func (u *recordingUI) ShowAlert(title, message string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.alerts = append(u.alerts, title+": "+message)
}

func (u *recordingUI) snapshot() recordingUI {
	u.mu.Lock()
	defer u.mu.Unlock()
	return recordingUI{
		calls:   append([]string(nil), u.calls...),
		label:   u.label,
		detail:  u.detail,
		visible: u.visible,
		status:  u.status,
		alerts:  append([]string(nil), u.alerts...),
		planes:  append([]core.AnchorRef(nil), u.planes...),
		created: u.created,
	}
}

// fakeJournal records journaled records and can fail
type fakeJournal struct {
	mu      sync.Mutex
	records []core.HistoryRecord
	err     error
}

func (j *fakeJournal) RecordDetection(rec core.HistoryRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return j.err
}

type harness struct {
	ctrl    *Controller
	runtime *fakeRuntime
	ui      *recordingUI
	log     *history.Log
	session *session.Controller
	journal *fakeJournal
}

func newHarness(t *testing.T, recordUnmatched bool) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cat, err := catalog.New(
		[]core.LandmarkEntry{{ID: "rr_1", Title: "Rush Rhees", Detail: rushRheesDetail}},
		[]core.ImageDescriptor{
			{ID: "rr_1", PhysicalSize: core.Size{Width: 0.2, Height: 0.15}},
			{ID: "unknown_x", PhysicalSize: core.Size{Width: 0.1, Height: 0.1}},
		},
	)
	require.NoError(t, err)

	rt := &fakeRuntime{}
	sess, err := session.New(rt, cat.ReferenceImages(), logger)
	require.NoError(t, err)

	d, err := dispatcher.New(logging.NewDispatcherLogger(logger))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	ui := &recordingUI{}
	log := history.NewLog(nil)
	journal := &fakeJournal{}

	ctrl, err := New(Dependencies{
		Resolver:        cat,
		History:         log,
		Session:         sess,
		Dispatcher:      d,
		Renderer:        ui,
		UI:              ui,
		Journal:         journal,
		Logger:          logger,
		RecordUnmatched: recordUnmatched,
		LogEvents:       true,
	})
	require.NoError(t, err)

	return &harness{ctrl: ctrl, runtime: rt, ui: ui, log: log, session: sess, journal: journal}
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.ctrl.Drain(ctx))
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Start())
	h.drain(t)
	require.Equal(t, core.SessionRunning, h.session.State())
}

func detect(id string) core.DetectionEvent {
	sizes := map[string]core.Size{
		"rr_1":      {Width: 0.2, Height: 0.15},
		"unknown_x": {Width: 0.1, Height: 0.1},
	}
	return core.DetectionEvent{ImageID: id, PhysicalSize: sizes[id], Anchor: "anchor-" + id}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Dependencies{})
	require.Error(t, err)
}

func TestNew_RefusesSharedDispatcher(t *testing.T) {
	h := newHarness(t, true)

	_, err := New(h.ctrl.deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already drives a controller")

	// the first controller still owns the lane
	h.start(t)
	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)
	assert.Equal(t, 1, h.log.Len())
}

func TestScenario_RushRheesThenUnknown(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)

	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)

	ui := h.ui.snapshot()
	assert.Equal(t, "Detected: Rush Rhees", ui.label)
	assert.Equal(t, rushRheesDetail, ui.detail)
	assert.True(t, ui.visible)
	require.Equal(t, 1, h.log.Len())
	assert.Equal(t, "Rush Rhees", h.log.All()[0].Name)
	assert.True(t, h.log.All()[0].Matched)

	h.ctrl.OnAnchorAdded(detect("unknown_x"))
	h.drain(t)

	ui = h.ui.snapshot()
	assert.Equal(t, "Detected: Unknown Image", ui.label)
	assert.Equal(t, "Please try again.", ui.detail)
	require.Equal(t, 2, h.log.Len())
	second := h.log.All()[1]
	assert.Equal(t, "Unknown Image", second.Name)
	assert.Equal(t, "Please try again.", second.Detail)
	assert.False(t, second.Matched)
}

func TestUnmatchedPolicy_Skip(t *testing.T) {
	h := newHarness(t, false)
	h.start(t)

	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.ctrl.OnAnchorAdded(detect("unknown_x"))
	h.drain(t)

	// the fallback is still shown
	assert.Equal(t, "Detected: Unknown Image", h.ui.snapshot().label)
	require.Equal(t, 1, h.log.Len())
	assert.Equal(t, "Rush Rhees", h.log.All()[0].Name)
	assert.Len(t, h.journal.records, 1)
}

func TestDetection_StepOrder(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)

	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)

	assert.Equal(t, []string{
		"plane anchor-rr_1 0.20x0.15",
		"create",
		"label Detected: Rush Rhees",
		"detail",
		"visible true",
	}, h.ui.snapshot().calls)
}

func TestDetection_WidgetsCreatedOnce(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)

	for i := 0; i < 5; i++ {
		h.ctrl.OnAnchorAdded(detect("rr_1"))
	}
	require.NoError(t, h.ctrl.Reset())
	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)

	assert.Equal(t, 1, h.ui.snapshot().created)
	assert.Equal(t, 6, h.log.Len(), "repeat visits are all recorded")
}

func TestDetection_HistoryDetailMatchesUI(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)

	for _, id := range []string{"rr_1", "unknown_x", "rr_1"} {
		h.ctrl.OnAnchorAdded(detect(id))
		h.drain(t)

		records := h.log.All()
		last := records[len(records)-1]
		assert.Equal(t, h.ui.snapshot().detail, last.Detail)
	}
}

func TestDetection_FIFOWithDeliveryOrder(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)

	var order []string
	for i := 0; i < 50; i++ {
		id := "rr_1"
		if i%2 == 1 {
			id = "unknown_x"
		}
		order = append(order, id)
		// each callback comes from a fresh goroutine, delivered in sequence
		done := make(chan struct{})
		go func(id string) {
			defer close(done)
			h.ctrl.OnAnchorAdded(detect(id))
		}(id)
		<-done
	}
	h.drain(t)

	records := h.log.All()
	require.Len(t, records, len(order))
	for i, rec := range records {
		assert.Equal(t, order[i], rec.ImageID, "position %d", i)
		assert.Equal(t, uint64(i+1), rec.Seq)
	}
}

func TestDetection_ConcurrentCallbacksAndResets(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.ctrl.OnAnchorAdded(detect("rr_1"))
		}()
		go func() {
			defer wg.Done()
			h.ctrl.Reset()
		}()
	}
	wg.Wait()
	h.drain(t)

	assert.Equal(t, core.SessionRunning, h.session.State())
	assert.Equal(t, 20, h.runtime.resetBegins())
	for i, rec := range h.log.All() {
		assert.Equal(t, uint64(i+1), rec.Seq)
	}
}

func TestScenario_ResetWhileRunning(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)
	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)
	require.True(t, h.ui.snapshot().visible)
	before := h.log.Len()

	require.NoError(t, h.ctrl.Reset())
	h.drain(t)

	assert.False(t, h.ui.snapshot().visible)
	assert.Equal(t, before, h.log.Len())
	assert.Equal(t, core.SessionRunning, h.session.State())
	assert.Equal(t, 1, h.runtime.resetBegins())
	assert.Equal(t, StatusReset, h.ui.snapshot().status)
}

func TestReset_Twice(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)

	require.NoError(t, h.ctrl.Reset())
	require.NoError(t, h.ctrl.Reset())
	h.drain(t)

	assert.Equal(t, core.SessionRunning, h.session.State())
	assert.Len(t, h.runtime.begins, 3)
	assert.Equal(t, 2, h.runtime.resetBegins())
}

func TestReset_BeforeAnyDetectionDoesNotTouchWidgets(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)

	require.NoError(t, h.ctrl.Reset())
	h.drain(t)

	ui := h.ui.snapshot()
	assert.Equal(t, 0, ui.created)
	assert.Empty(t, ui.calls)
}

func TestReset_QueuedAnchorStillRecorded(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)

	h.ctrl.OnAnchorAdded(detect("rr_1"))
	require.NoError(t, h.ctrl.Reset())
	h.drain(t)

	assert.Equal(t, 1, h.log.Len())
	assert.False(t, h.ui.snapshot().visible, "reset ran after the queued anchor")
}

func TestScenario_InterruptionRoundTrip(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)

	h.ctrl.OnSessionInterrupted()
	h.drain(t)
	assert.Equal(t, core.SessionPaused, h.session.State())
	assert.Equal(t, StatusInterrupted, h.ui.snapshot().status)

	h.ctrl.OnSessionInterruptionEnded()
	h.drain(t)

	assert.Equal(t, 0, h.log.Len())
	assert.Equal(t, core.SessionRunning, h.session.State())
	assert.Equal(t, StatusResumed, h.ui.snapshot().status)
}

func TestInterruption_AnchorsRejected(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)
	h.ctrl.OnSessionInterrupted()
	h.drain(t)

	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)

	assert.Equal(t, 0, h.log.Len())
	assert.Empty(t, h.ui.snapshot().planes)

	h.ctrl.OnSessionInterruptionEnded()
	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)

	assert.Equal(t, 1, h.log.Len())
}

func TestInterruption_AnchorRightAfterInterruptIsRejected(t *testing.T) {
	for i := 0; i < 50; i++ {
		h := newHarness(t, true)
		h.start(t)

		h.ctrl.OnSessionInterrupted()
		h.ctrl.OnAnchorAdded(detect("rr_1"))
		h.drain(t)

		require.Equal(t, core.SessionPaused, h.session.State())
		require.Equal(t, 0, h.log.Len(), "run %d", i)
		require.Empty(t, h.ui.snapshot().planes, "run %d", i)
	}
}

func TestInterruption_AnchorRightAfterEndIsRecorded(t *testing.T) {
	for i := 0; i < 50; i++ {
		h := newHarness(t, true)
		h.start(t)
		h.ctrl.OnSessionInterrupted()
		h.drain(t)

		h.ctrl.OnSessionInterruptionEnded()
		h.ctrl.OnAnchorAdded(detect("rr_1"))
		h.drain(t)

		require.Equal(t, core.SessionRunning, h.session.State())
		require.Equal(t, 1, h.log.Len(), "run %d", i)
		require.Len(t, h.ui.snapshot().planes, 1, "run %d", i)
	}
}

func TestAnchorAfterQueuedLifecycleCommands(t *testing.T) {
	h := newHarness(t, true)

	// start is still queued when the anchor arrives
	require.NoError(t, h.ctrl.Start())
	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)
	assert.Equal(t, 1, h.log.Len())

	// so is the pause
	require.NoError(t, h.ctrl.ViewWillDisappear())
	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)
	assert.Equal(t, 1, h.log.Len())

	require.NoError(t, h.ctrl.ViewWillAppear())
	h.ctrl.OnAnchorAdded(detect("unknown_x"))
	h.drain(t)
	assert.Equal(t, 2, h.log.Len())
}

func TestAnchorsBeforeStartAreRejected(t *testing.T) {
	h := newHarness(t, true)

	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)

	assert.Equal(t, 0, h.log.Len())
	assert.Empty(t, h.ui.snapshot().calls)
}

func TestPauseResume(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)

	require.NoError(t, h.ctrl.ViewWillDisappear())
	h.drain(t)
	assert.Equal(t, core.SessionPaused, h.session.State())
	assert.Equal(t, StatusPaused, h.ui.snapshot().status)

	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)
	assert.Equal(t, 0, h.log.Len())

	require.NoError(t, h.ctrl.ViewWillAppear())
	h.drain(t)
	assert.Equal(t, core.SessionRunning, h.session.State())
	assert.Equal(t, 1, h.runtime.pauses)
	assert.Equal(t, 0, h.runtime.resetBegins())
}

func TestSessionFailure(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)
	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)

	h.ctrl.OnSessionFailed(errors.New("camera disconnected"))
	h.drain(t)

	ui := h.ui.snapshot()
	assert.Equal(t, core.SessionIdle, h.session.State())
	assert.Equal(t, StatusFailed, ui.status)
	require.Len(t, ui.alerts, 1)
	assert.Contains(t, ui.alerts[0], "camera disconnected")
	assert.Equal(t, 1, h.log.Len(), "history is unaffected by failures")
	assert.True(t, errors.Is(h.session.LastError(), tracking.ErrSessionFailed))

	// no automatic recovery
	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)
	assert.Equal(t, 1, h.log.Len())

	require.NoError(t, h.ctrl.Reset())
	h.drain(t)
	assert.Equal(t, core.SessionRunning, h.session.State())
}

func TestInvalidTransitionSurfacedAsStatus(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)

	require.NoError(t, h.ctrl.Start())
	h.drain(t)

	assert.Contains(t, h.ui.snapshot().status, session.ErrInvalidTransition.Error())
	assert.Equal(t, core.SessionRunning, h.session.State())
}

func TestHelp(t *testing.T) {
	h := newHarness(t, true)

	require.NoError(t, h.ctrl.Help())
	h.drain(t)

	assert.Equal(t, []string{HelpTitle + ": " + HelpMessage}, h.ui.snapshot().alerts)
}

func TestJournalFailureDoesNotAffectHistory(t *testing.T) {
	h := newHarness(t, true)
	h.journal.err = errors.New("disk full")
	h.start(t)

	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)

	assert.Equal(t, 1, h.log.Len())
	require.Len(t, h.journal.records, 1)
	assert.Equal(t, h.log.All()[0], h.journal.records[0])
}

func TestHistorySnapshot(t *testing.T) {
	h := newHarness(t, true)
	h.start(t)
	h.ctrl.OnAnchorAdded(detect("rr_1"))
	h.drain(t)

	snap := h.ctrl.History()
	require.Len(t, snap, 1)
	assert.Equal(t, "Rush Rhees", snap[0].Name)
}
