package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arcampus/arcampus/internal/history"
	"github.com/arcampus/arcampus/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeController struct {
	calls []string
}

func (c *fakeController) Reset() error          { c.calls = append(c.calls, "reset"); return nil }
func (c *fakeController) Help() error           { c.calls = append(c.calls, "help"); return nil }
func (c *fakeController) ViewWillAppear() error { c.calls = append(c.calls, "appear"); return nil }
func (c *fakeController) ViewWillDisappear() error {
	c.calls = append(c.calls, "disappear")
	return nil
}

type fakeCamera struct {
	calls []string
	err   error
}

func (c *fakeCamera) Point(id string) error {
	c.calls = append(c.calls, "point "+id)
	return c.err
}
func (c *fakeCamera) Interrupt()       { c.calls = append(c.calls, "interrupt") }
func (c *fakeCamera) EndInterruption() { c.calls = append(c.calls, "end") }
func (c *fakeCamera) ReferenceImages() []core.ImageDescriptor {
	return []core.ImageDescriptor{{ID: "rr_1"}, {ID: "unknown_x"}}
}

var now = time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC)

func newTestModel() (Model, *fakeController, *fakeCamera, *history.Log) {
	ctrl := &fakeController{}
	cam := &fakeCamera{}
	ids := 0
	log := history.NewLog(func() string {
		ids++
		return "id-" + string(rune('0'+ids))
	})
	return New(ctrl, cam, log, func() time.Time { return now }), ctrl, cam, log
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		updated, _ := m.Update(key(k))
		m = updated.(Model)
	}
	return m
}

func apply(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func TestNewModel(t *testing.T) {
	m, _, _, _ := newTestModel()
	assert.Equal(t, ScreenAR, m.screen)
	assert.False(t, m.widgets)
	assert.Contains(t, m.View(), "No landmark in view")
}

func TestDigitPointsCamera(t *testing.T) {
	m, _, cam, _ := newTestModel()

	m = press(t, m, "1", "2", "9")

	assert.Equal(t, []string{"point rr_1", "point unknown_x"}, cam.calls)
}

func TestDigitErrorShown(t *testing.T) {
	m, _, cam, _ := newTestModel()
	cam.err = errors.New("image already anchored: rr_1")

	m = press(t, m, "1")

	assert.Contains(t, m.errorText, "image already anchored")
	assert.Contains(t, m.View(), "press r to reset")
}

func TestSinkMessagesRenderOverlay(t *testing.T) {
	m, _, _, _ := newTestModel()

	m = apply(m,
		planeAddedMsg{Anchor: "a", Width: 0.2, Height: 0.15},
		widgetsCreatedMsg{},
		labelMsg{Text: "Detected: Rush Rhees"},
		detailMsg{Text: "Located on the River Campus"},
		overlaysVisibleMsg{Visible: true},
		statusMsg{Text: "Point your camera at a landmark"},
	)

	view := m.View()
	assert.Contains(t, view, "Detected: Rush Rhees")
	assert.Contains(t, view, "Located on the River Campus")
	assert.Contains(t, view, "planes: 1")
	assert.Contains(t, view, "0.20m x 0.15m")

	m = apply(m, overlaysVisibleMsg{Visible: false})
	assert.NotContains(t, m.View(), "Detected: Rush Rhees")
}

func TestControlKeys(t *testing.T) {
	m, ctrl, cam, _ := newTestModel()

	m = press(t, m, "r", "h", "p", "p", "i", "i")

	assert.Equal(t, []string{"reset", "help", "disappear", "appear"}, ctrl.calls)
	assert.Equal(t, []string{"interrupt", "end"}, cam.calls)
}

func TestAlertDismissedByAnyKey(t *testing.T) {
	m, ctrl, _, _ := newTestModel()

	m = apply(m, alertMsg{Title: "Tutorial", Message: "Point your camera"})
	assert.Contains(t, m.View(), "Tutorial")

	m = press(t, m, "r")
	assert.Empty(t, m.alertTitle)
	assert.Empty(t, ctrl.calls, "dismissing key is not forwarded")
}

func TestHistoryNavigation(t *testing.T) {
	m, ctrl, _, log := newTestModel()
	log.Append(core.HistoryRecord{Name: "Rush Rhees", Timestamp: now.Add(-time.Hour), Detail: "first visit"})
	log.Append(core.HistoryRecord{Name: "Rush Rhees", Timestamp: now.Add(-time.Hour), Detail: "second visit"})

	m = press(t, m, "l")
	require.Equal(t, ScreenHistory, m.screen)
	assert.Equal(t, []string{"disappear"}, ctrl.calls)
	require.Len(t, m.rows, 2)
	assert.Contains(t, m.View(), history.ListTitle)
	assert.Contains(t, m.View(), "1 hour ago")

	// identical timestamps still open the record that was selected
	m = press(t, m, "down", "enter")
	require.Equal(t, ScreenDetail, m.screen)
	assert.Equal(t, "second visit", m.page.Text)
	assert.Contains(t, m.View(), history.DetailHeading)

	m = press(t, m, "esc")
	assert.Equal(t, ScreenHistory, m.screen)
	m = press(t, m, "esc")
	assert.Equal(t, ScreenAR, m.screen)
	assert.Equal(t, []string{"disappear", "appear"}, ctrl.calls)
}

func TestHistoryWhileUserPaused(t *testing.T) {
	m, ctrl, _, _ := newTestModel()

	m = press(t, m, "p", "l", "esc")

	assert.Equal(t, []string{"disappear"}, ctrl.calls)
	assert.Contains(t, m.View(), "arcampus")
}

func TestEmptyHistory(t *testing.T) {
	m, _, _, _ := newTestModel()
	m = press(t, m, "l", "enter")
	assert.Equal(t, ScreenHistory, m.screen)
	assert.Contains(t, m.View(), "Nothing scanned yet")
}

func TestDetailScroll(t *testing.T) {
	m, _, _, _ := newTestModel()
	m.width = 40
	long := strings.Repeat("word ", 200)
	m = apply(m, widgetsCreatedMsg{}, detailMsg{Text: long}, overlaysVisibleMsg{Visible: true})

	m = press(t, m, "down", "down", "up")
	assert.Equal(t, 1, m.detailScroll)

	m = apply(m, detailMsg{Text: "short"})
	assert.Equal(t, 0, m.detailScroll)
}

func TestQuit(t *testing.T) {
	m, _, _, _ := newTestModel()
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestSinkDeliversInOrder(t *testing.T) {
	s := NewSink()
	var (
		mu  sync.Mutex
		got []tea.Msg
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx, func(msg tea.Msg) {
			mu.Lock()
			got = append(got, msg)
			mu.Unlock()
		})
	}()

	s.AddOverlayPlane("a", 0.2, 0.15)
	s.EnsureOverlayWidgetsExist()
	s.SetLabelText("Detected: Rush Rhees")
	s.SetDetailText("detail")
	s.SetOverlaysVisible(true)
	s.SetStatusText("ok")
	s.ShowAlert("Tutorial", "text")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 7
	}, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []tea.Msg{
		planeAddedMsg{Anchor: "a", Width: 0.2, Height: 0.15},
		widgetsCreatedMsg{},
		labelMsg{Text: "Detected: Rush Rhees"},
		detailMsg{Text: "detail"},
		overlaysVisibleMsg{Visible: true},
		statusMsg{Text: "ok"},
		alertMsg{Title: "Tutorial", Message: "text"},
	}, got)
}

func TestSinkFlushesBacklogBeforeStopping(t *testing.T) {
	s := NewSink()
	s.SetStatusText("Point the camera at a landmark")
	s.SetLabelText("Detected: Rush Rhees")
	s.SetOverlaysVisible(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got []tea.Msg
	s.Run(ctx, func(msg tea.Msg) { got = append(got, msg) })

	assert.Equal(t, []tea.Msg{
		statusMsg{Text: "Point the camera at a landmark"},
		labelMsg{Text: "Detected: Rush Rhees"},
		overlaysVisibleMsg{Visible: true},
	}, got)
	assert.True(t, s.pending.Empty())
}
