// Package tui is the terminal front end: an AR view with the detected
// landmark's label and detail, a tutorial alert, and the history pages.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arcampus/arcampus/internal/history"
	"github.com/arcampus/arcampus/pkg/core"
	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"
)

// Screen is the page currently shown.
type Screen int

const (
	ScreenAR Screen = iota
	ScreenHistory
	ScreenDetail
)

// Controller is the subset of the detection controller the UI drives.
type Controller interface {
	Reset() error
	Help() error
	ViewWillAppear() error
	ViewWillDisappear() error
}

// Camera is the tracking runtime as seen from the keyboard.
type Camera interface {
	Point(imageID string) error
	Interrupt()
	EndInterruption()
	ReferenceImages() []core.ImageDescriptor
}

// Model is the root bubbletea model.
type Model struct {
	ctrl    Controller
	camera  Camera
	history *history.Log
	now     func() time.Time

	screen Screen
	width  int
	height int

	// AR view
	widgets      bool
	label        string
	detail       string
	overlays     bool
	planes       int
	lastPlane    string
	detailScroll int
	statusText   string
	errorText    string

	// tracking toggles
	userPaused    bool
	historyPaused bool
	interrupted   bool

	// alert
	alertTitle   string
	alertMessage string

	// history pages
	rows     []history.Row
	selected int
	page     history.DetailView
}

// New creates the model. now may be nil.
func New(ctrl Controller, camera Camera, log *history.Log, now func() time.Time) Model {
	if now == nil {
		now = time.Now
	}
	return Model{
		ctrl:       ctrl,
		camera:     camera,
		history:    log,
		now:        now,
		statusText: "Starting...",
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case widgetsCreatedMsg:
		m.widgets = true

	case labelMsg:
		m.label = msg.Text

	case detailMsg:
		m.detail = msg.Text
		m.detailScroll = 0

	case overlaysVisibleMsg:
		m.overlays = msg.Visible

	case statusMsg:
		m.statusText = msg.Text
		m.errorText = ""

	case alertMsg:
		m.alertTitle = msg.Title
		m.alertMessage = msg.Message

	case planeAddedMsg:
		m.planes++
		m.lastPlane = fmt.Sprintf("%.2fm x %.2fm", msg.Width, msg.Height)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == KeyCtrlC || key == KeyQuit {
		return m, tea.Quit
	}

	// any key dismisses the alert
	if m.alertTitle != "" {
		m.alertTitle = ""
		m.alertMessage = ""
		return m, nil
	}

	switch m.screen {
	case ScreenHistory:
		return m.handleHistoryKey(key)
	case ScreenDetail:
		if key == KeyBack {
			m.screen = ScreenHistory
		}
		return m, nil
	}

	switch key {
	case KeyReset:
		m.report(m.ctrl.Reset())
	case KeyHelp:
		m.report(m.ctrl.Help())
	case KeyHistory:
		m.openHistory()
	case KeyInterruption:
		if m.interrupted {
			m.camera.EndInterruption()
		} else {
			m.camera.Interrupt()
		}
		m.interrupted = !m.interrupted
	case KeyPause:
		if m.userPaused {
			m.report(m.ctrl.ViewWillAppear())
		} else {
			m.report(m.ctrl.ViewWillDisappear())
		}
		m.userPaused = !m.userPaused
	case KeyUp, KeyK:
		if m.detailScroll > 0 {
			m.detailScroll--
		}
	case KeyDown, KeyJ:
		m.detailScroll++
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 {
			m.detect(n - 1)
		}
	}
	return m, nil
}

func (m Model) handleHistoryKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case KeyBack:
		m.closeHistory()
	case KeyUp, KeyK:
		if m.selected > 0 {
			m.selected--
		}
	case KeyDown, KeyJ:
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
	case KeyEnter:
		if m.selected < len(m.rows) {
			if page, ok := history.Detail(m.history, m.rows[m.selected].ID); ok {
				m.page = page
				m.screen = ScreenDetail
			}
		}
	}
	return m, nil
}

// openHistory leaves the AR view, which pauses tracking like any other
// navigation away from it.
func (m *Model) openHistory() {
	if !m.userPaused && !m.interrupted {
		m.report(m.ctrl.ViewWillDisappear())
		m.historyPaused = true
	}
	m.rows = history.Rows(m.history.All(), m.now())
	m.selected = 0
	m.screen = ScreenHistory
}

func (m *Model) closeHistory() {
	if m.historyPaused {
		m.report(m.ctrl.ViewWillAppear())
		m.historyPaused = false
	}
	m.screen = ScreenAR
}

func (m *Model) detect(index int) {
	images := m.camera.ReferenceImages()
	if index >= len(images) {
		return
	}
	if err := m.camera.Point(images[index].ID); err != nil {
		m.errorText = err.Error() + " (press r to reset if a landmark isn't refreshing)"
	}
}

func (m *Model) report(err error) {
	if err != nil {
		m.errorText = err.Error()
	}
}

// View renders the current screen.
func (m Model) View() string {
	var body string
	switch m.screen {
	case ScreenHistory:
		body = m.viewHistory()
	case ScreenDetail:
		body = m.viewDetail()
	default:
		body = m.viewAR()
	}

	if m.alertTitle != "" {
		alert := AlertStyle.Render(TitleStyle.Render(m.alertTitle) + "\n\n" + m.wrap(m.alertMessage))
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", alert)
	}
	return body
}

func (m Model) viewAR() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("arcampus"))
	b.WriteString("\n\n")

	if m.widgets && m.overlays {
		b.WriteString(LabelStyle.Render(m.label))
		b.WriteString("\n")
		b.WriteString(DetailBoxStyle.Render(m.scrolledDetail()))
		b.WriteString("\n")
	} else {
		b.WriteString(HintStyle.Render("No landmark in view"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(StatusStyle.Render(fmt.Sprintf("%s | planes: %d", m.statusText, m.planes)))
	if m.lastPlane != "" {
		b.WriteString(StatusStyle.Render(" | last: " + m.lastPlane))
	}
	b.WriteString("\n")
	if m.errorText != "" {
		b.WriteString(ErrorStyle.Render(m.errorText))
		b.WriteString("\n")
	}

	var targets []string
	for i, img := range m.camera.ReferenceImages() {
		if i >= 9 {
			break
		}
		targets = append(targets, fmt.Sprintf("%d:%s", i+1, img.ID))
	}
	b.WriteString(HintStyle.Render(strings.Join(targets, "  ")))
	b.WriteString("\n")
	b.WriteString(HintStyle.Render("r reset  h help  l history  i interrupt  p pause  q quit"))
	return b.String()
}

// detailLines is the height of the scrolling detail box.
const detailLines = 6

func (m Model) scrolledDetail() string {
	lines := strings.Split(m.wrap(m.detail), "\n")
	start := min(m.detailScroll, max(0, len(lines)-detailLines))
	end := min(start+detailLines, len(lines))
	return strings.Join(lines[start:end], "\n")
}

func (m Model) wrap(text string) string {
	width := m.width - 6
	if width < 20 {
		width = 60
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}

func (m Model) viewHistory() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(history.ListTitle))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(HintStyle.Render("Nothing scanned yet"))
		b.WriteString("\n")
	}
	for i, row := range m.rows {
		line := fmt.Sprintf("%s\n    %s (%s)", row.Name, row.Scanned, row.Age)
		if i == m.selected {
			b.WriteString(SelectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(HintStyle.Render("enter open  esc back"))
	return b.String()
}

func (m Model) viewDetail() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.page.Title))
	b.WriteString("\n\n")
	b.WriteString(LabelStyle.Render(m.page.Heading))
	b.WriteString("\n")
	b.WriteString(m.wrap(m.page.Text))
	b.WriteString("\n\n")
	b.WriteString(HintStyle.Render("esc back"))
	return b.String()
}
