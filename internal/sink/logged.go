package sink

import (
	"log/slog"
	"sync"

	"github.com/arcampus/arcampus/pkg/core"
)

// Logged is a headless Renderer and UI that logs every command and keeps
// the latest widget state for inspection.
type Logged struct {
	logger *slog.Logger

	mu      sync.Mutex
	label   string
	detail  string
	visible bool
	status  string
	planes  int
}

// NewLogged creates a Logged sink writing to logger.
func NewLogged(logger *slog.Logger) *Logged {
	return &Logged{logger: logger}
}

func (s *Logged) AddOverlayPlane(anchor core.AnchorRef, width, height float64) {
	s.mu.Lock()
	s.planes++
	s.mu.Unlock()
	s.logger.Debug("overlay plane added", "anchor", anchor, "width", width, "height", height, "opacity", PlaneOpacity)
}

func (s *Logged) EnsureOverlayWidgetsExist() {
	s.logger.Debug("overlay widgets created")
}

func (s *Logged) SetLabelText(text string) {
	s.mu.Lock()
	s.label = text
	s.mu.Unlock()
	s.logger.Info("label", "text", text)
}

func (s *Logged) SetDetailText(text string) {
	s.mu.Lock()
	s.detail = text
	s.mu.Unlock()
	s.logger.Debug("detail", "text", text)
}

func (s *Logged) SetOverlaysVisible(visible bool) {
	s.mu.Lock()
	s.visible = visible
	s.mu.Unlock()
	s.logger.Debug("overlays visible", "visible", visible)
}

func (s *Logged) SetStatusText(text string) {
	s.mu.Lock()
	s.status = text
	s.mu.Unlock()
	s.logger.Info("status", "text", text)
}

func (s *Logged) ShowAlert(title, message string) {
	s.logger.Warn("alert", "title", title, "message", message)
}

// Snapshot returns the current label, detail, visibility, and plane count.
func (s *Logged) Snapshot() (label, detail string, visible bool, planes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label, s.detail, s.visible, s.planes
}

// Status returns the last status line.
func (s *Logged) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
