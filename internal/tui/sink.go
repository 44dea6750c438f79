package tui

import (
	"context"

	"github.com/arcampus/arcampus/internal/queue"
	"github.com/arcampus/arcampus/pkg/core"

	tea "github.com/charmbracelet/bubbletea"
)

// Sink implements sink.UI and sink.Renderer by forwarding every call to the
// bubbletea program as a message. Calls never block; a pump goroutine
// delivers them in call order.
type Sink struct {
	pending *queue.Queue[tea.Msg]
}

// NewSink creates a sink. Start the pump with Run.
func NewSink() *Sink {
	return &Sink{pending: queue.New[tea.Msg]()}
}

// Run delivers queued messages to send until ctx is done.
// send is usually (*tea.Program).Send.
func (s *Sink) Run(ctx context.Context, send func(tea.Msg)) {
	for {
		for _, msg := range s.pending.GetAndEmpty() {
			send(msg)
		}
		select {
		case <-ctx.Done():
			return
		case <-s.pending.Ready():
		}
	}
}

func (s *Sink) AddOverlayPlane(anchor core.AnchorRef, width, height float64) {
	s.pending.Push(planeAddedMsg{Anchor: anchor, Width: width, Height: height})
}

func (s *Sink) EnsureOverlayWidgetsExist() {
	s.pending.Push(widgetsCreatedMsg{})
}

func (s *Sink) SetLabelText(text string) {
	s.pending.Push(labelMsg{Text: text})
}

func (s *Sink) SetDetailText(text string) {
	s.pending.Push(detailMsg{Text: text})
}

func (s *Sink) SetOverlaysVisible(visible bool) {
	s.pending.Push(overlaysVisibleMsg{Visible: visible})
}

func (s *Sink) SetStatusText(text string) {
	s.pending.Push(statusMsg{Text: text})
}

func (s *Sink) ShowAlert(title, message string) {
	s.pending.Push(alertMsg{Title: title, Message: message})
}
