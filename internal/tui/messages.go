package tui

import "github.com/arcampus/arcampus/pkg/core"

// Messages carried from the sink to the bubbletea program. Each mirrors one
// sink call.

type widgetsCreatedMsg struct{}

type labelMsg struct{ Text string }

type detailMsg struct{ Text string }

type overlaysVisibleMsg struct{ Visible bool }

type statusMsg struct{ Text string }

type alertMsg struct {
	Title   string
	Message string
}

type planeAddedMsg struct {
	Anchor        core.AnchorRef
	Width, Height float64
}
