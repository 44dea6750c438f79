// Package sink defines the output surfaces the core writes to: the 3D
// rendering layer and the on-screen widgets.
package sink

import "github.com/arcampus/arcampus/pkg/core"

// PlaneOpacity is the opacity of the overlay plane drawn over a detected image.
const PlaneOpacity = 0.25

// Renderer attaches overlay geometry to anchors. AddOverlayPlane draws a
// semi-transparent plane of the given size, lying flat on the anchor.
type Renderer interface {
	AddOverlayPlane(anchor core.AnchorRef, width, height float64)
}

// UI receives widget commands. All calls arrive on the serialized update path.
type UI interface {
	EnsureOverlayWidgetsExist()
	SetLabelText(text string)
	SetDetailText(text string)
	SetOverlaysVisible(visible bool)
	SetStatusText(text string)
	ShowAlert(title, message string)
}

// Discard implements Renderer and UI and drops every command.
type Discard struct{}

func (Discard) AddOverlayPlane(core.AnchorRef, float64, float64) {}
func (Discard) EnsureOverlayWidgetsExist()                       {}
func (Discard) SetLabelText(string)                              {}
func (Discard) SetDetailText(string)                             {}
func (Discard) SetOverlaysVisible(bool)                          {}
func (Discard) SetStatusText(string)                             {}
func (Discard) ShowAlert(string, string)                         {}
