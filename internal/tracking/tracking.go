// Package tracking defines the contract between the core and the camera
// tracking runtime that detects reference images and emits anchors.
package tracking

import (
	"errors"

	"github.com/arcampus/arcampus/pkg/core"
)

// ErrSessionFailed wraps errors reported by the runtime through
// Delegate.OnSessionFailed.
var ErrSessionFailed = errors.New("tracking session failed")

// Config is the detection-tracking configuration passed to BeginTracking.
type Config struct {
	ReferenceImages []core.ImageDescriptor
	// ResetTracking resets the tracking origin.
	ResetTracking bool
	// RemoveExistingAnchors drops every anchor so images can be detected again.
	RemoveExistingAnchors bool
}

// Runtime is the tracking runtime the core drives.
type Runtime interface {
	BeginTracking(cfg Config) error
	Pause()
}

// Delegate receives callbacks from the runtime. Implementations must not
// assume anything about the calling goroutine.
type Delegate interface {
	OnAnchorAdded(ev core.DetectionEvent)
	OnSessionInterrupted()
	OnSessionInterruptionEnded()
	OnSessionFailed(err error)
}
