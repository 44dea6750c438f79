package core

import "time"

// SessionState is the lifecycle state of the AR session.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionRunning
	SessionPaused
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionRunning:
		return "running"
	case SessionPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// SessionInfo describes one run of the application for the detection journal.
type SessionInfo struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"startedAt"`
	ReferenceImages []string  `json:"referenceImages"`
}
