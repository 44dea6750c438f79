package core

import "time"

// AnchorRef is an opaque handle to a tracked anchor. The core passes it back
// to the rendering sink unchanged.
type AnchorRef any

// DetectionEvent is delivered by the tracking runtime once per newly added
// image anchor.
type DetectionEvent struct {
	ImageID      string
	PhysicalSize Size
	Anchor       AnchorRef
}

// HistoryRecord is one entry of the session visit log.
// ID and Seq are assigned by the history log on append.
type HistoryRecord struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail"`
	ImageID   string    `json:"imageId"`
	Matched   bool      `json:"matched"`
}
