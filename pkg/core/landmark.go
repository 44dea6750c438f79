// Package core holds the value types shared by the catalog, the controllers
// and the stores.
package core

// Size is the physical size of a reference image, in meters.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// LandmarkEntry is the display content for one recognizable landmark.
// Entries are loaded once at startup and never mutated.
type LandmarkEntry struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Detail string `json:"detail" yaml:"detail"`
}

// ImageDescriptor describes one image of the reference image set
type ImageDescriptor struct {
	ID           string `json:"id" yaml:"id"`
	PhysicalSize Size   `json:"physicalSize" yaml:"physicalSize"`
}

// ResolvedContent is what the resolver produced for an image identifier.
// Matched is false when the identifier had no catalog entry and the
// fallback content was returned.
type ResolvedContent struct {
	Title   string
	Detail  string
	Matched bool
}
