// Package catalog holds the landmark content table and resolves recognized
// image identifiers to display content.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/arcampus/arcampus/pkg/core"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// DetectedPrefix is prepended to a landmark title when it is shown on the label.
const DetectedPrefix = "Detected: "

// Fallback is returned for identifiers without a catalog entry.
var Fallback = core.ResolvedContent{
	Title:   DetectedPrefix + "Unknown Image",
	Detail:  "Please try again.",
	Matched: false,
}

// ErrMissingReferenceImageSet is returned when the recognizable image set is
// absent or empty. Tracking with no reference images would silently detect
// nothing, so callers treat it as fatal.
var ErrMissingReferenceImageSet = errors.New("reference image set missing or empty")

// document is the on-disk catalog layout
type document struct {
	Landmarks       []core.LandmarkEntry   `yaml:"landmarks"`
	ReferenceImages []core.ImageDescriptor `yaml:"referenceImages"`
}

// Catalog maps image identifiers to landmark content.
// It is immutable after construction and safe for concurrent use.
type Catalog struct {
	entries map[string]core.LandmarkEntry
	order   []string
	images  []core.ImageDescriptor
}

// New builds a catalog from landmark entries and a reference image set.
func New(entries []core.LandmarkEntry, images []core.ImageDescriptor) (*Catalog, error) {
	c := &Catalog{
		entries: make(map[string]core.LandmarkEntry, len(entries)),
		order:   make([]string, 0, len(entries)),
		images:  append([]core.ImageDescriptor(nil), images...),
	}

	for _, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("landmark %q has an empty id", e.Title)
		}
		if _, dup := c.entries[e.ID]; dup {
			return nil, fmt.Errorf("duplicate landmark id: %s", e.ID)
		}
		c.entries[e.ID] = e
		c.order = append(c.order, e.ID)
	}

	return c, nil
}

// Parse decodes a YAML catalog document. The reference image set must not be empty.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	if len(doc.ReferenceImages) == 0 {
		return nil, ErrMissingReferenceImageSet
	}
	for _, img := range doc.ReferenceImages {
		if img.ID == "" {
			return nil, fmt.Errorf("reference image with empty id: %w", ErrMissingReferenceImageSet)
		}
	}

	return New(doc.Landmarks, doc.ReferenceImages)
}

// Load reads the catalog at path, or the embedded default catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Resolve returns the content for imageID. Unknown and empty identifiers
// resolve to Fallback.
func (c *Catalog) Resolve(imageID string) core.ResolvedContent {
	entry, ok := c.entries[imageID]
	if !ok || imageID == "" {
		return Fallback
	}
	return core.ResolvedContent{
		Title:   DetectedPrefix + entry.Title,
		Detail:  entry.Detail,
		Matched: true,
	}
}

// Entry returns the landmark entry for id.
func (c *Catalog) Entry(id string) (core.LandmarkEntry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Entries returns all landmark entries in declaration order.
func (c *Catalog) Entries() []core.LandmarkEntry {
	out := make([]core.LandmarkEntry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

// ReferenceImages returns a copy of the reference image set.
func (c *Catalog) ReferenceImages() []core.ImageDescriptor {
	return append([]core.ImageDescriptor(nil), c.images...)
}

// ShortName returns the history name for resolved content: the title without
// the "Detected: " prefix.
func ShortName(content core.ResolvedContent) string {
	return strings.TrimPrefix(content.Title, DetectedPrefix)
}
