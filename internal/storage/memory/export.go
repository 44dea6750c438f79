package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arcampus/arcampus/pkg/core"
)

// JournalExport is the root JSON structure of an exported session.
type JournalExport struct {
	SessionID       string               `json:"sessionId"`
	StartedAt       time.Time            `json:"startedAt"`
	EndedAt         time.Time            `json:"endedAt"`
	ReferenceImages []string             `json:"referenceImages"`
	Detections      []core.HistoryRecord `json:"detections"`
}

// exportJSON writes the session to OutputDir. Callers hold b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	timestamp := b.session.StartedAt.UTC().Format("20060102_150405")
	filename := fmt.Sprintf("journal_%s_%s.json", timestamp, shortID(b.session.ID))
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() JournalExport {
	export := JournalExport{
		SessionID:       b.session.ID,
		StartedAt:       b.session.StartedAt.UTC(),
		EndedAt:         b.now().UTC(),
		ReferenceImages: b.session.ReferenceImages,
		Detections:      make([]core.HistoryRecord, 0, len(b.records)),
	}
	if export.ReferenceImages == nil {
		export.ReferenceImages = []string{}
	}
	export.Detections = append(export.Detections, b.records...)
	return export
}

// shortID keeps filenames readable; IDs are UUIDs.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "session"
	}
	return id
}

func writeJSON(path string, data JournalExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data JournalExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
