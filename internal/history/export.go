package history

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arcampus/arcampus/pkg/core"
)

// Write writes records to w as "tsv" or "json".
func Write(w io.Writer, records []core.HistoryRecord, format string) error {
	switch format {
	case "tsv":
		return writeTSV(w, records)
	case "json":
		return writeJSON(w, records)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeTSV(w io.Writer, records []core.HistoryRecord) error {
	if _, err := fmt.Fprintln(w, "seq\ttimestamp\tname\tmatched\tdetail"); err != nil {
		return err
	}
	for _, r := range records {
		line := fmt.Sprintf(
			"%d\t%s\t%s\t%t\t%s",
			r.Seq,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Name,
			r.Matched,
			escapeTSV(r.Detail),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, records []core.HistoryRecord) error {
	if records == nil {
		records = []core.HistoryRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func escapeTSV(text string) string {
	return strings.NewReplacer("\n", "\\n", "\t", "\\t").Replace(text)
}
