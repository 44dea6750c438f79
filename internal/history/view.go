package history

import (
	"time"

	"github.com/arcampus/arcampus/pkg/core"

	"github.com/dustin/go-humanize"
)

const (
	// ListTitle is the navigation title of the history list.
	ListTitle = "History"
	// DetailTitle is the navigation title of a record's detail page.
	DetailTitle = "Detail"
	// DetailHeading is shown above the detail text.
	DetailHeading = "Detailed Information"
)

// scannedLayout renders a medium date with a short time, e.g. "Dec 4, 2024 at 3:04 PM".
const scannedLayout = "Jan 2, 2006 at 3:04 PM"

// Row is one line of the history list. Rows navigate by ID; timestamps may
// collide.
type Row struct {
	ID      string
	Name    string
	Scanned string
	Age     string
}

// DetailView is the page opened from a row
type DetailView struct {
	Title   string
	Heading string
	Text    string
}

// Rows maps records to list rows in the order given.
func Rows(records []core.HistoryRecord, now time.Time) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, Row{
			ID:      r.ID,
			Name:    r.Name,
			Scanned: "Scanned: " + r.Timestamp.Local().Format(scannedLayout),
			Age:     humanize.RelTime(r.Timestamp, now, "ago", "from now"),
		})
	}
	return rows
}

// Detail returns the detail page for the record with the given ID.
func Detail(l *Log, id string) (DetailView, bool) {
	rec, ok := l.Get(id)
	if !ok {
		return DetailView{}, false
	}
	return DetailView{
		Title:   DetailTitle,
		Heading: DetailHeading,
		Text:    rec.Detail,
	}, true
}
