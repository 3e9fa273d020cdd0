// Package source retrieves the raw schedule grid from the cloud-hosted
// spreadsheet. It knows about the vendor document layout so the rest of
// the pipeline only ever sees RawEntry values.
package source

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Sentinel errors for the two failure classes the caller can act on.
var (
	// ErrUnavailable covers network and service failures; the caller may
	// retry later.
	ErrUnavailable = errors.New("schedule source unavailable")
	// ErrFormatChanged means the document no longer has the expected
	// structure; retrying will not help until config or source is fixed.
	ErrFormatChanged = errors.New("schedule source format changed")
)

// RawEntry is one unparsed lesson cell from the spreadsheet grid.
// It is consumed by the schedule builder and discarded afterwards.
type RawEntry struct {
	// Day is the weekday header label of the entry's column.
	Day string
	// Time is the "HH:MM - HH:MM" label of the entry's row.
	Time string
	// DateLabel is the "DD.MM" label found above the cell, or empty if
	// the sheet carries only weekday names.
	DateLabel string
	// Text is the raw cell content (title on the first line, optional
	// detail lines after it).
	Text string
	// Ref is the worksheet cell reference, kept for error messages.
	Ref string
}

// Reader is the boundary between the vendor document and the pipeline.
type Reader interface {
	Read(ctx context.Context) ([]RawEntry, error)
}

var weekdays = map[string]time.Weekday{
	"понедельник": time.Monday,
	"вторник":     time.Tuesday,
	"среда":       time.Wednesday,
	"четверг":     time.Thursday,
	"пятница":     time.Friday,
	"суббота":     time.Saturday,
	"воскресенье": time.Sunday,
	"monday":      time.Monday,
	"tuesday":     time.Tuesday,
	"wednesday":   time.Wednesday,
	"thursday":    time.Thursday,
	"friday":      time.Friday,
	"saturday":    time.Saturday,
	"sunday":      time.Sunday,
	"mon":         time.Monday,
	"tue":         time.Tuesday,
	"wed":         time.Wednesday,
	"thu":         time.Thursday,
	"fri":         time.Friday,
	"sat":         time.Saturday,
	"sun":         time.Sunday,
}

// ParseWeekday resolves a day header label (Russian or English, full or
// abbreviated) to a weekday.
func ParseWeekday(label string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(label))]
	return wd, ok
}
