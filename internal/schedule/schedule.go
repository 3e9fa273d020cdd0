// Package schedule normalizes raw spreadsheet entries into calendar
// events. Build is pure: the same entries with the same options always
// produce the same events and UIDs.
package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	appLog "schedics/internal/log"
	"schedics/internal/model"
	"schedics/internal/source"
)

var (
	timeRE = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})`)
	dateRE = regexp.MustCompile(`(\d{1,2})[.,](\d{1,2})`)
)

// locationPrefixes mark a detail line that names the room.
var locationPrefixes = []string{"ауд", "каб", "room"}

// EntryError reports a raw entry the builder could not interpret.
type EntryError struct {
	Ref    string
	Reason string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("unparseable schedule entry at %s: %s", e.Ref, e.Reason)
}

// Options anchor the relative labels of the sheet to concrete dates.
type Options struct {
	// Location is the timezone the schedule belongs to.
	Location *time.Location
	// Year completes "DD.MM" date labels.
	Year int
	// WeekStart is the Monday of the reference week, used for entries
	// that carry only a weekday name. Zero disables the fallback.
	WeekStart time.Time
	// UIDPrefix is prepended to every event UID.
	UIDPrefix string
	// Abort makes the first unparseable entry fail the whole build;
	// otherwise such entries are skipped and logged.
	Abort bool
}

// Build converts raw entries into events sorted by start time. Under the
// skip policy every dropped entry is logged with its cell reference;
// under the abort policy the returned error is an *EntryError.
func Build(entries []source.RawEntry, opts Options) ([]model.Event, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	events := make([]model.Event, 0, len(entries))
	seen := make(map[string]bool, len(entries))

	for _, entry := range entries {
		ev, err := buildOne(entry, opts)
		if err != nil {
			if opts.Abort {
				return nil, err
			}
			appLog.Error("skipping unparseable schedule entry", err, "ref", entry.Ref)
			continue
		}
		if seen[ev.UID] {
			// Merged-cell scans can surface the same occurrence twice.
			appLog.Debug("dropping duplicate schedule entry", "uid", ev.UID, "ref", entry.Ref)
			continue
		}
		seen[ev.UID] = true
		events = append(events, ev)
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].UID < events[j].UID
	})

	return events, nil
}

func buildOne(entry source.RawEntry, opts Options) (model.Event, error) {
	var ev model.Event

	m := timeRE.FindStringSubmatch(entry.Time)
	if m == nil {
		return ev, &EntryError{Ref: entry.Ref, Reason: fmt.Sprintf("time label %q", entry.Time)}
	}
	startHour, startMin := mustInt(m[1]), mustInt(m[2])
	endHour, endMin := mustInt(m[3]), mustInt(m[4])
	if startHour > 23 || endHour > 23 || startMin > 59 || endMin > 59 {
		return ev, &EntryError{Ref: entry.Ref, Reason: fmt.Sprintf("time label %q out of range", entry.Time)}
	}

	day, err := resolveDate(entry, opts)
	if err != nil {
		return ev, err
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), startHour, startMin, 0, 0, opts.Location)
	end := time.Date(day.Year(), day.Month(), day.Day(), endHour, endMin, 0, 0, opts.Location)
	if !end.After(start) {
		return ev, &EntryError{Ref: entry.Ref, Reason: fmt.Sprintf("time label %q ends before it starts", entry.Time)}
	}

	title, location, description := splitText(entry.Text)
	if title == "" {
		return ev, &EntryError{Ref: entry.Ref, Reason: "empty title"}
	}

	ev = model.Event{
		UID:         eventUID(opts.UIDPrefix, start, title),
		Title:       title,
		Location:    location,
		Description: description,
		Start:       start,
		End:         end,
	}
	return ev, nil
}

// resolveDate anchors an entry to a calendar date: an explicit "DD.MM"
// label wins, otherwise the weekday name is resolved against the
// reference week.
func resolveDate(entry source.RawEntry, opts Options) (time.Time, error) {
	if entry.DateLabel != "" {
		m := dateRE.FindStringSubmatch(entry.DateLabel)
		if m != nil {
			day, month := mustInt(m[1]), mustInt(m[2])
			d := time.Date(opts.Year, time.Month(month), day, 0, 0, 0, 0, opts.Location)
			// time.Date normalizes out-of-range values (e.g. 31.02), so
			// check the components survived.
			if int(d.Month()) == month && d.Day() == day {
				return d, nil
			}
		}
		return time.Time{}, &EntryError{Ref: entry.Ref, Reason: fmt.Sprintf("date label %q", entry.DateLabel)}
	}

	wd, ok := source.ParseWeekday(entry.Day)
	if !ok {
		return time.Time{}, &EntryError{Ref: entry.Ref, Reason: fmt.Sprintf("day label %q", entry.Day)}
	}
	if opts.WeekStart.IsZero() {
		return time.Time{}, &EntryError{Ref: entry.Ref, Reason: "no date label and no week_start configured"}
	}

	offset := (int(wd) - int(time.Monday) + 7) % 7
	return opts.WeekStart.AddDate(0, 0, offset), nil
}

// splitText takes the first line of a cell as the event title. A detail
// line naming the room becomes the location; everything else stays in
// the description.
func splitText(text string) (title, location, description string) {
	lines := strings.Split(text, "\n")
	title = strings.TrimSpace(lines[0])

	rest := make([]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if location == "" && isLocationLine(line) {
			location = line
			continue
		}
		rest = append(rest, line)
	}
	description = strings.Join(rest, "\n")
	return title, location, description
}

func isLocationLine(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range locationPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// eventUID derives the stable event identifier: date, start time and a
// name-based UUID of the title. Rebuilds of the same occurrence always
// produce the same UID.
func eventUID(prefix string, start time.Time, title string) string {
	return fmt.Sprintf("%s%s-%02d%02d-%s",
		prefix,
		start.Format("2006-01-02"),
		start.Hour(), start.Minute(),
		uuid.NewSHA1(uuid.NameSpaceDNS, []byte(title)),
	)
}

// mustInt converts a regexp digit group; the pattern guarantees digits.
func mustInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
