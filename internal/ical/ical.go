// Package ical serializes a schedule document into iCalendar text.
package ical

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"schedics/internal/model"
)

const prodID = "-//schedics//EN"

// Encode renders the document as an iCalendar feed: a VCALENDAR with
// PRODID/VERSION and one VEVENT per event (UID, DTSTAMP, DTSTART, DTEND,
// SUMMARY, plus LOCATION/DESCRIPTION when present). Output is UTF-8 with
// CRLF line endings and 75-octet folding, as the format requires.
//
// Encode is deterministic: DTSTAMP comes from doc.GeneratedAt, never
// from the wall clock. A malformed event is a bug in the builder, not a
// runtime condition, so Encode panics on one.
func Encode(doc *model.Document) []byte {
	cal := ics.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetMethod(ics.MethodPublish)
	if doc.Name != "" {
		cal.SetXWRCalName(doc.Name)
	}
	if doc.Timezone != "" {
		cal.SetXWRTimezone(doc.Timezone)
	}

	for _, ev := range doc.Events {
		if ev.UID == "" || ev.Start.IsZero() || !ev.End.After(ev.Start) {
			panic(fmt.Sprintf("ical: malformed event %q (uid=%q start=%v end=%v)",
				ev.Title, ev.UID, ev.Start, ev.End))
		}

		ve := cal.AddEvent(ev.UID)
		ve.SetDtStampTime(doc.GeneratedAt.UTC())
		ve.SetStartAt(ev.Start.UTC())
		ve.SetEndAt(ev.End.UTC())
		ve.SetSummary(ev.Title)
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
	}

	return []byte(cal.Serialize())
}

// DecodedEvent is the minimal view of a VEVENT used for verification.
type DecodedEvent struct {
	Summary string
	Start   time.Time
	End     time.Time
}

// Decode parses iCalendar text back into (summary, start, end) tuples.
// It exists so tests and operators can verify a feed round-trips.
func Decode(r io.Reader) ([]DecodedEvent, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, err
	}

	out := make([]DecodedEvent, 0)
	for _, ve := range cal.Events() {
		var de DecodedEvent
		if p := ve.GetProperty(ics.ComponentPropertySummary); p != nil {
			de.Summary = p.Value
		}
		de.Start, err = propTime(ve, ics.ComponentPropertyDtStart)
		if err != nil {
			return nil, err
		}
		de.End, err = propTime(ve, ics.ComponentPropertyDtEnd)
		if err != nil {
			return nil, err
		}
		out = append(out, de)
	}
	return out, nil
}

func propTime(ve *ics.VEvent, name ics.ComponentProperty) (time.Time, error) {
	p := ve.GetProperty(name)
	if p == nil {
		return time.Time{}, fmt.Errorf("ical: event missing %s", name)
	}
	t, err := time.Parse("20060102T150405Z", p.Value)
	if err != nil {
		return time.Time{}, fmt.Errorf("ical: parse %s %q: %w", name, p.Value, err)
	}
	return t, nil
}
