// Package model holds the normalized schedule types shared between the
// builder, the encoder and the delivery layer.
package model

import "time"

// Event is a single concrete schedule occurrence. Events are immutable
// once built by the schedule builder.
type Event struct {
	// UID identifies the logical occurrence across feed rebuilds. It is
	// derived deterministically from date, start time and title so that
	// calendar clients can tell unchanged entries from updated ones.
	UID string

	Title       string
	Location    string
	Description string

	// Start / End carry the configured schedule timezone.
	Start time.Time
	End   time.Time
}

// Document is one complete generated calendar. A rebuild always produces
// a fresh Document; there is no incremental patching.
type Document struct {
	// Name is the calendar display name (X-WR-CALNAME).
	Name string
	// Timezone is the IANA zone the schedule was anchored to.
	Timezone string
	// GeneratedAt is stamped on every VEVENT as DTSTAMP. Keeping it on
	// the Document (rather than reading the clock during encoding) makes
	// the encoded output reproducible.
	GeneratedAt time.Time

	Events []Event
}
