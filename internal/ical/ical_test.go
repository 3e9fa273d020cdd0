package ical

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedics/internal/model"
)

func sampleDocument() *model.Document {
	loc, _ := time.LoadLocation("Europe/Moscow")
	return &model.Document{
		Name:        "Group 12",
		Timezone:    "Europe/Moscow",
		GeneratedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		Events: []model.Event{
			{
				UID:      "2026-09-07-0900-aaaa",
				Title:    "Algorithms",
				Location: "room 101",
				Start:    time.Date(2026, 9, 7, 9, 0, 0, 0, loc),
				End:      time.Date(2026, 9, 7, 10, 30, 0, 0, loc),
			},
			{
				UID:         "2026-09-07-1100-bbbb",
				Title:       "Algorithms",
				Description: "seminar",
				Start:       time.Date(2026, 9, 7, 11, 0, 0, 0, loc),
				End:         time.Date(2026, 9, 7, 12, 30, 0, 0, loc),
			},
		},
	}
}

func TestEncodeProducesValidCalendar(t *testing.T) {
	out := string(Encode(sampleDocument()))

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, out, "END:VCALENDAR")
	assert.Contains(t, out, "PRODID:-//schedics//EN")
	assert.Contains(t, out, "VERSION:2.0")
	assert.Contains(t, out, "X-WR-CALNAME:Group 12")
	assert.Contains(t, out, "X-WR-TIMEZONE:Europe/Moscow")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Equal(t, 2, strings.Count(out, "END:VEVENT"))
	assert.Contains(t, out, "UID:2026-09-07-0900-aaaa")
	assert.Contains(t, out, "SUMMARY:Algorithms")
	assert.Contains(t, out, "LOCATION:room 101")
	assert.Contains(t, out, "DESCRIPTION:seminar")

	// Every line is CRLF-terminated.
	for _, line := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		assert.False(t, strings.HasSuffix(line, "\r"), "stray CR in %q", line)
	}
	assert.NotContains(t, strings.ReplaceAll(out, "\r\n", ""), "\n")
}

func TestEncodeDeterministic(t *testing.T) {
	doc := sampleDocument()
	assert.True(t, bytes.Equal(Encode(doc), Encode(doc)))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	doc := sampleDocument()
	decoded, err := Decode(bytes.NewReader(Encode(doc)))
	require.NoError(t, err)
	require.Len(t, decoded, len(doc.Events))

	for i, ev := range doc.Events {
		assert.Equal(t, ev.Title, decoded[i].Summary)
		assert.True(t, decoded[i].Start.Equal(ev.Start), "start of event %d", i)
		assert.True(t, decoded[i].End.Equal(ev.End), "end of event %d", i)
	}
}

func TestEncodePanicsOnMalformedEvent(t *testing.T) {
	doc := sampleDocument()
	doc.Events[0].End = doc.Events[0].Start

	require.Panics(t, func() { Encode(doc) })
}
