package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/ordo"
)

var stamp = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func TestExportOrdo(t *testing.T) {
	days := ordo.GetOrdoForMonth(3, 2026)
	out := ExportOrdo(days, ExportOptions{Name: "Ordo March 2026", Stamp: stamp})

	assert.Equal(t, len(days), strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "PRODID:"+productID)
	assert.Contains(t, out, "X-WR-CALNAME:Ordo March 2026")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20260301")
	assert.Contains(t, out, "UID:ordo-2026-03-01@choirdesk")
	assert.Contains(t, out, "DTSTAMP:20260201T120000Z")

	// Read it back: one all-day event per ordo day.
	parsed, err := ParseICS(Source{ID: "ordo"}, []byte(out), time.UTC)
	require.NoError(t, err)
	require.Len(t, parsed, len(days))
	for i, ev := range parsed {
		assert.True(t, ev.AllDay)
		assert.Equal(t, days[i].Date, ev.Start.Format(ordo.DateLayout))
		assert.Equal(t, days[i].Name, ev.Summary)
	}
}

func TestExportOrdo_ColorAndObligation(t *testing.T) {
	day := ordo.Day{Date: "2026-03-15", Name: "Fourth Sunday of Lent", Color: ordo.ColorRose, Rank: ordo.RankSunday, IsObligatory: true}
	out := ExportOrdo([]ordo.Day{day}, ExportOptions{Stamp: stamp})

	assert.Contains(t, out, "COLOR:pink")
	assert.Contains(t, out, "X-LITURGICAL-COLOR:rose")
	assert.Contains(t, out, "CATEGORIES:sunday")
	assert.Contains(t, out, "CATEGORIES:obligatory")
}

func TestExportEvents_RoundTrip(t *testing.T) {
	events := []model.ScheduleEvent{
		{
			ID:         "r1",
			Title:      "Choir rehearsal",
			Date:       "2026-03-05",
			Time:       "18:30",
			Location:   "Parish hall",
			Kind:       model.EventRehearsal,
			Recurrence: "RRULE:FREQ=WEEKLY;BYDAY=TH\nEXDATE:20260319T183000Z",
		},
		{ID: "m1", Title: "Easter Vigil Mass", Date: "2026-04-04", Notes: "Bring candles", Kind: model.EventMass},
	}
	out := ExportEvents(events, ExportOptions{Name: "Choir schedule", Location: time.UTC, Stamp: stamp})
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;BYDAY=TH")
	assert.Contains(t, out, "EXDATE:20260319T183000Z")

	parsed, err := ParseICS(Source{ID: "self"}, []byte(out), time.UTC)
	require.NoError(t, err)
	back := ToScheduleEvents(parsed, time.UTC)
	require.Len(t, back, 2)

	assert.Equal(t, "feed:self:r1@choirdesk", back[0].ID)
	assert.Equal(t, events[0].Title, back[0].Title)
	assert.Equal(t, events[0].Date, back[0].Date)
	assert.Equal(t, events[0].Time, back[0].Time)
	assert.Equal(t, events[0].Location, back[0].Location)
	assert.Equal(t, events[0].Recurrence, back[0].Recurrence)

	assert.Equal(t, events[1].Date, back[1].Date)
	assert.Empty(t, back[1].Time)
	assert.Equal(t, "Bring candles", back[1].Notes)
}
