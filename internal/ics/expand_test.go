package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
)

func march(loc *time.Location) ExpandConfig {
	return ExpandConfig{
		Location:   loc,
		RangeStart: time.Date(2026, 3, 1, 0, 0, 0, 0, loc),
		RangeEnd:   time.Date(2026, 3, 31, 23, 59, 59, 0, loc),
	}
}

func TestExpandOccurrences_FeedRoundTrip(t *testing.T) {
	parsed, err := ParseICS(parish, readFeed(t), time.UTC)
	require.NoError(t, err)

	res, err := ExpandOccurrences(ToScheduleEvents(parsed, time.UTC), march(time.UTC))
	require.NoError(t, err)
	assert.Empty(t, res.InvalidEvents)
	assert.Empty(t, res.TruncatedEvents)

	var got []string
	for _, occ := range res.Occurrences {
		got = append(got, occ.Start.Format("01-02 15:04")+" "+occ.Title)
	}
	assert.Equal(t, []string{
		"03-05 18:30 Choir rehearsal",
		"03-12 17:00 Parish council meeting",
		"03-12 18:30 Choir rehearsal",
		"03-19 00:00 Saint Joseph Mass",
		"03-26 19:00 Choir rehearsal (moved to church)",
	}, got)

	feast := res.Occurrences[3]
	assert.True(t, feast.AllDay)
	assert.Equal(t, 24*time.Hour, feast.End.Sub(feast.Start))
	assert.Equal(t, "parish", feast.Source)
}

func TestExpandOccurrences_WeeklyRehearsal(t *testing.T) {
	loc := time.FixedZone("ICT", 7*60*60)
	ev := model.ScheduleEvent{
		ID:         "r1",
		Title:      "Rehearsal",
		Date:       "2026-02-26",
		Time:       "19:30",
		Kind:       model.EventRehearsal,
		Recurrence: "FREQ=WEEKLY;BYDAY=TH",
	}

	res, err := ExpandOccurrences([]model.ScheduleEvent{ev}, march(loc))
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 4)

	for i, day := range []int{5, 12, 19, 26} {
		occ := res.Occurrences[i]
		want := time.Date(2026, 3, day, 19, 30, 0, 0, loc)
		assert.True(t, want.Equal(occ.Start), "got %s", occ.Start)
		assert.Equal(t, defaultDuration, occ.End.Sub(occ.Start))
		assert.Equal(t, "r1", occ.EventID)
		assert.Equal(t, model.EventRehearsal, occ.Kind)
	}
	assert.NotEqual(t, res.Occurrences[0].InstanceKey, res.Occurrences[1].InstanceKey)
}

func TestExpandOccurrences_OneOffOutsideWindow(t *testing.T) {
	events := []model.ScheduleEvent{
		{ID: "before", Title: "x", Date: "2026-02-28", Time: "10:00"},
		{ID: "inside", Title: "y", Date: "2026-03-31"},
		{ID: "after", Title: "z", Date: "2026-04-01"},
	}
	res, err := ExpandOccurrences(events, march(time.UTC))
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 1)
	assert.Equal(t, "inside", res.Occurrences[0].EventID)
}

func TestExpandOccurrences_Cap(t *testing.T) {
	cfg := march(time.UTC)
	cfg.MaxOccurrencesPerEvent = 3
	ev := model.ScheduleEvent{ID: "daily", Title: "Vocal warm-up", Date: "2026-03-01", Time: "07:00", Recurrence: "FREQ=DAILY"}

	res, err := ExpandOccurrences([]model.ScheduleEvent{ev}, cfg)
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 3)
	assert.Equal(t, []string{"daily"}, res.TruncatedEvents)
}

func TestExpandOccurrences_InvalidInput(t *testing.T) {
	events := []model.ScheduleEvent{
		{ID: "bad-rule", Title: "x", Date: "2026-03-01", Recurrence: "FREQ=SOMETIMES"},
		{ID: "bad-date", Title: "y", Date: "March 1st"},
		{ID: "ok", Title: "z", Date: "2026-03-02"},
	}
	res, err := ExpandOccurrences(events, march(time.UTC))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bad-rule", "bad-date"}, res.InvalidEvents)
	require.Len(t, res.Occurrences, 1)

	cfg := march(time.UTC)
	cfg.RangeEnd = cfg.RangeStart.Add(-time.Hour)
	_, err = ExpandOccurrences(events, cfg)
	assert.Error(t, err)
}
