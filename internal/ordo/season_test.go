package ordo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEasterSunday(t *testing.T) {
	tests := map[int]time.Time{
		2000: date(2000, time.April, 23),
		2019: date(2019, time.April, 21),
		2024: date(2024, time.March, 31),
		2025: date(2025, time.April, 20),
		2026: date(2026, time.April, 5),
		2027: date(2027, time.March, 28),
		2038: date(2038, time.April, 25),
	}
	for year, want := range tests {
		got := easterSunday(year)
		assert.Equal(t, want.Format(DateLayout), got.Format(DateLayout), "year %d", year)
	}
}

func TestAnchorsFor2026(t *testing.T) {
	a := AnchorsFor(2026)

	assert.Equal(t, "2026-01-04", a.Epiphany.Format(DateLayout))
	assert.Equal(t, "2026-01-11", a.BaptismOfTheLord.Format(DateLayout))
	assert.Equal(t, "2026-02-18", a.AshWednesday.Format(DateLayout))
	assert.Equal(t, "2026-04-05", a.Easter.Format(DateLayout))
	assert.Equal(t, "2026-05-24", a.Pentecost.Format(DateLayout))
	assert.Equal(t, "2026-11-29", a.FirstAdvent.Format(DateLayout))
	assert.Equal(t, time.Wednesday, a.AshWednesday.Weekday())
	assert.Equal(t, time.Sunday, a.FirstAdvent.Weekday())
}

func TestAnchorsFor_BaptismOnMonday(t *testing.T) {
	// Epiphany 2023 fell on January 8, so the Baptism moved to Monday.
	a := AnchorsFor(2023)
	assert.Equal(t, "2023-01-08", a.Epiphany.Format(DateLayout))
	assert.Equal(t, "2023-01-09", a.BaptismOfTheLord.Format(DateLayout))
	assert.Equal(t, time.Monday, a.BaptismOfTheLord.Weekday())
}

func TestAnchorsFor_FirstAdvent(t *testing.T) {
	assert.Equal(t, "2024-12-01", AnchorsFor(2024).FirstAdvent.Format(DateLayout))
	assert.Equal(t, "2025-11-30", AnchorsFor(2025).FirstAdvent.Format(DateLayout))
	assert.Equal(t, "2027-11-28", AnchorsFor(2027).FirstAdvent.Format(DateLayout))
	// Christmas on a Sunday: Advent has a full four weeks.
	assert.Equal(t, "2022-11-27", AnchorsFor(2022).FirstAdvent.Format(DateLayout))
}

func TestSeason_Boundaries2026(t *testing.T) {
	tests := []struct {
		date time.Time
		want SeasonInfo
	}{
		{date(2026, time.January, 1), SeasonInfo{SeasonChristmas, ColorWhite}},
		{date(2026, time.January, 11), SeasonInfo{SeasonChristmas, ColorWhite}},
		{date(2026, time.January, 12), SeasonInfo{SeasonOrdinary, ColorGreen}},
		{date(2026, time.February, 17), SeasonInfo{SeasonOrdinary, ColorGreen}},
		{date(2026, time.February, 18), SeasonInfo{SeasonLent, ColorViolet}},
		{date(2026, time.April, 4), SeasonInfo{SeasonLent, ColorViolet}},
		{date(2026, time.April, 5), SeasonInfo{SeasonEaster, ColorWhite}},
		{date(2026, time.May, 24), SeasonInfo{SeasonEaster, ColorWhite}},
		{date(2026, time.May, 25), SeasonInfo{SeasonOrdinary, ColorGreen}},
		{date(2026, time.November, 28), SeasonInfo{SeasonOrdinary, ColorGreen}},
		{date(2026, time.November, 29), SeasonInfo{SeasonAdvent, ColorViolet}},
		{date(2026, time.December, 24), SeasonInfo{SeasonAdvent, ColorViolet}},
		{date(2026, time.December, 25), SeasonInfo{SeasonChristmas, ColorWhite}},
		{date(2026, time.December, 31), SeasonInfo{SeasonChristmas, ColorWhite}},
	}
	for _, tt := range tests {
		t.Run(tt.date.Format(DateLayout), func(t *testing.T) {
			assert.Equal(t, tt.want, Season(tt.date))
		})
	}
}

func TestSeason_LentIsContiguous(t *testing.T) {
	a := AnchorsFor(2026)
	for d := a.AshWednesday; d.Before(a.Easter); d = d.AddDate(0, 0, 1) {
		assert.Equal(t, SeasonLent, Season(d).Name, d.Format(DateLayout))
	}
	assert.Equal(t, SeasonOrdinary, Season(a.AshWednesday.AddDate(0, 0, -1)).Name)
}

func TestSeason_IgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2026, 2, 17, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, SeasonOrdinary, Season(late).Name)
}

func TestRankPrecedence(t *testing.T) {
	assert.Less(t, RankSolemnity.Precedence(), RankFeast.Precedence())
	assert.Less(t, RankFeast.Precedence(), RankSunday.Precedence())
	assert.Less(t, RankSunday.Precedence(), RankOptional.Precedence())
}
