// Package ordo builds the day-by-day liturgical calendar (the ordo) for a
// month: observance name, liturgical color, precedence rank and whether
// attendance is obligatory.
//
// The engine overlays a fixed table of feasts onto a season classification
// derived from the movable anchor dates of each year. It is a pure function
// of its inputs and performs no I/O.
package ordo

import (
	"time"
)

// DateLayout is the ISO date form used for Day.Date and table keys.
const DateLayout = "2006-01-02"

// Color is a liturgical color.
type Color string

const (
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorWhite  Color = "white"
	ColorViolet Color = "violet"
	ColorGold   Color = "gold"
	ColorRose   Color = "rose"
)

// Valid reports whether c is one of the known liturgical colors.
func (c Color) Valid() bool {
	switch c {
	case ColorGreen, ColorRed, ColorWhite, ColorViolet, ColorGold, ColorRose:
		return true
	}
	return false
}

// Rank is the precedence class of an observance, highest first.
type Rank string

const (
	RankSolemnity Rank = "solemnity"
	RankFeast     Rank = "feast"
	RankSunday    Rank = "sunday"
	RankOptional  Rank = "optional"
)

// Precedence returns a sortable weight for r; lower is more important.
func (r Rank) Precedence() int {
	switch r {
	case RankSolemnity:
		return 0
	case RankFeast:
		return 1
	case RankSunday:
		return 2
	case RankOptional:
		return 3
	default:
		return 4
	}
}

// Day describes the liturgical observance of a single calendar date.
type Day struct {
	Date         string `json:"date"`
	Name         string `json:"name"`
	Color        Color  `json:"color"`
	Rank         Rank   `json:"rank"`
	IsObligatory bool   `json:"isObligatory"`
	Note         string `json:"note"`
}

// Time returns the descriptor's date at noon UTC.
func (d Day) Time() time.Time {
	t, err := time.Parse(DateLayout, d.Date)
	if err != nil {
		return time.Time{}
	}
	return noon(t.Year(), t.Month(), t.Day())
}

const ordinaryDayName = "ordinary day"

// GetOrdoForMonth returns one Day per calendar day of the given month in
// ascending date order.
//
// Any integer year is accepted. Months outside 1-12 are normalised the way
// time.Date normalises them (month 13 of 2025 is January 2026), so the
// function always returns a complete month.
func GetOrdoForMonth(month, year int) []Day {
	first := noon(year, time.Month(month), 1)
	last := first.AddDate(0, 1, -1)
	return buildRange(first, last)
}

// GetOrdoForRange returns the ordo for every date from `from` to `to`
// inclusive. Only the calendar date of each argument is used. An empty
// slice is returned when to is before from.
func GetOrdoForRange(from, to time.Time) []Day {
	start := noon(from.Year(), from.Month(), from.Day())
	end := noon(to.Year(), to.Month(), to.Day())
	if end.Before(start) {
		return []Day{}
	}
	return buildRange(start, end)
}

// DayFor returns the descriptor for a single date.
func DayFor(date time.Time) Day {
	return describe(noon(date.Year(), date.Month(), date.Day()))
}

func buildRange(start, end time.Time) []Day {
	days := make([]Day, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, describe(d))
	}
	return days
}

// describe assigns the observance for one date. A table entry wins for
// identity; otherwise Sundays and weekdays are synthesised from the season.
func describe(d time.Time) Day {
	key := d.Format(DateLayout)
	season := Season(d)
	sunday := d.Weekday() == time.Sunday

	if f, ok := feastTable[key]; ok {
		day := Day{
			Date:  key,
			Name:  f.Name,
			Color: f.Color,
			Rank:  f.Rank,
			Note:  season.Name,
		}
		if f.Note != "" {
			day.Note = f.Note
		}
		switch {
		case f.Obligatory != nil:
			day.IsObligatory = *f.Obligatory
		default:
			day.IsObligatory = sunday
		}
		return day
	}

	if sunday {
		return Day{
			Date:         key,
			Name:         "Sunday of " + season.Name,
			Color:        season.Color,
			Rank:         RankSunday,
			IsObligatory: true,
			Note:         season.Name,
		}
	}

	return Day{
		Date:  key,
		Name:  ordinaryDayName,
		Color: season.Color,
		Rank:  RankOptional,
		Note:  season.Name,
	}
}

// noon builds a date at 12:00 UTC so that day arithmetic never crosses a
// date boundary.
func noon(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}
