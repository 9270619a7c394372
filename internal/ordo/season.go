package ordo

import (
	"time"
)

// Season names as they appear in Day.Note and synthesised Sunday names.
const (
	SeasonChristmas = "Christmas"
	SeasonLent      = "Lent"
	SeasonEaster    = "Easter"
	SeasonAdvent    = "Advent"
	SeasonOrdinary  = "Ordinary Time"
)

// SeasonInfo is the season a date belongs to and its color.
type SeasonInfo struct {
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

// Anchors are the movable dates that bound the seasons of one year.
type Anchors struct {
	Year int `json:"year"`
	// Epiphany is the Sunday between January 2 and 8.
	Epiphany time.Time `json:"epiphany"`
	// BaptismOfTheLord closes the Christmas season that began the
	// previous December.
	BaptismOfTheLord time.Time `json:"baptismOfTheLord"`
	AshWednesday     time.Time `json:"ashWednesday"`
	Easter           time.Time `json:"easter"`
	Pentecost        time.Time `json:"pentecost"`
	FirstAdvent      time.Time `json:"firstAdvent"`
	Christmas        time.Time `json:"christmas"`
}

// AnchorsFor computes the anchor dates of year. Easter is found with the
// Meeus/Jones/Butcher Gregorian algorithm; every other anchor is derived
// from Easter or from the civil calendar.
func AnchorsFor(year int) Anchors {
	easter := easterSunday(year)

	jan2 := noon(year, time.January, 2)
	epiphany := jan2.AddDate(0, 0, (7-int(jan2.Weekday()))%7)
	baptism := epiphany.AddDate(0, 0, 7)
	if epiphany.Day() >= 7 {
		baptism = epiphany.AddDate(0, 0, 1)
	}

	christmasEve := noon(year, time.December, 24)
	fourthAdvent := christmasEve.AddDate(0, 0, -int(christmasEve.Weekday()))

	return Anchors{
		Year:             year,
		Epiphany:         epiphany,
		BaptismOfTheLord: baptism,
		AshWednesday:     easter.AddDate(0, 0, -46),
		Easter:           easter,
		Pentecost:        easter.AddDate(0, 0, 49),
		FirstAdvent:      fourthAdvent.AddDate(0, 0, -21),
		Christmas:        noon(year, time.December, 25),
	}
}

// Season classifies a date. Ranges are checked in a fixed order and any
// date outside them is Ordinary Time.
func Season(date time.Time) SeasonInfo {
	d := noon(date.Year(), date.Month(), date.Day())
	a := AnchorsFor(d.Year())

	switch {
	case !d.After(a.BaptismOfTheLord):
		return SeasonInfo{Name: SeasonChristmas, Color: ColorWhite}
	case within(d, a.AshWednesday, a.Easter.AddDate(0, 0, -1)):
		return SeasonInfo{Name: SeasonLent, Color: ColorViolet}
	case within(d, a.Easter, a.Pentecost):
		return SeasonInfo{Name: SeasonEaster, Color: ColorWhite}
	case within(d, a.FirstAdvent, a.Christmas.AddDate(0, 0, -1)):
		return SeasonInfo{Name: SeasonAdvent, Color: ColorViolet}
	case !d.Before(a.Christmas):
		return SeasonInfo{Name: SeasonChristmas, Color: ColorWhite}
	default:
		return SeasonInfo{Name: SeasonOrdinary, Color: ColorGreen}
	}
}

func within(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

// easterSunday uses the Meeus/Jones/Butcher algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return noon(year, time.Month(month), day)
}
