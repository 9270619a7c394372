package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/ordo"
)

const productID = "-//choirdesk//Parish Choir Desk//EN"

// propLiturgicalColor carries the exact liturgical color; COLOR only takes
// CSS names.
const propLiturgicalColor = ical.ComponentProperty("X-LITURGICAL-COLOR")

// ExportOptions names the calendar and fixes DTSTAMP. A zero Stamp means
// now.
type ExportOptions struct {
	Name     string
	Location *time.Location
	Stamp    time.Time
}

func (o ExportOptions) newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	cal.SetCalscale("GREGORIAN")
	if o.Name != "" {
		cal.SetName(o.Name)
		cal.SetXWRCalName(o.Name)
	}
	if o.Location != nil {
		cal.SetXWRTimezone(o.Location.String())
	}
	return cal
}

func (o ExportOptions) stamp() time.Time {
	if o.Stamp.IsZero() {
		return time.Now()
	}
	return o.Stamp
}

// ExportOrdo renders ordo days as all-day VEVENTs.
func ExportOrdo(days []ordo.Day, opts ExportOptions) string {
	cal := opts.newCalendar()
	stamp := opts.stamp()

	for _, d := range days {
		date, err := time.Parse(ordo.DateLayout, d.Date)
		if err != nil {
			continue
		}
		ev := cal.AddEvent("ordo-" + d.Date + "@choirdesk")
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(date)
		ev.SetAllDayEndAt(date.AddDate(0, 0, 1))
		ev.SetSummary(d.Name)
		if d.Note != "" {
			ev.SetDescription(d.Note)
		}
		ev.SetColor(cssColor(d.Color))
		ev.SetProperty(propLiturgicalColor, string(d.Color))
		ev.AddCategory(string(d.Rank))
		if d.IsObligatory {
			ev.AddCategory("obligatory")
		}
		ev.SetTimeTransparency(ical.TransparencyTransparent)
	}
	return cal.Serialize()
}

func cssColor(c ordo.Color) string {
	switch c {
	case ordo.ColorRose:
		return "pink"
	case ordo.ColorGold:
		return "gold"
	case "":
		return "green"
	default:
		return string(c)
	}
}

// ExportEvents renders schedule entries. Timed entries carry a TZID of
// opts.Location so weekly rules keep their local weekday.
func ExportEvents(events []model.ScheduleEvent, opts ExportOptions) string {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	cal := opts.newCalendar()
	stamp := opts.stamp()

	for _, e := range events {
		start, err := e.Start(loc)
		if err != nil {
			continue
		}
		ev := cal.AddEvent(e.ID + "@choirdesk")
		ev.SetDtStampTime(stamp)
		ev.SetSummary(e.Title)
		if e.Time == "" {
			ev.SetAllDayStartAt(start)
			ev.SetAllDayEndAt(start.AddDate(0, 0, 1))
		} else {
			tz := ical.WithTZID(loc.String())
			ev.SetProperty(ical.ComponentPropertyDtStart, start.Format("20060102T150405"), tz)
			ev.SetProperty(ical.ComponentPropertyDtEnd, start.Add(defaultDuration).Format("20060102T150405"), tz)
		}
		if e.Location != "" {
			ev.SetLocation(e.Location)
		}
		if e.Notes != "" {
			ev.SetDescription(e.Notes)
		}
		if e.Kind != "" {
			ev.AddCategory(string(e.Kind))
		}
		addRecurrence(ev, e.Recurrence)
	}
	return cal.Serialize()
}

func addRecurrence(ev *ical.VEvent, rec string) {
	rec = strings.TrimSpace(rec)
	if rec == "" {
		return
	}
	for _, line := range strings.Split(rec, "\n") {
		line = strings.TrimSpace(line)
		name, value, ok := strings.Cut(line, ":")
		switch {
		case !ok:
			ev.AddRrule(line)
		case name == "RRULE":
			ev.AddRrule(value)
		case name == "EXDATE":
			ev.AddExdate(value)
		}
	}
}
