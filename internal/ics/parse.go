package ics

import (
	"bytes"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	ical "github.com/arran4/golang-ical"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	appLog "github.com/Nhatnguyen0000/Choir-sub000/internal/log"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
)

// ParsedEvent is a VEVENT as read from a feed, before it becomes a
// schedule entry.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID of an overridden instance
}

// IsOverride reports whether the VEVENT replaces one instance of a
// recurring event.
func (p ParsedEvent) IsOverride() bool { return p.Recurrence != nil }

// ParseICS parses a feed payload. Broken VEVENTs are logged and skipped.
// Floating times are read in loc.
func ParseICS(src Source, body []byte, loc *time.Location) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.UTC
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "feed", src.ID)
		return nil, err
	}

	events := make([]ParsedEvent, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(src, ve, loc)
		if err != nil {
			appLog.Warn("ics vevent skipped", "feed", src.ID, "cause", err)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "feed", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent, loc *time.Location) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Seq = n
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart)

	if out.AllDay {
		start, err := ve.GetAllDayStartAt()
		if err != nil {
			return out, err
		}
		out.Start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		out.End = out.Start.AddDate(0, 0, 1)
		if end, err := ve.GetAllDayEndAt(); err == nil && end.After(start) {
			out.End = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
		}
	} else {
		start, err := parseICSTime(dtStart.Value, tzid(dtStart), loc)
		if err != nil {
			return out, err
		}
		out.Start = start
		out.End = start.Add(defaultDuration)
		if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
			if end, err := parseICSTime(p.Value, tzid(p), loc); err == nil && end.After(start) {
				out.End = end
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, tzid(p), loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		if t, err := parseICSTime(p.Value, tzid(p), loc); err == nil {
			out.Recurrence = &t
		}
	}

	return out, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func tzid(p *ical.IANAProperty) string {
	if vs, ok := p.ICalParameters["TZID"]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// parseICSTime reads DATE, floating DATE-TIME and UTC DATE-TIME values. A
// TZID that cannot be loaded falls back to loc.
func parseICSTime(v, tz string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}

// FeedEventID is the stable schedule id of an imported VEVENT.
func FeedEventID(source, uid string) string {
	return "feed:" + source + ":" + uid
}

const exDateLayout = "20060102T150405Z"

// ToScheduleEvents converts parsed VEVENTs into schedule entries in loc.
// Overridden instances become standalone entries and are excluded from
// their series through an EXDATE line in the series' Recurrence.
func ToScheduleEvents(events []ParsedEvent, loc *time.Location) []model.ScheduleEvent {
	if loc == nil {
		loc = time.UTC
	}

	// Keep the highest SEQUENCE per (uid, instance).
	latest := make(map[string]ParsedEvent, len(events))
	order := make([]string, 0, len(events))
	overridden := make(map[string][]time.Time)
	for _, ev := range events {
		key := ev.UID
		if ev.IsOverride() {
			key += "@" + ev.Recurrence.UTC().Format(exDateLayout)
			overridden[ev.UID] = append(overridden[ev.UID], *ev.Recurrence)
		}
		prev, seen := latest[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || ev.Seq >= prev.Seq {
			latest[key] = ev
		}
	}

	out := make([]model.ScheduleEvent, 0, len(order))
	for _, key := range order {
		ev := latest[key]
		se := model.ScheduleEvent{
			ID:       FeedEventID(ev.Source.ID, ev.UID),
			Title:    strings.TrimSpace(ev.Summary),
			Date:     ev.Start.In(loc).Format(model.DateLayout),
			Location: ev.Location,
			Kind:     GuessKind(ev.Summary),
			Notes:    ev.Description,
			Source:   ev.Source.ID,
		}
		if se.Title == "" {
			se.Title = "Untitled event"
		}
		if !ev.AllDay {
			se.Time = ev.Start.In(loc).Format("15:04")
		}
		if ev.IsOverride() {
			se.ID += "@" + ev.Recurrence.UTC().Format(exDateLayout)
		} else if ev.RawRRule != "" {
			se.Recurrence = recurrenceFor(ev, overridden[ev.UID])
		}
		out = append(out, se)
	}
	return out
}

// recurrenceFor renders the series rule with its exclusions. A bare rule is
// stored as-is; exclusions switch to the multi-line RRULE:/EXDATE: form.
func recurrenceFor(ev ParsedEvent, overrides []time.Time) string {
	ex := append(append([]time.Time(nil), ev.ExDates...), overrides...)
	if len(ex) == 0 {
		return ev.RawRRule
	}
	sort.Slice(ex, func(i, j int) bool { return ex[i].Before(ex[j]) })

	var b strings.Builder
	b.WriteString("RRULE:")
	b.WriteString(ev.RawRRule)
	for _, t := range ex {
		b.WriteString("\nEXDATE:")
		b.WriteString(t.UTC().Format(exDateLayout))
	}
	return b.String()
}

// GuessKind classifies an imported event from its title.
func GuessKind(summary string) model.EventKind {
	s := foldTitle(summary)
	switch {
	case containsAny(s, " rehears", " practice ", " tap hat "):
		return model.EventRehearsal
	case containsAny(s, " meeting ", " hop "):
		return model.EventMeeting
	case containsAny(s, " mass ", " liturgy ", " eucharist ", " vigil ", " le "):
		return model.EventMass
	default:
		return model.EventOther
	}
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldTitle lowercases s, drops diacritics and punctuation, and pads the
// words with single spaces so keywords can be matched as whole words.
func foldTitle(s string) string {
	folded, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	folded = strings.Map(func(r rune) rune {
		switch {
		case r == 'đ':
			return 'd'
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		default:
			return ' '
		}
	}, folded)
	return " " + strings.Join(strings.Fields(folded), " ") + " "
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
