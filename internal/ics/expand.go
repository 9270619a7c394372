package ics

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "github.com/Nhatnguyen0000/Choir-sub000/internal/log"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000

	// defaultDuration is the length given to timed schedule entries, which
	// only carry a start.
	defaultDuration = 90 * time.Minute
)

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// Location is the timezone schedule dates and times are read in. If
	// nil, UTC is used.
	Location *time.Location

	// RangeStart / RangeEnd define the inclusive window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single series. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded occurrences.
type ExpandResult struct {
	Occurrences []model.Occurrence `json:"occurrences"`
	// TruncatedEvents lists event ids that hit the cap.
	TruncatedEvents []string `json:"truncatedEvents,omitempty"`
	// InvalidEvents lists event ids whose date or rule could not be read.
	InvalidEvents []string `json:"invalidEvents,omitempty"`
}

// ExpandOccurrences turns schedule entries into concrete occurrences within
// the window, ordered by start. One-off entries yield at most one
// occurrence; entries with a Recurrence are expanded with their EXDATEs
// applied. Entries without a time are all-day.
func ExpandOccurrences(events []model.ScheduleEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	result.Occurrences = make([]model.Occurrence, 0)
	for _, ev := range events {
		start, err := ev.Start(cfg.Location)
		if err != nil {
			result.InvalidEvents = append(result.InvalidEvents, ev.ID)
			appLog.Warn("expand: unreadable event start", "event", ev.ID, "cause", err)
			continue
		}

		if strings.TrimSpace(ev.Recurrence) == "" {
			occ := makeOccurrence(ev, start)
			if overlaps(occ.Start, occ.End, cfg.RangeStart, cfg.RangeEnd) {
				result.Occurrences = append(result.Occurrences, occ)
			}
			continue
		}

		starts, hitCap, err := expandSeries(ev, start, cfg)
		if err != nil {
			result.InvalidEvents = append(result.InvalidEvents, ev.ID)
			appLog.Error("expand: failed to parse recurrence", err, "event", ev.ID, "rule", ev.Recurrence)
			continue
		}
		if hitCap {
			result.TruncatedEvents = append(result.TruncatedEvents, ev.ID)
			appLog.Warn("expand: occurrences truncated", "event", ev.ID, "cap", cfg.MaxOccurrencesPerEvent)
		}
		for _, s := range starts {
			result.Occurrences = append(result.Occurrences, makeOccurrence(ev, s))
		}
	}

	sort.SliceStable(result.Occurrences, func(i, j int) bool {
		return result.Occurrences[i].Start.Before(result.Occurrences[j].Start)
	})
	return result, nil
}

// expandSeries evaluates ev.Recurrence anchored at start. Both the bare
// rule body and the multi-line RRULE:/EXDATE: form are accepted.
func expandSeries(ev model.ScheduleEvent, start time.Time, cfg ExpandConfig) ([]time.Time, bool, error) {
	lines := strings.Split(strings.TrimSpace(ev.Recurrence), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	if !strings.Contains(lines[0], ":") {
		lines[0] = "RRULE:" + lines[0]
	}

	set, err := rrule.StrSliceToRRuleSetInLoc(lines, cfg.Location)
	if err != nil {
		return nil, false, err
	}
	if set.GetRRule() == nil {
		return nil, false, errors.New("recurrence has no RRULE line")
	}
	set.DTStart(start)

	// Widen the lower bound so an occurrence already in progress at
	// RangeStart is kept.
	from := cfg.RangeStart.Add(-durationOf(ev))
	times := set.Between(from, cfg.RangeEnd, true)

	if len(times) > cfg.MaxOccurrencesPerEvent {
		return times[:cfg.MaxOccurrencesPerEvent], true, nil
	}
	return times, false, nil
}

func durationOf(ev model.ScheduleEvent) time.Duration {
	if ev.Time == "" {
		return 24 * time.Hour
	}
	return defaultDuration
}

func makeOccurrence(ev model.ScheduleEvent, start time.Time) model.Occurrence {
	allDay := ev.Time == ""
	if allDay {
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	}
	end := start.Add(durationOf(ev))
	if allDay {
		end = start.AddDate(0, 0, 1)
	}

	// The local start is stable for a given instance of a series.
	return model.Occurrence{
		EventID:     ev.ID,
		Source:      ev.Source,
		Title:       ev.Title,
		Location:    ev.Location,
		Kind:        ev.Kind,
		InstanceKey: ev.ID + "@" + start.Format(time.RFC3339),
		AllDay:      allDay,
		Start:       start,
		End:         end,
	}
}

// overlaps reports whether [aStart, aEnd) touches the inclusive window
// [bStart, bEnd].
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && aEnd.After(bStart)
}
