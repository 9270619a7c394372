package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used by every record.
const DateLayout = "2006-01-02"

// Table names as known to the storage backend.
const (
	TableMembers      = "members"
	TableEvents       = "events"
	TableSongs        = "songs"
	TableTransactions = "transactions"
	TableAttendance   = "attendance"
)

// Tables lists every persisted table in load order.
var Tables = []string{TableMembers, TableEvents, TableSongs, TableTransactions, TableAttendance}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid record")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func validDate(field, v string) error {
	if _, err := time.Parse(DateLayout, v); err != nil {
		return invalid("%s %q is not a YYYY-MM-DD date", field, v)
	}
	return nil
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// VoicePart is the section a member sings in.
type VoicePart string

const (
	VoiceSoprano VoicePart = "soprano"
	VoiceAlto    VoicePart = "alto"
	VoiceTenor   VoicePart = "tenor"
	VoiceBass    VoicePart = "bass"
	VoiceOther   VoicePart = "other"
)

// Member is one person on the choir roster.
type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Voice    VoicePart `json:"voicePart"`
	Phone    string    `json:"phone"`
	Email    string    `json:"email"`
	Unit     string    `json:"unit"`
	JoinedAt string    `json:"joinedAt"`
	Active   bool      `json:"active"`
	Notes    string    `json:"notes"`
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return invalid("member name is required")
	}
	switch m.Voice {
	case VoiceSoprano, VoiceAlto, VoiceTenor, VoiceBass, VoiceOther, "":
	default:
		return invalid("unknown voice part %q", m.Voice)
	}
	if m.JoinedAt != "" {
		return validDate("joinedAt", m.JoinedAt)
	}
	return nil
}

// EventKind classifies schedule entries.
type EventKind string

const (
	EventMass      EventKind = "mass"
	EventRehearsal EventKind = "rehearsal"
	EventMeeting   EventKind = "meeting"
	EventOther     EventKind = "other"
)

// ScheduleEvent is a mass, rehearsal or meeting on the choir schedule.
// Recurrence holds an optional RRULE body ("FREQ=WEEKLY;BYDAY=TH").
// Source is the feed id for imported events and empty for local ones.
type ScheduleEvent struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Location   string    `json:"location"`
	Kind       EventKind `json:"kind"`
	Notes      string    `json:"notes"`
	Recurrence string    `json:"recurrence"`
	Source     string    `json:"source"`
}

func (e ScheduleEvent) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return invalid("event title is required")
	}
	if err := validDate("date", e.Date); err != nil {
		return err
	}
	if e.Time != "" {
		if !validClock(e.Time) {
			return invalid("time %q is not HH:MM", e.Time)
		}
	}
	return nil
}

// validClock accepts HH:MM and the HH:MM:SS of Postgres time columns.
func validClock(v string) bool {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// Start returns the event start in loc. Events without a time start at
// midnight. Postgres time columns ("19:30:00") are accepted too.
func (e ScheduleEvent) Start(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if e.Time == "" {
		return time.ParseInLocation(DateLayout, e.Date, loc)
	}
	hm := e.Time
	if len(hm) > 5 {
		hm = hm[:5]
	}
	return time.ParseInLocation(DateLayout+" 15:04", e.Date+" "+hm, loc)
}

// Song is an entry in the music library.
type Song struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Composer   string `json:"composer"`
	Category   string `json:"category"`
	Season     string `json:"season"`
	MusicalKey string `json:"musicalKey"`
	SheetURL   string `json:"sheetUrl"`
	Lyrics     string `json:"lyrics"`
}

func (s Song) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return invalid("song title is required")
	}
	return nil
}

// TransactionKind is the direction of a ledger entry.
type TransactionKind string

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

// Transaction is one ledger line. Amount is always positive; Kind carries
// the sign.
type Transaction struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Kind        TransactionKind `json:"kind"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	MemberID    string          `json:"memberId"`
}

func (t Transaction) Validate() error {
	if err := validDate("date", t.Date); err != nil {
		return err
	}
	if t.Kind != Income && t.Kind != Expense {
		return invalid("transaction kind must be income or expense, got %q", t.Kind)
	}
	if !t.Amount.IsPositive() {
		return invalid("amount must be positive")
	}
	return nil
}

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// AttendanceStatus is the mark recorded for one member on one date.
type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Late    AttendanceStatus = "late"
	Absent  AttendanceStatus = "absent"
)

// AttendanceRecord is keyed by (Date, MemberID); ID is kept only so the
// row can be addressed by the backend.
type AttendanceRecord struct {
	ID       string           `json:"id"`
	Date     string           `json:"date"`
	MemberID string           `json:"memberId"`
	Status   AttendanceStatus `json:"status"`
	Note     string           `json:"note"`
}

// Key is the composite attendance key.
func (a AttendanceRecord) Key() string { return AttendanceKey(a.Date, a.MemberID) }

// AttendanceKey joins date and member id.
func AttendanceKey(date, memberID string) string { return date + "|" + memberID }

func (a AttendanceRecord) Validate() error {
	if err := validDate("date", a.Date); err != nil {
		return err
	}
	if a.MemberID == "" {
		return invalid("memberId is required")
	}
	switch a.Status {
	case Present, Late, Absent:
		return nil
	default:
		return invalid("status must be present, late or absent, got %q", a.Status)
	}
}

// Snapshot is a full copy of every collection. It is also the document
// persisted by the local backend.
type Snapshot struct {
	Members      []Member           `json:"members"`
	Events       []ScheduleEvent    `json:"events"`
	Songs        []Song             `json:"songs"`
	Transactions []Transaction      `json:"transactions"`
	Attendance   []AttendanceRecord `json:"attendance"`
}

// Occurrence is one concrete instance of a schedule event after recurrence
// expansion.
type Occurrence struct {
	EventID  string    `json:"eventId"`
	Source   string    `json:"source,omitempty"`
	Title    string    `json:"title"`
	Location string    `json:"location"`
	Kind     EventKind `json:"kind"`

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string `json:"instanceKey"`

	AllDay bool      `json:"allDay"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}
