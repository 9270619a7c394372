package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/ics"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/store"
)

// resource is the CRUD surface of one store collection.
type resource[T any] struct {
	list   func() []T
	get    func(id string) (T, bool)
	add    func(T) (*store.Task[T], error)
	update func(T) (*store.Task[T], error)
	remove func(id string) (*store.Task[T], error)
	setID  func(*T, string)
}

func members(s *store.Store) resource[model.Member] {
	return resource[model.Member]{
		list: s.Members, get: s.Member,
		add: s.AddMember, update: s.UpdateMember, remove: s.DeleteMember,
		setID: func(m *model.Member, id string) { m.ID = id },
	}
}

func events(s *store.Store) resource[model.ScheduleEvent] {
	return resource[model.ScheduleEvent]{
		list: s.Events, get: s.Event,
		add: s.AddEvent, update: s.UpdateEvent, remove: s.DeleteEvent,
		setID: func(e *model.ScheduleEvent, id string) { e.ID = id },
	}
}

func songs(s *store.Store) resource[model.Song] {
	return resource[model.Song]{
		list: s.Songs, get: s.Song,
		add: s.AddSong, update: s.UpdateSong, remove: s.DeleteSong,
		setID: func(song *model.Song, id string) { song.ID = id },
	}
}

func transactions(s *store.Store) resource[model.Transaction] {
	return resource[model.Transaction]{
		list: s.Transactions, get: s.Transaction,
		add: s.AddTransaction, update: s.UpdateTransaction, remove: s.DeleteTransaction,
		setID: func(t *model.Transaction, id string) { t.ID = id },
	}
}

// mountResource registers list/create on base and get/replace/delete on
// base/{id}.
func mountResource[T any](router *mux.Router, base string, res resource[T]) {
	router.HandleFunc(base, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, res.list())
	}).Methods(http.MethodGet)

	router.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
		var rec T
		if !decodeJSON(w, r, &rec) {
			return
		}
		task, err := res.add(rec)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		settle(w, r, task, http.StatusCreated)
	}).Methods(http.MethodPost)

	item := base + "/{id}"
	router.HandleFunc(item, func(w http.ResponseWriter, r *http.Request) {
		rec, ok := res.get(mux.Vars(r)["id"])
		if !ok {
			writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}).Methods(http.MethodGet)

	router.HandleFunc(item, func(w http.ResponseWriter, r *http.Request) {
		var rec T
		if !decodeJSON(w, r, &rec) {
			return
		}
		res.setID(&rec, mux.Vars(r)["id"])
		task, err := res.update(rec)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		settle(w, r, task, http.StatusOK)
	}).Methods(http.MethodPut)

	router.HandleFunc(item, func(w http.ResponseWriter, r *http.Request) {
		task, err := res.remove(mux.Vars(r)["id"])
		if err != nil {
			writeStoreError(w, err)
			return
		}
		settle(w, r, task, http.StatusOK)
	}).Methods(http.MethodDelete)
}

func (s *Server) handleMembersByVoice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.MembersByVoice())
}

// handleOccurrences expands the schedule for ?from=&to= (dates, inclusive).
// The default window is the current month.
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(s.loc)
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 1, 0).Add(-time.Second)

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.ParseInLocation(model.DateLayout, v, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.ParseInLocation(model.DateLayout, v, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		to = t.AddDate(0, 0, 1).Add(-time.Second)
	}
	if to.Sub(from) > 366*24*time.Hour {
		writeError(w, http.StatusBadRequest, "window is limited to one year")
		return
	}

	res, err := ics.ExpandOccurrences(s.store.Events(), ics.ExpandConfig{
		Location:   s.loc,
		RangeStart: from,
		RangeEnd:   to,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEventsICS(w http.ResponseWriter, _ *http.Request) {
	body := ics.ExportEvents(s.store.Events(), ics.ExportOptions{Name: "Choir schedule", Location: s.loc})
	writeCalendar(w, "choir-schedule.ics", body)
}

func (s *Server) handleLedgerSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	for _, v := range []string{from, to} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, v); err != nil {
			writeError(w, http.StatusBadRequest, "from and to must be YYYY-MM-DD")
			return
		}
	}
	writeJSON(w, http.StatusOK, s.store.LedgerSummary(from, to))
}

type attendanceResponse struct {
	Date    string                   `json:"date"`
	Records []model.AttendanceRecord `json:"records"`
	Summary store.AttendanceSummary  `json:"summary"`
}

// handleAttendance lists the marks of ?date= (default today).
func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().In(s.loc).Format(model.DateLayout)
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	writeJSON(w, http.StatusOK, attendanceResponse{
		Date:    date,
		Records: s.store.Attendance(date),
		Summary: s.store.AttendanceSummary(date),
	})
}

func (s *Server) handleMark(w http.ResponseWriter, r *http.Request) {
	var rec model.AttendanceRecord
	if !decodeJSON(w, r, &rec) {
		return
	}
	task, err := s.store.Mark(rec)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	settle(w, r, task, http.StatusOK)
}

// handleUnmark removes the mark of ?date=&memberId=.
func (s *Server) handleUnmark(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, member := q.Get("date"), strings.TrimSpace(q.Get("memberId"))
	if date == "" || member == "" {
		writeError(w, http.StatusBadRequest, "date and memberId are required")
		return
	}
	task, err := s.store.Unmark(date, member)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	settle(w, r, task, http.StatusOK)
}
