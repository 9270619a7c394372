package store

import (
	"context"
	"sort"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/rowmap"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/storage"
)

func insertRow[T record](s *Store, c *collection[T]) func(T) (func(ctx context.Context) error, error) {
	return func(rec T) (func(ctx context.Context) error, error) {
		row, err := rowmap.Encode(c.table, rec)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return s.backend.Insert(ctx, c.table, row) }, nil
	}
}

func updateRow[T record](s *Store, c *collection[T]) func(T) (func(ctx context.Context) error, error) {
	return func(rec T) (func(ctx context.Context) error, error) {
		row, err := rowmap.Encode(c.table, rec)
		if err != nil {
			return nil, err
		}
		delete(row, "id")
		id := c.id(rec)
		return func(ctx context.Context) error { return s.backend.Update(ctx, c.table, id, row) }, nil
	}
}

func deleteRow[T record](s *Store, c *collection[T]) func(T) (func(ctx context.Context) error, error) {
	return func(rec T) (func(ctx context.Context) error, error) {
		id := c.id(rec)
		return func(ctx context.Context) error { return s.backend.Delete(ctx, c.table, id) }, nil
	}
}

func add[T record](s *Store, c *collection[T], rec T) (*Task[T], error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return mutate(s, c, mutation[T]{
		op: storage.OpInsert, rec: rec, check: mustBeNew, remote: insertRow(s, c),
	})
}

func change[T record](s *Store, c *collection[T], rec T) (*Task[T], error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return mutate(s, c, mutation[T]{
		op: storage.OpUpdate, rec: rec, check: mustExist, remote: updateRow(s, c),
	})
}

func drop[T record](s *Store, c *collection[T], rec T) (*Task[T], error) {
	return mutate(s, c, mutation[T]{
		op: storage.OpDelete, rec: rec, check: mustExist, remote: deleteRow(s, c),
	})
}

func find[T record](s *Store, c *collection[T], id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.get(id)
}

func all[T record](s *Store, c *collection[T]) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.list()
}

// Members lists the roster in insertion order.
func (s *Store) Members() []model.Member { return all(s, s.members) }

func (s *Store) Member(id string) (model.Member, bool) { return find(s, s.members, id) }

// AddMember assigns an id when m has none.
func (s *Store) AddMember(m model.Member) (*Task[model.Member], error) {
	if m.ID == "" {
		m.ID = model.NewID()
	}
	return add(s, s.members, m)
}

func (s *Store) UpdateMember(m model.Member) (*Task[model.Member], error) {
	return change(s, s.members, m)
}

func (s *Store) DeleteMember(id string) (*Task[model.Member], error) {
	return drop(s, s.members, model.Member{ID: id})
}

// Events lists the schedule sorted by date and time.
func (s *Store) Events() []model.ScheduleEvent {
	out := all(s, s.events)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

func (s *Store) Event(id string) (model.ScheduleEvent, bool) { return find(s, s.events, id) }

func (s *Store) AddEvent(e model.ScheduleEvent) (*Task[model.ScheduleEvent], error) {
	if e.ID == "" {
		e.ID = model.NewID()
	}
	return add(s, s.events, e)
}

func (s *Store) UpdateEvent(e model.ScheduleEvent) (*Task[model.ScheduleEvent], error) {
	return change(s, s.events, e)
}

func (s *Store) DeleteEvent(id string) (*Task[model.ScheduleEvent], error) {
	return drop(s, s.events, model.ScheduleEvent{ID: id})
}

// SaveEvent adds e or replaces the event with the same id. Feed imports
// use it.
func (s *Store) SaveEvent(e model.ScheduleEvent) (*Task[model.ScheduleEvent], error) {
	if _, ok := s.Event(e.ID); ok {
		return s.UpdateEvent(e)
	}
	return s.AddEvent(e)
}

func (s *Store) Songs() []model.Song { return all(s, s.songs) }

func (s *Store) Song(id string) (model.Song, bool) { return find(s, s.songs, id) }

func (s *Store) AddSong(song model.Song) (*Task[model.Song], error) {
	if song.ID == "" {
		song.ID = model.NewID()
	}
	return add(s, s.songs, song)
}

func (s *Store) UpdateSong(song model.Song) (*Task[model.Song], error) {
	return change(s, s.songs, song)
}

func (s *Store) DeleteSong(id string) (*Task[model.Song], error) {
	return drop(s, s.songs, model.Song{ID: id})
}

// Transactions lists the ledger sorted by date.
func (s *Store) Transactions() []model.Transaction {
	out := all(s, s.transactions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *Store) Transaction(id string) (model.Transaction, bool) {
	return find(s, s.transactions, id)
}

func (s *Store) AddTransaction(t model.Transaction) (*Task[model.Transaction], error) {
	if t.ID == "" {
		t.ID = model.NewID()
	}
	return add(s, s.transactions, t)
}

func (s *Store) UpdateTransaction(t model.Transaction) (*Task[model.Transaction], error) {
	return change(s, s.transactions, t)
}

func (s *Store) DeleteTransaction(id string) (*Task[model.Transaction], error) {
	return drop(s, s.transactions, model.Transaction{ID: id})
}

// Attendance lists marks for date, or every mark when date is empty.
func (s *Store) Attendance(date string) []model.AttendanceRecord {
	recs := all(s, s.attendance)
	if date == "" {
		return recs
	}
	out := recs[:0]
	for _, r := range recs {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out
}

// Mark records a status for (rec.Date, rec.MemberID). Re-marking the same
// pair overwrites the earlier mark and keeps its id.
func (s *Store) Mark(rec model.AttendanceRecord) (*Task[model.AttendanceRecord], error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return mutate(s, s.attendance, mutation[model.AttendanceRecord]{
		op:      storage.OpUpdate,
		rec:     rec,
		resolve: byPair,
		remote: func(rec model.AttendanceRecord) (func(ctx context.Context) error, error) {
			row, err := rowmap.Encode(model.TableAttendance, rec)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context) error {
				return s.backend.Upsert(ctx, model.TableAttendance, row, "date", "member_id")
			}, nil
		},
	})
}

// Unmark removes the mark for (date, memberID).
func (s *Store) Unmark(date, memberID string) (*Task[model.AttendanceRecord], error) {
	return mutate(s, s.attendance, mutation[model.AttendanceRecord]{
		op:  storage.OpDelete,
		rec: model.AttendanceRecord{Date: date, MemberID: memberID},
		resolve: func(c *collection[model.AttendanceRecord], rec model.AttendanceRecord) model.AttendanceRecord {
			if existing, ok := c.findUnique(rec.Key()); ok {
				return existing
			}
			return rec
		},
		check:  mustExist,
		remote: deleteRow(s, s.attendance),
	})
}

// byPair gives rec the id of the mark already held for its pair, or a new
// one when there is none and rec has no id.
func byPair(c *collection[model.AttendanceRecord], rec model.AttendanceRecord) model.AttendanceRecord {
	if existing, ok := c.findUnique(rec.Key()); ok {
		rec.ID = existing.ID
	} else if rec.ID == "" {
		rec.ID = model.NewID()
	}
	return rec
}
