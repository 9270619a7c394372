// Package store holds the in-memory collections of the choir app and
// mirrors every change to the storage backend.
//
// Mutations are optimistic: the change is applied and announced to
// subscribers immediately, then forwarded to the backend in the
// background. When the backend rejects it the record is put back the way
// it was, subscribers are told again and the returned Task reports the
// error. There is no retry.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/log"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/metrics"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/rowmap"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/storage"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	ErrClosed    = errors.New("store closed")
)

// Origin says what caused a state change.
type Origin string

const (
	OriginLocal    Origin = "local"
	OriginRollback Origin = "rollback"
	OriginRemote   Origin = "remote"
	OriginLoad     Origin = "load"
)

// Event is a state-change notification. ID is empty for OriginLoad.
type Event struct {
	Table  string
	Op     storage.Op
	ID     string
	Origin Origin
}

// Store is the single owner of all choir records.
type Store struct {
	backend storage.Backend

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	closed       bool
	members      *collection[model.Member]
	events       *collection[model.ScheduleEvent]
	songs        *collection[model.Song]
	transactions *collection[model.Transaction]
	attendance   *collection[model.AttendanceRecord]
	watches      []storage.Subscription

	inflight sync.WaitGroup

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New returns an empty store over backend. The caller keeps ownership of
// backend and closes it after Close.
func New(backend storage.Backend) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		backend:      backend,
		ctx:          ctx,
		cancel:       cancel,
		members:      newCollection(model.TableMembers, func(m model.Member) string { return m.ID }),
		events:       newCollection(model.TableEvents, func(e model.ScheduleEvent) string { return e.ID }),
		songs:        newCollection(model.TableSongs, func(s model.Song) string { return s.ID }),
		transactions: newCollection(model.TableTransactions, func(t model.Transaction) string { return t.ID }),
		attendance:   newCollection(model.TableAttendance, func(a model.AttendanceRecord) string { return a.ID }),
		subs:         map[int]func(Event){},
	}
	s.attendance.unique = model.AttendanceRecord.Key
	return s
}

// Mode reports the backend in use.
func (s *Store) Mode() storage.Mode { return s.backend.Mode() }

// Load reads every table from the backend, one concurrent List per table.
// Tables that fail to load keep their current contents; the errors are
// joined.
func (s *Store) Load(ctx context.Context) error {
	type result struct {
		rows []rowmap.Row
		err  error
	}
	results := make([]result, len(model.Tables))

	var wg sync.WaitGroup
	for i, table := range model.Tables {
		wg.Add(1)
		go func(i int, table string) {
			defer wg.Done()
			rows, err := s.backend.List(ctx, table)
			results[i] = result{rows: rows, err: err}
		}(i, table)
	}
	wg.Wait()

	var errs []error
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	for i, table := range model.Tables {
		r := results[i]
		if r.err != nil {
			log.Error("load table failed", r.err, "table", table)
			errs = append(errs, r.err)
			continue
		}
		var n int
		switch table {
		case model.TableMembers:
			n = loadRows(s.members, r.rows)
		case model.TableEvents:
			n = loadRows(s.events, r.rows)
		case model.TableSongs:
			n = loadRows(s.songs, r.rows)
		case model.TableTransactions:
			n = loadRows(s.transactions, r.rows)
		case model.TableAttendance:
			n = loadRows(s.attendance, r.rows)
		}
		log.Debug("table loaded", "table", table, "rows", n)
	}
	s.mu.Unlock()

	s.notify(Event{Origin: OriginLoad})
	return errors.Join(errs...)
}

func loadRows[T record](c *collection[T], rows []rowmap.Row) int {
	items := make([]T, 0, len(rows))
	for _, row := range rows {
		var rec T
		if err := rowmap.DecodeKnown(c.table, row, &rec); err != nil {
			log.Error("skipping undecodable row", err, "table", c.table)
			continue
		}
		items = append(items, rec)
	}
	c.items = items
	return len(items)
}

// Watch opens the backend change feed for every table. The returned
// release func tears the feed down; Close does the same.
func (s *Store) Watch(ctx context.Context) (func(), error) {
	var subs []storage.Subscription
	for _, table := range model.Tables {
		sub, err := s.backend.Subscribe(ctx, table, s.applyChange)
		if err != nil {
			for _, sub := range subs {
				sub.Close()
			}
			return nil, fmt.Errorf("watch %s: %w", table, err)
		}
		subs = append(subs, sub)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		for _, sub := range subs {
			sub.Close()
		}
		return nil, ErrClosed
	}
	s.watches = append(s.watches, subs...)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.release(subs) })
	}, nil
}

func (s *Store) release(subs []storage.Subscription) {
	s.mu.Lock()
	kept := s.watches[:0]
	for _, w := range s.watches {
		drop := false
		for _, sub := range subs {
			if w == sub {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, w)
		}
	}
	s.watches = kept
	s.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			log.Error("close change feed", err)
		}
	}
}

// Close stops the change feed and cancels in-flight backend calls. No
// state changes are applied afterwards. Close waits for in-flight
// mutations to settle.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	watches := s.watches
	s.watches = nil
	s.mu.Unlock()

	for _, sub := range watches {
		if err := sub.Close(); err != nil {
			log.Error("close change feed", err)
		}
	}
	s.cancel()
	s.inflight.Wait()
	return nil
}

// Subscribe registers fn for state changes and returns its unsubscribe
// func. fn runs on the goroutine that caused the change and must not
// block.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Snapshot returns a copy of every collection.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Snapshot{
		Members:      s.members.list(),
		Events:       s.events.list(),
		Songs:        s.songs.list(),
		Transactions: s.transactions.list(),
		Attendance:   s.attendance.list(),
	}
}

// precondition is checked under the lock before a mutation is applied.
type precondition func(existed bool) error

func mustExist(existed bool) error {
	if !existed {
		return ErrNotFound
	}
	return nil
}

func mustBeNew(existed bool) error {
	if existed {
		return ErrDuplicate
	}
	return nil
}

// mutation is one local change to a collection.
type mutation[T record] struct {
	op  storage.Op
	rec T
	// resolve completes rec under the lock, before its id is read.
	resolve func(c *collection[T], rec T) T
	check   precondition
	// remote builds the backend call for the record being applied.
	remote func(rec T) (func(ctx context.Context) error, error)
}

// mutate applies m locally, then forwards it on a goroutine. Remote calls
// of one table run one after another in call order.
func mutate[T record](s *Store, c *collection[T], m mutation[T]) (*Task[T], error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	rec := m.rec
	if m.resolve != nil {
		rec = m.resolve(c, rec)
	}
	id := c.id(rec)
	prev, existed := c.get(id)
	if m.check != nil {
		if err := m.check(existed); err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("%s %s: %w", c.table, id, err)
		}
	}
	if m.op == storage.OpDelete {
		rec = prev
	}
	remote, err := m.remote(rec)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	u := &undo[T]{prev: prev, existed: existed, pos: -1}
	if m.op == storage.OpDelete {
		u.pos = c.remove(id)
	} else {
		u.evicted = c.put(rec)
	}
	c.begin(id, u)
	task := newTask(c.table, m.op, rec)
	wait := c.tail
	c.tail = task.done
	s.inflight.Add(1)
	s.mu.Unlock()

	s.notify(Event{Table: c.table, Op: m.op, ID: id, Origin: OriginLocal})

	go func() {
		defer s.inflight.Done()
		if wait != nil {
			select {
			case <-wait:
			case <-s.ctx.Done():
			}
		}
		err := s.ctx.Err()
		if err == nil {
			err = remote(s.ctx)
		}
		settle(s, c, task, m.op, id, u, err)
	}()
	return task, nil
}

// settle finishes task. A rejected mutation that a later pending mutation
// of the same id was applied on top of hands its undo down to that one;
// otherwise the replaced state is put back.
func settle[T record](s *Store, c *collection[T], task *Task[T], op storage.Op, id string,
	u *undo[T], err error) {
	s.mu.Lock()
	next := c.end(id, u)
	if s.closed {
		s.mu.Unlock()
		if err != nil {
			task.finish(StateRolledBack, fmt.Errorf("%w: %v", ErrClosed, err))
			return
		}
		task.finish(StateCommitted, nil)
		return
	}
	if err == nil {
		s.mu.Unlock()
		metrics.RecordMutation(c.table, string(op), "committed")
		task.finish(StateCommitted, nil)
		return
	}

	if next != nil {
		next.inherit(u)
	} else {
		c.rollback(id, u)
	}
	s.mu.Unlock()

	log.Error("mutation rejected by storage, rolled back", err, "table", c.table, "op", op, "id", id)
	metrics.RecordMutation(c.table, string(op), "rolled_back")
	s.notify(Event{Table: c.table, Op: op, ID: id, Origin: OriginRollback})
	task.finish(StateRolledBack, err)
}

// applyChange reconciles one change-feed event. Events for ids with a
// pending local mutation are dropped; everything else is last-write-wins.
func (s *Store) applyChange(ch storage.Change) {
	switch ch.Table {
	case model.TableMembers:
		applyRemote(s, s.members, ch)
	case model.TableEvents:
		applyRemote(s, s.events, ch)
	case model.TableSongs:
		applyRemote(s, s.songs, ch)
	case model.TableTransactions:
		applyRemote(s, s.transactions, ch)
	case model.TableAttendance:
		applyRemote(s, s.attendance, ch)
	default:
		log.Debug("change for unknown table", "table", ch.Table)
	}
}

func applyRemote[T record](s *Store, c *collection[T], ch storage.Change) {
	id := ch.ID()
	if id == "" {
		return
	}
	var rec T
	if ch.Op != storage.OpDelete {
		if err := rowmap.DecodeKnown(c.table, ch.Row, &rec); err != nil {
			log.Error("undecodable change", err, "table", c.table, "id", id)
			return
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if c.isPending(id) {
		s.mu.Unlock()
		metrics.RecordRemoteChange(c.table, false)
		log.Debug("dropping echo for pending record", "table", c.table, "id", id, "op", ch.Op)
		return
	}
	if ch.Op == storage.OpDelete {
		c.remove(id)
	} else {
		c.put(rec)
	}
	s.mu.Unlock()

	metrics.RecordRemoteChange(c.table, true)
	s.notify(Event{Table: c.table, Op: ch.Op, ID: id, Origin: OriginRemote})
}
