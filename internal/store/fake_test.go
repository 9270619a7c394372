package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/rowmap"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/storage"
)

type fakeSub struct {
	b     *fakeBackend
	table string
}

func (s *fakeSub) Close() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	delete(s.b.feeds, s.table)
	s.b.closedSubs++
	return nil
}

// fakeBackend records calls and can fail or block them.
type fakeBackend struct {
	mu         sync.Mutex
	rows       map[string][]rowmap.Row
	listErr    map[string]error
	calls      []string
	lastRow    rowmap.Row
	lastOnConf []string
	fail       func(op storage.Op, table, id string) error
	gate       chan struct{}
	feeds      map[string]func(storage.Change)
	closedSubs int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		rows:    map[string][]rowmap.Row{},
		listErr: map[string]error{},
		feeds:   map[string]func(storage.Change){},
	}
}

func (b *fakeBackend) Mode() storage.Mode { return storage.ModeRemote }
func (b *fakeBackend) Close() error       { return nil }

func (b *fakeBackend) List(ctx context.Context, table string) ([]rowmap.Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.listErr[table]; err != nil {
		return nil, err
	}
	return b.rows[table], nil
}

func (b *fakeBackend) call(ctx context.Context, op storage.Op, table, id string, row rowmap.Row) error {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, fmt.Sprintf("%s %s %s", op, table, id))
	b.lastRow = row
	if b.fail != nil {
		return b.fail(op, table, id)
	}
	return nil
}

func (b *fakeBackend) Insert(ctx context.Context, table string, row rowmap.Row) error {
	return b.call(ctx, storage.OpInsert, table, fmt.Sprint(row["id"]), row)
}

func (b *fakeBackend) Update(ctx context.Context, table, id string, row rowmap.Row) error {
	return b.call(ctx, storage.OpUpdate, table, id, row)
}

func (b *fakeBackend) Delete(ctx context.Context, table, id string) error {
	return b.call(ctx, storage.OpDelete, table, id, nil)
}

func (b *fakeBackend) Upsert(ctx context.Context, table string, row rowmap.Row, onConflict ...string) error {
	b.mu.Lock()
	b.lastOnConf = onConflict
	b.mu.Unlock()
	return b.call(ctx, "UPSERT", table, fmt.Sprint(row["id"]), row)
}

func (b *fakeBackend) Subscribe(ctx context.Context, table string, fn func(storage.Change)) (storage.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.feeds[table] = fn
	return &fakeSub{b: b, table: table}, nil
}

// push delivers a change as the realtime feed would.
func (b *fakeBackend) push(ch storage.Change) bool {
	b.mu.Lock()
	fn := b.feeds[ch.Table]
	b.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(ch)
	return true
}

func (b *fakeBackend) callLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}
