// Package storage defines the persistence collaborator consumed by the
// store and its two implementations: the hosted backend and a local
// SQLite snapshot file.
package storage

import (
	"context"
	"errors"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/rowmap"
)

// Mode identifies which backend is active.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// Op is the kind of a change-feed event.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("storage closed")
	// ErrNotFound is returned when an update or delete matched no row.
	ErrNotFound = errors.New("row not found")
)

// Change is one change-feed event. Row carries the new row for inserts and
// updates; Old carries at least the id for deletes.
type Change struct {
	Table string
	Op    Op
	Row   rowmap.Row
	Old   rowmap.Row
}

// ID returns the identifier the change refers to.
func (c Change) ID() string {
	for _, r := range []rowmap.Row{c.Row, c.Old} {
		if id, ok := r["id"].(string); ok && id != "" {
			return id
		}
	}
	return ""
}

// Subscription is a live change-feed registration.
type Subscription interface {
	Close() error
}

// Backend is the storage collaborator. Rows use column names.
type Backend interface {
	List(ctx context.Context, table string) ([]rowmap.Row, error)
	Insert(ctx context.Context, table string, row rowmap.Row) error
	Update(ctx context.Context, table, id string, row rowmap.Row) error
	Delete(ctx context.Context, table, id string) error
	// Upsert inserts or replaces the row matching onConflict columns
	// (default "id").
	Upsert(ctx context.Context, table string, row rowmap.Row, onConflict ...string) error
	Subscribe(ctx context.Context, table string, fn func(Change)) (Subscription, error)
	Mode() Mode
	Close() error
}

type noopSubscription struct{}

func (noopSubscription) Close() error { return nil }
