package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/rowmap"
)

//go:embed schema.sql
var schemaSQL string

// HostedSchema is the DDL of the hosted backend's tables.
//
//go:embed hosted_schema.sql
var HostedSchema string

// SnapshotKey is the kv key holding the local snapshot document.
const SnapshotKey = "choir-manager-data"

// document is the persisted snapshot: table name -> camelCase records.
// Its JSON shape matches model.Snapshot.
type document map[string][]map[string]any

// Local keeps every table in one JSON document stored in SQLite. The
// document is read once at open and rewritten after every mutation.
type Local struct {
	mu     sync.Mutex
	db     *sql.DB
	doc    document
	closed bool
}

// OpenLocal creates or opens the snapshot database at path.
func OpenLocal(path string) (*Local, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	l := &Local{db: db, doc: document{}}
	if err := l.read(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Local) read() error {
	var raw string
	err := l.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, SnapshotKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &l.doc); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if l.doc == nil {
		l.doc = document{}
	}
	return nil
}

// write persists the whole document. Callers hold l.mu.
func (l *Local) write(ctx context.Context) error {
	data, err := json.Marshal(l.doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		SnapshotKey, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (l *Local) Mode() Mode { return ModeLocal }

func (l *Local) List(ctx context.Context, table string) ([]rowmap.Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	recs := l.doc[table]
	rows := make([]rowmap.Row, 0, len(recs))
	for _, rec := range recs {
		row, err := rowmap.FromFields(table, rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (l *Local) Insert(ctx context.Context, table string, row rowmap.Row) error {
	return l.mutate(ctx, table, row, func(recs []map[string]any, rec map[string]any) ([]map[string]any, error) {
		if i := indexOf(recs, rec, []string{"id"}); i >= 0 {
			return nil, fmt.Errorf("insert %s: duplicate id %v", table, rec["id"])
		}
		return append(recs, rec), nil
	})
}

func (l *Local) Update(ctx context.Context, table, id string, row rowmap.Row) error {
	patch := make(rowmap.Row, len(row)+1)
	for k, v := range row {
		patch[k] = v
	}
	patch["id"] = id
	return l.mutate(ctx, table, patch, func(recs []map[string]any, rec map[string]any) ([]map[string]any, error) {
		i := indexOf(recs, rec, []string{"id"})
		if i < 0 {
			return nil, fmt.Errorf("update %s %s: %w", table, id, ErrNotFound)
		}
		merged := make(map[string]any, len(recs[i]))
		for k, v := range recs[i] {
			merged[k] = v
		}
		for k, v := range rec {
			merged[k] = v
		}
		recs[i] = merged
		return recs, nil
	})
}

func (l *Local) Delete(ctx context.Context, table, id string) error {
	return l.mutate(ctx, table, rowmap.Row{"id": id}, func(recs []map[string]any, rec map[string]any) ([]map[string]any, error) {
		i := indexOf(recs, rec, []string{"id"})
		if i < 0 {
			return recs, nil
		}
		return append(recs[:i], recs[i+1:]...), nil
	})
}

func (l *Local) Upsert(ctx context.Context, table string, row rowmap.Row, onConflict ...string) error {
	if len(onConflict) == 0 {
		onConflict = []string{"id"}
	}
	keys := make([]string, 0, len(onConflict))
	for _, col := range onConflict {
		field, err := rowmap.Field(table, col)
		if err != nil {
			return err
		}
		keys = append(keys, field)
	}
	return l.mutate(ctx, table, row, func(recs []map[string]any, rec map[string]any) ([]map[string]any, error) {
		if i := indexOf(recs, rec, keys); i >= 0 {
			recs[i] = rec
			return recs, nil
		}
		return append(recs, rec), nil
	})
}

// Subscribe returns a no-op subscription; the local backend has no
// external writers.
func (l *Local) Subscribe(ctx context.Context, table string, fn func(Change)) (Subscription, error) {
	return noopSubscription{}, nil
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}

// mutate applies fn to a copy of the table and persists the document. On
// a write failure the in-memory document is left untouched.
func (l *Local) mutate(ctx context.Context, table string, row rowmap.Row,
	fn func(recs []map[string]any, rec map[string]any) ([]map[string]any, error)) error {
	rec, err := rowmap.Fields(table, row)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	prev := l.doc[table]
	recs := make([]map[string]any, len(prev))
	copy(recs, prev)

	next, err := fn(recs, rec)
	if err != nil {
		return err
	}
	l.doc[table] = next
	if err := l.write(ctx); err != nil {
		l.doc[table] = prev
		return err
	}
	return nil
}

func indexOf(recs []map[string]any, rec map[string]any, keys []string) int {
	for i, r := range recs {
		match := true
		for _, k := range keys {
			if fmt.Sprint(r[k]) != fmt.Sprint(rec[k]) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// ReadSnapshot decodes the stored document into typed collections.
func (l *Local) ReadSnapshot() (model.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var snap model.Snapshot
	data, err := json.Marshal(l.doc)
	if err != nil {
		return snap, err
	}
	err = json.Unmarshal(data, &snap)
	return snap, err
}
