package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/log"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/rowmap"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/supabase"
)

// Remote is the hosted backend: PostgREST for rows and the realtime
// websocket for the change feed.
type Remote struct {
	client   *supabase.Client
	realtime *supabase.Realtime
	schema   string
}

// RemoteConfig configures NewRemote.
type RemoteConfig struct {
	URL        string
	APIKey     string
	Schema     string
	HTTPClient *http.Client
}

// NewRemote builds a remote backend. It does not touch the network until
// the first call.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	client, err := supabase.New(supabase.Config{URL: cfg.URL, APIKey: cfg.APIKey, HTTPClient: cfg.HTTPClient})
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}
	return &Remote{
		client:   client,
		realtime: supabase.NewRealtime(client.BaseURL(), cfg.APIKey),
		schema:   schema,
	}, nil
}

func (r *Remote) Mode() Mode { return ModeRemote }

// List fetches the mapped columns of every row of table.
func (r *Remote) List(ctx context.Context, table string) ([]rowmap.Row, error) {
	cols, err := rowmap.Columns(table)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	resp, err := r.client.From(table).Select(strings.Join(cols, ",")).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	if err := resp.Error(); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	var rows []rowmap.Row
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("list %s: decode: %w", table, err)
	}
	return rows, nil
}

func (r *Remote) Insert(ctx context.Context, table string, row rowmap.Row) error {
	resp, err := r.client.From(table).ExecuteInsert(ctx, row)
	return check("insert", table, resp, err)
}

func (r *Remote) Update(ctx context.Context, table, id string, row rowmap.Row) error {
	resp, err := r.client.From(table).Eq("id", id).ExecuteUpdate(ctx, row)
	if err := check("update", table, resp, err); err != nil {
		return err
	}
	return requireRows(resp, table, id)
}

func (r *Remote) Delete(ctx context.Context, table, id string) error {
	resp, err := r.client.From(table).Eq("id", id).ExecuteDelete(ctx)
	return check("delete", table, resp, err)
}

func (r *Remote) Upsert(ctx context.Context, table string, row rowmap.Row, onConflict ...string) error {
	resp, err := r.client.From(table).Upsert(strings.Join(onConflict, ",")).ExecuteInsert(ctx, row)
	return check("upsert", table, resp, err)
}

// Subscribe joins the table's realtime channel. Events are converted to
// Changes and delivered in arrival order.
func (r *Remote) Subscribe(ctx context.Context, table string, fn func(Change)) (Subscription, error) {
	ch, err := r.realtime.SubscribeToPostgresChanges(ctx, supabase.PostgresChangesConfig{
		Schema: r.schema,
		Table:  table,
	}, func(ev supabase.ChangeEvent) {
		fn(Change{Table: table, Op: Op(ev.Type), Row: ev.Record, Old: ev.OldRecord})
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}
	log.Debug("subscribed to change feed", "table", table, "topic", ch.Topic())
	return channelSubscription{ch}, nil
}

func (r *Remote) Close() error {
	return r.realtime.Close()
}

type channelSubscription struct{ ch *supabase.Channel }

func (s channelSubscription) Close() error { return s.ch.Unsubscribe() }

func check(op, table string, resp *supabase.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, table, err)
	}
	if err := resp.Error(); err != nil {
		return fmt.Errorf("%s %s: %w", op, table, err)
	}
	return nil
}

// requireRows turns an empty representation into ErrNotFound.
func requireRows(resp *supabase.Response, table, id string) error {
	if len(resp.Body) == 0 {
		return nil
	}
	var rows []rowmap.Row
	if err := resp.JSON(&rows); err != nil {
		return nil
	}
	if len(rows) == 0 {
		return fmt.Errorf("update %s %s: %w", table, id, ErrNotFound)
	}
	return nil
}
