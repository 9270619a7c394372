package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/rowmap"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/supabase"
)

func newTestRemote(t *testing.T, h http.HandlerFunc) *Remote {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	r, err := NewRemote(RemoteConfig{URL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRemote_List(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/rest/v1/events", req.URL.Path)
		w.Write([]byte(`[{"id":"e1","title":"Mass"},{"id":"e2","title":"Rehearsal"}]`))
	})
	assert.Equal(t, ModeRemote, r.Mode())

	rows, err := r.List(context.Background(), model.TableEvents)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Rehearsal", rows[1]["title"])
}

func TestRemote_ListSelectsMappedColumns(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "date,id,member_id,note,status", req.URL.Query().Get("select"))
		w.Write([]byte(`[{"id":"a1","date":"2026-01-04","member_id":"m1","status":"late","note":""}]`))
	})

	rows, err := r.List(context.Background(), model.TableAttendance)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = r.List(context.Background(), "choirs")
	assert.ErrorIs(t, err, rowmap.ErrUnknownTable)
}

func TestHostedSchema_CoversEveryColumn(t *testing.T) {
	for _, table := range model.Tables {
		block := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS ` + table + ` \((.*?)\n\);`).
			FindStringSubmatch(HostedSchema)
		require.Len(t, block, 2, table)

		cols, err := rowmap.Columns(table)
		require.NoError(t, err)
		for _, col := range cols {
			assert.Regexp(t, `(?m)^\s+`+col+`\s`, block[1], "%s.%s", table, col)
		}
		assert.Contains(t, block[1], "created_at", table)
	}
	assert.True(t, strings.Contains(HostedSchema, "UNIQUE (date, member_id)"))
}

func TestRemote_UpdateMissingRow(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPatch, req.Method)
		w.Write([]byte(`[]`))
	})
	err := r.Update(context.Background(), model.TableSongs, "s9", rowmap.Row{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemote_ErrorsAreWrapped(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"JWT expired"}`))
	})

	err := r.Insert(context.Background(), model.TableMembers, rowmap.Row{"id": "m1"})
	var apiErr *supabase.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "insert members")
}

func TestRemote_UpsertConflictColumns(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "date,member_id", req.URL.Query().Get("on_conflict"))
		w.WriteHeader(http.StatusCreated)
	})
	require.NoError(t, r.Upsert(context.Background(), model.TableAttendance,
		rowmap.Row{"date": "2026-01-04", "member_id": "m1", "status": "present"}, "date", "member_id"))
}
