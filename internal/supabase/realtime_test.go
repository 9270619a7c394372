package supabase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRealtime_URL(t *testing.T) {
	r := NewRealtime("https://abc.supabase.co/", "key")
	assert.Equal(t, "wss://abc.supabase.co/realtime/v1/websocket?apikey=key&vsn=1.0.0", r.url)

	r = NewRealtime("http://localhost:54321", "key")
	assert.Contains(t, r.url, "ws://localhost:54321/realtime/v1/websocket")
}

func TestRealtime_PostgresChanges(t *testing.T) {
	upgrader := websocket.Upgrader{}
	joined := make(chan map[string]any, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realtime/v1/websocket", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var join map[string]any
		require.NoError(t, conn.ReadJSON(&join))
		joined <- join

		conn.WriteJSON(map[string]any{
			"topic": join["topic"], "event": "phx_reply", "ref": join["ref"],
			"payload": map[string]any{"status": "ok"},
		})
		conn.WriteJSON(map[string]any{
			"topic": join["topic"], "event": "postgres_changes", "ref": nil,
			"payload": map[string]any{"data": map[string]any{
				"type": "INSERT", "schema": "public", "table": "songs",
				"record": map[string]any{"id": "s1", "title": "Salve Regina"},
			}},
		})
		conn.WriteJSON(map[string]any{
			"topic": join["topic"], "event": "DELETE", "ref": nil,
			"payload": map[string]any{"old_record": map[string]any{"id": "s0"}},
		})

		// Hold the connection until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	rt := NewRealtime(srv.URL, "key")
	defer rt.Close()

	events := make(chan ChangeEvent, 4)
	ch, err := rt.SubscribeToPostgresChanges(context.Background(), PostgresChangesConfig{Table: "songs"}, func(ev ChangeEvent) {
		events <- ev
	})
	require.NoError(t, err)
	assert.Equal(t, "realtime:public:songs", ch.Topic())

	join := <-joined
	assert.Equal(t, "phx_join", join["event"])
	assert.Equal(t, "realtime:public:songs", join["topic"])

	select {
	case ev := <-events:
		assert.Equal(t, "INSERT", ev.Type)
		assert.Equal(t, "Salve Regina", ev.Record["title"])
	case <-time.After(2 * time.Second):
		t.Fatal("no insert event")
	}
	select {
	case ev := <-events:
		assert.Equal(t, "DELETE", ev.Type)
		assert.Equal(t, "s0", ev.OldRecord["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("no delete event")
	}

	require.NoError(t, ch.Unsubscribe())
	require.NoError(t, rt.Close())
	_, err = rt.SubscribeToPostgresChanges(context.Background(), PostgresChangesConfig{Table: "songs"}, nil)
	assert.ErrorIs(t, err, ErrRealtimeClosed)
}
