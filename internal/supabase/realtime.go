package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/log"
)

// ErrRealtimeClosed is returned by operations on a closed realtime client.
var ErrRealtimeClosed = errors.New("realtime client closed")

// ChangeEvent is one postgres_changes notification.
type ChangeEvent struct {
	Type            string         `json:"type"` // INSERT, UPDATE, DELETE
	Schema          string         `json:"schema"`
	Table           string         `json:"table"`
	Record          map[string]any `json:"record"`
	OldRecord       map[string]any `json:"old_record"`
	CommitTimestamp string         `json:"commit_timestamp"`
}

// EventHandler handles realtime events. Handlers for one client run on the
// read goroutine, in arrival order.
type EventHandler func(ChangeEvent)

// PostgresChangesConfig configures postgres changes subscription.
type PostgresChangesConfig struct {
	Event  string // INSERT, UPDATE, DELETE, *
	Schema string
	Table  string
}

type envelope struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

// Channel is one joined topic.
type Channel struct {
	rt      *Realtime
	topic   string
	cfg     PostgresChangesConfig
	handler EventHandler
}

// Topic returns the channel topic.
func (c *Channel) Topic() string { return c.topic }

// Unsubscribe leaves the channel; further events for it are dropped.
func (c *Channel) Unsubscribe() error {
	return c.rt.leave(c)
}

// Realtime handles Supabase Realtime subscriptions over one websocket.
type Realtime struct {
	url    string
	dialer websocket.Dialer

	// HeartbeatInterval defaults to 30s.
	HeartbeatInterval time.Duration

	mu       sync.Mutex
	writeMu  sync.Mutex
	conn     *websocket.Conn
	channels map[string]*Channel
	ref      int
	closed   bool
	done     chan struct{}
	hbOnce   sync.Once
}

// NewRealtime creates a realtime client for the project at baseURL.
func NewRealtime(baseURL, apiKey string) *Realtime {
	wsURL := strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("vsn", "1.0.0")
	wsURL += "/realtime/v1/websocket?" + q.Encode()

	return &Realtime{
		url:               wsURL,
		dialer:            websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		HeartbeatInterval: 30 * time.Second,
		channels:          make(map[string]*Channel),
		done:              make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection. It is a no-op when already
// connected.
func (r *Realtime) Connect(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRealtimeClosed
	}
	if r.conn != nil {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		conn.Close()
		return ErrRealtimeClosed
	}
	r.conn = conn
	r.mu.Unlock()

	go r.readLoop(conn)
	r.hbOnce.Do(func() { go r.heartbeat() })
	return nil
}

// Close leaves all channels and closes the connection.
func (r *Realtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	conn := r.conn
	r.conn = nil
	r.channels = map[string]*Channel{}
	r.mu.Unlock()

	if conn == nil {
		return nil
	}
	r.writeMu.Lock()
	err := conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	r.writeMu.Unlock()
	conn.Close()
	if err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return nil
}

// SubscribeToPostgresChanges joins the change feed of one table.
func (r *Realtime) SubscribeToPostgresChanges(ctx context.Context, cfg PostgresChangesConfig, handler EventHandler) (*Channel, error) {
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.Event == "" {
		cfg.Event = "*"
	}
	if err := r.Connect(ctx); err != nil {
		return nil, err
	}

	ch := &Channel{
		rt:      r,
		topic:   fmt.Sprintf("realtime:%s:%s", cfg.Schema, cfg.Table),
		cfg:     cfg,
		handler: handler,
	}

	r.mu.Lock()
	r.channels[ch.topic] = ch
	r.mu.Unlock()

	if err := r.join(ch); err != nil {
		r.mu.Lock()
		delete(r.channels, ch.topic)
		r.mu.Unlock()
		return nil, err
	}
	return ch, nil
}

func (r *Realtime) nextRef() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ref++
	return strconv.Itoa(r.ref)
}

func (r *Realtime) send(msg map[string]any) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return ErrRealtimeClosed
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (r *Realtime) join(ch *Channel) error {
	ref := r.nextRef()
	msg := map[string]any{
		"topic": ch.topic,
		"event": "phx_join",
		"payload": map[string]any{
			"config": map[string]any{
				"postgres_changes": []map[string]string{{
					"event":  ch.cfg.Event,
					"schema": ch.cfg.Schema,
					"table":  ch.cfg.Table,
				}},
			},
		},
		"ref":      ref,
		"join_ref": ref,
	}
	if err := r.send(msg); err != nil {
		return fmt.Errorf("send join: %w", err)
	}
	return nil
}

func (r *Realtime) leave(ch *Channel) error {
	r.mu.Lock()
	if r.channels[ch.topic] != ch {
		r.mu.Unlock()
		return nil
	}
	delete(r.channels, ch.topic)
	r.mu.Unlock()

	msg := map[string]any{
		"topic":   ch.topic,
		"event":   "phx_leave",
		"payload": map[string]any{},
		"ref":     r.nextRef(),
	}
	if err := r.send(msg); err != nil && !errors.Is(err, ErrRealtimeClosed) {
		return fmt.Errorf("send leave: %w", err)
	}
	return nil
}

func (r *Realtime) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			if r.conn == conn {
				r.conn = nil
			}
			r.mu.Unlock()
			if !closed {
				log.Error("realtime connection lost", err)
				go r.reconnect()
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Debug("realtime: skipping undecodable frame", "err", err)
			continue
		}
		r.dispatch(env)
	}
}

func (r *Realtime) dispatch(env envelope) {
	var ev ChangeEvent
	switch env.Event {
	case "postgres_changes":
		var p struct {
			Data ChangeEvent `json:"data"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		ev = p.Data
	case "INSERT", "UPDATE", "DELETE":
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return
		}
		if ev.Type == "" {
			ev.Type = env.Event
		}
	case "phx_reply", "phx_close", "presence_state", "system":
		log.Debug("realtime control frame", "topic", env.Topic, "event", env.Event)
		return
	default:
		return
	}

	r.mu.Lock()
	ch := r.channels[env.Topic]
	r.mu.Unlock()
	if ch == nil || ch.handler == nil {
		return
	}
	if ch.cfg.Event != "*" && ch.cfg.Event != ev.Type {
		return
	}
	ch.handler(ev)
}

func (r *Realtime) heartbeat() {
	interval := r.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			msg := map[string]any{
				"topic":   "phoenix",
				"event":   "heartbeat",
				"payload": map[string]any{},
				"ref":     r.nextRef(),
			}
			if err := r.send(msg); err != nil && !errors.Is(err, ErrRealtimeClosed) {
				log.Error("realtime heartbeat failed", err)
			}
		}
	}
}

// reconnect redials with capped exponential backoff and rejoins every
// channel.
func (r *Realtime) reconnect() {
	backoff := time.Second
	for {
		select {
		case <-r.done:
			return
		case <-time.After(backoff):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
		cancel()
		if err != nil {
			log.Error("realtime reconnect failed", err, "retry_in", backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			conn.Close()
			return
		}
		r.conn = conn
		channels := make([]*Channel, 0, len(r.channels))
		for _, ch := range r.channels {
			channels = append(channels, ch)
		}
		r.mu.Unlock()

		go r.readLoop(conn)
		for _, ch := range channels {
			if err := r.join(ch); err != nil {
				log.Error("realtime rejoin failed", err, "topic", ch.topic)
			}
		}
		log.Info("realtime reconnected", "channels", len(channels))
		return
	}
}
