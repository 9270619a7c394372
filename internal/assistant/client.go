// Package assistant talks to the generative-AI backend and keeps the chat
// transcript shown in the assistant view.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/config"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/metrics"
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("assistant backend not configured")
	// ErrEmptyReply is returned when the backend answered without text.
	ErrEmptyReply = errors.New("assistant returned no text")
)

// Citation is one retrieval source backing a reply.
type Citation struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Reply is the generated text plus optional citations.
type Reply struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
}

// Generator produces a reply for one prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Reply, error)
}

// Client calls the generateContent endpoint.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	persona    string
	grounding  bool
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewClient builds a client from config. RequestsPerMinute bounds the
// request rate across all callers.
func NewClient(cfg config.AssistantConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	return &Client{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		persona:    cfg.Persona,
		grounding:  cfg.Grounding,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		httpClient: httpClient,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	Tools             []map[string]any `json:"tools,omitempty"`
}

// Generate sends prompt with the fixed persona and returns the reply.
func (c *Client) Generate(ctx context.Context, prompt string) (reply Reply, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.RecordAssistant(outcome, time.Since(start))
	}()

	if c.apiKey == "" {
		return Reply{}, ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Reply{}, fmt.Errorf("rate limit: %w", err)
	}

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	if c.persona != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: c.persona}}}
	}
	if c.grounding {
		body.Tools = []map[string]any{{"google_search": map[string]any{}}}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return Reply{}, fmt.Errorf("marshal request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return Reply{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Reply{}, fmt.Errorf("assistant backend (%d): %s", resp.StatusCode, msg)
	}
	return parseReply(raw)
}

func parseReply(raw []byte) (Reply, error) {
	if !gjson.ValidBytes(raw) {
		return Reply{}, errors.New("assistant backend returned invalid JSON")
	}
	cand := gjson.GetBytes(raw, "candidates.0")

	var texts []string
	cand.Get("content.parts").ForEach(func(_, p gjson.Result) bool {
		if t := p.Get("text").String(); t != "" {
			texts = append(texts, t)
		}
		return true
	})
	text := strings.TrimSpace(strings.Join(texts, ""))
	if text == "" {
		return Reply{}, ErrEmptyReply
	}

	reply := Reply{Text: text}
	seen := map[string]bool{}
	cand.Get("groundingMetadata.groundingChunks").ForEach(func(_, chunk gjson.Result) bool {
		uri := chunk.Get("web.uri").String()
		if uri == "" || seen[uri] {
			return true
		}
		seen[uri] = true
		title := chunk.Get("web.title").String()
		if title == "" {
			title = uri
		}
		reply.Citations = append(reply.Citations, Citation{URI: uri, Title: title})
		return true
	})
	return reply, nil
}
