package assistant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/config"
)

const groundedReply = `{
  "candidates": [{
    "content": {"role": "model", "parts": [{"text": "Pentecost in 2026 falls on "}, {"text": "May 24."}]},
    "groundingMetadata": {
      "groundingChunks": [
        {"web": {"uri": "https://example.org/pentecost", "title": "Pentecost dates"}},
        {"web": {"uri": "https://example.org/pentecost", "title": "duplicate"}},
        {"web": {"uri": "https://example.org/calendar"}}
      ]
    }
  }]
}`

func testConfig(endpoint string) config.AssistantConfig {
	return config.AssistantConfig{
		Endpoint:          endpoint,
		Model:             "gemini-test",
		APIKey:            "secret",
		Persona:           "You help a parish choir.",
		RequestsPerMinute: 600,
		Grounding:         true,
	}
}

func TestGenerate_Grounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		body, _ := io.ReadAll(r.Body)
		var req generateRequest
		require.NoError(t, json.Unmarshal(body, &req))
		require.NotNil(t, req.SystemInstruction)
		assert.Equal(t, "You help a parish choir.", req.SystemInstruction.Parts[0].Text)
		assert.Equal(t, "When is Pentecost?", req.Contents[0].Parts[0].Text)
		assert.Len(t, req.Tools, 1)

		w.Write([]byte(groundedReply))
	}))
	defer srv.Close()

	reply, err := NewClient(testConfig(srv.URL), nil).Generate(context.Background(), "When is Pentecost?")
	require.NoError(t, err)
	assert.Equal(t, "Pentecost in 2026 falls on May 24.", reply.Text)
	assert.Equal(t, []Citation{
		{URI: "https://example.org/pentecost", Title: "Pentecost dates"},
		{URI: "https://example.org/calendar", Title: "https://example.org/calendar"},
	}, reply.Citations)
}

func TestGenerate_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), nil).Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Resource has been exhausted")
}

func TestGenerate_NotConfigured(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.APIKey = ""
	_, err := NewClient(cfg, nil).Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerate_RateLimitedByContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(groundedReply))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RequestsPerMinute = 1
	c := NewClient(cfg, nil)

	_, err := c.Generate(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Generate(ctx, "second")
	assert.ErrorContains(t, err, "rate limit")
}

func TestParseReply(t *testing.T) {
	_, err := parseReply([]byte(`{"candidates":[{"content":{"parts":[]}}]}`))
	assert.ErrorIs(t, err, ErrEmptyReply)

	_, err = parseReply([]byte(`not json`))
	assert.Error(t, err)

	reply, err := parseReply([]byte(`{"candidates":[{"content":{"parts":[{"text":"  Amen. "}]}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Amen.", reply.Text)
	assert.Empty(t, reply.Citations)
}
