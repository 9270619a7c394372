package web

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/assistant"
)

func TestAssistant_AskKeepsTranscriptPerAccount(t *testing.T) {
	gen := fakeGenerator{reply: assistant.Reply{Text: "Sing Psalm 23.", Citations: []assistant.Citation{{URI: "https://example.org", Title: "Lectionary"}}}}
	env := newTestEnv(t, nil, gen)

	resp := env.do(t, http.MethodPost, "/api/assistant", "maria", askRequest{Prompt: "Responsorial psalm for Sunday?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msg := decode[assistant.Message](t, resp)
	assert.Equal(t, assistant.RoleAssistant, msg.Role)
	assert.Equal(t, "Sing Psalm 23.", msg.Text)
	assert.Len(t, msg.Citations, 1)

	resp = env.do(t, http.MethodGet, "/api/assistant", "maria", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]assistant.Message](t, resp), 2)

	resp = env.do(t, http.MethodGet, "/api/assistant", "paul", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]assistant.Message](t, resp))

	resp = env.do(t, http.MethodDelete, "/api/assistant", "maria", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/assistant", "maria", nil)
	assert.Empty(t, decode[[]assistant.Message](t, resp))
}

func TestAssistant_FailureBecomesApology(t *testing.T) {
	env := newTestEnv(t, nil, fakeGenerator{err: errors.New("quota exceeded")})

	resp := env.do(t, http.MethodPost, "/api/assistant", "maria", askRequest{Prompt: "Hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msg := decode[assistant.Message](t, resp)
	assert.True(t, msg.Failed)
	assert.Equal(t, assistant.Apology, msg.Text)
}

func TestAssistant_NotConfiguredApologises(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(t, http.MethodPost, "/api/assistant", "maria", askRequest{Prompt: "Hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, assistant.Apology, decode[assistant.Message](t, resp).Text)
}

func TestAssistant_EmptyPrompt(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	resp := env.do(t, http.MethodPost, "/api/assistant", "maria", askRequest{Prompt: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
