package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/assistant"
)

// unavailable answers every prompt with ErrNotConfigured so the chat screen
// still works and shows the apology.
type unavailable struct{}

func (unavailable) Generate(context.Context, string) (assistant.Reply, error) {
	return assistant.Reply{}, assistant.ErrNotConfigured
}

func (s *Server) chatFor(account string) *assistant.Assistant {
	s.chatMu.Lock()
	defer s.chatMu.Unlock()
	a, ok := s.chats[account]
	if !ok {
		a = assistant.New(s.gen)
		s.chats[account] = a
	}
	return a
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chatFor(sessionFrom(r.Context()).Account).Transcript())
}

type askRequest struct {
	Prompt string `json:"prompt"`
}

// handleAsk always answers 200; backend failures arrive as a failed
// apology message.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	msg := s.chatFor(sessionFrom(r.Context()).Account).Ask(r.Context(), req.Prompt)
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleResetChat(w http.ResponseWriter, r *http.Request) {
	s.chatFor(sessionFrom(r.Context()).Account).Reset()
	w.WriteHeader(http.StatusNoContent)
}
