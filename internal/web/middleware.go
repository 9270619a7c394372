package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/auth"
	appLog "github.com/Nhatnguyen0000/Choir-sub000/internal/log"
)

type sessionKey struct{}

func withSession(ctx context.Context, sess auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

func sessionFrom(ctx context.Context) auth.Session {
	sess, _ := ctx.Value(sessionKey{}).(auth.Session)
	return sess
}

// requireSession checks HTTP Basic credentials against the gate on every
// request. There is no server-side session state.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, password, ok := r.BasicAuth()
		if !ok {
			challenge(w, "login required")
			return
		}
		sess, err := s.gate.Login(account, password)
		if err != nil {
			challenge(w, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}

func challenge(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="ChoirDesk", charset="UTF-8"`)
	writeError(w, http.StatusUnauthorized, msg)
}

type loginRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

// handleLogin lets the shell validate credentials before it starts sending
// them with every request.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Account) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "account and password are required")
		return
	}

	sess, err := s.gate.Login(req.Account, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		appLog.Info("login rejected", "account", req.Account)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	appLog.Info("login", "account", sess.Account, "unit", sess.Unit)
	writeJSON(w, http.StatusOK, sess)
}
