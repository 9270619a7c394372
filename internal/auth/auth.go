// Package auth checks logins against the configured account table and the
// shared password.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/Nhatnguyen0000/Choir-sub000/internal/config"
)

// ErrInvalidCredentials is returned for any failed login. The message does
// not say which part was wrong.
var ErrInvalidCredentials = errors.New("invalid account or password")

// Session is the identity of a logged-in user.
type Session struct {
	Account     string `json:"account"`
	Unit        string `json:"unit"`
	DisplayName string `json:"displayName"`
}

// Gate holds the static account table.
type Gate struct {
	accounts map[string]config.AccountConfig
	secret   []byte
}

// NewGate builds a gate from the auth section of the config.
func NewGate(cfg config.AuthConfig) *Gate {
	g := &Gate{
		accounts: make(map[string]config.AccountConfig, len(cfg.Accounts)),
		secret:   []byte(cfg.SharedSecret),
	}
	for _, a := range cfg.Accounts {
		key := normalize(a.Account)
		if key == "" {
			continue
		}
		g.accounts[key] = a
	}
	return g
}

func normalize(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}

// Login matches account case-insensitively and compares password with the
// shared secret.
func (g *Gate) Login(account, password string) (Session, error) {
	a, known := g.accounts[normalize(account)]
	match := len(g.secret) > 0 && subtle.ConstantTimeCompare([]byte(password), g.secret) == 1
	if !known || !match {
		return Session{}, ErrInvalidCredentials
	}
	name := a.DisplayName
	if name == "" {
		name = a.Account
	}
	return Session{Account: a.Account, Unit: a.Unit, DisplayName: name}, nil
}

// Accounts returns the number of registered accounts.
func (g *Gate) Accounts() int { return len(g.accounts) }
