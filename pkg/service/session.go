// Package service implements the macchain CLI commands on top of the API
// client and the client-side store.
package service

import (
	"errors"
	"fmt"

	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/client"
	"github.com/macchain/backend/pkg/config"
	"github.com/macchain/backend/pkg/credentials"
	"github.com/macchain/backend/pkg/logger"
	"github.com/macchain/backend/pkg/prompter"
	"github.com/macchain/backend/pkg/syncer"
)

// ErrNotLoggedIn is returned by commands that need a session
var ErrNotLoggedIn = errors.New("not logged in; run `macchain auth login`")

// Session is the authenticated context shared by services
type Session struct {
	API      *api.Client
	Creds    *credentials.Credentials
	ClientID string
	Prompt   *prompter.Prompter

	store *syncer.Store
}

// NewSession loads stored credentials. token overrides them when set.
func NewSession(token string) (*Session, error) {
	creds, err := credentials.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if token == "" && creds.IsValid() {
		token = creds.AccessToken
	}
	if token != "" && creds == nil {
		creds = &credentials.Credentials{AccessToken: token}
	}
	clientID, err := credentials.ClientID()
	if err != nil {
		logger.Warn("Could not persist client id", "error", err)
	}
	return &Session{
		API:      api.New(client.New(client.FromConfig(clientID, token))),
		Creds:    creds,
		ClientID: clientID,
		Prompt:   prompter.New(),
	}, nil
}

// NewSessionWith builds a session around an existing client, mainly for
// tests
func NewSessionWith(c *api.Client, creds *credentials.Credentials, p *prompter.Prompter) *Session {
	return &Session{API: c, Creds: creds, ClientID: "test-client", Prompt: p}
}

// RequireAuth fails unless a token is available
func (s *Session) RequireAuth() error {
	if s.Creds == nil || s.Creds.AccessToken == "" {
		return ErrNotLoggedIn
	}
	return nil
}

// UserID is the signed-in user's id, empty when unknown
func (s *Session) UserID() string {
	if s.Creds == nil {
		return ""
	}
	return s.Creds.UserID
}

// Store returns the client-side store, building it on first use
func (s *Session) Store() (*syncer.Store, error) {
	if s.store != nil {
		return s.store, nil
	}
	st, err := syncer.NewStore(s.API, syncer.StoreOptions{
		ClientID:      s.ClientID,
		UserID:        s.UserID(),
		Strategy:      syncer.ParseConflictStrategy(config.GetString("sync.conflict_strategy")),
		MaxConcurrent: config.GetInt("sync.max_concurrent"),
		MaxRetries:    config.GetInt("sync.max_retries"),
		OfflinePath:   config.GetString("sync.offline_queue"),
	})
	if err != nil {
		return nil, err
	}
	s.store = st
	return st, nil
}

// Close releases the store's workers
func (s *Session) Close() {
	if s.store != nil {
		s.store.Close()
	}
}
