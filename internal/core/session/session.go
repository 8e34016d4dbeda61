// Package session holds the authenticated-user state: the bearer token and
// the identity the backend reported at login. State is persisted to a
// 0600-permission file in the config directory, the closest a portable CLI
// gets to an OS credential store.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ruleref/ruleref/internal/core/models"
)

// ErrNoIdentity is returned by Login when the backend supplied a token but
// no user object. The session is still authenticated; callers should
// surface the degraded state instead of fabricating an identity.
var ErrNoIdentity = errors.New("backend supplied no user identity")

const authFile = "auth.json"

// Store is the session state. Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	path  string
	token string
	user  *models.User
}

type persistedAuth struct {
	Token string       `json:"token"`
	User  *models.User `json:"user,omitempty"`
}

// Open loads any persisted session from dir. A missing or unreadable auth
// file just means logged-out.
func Open(dir string) (*Store, error) {
	s := &Store{path: filepath.Join(dir, authFile)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read auth state: %w", err)
	}

	var auth persistedAuth
	if err := json.Unmarshal(data, &auth); err != nil {
		// Corrupt auth state is treated as logged-out rather than fatal
		return s, nil
	}
	s.token = auth.Token
	s.user = auth.User
	return s, nil
}

// Login stores the credential and identity. The user object comes from the
// server; when it is absent the session still authenticates but Login
// reports ErrNoIdentity so the caller can flag the degraded state.
func (s *Store) Login(token string, user *models.User) error {
	if token == "" {
		return errors.New("token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	if err := s.persistLocked(); err != nil {
		return err
	}
	if user == nil {
		return ErrNoIdentity
	}
	return nil
}

// Logout clears the token and user. Downstream stores (catalog,
// conversation) are not touched here; the logout command resets them
// explicitly.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove auth state: %w", err)
	}
	return nil
}

// Token implements api.TokenSource.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// IsAuthenticated is true exactly when a token is present.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Token()
	return ok
}

// User returns the stored identity, or nil for a degraded session.
func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// PreferencesPatch is a partial preferences update; nil fields are left as
// they are.
type PreferencesPatch struct {
	SelectedGameID *string
	Theme          *models.Theme
}

// UpdatePreferences merges a patch into the user's preferences. No-op when
// unauthenticated or when the session has no identity.
func (s *Store) UpdatePreferences(patch PreferencesPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || s.user == nil {
		return nil
	}
	if patch.SelectedGameID != nil {
		s.user.Preferences.SelectedGameID = *patch.SelectedGameID
	}
	if patch.Theme != nil {
		s.user.Preferences.Theme = *patch.Theme
	}
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(persistedAuth{Token: s.token, User: s.user}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal auth state: %w", err)
	}
	// The token is a secret: owner-only permissions
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write auth state: %w", err)
	}
	return nil
}
