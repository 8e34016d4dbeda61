// Package catalog caches the remote game list and the user's current
// selection. The cache is replaced wholesale on each successful fetch; a
// failed fetch keeps whatever was there before.
package catalog

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ruleref/ruleref/internal/core/db"
	"github.com/ruleref/ruleref/internal/core/models"
)

const selectedGameKey = "selected_game"

// GamesClient is the slice of the API client the catalog needs.
type GamesClient interface {
	Games(ctx context.Context) ([]models.Game, error)
}

// Store is the catalog state. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	db       *db.DB
	client   GamesClient
	games    []models.Game
	selected *models.Game
	errMsg   string
}

// New builds a catalog store, rehydrating the cached game list and the
// persisted selection.
func New(database *db.DB, client GamesClient) (*Store, error) {
	s := &Store{db: database, client: client}

	games, err := database.ListGames()
	if err != nil {
		return nil, err
	}
	s.games = games

	raw, err := database.GetState(selectedGameKey)
	if err != nil {
		return nil, err
	}
	if raw != "" {
		var g models.Game
		if err := json.Unmarshal([]byte(raw), &g); err == nil {
			s.selected = &g
		}
	}
	return s, nil
}

// LoadGames fetches the catalog and replaces the cache. On failure the
// previous list stays intact and the error message is recorded; on success
// any previous error is cleared.
func (s *Store) LoadGames(ctx context.Context) error {
	games, err := s.client.Games(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errMsg = err.Error()
		return err
	}

	s.games = games
	s.errMsg = ""
	return s.db.ReplaceGames(games)
}

// Games returns the cached catalog.
func (s *Store) Games() []models.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Game, len(s.games))
	copy(out, s.games)
	return out
}

// Game looks up one cached entry by id.
func (s *Store) Game(gameID string) (models.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.games {
		if g.GameID == gameID {
			return g, true
		}
	}
	return models.Game{}, false
}

// Select sets the current game. Pure assignment: the game is not checked
// against the latest catalog.
func (s *Store) Select(g models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = &g

	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return s.db.SetState(selectedGameKey, string(raw))
}

// ClearSelection drops the current selection.
func (s *Store) ClearSelection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	return s.db.SetState(selectedGameKey, "")
}

// Selected returns the current selection, if any.
func (s *Store) Selected() (models.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return models.Game{}, false
	}
	return *s.selected, true
}

// Filtered returns the games matching a case-insensitive substring search
// over name, description, categories, and tags, AND-combined with an exact
// complexity match. Empty search text means complexity-only filtering.
func (s *Store) Filtered(search string, complexity models.Complexity) []models.Game {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Game
	for _, g := range s.games {
		if complexity != "" && g.Complexity != complexity {
			continue
		}
		if !g.Matches(search) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// Err returns the last load error message, empty after a successful load.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Reset clears selection and error state. Called by the explicit logout
// path; the cached list itself is harmless and kept for the next login.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.errMsg = ""
	return s.db.SetState(selectedGameKey, "")
}
