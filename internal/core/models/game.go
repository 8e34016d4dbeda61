package models

import (
	"errors"
	"strings"
	"time"
)

// Complexity buckets games by how heavy their rulesets are.
type Complexity string

const (
	ComplexityEasy   Complexity = "easy"
	ComplexityMedium Complexity = "medium"
	ComplexityHard   Complexity = "hard"
)

// Game is one entry in the remote rules catalog. The JSON tags match the
// snake_case keys the API uses; everything internal works with the Go names.
type Game struct {
	GameID      string     `json:"game_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Complexity  Complexity `json:"complexity"`
	MinPlayers  int        `json:"min_players"`
	MaxPlayers  int        `json:"max_players"`
	RuleCount   int        `json:"rule_count"`
	Categories  []string   `json:"categories"`
	AITags      []string   `json:"ai_tags"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Validate checks if the game has required fields
func (g *Game) Validate() error {
	if g.GameID == "" {
		return errors.New("game_id is required")
	}
	if g.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// Matches reports whether the game matches a case-insensitive substring
// search over name, description, categories, and AI tags. An empty search
// matches everything.
func (g *Game) Matches(search string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	if strings.Contains(strings.ToLower(g.Name), search) {
		return true
	}
	if strings.Contains(strings.ToLower(g.Description), search) {
		return true
	}
	for _, c := range g.Categories {
		if strings.Contains(strings.ToLower(c), search) {
			return true
		}
	}
	for _, t := range g.AITags {
		if strings.Contains(strings.ToLower(t), search) {
			return true
		}
	}
	return false
}
