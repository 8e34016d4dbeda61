package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ruleref/ruleref/internal/core/models"
)

// ReplaceGames swaps the cached catalog for a fresh fetch. The old cache
// is dropped wholesale; there is no incremental merge.
func (db *DB) ReplaceGames(games []models.Game) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM games`); err != nil {
		return err
	}

	for _, g := range games {
		categories, err := json.Marshal(g.Categories)
		if err != nil {
			return fmt.Errorf("marshal categories for %s: %w", g.GameID, err)
		}
		aiTags, err := json.Marshal(g.AITags)
		if err != nil {
			return fmt.Errorf("marshal ai tags for %s: %w", g.GameID, err)
		}
		_, err = tx.Exec(`
			INSERT INTO games (game_id, name, description, complexity, min_players, max_players, rule_count, categories, ai_tags, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, g.GameID, g.Name, g.Description, string(g.Complexity), g.MinPlayers, g.MaxPlayers, g.RuleCount,
			string(categories), string(aiTags), nullTime(g.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert game %s: %w", g.GameID, err)
		}
	}

	return tx.Commit()
}

// ListGames returns the cached catalog in name order.
func (db *DB) ListGames() ([]models.Game, error) {
	rows, err := db.conn.Query(`
		SELECT game_id, name, COALESCE(description, ''), COALESCE(complexity, ''),
			min_players, max_players, rule_count, categories, ai_tags, created_at
		FROM games ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		var g models.Game
		var complexity string
		var categories, aiTags sql.NullString
		var createdAt sql.NullTime
		if err := rows.Scan(&g.GameID, &g.Name, &g.Description, &complexity,
			&g.MinPlayers, &g.MaxPlayers, &g.RuleCount, &categories, &aiTags, &createdAt); err != nil {
			return nil, err
		}
		g.Complexity = models.Complexity(complexity)
		if categories.Valid {
			if err := json.Unmarshal([]byte(categories.String), &g.Categories); err != nil {
				return nil, fmt.Errorf("unmarshal categories for %s: %w", g.GameID, err)
			}
		}
		if aiTags.Valid {
			if err := json.Unmarshal([]byte(aiTags.String), &g.AITags); err != nil {
				return nil, fmt.Errorf("unmarshal ai tags for %s: %w", g.GameID, err)
			}
		}
		if createdAt.Valid {
			g.CreatedAt = createdAt.Time
		}
		games = append(games, g)
	}
	return games, rows.Err()
}
