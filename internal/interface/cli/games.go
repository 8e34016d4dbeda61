package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ruleref/ruleref/internal/core/models"
	"github.com/ruleref/ruleref/internal/core/session"
)

var (
	gamesSearch     string
	gamesComplexity string
	gamesSelect     string
	gamesRefresh    bool
)

var gamesCmd = &cobra.Command{
	Use:   "games [game-id]",
	Short: "Browse the game catalog",
	Long: `List the games the backend can answer rules questions about.

With a game id argument, shows that game's details instead. The catalog
is cached locally; --refresh forces a fetch.

Examples:
  ruleref games
  ruleref games --search strategy --complexity hard
  ruleref games chess
  ruleref games --select chess`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGames,
}

func init() {
	rootCmd.AddCommand(gamesCmd)
	gamesCmd.Flags().StringVarP(&gamesSearch, "search", "s", "", "Filter by name, description, category, or tag")
	gamesCmd.Flags().StringVarP(&gamesComplexity, "complexity", "c", "", "Filter by complexity (easy, medium, hard)")
	gamesCmd.Flags().StringVar(&gamesSelect, "select", "", "Select a game for subsequent ask/chat commands")
	gamesCmd.Flags().BoolVar(&gamesRefresh, "refresh", false, "Fetch the catalog even if cached")
}

func runGames(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()

	if gamesRefresh || len(app.catalog.Games()) == 0 {
		if err := app.catalog.LoadGames(ctx); err != nil {
			if len(app.catalog.Games()) == 0 {
				return fmt.Errorf("failed to load games: %w", err)
			}
			// Stale cache is better than nothing
			fmt.Printf("Warning: catalog refresh failed (%v), showing cached list\n\n", err)
		}
	}

	if len(args) == 1 {
		return showGame(ctx, app, args[0])
	}

	if gamesSelect != "" {
		game, ok := app.catalog.Game(gamesSelect)
		if !ok {
			return fmt.Errorf("unknown game: %s", gamesSelect)
		}
		if err := app.catalog.Select(game); err != nil {
			return fmt.Errorf("failed to persist selection: %w", err)
		}
		// Mirror the choice into the account preferences when logged in
		if err := app.session.UpdatePreferences(session.PreferencesPatch{SelectedGameID: &game.GameID}); err != nil {
			return fmt.Errorf("failed to update preferences: %w", err)
		}
		fmt.Printf("Selected %s\n", game.Name)
		return nil
	}

	games := app.catalog.Filtered(gamesSearch, models.Complexity(gamesComplexity))
	if len(games) == 0 {
		fmt.Println("No games match.")
		return nil
	}

	selected, _ := app.catalog.Selected()
	for _, g := range games {
		marker := " "
		if g.GameID == selected.GameID && selected.GameID != "" {
			marker = "*"
		}
		fmt.Printf("%s %-16s %s (%s, %d-%d players, %d rules)\n",
			marker, g.GameID, g.Name, g.Complexity, g.MinPlayers, g.MaxPlayers, g.RuleCount)
	}
	return nil
}

func showGame(ctx context.Context, a *app, gameID string) error {
	game, err := a.client.Game(ctx, gameID)
	if err != nil {
		// Fall back to the cache when the backend is unreachable
		cached, ok := a.catalog.Game(gameID)
		if !ok {
			return fmt.Errorf("failed to fetch game: %w", err)
		}
		game = &cached
	}

	fmt.Printf("%s (%s)\n", game.Name, game.GameID)
	if game.Description != "" {
		fmt.Printf("  %s\n", game.Description)
	}
	fmt.Printf("  Complexity: %s\n", game.Complexity)
	fmt.Printf("  Players: %d-%d\n", game.MinPlayers, game.MaxPlayers)
	fmt.Printf("  Rules indexed: %d\n", game.RuleCount)
	if len(game.Categories) > 0 {
		fmt.Printf("  Categories: %s\n", strings.Join(game.Categories, ", "))
	}
	if len(game.AITags) > 0 {
		fmt.Printf("  Tags: %s\n", strings.Join(game.AITags, ", "))
	}
	return nil
}
