package catalog

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/ruleref/ruleref/internal/core/db"
	"github.com/ruleref/ruleref/internal/core/models"
)

type fakeClient struct {
	games []models.Game
	err   error
}

func (f *fakeClient) Games(ctx context.Context) ([]models.Game, error) {
	return f.games, f.err
}

func testDB(t *testing.T) *db.DB {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(tmpfile.Name()) })
	_ = tmpfile.Close()

	database, err := db.New(tmpfile.Name())
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestLoadGames(t *testing.T) {
	client := &fakeClient{games: []models.Game{
		{GameID: "chess", Name: "Chess", Complexity: models.ComplexityMedium, MinPlayers: 2, MaxPlayers: 2, RuleCount: 15},
	}}
	store, err := New(testDB(t), client)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.LoadGames(context.Background()); err != nil {
		t.Fatalf("LoadGames() error = %v", err)
	}
	games := store.Games()
	if len(games) != 1 || games[0].GameID != "chess" {
		t.Errorf("Games() = %+v", games)
	}
	if store.Err() != "" {
		t.Errorf("Err() = %q, want empty", store.Err())
	}
}

func TestLoadGames_FailureKeepsPreviousList(t *testing.T) {
	client := &fakeClient{games: []models.Game{{GameID: "chess", Name: "Chess"}}}
	store, err := New(testDB(t), client)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.LoadGames(context.Background()); err != nil {
		t.Fatal(err)
	}

	client.err = errors.New("connection refused")
	if err := store.LoadGames(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	if games := store.Games(); len(games) != 1 {
		t.Errorf("previous list should survive a failed fetch, got %+v", games)
	}
	if store.Err() == "" {
		t.Error("expected recorded error message")
	}

	// A later success clears the error
	client.err = nil
	if err := store.LoadGames(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.Err() != "" {
		t.Errorf("Err() = %q after successful load", store.Err())
	}
}

func TestSelection_PersistsAcrossReopen(t *testing.T) {
	database := testDB(t)
	store, err := New(database, &fakeClient{})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Select(models.Game{GameID: "chess", Name: "Chess"}); err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	reopened, err := New(database, &fakeClient{})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := reopened.Selected()
	if !ok || got.GameID != "chess" {
		t.Errorf("Selected() = %+v, %v", got, ok)
	}
}

func TestFiltered(t *testing.T) {
	client := &fakeClient{games: []models.Game{
		{GameID: "chess", Name: "Chess", Complexity: models.ComplexityMedium, Categories: []string{"strategy"}},
		{GameID: "snakes", Name: "Snakes and Ladders", Complexity: models.ComplexityEasy},
		{GameID: "go", Name: "Go", Complexity: models.ComplexityHard, Categories: []string{"strategy", "abstract"}},
	}}
	store, err := New(testDB(t), client)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.LoadGames(context.Background()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		search     string
		complexity models.Complexity
		wantIDs    []string
	}{
		{
			name:    "tag search only matches tagged games",
			search:  "strategy",
			wantIDs: []string{"chess", "go"},
		},
		{
			name:       "complexity only",
			complexity: models.ComplexityEasy,
			wantIDs:    []string{"snakes"},
		},
		{
			name:       "search AND complexity",
			search:     "strategy",
			complexity: models.ComplexityHard,
			wantIDs:    []string{"go"},
		},
		{
			name:    "empty search returns everything",
			wantIDs: []string{"chess", "snakes", "go"},
		},
		{
			name:    "no match",
			search:  "poker",
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.Filtered(tt.search, tt.complexity)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Filtered() returned %d games, want %d: %+v", len(got), len(tt.wantIDs), got)
			}
			for i, id := range tt.wantIDs {
				if got[i].GameID != id {
					t.Errorf("Filtered()[%d].GameID = %q, want %q", i, got[i].GameID, id)
				}
			}
		})
	}
}

func TestReset(t *testing.T) {
	store, err := New(testDB(t), &fakeClient{})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Select(models.Game{GameID: "chess", Name: "Chess"}); err != nil {
		t.Fatal(err)
	}

	if err := store.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if _, ok := store.Selected(); ok {
		t.Error("expected selection cleared after reset")
	}
}
