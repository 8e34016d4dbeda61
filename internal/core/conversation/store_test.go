package conversation

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ruleref/ruleref/internal/core/db"
	"github.com/ruleref/ruleref/internal/core/models"
)

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

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(testDB(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func TestMessagesForGame_FiltersInCallOrder(t *testing.T) {
	store := testStore(t)

	adds := []struct {
		content string
		gameID  string
	}{
		{"chess one", "chess"},
		{"catan one", "catan"},
		{"chess two", "chess"},
		{"chess three", "chess"},
	}
	for _, a := range adds {
		if _, err := store.AddMessage(NewMessage{Role: models.RoleUser, Content: a.content, GameID: a.gameID}); err != nil {
			t.Fatal(err)
		}
	}

	got := store.MessagesForGame("chess")
	want := []string{"chess one", "chess two", "chess three"}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i, content := range want {
		if got[i].Content != content {
			t.Errorf("got[%d].Content = %q, want %q", i, got[i].Content, content)
		}
	}

	if other := store.MessagesForGame("catan"); len(other) != 1 {
		t.Errorf("catan messages = %d, want 1", len(other))
	}
}

func TestNewConversation_ExactlyOneActive(t *testing.T) {
	store := testStore(t)

	if _, err := store.NewConversation("chess", "Chess"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.NewConversation("chess", "Chess"); err != nil {
		t.Fatal(err)
	}
	third, err := store.NewConversation("catan", "Catan")
	if err != nil {
		t.Fatal(err)
	}

	var active int
	for _, c := range store.Conversations() {
		if c.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Errorf("expected exactly 1 active conversation, got %d", active)
	}
	if store.ActiveConversationID() != third.ID {
		t.Errorf("active = %q, want %q", store.ActiveConversationID(), third.ID)
	}
	if store.CurrentGameID() != "catan" {
		t.Errorf("current game = %q, want catan", store.CurrentGameID())
	}
}

func TestNewConversation_DefaultTitleAndEmptyBuffer(t *testing.T) {
	store := testStore(t)

	if _, err := store.AddMessage(NewMessage{Role: models.RoleUser, Content: "stray", GameID: "chess"}); err != nil {
		t.Fatal(err)
	}

	conv, err := store.NewConversation("chess", "Chess")
	if err != nil {
		t.Fatal(err)
	}
	if conv.Title != "New Chess Chat" {
		t.Errorf("Title = %q, want New Chess Chat", conv.Title)
	}
	if conv.MessageCount != 0 {
		t.Errorf("MessageCount = %d, want 0", conv.MessageCount)
	}
	if msgs := store.Messages(); len(msgs) != 0 {
		t.Errorf("buffer should be empty for new context, got %d", len(msgs))
	}
}

func TestTitleDerivation_FrozenAfterFirstUserMessage(t *testing.T) {
	store := testStore(t)

	conv, err := store.NewConversation("chess", "Chess")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.AddMessage(NewMessage{Role: models.RoleUser, Content: "How do pawns capture pieces en passant?", GameID: "chess"}); err != nil {
		t.Fatal(err)
	}

	first := findConversation(t, store, conv.ID)
	if first.Title != "How do pawns capture" {
		t.Errorf("Title = %q, want %q", first.Title, "How do pawns capture")
	}
	if first.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", first.MessageCount)
	}
	if first.LastMessage != "How do pawns capture pieces en passant?" {
		t.Errorf("LastMessage = %q", first.LastMessage)
	}

	if _, err := store.AddMessage(NewMessage{Role: models.RoleUser, Content: "And what about castling?", GameID: "chess"}); err != nil {
		t.Fatal(err)
	}

	second := findConversation(t, store, conv.ID)
	if second.Title != first.Title {
		t.Errorf("title changed on second message: %q -> %q", first.Title, second.Title)
	}
	if second.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", second.MessageCount)
	}
	if second.LastMessage != "And what about castling?" {
		t.Errorf("LastMessage = %q", second.LastMessage)
	}
}

func TestAssistantMessageDoesNotTouchMetadata(t *testing.T) {
	store := testStore(t)

	conv, err := store.NewConversation("chess", "Chess")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMessage(NewMessage{Role: models.RoleAssistant, Content: "Hello, ask me about chess.", GameID: "chess"}); err != nil {
		t.Fatal(err)
	}

	got := findConversation(t, store, conv.ID)
	if got.Title != "New Chess Chat" {
		t.Errorf("assistant message should not derive title, got %q", got.Title)
	}
	if got.MessageCount != 0 {
		t.Errorf("MessageCount = %d, want 0", got.MessageCount)
	}
}

func TestAddMessage_InsertFailureLeavesBufferUntouched(t *testing.T) {
	database := testDB(t)
	store, err := New(database)
	if err != nil {
		t.Fatal(err)
	}
	if err := database.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := store.AddMessage(NewMessage{Role: models.RoleUser, Content: "lost write", GameID: "chess"}); err == nil {
		t.Fatal("expected error from closed database")
	}
	if msgs := store.Messages(); len(msgs) != 0 {
		t.Errorf("buffer holds %d messages storage never accepted", len(msgs))
	}
}

func TestClear(t *testing.T) {
	store := testStore(t)

	if _, err := store.NewConversation("chess", "Chess"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMessage(NewMessage{Role: models.RoleUser, Content: "hello", GameID: "chess"}); err != nil {
		t.Fatal(err)
	}
	store.SetLoading(true)

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if msgs := store.MessagesForGame("chess"); len(msgs) != 0 {
		t.Errorf("MessagesForGame after Clear = %d, want 0", len(msgs))
	}
	if store.IsLoading() {
		t.Error("Clear should reset the loading flag")
	}
	if len(store.Conversations()) != 1 {
		t.Error("Clear must not touch the conversation list")
	}
}

func TestLoadConversation_RestoresHistory(t *testing.T) {
	store := testStore(t)

	first, err := store.NewConversation("chess", "Chess")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMessage(NewMessage{Role: models.RoleUser, Content: "How do pawns move?", GameID: "chess"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMessage(NewMessage{Role: models.RoleAssistant, Content: "Forward one square.", GameID: "chess"}); err != nil {
		t.Fatal(err)
	}

	second, err := store.NewConversation("catan", "Catan")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMessage(NewMessage{Role: models.RoleUser, Content: "How does the robber work?", GameID: "catan"}); err != nil {
		t.Fatal(err)
	}

	// Switching back restores the first conversation's full history
	if err := store.LoadConversation(first.ID); err != nil {
		t.Fatalf("LoadConversation() error = %v", err)
	}
	msgs := store.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 restored messages, got %d", len(msgs))
	}
	if msgs[0].Content != "How do pawns move?" || msgs[1].Content != "Forward one square." {
		t.Errorf("restored history out of order: %+v", msgs)
	}
	if store.CurrentGameID() != "chess" {
		t.Errorf("current game = %q, want chess", store.CurrentGameID())
	}
	if store.ActiveConversationID() != first.ID {
		t.Errorf("active = %q, want %q", store.ActiveConversationID(), first.ID)
	}

	// And the second conversation's history survived the switch too
	if err := store.LoadConversation(second.ID); err != nil {
		t.Fatal(err)
	}
	if msgs := store.Messages(); len(msgs) != 1 || msgs[0].Content != "How does the robber work?" {
		t.Errorf("second conversation history lost: %+v", msgs)
	}
}

func TestLoadConversation_NotFound(t *testing.T) {
	store := testStore(t)
	if err := store.LoadConversation("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDelete_NonActiveLeavesActiveUntouched(t *testing.T) {
	store := testStore(t)

	victim, err := store.NewConversation("chess", "Chess")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMessage(NewMessage{Role: models.RoleUser, Content: "doomed", GameID: "chess"}); err != nil {
		t.Fatal(err)
	}

	active, err := store.NewConversation("chess", "Chess")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMessage(NewMessage{Role: models.RoleUser, Content: "keep me", GameID: "chess"}); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(victim.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if store.ActiveConversationID() != active.ID {
		t.Errorf("active conversation changed: %q", store.ActiveConversationID())
	}
	msgs := store.Messages()
	if len(msgs) != 1 || msgs[0].Content != "keep me" {
		t.Errorf("active conversation's messages disturbed: %+v", msgs)
	}
	if len(store.Conversations()) != 1 {
		t.Errorf("conversation list = %d entries, want 1", len(store.Conversations()))
	}
}

func TestDelete_ActiveClearsContext(t *testing.T) {
	store := testStore(t)

	conv, err := store.NewConversation("chess", "Chess")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMessage(NewMessage{Role: models.RoleUser, Content: "hello", GameID: "chess"}); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(conv.ID); err != nil {
		t.Fatal(err)
	}
	if store.ActiveConversationID() != "" {
		t.Error("expected no active conversation")
	}
	if len(store.Messages()) != 0 {
		t.Error("expected empty buffer")
	}
	if store.CurrentGameID() != "" {
		t.Error("expected cleared current game")
	}
}

func TestPersistence_RoundTrip(t *testing.T) {
	database := testDB(t)

	store, err := New(database)
	if err != nil {
		t.Fatal(err)
	}
	conv, err := store.NewConversation("chess", "Chess")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMessage(NewMessage{Role: models.RoleUser, Content: "How do pawns move?", GameID: "chess"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMessage(NewMessage{Role: models.RoleAssistant, Content: "Forward one square.", GameID: "chess"}); err != nil {
		t.Fatal(err)
	}

	// Rehydrate from the same database
	reopened, err := New(database)
	if err != nil {
		t.Fatalf("rehydrate error = %v", err)
	}

	conversations := reopened.Conversations()
	if len(conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(conversations))
	}
	got := conversations[0]
	if got.ID != conv.ID || got.Title != "How do pawns move?" || got.MessageCount != 1 || !got.IsActive {
		t.Errorf("conversation mismatch after rehydrate: %+v", got)
	}

	msgs := reopened.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages after rehydrate, got %d", len(msgs))
	}
	if msgs[0].Content != "How do pawns move?" || msgs[1].Content != "Forward one square." {
		t.Errorf("message order lost: %+v", msgs)
	}
	if reopened.CurrentGameID() != "chess" {
		t.Errorf("current game = %q", reopened.CurrentGameID())
	}
	if reopened.ActiveConversationID() != conv.ID {
		t.Errorf("active = %q", reopened.ActiveConversationID())
	}
}

func TestReset(t *testing.T) {
	store := testStore(t)

	if _, err := store.NewConversation("chess", "Chess"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddMessage(NewMessage{Role: models.RoleUser, Content: "hello", GameID: "chess"}); err != nil {
		t.Fatal(err)
	}

	if err := store.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if len(store.Conversations()) != 0 || len(store.Messages()) != 0 {
		t.Error("expected empty store after reset")
	}
	if store.ActiveConversationID() != "" || store.CurrentGameID() != "" {
		t.Error("expected cleared context after reset")
	}
}

func TestList_SinceFilter(t *testing.T) {
	store := testStore(t)

	old, err := store.NewConversation("chess", "Chess")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.NewConversation("catan", "Catan"); err != nil {
		t.Fatal(err)
	}

	// Only conversations active in the last hour
	recent, err := store.List("", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Errorf("expected both recent conversations, got %d", len(recent))
	}

	none, err := store.List("", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("expected no conversations in the future, got %d", len(none))
	}

	chessOnly, err := store.List("chess", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(chessOnly) != 1 || chessOnly[0].ID != old.ID {
		t.Errorf("game filter mismatch: %+v", chessOnly)
	}
}

func findConversation(t *testing.T, store *Store, id string) models.Conversation {
	t.Helper()
	for _, c := range store.Conversations() {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("conversation %s not found", id)
	return models.Conversation{}
}
