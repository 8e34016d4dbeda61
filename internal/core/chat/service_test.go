package chat

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/ruleref/ruleref/internal/core/api"
	"github.com/ruleref/ruleref/internal/core/conversation"
	"github.com/ruleref/ruleref/internal/core/db"
	"github.com/ruleref/ruleref/internal/core/models"
)

type fakeQueryClient struct {
	resp   *api.StructuredChatResponse
	err    error
	onCall func()
}

func (f *fakeQueryClient) Query(ctx context.Context, query, gameSystem string) (*api.StructuredChatResponse, error) {
	if f.onCall != nil {
		f.onCall()
	}
	return f.resp, f.err
}

type fakeSession struct {
	loggedOut bool
}

func (f *fakeSession) Logout() error {
	f.loggedOut = true
	return nil
}

func testStore(t *testing.T) *conversation.Store {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(tmpfile.Name()) })
	_ = tmpfile.Close()

	database, err := db.New(tmpfile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = database.Close() })

	store, err := conversation.New(database)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func structuredAnswer(text string) *api.StructuredChatResponse {
	return &api.StructuredChatResponse{
		Query:      "q",
		GameSystem: "chess",
		Structured: &models.StructuredResponse{
			ID:      "resp-1",
			Content: models.ResponseContent{Summary: models.Summary{Text: text, Confidence: 0.9}},
		},
		SearchMethod: "hybrid",
	}
}

func TestSend_AppendsBothTurns(t *testing.T) {
	store := testStore(t)
	if _, err := store.NewConversation("chess", "Chess"); err != nil {
		t.Fatal(err)
	}

	svc := New(store, &fakeQueryClient{resp: structuredAnswer("Forward one square.")}, nil, nil)

	answer, err := svc.Send(context.Background(), "How do pawns move?", "chess")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if answer.Role != models.RoleAssistant || answer.Content != "Forward one square." {
		t.Errorf("answer = %+v", answer)
	}
	if answer.Structured == nil {
		t.Error("expected structured response attached")
	}

	msgs := store.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(msgs))
	}
	if msgs[0].Role != models.RoleUser || msgs[1].Role != models.RoleAssistant {
		t.Errorf("turn order wrong: %+v", msgs)
	}
	if store.IsLoading() {
		t.Error("loading flag should be reset")
	}
}

func TestSend_ErrorSynthesizesAssistantTurn(t *testing.T) {
	store := testStore(t)
	if _, err := store.NewConversation("chess", "Chess"); err != nil {
		t.Fatal(err)
	}

	wantErr := &api.NetworkError{Err: errors.New("connection refused")}
	svc := New(store, &fakeQueryClient{err: wantErr}, nil, nil)

	turn, err := svc.Send(context.Background(), "How do pawns move?", "chess")
	if err == nil {
		t.Fatal("expected error")
	}
	if turn.Role != models.RoleAssistant {
		t.Errorf("expected visible assistant error turn, got %+v", turn)
	}

	msgs := store.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected user turn plus error turn, got %d", len(msgs))
	}
	if msgs[1].Structured != nil {
		t.Error("error turn should carry no structured response")
	}
}

func TestSend_UnauthorizedForcesLogout(t *testing.T) {
	store := testStore(t)
	if _, err := store.NewConversation("chess", "Chess"); err != nil {
		t.Fatal(err)
	}

	sess := &fakeSession{}
	svc := New(store, &fakeQueryClient{err: &api.ServerError{Status: 401, Message: "token expired"}}, sess, nil)

	_, err := svc.Send(context.Background(), "q", "chess")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("error = %v, want ErrSessionExpired", err)
	}
	if !sess.loggedOut {
		t.Error("expected forced logout on 401")
	}
}

func TestSend_StaleAnswerIsDropped(t *testing.T) {
	store := testStore(t)
	if _, err := store.NewConversation("chess", "Chess"); err != nil {
		t.Fatal(err)
	}

	client := &fakeQueryClient{resp: structuredAnswer("late answer")}
	// Simulate the user switching conversations while the request is in
	// flight
	client.onCall = func() {
		if _, err := store.NewConversation("catan", "Catan"); err != nil {
			t.Fatal(err)
		}
	}

	svc := New(store, client, nil, nil)
	_, err := svc.Send(context.Background(), "q", "chess")
	if !errors.Is(err, ErrConversationSwitched) {
		t.Fatalf("error = %v, want ErrConversationSwitched", err)
	}

	// The late answer must not land in the now-current conversation
	for _, m := range store.Messages() {
		if m.Content == "late answer" {
			t.Error("stale answer leaked into the current conversation")
		}
	}
}
