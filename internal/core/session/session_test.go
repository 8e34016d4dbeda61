package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruleref/ruleref/internal/core/models"
)

func TestLoginLogout(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if store.IsAuthenticated() {
		t.Error("fresh store should not be authenticated")
	}

	user := &models.User{ID: "1", Username: "admin", Email: "a@x.com"}
	if err := store.Login("tok1", user); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !store.IsAuthenticated() {
		t.Error("expected authenticated after login")
	}
	if got := store.User(); got == nil || got.Username != "admin" {
		t.Errorf("User() = %+v", got)
	}

	if err := store.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if store.IsAuthenticated() {
		t.Error("expected unauthenticated after logout")
	}
	if store.User() != nil {
		t.Error("expected nil user after logout")
	}
}

func TestLogin_NoIdentity(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	err = store.Login("tok1", nil)
	if !errors.Is(err, ErrNoIdentity) {
		t.Errorf("Login() error = %v, want ErrNoIdentity", err)
	}
	// Degraded but still authenticated
	if !store.IsAuthenticated() {
		t.Error("expected authenticated despite missing identity")
	}
	if store.User() != nil {
		t.Error("expected nil user, not a fabricated one")
	}
}

func TestSessionPersistence(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	user := &models.User{ID: "1", Username: "admin", Email: "a@x.com", Preferences: models.Preferences{Theme: models.ThemeDark}}
	if err := store.Login("tok1", user); err != nil {
		t.Fatal(err)
	}

	// Reopen from disk
	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() after login error = %v", err)
	}
	if !reopened.IsAuthenticated() {
		t.Error("expected persisted session to authenticate")
	}
	token, _ := reopened.Token()
	if token != "tok1" {
		t.Errorf("Token() = %q, want tok1", token)
	}
	if got := reopened.User(); got == nil || got.Preferences.Theme != models.ThemeDark {
		t.Errorf("User() = %+v", got)
	}
}

func TestAuthFilePermissions(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Login("tok1", &models.User{ID: "1", Username: "admin"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(dir, authFile))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("auth file permissions = %o, want 0600", perm)
	}
}

func TestUpdatePreferences(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	// No-op when unauthenticated
	gameID := "chess"
	if err := store.UpdatePreferences(PreferencesPatch{SelectedGameID: &gameID}); err != nil {
		t.Fatalf("UpdatePreferences() unauthenticated error = %v", err)
	}

	if err := store.Login("tok1", &models.User{ID: "1", Username: "admin", Preferences: models.Preferences{Theme: models.ThemeLight}}); err != nil {
		t.Fatal(err)
	}

	if err := store.UpdatePreferences(PreferencesPatch{SelectedGameID: &gameID}); err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}

	got := store.User()
	if got.Preferences.SelectedGameID != "chess" {
		t.Errorf("SelectedGameID = %q, want chess", got.Preferences.SelectedGameID)
	}
	// Unpatched fields keep their value
	if got.Preferences.Theme != models.ThemeLight {
		t.Errorf("Theme = %q, want light", got.Preferences.Theme)
	}
}

func TestOpen_CorruptAuthFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, authFile), []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if store.IsAuthenticated() {
		t.Error("corrupt auth state should mean logged-out")
	}
}
