package tui

import (
	"errors"
	"testing"

	"github.com/ruleref/ruleref/internal/core/session"
)

func testModel(t *testing.T) Model {
	t.Helper()
	sess, err := session.Open(t.TempDir())
	if err != nil {
		t.Fatalf("session.Open() error = %v", err)
	}
	return New(Deps{Session: sess})
}

func TestLoginErrorExpires(t *testing.T) {
	m := testModel(t)

	updated, cmd := m.Update(loginFailedMsg{err: errors.New("bad credentials")})
	m = updated.(Model)
	if m.err == nil {
		t.Fatal("expected login error to be set")
	}
	if cmd == nil {
		t.Fatal("expected an expiry timer to be scheduled")
	}

	updated, _ = m.Update(clearLoginErrMsg{seq: m.loginErrSeq})
	m = updated.(Model)
	if m.err != nil {
		t.Errorf("error still shown after expiry: %v", m.err)
	}
}

func TestLoginErrorExpiry_StaleTimerKeepsNewerError(t *testing.T) {
	m := testModel(t)

	updated, _ := m.Update(loginFailedMsg{err: errors.New("first")})
	m = updated.(Model)
	staleSeq := m.loginErrSeq

	updated, _ = m.Update(loginFailedMsg{err: errors.New("second")})
	m = updated.(Model)

	updated, _ = m.Update(clearLoginErrMsg{seq: staleSeq})
	m = updated.(Model)
	if m.err == nil || m.err.Error() != "second" {
		t.Errorf("stale timer cleared the newer error, err = %v", m.err)
	}
}

func TestLoginErrorExpiry_IgnoredOffLoginScreen(t *testing.T) {
	m := testModel(t)

	updated, _ := m.Update(loginFailedMsg{err: errors.New("bad credentials")})
	m = updated.(Model)
	m.mode = chatView

	updated, _ = m.Update(clearLoginErrMsg{seq: m.loginErrSeq})
	m = updated.(Model)
	if m.err == nil {
		t.Error("expiry should only clear errors on the login screen")
	}
}
