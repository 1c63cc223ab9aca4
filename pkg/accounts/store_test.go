package accounts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// plainHasher - дешевая замена bcrypt для тестов
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }
func (plainHasher) Verify(password, hash string) bool    { return "plain:"+password == hash }

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "accounts.db"), plainHasher{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "alice", "alice@example.com", "secret1", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "alice" || user.IsAdmin {
		t.Errorf("user = %+v", user)
	}

	got, err := s.Authenticate(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("ID = %d, want %d", got.ID, user.ID)
	}

	// signup + login в журнале
	logs, err := s.AuthenticationLogs(ctx, 10)
	if err != nil {
		t.Fatalf("AuthenticationLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("logs = %d, want 2", len(logs))
	}
	if logs[0].Action != ActionLogin || logs[1].Action != ActionSignup {
		t.Errorf("actions = %s, %s", logs[0].Action, logs[1].Action)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "bob", "bob@example.com", "secret1", false); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"Wrong password", "bob", "wrong"},
		{"Unknown user", "nobody", "secret1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Authenticate(ctx, tt.username, tt.password)
			var auth *AuthenticationError
			if !errors.As(err, &auth) {
				t.Fatalf("err = %v, want AuthenticationError", err)
			}
			// Текст не раскрывает причину отказа
			if err.Error() != "invalid username or password" {
				t.Errorf("message = %q", err.Error())
			}
		})
	}

	// Каждая неудача оставила failed_login запись
	logs, err := s.AuthenticationLogs(ctx, 10)
	if err != nil {
		t.Fatalf("AuthenticationLogs: %v", err)
	}
	failed := 0
	for _, l := range logs {
		if l.Action == ActionFailedLogin {
			failed++
			if l.UserID.Valid {
				t.Error("failed_login must have NULL user_id")
			}
		}
	}
	if failed != 2 {
		t.Errorf("failed_login rows = %d, want 2", failed)
	}
}

func TestCreateUserDuplicates(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "carol", "carol@example.com", "secret1", false); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tests := []struct {
		name      string
		username  string
		email     string
		wantField string
	}{
		{"Duplicate username", "carol", "other@example.com", "username"},
		{"Duplicate email", "other", "carol@example.com", "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateUser(ctx, tt.username, tt.email, "secret1", false)
			var dup *DuplicateError
			if !errors.As(err, &dup) {
				t.Fatalf("err = %v, want DuplicateError", err)
			}
			if dup.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", dup.Field, tt.wantField)
			}
		})
	}
}

func TestCreateUserValidation(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "dave", "not-an-email", "secret1", false); err == nil {
		t.Error("expected error for invalid email")
	}
	if _, err := s.CreateUser(ctx, "dave", "dave@example.com", "short", false); err == nil {
		t.Error("expected error for short password")
	}
	if _, err := s.CreateUser(ctx, "", "dave@example.com", "secret1", false); err == nil {
		t.Error("expected error for empty username")
	}
}

func TestChangePassword(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "eve", "eve@example.com", "secret1", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := s.ChangePassword(ctx, user.ID, "wrong", "newsecret"); err == nil {
		t.Error("expected error for wrong current password")
	}
	if err := s.ChangePassword(ctx, user.ID, "secret1", "tiny"); err == nil {
		t.Error("expected error for short new password")
	}
	if err := s.ChangePassword(ctx, user.ID, "secret1", "newsecret"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := s.Authenticate(ctx, "eve", "secret1"); err == nil {
		t.Error("old password still accepted")
	}
	if _, err := s.Authenticate(ctx, "eve", "newsecret"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestInitDefaultAdmin(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.InitDefaultAdmin(ctx, ""); err != nil {
		t.Fatalf("InitDefaultAdmin: %v", err)
	}
	admin, err := s.Authenticate(ctx, "admin", "admin123")
	if err != nil {
		t.Fatalf("Authenticate admin: %v", err)
	}
	if !admin.IsAdmin {
		t.Error("default admin is not admin")
	}

	// Повторный вызов не создает второго админа
	if err := s.InitDefaultAdmin(ctx, "otherpass"); err != nil {
		t.Fatalf("InitDefaultAdmin: %v", err)
	}
	n, err := s.UserCount(ctx)
	if err != nil {
		t.Fatalf("UserCount: %v", err)
	}
	if n != 1 {
		t.Errorf("users = %d, want 1", n)
	}
}

func TestSignupsAndContacts(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.CreateSignup(ctx, "reader@example.com"); err != nil {
		t.Fatalf("CreateSignup: %v", err)
	}
	err := s.CreateSignup(ctx, "reader@example.com")
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("repeat signup err = %v, want DuplicateError", err)
	}
	if err := s.CreateSignup(ctx, "bad-address"); err == nil {
		t.Error("expected error for invalid email")
	}

	if err := s.CreateContact(ctx, "Frank", "frank@example.com", "hello"); err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if err := s.CreateContact(ctx, "", "frank@example.com", "hello"); err == nil {
		t.Error("expected error for empty name")
	}

	signups, err := s.SignupCount(ctx)
	if err != nil || signups != 1 {
		t.Errorf("SignupCount = %d, %v", signups, err)
	}
	contacts, err := s.ContactCount(ctx)
	if err != nil || contacts != 1 {
		t.Errorf("ContactCount = %d, %v", contacts, err)
	}
}

func TestStats(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "gina", "gina@example.com", "secret1", false); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := s.Authenticate(ctx, "gina", "secret1"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := s.Authenticate(ctx, "gina", "wrong"); err == nil {
		t.Fatal("expected authentication failure")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := AuthStats{TotalUsers: 1, TotalLogins: 1, FailedLogins: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"first.last+tag@sub.domain.org", true},
		{"user@localhost", false},
		{"@example.com", false},
		{"user@", false},
		{"plain", false},
	}
	for _, tt := range tests {
		if got := ValidEmail(tt.email); got != tt.want {
			t.Errorf("ValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4} // минимальная стоимость для скорости теста
	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Verify("secret1", hash) {
		t.Error("correct password rejected")
	}
	if h.Verify("wrong", hash) {
		t.Error("wrong password accepted")
	}
}
