// Package accounts - хранилище учетных записей и обратной связи.
//
// SQLite файл с таблицами пользователей, журналом аутентификации,
// подписками на рассылку и сообщениями контактной формы. Каждая
// попытка входа, регистрация и выход оставляют ровно одну запись
// в журнале аутентификации до возврата из операции.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "modernc.org/sqlite"
)

// минимальная длина пароля
const minPasswordLen = 6

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail проверяет синтаксис адреса почты
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// AuthenticationError - отказ аутентификации.
// Текст намеренно не различает "нет такого пользователя" и
// "неверный пароль".
type AuthenticationError struct{}

func (e *AuthenticationError) Error() string {
	return "invalid username or password"
}

// DuplicateError - нарушение уникальности при регистрации
type DuplicateError struct {
	// Field - "username", "email"
	Field string
}

func (e *DuplicateError) Error() string {
	switch e.Field {
	case "username":
		return "username already exists"
	case "email":
		return "email already registered"
	default:
		return fmt.Sprintf("duplicate %s", e.Field)
	}
}

// User - учетная запись
type User struct {
	ID        int64
	Username  string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
}

// AuthLog - запись журнала аутентификации
type AuthLog struct {
	ID        int64
	UserID    sql.NullInt64
	Username  string
	Action    string
	IPAddress string
	UserAgent string
	Timestamp time.Time
}

// Действия журнала аутентификации
const (
	ActionLogin       = "login"
	ActionLogout      = "logout"
	ActionFailedLogin = "failed_login"
	ActionSignup      = "signup"
)

// AuthStats - агрегаты для панели администратора
type AuthStats struct {
	TotalUsers   int
	TotalLogins  int
	FailedLogins int
}

// Store - хранилище поверх SQLite файла
type Store struct {
	db     *sql.DB
	hasher Hasher
}

// Open открывает хранилище и создает схему при необходимости
func Open(path string, hasher Hasher) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open accounts db: %w", err)
	}
	// SQLite допускает один пишущий коннект
	db.SetMaxOpenConns(1)

	s := &Store{db: db, hasher: hasher}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close закрывает соединение с хранилищем
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS newsletter_signups (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	email      TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS contact_submissions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_admin      INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS authentication_logs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER REFERENCES users(id),
	username   TEXT NOT NULL,
	action     TEXT NOT NULL,
	ip_address TEXT,
	user_agent TEXT,
	timestamp  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_auth_logs_timestamp ON authentication_logs(timestamp);
CREATE INDEX IF NOT EXISTS idx_auth_logs_action ON authentication_logs(action);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init accounts schema: %w", err)
	}
	return nil
}

// InitDefaultAdmin создает администратора по умолчанию, если в базе
// нет ни одного админа. Пароль настраиваемый, по умолчанию admin123.
func (s *Store) InitDefaultAdmin(ctx context.Context, password string) error {
	if password == "" {
		password = "admin123"
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE is_admin = 1`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if exists > 0 {
		return nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, is_admin) VALUES (?, ?, ?, 1)`,
		"admin", "admin@etlstudio.local", hash)
	if err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}
	return nil
}

// CreateUser регистрирует пользователя и пишет signup в журнал.
// Дубликат имени и дубликат почты различаются в ошибке.
func (s *Store) CreateUser(ctx context.Context, username, email, password string, isAdmin bool) (*User, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}
	if !ValidEmail(email) {
		return nil, errors.New("invalid email address")
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	var existingUsername string
	err := s.db.QueryRowContext(ctx,
		`SELECT username FROM users WHERE username = ? OR email = ?`,
		username, email).Scan(&existingUsername)
	switch {
	case err == nil:
		if existingUsername == username {
			return nil, &DuplicateError{Field: "username"}
		}
		return nil, &DuplicateError{Field: "email"}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, is_admin) VALUES (?, ?, ?, ?)`,
		username, email, hash, boolToInt(isAdmin))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.LogAuthentication(ctx, id, username, ActionSignup, "", ""); err != nil {
		return nil, err
	}

	return s.UserByUsername(ctx, username)
}

// Authenticate проверяет пару логин/пароль.
// Любой отказ дает одинаковую AuthenticationError и запись
// failed_login; успех - запись login.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var (
		user User
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, is_admin, created_at FROM users WHERE username = ?`,
		username).Scan(&user.ID, &user.Username, &user.Email, &hash, &user.IsAdmin, &user.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if logErr := s.logFailure(ctx, username); logErr != nil {
			return nil, logErr
		}
		return nil, &AuthenticationError{}
	case err != nil:
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(password, hash) {
		if logErr := s.logFailure(ctx, username); logErr != nil {
			return nil, logErr
		}
		return nil, &AuthenticationError{}
	}

	if err := s.LogAuthentication(ctx, user.ID, username, ActionLogin, "", ""); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) logFailure(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO authentication_logs (user_id, username, action, ip_address, user_agent) VALUES (NULL, ?, ?, '', '')`,
		username, ActionFailedLogin)
	if err != nil {
		return fmt.Errorf("log authentication: %w", err)
	}
	return nil
}

// ChangePassword меняет пароль после проверки старого
func (s *Store) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("new password must be at least %d characters", minPasswordLen)
	}

	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE id = ?`, userID).Scan(&hash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errors.New("user not found")
	case err != nil:
		return fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(oldPassword, hash) {
		return errors.New("current password is incorrect")
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, newHash, userID); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// LogAuthentication пишет событие в журнал аутентификации
func (s *Store) LogAuthentication(ctx context.Context, userID int64, username, action, ip, userAgent string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO authentication_logs (user_id, username, action, ip_address, user_agent) VALUES (?, ?, ?, ?, ?)`,
		userID, username, action, ip, userAgent)
	if err != nil {
		return fmt.Errorf("log authentication: %w", err)
	}
	return nil
}

// LogLogout пишет выход пользователя
func (s *Store) LogLogout(ctx context.Context, userID int64, username string) error {
	return s.LogAuthentication(ctx, userID, username, ActionLogout, "", "")
}

// UserByUsername возвращает пользователя или nil, если его нет
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, is_admin, created_at FROM users WHERE username = ?`,
		username).Scan(&user.ID, &user.Username, &user.Email, &user.IsAdmin, &user.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &user, nil
}

// CreateSignup подписывает адрес на рассылку, адрес уникален
func (s *Store) CreateSignup(ctx context.Context, email string) error {
	if !ValidEmail(email) {
		return errors.New("invalid email address")
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM newsletter_signups WHERE email = ?`, email).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check signup: %w", err)
	}
	if exists > 0 {
		return &DuplicateError{Field: "email"}
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO newsletter_signups (email) VALUES (?)`, email); err != nil {
		return fmt.Errorf("create signup: %w", err)
	}
	return nil
}

// CreateContact сохраняет сообщение контактной формы
func (s *Store) CreateContact(ctx context.Context, name, email, message string) error {
	if name == "" || message == "" {
		return errors.New("name and message are required")
	}
	if !ValidEmail(email) {
		return errors.New("invalid email address")
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_submissions (name, email, message) VALUES (?, ?, ?)`,
		name, email, message); err != nil {
		return fmt.Errorf("create contact submission: %w", err)
	}
	return nil
}

// SignupCount возвращает число подписок на рассылку
func (s *Store) SignupCount(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM newsletter_signups`)
}

// ContactCount возвращает число сообщений контактной формы
func (s *Store) ContactCount(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM contact_submissions`)
}

// UserCount возвращает число пользователей
func (s *Store) UserCount(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (s *Store) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// AuthenticationLogs возвращает последние записи журнала, новые первыми
func (s *Store) AuthenticationLogs(ctx context.Context, limit int) ([]AuthLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, username, action, COALESCE(ip_address, ''), COALESCE(user_agent, ''), timestamp
		 FROM authentication_logs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query auth logs: %w", err)
	}
	defer rows.Close()

	var logs []AuthLog
	for rows.Next() {
		var l AuthLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Username, &l.Action, &l.IPAddress, &l.UserAgent, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("scan auth log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Stats возвращает агрегаты журнала для панели администратора
func (s *Store) Stats(ctx context.Context) (AuthStats, error) {
	var stats AuthStats
	var err error

	if stats.TotalUsers, err = s.UserCount(ctx); err != nil {
		return stats, err
	}
	if stats.TotalLogins, err = s.count(ctx,
		`SELECT COUNT(*) FROM authentication_logs WHERE action = 'login'`); err != nil {
		return stats, err
	}
	if stats.FailedLogins, err = s.count(ctx,
		`SELECT COUNT(*) FROM authentication_logs WHERE action = 'failed_login'`); err != nil {
		return stats, err
	}
	return stats, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
