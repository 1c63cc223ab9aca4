package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DukeAche/Etl-studio/pkg/accounts"
	"github.com/DukeAche/Etl-studio/pkg/workspace"
)

const sessionCookie = "etlstudio_session"

// Session — аутентифицированная сессия пользователя.
// Workspace создается вместе с сессией и живет ровно столько же:
// logout уничтожает и датасеты, и журнал операций.
type Session struct {
	ID        string
	User      *accounts.User
	Workspace *workspace.Workspace
	CreatedAt time.Time
}

// SessionManager держит активные сессии в памяти
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func newSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// Create создает сессию со свежим workspace и ставит cookie
func (m *SessionManager) Create(w http.ResponseWriter, user *accounts.User) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		User:      user,
		Workspace: workspace.New(),
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

// Get возвращает сессию по cookie запроса
func (m *SessionManager) Get(r *http.Request) *Session {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[c.Value]
}

// Destroy удаляет сессию и гасит cookie
func (m *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) *Session {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}

	m.mu.Lock()
	s := m.sessions[c.Value]
	delete(m.sessions, c.Value)
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return s
}

// Count возвращает число активных сессий
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
