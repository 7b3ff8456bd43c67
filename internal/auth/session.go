// Пакет auth — сессии пользователей. Непрозрачные случайные токены
// в cookie, состояние в памяти процесса.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Имя cookie с токеном сессии.
const SessionCookieName = "boltshare_session"

// Время жизни сессии.
const sessionTTL = 24 * time.Hour

// ErrNoSession — запрос без действующей сессии.
var ErrNoSession = errors.New("not authenticated")

type session struct {
	accountID uuid.UUID
	expiresAt time.Time
}

// SessionManager хранит сессии в памяти процесса. Как и резервное
// файловое хранилище, не разделяется между инстансами.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]session
	secure   bool
}

func NewSessionManager(secure bool) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]session),
		secure:   secure,
	}
}

// Issue создает сессию для учётной записи и ставит cookie.
func (m *SessionManager) Issue(w http.ResponseWriter, accountID uuid.UUID) error {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate session token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(raw)

	m.mu.Lock()
	m.sessions[token] = session{
		accountID: accountID,
		expiresAt: time.Now().Add(sessionTTL),
	}
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// FromRequest возвращает идентификатор учётной записи по cookie сессии.
func (m *SessionManager) FromRequest(r *http.Request) (uuid.UUID, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return uuid.Nil, ErrNoSession
	}

	m.mu.RLock()
	sess, ok := m.sessions[cookie.Value]
	m.mu.RUnlock()

	if !ok || time.Now().After(sess.expiresAt) {
		return uuid.Nil, ErrNoSession
	}

	return sess.accountID, nil
}

// Revoke завершает сессию и сбрасывает cookie.
func (m *SessionManager) Revoke(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		m.mu.Lock()
		delete(m.sessions, cookie.Value)
		m.mu.Unlock()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// PurgeExpired удаляет истекшие сессии. Вызывается по таймеру из main.
func (m *SessionManager) PurgeExpired() int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for token, sess := range m.sessions {
		if now.After(sess.expiresAt) {
			delete(m.sessions, token)
			purged++
		}
	}

	return purged
}
