package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/core"
)

// CookieName is the cookie carrying the session id.
const CookieName = "spendwise_session"

// Manager binds HTTP requests to stored tables through the session cookie.
type Manager struct {
	store Store
	ttl   time.Duration
	newID func() string
}

// NewManager returns a manager whose cookies live for ttl and are refreshed
// on every access.
func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		ttl:   ttl,
		newID: uuid.NewString,
	}
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}

// Table returns the session's table, or nil when the request has no session
// or the session holds no data. The cookie is refreshed when data is found.
func (m *Manager) Table(w http.ResponseWriter, r *http.Request) (*core.Table, error) {
	id, ok := sessionID(r)
	if !ok {
		return nil, nil
	}
	table, err := m.store.Load(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	m.setCookie(w, r, id)
	return table, nil
}

// Replace stores table as the session's data, starting a session when the
// request carries none. It returns the session id.
func (m *Manager) Replace(w http.ResponseWriter, r *http.Request, table *core.Table) (string, error) {
	id, ok := sessionID(r)
	if !ok {
		id = m.newID()
	}
	if err := m.store.Save(r.Context(), id, table); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	m.setCookie(w, r, id)
	return id, nil
}

// Discard drops the session's data but keeps the cookie, leaving the
// session in the "no data loaded" state.
func (m *Manager) Discard(r *http.Request) error {
	id, ok := sessionID(r)
	if !ok {
		return nil
	}
	if err := m.store.Delete(r.Context(), id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Clear drops the session's data and expires the cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	err := m.Discard(r)
	clearCookie(w)
	return err
}

// ID returns the request's session id, or "" when it carries none.
func ID(r *http.Request) string {
	id, _ := sessionID(r)
	return id
}

// sessionID extracts a well-formed session id from the request cookie.
func sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func (m *Manager) setCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(m.ttl),
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

func clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
