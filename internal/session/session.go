// Package session resolves the user-id cookie to a User.
//
// The cookie carries the user's numeric id. In plain mode the value is the id
// itself; when a secret is configured the value is an HS256 token whose uid
// claim is the id, and unsigned values are ignored.
package session

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/michaeltuccillo/taskd/internal/store"
)

// UserFinder is the slice of the store a session lookup needs.
type UserFinder interface {
	UserByID(ctx context.Context, id uint) (*store.User, error)
}

type Options struct {
	CookieName string
	Secure     bool
	Domain     string
	SameSite   string // none | lax | strict
	Secret     string
	TTL        time.Duration
}

type Manager struct {
	name     string
	secure   bool
	domain   string
	sameSite http.SameSite
	secret   []byte
	ttl      time.Duration
	users    UserFinder
}

func New(opts Options, users UserFinder) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Manager{
		name:     opts.CookieName,
		secure:   opts.Secure,
		domain:   opts.Domain,
		sameSite: parseSameSite(opts.SameSite),
		secret:   []byte(opts.Secret),
		ttl:      ttl,
		users:    users,
	}
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}

// Signed reports whether cookie values are tokens rather than bare ids.
func (m *Manager) Signed() bool { return len(m.secret) > 0 }

// UserID reads the id from the request cookie without touching the store.
func (m *Manager) UserID(r *http.Request) (uint, bool) {
	c, err := r.Cookie(m.name)
	if err != nil || c.Value == "" {
		return 0, false
	}

	raw := c.Value
	if m.Signed() {
		claims, err := m.parseToken(raw)
		if err != nil {
			return 0, false
		}
		raw = claims.UserID
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Current resolves the request to a User. A missing cookie, a malformed
// value or an unknown id all give (nil, nil); only store failures return an
// error. It never writes.
func (m *Manager) Current(r *http.Request) (*store.User, error) {
	id, ok := m.UserID(r)
	if !ok {
		return nil, nil
	}
	u, err := m.users.UserByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

/* ===================== Cookie issuance ====================== */

// Set writes the session cookie for userID.
func (m *Manager) Set(w http.ResponseWriter, userID uint) error {
	value := strconv.FormatUint(uint64(userID), 10)
	if m.Signed() {
		tok, err := m.signToken(value)
		if err != nil {
			return err
		}
		value = tok
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		Domain:   m.domain,
		HttpOnly: true,
		SameSite: m.sameSite,
		Secure:   m.secure,
		Expires:  time.Now().Add(m.ttl),
	})
	return nil
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		Domain:   m.domain,
		HttpOnly: true,
		SameSite: m.sameSite,
		Secure:   m.secure,
		MaxAge:   -1,
	})
}
