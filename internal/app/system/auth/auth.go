// internal/app/system/auth/auth.go
//
// Package auth manages the signed session cookie that carries the current
// user's identity between requests. The session stores only the user id,
// display name, and phone; everything else is re-read from the datastore so
// renames and removals take effect immediately.
package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

type ctxKey int

const userKey ctxKey = iota

const (
	sessionUserField = "user"
)

// SessionUser is the identity stored in the session cookie.
type SessionUser struct {
	ID    string
	Name  string
	Phone string
}

// SessionManager wraps the cookie store and the middleware that loads the
// session user into the request context.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
	log   *zap.Logger
}

// NewSessionManager builds a session manager. If key is empty a random key is
// generated, which invalidates sessions on restart; production deployments
// must configure a stable key.
func NewSessionManager(key, name, domain string, secure bool, log *zap.Logger) (*SessionManager, error) {
	keyBytes := []byte(key)
	if len(keyBytes) == 0 {
		keyBytes = securecookie.GenerateRandomKey(32)
		log.Warn("session key not configured; generated an ephemeral key")
	}

	store := sessions.NewCookieStore(keyBytes)
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   domain,
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionManager{store: store, name: name, log: log}, nil
}

// SignIn writes the user into a fresh session cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, user SessionUser) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[sessionUserField] = encodeUser(user)
	return sess.Save(r, w)
}

// SignOut clears the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Options.MaxAge = -1
	delete(sess.Values, sessionUserField)
	return sess.Save(r, w)
}

// LoadSessionUser is global middleware: if a valid session exists, the user
// is placed in the request context for CurrentUser.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			// Tampered or stale cookie: treat as signed out.
			next.ServeHTTP(w, r)
			return
		}
		raw, ok := sess.Values[sessionUserField].(string)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		user, err := decodeUser(raw)
		if err != nil || user.ID == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, &user)))
	})
}

// RequireSignedIn gates a subrouter: requests without a session user get 401.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentUser returns the session user loaded by LoadSessionUser.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(userKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects a session user directly into the request context,
// bypassing cookie handling. Test helper only.
func WithTestUser(r *http.Request, user *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userKey, user))
}

func encodeUser(u SessionUser) string {
	b, _ := json.Marshal(u)
	return string(b)
}

func decodeUser(raw string) (SessionUser, error) {
	var u SessionUser
	err := json.Unmarshal([]byte(raw), &u)
	return u, err
}
