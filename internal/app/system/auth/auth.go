package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
	userName  = "user_name"
	userEmail = "user_email"
	userRole  = "user_role"
	loginAt   = "login_at"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is what we cache in the session & inject into r.Context().
type SessionUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserFetcher reloads a user on every request so role changes and deleted
// accounts take effect immediately. FetchUser returns nil when the user no
// longer exists.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser returns r carrying u as the signed-in user. Tests use it to
// skip the cookie round trip.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the cookie store and the optional bearer token issuer.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	ttl     time.Duration
	log     *zap.Logger
	fetcher UserFetcher
	tokens  *Tokens
}

// NewSessionManager builds the cookie store using the provided session key
// and domain. The `secure` flag controls whether cookies are marked Secure
// and which SameSite mode is used.
//
// In production (secure=true), cookies should be Secure + SameSite=None
// (for cross-site use with HTTPS).
// In local dev over http://localhost, use secure=false so cookies are accepted.
func NewSessionManager(sessionKey, name, domain string, ttl time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "boirhub-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}

	// SameSite handling: in prod with Secure cookies, we use None
	// so cookies can be sent in cross-site contexts. In dev, Lax is fine.
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("ttl", ttl))

	return &SessionManager{store: store, name: name, ttl: ttl, log: logger}, nil
}

// SetUserFetcher makes LoadSessionUser refresh the user from the database.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// SetTokens enables bearer token authentication.
func (sm *SessionManager) SetTokens(t *Tokens) { sm.tokens = t }

// Tokens returns the bearer token issuer, or nil when tokens are disabled.
func (sm *SessionManager) Tokens() *Tokens { return sm.tokens }

// Login stores u in the session cookie.
func (sm *SessionManager) Login(w http.ResponseWriter, r *http.Request, u *SessionUser) error {
	sess := sm.session(r)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values[userName] = u.Name
	sess.Values[userEmail] = u.Email
	sess.Values[userRole] = u.Role
	sess.Values[loginAt] = time.Now().UTC().Unix()
	return sess.Save(r, w)
}

// Logout clears the session cookie.
func (sm *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess := sm.session(r)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// LoadSessionUser injects the user into context if they are signed in,
// either with a bearer token or the session cookie. A token that fails to
// verify leaves the request anonymous.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := sm.fromBearer(r)
		if u == nil {
			u = sm.fromCookie(r)
		}
		if u != nil && sm.fetcher != nil {
			u = sm.fetcher.FetchUser(r.Context(), u.ID)
		}
		if u != nil {
			r = withUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

func (sm *SessionManager) fromBearer(r *http.Request) *SessionUser {
	if sm.tokens == nil {
		return nil
	}
	h := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	claims, err := sm.tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		sm.log.Debug("bearer token rejected", zap.Error(err))
		return nil
	}
	return claims.User()
}

// session returns the request's session. A cookie that no longer decodes
// (rotated key, tampering) yields a fresh session.
func (sm *SessionManager) session(r *http.Request) *sessions.Session {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
			sm.log.Debug("session cookie invalid, using fresh session", zap.Error(err))
		} else {
			sm.log.Warn("session store error, using fresh session", zap.Error(err))
		}
	}
	return sess
}

func (sm *SessionManager) fromCookie(r *http.Request) *SessionUser {
	sess := sm.session(r)
	if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
		return nil
	}
	return &SessionUser{
		ID:    getString(sess, userIDKey),
		Name:  getString(sess, userName),
		Email: getString(sess, userEmail),
		Role:  getString(sess, userRole),
	}
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser)
// and answers 401 otherwise.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		unauthorized(w, r)
	})
}

// helpers

func unauthorized(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusUnauthorized, "unauthorized")
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
