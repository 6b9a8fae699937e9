// Package auth holds everything that decides who a request belongs to:
// the in-memory session registry, the GitHub OAuth provider, the signed
// OAuth state, and the middleware that ties the session cookie to the
// request context.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User visits /login/github → redirected to GitHub with a signed state
//  2. GitHub calls back /callbacks/github with a code
//  3. The identity service exchanges the code for a GitHub profile and
//     finds or creates the local user
//  4. SessionRegistry.Issue mints an opaque token, stored in the
//     "session_id" HttpOnly cookie
//  5. On every request, middleware resolves the cookie back to a user ID
package auth

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/sakif/notes/internal/apperror"
)

// Identity is proof that a request was authenticated.
//
// Its fields are unexported, so code outside this package can only obtain
// an Identity from SessionRegistry.Require. Services that take an Identity
// (rather than a raw user ID) therefore know the author exists.
type Identity struct {
	userID string
}

// UserID returns the authenticated user's internal ID.
func (i Identity) UserID() string {
	return i.userID
}

// IsZero reports whether i is the zero Identity.
func (i Identity) IsZero() bool {
	return i.userID == ""
}

// SessionEntry is what the registry remembers about one session.
type SessionEntry struct {
	UserID   string
	IssuedAt time.Time
}

// SessionRegistry maps opaque session tokens to user IDs.
//
// It is the only process-wide mutable structure in the application, so all
// access goes through mu. Sessions have no expiry: they live until Revoke
// or until the process exits.
//
// Tokens are never kept in memory as-is. The map key is the BLAKE2b-256
// hash of the token, so a heap dump does not reveal usable cookies.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]SessionEntry
	now      func() time.Time
}

// NewSessionRegistry returns an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]SessionEntry),
		now:      time.Now,
	}
}

// Issue creates a session for userID and returns its token.
//
// The token is a random (version 4) UUID, generated from crypto/rand by
// the uuid package.
func (r *SessionRegistry) Issue(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("auth: issuing session: empty user ID")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("auth: generating session token: %w", err)
	}
	token := id.String()

	r.mu.Lock()
	r.sessions[hashToken(token)] = SessionEntry{UserID: userID, IssuedAt: r.now()}
	r.mu.Unlock()

	return token, nil
}

// Resolve returns the user ID for token. An empty or unknown token is not
// an error; it simply resolves to nothing.
func (r *SessionRegistry) Resolve(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	r.mu.RLock()
	entry, ok := r.sessions[hashToken(token)]
	r.mu.RUnlock()

	return entry.UserID, ok
}

// Require is Resolve for write paths: it fails with
// apperror.ErrUnauthenticated when the token maps to no session.
func (r *SessionRegistry) Require(token string) (Identity, error) {
	userID, ok := r.Resolve(token)
	if !ok {
		return Identity{}, apperror.Unauthenticated()
	}
	return Identity{userID: userID}, nil
}

// Revoke removes the session and returns what it held. Revoking an empty
// or unknown token is a no-op that reports false.
func (r *SessionRegistry) Revoke(token string) (SessionEntry, bool) {
	if token == "" {
		return SessionEntry{}, false
	}

	key := hashToken(token)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[key]
	delete(r.sessions, key)
	return entry, ok
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func hashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
