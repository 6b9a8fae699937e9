package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/service"
)

const stateCookieName = "oauth_state"

// Authorizer builds the provider's authorization URL.
// *auth.GitHubProvider implements it.
type Authorizer interface {
	AuthURL(state string) string
}

// AuthHandler manages the GitHub OAuth login flow and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, resolve the user, issue a session
//   - HandleLogout         → revoke the session and clear the cookie
//
// DEPENDENCY CHAIN:
//   - authorizer Authorizer               → builds the GitHub authorize URL
//   - identities *service.IdentityService → code → local user
//   - sessions   *auth.SessionRegistry    → user → session token
//   - states     *auth.StateSigner        → signs and checks the OAuth state
type AuthHandler struct {
	authorizer    Authorizer
	identities    *service.IdentityService
	sessions      *auth.SessionRegistry
	states        *auth.StateSigner
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(
	authorizer Authorizer,
	identities *service.IdentityService,
	sessions *auth.SessionRegistry,
	states *auth.StateSigner,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authorizer:    authorizer,
		identities:    identities,
		sessions:      sessions,
		states:        states,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /login/github
//
// CSRF PROTECTION VIA STATE:
// The state sent to GitHub is a signed, 10-minute token carrying a nonce.
// The nonce also goes into a short-lived HttpOnly cookie, and the callback
// accepts the state only if both match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state, nonce, err := h.states.Issue()
	if err != nil {
		writeTextError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    nonce,
		Path:     "/",
		MaxAge:   int(auth.StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.authorizer.AuthURL(state), http.StatusFound)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /callbacks/github?code=xxx&state=yyy
//
// FLOW:
//  1. Check the state against the oauth_state cookie set by /login/github
//  2. Resolve the code to a local user (created on first login)
//  3. Issue a session and store its token in the session_id cookie
//  4. Redirect to the feed
//
// A callback without the state cookie is rejected: a login must start at
// /login/github in the same browser.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		h.logger.Warn("auth callback: no state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	h.clearStateCookie(w)

	if err := h.states.Verify(query.Get("state"), stateCookie.Value); err != nil {
		h.logger.Warn("auth callback: state rejected", slog.String("error", err.Error()))
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// GitHub sends ?error=access_denied when the user cancels.
	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	// --- Step 2: Resolve the user ---
	user, err := h.identities.LoginWithCode(r.Context(), code)
	if err != nil {
		writeTextError(w, h.logger, err)
		return
	}

	// --- Step 3: Issue the session ---
	token, err := h.sessions.Issue(user.ID)
	if err != nil {
		writeTextError(w, h.logger, err)
		return
	}
	auth.SetSessionCookie(w, token, h.secureCookies)

	h.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("login", user.GitHubLogin),
	)

	// --- Step 4: Back to the feed ---
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout revokes the session and clears the cookie.
//
// HTTP: GET /logout
//
// Never fails: logging out without a session, or with one that is already
// gone, still clears the cookie and redirects.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if entry, ok := h.sessions.Revoke(auth.SessionToken(r)); ok {
		h.logger.Info("user logged out",
			slog.String("userID", entry.UserID),
			slog.Duration("sessionAge", time.Since(entry.IssuedAt)),
		)
	}
	auth.ClearSessionCookie(w, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
