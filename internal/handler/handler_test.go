package handler_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/handler"
	"github.com/sakif/notes/internal/model"
	sqliteRepo "github.com/sakif/notes/internal/repository/sqlite"
	"github.com/sakif/notes/internal/service"
)

// fakeProvider stands in for GitHub: known codes resolve to a profile,
// anything else fails the exchange.
type fakeProvider struct {
	profiles map[string]*auth.GitHubUser
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code string) (string, error) {
	if _, ok := p.profiles[code]; !ok {
		return "", apperror.ProviderExchange(errors.New("bad_verification_code"))
	}
	return code, nil
}

func (p *fakeProvider) FetchProfile(_ context.Context, accessToken string) (*auth.GitHubUser, error) {
	profile := *p.profiles[accessToken]
	return &profile, nil
}

type fakeAuthorizer struct{}

func (fakeAuthorizer) AuthURL(state string) string {
	return "https://github.example/login/oauth/authorize?state=" + url.QueryEscape(state)
}

// testApp wires the handlers the way the server does, on an in-memory
// database.
type testApp struct {
	router   http.Handler
	db       *sqliteRepo.DB
	sessions *auth.SessionRegistry
	logs     *bytes.Buffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))
	provider := &fakeProvider{profiles: map[string]*auth.GitHubUser{
		"good-code": {ID: 583231, Login: "octocat", Name: "The Octocat"},
	}}

	identities := service.NewIdentityService(provider, db, logger)
	feed := service.NewFeedService(db, logger)
	sessions := auth.NewSessionRegistry()
	states, err := auth.NewStateSigner("")
	require.NoError(t, err)

	feedHandler, err := handler.NewFeedHandler(feed, identities, logger)
	require.NoError(t, err)
	authHandler := handler.NewAuthHandler(fakeAuthorizer{}, identities, sessions, states, false, logger)

	r := chi.NewRouter()
	r.Get("/login/github", authHandler.HandleGitHubLogin)
	r.Get("/callbacks/github", authHandler.HandleGitHubCallback)
	r.Get("/logout", authHandler.HandleLogout)
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(sessions))
		r.Get("/", feedHandler.HandleIndex)
		r.Get("/api/notes", feedHandler.HandleListNotes)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(sessions))
		r.Post("/add", feedHandler.HandleAdd)
		r.Delete("/delete/{note_id}", feedHandler.HandleDelete)
	})

	return &testApp{router: r, db: db, sessions: sessions, logs: logs}
}

// loginAs creates a user and a session for it, returning the session token.
func (a *testApp) loginAs(t *testing.T, githubID int64, name string) (string, *model.User) {
	t.Helper()

	user := &model.User{Name: name, GitHubID: githubID, GitHubLogin: strings.ToLower(name)}
	require.NoError(t, a.db.CreateUser(context.Background(), user))

	token, err := a.sessions.Issue(user.ID)
	require.NoError(t, err)
	return token, user
}

func (a *testApp) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testApp) post(t *testing.T, token, content string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"content": {content}}
	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, token)
}

func (a *testApp) notes(t *testing.T) []model.FeedEntry {
	t.Helper()
	entries, err := a.db.ListNotes(context.Background())
	require.NoError(t, err)
	return entries
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
