package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory implementation of both repository interfaces.
// It mirrors the SQLite behaviour the services rely on: UNIQUE github_id,
// the note → user foreign key, and newest-first ordering with insertion
// order breaking ties.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]*model.User
	notes  map[string]*model.Note
	seq    map[string]int
	nextID int

	// set to a non-nil error to simulate a database failure
	listErr   error
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]*model.User),
		notes: make(map[string]*model.Note),
		seq:   make(map[string]int),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if user.GitHubID != 0 && u.GitHubID == user.GitHubID {
			return apperror.Conflict("user", fmt.Sprint(user.GitHubID))
		}
	}
	user.ID = f.id("user")
	user.CreatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetUserByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.GitHubID == githubID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

func (f *fakeStore) GetUserByHandle(_ context.Context, handle string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if (u.Handle != nil && *u.Handle == handle) || u.GitHubLogin == handle {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", "@"+handle)
}

func (f *fakeStore) CreateNote(_ context.Context, note *model.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.users[note.AuthorID]; !ok {
		return apperror.NotFound("user", note.AuthorID)
	}
	note.ID = f.id("note")
	stored := *note
	f.notes[note.ID] = &stored
	f.seq[note.ID] = f.nextID
	return nil
}

func (f *fakeStore) GetNoteByID(_ context.Context, id string) (*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.notes[id]
	if !ok {
		return nil, apperror.NotFound("note", id)
	}
	copied := *n
	return &copied, nil
}

func (f *fakeStore) ListNotes(_ context.Context) ([]model.FeedEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	entries := make([]model.FeedEntry, 0, len(f.notes))
	for _, n := range f.notes {
		entries = append(entries, model.FeedEntry{Note: *n, AuthorName: f.users[n.AuthorID].DisplayName()})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return f.seq[a.ID] > f.seq[b.ID]
	})
	return entries, nil
}

func (f *fakeStore) DeleteNote(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.notes[id]; !ok {
		return apperror.NotFound("note", id)
	}
	delete(f.notes, id)
	return nil
}

func (f *fakeStore) userCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// addUser stores a user directly, bypassing any service.
func (f *fakeStore) addUser(t *testing.T, githubID int64, login string) *model.User {
	t.Helper()
	u := &model.User{Name: login, GitHubID: githubID, GitHubLogin: login}
	if err := f.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("addUser: %v", err)
	}
	return u
}

// identityFor obtains an auth.Identity the only way production code can:
// by issuing a session and requiring it.
func identityFor(t *testing.T, userID string) auth.Identity {
	t.Helper()
	sessions := auth.NewSessionRegistry()
	token, err := sessions.Issue(userID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	identity, err := sessions.Require(token)
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	return identity
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
