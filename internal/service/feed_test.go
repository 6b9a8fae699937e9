package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/auth"
)

func newTestFeedService(store *fakeStore, now time.Time) *FeedService {
	svc := NewFeedService(store, testLogger())
	svc.now = func() time.Time { return now }
	return svc
}

func TestFeedService_AddStampsServerTime(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(t, 1, "u")
	at := time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)
	svc := newTestFeedService(store, at)

	note, err := svc.Add(context.Background(), identityFor(t, u.ID), "hello")
	require.NoError(t, err)

	entries, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, note.ID, entries[0].ID)
	assert.Equal(t, "hello", entries[0].Content)
	assert.Equal(t, u.ID, entries[0].AuthorID)
	assert.True(t, entries[0].Timestamp.Equal(at))
}

func TestFeedService_AddRequiresIdentity(t *testing.T) {
	svc := newTestFeedService(newFakeStore(), time.Now())

	_, err := svc.Add(context.Background(), auth.Identity{}, "hello")

	assert.True(t, errors.Is(err, apperror.ErrUnauthenticated))
}

func TestFeedService_AddKeepsContentVerbatim(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(t, 1, "u")
	svc := newTestFeedService(store, time.Now())

	for _, content := range []string{"", "  padded  ", "<b>not html</b>"} {
		note, err := svc.Add(context.Background(), identityFor(t, u.ID), content)
		require.NoError(t, err)
		assert.Equal(t, content, note.Content)
	}
}

func TestFeedService_ListNewestFirst(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(t, 1, "u")
	svc := NewFeedService(store, testLogger())
	me := identityFor(t, u.ID)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, step := range []time.Duration{0, time.Minute, 0, time.Hour} {
		clock = clock.Add(step)
		svc.now = func() time.Time { return clock }
		_, err := svc.Add(context.Background(), me, clock.String())
		require.NoError(t, err)
	}

	entries, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 4)

	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		assert.False(t, cur.Timestamp.After(prev.Timestamp), "entry %d is newer than entry %d", i, i-1)
	}
	// Notes 2 and 3 share a timestamp; the later insertion comes first.
	assert.True(t, entries[1].Timestamp.Equal(entries[2].Timestamp))
	assert.Greater(t, store.seq[entries[1].ID], store.seq[entries[2].ID])
}

func TestFeedService_ListError(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("disk on fire")
	svc := newTestFeedService(store, time.Now())

	_, err := svc.List(context.Background())
	assert.Error(t, err)
}

func TestFeedService_DeleteByAuthor(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(t, 1, "u")
	svc := newTestFeedService(store, time.Now())
	me := identityFor(t, u.ID)

	note, err := svc.Add(context.Background(), me, "bye")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), me, note.ID))

	entries, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Deletion is one-way: a second delete reports NotFound.
	err = svc.Delete(context.Background(), me, note.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestFeedService_DeleteByOtherUserIsForbidden(t *testing.T) {
	store := newFakeStore()
	a := store.addUser(t, 1, "a")
	b := store.addUser(t, 2, "b")
	svc := newTestFeedService(store, time.Now())

	note, err := svc.Add(context.Background(), identityFor(t, b.ID), "b's note")
	require.NoError(t, err)

	err = svc.Delete(context.Background(), identityFor(t, a.ID), note.ID)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	// Still there, and B can delete it.
	_, err = store.GetNoteByID(context.Background(), note.ID)
	require.NoError(t, err)
	assert.NoError(t, svc.Delete(context.Background(), identityFor(t, b.ID), note.ID))
}

func TestFeedService_DeleteUnknownNote(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(t, 1, "u")
	svc := newTestFeedService(store, time.Now())

	for _, id := range []string{"missing", ""} {
		err := svc.Delete(context.Background(), identityFor(t, u.ID), id)
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "id %q: %v", id, err)
	}
}

func TestFeedService_Import(t *testing.T) {
	store := newFakeStore()
	u := store.addUser(t, 1, "u")
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestFeedService(store, now)

	created := time.Date(2023, 12, 24, 18, 0, 0, 0, time.FixedZone("CET", 3600))
	note, err := svc.Import(context.Background(), u, created, "from the task list")
	require.NoError(t, err)
	assert.True(t, note.Timestamp.Equal(created))
	assert.Equal(t, time.UTC, note.Timestamp.Location())

	undated, err := svc.Import(context.Background(), u, time.Time{}, "no date")
	require.NoError(t, err)
	assert.True(t, undated.Timestamp.Equal(now))

	_, err = svc.Import(context.Background(), nil, now, "nobody")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}
