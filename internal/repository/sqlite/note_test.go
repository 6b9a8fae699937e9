package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
)

var baseTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// fixedTime returns baseTime shifted by the given number of minutes.
func fixedTime(minutes int) time.Time {
	return baseTime.Add(time.Duration(minutes) * time.Minute)
}

func createTestNote(t *testing.T, db *DB, author *model.User, content string, ts time.Time) *model.Note {
	t.Helper()
	note := &model.Note{Timestamp: ts, Content: content, AuthorID: author.ID}
	if err := db.CreateNote(context.Background(), note); err != nil {
		t.Fatalf("failed to create test note: %v", err)
	}
	return note
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreateNote(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, 1, "author")

	note := createTestNote(t, db, author, "hello", fixedTime(0))

	if note.ID == "" {
		t.Error("CreateNote() did not set note.ID")
	}

	found, err := db.GetNoteByID(context.Background(), note.ID)
	if err != nil {
		t.Fatalf("GetNoteByID() error = %v", err)
	}
	if found.Content != "hello" {
		t.Errorf("Content = %q, want %q", found.Content, "hello")
	}
	if found.AuthorID != author.ID {
		t.Errorf("AuthorID = %q, want %q", found.AuthorID, author.ID)
	}
	if !found.Timestamp.Equal(fixedTime(0)) {
		t.Errorf("Timestamp = %v, want %v", found.Timestamp, fixedTime(0))
	}
}

func TestCreateNote_UnknownAuthor(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateNote(context.Background(), &model.Note{
		Timestamp: fixedTime(0),
		Content:   "orphan",
		AuthorID:  "no-such-user",
	})

	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("CreateNote() error = %v, want ErrNotFound", err)
	}
}

func TestCreateNote_EmptyContentAllowed(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, 1, "author")

	note := createTestNote(t, db, author, "", fixedTime(0))

	found, err := db.GetNoteByID(context.Background(), note.ID)
	if err != nil {
		t.Fatalf("GetNoteByID() error = %v", err)
	}
	if found.Content != "" {
		t.Errorf("Content = %q, want empty", found.Content)
	}
}

func TestGetNoteByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetNoteByID(context.Background(), "missing")

	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetNoteByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListNotes_Empty(t *testing.T) {
	db := newTestDB(t)

	entries, err := db.ListNotes(context.Background())
	if err != nil {
		t.Fatalf("ListNotes() error = %v", err)
	}
	if entries == nil {
		t.Error("ListNotes() returned nil, want empty slice")
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

func TestListNotes_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, 1, "author")

	// Inserted out of order on purpose.
	createTestNote(t, db, author, "middle", fixedTime(5))
	createTestNote(t, db, author, "oldest", fixedTime(0))
	createTestNote(t, db, author, "newest", fixedTime(10))

	entries, err := db.ListNotes(context.Background())
	if err != nil {
		t.Fatalf("ListNotes() error = %v", err)
	}

	want := []string{"newest", "middle", "oldest"}
	if len(entries) != len(want) {
		t.Fatalf("len(entries) = %d, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].Content != w {
			t.Errorf("entries[%d].Content = %q, want %q", i, entries[i].Content, w)
		}
	}
}

func TestListNotes_EqualTimestampsNewestInsertionFirst(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, 1, "author")

	same := fixedTime(0)
	createTestNote(t, db, author, "first", same)
	createTestNote(t, db, author, "second", same)
	createTestNote(t, db, author, "third", same)

	entries, err := db.ListNotes(context.Background())
	if err != nil {
		t.Fatalf("ListNotes() error = %v", err)
	}

	want := []string{"third", "second", "first"}
	for i, w := range want {
		if entries[i].Content != w {
			t.Errorf("entries[%d].Content = %q, want %q", i, entries[i].Content, w)
		}
	}
}

func TestListNotes_IncludesAuthorName(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, 1, "author")
	createTestNote(t, db, author, "signed", fixedTime(0))

	entries, err := db.ListNotes(context.Background())
	if err != nil {
		t.Fatalf("ListNotes() error = %v", err)
	}
	if entries[0].AuthorName != "Test author" {
		t.Errorf("AuthorName = %q, want %q", entries[0].AuthorName, "Test author")
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDeleteNote(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, 1, "author")
	note := createTestNote(t, db, author, "doomed", fixedTime(0))

	if err := db.DeleteNote(context.Background(), note.ID); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}

	_, err := db.GetNoteByID(context.Background(), note.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetNoteByID() after delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteNote_Twice(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, 1, "author")
	note := createTestNote(t, db, author, "doomed", fixedTime(0))

	if err := db.DeleteNote(context.Background(), note.ID); err != nil {
		t.Fatalf("first DeleteNote() error = %v", err)
	}

	err := db.DeleteNote(context.Background(), note.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteNote() error = %v, want ErrNotFound", err)
	}
}
