// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage is the only production implementation;
// service tests use in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/notes/internal/model"
)

// UserRepository stores User records.
//
// Users are append-only: there is no update or delete.
type UserRepository interface {
	// CreateUser inserts a new user and fills in ID and CreatedAt.
	// Returns an apperror.ErrConflict error if a user with the same
	// GitHubID already exists.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	GetUserByHandle(ctx context.Context, handle string) (*model.User, error)
}

// NoteRepository stores Note records.
type NoteRepository interface {
	// CreateNote inserts the note as given; the caller sets Timestamp.
	CreateNote(ctx context.Context, note *model.Note) error
	GetNoteByID(ctx context.Context, id string) (*model.Note, error)
	// ListNotes returns every note, newest first. Notes with equal
	// timestamps are returned newest insertion first.
	ListNotes(ctx context.Context) ([]model.FeedEntry, error)
	DeleteNote(ctx context.Context, id string) error
}
