package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/metrics"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

// FeedService reads and writes the note feed.
//
// Authorization rule: only a note's author may delete it. Adding requires
// an auth.Identity, which only the session registry can produce, so there
// is no way to post as a user that does not exist.
type FeedService struct {
	notes  repository.NoteRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewFeedService creates a FeedService.
func NewFeedService(notes repository.NoteRepository, logger *slog.Logger) *FeedService {
	return &FeedService{
		notes:  notes,
		logger: logger,
		now:    time.Now,
	}
}

// List returns every note, newest first.
func (s *FeedService) List(ctx context.Context) ([]model.FeedEntry, error) {
	entries, err := s.notes.ListNotes(ctx)
	if err != nil {
		s.logger.Error("failed to list notes", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/feed: listing notes: %w", err)
	}
	return entries, nil
}

// Add stores a new note by the authenticated user. The timestamp is taken
// from the server clock. Content is stored as given.
func (s *FeedService) Add(ctx context.Context, author auth.Identity, content string) (*model.Note, error) {
	if author.IsZero() {
		return nil, apperror.Unauthenticated()
	}
	return s.create(ctx, author.UserID(), s.now(), content)
}

// Import stores a note with an explicit timestamp. The CLI import path uses
// it to keep the creation time of the imported task.
func (s *FeedService) Import(ctx context.Context, author *model.User, timestamp time.Time, content string) (*model.Note, error) {
	if author == nil || author.ID == "" {
		return nil, apperror.ValidationFailed("author", "author is required")
	}
	if timestamp.IsZero() {
		timestamp = s.now()
	}
	return s.create(ctx, author.ID, timestamp, content)
}

func (s *FeedService) create(ctx context.Context, authorID string, timestamp time.Time, content string) (*model.Note, error) {
	note := &model.Note{
		Timestamp: timestamp.UTC(),
		Content:   content,
		AuthorID:  authorID,
	}

	if err := s.notes.CreateNote(ctx, note); err != nil {
		s.logger.Error("failed to create note",
			slog.String("authorID", authorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/feed: creating note: %w", err)
	}

	metrics.NotesCreated.Inc()
	s.logger.Info("note created",
		slog.String("id", note.ID),
		slog.String("authorID", authorID),
	)
	return note, nil
}

// Delete removes a note on behalf of requester.
//
// Returns apperror.ErrNotFound if the note doesn't exist (checked first),
// and apperror.ErrForbidden if requester is not its author.
func (s *FeedService) Delete(ctx context.Context, requester auth.Identity, noteID string) error {
	if requester.IsZero() {
		return apperror.Unauthenticated()
	}

	noteID = strings.TrimSpace(noteID)
	if noteID == "" {
		return apperror.NotFound("note", noteID)
	}

	note, err := s.notes.GetNoteByID(ctx, noteID)
	if err != nil {
		return fmt.Errorf("service/feed: deleting note: %w", err)
	}

	if note.AuthorID != requester.UserID() {
		s.logger.Warn("delete refused: not the author",
			slog.String("noteID", noteID),
			slog.String("requester", requester.UserID()),
		)
		return apperror.Forbidden("Only the author can delete the note!")
	}

	if err := s.notes.DeleteNote(ctx, noteID); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to delete note",
				slog.String("noteID", noteID),
				slog.String("error", err.Error()),
			)
		}
		return fmt.Errorf("service/feed: deleting note: %w", err)
	}

	metrics.NotesDeleted.Inc()
	s.logger.Info("note deleted", slog.String("id", noteID))
	return nil
}
