package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/repository"
)

var _ repository.NoteRepository = (*DB)(nil)

// CreateNote inserts a note and fills in its ID. The caller owns Timestamp.
//
// The author must exist: with foreign keys on, an unknown AuthorID is
// rejected by SQLite and reported as apperror.ErrNotFound for the user.
func (db *DB) CreateNote(ctx context.Context, note *model.Note) error {
	note.ID = xid.New().String()
	note.Timestamp = note.Timestamp.UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO note (id, timestamp, content, author_id) VALUES (?, ?, ?, ?)`,
		note.ID,
		note.Timestamp.UnixNano(),
		note.Content,
		note.AuthorID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", note.AuthorID)
		}
		return fmt.Errorf("sqlite: creating note: %w", err)
	}

	return nil
}

// GetNoteByID retrieves a single note.
// Returns apperror.ErrNotFound if the note doesn't exist.
func (db *DB) GetNoteByID(ctx context.Context, id string) (*model.Note, error) {
	var (
		note model.Note
		ts   int64
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, timestamp, content, author_id FROM note WHERE id = ?`, id,
	).Scan(&note.ID, &ts, &note.Content, &note.AuthorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("note", id)
		}
		return nil, fmt.Errorf("sqlite: getting note %s: %w", id, err)
	}

	note.Timestamp = time.Unix(0, ts).UTC()
	return &note, nil
}

// ListNotes returns the whole feed, newest first.
//
// ORDERING:
// timestamp DESC puts the newest note first. rowid grows with every INSERT,
// so rowid DESC breaks ties between equal timestamps in favour of the note
// inserted last.
func (db *DB) ListNotes(ctx context.Context) ([]model.FeedEntry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT n.id, n.timestamp, n.content, n.author_id, u.name, COALESCE(u.github_login, '')
		 FROM note n
		 JOIN user u ON u.id = n.author_id
		 ORDER BY n.timestamp DESC, n.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notes: %w", err)
	}
	defer rows.Close()

	entries := []model.FeedEntry{}
	for rows.Next() {
		var (
			e     model.FeedEntry
			ts    int64
			login string
		)
		if err := rows.Scan(&e.ID, &ts, &e.Content, &e.AuthorID, &e.AuthorName, &login); err != nil {
			return nil, fmt.Errorf("sqlite: scanning note: %w", err)
		}
		if e.AuthorName == "" {
			e.AuthorName = login
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notes: %w", err)
	}

	return entries, nil
}

// DeleteNote permanently removes a note.
// Returns apperror.ErrNotFound if nothing was deleted.
func (db *DB) DeleteNote(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM note WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting note %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("note", id)
	}

	return nil
}
