// Package importer turns to-dos from an external task list into notes.
//
// `notes import <handle>` reads every incomplete to-do from the configured
// CalDAV task list, posts each as a note by that user (keeping the to-do's
// creation time), and deletes the to-do from the server.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/notes/internal/model"
)

// Task is an incomplete to-do.
type Task struct {
	// Path identifies the calendar object holding the to-do. Several tasks
	// may share one object.
	Path    string
	Summary string
	Created time.Time
}

// TaskSource lists incomplete to-dos and deletes their calendar objects
// once imported. *CalDAVSource implements it.
type TaskSource interface {
	Tasks(ctx context.Context) ([]Task, error)
	Remove(ctx context.Context, path string) error
}

// NoteWriter stores an imported note. *service.FeedService implements it.
type NoteWriter interface {
	Import(ctx context.Context, author *model.User, timestamp time.Time, content string) (*model.Note, error)
}

// Importer moves tasks from a TaskSource into the feed.
type Importer struct {
	source TaskSource
	notes  NoteWriter
	logger *slog.Logger
}

// New creates an Importer.
func New(source TaskSource, notes NoteWriter, logger *slog.Logger) *Importer {
	return &Importer{source: source, notes: notes, logger: logger}
}

// Run imports every task as a note by author and returns how many were
// imported.
//
// Tasks are handled per calendar object: every task of an object is stored
// first, then the object is removed from the source once. The run stops at
// the first failure, so an object is never removed before all of its notes
// exist. A failure part way through an object leaves it on the source, and
// the next run imports its tasks again.
func (i *Importer) Run(ctx context.Context, author *model.User) (int, error) {
	tasks, err := i.source.Tasks(ctx)
	if err != nil {
		return 0, fmt.Errorf("importer: listing tasks: %w", err)
	}

	imported := 0
	for _, obj := range groupByObject(tasks) {
		for _, task := range obj.tasks {
			note, err := i.notes.Import(ctx, author, task.Created, task.Summary)
			if err != nil {
				return imported, fmt.Errorf("importer: storing task from %s: %w", obj.path, err)
			}
			imported++

			i.logger.Debug("task imported",
				slog.String("path", obj.path),
				slog.String("noteID", note.ID),
			)
		}

		if err := i.source.Remove(ctx, obj.path); err != nil {
			return imported, fmt.Errorf("importer: removing imported object %s: %w", obj.path, err)
		}
	}

	i.logger.Info("import finished",
		slog.String("author", author.DisplayName()),
		slog.Int("imported", imported),
	)
	return imported, nil
}

type object struct {
	path  string
	tasks []Task
}

// groupByObject groups tasks by Path, keeping the order in which each
// object first appears.
func groupByObject(tasks []Task) []object {
	index := make(map[string]int)
	var objects []object
	for _, task := range tasks {
		n, ok := index[task.Path]
		if !ok {
			n = len(objects)
			index[task.Path] = n
			objects = append(objects, object{path: task.Path})
		}
		objects[n].tasks = append(objects[n].tasks, task)
	}
	return objects
}
