package handler

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/service"
)

// FeedHandler serves the feed page and the write routes that return the
// updated "notes" fragment.
//
// HANDLER RESPONSIBILITIES:
//   - HandleIndex     → GET /, the full page, public
//   - HandleAdd       → POST /add, requires a session
//   - HandleDelete    → DELETE /delete/{note_id}, requires a session
//   - HandleListNotes → GET /api/notes, the feed as JSON, public
type FeedHandler struct {
	feed      *service.FeedService
	users     *service.IdentityService
	templates *template.Template
	logger    *slog.Logger
}

// NewFeedHandler creates a FeedHandler and parses the templates once.
func NewFeedHandler(feed *service.FeedService, users *service.IdentityService, logger *slog.Logger) (*FeedHandler, error) {
	tmpl, err := ParseTemplates()
	if err != nil {
		return nil, err
	}

	return &FeedHandler{
		feed:      feed,
		users:     users,
		templates: tmpl,
		logger:    logger,
	}, nil
}

// HandleIndex renders the whole page.
//
// HTTP: GET /
//
// Reading is public. If the request carries a live session (resolved by
// auth.OptionalAuth) the page also shows the compose form and delete
// buttons on the user's own notes.
func (h *FeedHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	notes, err := h.feed.List(r.Context())
	if err != nil {
		writeTextError(w, h.logger, err)
		return
	}

	h.render(w, "index", pageData{
		User:  h.currentUser(r.Context()),
		Notes: notes,
	})
}

// HandleAdd posts a note as the session's user.
//
// HTTP: POST /add
// FORM: content=...
//
// The content is stored exactly as submitted; an empty string is a valid
// note. Only a request without the field at all is rejected.
func (h *FeedHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeTextError(w, h.logger, apperror.Unauthenticated())
		return
	}

	if err := r.ParseForm(); err != nil {
		writeTextError(w, h.logger, apperror.ValidationFailed("content", "invalid form body"))
		return
	}
	if _, present := r.PostForm["content"]; !present {
		writeTextError(w, h.logger, apperror.ValidationFailed("content", "content is required"))
		return
	}

	if _, err := h.feed.Add(r.Context(), identity, r.PostForm.Get("content")); err != nil {
		writeTextError(w, h.logger, err)
		return
	}

	h.renderNotes(w, r)
}

// HandleDelete removes one of the session user's notes.
//
// HTTP: DELETE /delete/{note_id}
//
// 404 if the note doesn't exist, 403 if it belongs to someone else.
func (h *FeedHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeTextError(w, h.logger, apperror.Unauthenticated())
		return
	}

	noteID := chi.URLParam(r, "note_id")
	if err := h.feed.Delete(r.Context(), identity, noteID); err != nil {
		writeTextError(w, h.logger, err)
		return
	}

	h.renderNotes(w, r)
}

// HandleListNotes returns the feed as JSON, newest first.
//
// HTTP: GET /api/notes
func (h *FeedHandler) HandleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.feed.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, notes)
}

// renderNotes re-reads the feed and renders the "notes" fragment.
func (h *FeedHandler) renderNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.feed.List(r.Context())
	if err != nil {
		writeTextError(w, h.logger, err)
		return
	}

	h.render(w, "notes", pageData{
		User:  h.currentUser(r.Context()),
		Notes: notes,
	})
}

// currentUser loads the user behind the request's session, or returns nil.
//
// Sessions are not revalidated after login, so a session whose user is gone
// is treated like no session.
func (h *FeedHandler) currentUser(ctx context.Context) *model.User {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil
	}

	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			h.logger.Error("failed to load session user",
				slog.String("userID", userID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return user
}

// render executes a template into a buffer first, so a failing template
// produces a clean 500 instead of half a page.
func (h *FeedHandler) render(w http.ResponseWriter, name string, data pageData) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write response", slog.String("error", err.Error()))
	}
}
