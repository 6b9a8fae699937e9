// Package handler contains the HTTP request handlers of the notes app.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Chi accepts plain http.HandlerFunc values, so each handler here is a method
// with that signature on a struct holding its dependencies.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (cookies, form fields, URL params)
// 2. Call the service layer
// 3. Write the HTTP response (an HTML page or fragment, a redirect, or JSON)
//
// Handlers do not contain business rules. "Only the author may delete a
// note" lives in service.FeedService, not here.
package handler

import (
	"html/template"
	"time"

	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/web"
)

// templateFuncs are available to every template.
var templateFuncs = template.FuncMap{
	"timestamp": func(t time.Time) string { return t.UTC().Format(model.TimestampLayout) },
	"rfc3339":   func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
}

// ParseTemplates parses the embedded templates.
//
// TEMPLATE COMPOSITION:
// index.html defines the "index" page, which pulls in the "notes" fragment
// from partials/notes.html with {{template "notes" .}}. The write routes
// render only "notes", which htmx swaps into the page in place.
func ParseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(web.FS,
		"templates/*.html",
		"templates/partials/*.html",
	)
}

// pageData is what both templates receive. User is nil for anonymous
// visitors.
type pageData struct {
	User  *model.User
	Notes []model.FeedEntry
}
