package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"github.com/sakif/notes/internal/apperror"
)

const defaultCalDAVTimeout = 30 * time.Second

// CalDAVConfig points at one task list on a CalDAV server.
type CalDAVConfig struct {
	URL      string
	Username string
	Password string
	// Calendar is the display name of the task list, matched
	// case-insensitively.
	Calendar string
	// HTTPClient defaults to a client with a 30 second timeout.
	HTTPClient *http.Client
}

// CalDAVSource reads to-dos from a CalDAV task list.
type CalDAVSource struct {
	client   *caldav.Client
	calendar string
	logger   *slog.Logger
	now      func() time.Time

	// path of the task list, found on first use
	path string
}

// NewCalDAVSource creates a CalDAVSource. No request is made until Tasks.
func NewCalDAVSource(cfg CalDAVConfig, logger *slog.Logger) (*CalDAVSource, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultCalDAVTimeout}
	}

	client, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(httpClient, cfg.Username, cfg.Password), cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("importer: creating caldav client: %w", err)
	}

	return &CalDAVSource{
		client:   client,
		calendar: cfg.Calendar,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Tasks returns the incomplete to-dos of the task list.
//
// The query asks the server for VTODOs only; completed ones are filtered
// here, since support for property filters varies between servers.
func (s *CalDAVSource) Tasks(ctx context.Context) ([]Task, error) {
	path, err := s.taskList(ctx)
	if err != nil {
		return nil, err
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name:  ical.CompCalendar,
			Comps: []caldav.CompFilter{{Name: ical.CompToDo}},
		},
	}

	objects, err := s.client.QueryCalendar(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("importer: querying %s: %w", path, err)
	}

	now := s.now()
	var tasks []Task
	for _, obj := range objects {
		tasks = append(tasks, tasksFromCalendar(obj.Data, obj.Path, now)...)
	}

	s.logger.Debug("caldav tasks fetched",
		slog.String("calendar", path),
		slog.Int("objects", len(objects)),
		slog.Int("tasks", len(tasks)),
	)
	return tasks, nil
}

// Remove deletes a calendar object from the server.
func (s *CalDAVSource) Remove(ctx context.Context, path string) error {
	if err := s.client.RemoveAll(ctx, path); err != nil {
		return fmt.Errorf("importer: deleting %s: %w", path, err)
	}
	return nil
}

// taskList finds the path of the configured task list through the
// principal → calendar home set → calendars discovery chain.
func (s *CalDAVSource) taskList(ctx context.Context) (string, error) {
	if s.path != "" {
		return s.path, nil
	}

	principal, err := s.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("importer: finding principal: %w", err)
	}

	homeSet, err := s.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("importer: finding calendar home set: %w", err)
	}

	calendars, err := s.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("importer: listing calendars: %w", err)
	}

	cal, err := selectTaskList(calendars, s.calendar)
	if err != nil {
		return "", err
	}

	s.path = cal.Path
	return s.path, nil
}

// selectTaskList returns the one calendar named name that holds to-dos.
// None or several matches is an error.
func selectTaskList(calendars []caldav.Calendar, name string) (*caldav.Calendar, error) {
	var matches []caldav.Calendar
	for _, cal := range calendars {
		if strings.EqualFold(cal.Name, name) && supportsToDos(cal) {
			matches = append(matches, cal)
		}
	}

	if len(matches) != 1 {
		return nil, &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: fmt.Sprintf("task list %q not found", name),
		}
	}
	return &matches[0], nil
}

func supportsToDos(cal caldav.Calendar) bool {
	for _, comp := range cal.SupportedComponentSet {
		if strings.EqualFold(comp, ical.CompToDo) {
			return true
		}
	}
	return false
}
