package importer

import (
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// tasksFromCalendar extracts the incomplete VTODOs of a calendar object.
//
// Overrides of a recurring to-do (components with RECURRENCE-ID) repeat the
// master's UID and are skipped, so each to-do yields one task. A task's
// creation time is CREATED, else DTSTAMP, else now. Floating times (no
// TZID) are read as UTC.
func tasksFromCalendar(cal *ical.Calendar, path string, now time.Time) []Task {
	if cal == nil {
		return nil
	}

	var tasks []Task
	for _, comp := range cal.Children {
		if comp.Name != ical.CompToDo || isOverride(comp) || isDone(comp) {
			continue
		}

		summary, err := comp.Props.Text(ical.PropSummary)
		if err != nil {
			summary = ""
		}

		tasks = append(tasks, Task{
			Path:    path,
			Summary: summary,
			Created: createdAt(comp, now),
		})
	}
	return tasks
}

func isOverride(comp *ical.Component) bool {
	return comp.Props.Get(ical.PropRecurrenceID) != nil
}

func isDone(comp *ical.Component) bool {
	if prop := comp.Props.Get(ical.PropStatus); prop != nil {
		switch strings.ToUpper(prop.Value) {
		case "COMPLETED", "CANCELLED":
			return true
		}
	}
	return comp.Props.Get(ical.PropCompleted) != nil
}

func createdAt(comp *ical.Component, now time.Time) time.Time {
	for _, name := range []string{ical.PropCreated, ical.PropDateTimeStamp} {
		t, err := comp.Props.DateTime(name, time.UTC)
		if err == nil && !t.IsZero() {
			return t
		}
	}
	return now
}
