// Package calendar defines the calendar capability the booking layer consumes:
// read busy periods for a provider's calendar and create appointment events.
// The production implementation talks to Google Calendar; tests substitute
// in-memory fakes.
package calendar

import (
	"context"
	"time"

	"github.com/careflow/appointment-agent/internal/availability"
)

// ReminderPolicy controls the notifications attached to a created event.
// Minutes are counted backwards from the event start.
type ReminderPolicy struct {
	EmailMinutes int
	PopupMinutes int
}

// DefaultReminderPolicy is the clinic standard: an email a day ahead and a
// popup shortly before the visit.
func DefaultReminderPolicy() ReminderPolicy {
	return ReminderPolicy{EmailMinutes: 24 * 60, PopupMinutes: 30}
}

// EventRequest describes one appointment event to create.
type EventRequest struct {
	CalendarID    string
	Start         time.Time
	End           time.Time
	Title         string
	Description   string
	AttendeeEmail string
	Reminders     ReminderPolicy
}

// API is the external calendar boundary.
type API interface {
	// FreeBusy returns the busy intervals on calendarID within [start, end).
	FreeBusy(ctx context.Context, calendarID string, start, end time.Time) ([]availability.Interval, error)
	// CreateEvent creates an event and returns the backend event id.
	CreateEvent(ctx context.Context, req EventRequest) (string, error)
}
