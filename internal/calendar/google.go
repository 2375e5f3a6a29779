package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/careflow/appointment-agent/internal/availability"
)

// GoogleClient implements API against the Google Calendar v3 API using
// service-account credentials.
type GoogleClient struct {
	service *gcal.Service
}

// NewGoogleClient builds a Google Calendar client from a credentials file.
// A missing or unreadable credentials file is a startup failure, not a
// per-session one.
func NewGoogleClient(ctx context.Context, credentialsFile string) (*GoogleClient, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, errors.New("calendar: credentials file is required")
	}
	service, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarScope, gcal.CalendarEventsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: create google calendar service: %w", err)
	}
	return &GoogleClient{service: service}, nil
}

// FreeBusy queries the freebusy endpoint for one calendar. Returned intervals
// keep whatever zone the backend reported; callers normalize before comparing.
func (c *GoogleClient) FreeBusy(ctx context.Context, calendarID string, start, end time.Time) ([]availability.Interval, error) {
	resp, err := c.service.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: freebusy query for %s: %w", calendarID, err)
	}

	entry, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("calendar: freebusy response missing calendar %s", calendarID)
	}

	busy := make([]availability.Interval, 0, len(entry.Busy))
	for _, period := range entry.Busy {
		bStart, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("calendar: parse busy start %q: %w", period.Start, err)
		}
		bEnd, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("calendar: parse busy end %q: %w", period.End, err)
		}
		busy = append(busy, availability.Interval{Start: bStart, End: bEnd})
	}
	return busy, nil
}

// CreateEvent inserts the appointment event, inviting the patient and sending
// update emails to all attendees.
func (c *GoogleClient) CreateEvent(ctx context.Context, req EventRequest) (string, error) {
	tz := req.Start.Location().String()
	event := &gcal.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start: &gcal.EventDateTime{
			DateTime: req.Start.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &gcal.EventDateTime{
			DateTime: req.End.Format(time.RFC3339),
			TimeZone: tz,
		},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "email", Minutes: int64(req.Reminders.EmailMinutes)},
				{Method: "popup", Minutes: int64(req.Reminders.PopupMinutes)},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	if req.AttendeeEmail != "" {
		event.Attendees = []*gcal.EventAttendee{{Email: req.AttendeeEmail}}
	}

	created, err := c.service.Events.Insert(req.CalendarID, event).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("calendar: insert event on %s: %w", req.CalendarID, err)
	}
	return created.Id, nil
}
