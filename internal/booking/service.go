// Package booking orchestrates the provider directory, the calendar backend,
// and the availability calculator into the two operations the conversation
// layer needs: list free slots for a provider on a day, and book one.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/careflow/appointment-agent/internal/availability"
	"github.com/careflow/appointment-agent/internal/calendar"
	"github.com/careflow/appointment-agent/internal/directory"
	"github.com/careflow/appointment-agent/internal/observability/metrics"
	"github.com/careflow/appointment-agent/pkg/logging"
)

var bookingTracer = otel.Tracer("careflow.internal.booking")

// ErrUnknownProvider is returned when a provider id has no calendar identity.
var ErrUnknownProvider = errors.New("booking: unknown provider")

// Hours is the clinic working-hours window in local clinic time.
type Hours struct {
	StartHour int
	EndHour   int
}

// Options configures the clinic schedule the service books against.
type Options struct {
	Location     *time.Location
	Workday      Hours
	SlotDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Workday.StartHour == 0 && o.Workday.EndHour == 0 {
		o.Workday = Hours{StartHour: 9, EndHour: 17}
	}
	if o.SlotDuration <= 0 {
		o.SlotDuration = 30 * time.Minute
	}
	return o
}

// Service resolves providers to calendars and performs slot queries and event
// creation against the external calendar backend.
type Service struct {
	directory *directory.Directory
	calendar  calendar.API
	logger    *logging.Logger
	metrics   *metrics.SchedulerMetrics
	opts      Options
}

// NewService constructs a booking service.
func NewService(dir *directory.Directory, cal calendar.API, logger *logging.Logger, m *metrics.SchedulerMetrics, opts Options) *Service {
	if dir == nil {
		panic("booking: directory required")
	}
	if cal == nil {
		panic("booking: calendar API required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		directory: dir,
		calendar:  cal,
		logger:    logger,
		metrics:   m,
		opts:      opts.withDefaults(),
	}
}

// SlotDuration reports the configured appointment length.
func (s *Service) SlotDuration() time.Duration {
	return s.opts.SlotDuration
}

// Location reports the clinic's local time zone.
func (s *Service) Location() *time.Location {
	return s.opts.Location
}

// Window returns the clinic working-hours window for the given day in clinic
// local time.
func (s *Service) Window(day time.Time) (start, end time.Time) {
	local := day.In(s.opts.Location)
	y, m, d := local.Date()
	start = time.Date(y, m, d, s.opts.Workday.StartHour, 0, 0, 0, s.opts.Location)
	end = time.Date(y, m, d, s.opts.Workday.EndHour, 0, 0, 0, s.opts.Location)
	return start, end
}

// GetFreeSlots queries the provider's busy periods for the working-hours
// window on day and returns the bookable slots in chronological order. It
// fails closed: a calendar or lookup failure yields an empty slot list along
// with the error, so callers can present "no availability" and keep the
// conversation alive.
func (s *Service) GetFreeSlots(ctx context.Context, providerID int, day time.Time) ([]availability.Slot, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.free_slots")
	defer span.End()
	span.SetAttributes(attribute.Int("careflow.provider_id", providerID))

	calendarID, ok := s.directory.CalendarIdentity(providerID)
	if !ok {
		s.metrics.ObserveSlotQuery("unknown_provider")
		return nil, fmt.Errorf("%w: id %d", ErrUnknownProvider, providerID)
	}

	windowStart, windowEnd := s.Window(day)
	busy, err := s.calendar.FreeBusy(ctx, calendarID, windowStart, windowEnd)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveSlotQuery("error")
		s.logger.Warn("free-busy query failed, treating day as unavailable",
			"provider_id", providerID,
			"date", windowStart.Format("2006-01-02"),
			"error", err,
		)
		return nil, fmt.Errorf("booking: availability query: %w", err)
	}

	slots := availability.FreeSlots(windowStart, windowEnd, busy, s.opts.SlotDuration)
	s.metrics.ObserveSlotQuery("ok")
	s.logger.Info("computed free slots",
		"provider_id", providerID,
		"date", windowStart.Format("2006-01-02"),
		"busy_periods", len(busy),
		"free_slots", len(slots),
	)
	return slots, nil
}

// Request carries everything needed to book one appointment slot.
type Request struct {
	ProviderID   int
	Slot         availability.Slot
	PatientName  string
	PatientEmail string
	PatientPhone string
	Symptoms     string
}

// Book creates a 30-minute appointment event at the slot start, inviting the
// patient with the clinic reminder policy. Booking is at-most-once per call:
// a downstream failure is returned without retrying, and the caller decides
// whether to prompt the patient to try again. Availability is not re-verified
// here; a race for the same slot is settled by the calendar backend.
func (s *Service) Book(ctx context.Context, req Request) error {
	ctx, span := bookingTracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(
		attribute.Int("careflow.provider_id", req.ProviderID),
		attribute.String("careflow.slot_start", req.Slot.Start.Format(time.RFC3339)),
	)

	started := time.Now()
	calendarID, ok := s.directory.CalendarIdentity(req.ProviderID)
	if !ok {
		s.metrics.ObserveBooking("unknown_provider", time.Since(started).Seconds())
		return fmt.Errorf("%w: id %d", ErrUnknownProvider, req.ProviderID)
	}

	start := req.Slot.Start.In(s.opts.Location)
	end := req.Slot.End.In(s.opts.Location)
	if !end.After(start) {
		end = start.Add(s.opts.SlotDuration)
	}

	eventID, err := s.calendar.CreateEvent(ctx, calendar.EventRequest{
		CalendarID:    calendarID,
		Start:         start,
		End:           end,
		Title:         fmt.Sprintf("Patient Appointment: %s", req.PatientName),
		Description:   eventDescription(req),
		AttendeeEmail: req.PatientEmail,
		Reminders:     calendar.DefaultReminderPolicy(),
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("failure", time.Since(started).Seconds())
		s.logger.Warn("booking failed",
			"provider_id", req.ProviderID,
			"slot_start", start.Format(time.RFC3339),
			"error", err,
		)
		return fmt.Errorf("booking: create event: %w", err)
	}

	s.metrics.ObserveBooking("success", time.Since(started).Seconds())
	s.logger.Info("appointment booked",
		"provider_id", req.ProviderID,
		"slot_start", start.Format(time.RFC3339),
		"event_id", eventID,
	)
	return nil
}

func eventDescription(req Request) string {
	return fmt.Sprintf(
		"Patient Details:\nName: %s\nEmail: %s\nPhone: %s\n\nSymptoms: %s",
		req.PatientName, req.PatientEmail, req.PatientPhone, req.Symptoms,
	)
}
