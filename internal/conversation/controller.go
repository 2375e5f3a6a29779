package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/careflow/appointment-agent/internal/availability"
	"github.com/careflow/appointment-agent/internal/booking"
	"github.com/careflow/appointment-agent/internal/directory"
	"github.com/careflow/appointment-agent/internal/observability/metrics"
	"github.com/careflow/appointment-agent/internal/triage"
	"github.com/careflow/appointment-agent/pkg/logging"
)

var conversationTracer = otel.Tracer("careflow.internal.conversation")

// daysToOffer is how many calendar days (today included) are offered at the
// date-choice step.
const daysToOffer = 7

const (
	dateLayout = "2006-01-02"
	timeLayout = "03:04 PM"
)

var (
	// ErrInvalidEvent marks an event whose payload cannot be used.
	ErrInvalidEvent = errors.New("conversation: invalid event")
	// ErrUnexpectedEvent marks an event that does not apply to the current state.
	ErrUnexpectedEvent = errors.New("conversation: event not expected in current state")
)

// EventType enumerates the discrete inputs the dialogue accepts.
type EventType string

const (
	EventSymptoms EventType = "symptoms"
	EventProvider EventType = "provider"
	EventDate     EventType = "date"
	EventTime     EventType = "time"
	EventReset    EventType = "reset"
)

// Event is one patient action: free text, a choice, or a reset.
type Event struct {
	Type       EventType `json:"type"`
	Text       string    `json:"text,omitempty"`
	ProviderID int       `json:"providerId,omitempty"`
	Date       string    `json:"date,omitempty"`  // YYYY-MM-DD, clinic local
	Start      string    `json:"start,omitempty"` // RFC3339 slot start
}

// SlotOption is one bookable time presented to the patient.
type SlotOption struct {
	Start time.Time `json:"start"`
	Label string    `json:"label"`
}

// Response carries the assistant messages produced by one event plus the
// choices for the next step, ready for a UI to render.
type Response struct {
	SessionID string               `json:"sessionId"`
	State     State                `json:"state"`
	Messages  []Message            `json:"messages"`
	Providers []directory.Provider `json:"providers,omitempty"`
	Dates     []string             `json:"dates,omitempty"`
	Slots     []SlotOption         `json:"slots,omitempty"`
	Booked    bool                 `json:"booked"`
}

// Triager is the symptom-classification capability the controller consumes.
type Triager interface {
	Classify(ctx context.Context, symptoms string) triage.Result
}

// Booker is the slot-query and booking capability the controller consumes.
// *booking.Service satisfies it.
type Booker interface {
	GetFreeSlots(ctx context.Context, providerID int, day time.Time) ([]availability.Slot, error)
	Book(ctx context.Context, req booking.Request) error
	Location() *time.Location
}

// Controller drives the scheduling dialogue. Each event is handled to
// completion before the next; independent sessions share only the read-only
// directory and the calendar backend behind the Booker.
type Controller struct {
	store     SessionStore
	triager   Triager
	directory *directory.Directory
	bookings  Booker
	logger    *logging.Logger
	metrics   *metrics.SchedulerMetrics
	now       func() time.Time
}

// NewController wires the dialogue engine.
func NewController(store SessionStore, triager Triager, dir *directory.Directory, bookings Booker, logger *logging.Logger, m *metrics.SchedulerMetrics) *Controller {
	if store == nil {
		panic("conversation: session store required")
	}
	if triager == nil {
		panic("conversation: triager required")
	}
	if dir == nil {
		panic("conversation: directory required")
	}
	if bookings == nil {
		panic("conversation: booker required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Controller{
		store:     store,
		triager:   triager,
		directory: dir,
		bookings:  bookings,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// StartSession opens a session for a logged-in patient and greets them.
func (c *Controller) StartSession(ctx context.Context, patient Patient) (*Session, error) {
	if strings.TrimSpace(patient.Name) == "" || strings.TrimSpace(patient.Email) == "" || strings.TrimSpace(patient.Phone) == "" {
		return nil, fmt.Errorf("%w: patient name, email and phone are required", ErrInvalidEvent)
	}

	now := c.now()
	session := &Session{
		ID:        uuid.NewString(),
		Patient:   patient,
		State:     StateAwaitingSymptoms,
		CreatedAt: now,
		UpdatedAt: now,
	}
	session.Append(RoleAssistant, fmt.Sprintf(
		"Hello %s! I'm your medical scheduling assistant. Please describe your symptoms or health concerns.",
		patient.Name,
	))

	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}
	c.metrics.ObserveSessionStarted()
	c.logger.Info("session started", "session_id", session.ID)
	return session, nil
}

// EndSession destroys a session at logout.
func (c *Controller) EndSession(ctx context.Context, sessionID string) error {
	return c.store.Delete(ctx, sessionID)
}

// Session returns a snapshot of the session.
func (c *Controller) Session(ctx context.Context, sessionID string) (*Session, error) {
	return c.store.Get(ctx, sessionID)
}

// HandleEvent applies one patient event to the session's state machine and
// persists the outcome. Reset applies from any state; every other event must
// match the state the dialogue is waiting on.
func (c *Controller) HandleEvent(ctx context.Context, sessionID string, event Event) (*Response, error) {
	ctx, span := conversationTracer.Start(ctx, "conversation.handle_event")
	defer span.End()
	span.SetAttributes(
		attribute.String("careflow.session_id", sessionID),
		attribute.String("careflow.event_type", string(event.Type)),
	)

	session, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resp := &Response{SessionID: session.ID}
	firstNew := len(session.Messages)

	switch event.Type {
	case EventReset:
		c.handleReset(session)
	case EventSymptoms:
		err = c.handleSymptoms(ctx, session, event, resp)
	case EventProvider:
		err = c.handleProviderChoice(session, event, resp)
	case EventDate:
		err = c.handleDateChoice(ctx, session, event, resp)
	case EventTime:
		err = c.handleTimeChoice(ctx, session, event, resp)
	default:
		err = fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, event.Type)
	}
	if err != nil {
		return nil, err
	}

	session.UpdatedAt = c.now()
	if err := c.store.Save(ctx, session); err != nil {
		return nil, err
	}

	resp.State = session.State
	resp.Messages = append([]Message(nil), session.Messages[firstNew:]...)
	return resp, nil
}

func (c *Controller) handleReset(session *Session) {
	session.Reset("Hello! I'm your medical scheduling assistant. Please describe your symptoms or health concerns.")
	c.metrics.ObserveSessionReset()
	c.logger.Info("session reset", "session_id", session.ID)
}

func (c *Controller) handleSymptoms(ctx context.Context, session *Session, event Event, resp *Response) error {
	if session.State != StateAwaitingSymptoms {
		return fmt.Errorf("%w: symptoms in state %s", ErrUnexpectedEvent, session.State)
	}
	symptoms := strings.TrimSpace(event.Text)
	if symptoms == "" {
		return fmt.Errorf("%w: symptom text is empty", ErrInvalidEvent)
	}

	session.Append(RoleUser, symptoms)
	result := c.triager.Classify(ctx, symptoms)

	if result.IsEmergency {
		session.Append(RoleAssistant, fmt.Sprintf(
			"⚠️ EMERGENCY: %s\n\nPlease seek immediate medical attention or call emergency services.",
			result.Explanation,
		))
		// No state advance; the patient may re-describe their symptoms.
		return nil
	}

	session.Symptoms = symptoms
	session.Specialization = result.Specialization
	session.State = StateAwaitingProviderChoice

	providers := c.directory.ListProviders(result.Specialization)
	session.Append(RoleAssistant, fmt.Sprintf(
		"%s\n\nI recommend seeing a %s. Here are available specialists:",
		result.Explanation, result.Specialization,
	))
	resp.Providers = providers
	return nil
}

func (c *Controller) handleProviderChoice(session *Session, event Event, resp *Response) error {
	if session.State != StateAwaitingProviderChoice {
		return fmt.Errorf("%w: provider choice in state %s", ErrUnexpectedEvent, session.State)
	}

	offered := c.directory.ListProviders(session.Specialization)
	var chosen *directory.Provider
	for i := range offered {
		if offered[i].ID == event.ProviderID {
			chosen = &offered[i]
			break
		}
	}
	if chosen == nil {
		return fmt.Errorf("%w: provider %d was not offered", ErrInvalidEvent, event.ProviderID)
	}

	session.Provider = chosen
	session.State = StateAwaitingDateChoice
	session.Append(RoleAssistant, fmt.Sprintf(
		"You've selected %s. Select an appointment date:", chosen.Name,
	))
	resp.Dates = c.offerDates()
	return nil
}

func (c *Controller) handleDateChoice(ctx context.Context, session *Session, event Event, resp *Response) error {
	// A new date may also be picked while waiting on a time, so a patient is
	// never stuck on a day with no availability.
	if session.State != StateAwaitingDateChoice && session.State != StateAwaitingTimeChoice {
		return fmt.Errorf("%w: date choice in state %s", ErrUnexpectedEvent, session.State)
	}

	loc := c.bookings.Location()
	day, err := time.ParseInLocation(dateLayout, event.Date, loc)
	if err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidEvent, event.Date)
	}
	if !c.dateOffered(day) {
		return fmt.Errorf("%w: date %s is outside the offered range", ErrInvalidEvent, event.Date)
	}

	// Soft failure: a query error surfaces as no availability and the patient
	// picks another day.
	slots, err := c.bookings.GetFreeSlots(ctx, session.Provider.ID, day)
	if err != nil {
		c.logger.Warn("slot query failed", "session_id", session.ID, "error", err)
	}

	if len(slots) == 0 {
		session.Date = nil
		session.State = StateAwaitingDateChoice
		session.Append(RoleAssistant, fmt.Sprintf(
			"No available slots for %s on %s. Please choose another date.",
			session.Provider.Name, event.Date,
		))
		resp.Dates = c.offerDates()
		return nil
	}

	session.Date = &day
	session.State = StateAwaitingTimeChoice
	session.Append(RoleAssistant, fmt.Sprintf(
		"Available time slots for %s on %s:", session.Provider.Name, event.Date,
	))
	resp.Slots = slotOptions(slots)
	return nil
}

func (c *Controller) handleTimeChoice(ctx context.Context, session *Session, event Event, resp *Response) error {
	if session.State != StateAwaitingTimeChoice {
		return fmt.Errorf("%w: time choice in state %s", ErrUnexpectedEvent, session.State)
	}

	start, err := time.Parse(time.RFC3339, event.Start)
	if err != nil {
		return fmt.Errorf("%w: slot start %q", ErrInvalidEvent, event.Start)
	}
	start = start.In(c.bookings.Location())
	if session.Date == nil || !sameDay(start, *session.Date) {
		return fmt.Errorf("%w: slot start %s is not on the selected date", ErrInvalidEvent, event.Start)
	}

	// The chosen time must still be a free slot for this provider and day;
	// the client's value is never trusted on its own.
	offered, err := c.bookings.GetFreeSlots(ctx, session.Provider.ID, *session.Date)
	if err != nil {
		c.logger.Warn("slot query failed", "session_id", session.ID, "error", err)
		session.Append(RoleAssistant, "Failed to schedule appointment. Please try again.")
		return nil
	}
	slot, ok := matchSlot(offered, start)
	if !ok {
		return fmt.Errorf("%w: slot start %s was not offered", ErrInvalidEvent, event.Start)
	}

	err = c.bookings.Book(ctx, booking.Request{
		ProviderID:   session.Provider.ID,
		Slot:         slot,
		PatientName:  session.Patient.Name,
		PatientEmail: session.Patient.Email,
		PatientPhone: session.Patient.Phone,
		Symptoms:     session.Symptoms,
	})
	if err != nil {
		// Slot stays unset so the completion invariant cannot fire from a
		// failed booking. The patient may retry the same or another time.
		c.logger.Warn("booking attempt failed", "session_id", session.ID, "error", err)
		session.Append(RoleAssistant, "Failed to schedule appointment. Please try again.")
		return nil
	}

	session.Slot = &slot
	session.State = StateCompleted
	resp.Booked = true
	session.Append(RoleAssistant, fmt.Sprintf(
		"✅ Appointment scheduled with %s for %s at %s",
		session.Provider.Name,
		start.Format(dateLayout),
		start.Format(timeLayout),
	))
	session.Append(RoleAssistant, "You'll receive a confirmation email shortly with appointment details.")
	return nil
}

// offerDates returns today plus the following six days in clinic local time.
func (c *Controller) offerDates() []string {
	loc := c.bookings.Location()
	today := c.now().In(loc)
	dates := make([]string, 0, daysToOffer)
	for i := 0; i < daysToOffer; i++ {
		dates = append(dates, today.AddDate(0, 0, i).Format(dateLayout))
	}
	return dates
}

func (c *Controller) dateOffered(day time.Time) bool {
	loc := c.bookings.Location()
	today := midnight(c.now().In(loc))
	last := today.AddDate(0, 0, daysToOffer-1)
	day = midnight(day.In(loc))
	return !day.Before(today) && !day.After(last)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func matchSlot(slots []availability.Slot, start time.Time) (availability.Slot, bool) {
	for _, s := range slots {
		if s.Start.Equal(start) {
			return s, true
		}
	}
	return availability.Slot{}, false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func slotOptions(slots []availability.Slot) []SlotOption {
	options := make([]SlotOption, 0, len(slots))
	for _, s := range slots {
		options = append(options, SlotOption{
			Start: s.Start,
			Label: s.Start.Format(timeLayout),
		})
	}
	return options
}
