// Package conversation implements the multi-step scheduling dialogue: symptom
// intake, specialization routing, provider choice, date choice, time choice,
// confirmation. One Session exists per logged-in patient; events are handled
// to completion one at a time, so the session itself carries no locking.
package conversation

import (
	"time"

	"github.com/careflow/appointment-agent/internal/availability"
	"github.com/careflow/appointment-agent/internal/directory"
)

// State names the step the dialogue is waiting on.
type State string

const (
	StateAwaitingSymptoms       State = "awaiting_symptoms"
	StateAwaitingProviderChoice State = "awaiting_provider_choice"
	StateAwaitingDateChoice     State = "awaiting_date_choice"
	StateAwaitingTimeChoice     State = "awaiting_time_choice"
	StateCompleted              State = "completed"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the session transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Patient identifies who the appointment is for. Set at login, preserved
// across resets, destroyed with the session at logout.
type Patient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Session is the per-conversation state. The five task fields (Symptoms,
// Specialization, Provider, Date, Slot) are populated monotonically as the
// patient answers each step and cleared only by Reset.
type Session struct {
	ID             string                   `json:"id"`
	Patient        Patient                  `json:"patient"`
	State          State                    `json:"state"`
	Symptoms       string                   `json:"symptoms,omitempty"`
	Specialization directory.Specialization `json:"specialization,omitempty"`
	Provider       *directory.Provider      `json:"provider,omitempty"`
	Date           *time.Time               `json:"date,omitempty"`
	Slot           *availability.Slot       `json:"slot,omitempty"`
	Messages       []Message                `json:"messages"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

// Append adds a message to the transcript.
func (s *Session) Append(role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// Reset clears the five task fields atomically, returns the dialogue to
// symptom intake, and greets the patient again. Identity and transcript
// history are preserved. Safe to apply from any state.
func (s *Session) Reset(greeting string) {
	s.Symptoms = ""
	s.Specialization = ""
	s.Provider = nil
	s.Date = nil
	s.Slot = nil
	s.State = StateAwaitingSymptoms
	if greeting != "" {
		s.Append(RoleAssistant, greeting)
	}
}

// Completed reports whether all five task fields are populated. This becomes
// true only as the direct result of a successful booking: the slot field is
// the last to be set, and only after the calendar write succeeds.
func (s *Session) Completed() bool {
	return s.Symptoms != "" &&
		s.Specialization != "" &&
		s.Provider != nil &&
		s.Date != nil &&
		s.Slot != nil
}
