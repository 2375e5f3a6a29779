package conversation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/careflow/appointment-agent/pkg/logging"
)

// Handler wires HTTP requests to the conversation controller.
type Handler struct {
	controller *Controller
	logger     *logging.Logger
}

// NewHandler creates a session handler.
func NewHandler(controller *Controller, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{controller: controller, logger: logger}
}

// Routes returns the /sessions subrouter.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateSession)
	r.Get("/{sessionID}", h.GetSession)
	r.Post("/{sessionID}/events", h.PostEvent)
	r.Delete("/{sessionID}", h.DeleteSession)
	return r
}

// CreateSession handles patient login: POST /sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var patient Patient
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		h.logger.Error("failed to decode login request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.controller.StartSession(r.Context(), patient)
	if err != nil {
		if errors.Is(err, ErrInvalidEvent) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to start session", "error", err)
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, session)
}

// GetSession returns the session snapshot: GET /sessions/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.controller.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.sessionError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}

// PostEvent applies one conversation event: POST /sessions/{sessionID}/events.
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	var event Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.logger.Error("failed to decode event", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.controller.HandleEvent(r.Context(), chi.URLParam(r, "sessionID"), event)
	if err != nil {
		h.sessionError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// DeleteSession handles logout: DELETE /sessions/{sessionID}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		http.Error(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidEvent):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrUnexpectedEvent):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("conversation request failed", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
