package conversation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *fixture) {
	t.Helper()
	f := newFixture(t)
	handler := NewHandler(f.controller, nil)

	r := chi.NewRouter()
	r.Mount("/sessions", handler.Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, f
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHandler_FullBookingFlow(t *testing.T) {
	srv, f := newTestServer(t)

	// Login.
	resp := postJSON(t, srv.URL+"/sessions", Patient{
		Name: "Asha Verma", Email: "asha@example.com", Phone: "+91 98000 00000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	require.NotEmpty(t, session.ID)
	require.Equal(t, StateAwaitingSymptoms, session.State)

	eventsURL := srv.URL + "/sessions/" + session.ID + "/events"

	// Symptom intake.
	resp = postJSON(t, eventsURL, Event{Type: EventSymptoms, Text: "chest pain"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var turn Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&turn))
	require.Equal(t, StateAwaitingProviderChoice, turn.State)
	require.Len(t, turn.Providers, 2)

	// Provider choice.
	resp = postJSON(t, eventsURL, Event{Type: EventProvider, ProviderID: turn.Providers[0].ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&turn))
	require.Equal(t, StateAwaitingDateChoice, turn.State)
	require.Len(t, turn.Dates, 7)

	// Date choice.
	resp = postJSON(t, eventsURL, Event{Type: EventDate, Date: turn.Dates[0]})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&turn))
	require.Equal(t, StateAwaitingTimeChoice, turn.State)
	require.NotEmpty(t, turn.Slots)

	// Time choice books the slot.
	resp = postJSON(t, eventsURL, Event{Type: EventTime, Start: turn.Slots[0].Start.Format(time.RFC3339)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&turn))
	require.True(t, turn.Booked)
	require.Equal(t, StateCompleted, turn.State)
	require.Len(t, f.booker.booked, 1)

	// Snapshot shows the completed session.
	getResp, err := http.Get(srv.URL + "/sessions/" + session.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	var snapshot Session
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&snapshot))
	require.True(t, snapshot.Completed())
}

func TestHandler_LoginValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/sessions", Patient{Name: "No Contact"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_UnknownSessionIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/sessions/missing/events", Event{Type: EventReset})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	getResp, err := http.Get(srv.URL + "/sessions/missing")
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestHandler_OutOfOrderEventIs409(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/sessions", Patient{
		Name: "Asha Verma", Email: "asha@example.com", Phone: "+91 98000 00000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))

	resp = postJSON(t, srv.URL+"/sessions/"+session.ID+"/events", Event{Type: EventProvider, ProviderID: 1})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandler_Logout(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/sessions", Patient{
		Name: "Asha Verma", Email: "asha@example.com", Phone: "+91 98000 00000",
	})
	var session Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/"+session.ID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)

	getResp, err := http.Get(srv.URL + "/sessions/" + session.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusNotFound, getResp.StatusCode)
}
