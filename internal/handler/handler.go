// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/registration"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/repository"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/service"
)

// EventHandler holds all HTTP handlers for the event API.
type EventHandler struct {
	svc *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps the service layer's typed errors onto HTTP
// status codes. Unknown errors become a generic 500 so internals never
// leak to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "access denied: admin only")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, repository.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "an account with this email already exists")
	case errors.Is(err, registration.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "you are already registered for this event")
	case errors.Is(err, registration.ErrNotRegistered):
		writeError(w, http.StatusConflict, "you are not registered for this event")
	case errors.Is(err, registration.ErrCapacityBelowAttendance):
		writeError(w, http.StatusConflict, "cannot reduce capacity below current attendee count")
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "the event was updated concurrently, please retry")
	case errors.Is(err, registration.ErrEventInPast):
		writeError(w, http.StatusUnprocessableEntity, "the event is in the past")
	case errors.Is(err, registration.ErrEventCancelled):
		writeError(w, http.StatusUnprocessableEntity, "the event is cancelled")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Browse handlers ──────────────────────────────────────────────────────────

// ListEvents handles GET /api/events
// Optional query parameters: search, type, date (YYYY-MM-DD).
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter := model.EventFilter{
		Search: r.URL.Query().Get("search"),
		Type:   model.EventType(r.URL.Query().Get("type")),
	}
	if d := r.URL.Query().Get("date"); d != "" {
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		filter.Day = day
	}

	events, err := h.svc.ListEvents(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// FilteredEvents handles GET /api/events/filtered
// Returns future events matching the caller's preference set.
func (h *EventHandler) FilteredEvents(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	events, err := h.svc.ListEventsForUserPreferences(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// UserRegisteredEvents handles GET /api/events/user/registered
// Returns the caller's confirmed future events sorted by date.
func (h *EventHandler) UserRegisteredEvents(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	events, err := h.svc.ListUserConfirmedEvents(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ─── Admin handlers ───────────────────────────────────────────────────────────

// CreateEvent handles POST /api/events (admin only).
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	claims := ClaimsFromContext(r.Context())
	event, err := h.svc.CreateEvent(r.Context(), claims.UserID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// UpdateEvent handles PUT /api/events/{id} (admin only).
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	claims := ClaimsFromContext(r.Context())
	event, err := h.svc.UpdateEvent(r.Context(), claims.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /api/events/{id} (admin only).
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if err := h.svc.DeleteEvent(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "event removed"})
}

// ─── Registration handlers ────────────────────────────────────────────────────

// Register handles POST /api/events/{id}/register
// Responds 201 with a waitlisted flag; a full event queues the caller
// rather than failing.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	res, err := h.svc.Register(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Unregister handles POST /api/events/{id}/unregister
func (h *EventHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	event, err := h.svc.Unregister(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(ping func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "storage": "connected"}
		code := http.StatusOK
		if ping != nil {
			if err := ping(); err != nil {
				status["status"] = "degraded"
				status["storage"] = "disconnected"
				code = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, code, status)
	}
}
