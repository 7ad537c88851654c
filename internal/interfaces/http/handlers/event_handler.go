package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/lifecycle"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
)

// EventService is the slice of the scheduling service used by event routes.
type EventService interface {
	Event(ctx context.Context, eventID string) (*schedule.EventView, error)
	Targets(ctx context.Context, eventID string) ([]string, error)
	Transition(ctx context.Context, req lifecycle.TransitionRequest) (*lifecycle.TransitionResult, error)
	OverrideDate(ctx context.Context, eventID string, date schedule.Date) (*schedule.EventView, error)
	ResetDate(ctx context.Context, eventID string) (*schedule.EventView, error)
}

// EventHandler serves single-event routes: reads, status transitions and
// date overrides.
type EventHandler struct {
	svc    EventService
	logger logging.Logger
}

func NewEventHandler(svc EventService, logger logging.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger.Named("http.event")}
}

func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Route("/events/{eventID}", func(er chi.Router) {
		er.Get("/", h.Get)
		er.Post("/transitions", h.Transition)
		er.Put("/override", h.Override)
		er.Delete("/override", h.ResetOverride)
	})
}

// EventResponse is an event plus the statuses it may move to next.
type EventResponse struct {
	schedule.EventView
	AllowedTargets []string `json:"allowedTargets"`
}

// TransitionRequest is the body of POST /events/{eventID}/transitions.
type TransitionRequest struct {
	ExpectedVersion int     `json:"expectedVersion"`
	ToStatus        string  `json:"toStatus"`
	AssignedTo      *string `json:"assignedTo,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// OverrideRequest is the body of PUT /events/{eventID}/override.
type OverrideRequest struct {
	Date schedule.Date `json:"date"`
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	view, err := h.svc.Event(r.Context(), eventID)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	targets, err := h.svc.Targets(r.Context(), eventID)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if targets == nil {
		targets = []string{}
	}
	writeJSON(w, http.StatusOK, EventResponse{EventView: *view, AllowedTargets: targets})
}

// Transition handles POST /events/{eventID}/transitions. A stale
// expectedVersion answers 409 and a disallowed edge 422; callers reload and
// decide, nothing is retried here.
func (h *EventHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.Transition(r.Context(), lifecycle.TransitionRequest{
		EventID:         chi.URLParam(r, "eventID"),
		ExpectedVersion: req.ExpectedVersion,
		ToStatus:        req.ToStatus,
		AssignedTo:      req.AssignedTo,
		Notes:           req.Notes,
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *EventHandler) Override(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	view, err := h.svc.OverrideDate(r.Context(), chi.URLParam(r, "eventID"), req.Date)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *EventHandler) ResetOverride(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.ResetDate(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
