package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/application/scheduling"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// IdempotencyHeader carries the caller's key for schedule generation.
const IdempotencyHeader = "Idempotency-Key"

// ScheduleService is the slice of the scheduling service used by contract
// routes.
type ScheduleService interface {
	GenerateSchedule(ctx context.Context, cmd scheduling.GenerateCommand) (*scheduling.GenerateResult, error)
	ListEvents(ctx context.Context, contractID string, from, to schedule.Date) ([]schedule.EventView, error)
	Summary(ctx context.Context, contractID string) (*scheduling.ContractSummary, error)
	Timeline(ctx context.Context, contractID string) (*scheduling.Timeline, error)
	RecordTicket(ctx context.Context, ticket schedule.ServiceTicket) error
}

// ScheduleHandler serves the contract-scoped schedule routes.
type ScheduleHandler struct {
	svc    ScheduleService
	logger logging.Logger
}

func NewScheduleHandler(svc ScheduleService, logger logging.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, logger: logger.Named("http.schedule")}
}

// RegisterRoutes mounts the handler under /contracts/{contractID}.
func (h *ScheduleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/contracts/{contractID}", func(cr chi.Router) {
		cr.Post("/schedule", h.Generate)
		cr.Get("/events", h.ListEvents)
		cr.Get("/summary", h.Summary)
		cr.Get("/timeline", h.Timeline)
		cr.Post("/tickets", h.RecordTicket)
	})
}

// Generate handles POST /contracts/{contractID}/schedule. The path id wins
// over any contractId in the body. Replays of an idempotent request answer
// 200 instead of 201.
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contractID")

	var terms schedule.ContractTerms
	if err := decodeJSON(r, &terms); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if terms.ContractID != "" && terms.ContractID != contractID {
		writeAppError(w, r, h.logger, schedule.NewConfigurationError("body contractId %q does not match path %q", terms.ContractID, contractID))
		return
	}
	terms.ContractID = contractID

	res, err := h.svc.GenerateSchedule(r.Context(), scheduling.GenerateCommand{
		Terms:          terms,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// ListEvents handles GET /contracts/{contractID}/events?from=&to=.
func (h *ScheduleHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	events, err := h.svc.ListEvents(r.Context(), chi.URLParam(r, "contractID"), from, to)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  len(events),
	})
}

func (h *ScheduleHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context(), chi.URLParam(r, "contractID"))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *ScheduleHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	tl, err := h.svc.Timeline(r.Context(), chi.URLParam(r, "contractID"))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

// RecordTicket handles POST /contracts/{contractID}/tickets for callers that
// cannot publish to the ticket topic.
func (h *ScheduleHandler) RecordTicket(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contractID")
	var ticket schedule.ServiceTicket
	if err := decodeJSON(r, &ticket); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if ticket.ContractID != "" && ticket.ContractID != contractID {
		writeAppError(w, r, h.logger, errors.InvalidParam("ticket contractId does not match path").WithDetail(ticket.ContractID))
		return
	}
	ticket.ContractID = contractID
	if err := h.svc.RecordTicket(r.Context(), ticket); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
