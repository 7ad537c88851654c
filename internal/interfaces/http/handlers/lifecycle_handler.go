package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/application/scheduling"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
)

// LifecycleService is the slice of the scheduling service used by the
// status table and overdue routes.
type LifecycleService interface {
	Tables() []scheduling.TableView
	LatestOverdue(ctx context.Context, limit int) (*schedule.OverdueSnapshot, error)
}

// LifecycleHandler exposes the active status tables and the latest overdue
// sweep.
type LifecycleHandler struct {
	svc    LifecycleService
	logger logging.Logger
}

func NewLifecycleHandler(svc LifecycleService, logger logging.Logger) *LifecycleHandler {
	return &LifecycleHandler{svc: svc, logger: logger.Named("http.lifecycle")}
}

func (h *LifecycleHandler) RegisterRoutes(r chi.Router) {
	r.Get("/lifecycle/tables", h.ListTables)
	r.Get("/overdue", h.Overdue)
}

// ListTables handles GET /lifecycle/tables.
func (h *LifecycleHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"tables": h.svc.Tables()})
}

// Overdue handles GET /overdue?limit=. limit=0 returns every overdue event.
func (h *LifecycleHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	snap, err := h.svc.LatestOverdue(r.Context(), limit)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if snap.Events == nil {
		snap.Events = []schedule.ContractEvent{}
	}
	writeJSON(w, http.StatusOK, snap)
}
