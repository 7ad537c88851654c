package scheduling

import (
	"context"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/lifecycle"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// ContractSummary is the cached aggregate view of a contract's schedule.
type ContractSummary struct {
	ContractID   string           `json:"contractId"`
	AsOf         schedule.Date    `json:"asOf"`
	Summary      schedule.Summary `json:"summary"`
	OverdueCount int              `json:"overdueCount"`
	Completed    int              `json:"completed"`
}

// TimelineGroup is one day of a contract's timeline. Ticket is set when every
// deliverable of the day is completed and a ticket closed that day.
type TimelineGroup struct {
	Date         schedule.Date               `json:"date"`
	Deliverables []schedule.EventView        `json:"deliverables"`
	Billing      []schedule.EventView        `json:"billing"`
	AllCompleted bool                        `json:"allCompleted"`
	Ticket       *schedule.TicketDisplayInfo `json:"ticket,omitempty"`
}

// Timeline is the date-grouped view of a contract.
type Timeline struct {
	ContractID  string               `json:"contractId"`
	AsOf        schedule.Date        `json:"asOf"`
	Groups      []TimelineGroup      `json:"groups"`
	Ambiguities []schedule.Ambiguity `json:"ambiguities,omitempty"`
}

func requireContractID(contractID string) error {
	if contractID == "" {
		return errors.InvalidParam("contractId is required")
	}
	return nil
}

// Event returns one event with overrides applied and flags derived.
func (s *Service) Event(ctx context.Context, eventID string) (*schedule.EventView, error) {
	if eventID == "" {
		return nil, errors.InvalidParam("eventId is required")
	}
	e, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &schedule.NewEventViews([]schedule.ContractEvent{*e}, s.today())[0], nil
}

// ListEvents returns the contract's events scheduled within [from, to] in
// display order. Zero bounds are open.
func (s *Service) ListEvents(ctx context.Context, contractID string, from, to schedule.Date) ([]schedule.EventView, error) {
	if err := requireContractID(contractID); err != nil {
		return nil, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, errors.InvalidParam("to must not be before from")
	}
	events, err := s.events.FindByContract(ctx, contractID, schedule.WithDateRange(from, to))
	if err != nil {
		return nil, err
	}
	schedule.Sort(events)
	return schedule.NewEventViews(events, s.today()), nil
}

func (s *Service) Summary(ctx context.Context, contractID string) (*ContractSummary, error) {
	if err := requireContractID(contractID); err != nil {
		return nil, err
	}
	return cachedView(ctx, s, cacheSummary, contractID, func(ctx context.Context) (*ContractSummary, error) {
		events, err := s.events.FindByContract(ctx, contractID)
		if err != nil {
			return nil, err
		}
		today := s.today()
		out := &ContractSummary{ContractID: contractID, AsOf: today, Summary: schedule.Summarize(events)}
		for _, e := range events {
			if e.IsOverdue(today) {
				out.OverdueCount++
			}
			if e.Status == schedule.StatusCompleted {
				out.Completed++
			}
		}
		return out, nil
	})
}

func (s *Service) Timeline(ctx context.Context, contractID string) (*Timeline, error) {
	if err := requireContractID(contractID); err != nil {
		return nil, err
	}
	return cachedView(ctx, s, cacheTimeline, contractID, func(ctx context.Context) (*Timeline, error) {
		events, err := s.events.FindByContract(ctx, contractID)
		if err != nil {
			return nil, err
		}
		tickets, err := s.tickets.FindByContract(ctx, contractID)
		if err != nil {
			return nil, err
		}
		return buildTimeline(contractID, s.today(), events, tickets), nil
	})
}

func buildTimeline(contractID string, today schedule.Date, events []schedule.ContractEvent, tickets []schedule.ServiceTicket) *Timeline {
	groups := schedule.GroupByDate(events)
	correlation := schedule.Correlate(groups, tickets)

	out := &Timeline{
		ContractID:  contractID,
		AsOf:        today,
		Groups:      make([]TimelineGroup, len(groups)),
		Ambiguities: correlation.Ambiguities,
	}
	for i, g := range groups {
		out.Groups[i] = TimelineGroup{
			Date:         g.Date,
			Deliverables: schedule.NewEventViews(g.Deliverables, today),
			Billing:      schedule.NewEventViews(g.Billing, today),
			AllCompleted: g.AllCompleted,
			Ticket:       correlation.ByDate[g.Date],
		}
	}
	return out
}

// TableView is one event type's active state machine.
type TableView struct {
	lifecycle.TableDefinition
	InitialStatus string `json:"initialStatus"`
}

// Tables returns the active status tables in event type rank order.
func (s *Service) Tables() []TableView {
	defs := s.tables.Current().Definitions()
	out := make([]TableView, len(defs))
	for i, d := range defs {
		out[i] = TableView{TableDefinition: d}
		if len(d.Statuses) > 0 {
			out[i].InitialStatus = d.Statuses[0].ID
		}
	}
	return out
}

// Targets lists the statuses an event may move to next.
func (s *Service) Targets(ctx context.Context, eventID string) ([]string, error) {
	e, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.authority.Targets(*e), nil
}
