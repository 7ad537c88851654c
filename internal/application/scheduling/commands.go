package scheduling

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/lifecycle"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// Transition outcomes reported to Metrics.
const (
	OutcomeApplied  = "applied"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// TransitionedPayload is published on TopicEventsTransitioned.
type TransitionedPayload struct {
	EventID        string    `json:"eventId"`
	ContractID     string    `json:"contractId"`
	EventType      string    `json:"eventType"`
	FromStatus     string    `json:"fromStatus"`
	ToStatus       string    `json:"toStatus"`
	Version        int       `json:"version"`
	AssignedTo     *string   `json:"assignedTo,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	TransitionedAt time.Time `json:"transitionedAt"`
}

func transitionOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeApplied
	case errors.IsConflict(err):
		return OutcomeConflict
	case lifecycle.IsInvalidTransition(err), errors.IsCode(err, errors.ErrCodeLifecycleUnknownEventType):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// Transition moves an event to a new status through the lifecycle authority.
// Conflicts and invalid transitions are returned unchanged for the caller to
// render; they are never retried.
func (s *Service) Transition(ctx context.Context, req lifecycle.TransitionRequest) (*lifecycle.TransitionResult, error) {
	start := time.Now()
	res, err := s.authority.Transition(ctx, req)

	eventType := "unknown"
	if res != nil {
		eventType = string(res.Event.EventType)
	}
	s.metrics.ObserveTransition(eventType, transitionOutcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, res.Event.ContractID)
	s.publish(ctx, TopicEventsTransitioned, res.Event.ID, TransitionedPayload{
		EventID:        res.Event.ID,
		ContractID:     res.Event.ContractID,
		EventType:      eventType,
		FromStatus:     res.PreviousStatus,
		ToStatus:       res.Event.Status,
		Version:        res.NewVersion,
		AssignedTo:     res.Event.AssignedTo,
		Notes:          res.Event.Notes,
		TransitionedAt: s.now().UTC(),
	})
	return res, nil
}

// OverrideDate moves an event's scheduled date without touching its original
// date or regenerating the schedule. Completed and cancelled events stay put.
func (s *Service) OverrideDate(ctx context.Context, eventID string, date schedule.Date) (*schedule.EventView, error) {
	if eventID == "" {
		return nil, errors.InvalidParam("eventId is required")
	}
	if date.IsZero() {
		return nil, errors.New(errors.ErrCodeScheduleInvalidOverride, "override date is required").
			WithDetail("eventId=" + eventID)
	}
	current, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if schedule.IsTerminalStatus(current.Status) {
		return nil, errors.New(errors.ErrCodeScheduleInvalidOverride, "cannot move a resolved event").
			WithDetail("eventId=" + eventID + " status=" + current.Status)
	}
	return s.patchDate(ctx, eventID, func() error {
		return s.overrides.SetOverride(ctx, eventID, date)
	}, logging.String("override_date", date.String()))
}

// ResetDate removes an override so the scheduled date equals the original.
func (s *Service) ResetDate(ctx context.Context, eventID string) (*schedule.EventView, error) {
	if eventID == "" {
		return nil, errors.InvalidParam("eventId is required")
	}
	return s.patchDate(ctx, eventID, func() error {
		return s.overrides.ClearOverride(ctx, eventID)
	}, logging.Bool("reset", true))
}

func (s *Service) patchDate(ctx context.Context, eventID string, apply func() error, field logging.Field) (*schedule.EventView, error) {
	if err := apply(); err != nil {
		return nil, err
	}
	e, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, e.ContractID)
	s.logger.Info("event date changed",
		logging.EventID(eventID), logging.ContractID(e.ContractID), logging.String("scheduled_date", e.ScheduledDate.String()), field)

	return &schedule.NewEventViews([]schedule.ContractEvent{*e}, s.today())[0], nil
}

// RecordTicket stores a completed service ticket for timeline correlation.
func (s *Service) RecordTicket(ctx context.Context, ticket schedule.ServiceTicket) error {
	err := s.recordTicket(ctx, ticket)
	s.metrics.TicketIngested(err)
	return err
}

func (s *Service) recordTicket(ctx context.Context, ticket schedule.ServiceTicket) error {
	if ticket.ID == "" || ticket.ContractID == "" {
		return errors.InvalidParam("ticket id and contractId are required")
	}
	if ticket.CompletedAt.IsZero() {
		return errors.InvalidParam("ticket completedAt is required")
	}
	if err := s.tickets.Upsert(ctx, ticket); err != nil {
		return err
	}
	s.invalidate(ctx, ticket.ContractID)
	s.logger.Info("service ticket recorded",
		logging.ContractID(ticket.ContractID), logging.String("ticket_id", ticket.ID), logging.Time("completed_at", ticket.CompletedAt))
	return nil
}

// HandleTicketCompleted decodes a ticket from a message payload and records it.
func (s *Service) HandleTicketCompleted(ctx context.Context, payload json.RawMessage) error {
	var ticket schedule.ServiceTicket
	if err := json.Unmarshal(payload, &ticket); err != nil {
		err = errors.Wrap(err, errors.ErrCodeSerialization, "decode service ticket")
		s.metrics.TicketIngested(err)
		return err
	}
	return s.RecordTicket(ctx, ticket)
}
