package scheduling

import (
	"context"
	"time"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

const idempotencyScopeGenerate = "generate"

// GenerateCommand asks for a contract's schedule to be generated and stored.
type GenerateCommand struct {
	Terms          schedule.ContractTerms
	IdempotencyKey string
}

// GenerateResult is the stored schedule plus its summary. UnlimitedLines
// lists the lines surfaced as continuous service instead of dated events.
type GenerateResult struct {
	ContractID     string               `json:"contractId"`
	Events         []schedule.EventView `json:"events"`
	Summary        schedule.Summary     `json:"summary"`
	UnlimitedLines []schedule.Line      `json:"unlimitedLines,omitempty"`
	Replayed       bool                 `json:"replayed"`
}

// GeneratedPayload is published on TopicEventsGenerated.
type GeneratedPayload struct {
	ContractID  string           `json:"contractId"`
	PaymentMode string           `json:"paymentMode"`
	EventCount  int              `json:"eventCount"`
	EventIDs    []string         `json:"eventIds"`
	Summary     schedule.Summary `json:"summary"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// GenerateSchedule expands cmd.Terms into events and stores them. With an
// idempotency key, concurrent duplicates in this process share one
// generation and later duplicates from any process replay the stored result.
func (s *Service) GenerateSchedule(ctx context.Context, cmd GenerateCommand) (*GenerateResult, error) {
	if cmd.Terms.ContractID == "" {
		return nil, schedule.NewConfigurationError("contractId is required")
	}
	if cmd.IdempotencyKey == "" {
		return s.generate(ctx, cmd.Terms)
	}

	key := cmd.Terms.ContractID + ":" + cmd.IdempotencyKey
	var stored GenerateResult
	if err := s.idempotency.Load(ctx, idempotencyScopeGenerate, key, &stored); err == nil {
		s.logger.Info("generation replayed", logging.ContractID(cmd.Terms.ContractID), logging.String("idempotency_key", cmd.IdempotencyKey))
		stored.Replayed = true
		return &stored, nil
	} else if !errors.IsNotFound(err) {
		s.logger.Warn("idempotency lookup failed", logging.String("idempotency_key", cmd.IdempotencyKey), logging.Err(err))
	}

	v, err, _ := s.inflight.Do(key, func() (interface{}, error) {
		res, err := s.generate(ctx, cmd.Terms)
		if err != nil {
			return nil, err
		}
		if err := s.idempotency.Save(ctx, idempotencyScopeGenerate, key, res, s.config.IdempotencyTTL); err != nil {
			s.logger.Warn("idempotency save failed", logging.String("idempotency_key", cmd.IdempotencyKey), logging.Err(err))
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*GenerateResult)
	return &res, nil
}

func (s *Service) generate(ctx context.Context, terms schedule.ContractTerms) (*GenerateResult, error) {
	start := time.Now()
	mode := string(terms.PaymentMode)
	log := s.logger.With(logging.ContractID(terms.ContractID), logging.String("payment_mode", mode))

	gen := schedule.NewGenerator(schedule.WithInitialStatuses(s.tables.Current().InitialStatuses()))
	events, err := gen.Generate(terms)
	if err != nil {
		s.metrics.ObserveGeneration(mode, nil, time.Since(start), err)
		log.Info("schedule rejected", logging.Err(err))
		return nil, err
	}

	if err := s.events.InsertBatch(ctx, events); err != nil {
		s.metrics.ObserveGeneration(mode, nil, time.Since(start), err)
		log.Error("schedule insert failed", logging.Int("events", len(events)), logging.Err(err))
		return nil, err
	}
	s.invalidate(ctx, terms.ContractID)

	counts := make(map[string]int, len(schedule.EventTypes))
	ids := make([]string, len(events))
	for i, e := range events {
		counts[string(e.EventType)]++
		ids[i] = e.ID
	}
	summary := schedule.Summarize(events)

	s.publish(ctx, TopicEventsGenerated, terms.ContractID, GeneratedPayload{
		ContractID:  terms.ContractID,
		PaymentMode: mode,
		EventCount:  len(events),
		EventIDs:    ids,
		Summary:     summary,
		GeneratedAt: s.now().UTC(),
	})

	elapsed := time.Since(start)
	s.metrics.ObserveGeneration(mode, counts, elapsed, nil)
	log.Info("schedule generated", logging.Int("events", len(events)), logging.Duration("elapsed", elapsed))

	return &GenerateResult{
		ContractID:     terms.ContractID,
		Events:         schedule.NewEventViews(events, s.today()),
		Summary:        summary,
		UnlimitedLines: terms.UnlimitedLines(),
	}, nil
}

// Preview generates without storing anything, using the active tables for
// initial statuses.
func (s *Service) Preview(terms schedule.ContractTerms) (*GenerateResult, error) {
	gen := schedule.NewGenerator(schedule.WithInitialStatuses(s.tables.Current().InitialStatuses()))
	events, err := gen.Generate(terms)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{
		ContractID:     terms.ContractID,
		Events:         schedule.NewEventViews(events, s.today()),
		Summary:        schedule.Summarize(events),
		UnlimitedLines: terms.UnlimitedLines(),
	}, nil
}
