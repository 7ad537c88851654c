package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─────────────────────────────────────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────────────────────────────────────

// Line is one selected contract line. Unlimited lines never produce events.
type Line struct {
	ID              string          `json:"id" yaml:"id"`
	Kind            string          `json:"kind" yaml:"kind"`
	Quantity        int             `json:"quantity" yaml:"quantity"`
	Unlimited       bool            `json:"unlimited" yaml:"unlimited"`
	UnitPrice       decimal.Decimal `json:"unitPrice" yaml:"unitPrice"`
	Cycle           string          `json:"cycle" yaml:"cycle"`
	CustomCycleDays int             `json:"customCycleDays,omitempty" yaml:"customCycleDays,omitempty"`
}

// ContractTerms is the generation input. Dates are YYYY-MM-DD.
type ContractTerms struct {
	ContractID          string            `json:"contractId,omitempty" yaml:"contractId"`
	StartDate           string            `json:"startDate" yaml:"startDate"`
	DurationValue       int               `json:"durationValue" yaml:"durationValue"`
	DurationUnit        string            `json:"durationUnit" yaml:"durationUnit"`
	SelectedLines       []Line            `json:"selectedLines" yaml:"selectedLines"`
	PaymentMode         string            `json:"paymentMode" yaml:"paymentMode"`
	EmiInstallmentCount int               `json:"emiInstallmentCount,omitempty" yaml:"emiInstallmentCount,omitempty"`
	PerLinePaymentType  map[string]string `json:"perLinePaymentType,omitempty" yaml:"perLinePaymentType,omitempty"`
	BillingCycleMode    string            `json:"billingCycleMode,omitempty" yaml:"billingCycleMode,omitempty"`
	GrandTotal          decimal.Decimal   `json:"grandTotal" yaml:"grandTotal"`
	Currency            string            `json:"currency" yaml:"currency"`
}

type Event struct {
	ID               string           `json:"id"`
	ContractID       string           `json:"contractId"`
	LineID           string           `json:"lineId"`
	EventType        string           `json:"eventType"`
	SequenceNumber   int              `json:"sequenceNumber"`
	TotalOccurrences int              `json:"totalOccurrences"`
	ScheduledDate    string           `json:"scheduledDate"`
	OriginalDate     string           `json:"originalDate"`
	Amount           *decimal.Decimal `json:"amount"`
	Currency         string           `json:"currency"`
	Status           string           `json:"status"`
	Version          int              `json:"version"`
	AssignedTo       *string          `json:"assignedTo"`
	Notes            *string          `json:"notes"`
	Overdue          bool             `json:"overdue"`
	Overridden       bool             `json:"overridden"`
	AllowedTargets   []string         `json:"allowedTargets,omitempty"`
}

type Summary struct {
	TotalEvents        int             `json:"totalEvents"`
	ServiceCount       int             `json:"serviceCount"`
	SparePartCount     int             `json:"sparePartCount"`
	BillingCount       int             `json:"billingCount"`
	TotalBillingAmount decimal.Decimal `json:"totalBillingAmount"`
	SpanDays           int             `json:"spanDays"`
}

type GenerateResult struct {
	ContractID     string  `json:"contractId"`
	Events         []Event `json:"events"`
	Summary        Summary `json:"summary"`
	UnlimitedLines []Line  `json:"unlimitedLines,omitempty"`
	Replayed       bool    `json:"replayed"`
}

type ContractSummary struct {
	ContractID   string  `json:"contractId"`
	AsOf         string  `json:"asOf"`
	Summary      Summary `json:"summary"`
	OverdueCount int     `json:"overdueCount"`
	Completed    int     `json:"completed"`
}

type TicketInfo struct {
	TicketID       string    `json:"ticketId"`
	TicketNumber   string    `json:"ticketNumber"`
	AssignedToName string    `json:"assignedToName"`
	EvidenceCount  int       `json:"evidenceCount"`
	EventCount     int       `json:"eventCount"`
	CompletedAt    time.Time `json:"completedAt"`
}

type TimelineGroup struct {
	Date         string      `json:"date"`
	Deliverables []Event     `json:"deliverables"`
	Billing      []Event     `json:"billing"`
	AllCompleted bool        `json:"allCompleted"`
	Ticket       *TicketInfo `json:"ticket,omitempty"`
}

type Ambiguity struct {
	Date      string   `json:"date"`
	TicketIDs []string `json:"ticketIds"`
	ChosenID  string   `json:"chosenId"`
}

type Timeline struct {
	ContractID  string          `json:"contractId"`
	AsOf        string          `json:"asOf"`
	Groups      []TimelineGroup `json:"groups"`
	Ambiguities []Ambiguity     `json:"ambiguities,omitempty"`
}

// Ticket is a completed service ticket recorded against a contract.
type Ticket struct {
	ID             string    `json:"id"`
	TicketNumber   string    `json:"ticketNumber,omitempty"`
	AssignedToName string    `json:"assignedToName,omitempty"`
	EvidenceCount  int       `json:"evidenceCount,omitempty"`
	CompletedAt    time.Time `json:"completedAt"`
	EventCount     int       `json:"eventCount,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// SchedulesClient
// ─────────────────────────────────────────────────────────────────────────────

// SchedulesClient covers the contract-scoped routes.
type SchedulesClient struct {
	client *Client
}

// Generate stores the schedule for contractID. An empty idempotencyKey is
// replaced by a random one so transport retries cannot double-generate.
func (s *SchedulesClient) Generate(ctx context.Context, contractID string, terms ContractTerms, idempotencyKey string) (*GenerateResult, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	var out GenerateResult
	err := s.client.do(ctx, http.MethodPost, "/contracts/"+url.PathEscape(contractID)+"/schedule",
		map[string]string{"Idempotency-Key": idempotencyKey}, terms, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvents returns events within [from, to]; empty bounds are open.
func (s *SchedulesClient) ListEvents(ctx context.Context, contractID, from, to string) ([]Event, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	path := "/contracts/" + url.PathEscape(contractID) + "/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Events []Event `json:"events"`
	}
	if err := s.client.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (s *SchedulesClient) Summary(ctx context.Context, contractID string) (*ContractSummary, error) {
	var out ContractSummary
	if err := s.client.get(ctx, "/contracts/"+url.PathEscape(contractID)+"/summary", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SchedulesClient) Timeline(ctx context.Context, contractID string) (*Timeline, error) {
	var out Timeline
	if err := s.client.get(ctx, "/contracts/"+url.PathEscape(contractID)+"/timeline", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SchedulesClient) RecordTicket(ctx context.Context, contractID string, t Ticket) error {
	return s.client.do(ctx, http.MethodPost, "/contracts/"+url.PathEscape(contractID)+"/tickets", nil, t, nil)
}

type Status struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Transition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Table is the active state machine of one event type.
type Table struct {
	EventType     string       `json:"eventType"`
	Statuses      []Status     `json:"statuses"`
	Transitions   []Transition `json:"transitions"`
	InitialStatus string       `json:"initialStatus"`
}

type OverdueReport struct {
	AsOf   string  `json:"asOf"`
	Events []Event `json:"events"`
}

func (s *SchedulesClient) Tables(ctx context.Context) ([]Table, error) {
	var out struct {
		Tables []Table `json:"tables"`
	}
	if err := s.client.get(ctx, "/lifecycle/tables", &out); err != nil {
		return nil, err
	}
	return out.Tables, nil
}

// Overdue returns the latest overdue report. limit 0 returns every event.
func (s *SchedulesClient) Overdue(ctx context.Context, limit int) (*OverdueReport, error) {
	var out OverdueReport
	if err := s.client.get(ctx, "/overdue?limit="+strconv.Itoa(limit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
