package schedule

import (
	"strings"

	"github.com/shopspring/decimal"
)

// EventType classifies a ContractEvent.
type EventType string

const (
	EventTypeService   EventType = "service"
	EventTypeSparePart EventType = "sparePart"
	EventTypeBilling   EventType = "billing"
)

// EventTypes lists every event type in rank order.
var EventTypes = []EventType{EventTypeService, EventTypeSparePart, EventTypeBilling}

// Rank is the tie-break order for events sharing a date.
func (t EventType) Rank() int {
	switch t {
	case EventTypeService:
		return 0
	case EventTypeSparePart:
		return 1
	case EventTypeBilling:
		return 2
	default:
		return 3
	}
}

func (t EventType) IsValid() bool {
	return t.Rank() < 3
}

func (t EventType) IsDeliverable() bool {
	return t == EventTypeService || t == EventTypeSparePart
}

// ParseEventType resolves s case-insensitively, so configuration keys that
// were lower-cased on the way in ("sparepart") still match.
func ParseEventType(s string) (EventType, bool) {
	for _, t := range EventTypes {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// LineKind is the kind of a contract line.
type LineKind string

const (
	LineKindService   LineKind = "service"
	LineKindSparePart LineKind = "sparePart"
	LineKindText      LineKind = "text"
	LineKindDocument  LineKind = "document"
)

// DeliverableType returns the event type a line of this kind expands into.
// Text and document lines have none.
func (k LineKind) DeliverableType() (EventType, bool) {
	switch k {
	case LineKindService:
		return EventTypeService, true
	case LineKindSparePart:
		return EventTypeSparePart, true
	default:
		return "", false
	}
}

func (k LineKind) IsValid() bool {
	switch k {
	case LineKindService, LineKindSparePart, LineKindText, LineKindDocument:
		return true
	}
	return false
}

// Cycle drives deliverable spacing. Prepaid and postpaid are billing hints
// that leave deliverables evenly distributed over the contract period.
type Cycle string

const (
	CyclePrepaid     Cycle = "prepaid"
	CyclePostpaid    Cycle = "postpaid"
	CycleMonthly     Cycle = "monthly"
	CycleFortnightly Cycle = "fortnightly"
	CycleQuarterly   Cycle = "quarterly"
	CycleCustom      Cycle = "custom"
)

func (c Cycle) IsValid() bool {
	switch c {
	case CyclePrepaid, CyclePostpaid, CycleMonthly, CycleFortnightly, CycleQuarterly, CycleCustom:
		return true
	}
	return false
}

// DurationUnit is the unit of ContractTerms.DurationValue.
type DurationUnit string

const (
	DurationDays   DurationUnit = "days"
	DurationMonths DurationUnit = "months"
	DurationYears  DurationUnit = "years"
)

// PaymentMode selects how billing events are derived.
type PaymentMode string

const (
	PaymentModePrepaid PaymentMode = "prepaid"
	PaymentModeEMI     PaymentMode = "emi"
	PaymentModeDefined PaymentMode = "defined"
)

// LinePaymentType is the per-line billing choice under PaymentModeDefined.
type LinePaymentType string

const (
	LinePaymentPrepaid  LinePaymentType = "prepaid"
	LinePaymentPostpaid LinePaymentType = "postpaid"
)

// BillingCycleMode controls whether same-date billing events are merged.
type BillingCycleMode string

const (
	BillingCycleUnified BillingCycleMode = "unified"
	BillingCycleMixed   BillingCycleMode = "mixed"
)

// Line is one configured item of a contract.
type Line struct {
	ID              string          `json:"id" yaml:"id"`
	Kind            LineKind        `json:"kind" yaml:"kind"`
	Quantity        int             `json:"quantity" yaml:"quantity"`
	Unlimited       bool            `json:"unlimited" yaml:"unlimited"`
	UnitPrice       decimal.Decimal `json:"unitPrice" yaml:"unitPrice"`
	Cycle           Cycle           `json:"cycle" yaml:"cycle"`
	CustomCycleDays int             `json:"customCycleDays,omitempty" yaml:"customCycleDays,omitempty"`
}

// Value is the line's full value, unit price times quantity.
func (l Line) Value() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ContractTerms is the commercial input of schedule generation.
type ContractTerms struct {
	ContractID          string                     `json:"contractId" yaml:"contractId"`
	StartDate           Date                       `json:"startDate" yaml:"startDate"`
	DurationValue       int                        `json:"durationValue" yaml:"durationValue"`
	DurationUnit        DurationUnit               `json:"durationUnit" yaml:"durationUnit"`
	SelectedLines       []Line                     `json:"selectedLines" yaml:"selectedLines"`
	PaymentMode         PaymentMode                `json:"paymentMode" yaml:"paymentMode"`
	EmiInstallmentCount int                        `json:"emiInstallmentCount,omitempty" yaml:"emiInstallmentCount,omitempty"`
	PerLinePaymentType  map[string]LinePaymentType `json:"perLinePaymentType,omitempty" yaml:"perLinePaymentType,omitempty"`
	BillingCycleMode    BillingCycleMode           `json:"billingCycleMode,omitempty" yaml:"billingCycleMode,omitempty"`
	GrandTotal          decimal.Decimal            `json:"grandTotal" yaml:"grandTotal"`
	Currency            string                     `json:"currency" yaml:"currency"`
}

// EndDate is StartDate plus the contract duration, calendar-aware.
func (t ContractTerms) EndDate() Date {
	switch t.DurationUnit {
	case DurationMonths:
		return t.StartDate.AddMonths(t.DurationValue)
	case DurationYears:
		return t.StartDate.AddYears(t.DurationValue)
	default:
		return t.StartDate.AddDays(t.DurationValue)
	}
}

// UnlimitedLines returns the lines that are surfaced as continuous service
// rather than dated events.
func (t ContractTerms) UnlimitedLines() []Line {
	var out []Line
	for _, l := range t.SelectedLines {
		if l.Unlimited {
			out = append(out, l)
		}
	}
	return out
}
