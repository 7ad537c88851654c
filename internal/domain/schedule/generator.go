package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// eventNamespace seeds deterministic event ids.
var eventNamespace = uuid.MustParse("6f1c2a8e-4b7d-5e39-9a0c-3d2f81b4c5e7")

// zeroDecimalCurrencies bill in whole units.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true, "KRW": true, "VND": true, "CLP": true, "ISK": true, "UGX": true,
}

// currencyScale is the number of minor-unit digits for currency.
func currencyScale(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// DefaultInitialStatuses are used when no status table is supplied.
var DefaultInitialStatuses = map[EventType]string{
	EventTypeService:   "scheduled",
	EventTypeSparePart: "scheduled",
	EventTypeBilling:   "pending",
}

// Generator expands ContractTerms into ContractEvents. It holds no mutable
// state and is safe for concurrent use.
type Generator struct {
	initialStatus map[EventType]string
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithInitialStatuses sets the status new events start in, per event type.
func WithInitialStatuses(statuses map[EventType]string) GeneratorOption {
	return func(g *Generator) {
		for t, s := range statuses {
			if s != "" {
				g.initialStatus[t] = s
			}
		}
	}
}

// NewGenerator returns a Generator.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{initialStatus: make(map[EventType]string, len(DefaultInitialStatuses))}
	for t, s := range DefaultInitialStatuses {
		g.initialStatus[t] = s
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate is NewGenerator().Generate(terms).
func Generate(terms ContractTerms) ([]ContractEvent, error) {
	return NewGenerator().Generate(terms)
}

// Generate returns every dated event implied by terms in Sort order. The
// same terms always yield the same events, ids included. Invalid terms yield
// a configuration error and no events.
func (g *Generator) Generate(terms ContractTerms) ([]ContractEvent, error) {
	if err := ValidateTerms(terms); err != nil {
		return nil, err
	}

	start := terms.StartDate
	end := terms.EndDate()

	var events []ContractEvent
	occurrences := make(map[string][]Date, len(terms.SelectedLines))

	for _, line := range terms.SelectedLines {
		if line.Unlimited {
			continue
		}
		eventType, ok := line.Kind.DeliverableType()
		if !ok {
			continue
		}
		dates := deliverableDates(line, start, end)
		occurrences[line.ID] = dates
		for _, d := range dates {
			events = append(events, g.newEvent(terms, line.ID, eventType, d, nil))
		}
	}

	events = append(events, g.billingEvents(terms, occurrences)...)

	numberSeries(events)
	for i := range events {
		events[i].ID = eventID(terms.ContractID, events[i])
	}
	Sort(events)
	return events, nil
}

func (g *Generator) newEvent(terms ContractTerms, lineID string, t EventType, d Date, amount *decimal.Decimal) ContractEvent {
	return ContractEvent{
		ContractID:    terms.ContractID,
		LineID:        lineID,
		EventType:     t,
		ScheduledDate: d,
		OriginalDate:  d,
		Amount:        amount,
		Currency:      terms.Currency,
		Status:        g.initialStatus[t],
		Version:       1,
	}
}

// deliverableDates spaces line.Quantity occurrences from start by the line's
// cycle. Prepaid and postpaid lines spread evenly over [start, end].
func deliverableDates(line Line, start, end Date) []Date {
	q := line.Quantity
	if q <= 0 {
		return nil
	}
	dates := make([]Date, q)
	for i := 0; i < q; i++ {
		switch line.Cycle {
		case CycleMonthly:
			dates[i] = start.AddMonths(i)
		case CycleQuarterly:
			dates[i] = start.AddMonths(3 * i)
		case CycleFortnightly:
			dates[i] = start.AddDays(14 * i)
		case CycleCustom:
			dates[i] = start.AddDays(line.CustomCycleDays * i)
		default:
			if q == 1 {
				dates[i] = start
				continue
			}
			span := start.DaysUntil(end)
			dates[i] = start.AddDays(i * span / (q - 1))
		}
	}
	return dates
}

func (g *Generator) billingEvents(terms ContractTerms, occurrences map[string][]Date) []ContractEvent {
	switch terms.PaymentMode {
	case PaymentModePrepaid:
		amount := terms.GrandTotal
		return []ContractEvent{g.newEvent(terms, "", EventTypeBilling, terms.StartDate, &amount)}
	case PaymentModeEMI:
		return g.installments(terms)
	default:
		return g.definedBilling(terms, occurrences)
	}
}

// installments splits GrandTotal into monthly parts rounded down to the
// currency's minor unit; the last part absorbs the remainder.
func (g *Generator) installments(terms ContractTerms) []ContractEvent {
	n := terms.EmiInstallmentCount
	scale := currencyScale(terms.Currency)
	part := terms.GrandTotal.Div(decimal.NewFromInt(int64(n))).RoundFloor(scale)
	last := terms.GrandTotal.Sub(part.Mul(decimal.NewFromInt(int64(n - 1))))

	out := make([]ContractEvent, n)
	for i := 0; i < n; i++ {
		amount := part
		if i == n-1 {
			amount = last
		}
		out[i] = g.newEvent(terms, "", EventTypeBilling, terms.StartDate.AddMonths(i), &amount)
	}
	return out
}

func (g *Generator) definedBilling(terms ContractTerms, occurrences map[string][]Date) []ContractEvent {
	var out []ContractEvent
	for _, line := range terms.SelectedLines {
		if line.Unlimited || line.Quantity <= 0 {
			continue
		}
		switch linePaymentType(terms, line) {
		case LinePaymentPostpaid:
			dates, deliverable := occurrences[line.ID]
			if !deliverable {
				// nothing to follow; the whole line falls due when the term ends
				amount := line.Value()
				out = append(out, g.newEvent(terms, line.ID, EventTypeBilling, terms.EndDate(), &amount))
				continue
			}
			for _, d := range dates {
				amount := line.UnitPrice
				out = append(out, g.newEvent(terms, line.ID, EventTypeBilling, d, &amount))
			}
		default:
			amount := line.Value()
			out = append(out, g.newEvent(terms, line.ID, EventTypeBilling, terms.StartDate, &amount))
		}
	}
	if terms.BillingCycleMode == BillingCycleUnified {
		out = g.mergeByDate(terms, out)
	}
	return out
}

// linePaymentType resolves the per-line choice, falling back to the line's
// cycle hint and then to prepaid.
func linePaymentType(terms ContractTerms, line Line) LinePaymentType {
	if pt, ok := terms.PerLinePaymentType[line.ID]; ok {
		return pt
	}
	if line.Cycle == CyclePostpaid {
		return LinePaymentPostpaid
	}
	return LinePaymentPrepaid
}

// mergeByDate collapses billing events sharing a date into one contract-level
// event carrying the summed amount.
func (g *Generator) mergeByDate(terms ContractTerms, billing []ContractEvent) []ContractEvent {
	totals := make(map[Date]decimal.Decimal)
	var dates []Date
	for _, e := range billing {
		sum, seen := totals[e.ScheduledDate]
		if !seen {
			dates = append(dates, e.ScheduledDate)
			sum = decimal.Zero
		}
		totals[e.ScheduledDate] = sum.Add(*e.Amount)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]ContractEvent, len(dates))
	for i, d := range dates {
		amount := totals[d]
		out[i] = g.newEvent(terms, "", EventTypeBilling, d, &amount)
	}
	return out
}

// numberSeries assigns 1-based sequence numbers per (lineId, eventType) in
// chronological order, and the series size as TotalOccurrences.
func numberSeries(events []ContractEvent) {
	type seriesKey struct {
		lineID    string
		eventType EventType
	}
	series := make(map[seriesKey][]int)
	for i, e := range events {
		k := seriesKey{e.LineID, e.EventType}
		series[k] = append(series[k], i)
	}
	for _, idx := range series {
		sort.SliceStable(idx, func(a, b int) bool {
			return events[idx[a]].OriginalDate.Before(events[idx[b]].OriginalDate)
		})
		for n, i := range idx {
			events[i].SequenceNumber = n + 1
			events[i].TotalOccurrences = len(idx)
		}
	}
}

func eventID(contractID string, e ContractEvent) string {
	name := fmt.Sprintf("%s/%s/%s/%d", contractID, e.LineID, e.EventType, e.SequenceNumber)
	return uuid.NewSHA1(eventNamespace, []byte(name)).String()
}

// ValidateTerms rejects terms that cannot be expanded.
func ValidateTerms(terms ContractTerms) error {
	if terms.StartDate.IsZero() {
		return NewConfigurationError("startDate is required")
	}
	if terms.DurationValue <= 0 {
		return NewConfigurationError("durationValue must be positive, got %d", terms.DurationValue)
	}
	switch terms.DurationUnit {
	case DurationDays, DurationMonths, DurationYears:
	default:
		return NewConfigurationError("durationUnit %q is invalid; expected days|months|years", terms.DurationUnit)
	}
	if terms.GrandTotal.IsNegative() {
		return NewConfigurationError("grandTotal must not be negative")
	}

	switch terms.PaymentMode {
	case PaymentModePrepaid:
	case PaymentModeEMI:
		if terms.EmiInstallmentCount <= 0 {
			return NewConfigurationError("emiInstallmentCount must be positive, got %d", terms.EmiInstallmentCount)
		}
	case PaymentModeDefined:
		switch terms.BillingCycleMode {
		case "", BillingCycleUnified, BillingCycleMixed:
		default:
			return NewConfigurationError("billingCycleMode %q is invalid; expected unified|mixed", terms.BillingCycleMode)
		}
		for lineID, pt := range terms.PerLinePaymentType {
			if pt != LinePaymentPrepaid && pt != LinePaymentPostpaid {
				return NewConfigurationError("perLinePaymentType[%s] %q is invalid; expected prepaid|postpaid", lineID, pt)
			}
		}
	default:
		return NewConfigurationError("paymentMode %q is invalid; expected prepaid|emi|defined", terms.PaymentMode)
	}

	seen := make(map[string]bool, len(terms.SelectedLines))
	for i, line := range terms.SelectedLines {
		if line.ID == "" {
			return NewConfigurationError("selectedLines[%d]: id is required", i)
		}
		if seen[line.ID] {
			return NewConfigurationError("selectedLines[%d]: duplicate line id %q", i, line.ID)
		}
		seen[line.ID] = true
		if !line.Kind.IsValid() {
			return NewConfigurationError("line %s: kind %q is invalid", line.ID, line.Kind)
		}
		if line.UnitPrice.IsNegative() {
			return NewConfigurationError("line %s: unitPrice must not be negative", line.ID)
		}
		if line.Unlimited {
			continue
		}
		if line.Quantity < 0 {
			return NewConfigurationError("line %s: quantity must not be negative", line.ID)
		}
		if line.Cycle != "" && !line.Cycle.IsValid() {
			return NewConfigurationError("line %s: cycle %q is invalid", line.ID, line.Cycle)
		}
		if line.Cycle == CycleCustom && line.CustomCycleDays <= 0 {
			return NewConfigurationError("line %s: customCycleDays is required for a custom cycle", line.ID)
		}
	}
	return nil
}
