package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/application/scheduling"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/config"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/lifecycle"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/database/memory"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// Views accepted by generate --view.
const (
	viewEvents  = "events"
	viewSummary = "summary"
	viewGroups  = "groups"
)

// NewGenerateCmd previews a schedule from a terms file without a server or
// database.
func NewGenerateCmd() *cobra.Command {
	var (
		termsPath  string
		contractID string
		view       string
		asOf       string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Preview a contract schedule offline",
		Long: `Generate the event schedule for the contract terms in a YAML or JSON file and
print it. Nothing is stored. Initial statuses come from the lifecycle tables in
the loaded configuration.`,
		Example: `  cnctl generate --terms contract.yaml
  cnctl generate --terms contract.yaml --view summary -o json
  cnctl generate --terms contract.yaml --view groups --as-of 2025-03-20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			switch view {
			case viewEvents, viewSummary, viewGroups:
			default:
				return errors.InvalidParam("unsupported view").WithDetail(view)
			}

			terms, err := readTerms(termsPath)
			if err != nil {
				return err
			}
			if contractID != "" {
				terms.ContractID = contractID
			}
			if terms.ContractID == "" {
				terms.ContractID = "preview"
			}

			now := time.Now
			if asOf != "" {
				d, err := schedule.ParseDate(asOf)
				if err != nil {
					return errors.InvalidParam("invalid --as-of date").WithDetail(asOf)
				}
				now = func() time.Time { return d.Time() }
			}

			svc, err := newPreviewService(cliCtx.Config, cliCtx.Logger, now)
			if err != nil {
				return err
			}
			res, err := svc.Preview(terms)
			if err != nil {
				return err
			}
			cliCtx.Logger.Debug("schedule previewed",
				logging.ContractID(terms.ContractID),
				logging.Int("events", len(res.Events)))

			switch view {
			case viewSummary:
				return PrintResult(cmd, summaryResult{res.Summary, len(res.UnlimitedLines)})
			case viewGroups:
				raw := make([]schedule.ContractEvent, len(res.Events))
				for i, v := range res.Events {
					raw[i] = v.ContractEvent
				}
				return PrintResult(cmd, groupsResult(schedule.GroupByDate(raw)))
			default:
				return PrintResult(cmd, eventViews(res.Events))
			}
		},
	}

	cmd.Flags().StringVarP(&termsPath, "terms", "f", "", "contract terms file (YAML or JSON)")
	cmd.Flags().StringVar(&contractID, "contract", "", "contract id, overrides the file's contractId")
	cmd.Flags().StringVar(&view, "view", viewEvents, "what to print (events, summary, groups)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "date used to flag overdue events (default: today)")
	_ = cmd.MarkFlagRequired("terms")
	return cmd
}

// readTerms decodes a terms file. JSON is valid YAML, so one decoder serves
// both.
func readTerms(path string) (schedule.ContractTerms, error) {
	var terms schedule.ContractTerms
	data, err := os.ReadFile(path)
	if err != nil {
		return terms, fmt.Errorf("read terms file: %w", err)
	}
	if err := yaml.Unmarshal(data, &terms); err != nil {
		return terms, errors.InvalidParam("invalid terms file").WithDetail(err.Error())
	}
	return terms, nil
}

// newPreviewService wires the scheduling service on throwaway in-memory
// stores with the configured lifecycle tables.
func newPreviewService(cfg *config.Config, logger logging.Logger, now func() time.Time) (*scheduling.Service, error) {
	defs, err := scheduling.TableDefinitionsFromConfig(cfg.Lifecycle.Tables)
	if err != nil {
		return nil, err
	}
	table, err := lifecycle.NewTable(defs)
	if err != nil {
		return nil, err
	}
	events := memory.NewEventStore()
	return scheduling.NewService(scheduling.Dependencies{
		Events:    events,
		Overrides: events,
		Tickets:   memory.NewTicketStore(),
		Tables:    lifecycle.NewRegistry(table, lifecycle.NewStaticStore(defs), logger),
		Logger:    logger,
	}, scheduling.WithClock(now))
}

// ─────────────────────────────────────────────────────────────────────────────
// Renderers
// ─────────────────────────────────────────────────────────────────────────────

type eventViews []schedule.EventView

func (e eventViews) TableHeaders() []string {
	return []string{"DATE", "TYPE", "LINE", "SEQ", "AMOUNT", "STATUS", "FLAGS"}
}

func (e eventViews) TableRows() [][]string {
	rows := make([][]string, len(e))
	for i, v := range e {
		amount := ""
		if v.Amount != nil {
			amount = v.Amount.StringFixed(2) + " " + v.Currency
		}
		rows[i] = []string{
			v.ScheduledDate.String(),
			string(v.EventType),
			v.LineID,
			strconv.Itoa(v.SequenceNumber) + "/" + strconv.Itoa(v.TotalOccurrences),
			amount,
			v.Status,
			viewFlags(v.Overdue, v.Overridden),
		}
	}
	return rows
}

func (e eventViews) String() string {
	var sb strings.Builder
	for _, row := range e.TableRows() {
		sb.WriteString(strings.TrimSpace(strings.Join(row, " ")))
		sb.WriteString("\n")
	}
	return sb.String()
}

func viewFlags(overdue, overridden bool) string {
	var flags []string
	if overdue {
		flags = append(flags, "overdue")
	}
	if overridden {
		flags = append(flags, "overridden")
	}
	return strings.Join(flags, ",")
}

type summaryResult struct {
	schedule.Summary
	UnlimitedLines int `json:"unlimitedLines"`
}

func (s summaryResult) TableHeaders() []string {
	return []string{"EVENTS", "SERVICE", "SPARE PARTS", "BILLING", "BILLED", "SPAN DAYS", "UNLIMITED LINES"}
}

func (s summaryResult) TableRows() [][]string {
	return [][]string{{
		strconv.Itoa(s.TotalEvents),
		strconv.Itoa(s.ServiceCount),
		strconv.Itoa(s.SparePartCount),
		strconv.Itoa(s.BillingCount),
		s.TotalBillingAmount.StringFixed(2),
		strconv.Itoa(s.SpanDays),
		strconv.Itoa(s.UnlimitedLines),
	}}
}

func (s summaryResult) String() string {
	return fmt.Sprintf("%d events (%d service, %d spare part, %d billing), billed %s over %d days\n",
		s.TotalEvents, s.ServiceCount, s.SparePartCount, s.BillingCount,
		s.TotalBillingAmount.StringFixed(2), s.SpanDays)
}

type groupsResult []schedule.DateGroup

func (g groupsResult) TableHeaders() []string {
	return []string{"DATE", "DELIVERABLES", "BILLING", "DONE"}
}

func (g groupsResult) TableRows() [][]string {
	rows := make([][]string, len(g))
	for i, grp := range g {
		done := "no"
		if grp.AllCompleted {
			done = "yes"
		}
		rows[i] = []string{
			grp.Date.String(),
			strconv.Itoa(len(grp.Deliverables)),
			strconv.Itoa(len(grp.Billing)),
			done,
		}
	}
	return rows
}

func (g groupsResult) String() string {
	var sb strings.Builder
	for _, grp := range g {
		fmt.Fprintf(&sb, "%s: %d deliverables, %d billing\n", grp.Date, len(grp.Deliverables), len(grp.Billing))
	}
	return sb.String()
}
