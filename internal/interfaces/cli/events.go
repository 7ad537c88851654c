package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/client"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// NewEventsCmd groups the commands that read and change stored events
// through the API server.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect and update scheduled events",
	}
	cmd.AddCommand(
		newEventsListCmd(),
		newEventsTransitionCmd(),
		newEventsOverrideCmd(),
		newEventsResetCmd(),
	)
	return cmd
}

func newEventsListCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "list <contract-id>",
		Short: "List a contract's events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, d := range []string{from, to} {
				if d == "" {
					continue
				}
				if _, err := schedule.ParseDate(d); err != nil {
					return errors.InvalidParam("invalid date").WithDetail(d)
				}
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			events, err := cliCtx.Client.Schedules().ListEvents(ctx, args[0], from, to)
			if err != nil {
				return err
			}
			return PrintResult(cmd, remoteEvents(events))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "earliest scheduled date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "latest scheduled date (YYYY-MM-DD)")
	return cmd
}

func newEventsTransitionCmd() *cobra.Command {
	var (
		toStatus        string
		expectedVersion int
		assignedTo      string
		notes           string
	)

	cmd := &cobra.Command{
		Use:   "transition <event-id>",
		Short: "Move an event to another status",
		Long: `Move an event to another status. --expected-version must equal the event's
current version; a conflict means someone else changed it and the event should
be reloaded before retrying.`,
		Example: "  cnctl events transition 6f1c... --to in_progress --expected-version 1",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if toStatus == "" {
				return errors.InvalidParam("--to is required")
			}
			if expectedVersion < 1 {
				return errors.InvalidParam("--expected-version must be >= 1").WithDetail(strconv.Itoa(expectedVersion))
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			in := client.TransitionInput{ExpectedVersion: expectedVersion, ToStatus: toStatus}
			if cmd.Flags().Changed("assigned-to") {
				in.AssignedTo = &assignedTo
			}
			if cmd.Flags().Changed("notes") {
				in.Notes = &notes
			}
			res, err := cliCtx.Client.Events().Transition(ctx, args[0], in)
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == OutputJSON {
				return PrintResult(cmd, res)
			}
			PrintSuccess(cmd, res.Event.ID+": "+res.PreviousStatus+" -> "+res.Event.Status+" (version "+strconv.Itoa(res.NewVersion)+")")
			return nil
		},
	}
	cmd.Flags().StringVar(&toStatus, "to", "", "target status id")
	cmd.Flags().IntVar(&expectedVersion, "expected-version", 0, "version the event is expected to be at")
	cmd.Flags().StringVar(&assignedTo, "assigned-to", "", "assignee recorded with the change")
	cmd.Flags().StringVar(&notes, "notes", "", "notes recorded with the change")
	return cmd
}

func newEventsOverrideCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "override <event-id>",
		Short: "Show an event on another date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := schedule.ParseDate(date); err != nil {
				return errors.InvalidParam("invalid --date").WithDetail(date)
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			ev, err := cliCtx.Client.Events().Override(ctx, args[0], date)
			if err != nil {
				return err
			}
			return PrintResult(cmd, remoteEvents{*ev})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "display date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newEventsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <event-id>",
		Short: "Drop an event's date override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			ev, err := cliCtx.Client.Events().Reset(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, remoteEvents{*ev})
		},
	}
}

// remoteEvents renders events returned by the API.
type remoteEvents []client.Event

func (e remoteEvents) TableHeaders() []string {
	return []string{"ID", "DATE", "TYPE", "LINE", "SEQ", "AMOUNT", "STATUS", "VERSION", "FLAGS"}
}

func (e remoteEvents) TableRows() [][]string {
	rows := make([][]string, len(e))
	for i, v := range e {
		amount := ""
		if v.Amount != nil {
			amount = v.Amount.StringFixed(2) + " " + v.Currency
		}
		rows[i] = []string{
			v.ID,
			v.ScheduledDate,
			v.EventType,
			v.LineID,
			strconv.Itoa(v.SequenceNumber) + "/" + strconv.Itoa(v.TotalOccurrences),
			amount,
			v.Status,
			strconv.Itoa(v.Version),
			viewFlags(v.Overdue, v.Overridden),
		}
	}
	return rows
}

func (e remoteEvents) String() string {
	var sb strings.Builder
	for _, row := range e.TableRows() {
		sb.WriteString(strings.TrimSpace(strings.Join(row, " ")))
		sb.WriteString("\n")
	}
	return sb.String()
}
