package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/application/scheduling"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/client"
)

// NewTablesCmd prints lifecycle status tables.
func NewTablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Lifecycle status tables",
	}

	var remote bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the status vocabulary and transitions of each event type",
		Long: `Print the status tables resolved from the loaded configuration, or with
--remote the tables the API server currently serves.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if remote {
				ctx, cancel := commandContext(cmd, cliCtx)
				defer cancel()
				tables, err := cliCtx.Client.Schedules().Tables(ctx)
				if err != nil {
					return err
				}
				return PrintResult(cmd, tableList(tables))
			}

			defs, err := scheduling.TableDefinitionsFromConfig(cliCtx.Config.Lifecycle.Tables)
			if err != nil {
				return err
			}
			out := make(tableList, len(defs))
			for i, d := range defs {
				t := client.Table{EventType: string(d.EventType), InitialStatus: d.Statuses[0].ID}
				for _, s := range d.Statuses {
					t.Statuses = append(t.Statuses, client.Status{ID: s.ID, Label: s.Label})
				}
				for _, tr := range d.Transitions {
					t.Transitions = append(t.Transitions, client.Transition{From: tr.From, To: tr.To})
				}
				out[i] = t
			}
			return PrintResult(cmd, out)
		},
	}
	show.Flags().BoolVar(&remote, "remote", false, "read the tables from the API server")

	cmd.AddCommand(show)
	return cmd
}

type tableList []client.Table

func (l tableList) TableHeaders() []string {
	return []string{"EVENT TYPE", "INITIAL", "STATUSES", "TRANSITIONS"}
}

func (l tableList) TableRows() [][]string {
	rows := make([][]string, len(l))
	for i, t := range l {
		statuses := make([]string, len(t.Statuses))
		for j, s := range t.Statuses {
			statuses[j] = s.ID
		}
		edges := make([]string, len(t.Transitions))
		for j, tr := range t.Transitions {
			edges[j] = tr.From + ">" + tr.To
		}
		rows[i] = []string{t.EventType, t.InitialStatus, strings.Join(statuses, ","), strings.Join(edges, " ")}
	}
	return rows
}

func (l tableList) String() string {
	var sb strings.Builder
	for _, t := range l {
		sb.WriteString(t.EventType + ":\n")
		for _, tr := range t.Transitions {
			sb.WriteString("  " + tr.From + " -> " + tr.To + "\n")
		}
	}
	return sb.String()
}
