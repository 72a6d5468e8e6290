package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/vietddude/trendcore/internal/workflow"
)

func newWorkflowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "List workflow kinds with their steps and expected duration",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Workflow", "#", "Step", "Timeout"})
			for _, def := range workflow.Definitions() {
				for i, label := range def.Steps {
					row := table.Row{"", i + 1, label, ""}
					if i == 0 {
						row[0] = def.Kind
						row[3] = def.Timeout
					}
					t.AppendRow(row)
				}
				t.AppendSeparator()
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
		},
	}
}
