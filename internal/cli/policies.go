package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/vietddude/trendcore/internal/core/domain"
)

func newPoliciesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "Show the effective retry policy for each workflow kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policies, err := opts.cfg.RetryPolicies()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Workflow", "Max retries", "Base delay", "Max backoff"})
			for _, kind := range domain.WorkflowKinds {
				p := policies.For(kind)
				t.AppendRow(table.Row{kind, p.MaxRetries, p.BaseDelay, p.MaxTotalDelay()})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}
}
