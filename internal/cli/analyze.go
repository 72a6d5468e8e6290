package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/vietddude/trendcore/internal/cache"
	"github.com/vietddude/trendcore/internal/control"
	"github.com/vietddude/trendcore/internal/core/domain"
	"github.com/vietddude/trendcore/internal/infra/remote"
	"github.com/vietddude/trendcore/internal/retry"
	"github.com/vietddude/trendcore/internal/workflow"
)

func newAnalyzeCmd(opts *options) *cobra.Command {
	var (
		kindName string
		req      control.Request
		extra    string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a workflow against the analysis API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseWorkflowKind(kindName)
			if err != nil {
				return err
			}
			if extra != "" {
				var payload any
				if err := json.Unmarshal([]byte(extra), &payload); err != nil {
					return fmt.Errorf("invalid --options: %w", err)
				}
				req.Payload = payload
			}

			runner, err := newRunner(opts, kind)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, runErr := runner.Run(ctx, req)
			printSteps(cmd, runner.Manager())
			if runErr != nil {
				return runErr
			}
			return printResult(cmd, res)
		},
	}

	cmd.Flags().StringVar(&kindName, "kind", string(domain.WorkflowTrendAnalysis), "workflow kind")
	cmd.Flags().StringVar(&req.Endpoint, "endpoint", "", "API endpoint path, e.g. /trends/analyze")
	cmd.Flags().StringArrayVar(&req.Subtopics, "subtopic", nil, "subtopic to analyze (repeatable)")
	cmd.Flags().StringVar(&req.Location, "location", "", "location code, e.g. US")
	cmd.Flags().StringVar(&req.TimeRange, "time-range", "", "time range, e.g. \"today 12-m\"")
	cmd.Flags().StringVar(&extra, "options", "", "extra JSON options sent with the request")
	_ = cmd.MarkFlagRequired("endpoint")
	return cmd
}

func newRunner(opts *options, kind domain.WorkflowKind) (*control.Runner, error) {
	cfg := opts.cfg

	policies, err := cfg.RetryPolicies()
	if err != nil {
		return nil, err
	}
	manager, err := workflow.NewManager(kind)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	executor := retry.NewExecutor(policies,
		retry.WithMaxJitter(cfg.Retry.MaxJitter),
		retry.WithLogger(logger),
	)
	client := remote.NewClient(cfg.Remote, logger)

	return control.NewRunner(
		control.Config{
			StaleAfter:     cfg.Cache.StaleAfter,
			EnforceTimeout: cfg.Workflow.EnforceTimeout,
		},
		manager,
		cache.New(),
		executor,
		client,
		logger,
	), nil
}

func printSteps(cmd *cobra.Command, m *workflow.Manager) {
	snap := m.Snapshot()

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetTitle(fmt.Sprintf("%s: %s (%d%%)", snap.Kind, snap.State, snap.Progress))
	t.AppendHeader(table.Row{"#", "Step", "Status", "Error"})
	for _, s := range snap.Steps {
		errText := ""
		if s.Err != nil {
			errText = s.Err.Error()
		}
		t.AppendRow(table.Row{s.Index + 1, s.Label, s.Status, errText})
	}
	t.SetCaption(workflow.StateDescription(snap.State))
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func printResult(cmd *cobra.Command, res *control.Result) error {
	out := cmd.OutOrStdout()

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendRow(table.Row{"Cache key", res.Key})
	t.AppendRow(table.Row{"From cache", res.FromCache})
	t.AppendRow(table.Row{"Stale", res.Stale})
	t.AppendRow(table.Row{"Fetched at", res.FetchedAt.Format("2006-01-02 15:04:05")})
	t.SetStyle(table.StyleRounded)
	t.Render()

	body, err := json.MarshalIndent(res.Payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(out, string(body))
	return err
}

