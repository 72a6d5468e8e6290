package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/vietddude/trendcore/internal/core/domain"
	"github.com/vietddude/trendcore/internal/ingest"
)

func newIngestCmd(opts *options) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Parse trend export files and show what was detected",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]ingest.File, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				files = append(files, ingest.File{Name: filepath.Base(path), Content: string(data)})
			}

			in := ingest.New(opts.cfg.Ingest, slog.Default())
			batch, err := in.ParseBatch(cmd.Context(), subject, files)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"File", "Kind", "Trend", "Rows", "Columns", "Flags", "Error"})
			for _, o := range batch.Outcomes {
				if o.Err != nil {
					t.AppendRow(table.Row{o.File, "-", "-", "-", "-", "-", o.Err.Error()})
					continue
				}
				s := o.Export.Summary
				t.AppendRow(table.Row{o.File, o.Export.Kind, yesNo(o.Export.Kind.IsTrend()), s.TotalRows, len(s.Columns), summaryFlags(s), ""})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()

			lib := ingest.NewLibrary()
			lib.Merge(batch)
			exports := lib.Exports(subject)

			kinds := table.NewWriter()
			kinds.SetOutputMirror(cmd.OutOrStdout())
			kinds.SetTitle(subject)
			kinds.AppendHeader(table.Row{"Kind", "File", "Rows"})
			for _, kind := range domain.ExportKinds {
				if e, ok := exports[kind]; ok {
					kinds.AppendRow(table.Row{kind, e.Filename, e.Summary.TotalRows})
				}
			}
			kinds.SetStyle(table.StyleRounded)
			kinds.Render()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d export(s), %d failure(s)\n",
				subject, len(exports), len(batch.Failures))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "default", "topic the files belong to")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func summaryFlags(s domain.ExportSummary) string {
	var flags []string
	if s.HasInterest {
		flags = append(flags, "interest")
	}
	if s.HasRegion {
		flags = append(flags, "region")
	}
	if s.HasTopic {
		flags = append(flags, "topic")
	}
	if s.HasQuery {
		flags = append(flags, "query")
	}
	return strings.Join(flags, ",")
}
