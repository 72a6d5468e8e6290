package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"
	"github.com/vietddude/trendcore/internal/core/config"
	"github.com/vietddude/trendcore/internal/metrics"
)

const defaultConfigPath = "config.yaml"

// options is the state shared by every command of one invocation.
type options struct {
	cfgPath     string
	debug       bool
	metricsAddr string
	metricsDump bool
	cfg         *config.AppConfig
	metrics     *metrics.Server
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the trendcore command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "trendcore",
		Short:        "Trend research pipeline",
		Long:         `trendcore fetches trend analyses with retries and caching, tracks workflow progress and normalizes trend export files.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.teardown(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgPath, "config", defaultConfigPath, "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics at this address while the command runs")
	rootCmd.PersistentFlags().BoolVar(&opts.metricsDump, "metrics-dump", false, "print collected metrics when the command finishes")

	rootCmd.AddCommand(
		newIngestCmd(opts),
		newAnalyzeCmd(opts),
		newWorkflowsCmd(),
		newPoliciesCmd(opts),
	)
	return rootCmd
}

func (o *options) setup(cmd *cobra.Command) error {
	_ = godotenv.Load()

	// Load Configuration
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		return err
	}

	// Setup logging
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		slogLevel = slog.LevelInfo
	}
	if o.debug {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})

	o.cfg = cfg

	if o.metricsAddr != "" {
		srv := metrics.NewServer(o.metricsAddr)
		if err := srv.Start(); err != nil {
			return err
		}
		o.metrics = srv
		slog.Info("Serving metrics", "addr", srv.Addr(), "path", "/metrics")
	}
	return nil
}

func (o *options) teardown(cmd *cobra.Command) error {
	if o.metricsDump {
		if err := metrics.Dump(cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	if o.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.metrics.Stop(ctx); err != nil {
			return err
		}
		o.metrics = nil
	}
	return nil
}

// loadConfig reads the config file. Without an explicit --config, a missing
// default file means built-in defaults.
func (o *options) loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	cfg, err := config.Load(o.cfgPath)
	if err != nil && errors.Is(err, fs.ErrNotExist) && !cmd.Flag("config").Changed {
		return config.Default(), nil
	}
	return cfg, err
}
