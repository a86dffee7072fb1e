package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/koltyakov/pgindexhealth/internal/analyze"
	"github.com/koltyakov/pgindexhealth/internal/check"
	"github.com/koltyakov/pgindexhealth/internal/collect"
	"github.com/koltyakov/pgindexhealth/internal/config"
	"github.com/koltyakov/pgindexhealth/internal/connection"
	"github.com/koltyakov/pgindexhealth/internal/diagnostic"
	"github.com/koltyakov/pgindexhealth/internal/exclusion"
	"github.com/koltyakov/pgindexhealth/internal/logging"
	"github.com/koltyakov/pgindexhealth/internal/report"
	"github.com/koltyakov/pgindexhealth/internal/stats"
)

// clusterHandle is an open set of member connections.
type clusterHandle interface {
	check.HostSource
	Close()
}

// openCluster creates one pool per host of cfg.URL. Tests replace it.
var openCluster = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (clusterHandle, error) {
	return connection.Open(ctx, cfg.URL, cfg.PoolOptions(), logger)
}

// globalFlags are shared by every command that talks to a database.
type globalFlags struct {
	configPath string
	url        string
	schema     string
	timeout    time.Duration
	logLevel   string
}

// checkFlags are the check command's report options.
type checkFlags struct {
	only     []string
	format   string
	output   string
	suppress string
	prompt   bool
	open     bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "pgindexhealth",
		Short: "Index and schema health checks for PostgreSQL clusters",
		Long: `pgindexhealth connects to every host of a multi-host connection string,
resolves which host is the primary, and runs index and schema diagnostics
on the primary or across all replicas depending on the diagnostic.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Path to a YAML config file")
	pf.StringVar(&g.url, "url", "", "Postgres connection string, may list several hosts (defaults to PGURL or DATABASE_URL)")
	pf.StringVarP(&g.schema, "schema", "S", "", "Schema to inspect (default public)")
	pf.DurationVar(&g.timeout, "timeout", 0, "Overall timeout for database operations (default 30s)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newCheckCmd(g),
		newHostsCmd(g),
		newJoinCmd(),
		newTopologyCmd(g),
		newStatsCmd(g),
		newListCmd(),
	)
	return root
}

// loadConfig reads the config file and environment, then applies flags that
// were set explicitly. A positional argument is accepted as the URL.
func loadConfig(cmd *cobra.Command, g *globalFlags, args []string) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	cfg.URL = firstNonEmpty(g.url, firstArg(args), cfg.URL)
	if cmd.Flags().Changed("schema") {
		cfg.Schema = g.schema
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = g.timeout
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// prepare loads and validates config and builds the logger.
func prepare(cmd *cobra.Command, g *globalFlags, args []string, apply func(*config.Config)) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd, g, args)
	if err != nil {
		return nil, nil, err
	}
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	f := &checkFlags{}
	cmd := &cobra.Command{
		Use:   "check [url]",
		Short: "Run diagnostics and write a report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := prepare(cmd, g, args, func(cfg *config.Config) {
				if cmd.Flags().Changed("only") {
					cfg.Only = f.only
				}
				if cmd.Flags().Changed("format") {
					cfg.Report.Format = strings.ToLower(f.format)
				}
				if cmd.Flags().Changed("out") {
					cfg.Report.Output = f.output
				}
				if cmd.Flags().Changed("suppress") {
					cfg.Report.Suppress = splitCSV(f.suppress)
				}
				if cmd.Flags().Changed("prompt") {
					cfg.Report.Prompt = f.prompt
				}
				if cmd.Flags().Changed("open") {
					cfg.Report.Open = f.open
				}
			})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runCheck(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVar(&f.only, "only", nil, "Comma-separated diagnostics to run (default all, see 'list')")
	fl.StringVarP(&f.format, "format", "f", report.FormatConsole, "Report format: console, html, json, yaml")
	fl.StringVarP(&f.output, "out", "o", "", "Output file path, '-' for stdout (supports {ts} -> 2006-01-02_1504)")
	fl.StringVar(&f.suppress, "suppress", "", "Comma-separated finding codes to suppress")
	fl.BoolVar(&f.prompt, "prompt", false, "Generate an LLM prompt sidecar (.prompt.txt) next to the report")
	fl.BoolVar(&f.open, "open", false, "Open an HTML report after generation")
	return cmd
}

func selectDiagnostics(only []string) ([]diagnostic.ID, error) {
	if len(only) == 0 {
		return diagnostic.AllIDs(), nil
	}
	seen := map[diagnostic.ID]struct{}{}
	ids := make([]diagnostic.ID, 0, len(only))
	for _, s := range only {
		id, err := diagnostic.ParseID(s)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// WORKFLOW:
//  1. Open one pool per host
//  2. Collect server context for the report
//  3. Run each selected diagnostic, retrying topology failures
//  4. Analyze results and filter suppressed codes
//  5. Write the report (and optional prompt sidecar)
func runCheck(ctx context.Context, out io.Writer, cfg *config.Config, logger *zap.Logger) error {
	ids, err := selectDiagnostics(cfg.Only)
	if err != nil {
		return err
	}
	sc, err := cfg.SchemaContext()
	if err != nil {
		return err
	}
	filter := exclusion.Build(cfg.Exclusions, sc)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()

	cluster, err := openCluster(ctx, cfg, logger)
	if err != nil {
		return withCode(exitCheckError, err)
	}
	defer cluster.Close()

	o := check.NewOrchestrator(cluster,
		check.WithLogger(logger),
		check.WithCallTimeout(cfg.CallTimeout),
	)

	var server collect.Result
	topo, err := retryTopology(ctx, o, cfg.Retry, logger)
	if err != nil {
		logger.Warn("server context unavailable", zap.Error(err))
	} else {
		server = collect.Run(ctx, topo, collect.Config{}, logger)
	}

	results := make([]check.Result, 0, len(ids))
	failed := 0
	for _, id := range ids {
		res := evaluateWithRetry(ctx, o, id, sc, filter, cfg.Retry, logger)
		if res.Failed() {
			failed++
		}
		results = append(results, res)
	}

	// Check if context was cancelled during the run
	if ctx.Err() != nil {
		return withCode(exitCheckError, fmt.Errorf("operation timed out after %v", cfg.Timeout))
	}

	analysis := analyze.Run(results, server, time.Now())
	if len(cfg.Report.Suppress) > 0 {
		analysis = analyze.Filter(analysis, parseSuppressedSet(strings.Join(cfg.Report.Suppress, ",")))
	}

	meta := report.NewMeta(version, sc.Schema, start)
	meta.Duration = time.Since(start)
	rep := report.Build(meta, server, results, analysis)

	outPath := resolveOutputPath(cfg.Report.Output, cfg.Report.Format, start)
	written, err := report.Write(out, cfg.Report.Format, outPath, rep)
	if err != nil {
		return withCode(exitReportError, err)
	}
	if written != report.Stdout {
		fmt.Fprintf(out, "Report written to %s\n", written)
	}

	if cfg.Report.Prompt {
		promptPath, err := report.WritePrompt(written, rep)
		if err != nil {
			// Continue execution - prompt is supplementary
			logger.Warn("failed to write prompt", zap.Error(err))
		} else if promptPath != "" {
			fmt.Fprintf(out, "LLM prompt written to %s\n", promptPath)
		}
	}

	if cfg.Report.Open && cfg.Report.Format == report.FormatHTML && written != report.Stdout {
		if err := openReport(written); err != nil {
			// Non-fatal error - report was generated successfully
			logger.Warn("failed to open report", zap.Error(err))
		}
	}

	if failed > 0 {
		return withCode(exitCheckError, fmt.Errorf("%d of %d diagnostics failed", failed, len(results)))
	}
	return nil
}

func newHostsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "hosts [url]",
		Short: "Print the hosts of a connection string and their per-host URLs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g, args)
			if err != nil {
				return err
			}
			hosts, err := connection.Hosts(cfg.URL)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HOST\tCAN BE PRIMARY\tURL")
			for _, h := range hosts {
				fmt.Fprintf(w, "%s\t%t\t%s\n", h, h.CanBePrimary, logging.SanitizeConnectionString(h.ConnString))
			}
			return w.Flush()
		},
	}
}

func newJoinCmd() *cobra.Command {
	var params map[string]string
	cmd := &cobra.Command{
		Use:   "join url [url...]",
		Short: "Merge single-host connection strings into one multi-host string",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			joint, err := connection.BuildJointConnectionString(args, params)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), joint)
			return nil
		},
	}
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "Extra query parameters, e.g. -p sslmode=require")
	return cmd
}

func newTopologyCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "topology [url]",
		Short: "Resolve the current primary and replicas",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTopology(cmd, g, args, func(ctx context.Context, topo connection.Topology, _ *zap.Logger) error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "primary  %s\n", topo.Primary.Host())
				for _, r := range topo.Replicas {
					fmt.Fprintf(out, "replica  %s\n", r.Host())
				}
				return nil
			})
		},
	}
}

func newStatsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [url]",
		Short: "Print when statistics were last reset on every host",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTopology(cmd, g, args, func(ctx context.Context, topo connection.Topology, logger *zap.Logger) error {
				out := cmd.OutOrStdout()
				now := time.Now()
				var errs []error
				for _, conn := range topo.All() {
					resetAt, ok, err := stats.LastResetTimestamp(ctx, conn)
					if err != nil {
						logger.Warn("could not read statistics reset time", zap.String("host", conn.Host().String()), zap.Error(err))
						errs = append(errs, err)
						continue
					}
					fmt.Fprintf(out, "%s: %s\n", conn.Host(), stats.ResetAgeMessage(resetAt, ok, now))
				}
				return withCode(exitCheckError, errors.Join(errs...))
			})
		},
	}
}

// withTopology opens the cluster, resolves its topology and hands it to fn.
func withTopology(cmd *cobra.Command, g *globalFlags, args []string, fn func(context.Context, connection.Topology, *zap.Logger) error) error {
	cfg, logger, err := prepare(cmd, g, args, nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cluster, err := openCluster(ctx, cfg, logger)
	if err != nil {
		return withCode(exitCheckError, err)
	}
	defer cluster.Close()

	o := check.NewOrchestrator(cluster, check.WithLogger(logger))
	topo, err := retryTopology(ctx, o, cfg.Retry, logger)
	if err != nil {
		return withCode(exitCheckError, err)
	}
	return fn(ctx, topo, logger)
}

func newListCmd() *cobra.Command {
	var codes bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the diagnostic catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if codes {
				for _, c := range analyze.Codes() {
					fmt.Fprintln(out, c)
				}
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPOLICY\tCOMBINER\tKIND\tRESULT\tDESCRIPTION")
			for _, d := range diagnostic.Default().All() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					d.ID, d.Policy, orDash(d.CombinerName()), kind(d), d.ResultTypeName(), d.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&codes, "codes", false, "Print the finding codes accepted by --suppress instead")
	return cmd
}

func kind(d diagnostic.Diagnostic) string {
	var parts []string
	if d.Static {
		parts = append(parts, "static")
	}
	if d.Runtime {
		parts = append(parts, "runtime")
	}
	return strings.Join(parts, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
