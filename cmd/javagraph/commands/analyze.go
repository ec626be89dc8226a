// Package commands provides CLI command implementations for javagraph.
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/javagraph/javagraph/internal/config"
	"github.com/javagraph/javagraph/internal/inspector"
	"github.com/javagraph/javagraph/internal/inspectors"
	"github.com/javagraph/javagraph/internal/javabin"
	"github.com/javagraph/javagraph/internal/javasrc"
	intobs "github.com/javagraph/javagraph/internal/observability"
	"github.com/javagraph/javagraph/internal/progress"
	"github.com/javagraph/javagraph/internal/schedule"
	"github.com/javagraph/javagraph/internal/serialize"
	"github.com/javagraph/javagraph/pkg/observability"
	"github.com/javagraph/javagraph/pkg/version"
)

const (
	analyzeOp      = "analyze"
	meterScopeName = "javagraph"
)

// AnalyzeCommand holds the flags for the analyze command.
type AnalyzeCommand struct {
	configPath string
	jarPaths   []string
	maxPasses  int
	workers    int
	outDir     string
	format     string
	quiet      bool

	// diagnosticsAddr, when non-empty, starts an HTTP health/readiness/
	// Prometheus-scrape server for the duration of the run.
	diagnosticsAddr string

	// observabilityInit is overridable in tests; defaults to observability.Init.
	observabilityInit func(observability.Config) (observability.Providers, error)
}

// NewAnalyzeCommand creates and configures the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	ac := &AnalyzeCommand{observabilityInit: observability.Init}

	cobraCmd := &cobra.Command{
		Use:   "analyze [project-root]",
		Short: "Analyze a Java project and serialize the resulting property graph",
		Long:  "Walks project-root, collects ProjectFile/JavaClass nodes, and runs every registered inspector to convergence before serializing the graph.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  ac.Run,
	}

	cobraCmd.Flags().StringVar(&ac.configPath, "config", "", "explicit config file path")
	cobraCmd.Flags().StringSliceVar(&ac.jarPaths, "jar", nil, "additional JAR path to add to the classpath (repeatable)")
	cobraCmd.Flags().IntVar(&ac.maxPasses, "max-passes", 0, "cap on convergence passes per phase (0: use config default)")
	cobraCmd.Flags().IntVar(&ac.workers, "workers", 0, "parallelism within a layer (0: use config default)")
	cobraCmd.Flags().StringVarP(&ac.outDir, "out", "o", "", "output directory for the serialized graph (empty: use config default)")
	cobraCmd.Flags().StringVarP(&ac.format, "format", "f", "", "output format: json or yaml (empty: use config default)")
	cobraCmd.Flags().BoolVarP(&ac.quiet, "quiet", "q", false, "suppress progress output")
	cobraCmd.Flags().StringVar(
		&ac.diagnosticsAddr, "diagnostics-addr", "",
		"start a diagnostics HTTP server (health/readiness/metrics) at this address (e.g. :6060)",
	)

	return cobraCmd
}

// Run executes the analyze command.
func (ac *AnalyzeCommand) Run(_ *cobra.Command, args []string) error {
	projectRoot := ""
	if len(args) == 1 {
		projectRoot = args[0]
	}

	opts, err := config.LoadConfig(ac.configPath, projectRoot)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ac.applyFlagOverrides(opts)

	providers, err := ac.initObservability()
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = providers.Shutdown(shutdownCtx)
	}()

	red, runMetrics, err := createRunMetrics()
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	stopDiagnostics, err := ac.startDiagnosticsServer(providers)
	if err != nil {
		return fmt.Errorf("start diagnostics server: %w", err)
	}

	defer stopDiagnostics()

	registry, err := NewBuiltinRegistry()
	if err != nil {
		return fmt.Errorf("register inspectors: %w", err)
	}

	startedAt := time.Now()

	var reporter progress.Reporter = progress.NewTextReporter(os.Stdout)
	if ac.quiet {
		reporter = progress.Silent{}
	}

	serializer := serialize.NewFileSerializer(opts, startedAt)

	sched := schedule.New(opts, registry, reporter, serializer)

	ctx := context.Background()

	if err := intobs.RegisterCacheMetrics(otel.Meter(meterScopeName), sched.ClassLoader().BlobCache()); err != nil {
		return fmt.Errorf("register cache metrics: %w", err)
	}

	profiles, runErr := sched.Run(ctx)

	recordRunCompletion(ctx, red, startedAt, runErr)
	runMetrics.RecordRun(ctx, toRunProfiles(profiles))

	if runErr != nil {
		return fmt.Errorf("analysis run: %w", runErr)
	}

	path, pathErr := serialize.Path(opts.Output.Dir, opts.Output.Format)
	if pathErr != nil {
		return pathErr
	}

	printSummary(profiles, path, ac.quiet)

	return nil
}

func (ac *AnalyzeCommand) applyFlagOverrides(opts *config.Options) {
	if len(ac.jarPaths) > 0 {
		opts.JarPaths = append(opts.JarPaths, ac.jarPaths...)
	}

	if ac.maxPasses > 0 {
		opts.MaxPasses = ac.maxPasses
	}

	if ac.workers > 0 {
		opts.Parallelism = ac.workers
	}

	if ac.outDir != "" {
		opts.Output.Dir = ac.outDir
	}

	if ac.format != "" {
		opts.Output.Format = ac.format
	}
}

// initObservability builds the OTel providers for this run, honoring the
// standard OTEL_EXPORTER_OTLP_* environment variables. Tracing/metrics
// export is a no-op until OTEL_EXPORTER_OTLP_ENDPOINT is set.
func (ac *AnalyzeCommand) initObservability() (observability.Providers, error) {
	cfg := observability.DefaultConfig()
	cfg.ServiceName = meterScopeName
	cfg.ServiceVersion = version.Version
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	cfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	cfg.Mode = observability.ModeCLI

	return ac.observabilityInit(cfg)
}

// startDiagnosticsServer starts the health/readiness/Prometheus-scrape HTTP
// server when --diagnostics-addr is set. Returns a cleanup function (always
// non-nil, safe to defer unconditionally) and an error.
func (ac *AnalyzeCommand) startDiagnosticsServer(providers observability.Providers) (func(), error) {
	if ac.diagnosticsAddr == "" {
		return func() {}, nil
	}

	diagServer, err := intobs.NewDiagnosticsServer(ac.diagnosticsAddr, providers.Meter)
	if err != nil {
		return func() {}, fmt.Errorf("start diagnostics server: %w", err)
	}

	fmt.Fprintf(os.Stderr, "diagnostics server listening on %s\n", diagServer.Addr())

	return func() { _ = diagServer.Close() }, nil
}

// createRunMetrics builds the RED and per-phase run metric instruments
// against the global meter initObservability just installed.
func createRunMetrics() (*intobs.REDMetrics, *intobs.RunMetrics, error) {
	meter := otel.Meter(meterScopeName)

	red, err := intobs.NewREDMetrics(meter)
	if err != nil {
		return nil, nil, fmt.Errorf("create RED metrics: %w", err)
	}

	run, err := intobs.NewRunMetrics(meter)
	if err != nil {
		return nil, nil, fmt.Errorf("create run metrics: %w", err)
	}

	return red, run, nil
}

// recordRunCompletion records one RED request for the whole analyze
// invocation, regardless of success or failure.
func recordRunCompletion(ctx context.Context, red *intobs.REDMetrics, startedAt time.Time, runErr error) {
	status := "ok"
	if runErr != nil {
		status = "error"
	}

	red.RecordRequest(ctx, analyzeOp, status, time.Since(startedAt))
}

func toRunProfiles(profiles []progress.ExecutionProfile) []intobs.RunProfile {
	out := make([]intobs.RunProfile, len(profiles))

	for i, p := range profiles {
		out[i] = intobs.RunProfile{
			Phase:          p.Phase,
			Duration:       p.Duration(),
			Passes:         p.Passes,
			NodesProcessed: p.NodesProcessed,
			Converged:      p.Converged,
		}
	}

	return out
}

// NewBuiltinRegistry builds the registry of collectors and inspectors
// javagraph ships with: the source and binary collectors feeding Phase 2,
// and the edge-building/coupling/complexity inspectors feeding Phase 4.
func NewBuiltinRegistry() (*inspector.Registry, error) {
	registry := inspector.NewRegistry()

	if err := registry.RegisterCollector(javasrc.NewCollector()); err != nil {
		return nil, err
	}

	if err := registry.RegisterCollector(javabin.NewCollector()); err != nil {
		return nil, err
	}

	if err := registry.RegisterInspector(inspectors.NewEdgeBuilder()); err != nil {
		return nil, err
	}

	if err := registry.RegisterInspector(inspectors.NewCoupling()); err != nil {
		return nil, err
	}

	if err := registry.RegisterInspector(inspectors.NewWeightedMethods()); err != nil {
		return nil, err
	}

	return registry, nil
}

func printSummary(profiles []progress.ExecutionProfile, snapshotPath string, quiet bool) {
	if quiet {
		return
	}

	bold := color.New(color.Bold)

	for _, p := range profiles {
		status := color.GreenString("converged")
		if !p.Converged {
			status = color.YellowString("did not converge")
		}

		bold.Printf("%s", p.Phase)
		fmt.Printf(": %d node(s), %d pass(es), %s (%s)\n", p.NodesProcessed, p.Passes, status, p.Duration())
	}

	fmt.Printf("graph written to %s\n", snapshotPath)
}
