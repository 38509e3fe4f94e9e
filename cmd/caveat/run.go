package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"caveat/internal/config"
	"caveat/internal/filter"
	"caveat/internal/intercept"
	"caveat/internal/observ"
	"caveat/internal/prof"
	"caveat/internal/report"
	"caveat/internal/runner"
	"caveat/internal/session"
	"caveat/internal/source"
	"caveat/internal/suite"
	"caveat/internal/summary"
	"caveat/internal/trace"
	"caveat/internal/warning"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Run test scripts and report their warnings",
		Long: `Run executes *.cvt test scripts. Warnings raised in setup, call and
teardown are filtered by the rules from caveat.toml and -W flags, then
summarised at the end of the session.`,
		RunE: runTests,
	}
	cmd.Flags().StringArrayP("filterwarnings", "W", nil, "warning filter action:message:category:module:lineno (repeatable)")
	cmd.Flags().String("warnings-dedup", "", "default-action dedup key (location|phase)")
	cmd.Flags().IntP("jobs", "j", 0, "run nodes concurrently (0 = config or sequential, -1 = GOMAXPROCS)")
	cmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	cmd.Flags().String("journal", "", "write the session journal to this file")
	cmd.Flags().BoolP("verbose", "v", false, "list every test with its outcome")
	cmd.Flags().String("cpuprofile", "", "write a CPU profile to file")
	cmd.Flags().String("memprofile", "", "write a heap profile to file")
	cmd.Flags().String("runtime-trace", "", "write a Go runtime trace to file")
	return cmd
}

// sessionSetup is everything resolved before the first node runs.
type sessionSetup struct {
	cfg     *config.Config
	sources *source.Cache
	tx      *warning.Taxonomy
	rules   *filter.List
	dedup   filter.DedupMode
	files   []*suite.File
	nodes   []runner.Node
}

func runTests(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()
	defer dumpTraceOnPanic(ctx, cmd.ErrOrStderr())

	stopProfiles, err := startProfiles(cmd)
	if err != nil {
		return err
	}
	defer stopProfiles()

	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	timer := observ.NewTimer()
	if showTimings {
		defer func() { printStageTimings(cmd.ErrOrStderr(), timer.Report()) }()
	}

	var setup *sessionSetup
	err = timer.Measure("load", func() error {
		var loadErr error
		setup, loadErr = loadSession(cmd, args)
		return loadErr
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	colorOn, err := useColor(cmd, out)
	if err != nil {
		return err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	jobs, err := resolveJobs(cmd, setup.cfg)
	if err != nil {
		return err
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	uiMode, err := parseSwitch("ui", uiFlag)
	if err != nil {
		return err
	}

	width := report.DefaultWidth
	if f, ok := out.(*os.File); ok {
		width = report.TerminalWidth(int(f.Fd()))
	}
	w := report.New(out, report.Options{Width: width, Color: colorOn, Verbose: verbose})
	w.Start(rootDir(setup.cfg), len(setup.nodes))

	tracer := trace.FromContext(ctx)
	trace.Point(tracer, trace.ScopeSession, "rules", fmt.Sprintf("%d rules", setup.rules.Len()), 0, nil)

	rcfg := runner.Config{
		Taxonomy: setup.tx,
		Rules:    setup.rules,
		Dedup:    setup.dedup,
		Jobs:     jobs,
		Intercept: intercept.New(intercept.Options{
			Taxonomy: setup.tx,
			Rules:    setup.rules,
			Output:   cmd.ErrOrStderr(),
		}),
		Sources: setup.sources,
		Tracer:  tracer,
		Output:  cmd.ErrOrStderr(),
	}

	var res runner.Result
	var runErr error
	runIdx := timer.Begin("run")
	if uiMode.enabled(out) {
		res, runErr = runWithUI(ctx, out, "caveat run", rcfg, setup.nodes)
	} else {
		res, runErr = runner.New(rcfg).Run(ctx, setup.nodes)
	}
	timer.End(runIdx, fmt.Sprintf("%d nodes", len(res.Nodes)))

	reportIdx := timer.Begin("report")
	outcomes := res.Outcomes()
	for _, o := range outcomes {
		w.Node(o)
	}
	w.Failures(outcomes)
	if res.Aggregate == nil {
		res.Aggregate = session.New()
	}
	w.Finish(outcomes, summary.Render(res.Aggregate.All(), setup.dedup), res.Elapsed)
	timer.End(reportIdx, "")

	if err := writeJournal(cmd, res, outcomes, setup.dedup); err != nil {
		return err
	}
	if err := w.Err(); err != nil {
		return &exitError{code: exitInterrupted, err: fmt.Errorf("write report: %w", err)}
	}

	switch {
	case errors.Is(runErr, context.Canceled):
		return &exitError{code: exitInterrupted, err: fmt.Errorf("interrupted: %w", runErr)}
	case runErr != nil:
		return &exitError{code: exitInterrupted, err: runErr}
	case res.Failed > 0:
		return &exitError{code: exitTestsFailed, err: errTestsFailed}
	}
	return nil
}

func startProfiles(cmd *cobra.Command) (func(), error) {
	var opts prof.Options
	var err error
	if opts.CPU, err = cmd.Flags().GetString("cpuprofile"); err != nil {
		return nil, fmt.Errorf("failed to get cpuprofile flag: %w", err)
	}
	if opts.Mem, err = cmd.Flags().GetString("memprofile"); err != nil {
		return nil, fmt.Errorf("failed to get memprofile flag: %w", err)
	}
	if opts.Trace, err = cmd.Flags().GetString("runtime-trace"); err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if !opts.Enabled() {
		return func() {}, nil
	}
	s, err := prof.Start(opts)
	if err != nil {
		return nil, usageError(fmt.Errorf("start profiling: %w", err))
	}
	return func() {
		if err := s.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
		}
	}, nil
}

// loadSession reads configuration and scripts and compiles the rule list.
// Every failure here is a usage or configuration error.
func loadSession(cmd *cobra.Command, args []string) (*sessionSetup, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, usageError(err)
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.TestPaths()
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	found, err := suite.Discover(paths)
	if err != nil {
		return nil, usageError(err)
	}

	s := &sessionSetup{cfg: cfg, sources: source.NewCache(), tx: warning.NewTaxonomy()}
	if s.files, err = suite.Load(found, s.sources); err != nil {
		return nil, usageError(err)
	}
	for _, c := range cfg.Warnings.Categories {
		if err := s.tx.Define(c.Name, c.Parent); err != nil {
			return nil, usageError(fmt.Errorf("%s: %w", cfg.Path, err))
		}
	}
	if err := suite.DefineCategories(s.tx, s.files); err != nil {
		return nil, usageError(err)
	}

	cmdline, err := cmd.Flags().GetStringArray("filterwarnings")
	if err != nil {
		return nil, fmt.Errorf("failed to get filterwarnings flag: %w", err)
	}
	if s.rules, err = filter.Build(s.tx, cfg.Warnings.Filters, cmdline); err != nil {
		return nil, usageError(err)
	}

	dedup, err := cmd.Flags().GetString("warnings-dedup")
	if err != nil {
		return nil, fmt.Errorf("failed to get warnings-dedup flag: %w", err)
	}
	if dedup == "" {
		dedup = cfg.Warnings.Dedup
	}
	if s.dedup, err = filter.ParseDedupMode(dedup); err != nil {
		return nil, usageError(err)
	}

	s.nodes = suite.Nodes(s.files)
	return s, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}
	cfg, _, err := config.Discover(".")
	return cfg, err
}

func resolveJobs(cmd *cobra.Command, cfg *config.Config) (int, error) {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return 0, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if !cmd.Flags().Changed("jobs") {
		jobs = cfg.Run.Jobs
	}
	return jobs, nil
}

func rootDir(cfg *config.Config) string {
	if cfg != nil && cfg.Root != "" {
		return cfg.Root
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

func writeJournal(cmd *cobra.Command, res runner.Result, outcomes []session.Outcome, dedup filter.DedupMode) error {
	path, err := cmd.Flags().GetString("journal")
	if err != nil {
		return fmt.Errorf("failed to get journal flag: %w", err)
	}
	if strings.TrimSpace(path) == "" {
		return nil
	}
	j := session.NewJournal(res.Aggregate, outcomes, res.Elapsed)
	j.Dedup = dedup
	if err := session.WriteJournal(filepath.Clean(path), j); err != nil {
		return &exitError{code: exitInterrupted, err: fmt.Errorf("write journal: %w", err)}
	}
	return nil
}
