package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/c360studio/rulekit/config"
	"github.com/c360studio/rulekit/output"
	"github.com/c360studio/rulekit/pipeline"
	"github.com/c360studio/rulekit/source"
	"github.com/c360studio/rulekit/target"
)

var (
	errDocumentsFailed = errors.New("some documents failed to parse")
	errDrift           = errors.New("generated files are out of date")
)

// runner wires discovery, the pipeline and the output planner for one config.
type runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *target.Registry
	planner  *output.Planner
}

// plan is the outcome of a dry run.
type plan struct {
	docs   []source.RawDocument
	files  []output.File
	report pipeline.Report
}

// newRunner loads the layered config and applies flag overrides.
func newRunner(opts *options) (*runner, error) {
	logger := slog.Default()

	cfg, err := config.NewLoader(logger).Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := applyOverrides(cfg, opts); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &runner{
		cfg:      cfg,
		logger:   logger,
		registry: target.NewRegistry(),
		planner:  output.NewPlanner(cfg.Output.Layouts),
	}, nil
}

// applyOverrides applies command-line flags on top of the loaded config.
// Path flags are relative to the working directory.
func applyOverrides(cfg *config.Config, opts *options) error {
	if opts.sourceDir != "" {
		abs, err := filepath.Abs(opts.sourceDir)
		if err != nil {
			return fmt.Errorf("resolve source dir: %w", err)
		}
		cfg.Source.Dir = abs
	}
	if opts.outDir != "" {
		abs, err := filepath.Abs(opts.outDir)
		if err != nil {
			return fmt.Errorf("resolve output dir: %w", err)
		}
		cfg.Output.Root = abs
	}
	if len(opts.targets) > 0 {
		cfg.Targets = opts.targets
	}
	if len(opts.techs) > 0 {
		cfg.Technologies = opts.techs
	}
	return nil
}

// plan discovers the corpus, runs every configured target and resolves the
// output files.
func (r *runner) plan() (*plan, error) {
	docs, err := source.Discover(r.cfg.SourceDir(), r.cfg.DiscoverOptions())
	if err != nil {
		return nil, err
	}

	adapters, err := r.registry.Resolve(r.cfg.Targets)
	if err != nil {
		return nil, err
	}

	result, err := pipeline.New(r.logger).Run(docs, adapters)
	if err != nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}

	files, err := r.planner.Plan(result, r.cfg.OutputRoot())
	if err != nil {
		return nil, fmt.Errorf("plan output: %w", err)
	}

	return &plan{docs: docs, files: files, report: result.Report}, nil
}

// generate plans and writes all files, printing a summary to out.
func (r *runner) generate(ctx context.Context, out io.Writer) (*plan, error) {
	p, err := r.plan()
	if err != nil {
		return nil, err
	}

	stats, err := output.NewWriter(r.logger).Write(ctx, p.files)
	if err != nil {
		return p, err
	}

	r.logger.Info("Generation complete",
		"run_id", p.report.RunID,
		"documents", p.report.Documents,
		"written", stats.Written,
		"unchanged", stats.Unchanged,
		"failed", len(p.report.Failures))

	fmt.Fprintf(out, "%d documents, %d files (%d written, %d unchanged)\n",
		p.report.Documents, len(p.files), stats.Written, stats.Unchanged)
	printFailures(out, p.report)

	if p.report.Failed() {
		return p, fmt.Errorf("%w: %d", errDocumentsFailed, len(p.report.Failures))
	}
	return p, nil
}

func printFailures(out io.Writer, report pipeline.Report) {
	for _, f := range report.Failures {
		fmt.Fprintf(out, "  skipped %s: %v\n", f.SourceID, f.Err)
	}
}
