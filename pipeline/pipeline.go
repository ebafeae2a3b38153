// Package pipeline runs a discovered corpus through a set of target adapters
// and assembles the per-target output.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/rulekit/source"
	"github.com/c360studio/rulekit/source/parser"
	"github.com/c360studio/rulekit/target"
	"github.com/google/uuid"
)

// TargetOutput is everything one target produces in a run.
type TargetOutput struct {
	// Target describes the adapter that produced the output.
	Target target.Descriptor `json:"target"`

	// Artifacts are written as individual files, in discovery order.
	Artifacts []target.Artifact `json:"artifacts"`

	// Aggregate holds the merged global rules, if the target aggregates and
	// any global rule exists.
	Aggregate *target.AggregatedDocument `json:"aggregate,omitempty"`
}

// Result is the outcome of a run.
type Result struct {
	Targets []TargetOutput `json:"targets"`
	Report  Report         `json:"report"`
}

// Pipeline parses raw documents and dispatches them to target adapters.
type Pipeline struct {
	logger *slog.Logger
	now    func() time.Time
}

// New creates a pipeline. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger: logger,
		now:    time.Now,
	}
}

// Run parses docs and transforms them for each adapter, in the order given.
// Documents that fail to parse are skipped and recorded in the report. An
// adapter refusing an operation it was gated for aborts the run.
func (p *Pipeline) Run(docs []source.RawDocument, adapters []target.Adapter) (*Result, error) {
	report := Report{
		RunID:     uuid.New().String(),
		StartedAt: p.now(),
	}

	parsed := make([]*source.Document, 0, len(docs))
	for _, raw := range docs {
		report.Documents++
		doc, err := parser.ParseRaw(raw)
		if err != nil {
			p.logger.Warn("Skipping document", "run_id", report.RunID, "source_id", raw.ID, "error", err)
			report.Failures = append(report.Failures, Failure{SourceID: raw.ID, Err: err})
			continue
		}
		switch doc.Kind {
		case source.KindSkill:
			report.Skills++
		default:
			report.Rules++
		}
		parsed = append(parsed, doc)
	}

	result := &Result{Targets: make([]TargetOutput, 0, len(adapters))}
	for _, a := range adapters {
		out, err := p.runTarget(a, parsed)
		if err != nil {
			return nil, err
		}

		report.Targets = append(report.Targets, TargetSummary{
			Target:    out.Target.ID,
			Artifacts: len(out.Artifacts),
			Aggregate: out.Aggregate != nil,
		})
		p.logger.Debug("Target transformed",
			"run_id", report.RunID,
			"target", out.Target.ID,
			"artifacts", len(out.Artifacts),
			"aggregate", out.Aggregate != nil)

		result.Targets = append(result.Targets, out)
	}

	report.Duration = p.now().Sub(report.StartedAt)
	result.Report = report
	return result, nil
}

// runTarget transforms every document for one adapter.
func (p *Pipeline) runTarget(a target.Adapter, docs []*source.Document) (TargetOutput, error) {
	desc := a.Descriptor()

	artifacts := make([]target.Artifact, 0, len(docs))
	for _, doc := range docs {
		switch doc.Kind {
		case source.KindSkill:
			if !desc.Capabilities.Skills {
				continue
			}
			artifact, err := a.TransformSkill(doc)
			if err != nil {
				return TargetOutput{}, fmt.Errorf("transform skill %s for %s: %w", doc.ID, desc.ID, err)
			}
			if artifact == nil {
				p.logger.Debug("Skill has no group directory", "target", desc.ID, "source_id", doc.ID)
				continue
			}
			artifacts = append(artifacts, *artifact)
		default:
			if !desc.Capabilities.Rules {
				continue
			}
			artifacts = append(artifacts, a.TransformRule(doc))
		}
	}

	return Assemble(a, artifacts), nil
}
