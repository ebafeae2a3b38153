package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/c360studio/rulekit/source"
	"github.com/c360studio/rulekit/source/parser"
	"github.com/c360studio/rulekit/target"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func corpus() []source.RawDocument {
	return []source.RawDocument{
		{ID: "rules/auth.md", Kind: source.KindRule, Content: "---\ndescription: Auth rules\nalwaysApply: true\n---\nAlways check tokens.\n"},
		{ID: "rules/broken.md", Kind: source.KindRule, Content: "---\ndescription: never closed\n"},
		{ID: "rules/go/style.md", Kind: source.KindRule, Content: "---\ndescription: Go style\npaths:\n  - \"**/*.go\"\n---\nUse gofmt.\n"},
		{ID: "rules/security.md", Kind: source.KindRule, Content: "---\nalwaysApply: true\n---\nNo secrets in code.\n"},
		{ID: "skills/review/SKILL.md", Kind: source.KindSkill, Content: "---\ndescription: Review code\n---\nSteps.\n"},
	}
}

func outputFor(t *testing.T, result *Result, id string) TargetOutput {
	t.Helper()
	for _, out := range result.Targets {
		if out.Target.ID == id {
			return out
		}
	}
	t.Fatalf("no output for target %s", id)
	return TargetOutput{}
}

func TestRun(t *testing.T) {
	adapters, err := target.NewRegistry().Resolve(nil)
	require.NoError(t, err)

	result, err := New(nil).Run(corpus(), adapters)
	require.NoError(t, err)

	t.Run("report", func(t *testing.T) {
		r := result.Report
		_, err := uuid.Parse(r.RunID)
		assert.NoError(t, err)
		assert.Equal(t, 5, r.Documents)
		assert.Equal(t, 3, r.Rules)
		assert.Equal(t, 1, r.Skills)
		require.Len(t, r.Failures, 1)
		assert.Equal(t, "rules/broken.md", r.Failures[0].SourceID)
		assert.True(t, errors.Is(r.Failures[0].Err, parser.ErrDecode))
		assert.True(t, r.Failed())
		assert.Len(t, r.Targets, 4)
	})

	t.Run("targets follow adapter order", func(t *testing.T) {
		ids := make([]string, 0, len(result.Targets))
		for _, out := range result.Targets {
			ids = append(ids, out.Target.ID)
		}
		assert.Equal(t, []string{"agents", "claude", "cursor", "windsurf"}, ids)
	})

	t.Run("cursor writes globals individually", func(t *testing.T) {
		out := outputFor(t, result, target.CursorID)
		assert.Nil(t, out.Aggregate)
		require.Len(t, out.Artifacts, 4)
		assert.Equal(t, "auth.mdc", out.Artifacts[0].Filename)
		assert.True(t, out.Artifacts[0].IsGlobal)
		assert.Equal(t, target.SkillFilename, out.Artifacts[3].Filename)
	})

	t.Run("claude aggregates globals", func(t *testing.T) {
		out := outputFor(t, result, target.ClaudeID)
		require.NotNil(t, out.Aggregate)
		assert.Equal(t, target.ClaudeMemoryFile, out.Aggregate.Filename)
		assert.Equal(t, "## Auth rules\n\nAlways check tokens.\n\n---\n\n## security\n\nNo secrets in code.\n", out.Aggregate.Content)

		require.Len(t, out.Artifacts, 2)
		assert.Equal(t, "go/style.md", out.Artifacts[0].Filename)
		assert.Equal(t, "review", out.Artifacts[1].GroupDir)
	})

	t.Run("agents skips skills", func(t *testing.T) {
		out := outputFor(t, result, target.AgentsID)
		require.Len(t, out.Artifacts, 1)
		assert.Equal(t, source.KindRule, out.Artifacts[0].Kind)
	})

	t.Run("windsurf workflows", func(t *testing.T) {
		out := outputFor(t, result, target.WindsurfID)
		require.NotNil(t, out.Aggregate)
		assert.True(t, strings.HasPrefix(out.Aggregate.Content, "---\ntrigger: always\n"))
		assert.Contains(t, out.Aggregate.Content, "## Security\n")
		require.Len(t, out.Artifacts, 2)
		assert.Equal(t, "review.md", out.Artifacts[1].Filename)
	})
}

func TestRun_NoAdapters(t *testing.T) {
	result, err := New(nil).Run(corpus(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Targets)
	assert.Equal(t, 5, result.Report.Documents)
}

// refusingAdapter claims skill support but refuses every skill.
type refusingAdapter struct {
	*target.Claude
}

func (refusingAdapter) TransformSkill(*source.Document) (*target.Artifact, error) {
	return nil, fmt.Errorf("refusing: %w", target.ErrUnsupportedCapability)
}

// strictAdapter fails the test if a gated operation is invoked.
type strictAdapter struct {
	*target.Agents
	t *testing.T
}

func (s strictAdapter) TransformSkill(doc *source.Document) (*target.Artifact, error) {
	s.t.Errorf("TransformSkill invoked for %s", doc.ID)
	return nil, nil
}

func TestRun_CapabilityGating(t *testing.T) {
	t.Run("undeclared capability is never invoked", func(t *testing.T) {
		_, err := New(nil).Run(corpus(), []target.Adapter{strictAdapter{Agents: target.NewAgents(), t: t}})
		require.NoError(t, err)
	})

	t.Run("refused operation aborts", func(t *testing.T) {
		_, err := New(nil).Run(corpus(), []target.Adapter{refusingAdapter{Claude: target.NewClaude()}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, target.ErrUnsupportedCapability))
		assert.Contains(t, err.Error(), "skills/review/SKILL.md")
	})
}

func TestAssemble(t *testing.T) {
	artifacts := []target.Artifact{
		{SourceID: "rules/a.md", Filename: "a.md", IsGlobal: true, Body: "A"},
		{SourceID: "rules/b.md", Filename: "b.md", Body: "B"},
		{SourceID: "rules/c.md", Filename: "c.md", IsGlobal: true, Body: "C"},
		{SourceID: "rules/d.md", Filename: "d.md", Body: "D"},
	}

	t.Run("aggregating target", func(t *testing.T) {
		out := Assemble(target.NewClaude(), artifacts)
		require.NotNil(t, out.Aggregate)
		assert.Equal(t, "## a\n\nA\n\n---\n\n## c\n\nC\n", out.Aggregate.Content)
		require.Len(t, out.Artifacts, 2)
		assert.Equal(t, "b.md", out.Artifacts[0].Filename)
		assert.Equal(t, "d.md", out.Artifacts[1].Filename)
	})

	t.Run("no globals", func(t *testing.T) {
		out := Assemble(target.NewClaude(), artifacts[1:2])
		assert.Nil(t, out.Aggregate)
		assert.Len(t, out.Artifacts, 1)
	})

	t.Run("non-aggregating target", func(t *testing.T) {
		out := Assemble(target.NewCursor(), artifacts)
		assert.Nil(t, out.Aggregate)
		assert.Len(t, out.Artifacts, 4)
	})
}

func TestPartition(t *testing.T) {
	globals, individual := Partition(nil)
	assert.Empty(t, globals)
	assert.Empty(t, individual)
}

func TestProperty_RunIsDeterministic(t *testing.T) {
	adapters, err := target.NewRegistry().Resolve(nil)
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "n")
		docs := make([]source.RawDocument, 0, n)
		for i := 0; i < n; i++ {
			desc := rapid.StringMatching(`[A-Za-z ]{0,16}`).Draw(rt, fmt.Sprintf("desc%d", i))
			global := rapid.Bool().Draw(rt, fmt.Sprintf("global%d", i))
			body := rapid.StringMatching(`[a-z .\n]{0,40}`).Draw(rt, fmt.Sprintf("body%d", i))
			docs = append(docs, source.RawDocument{
				ID:      fmt.Sprintf("rules/r%02d.md", i),
				Kind:    source.KindRule,
				Content: fmt.Sprintf("---\ndescription: %q\nalwaysApply: %t\npaths:\n  - src/**\n---\n%s", desc, global, body),
			})
		}

		first, err := New(nil).Run(docs, adapters)
		require.NoError(rt, err)
		second, err := New(nil).Run(docs, adapters)
		require.NoError(rt, err)

		require.Equal(rt, first.Targets, second.Targets)
		require.NotEqual(rt, first.Report.RunID, second.Report.RunID)

		for _, out := range first.Targets {
			if out.Aggregate == nil {
				continue
			}
			require.True(rt, strings.HasSuffix(out.Aggregate.Content, "\n"))
			require.False(rt, strings.HasSuffix(out.Aggregate.Content, "\n\n"))
		}
	})
}
