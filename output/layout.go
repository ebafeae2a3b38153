// Package output maps pipeline results onto the project tree and writes or
// verifies the generated files.
package output

import (
	"path"

	"github.com/c360studio/rulekit/target"
)

// Layout places one target's files relative to the project root. All paths
// are slash-separated.
type Layout struct {
	// RulesDir holds individual rule files.
	RulesDir string `yaml:"rules_dir" json:"rules_dir"`

	// SkillsDir holds skill files.
	SkillsDir string `yaml:"skills_dir" json:"skills_dir"`

	// NestSkills places each skill under SkillsDir/<group>/.
	NestSkills bool `yaml:"nest_skills" json:"nest_skills"`

	// WorkflowsDir holds skills converted to workflows, for targets that
	// declare the workflows capability.
	WorkflowsDir string `yaml:"workflows_dir" json:"workflows_dir"`

	// AggregateDir holds the consolidated global rules file.
	AggregateDir string `yaml:"aggregate_dir" json:"aggregate_dir"`
}

// DefaultLayouts returns the layout of every built-in target.
func DefaultLayouts() map[string]Layout {
	return map[string]Layout{
		target.CursorID: {
			RulesDir:   ".cursor/rules",
			SkillsDir:  ".cursor/skills",
			NestSkills: true,
		},
		target.ClaudeID: {
			RulesDir:     ".claude/rules",
			SkillsDir:    ".claude/skills",
			NestSkills:   true,
			AggregateDir: ".",
		},
		target.AgentsID: {
			RulesDir:     ".agents/rules",
			AggregateDir: ".",
		},
		target.WindsurfID: {
			RulesDir:     ".windsurf/rules",
			WorkflowsDir: ".windsurf/workflows",
			AggregateDir: ".windsurf/rules",
		},
	}
}

// skillDir returns the directory of a skill artifact. Targets with the
// workflows capability receive their skills as flat workflow files.
func (l Layout) skillDir(caps target.Capabilities, group string) string {
	if caps.Workflows {
		return l.WorkflowsDir
	}
	if l.NestSkills {
		return path.Join(l.SkillsDir, group)
	}
	return l.SkillsDir
}
