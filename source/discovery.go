package source

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Corpus layout.
const (
	RulesDir       = "rules"
	SkillsDir      = "skills"
	SkillEntryFile = "SKILL.md"
)

// ErrInvalidPattern is returned for malformed include or exclude patterns.
var ErrInvalidPattern = errors.New("invalid pattern")

// DiscoverOptions filters which corpus files are read.
type DiscoverOptions struct {
	// Include lists doublestar patterns a file must match. Defaults to **/*.md.
	Include []string

	// Exclude lists doublestar patterns that drop a file.
	Exclude []string

	// Technologies selects the rules/<tech>/ subsets to include.
	Technologies []string

	// ExcludeDirs lists directory names that are never descended into.
	ExcludeDirs []string
}

// DefaultInclude is the include pattern used when none is configured.
var DefaultInclude = []string{"**/*.md"}

// Validate checks every include and exclude pattern.
func (o DiscoverOptions) Validate() error {
	for _, p := range append(append([]string{}, o.Include...), o.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}
	return nil
}

// Discover reads the corpus under root. Rules directly under rules/ are
// always included, rules under rules/<tech>/ only when tech is selected,
// and skills/<group>/SKILL.md files are read as skills. The result is sorted
// by ID, which fixes the order of aggregated sections.
func Discover(root string, opts DiscoverOptions) ([]RawDocument, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	include := opts.Include
	if len(include) == 0 {
		include = DefaultInclude
	}

	techs := make(map[string]bool, len(opts.Technologies))
	for _, t := range opts.Technologies {
		techs[t] = true
	}
	excludeDirs := make(map[string]bool, len(opts.ExcludeDirs))
	for _, d := range opts.ExcludeDirs {
		excludeDirs[d] = true
	}

	var docs []RawDocument
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		id := filepath.ToSlash(rel)

		if d.IsDir() {
			if id != "." && excludeDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		kind, ok := Classify(id, techs)
		if !ok || !matchAny(include, id) || matchAny(opts.Exclude, id) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", id, err)
		}
		docs = append(docs, RawDocument{ID: id, Kind: kind, Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// Classify decides whether a slash-separated corpus path is a rule or a
// skill. Rules nested under a technology directory count only when the
// technology is selected.
func Classify(id string, technologies map[string]bool) (Kind, bool) {
	parts := strings.Split(id, "/")
	switch {
	case parts[0] == RulesDir && len(parts) == 2:
		return KindRule, true
	case parts[0] == RulesDir && len(parts) > 2:
		return KindRule, technologies[parts[1]]
	case parts[0] == SkillsDir && len(parts) == 3 && parts[2] == SkillEntryFile:
		return KindSkill, true
	}
	return "", false
}

func matchAny(patterns []string, id string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, id); ok {
			return true
		}
	}
	return false
}

// ContentHash returns the hex SHA-256 of content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
