package output

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/c360studio/rulekit/pipeline"
	"github.com/c360studio/rulekit/source"
)

var (
	// ErrPathConflict is returned when two outputs map to the same file.
	ErrPathConflict = errors.New("output path conflict")

	// ErrNoLayout is returned when a target has no layout.
	ErrNoLayout = errors.New("no layout for target")

	// ErrPathEscape is returned when an output path resolves outside the root.
	ErrPathEscape = errors.New("output path escapes root")
)

// File is one planned output file.
type File struct {
	// Path is the absolute or root-relative OS path of the file.
	Path string `json:"path"`

	// RelPath is the slash-separated path relative to the root.
	RelPath string `json:"rel_path"`

	Content string `json:"-"`
	Target  string `json:"target"`

	// SourceID is empty for aggregated documents.
	SourceID string `json:"source_id,omitempty"`
}

// Planner resolves pipeline results to files.
type Planner struct {
	layouts map[string]Layout
}

// NewPlanner creates a planner. Layouts override DefaultLayouts by target ID.
func NewPlanner(layouts map[string]Layout) *Planner {
	merged := DefaultLayouts()
	for id, l := range layouts {
		merged[id] = l
	}
	return &Planner{layouts: merged}
}

// Plan is a convenience wrapper using DefaultLayouts.
func Plan(result *pipeline.Result, root string) ([]File, error) {
	return NewPlanner(nil).Plan(result, root)
}

// Plan returns every file the result produces under root, sorted by path.
func (p *Planner) Plan(result *pipeline.Result, root string) ([]File, error) {
	var files []File
	owners := make(map[string]string)

	add := func(rel, content, targetID, sourceID string) error {
		rel = path.Clean(rel)
		if rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) || strings.ContainsRune(rel, '\\') {
			return fmt.Errorf("%w: %s from %s:%s", ErrPathEscape, rel, targetID, sourceID)
		}
		owner := targetID + ":" + sourceID
		if sourceID == "" {
			owner = targetID + ": aggregate"
		}
		if prev, ok := owners[rel]; ok {
			return fmt.Errorf("%w: %s from %s and %s", ErrPathConflict, rel, prev, owner)
		}
		owners[rel] = owner
		files = append(files, File{
			Path:     filepath.Join(root, filepath.FromSlash(rel)),
			RelPath:  rel,
			Content:  content,
			Target:   targetID,
			SourceID: sourceID,
		})
		return nil
	}

	for _, out := range result.Targets {
		id := out.Target.ID
		layout, ok := p.layouts[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoLayout, id)
		}

		for _, a := range out.Artifacts {
			dir := layout.RulesDir
			if a.Kind == source.KindSkill {
				dir = layout.skillDir(out.Target.Capabilities, a.GroupDir)
			}
			if err := add(path.Join(dir, a.Filename), a.Content, id, a.SourceID); err != nil {
				return nil, err
			}
		}

		if out.Aggregate != nil {
			rel := path.Join(layout.AggregateDir, out.Aggregate.Filename)
			if err := add(rel, out.Aggregate.Content, id, ""); err != nil {
				return nil, err
			}
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].RelPath < files[j].RelPath
	})
	return files, nil
}
