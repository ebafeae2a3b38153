package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DriftKind says how a file on disk differs from the plan.
type DriftKind string

const (
	DriftMissing DriftKind = "missing"
	DriftChanged DriftKind = "changed"
)

// Drift is a planned file whose disk content does not match.
type Drift struct {
	File File      `json:"file"`
	Kind DriftKind `json:"kind"`

	// Patch is a line diff from the disk content to the planned content.
	Patch string `json:"patch"`
}

// Check compares planned files against disk and returns every mismatch, in
// plan order.
func Check(files []File) ([]Drift, error) {
	var drifts []Drift
	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			drifts = append(drifts, Drift{File: f, Kind: DriftMissing, Patch: LineDiff("", f.Content)})
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", f.RelPath, err)
		case string(data) != f.Content:
			drifts = append(drifts, Drift{File: f, Kind: DriftChanged, Patch: LineDiff(string(data), f.Content)})
		}
	}
	return drifts, nil
}

// LineDiff renders a line-level diff of two texts. Removed lines start with
// "-", added lines with "+", and unchanged lines with a space.
func LineDiff(from, to string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range splitLines(d.Text) {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// splitLines splits text into lines without their terminators.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
