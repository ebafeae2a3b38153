package pipeline

import (
	"encoding/json"
	"time"
)

// Failure records a document that was skipped.
type Failure struct {
	SourceID string `json:"source_id"`
	Err      error  `json:"-"`
}

// MarshalJSON includes the error message.
func (f Failure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		SourceID string `json:"source_id"`
		Error    string `json:"error"`
	}{f.SourceID, msg})
}

// TargetSummary counts what one target produced.
type TargetSummary struct {
	Target    string `json:"target"`
	Artifacts int    `json:"artifacts"`
	Aggregate bool   `json:"aggregate"`
}

// Report summarizes a run.
type Report struct {
	RunID     string          `json:"run_id"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Documents int             `json:"documents"`
	Rules     int             `json:"rules"`
	Skills    int             `json:"skills"`
	Failures  []Failure       `json:"failures,omitempty"`
	Targets   []TargetSummary `json:"targets"`
}

// Failed returns true if any document was skipped.
func (r Report) Failed() bool {
	return len(r.Failures) > 0
}
