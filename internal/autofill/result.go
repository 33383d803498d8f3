// Package autofill walks the field mapping over a live browser session and
// produces the run's result record.
package autofill

import (
	"errors"
	"fmt"

	"formfill-mcp-server/internal/browser"
)

// Outcome is the result of one attempted field.
type Outcome struct {
	Target    string `json:"target"`
	Name      string `json:"name"`
	Section   string `json:"section"`
	Value     string `json:"value"`
	Succeeded bool   `json:"succeeded"`
}

// RunResult is the record returned for every run, whether or not it completed.
// FilledFields and Errors are never nil so they encode as [] rather than null.
type RunResult struct {
	RunID        string    `json:"run_id,omitempty"`
	FilledFields []string  `json:"filled_fields"`
	Errors       []string  `json:"errors"`
	Screenshot   *string   `json:"screenshot"`
	TotalFilled  int       `json:"total_filled"`
	ArtifactURL  string    `json:"artifact_url,omitempty"`
	Outcomes     []Outcome `json:"outcomes,omitempty"`
}

func newRunResult(runID string) *RunResult {
	return &RunResult{
		RunID:        runID,
		FilledFields: []string{},
		Errors:       []string{},
	}
}

func (r *RunResult) record(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Succeeded {
		r.FilledFields = append(r.FilledFields, o.Name)
		r.TotalFilled = len(r.FilledFields)
	}
}

func (r *RunResult) fail(stage string, err error) {
	r.Errors = append(r.Errors, describe(stage, err))
}

// Value returns the attempted value of the named field and whether it was filled.
func (r RunResult) Value(name string) (string, bool) {
	for _, o := range r.Outcomes {
		if o.Name == name {
			return o.Value, o.Succeeded
		}
	}
	return "", false
}

// describe renders a run-level error. Timeouts lead with the interaction
// timeout marker so callers can tell them apart from other failures.
func describe(stage string, err error) string {
	var te *browser.TimeoutError
	if errors.As(err, &te) {
		return fmt.Sprintf("%s (%s)", te.Error(), stage)
	}
	return fmt.Sprintf("%s: %v", stage, err)
}
