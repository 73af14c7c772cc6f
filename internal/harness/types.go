package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/subcalc/internal/report"
)

// TraceEvent records one query and the engine's answer.
type TraceEvent struct {
	Query  string        `json:"query"`
	Input  report.Object `json:"input"`
	Output report.Value  `json:"output"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the program resolved and every query met its expectation.
	Pass bool `json:"pass"`

	// Trace contains every query run, in order.
	// Used for golden comparison.
	Trace []TraceEvent `json:"trace"`

	// Diagnostics are the resolver's messages, rendered as "code message".
	Diagnostics []string `json:"diagnostics"`

	// Errors contains failed expectations.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Trace:       []TraceEvent{},
		Diagnostics: []string{},
		Errors:      []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a query and its answer to the trace.
func (r *Result) AddTrace(query string, input report.Object, output report.Value) {
	r.Trace = append(r.Trace, TraceEvent{Query: query, Input: input, Output: output})
}

// QueryError is a query whose answer differs from the expectation.
type QueryError struct {
	Index    int
	Query    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "queries[%d] %s failed\n", e.Index, e.Query)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}
