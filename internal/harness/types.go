package harness

import "github.com/roach88/sumstate/internal/record"

// TraceEvent is one executed scenario step.
type TraceEvent struct {
	Seq      int64    `json:"seq"` // 0 when the runtime refused the instruction
	Batch    string   `json:"batch"`
	Accounts []string `json:"accounts"`
	Payload  string   `json:"payload"` // hex
	Status   string   `json:"status"`
	// Before and After are the first account's record around the step,
	// omitted when the data does not decode.
	Before *record.Record `json:"before,omitempty"`
	After  *record.Record `json:"after,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State maps account names to their final data as hex.
	State map[string]string `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]string),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}

// StatusCount returns how many steps ended with status.
func (r *Result) StatusCount(status string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Status == status {
			n++
		}
	}
	return n
}
