package harness

import "encoding/json"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	Op      string `json:"op"`
	Dataset string `json:"dataset,omitempty"`
	Type    string `json:"type,omitempty"`
	Key     string `json:"key,omitempty"`
	Cutoff  string `json:"cutoff,omitempty"`

	// ID is the label of the id the step minted or addressed.
	ID string `json:"id,omitempty"`

	// Outcome is "ok", "found", "null", or the error code of a failed step.
	Outcome string `json:"outcome"`

	// Record is the loaded record in structured-text form.
	Record json.RawMessage `json:"record,omitempty"`

	// Lookup holds dataset labels for lookup steps and version labels for
	// history steps.
	Lookup []string `json:"lookup,omitempty"`
}

// Failed reports whether the step's operation returned an error.
func (ev TraceEvent) Failed() bool {
	switch ev.Outcome {
	case "ok", "found", "null":
		return false
	}
	return true
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Versions counts stored rows per record type at the end of the run.
	Versions map[string]int `json:"versions,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Versions: make(map[string]int),
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
