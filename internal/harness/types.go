package harness

// Trace event types.
const (
	TracePublish = "event"
	TraceFetch   = "fetch"
)

// TraceEvent records what one step did.
type TraceEvent struct {
	Step int    `json:"step"`
	Type string `json:"type"`

	// Event steps.
	From       string   `json:"from,omitempty"`
	Kind       string   `json:"kind,omitempty"`
	Decision   string   `json:"decision,omitempty"`
	Branch     string   `json:"branch,omitempty"`
	EventID    string   `json:"event_id,omitempty"`
	Timestamp  int64    `json:"timestamp,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
	Removed    int64    `json:"removed,omitempty"`

	// Fetch steps.
	Results []string `json:"results,omitempty"`

	// Error is the error code when the step was rejected.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one entry per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends one step record.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
