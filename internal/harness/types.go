package harness

// TraceEvent records one tick. Names are catalog display names so golden
// files read without an id table.
type TraceEvent struct {
	Seq       int64    `json:"seq"`
	Conn      string   `json:"conn,omitempty"`
	Connected bool     `json:"connected,omitempty"`
	Received  []string `json:"received,omitempty"`
	Unlocked  []string `json:"unlocked,omitempty"`
	Revealed  []string `json:"revealed,omitempty"`
	Reported  []string `json:"reported,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace contains one event per tick, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
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
