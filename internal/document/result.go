package document

import "time"

// Outcome classifies how a strategy attempt ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	// OutcomeSoftFailure covers document-specific and transient errors:
	// the chain moves on, availability may change.
	OutcomeSoftFailure Outcome = "soft_failure"
	// OutcomeHardFailure covers auth and configuration errors: the
	// strategy is unusable until its backing condition changes.
	OutcomeHardFailure Outcome = "hard_failure"
	OutcomeSkipped     Outcome = "skipped"
)

// Attempt records a single strategy invocation inside a conversion.
type Attempt struct {
	Strategy string  `json:"strategy"`
	Outcome  Outcome `json:"outcome"`
	Error    string  `json:"error,omitempty"`
	// Wall-clock duration in milliseconds, matching the json tag.
	DurationMS int64 `json:"duration_ms"`

	// Extracted is populated only on success and never serialized.
	Extracted *Content `json:"-"`
}

// Result is the terminal outcome of a conversion. A conversion always
// produces a Result; degraded output replaces failure.
type Result struct {
	ID           string    `json:"id"`
	Output       []byte    `json:"-"`
	Format       Format    `json:"format"`
	StrategyUsed string    `json:"strategy_used"`
	Class        Class     `json:"class"`
	Degraded     bool      `json:"degraded"`
	Attempts     []Attempt `json:"attempts"`
	PageCount    int       `json:"page_count"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}
