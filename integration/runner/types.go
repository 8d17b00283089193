package runner

import (
	"time"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string     `json:"name" yaml:"name"`
	Steps []TestStep `json:"steps,omitempty" yaml:"steps,omitempty"` // Used for regular tests
	Cases []string   `json:"cases,omitempty" yaml:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single battle action and its expected outcome.
// Action is posted to /v1/battle/{action}; "view" only reads the battle and
// "wait" only polls until WaitFor holds.
type TestStep struct {
	Name         string         `json:"name,omitempty" yaml:"name,omitempty"`
	Action       string         `json:"action" yaml:"action"`
	Body         map[string]any `json:"body,omitempty" yaml:"body,omitempty"`         // JSON body for rate and narration
	WaitFor      *Expectations  `json:"wait_for,omitempty" yaml:"wait_for,omitempty"` // polled after the action
	Expectations Expectations   `json:"expect" yaml:"expect"`
}

// Special actions that do not post to the battle API
const (
	ActionView = "view"
	ActionWait = "wait"
)

// Expectations defines what to check after a test step executes.
// Nil fields are not checked.
type Expectations struct {
	Status            *int     `json:"status,omitempty" yaml:"status,omitempty"` // HTTP status of the action, default 200
	ErrorContains     string   `json:"error_contains,omitempty" yaml:"error_contains,omitempty"`
	Phase             *string  `json:"phase,omitempty" yaml:"phase,omitempty"`
	ActiveParty       *string  `json:"active_party,omitempty" yaml:"active_party,omitempty"`
	Round             *int     `json:"round,omitempty" yaml:"round,omitempty"`
	Stage             *string  `json:"stage,omitempty" yaml:"stage,omitempty"`
	Running           *bool    `json:"running,omitempty" yaml:"running,omitempty"`
	Rate              *float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
	DocumentUploaded  *bool    `json:"document_uploaded,omitempty" yaml:"document_uploaded,omitempty"`
	Outcome           *string  `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	MinProgress       *float64 `json:"min_progress,omitempty" yaml:"min_progress,omitempty"`
	Objection         *bool    `json:"objection,omitempty" yaml:"objection,omitempty"`
	TranscriptEntries *int     `json:"transcript_entries,omitempty" yaml:"transcript_entries,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	BattleID string // ID of the battle the suite ran against
}
