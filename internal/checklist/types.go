// Package checklist runs ordered integration checklists against the
// company-test service. A checklist is a list of steps; each step calls one
// endpoint, threads the session token and created test ID forward, and
// may capture values and assert on the response body.
package checklist

import (
	"fmt"
	"time"

	"github.com/acharya-hq/smokecheck/internal/api"
)

// Action names the endpoint a step exercises.
type Action string

const (
	ActionLogin   Action = "login"
	ActionAssign  Action = "assign"
	ActionList    Action = "list"
	ActionDetail  Action = "detail"
	ActionSubmit  Action = "submit"
	ActionResults Action = "results"
	ActionVerify  Action = "verify"
)

// Checklist is a complete, ordered list of steps.
type Checklist struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Variables   map[string]string `yaml:"variables,omitempty" json:"variables,omitempty"`
	Assignment  *api.Assignment   `yaml:"assignment,omitempty" json:"assignment,omitempty"`
	Answers     []api.Answer      `yaml:"answers,omitempty" json:"answers,omitempty"`
	Steps       []Step            `yaml:"steps" json:"steps"`
}

// Step is one call within a checklist.
type Step struct {
	Name   string `yaml:"name" json:"name"`
	Action Action `yaml:"action" json:"action"`

	// Role is the role to log in as (login) or whose token to send.
	Role string `yaml:"role,omitempty" json:"role,omitempty"`

	// Fatal overrides the action's default fatality.
	Fatal *bool `yaml:"fatal,omitempty" json:"fatal,omitempty"`

	// Requires lists run variables that must be non-empty; otherwise the
	// step is skipped. Detail and submit always require test_id.
	Requires []string `yaml:"requires,omitempty" json:"requires,omitempty"`

	// MatchAssignment checks the response against the submitted assignment.
	MatchAssignment bool `yaml:"match_assignment,omitempty" json:"match_assignment,omitempty"`

	Capture map[string]string `yaml:"capture,omitempty" json:"capture,omitempty"`
	Expect  map[string]any    `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// defaultFatal reports whether a failure of action halts the run when the
// step does not say otherwise. Authentication and creation produce the
// values later steps depend on; the read steps only report.
func defaultFatal(a Action) bool {
	switch a {
	case ActionLogin, ActionAssign:
		return true
	default:
		return false
	}
}

// impliedRequires lists the run variables an action cannot do without.
// They apply even when the step's requires list omits them.
func impliedRequires(a Action) []string {
	switch a {
	case ActionDetail, ActionSubmit:
		return []string{"test_id"}
	default:
		return nil
	}
}

// defaultRole is the acting role of an action when the step names none.
func defaultRole(a Action) string {
	switch a {
	case ActionAssign, ActionResults:
		return "recruiter"
	case ActionList, ActionDetail, ActionSubmit:
		return "candidate"
	default:
		return ""
	}
}

// Validate checks the checklist's structure.
func (c *Checklist) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(c.Steps) == 0 {
		return fmt.Errorf("checklist %s: at least one step is required", c.Name)
	}
	for i, s := range c.Steps {
		if s.Name == "" {
			return fmt.Errorf("checklist %s: step %d: name is required", c.Name, i+1)
		}
		switch s.Action {
		case ActionLogin:
			if s.Role == "" {
				return fmt.Errorf("checklist %s: step %q: login requires a role", c.Name, s.Name)
			}
		case ActionAssign, ActionSubmit, ActionResults:
			if c.Assignment == nil {
				return fmt.Errorf("checklist %s: step %q: %s requires an assignment", c.Name, s.Name, s.Action)
			}
		case ActionList, ActionDetail:
			if s.MatchAssignment && c.Assignment == nil {
				return fmt.Errorf("checklist %s: step %q: match_assignment requires an assignment", c.Name, s.Name)
			}
		case ActionVerify:
			if len(s.Expect) == 0 {
				return fmt.Errorf("checklist %s: step %q: verify requires expect", c.Name, s.Name)
			}
		default:
			return fmt.Errorf("checklist %s: step %q: unknown action %q", c.Name, s.Name, s.Action)
		}
	}
	return nil
}

// Status is the outcome of one step.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Error kinds owned by the runner, alongside api.Kind values.
const (
	KindExpectation  = "expectation"
	KindPrecondition = "precondition"
	KindTemplate     = "template"
)

// StepResult records the outcome of a single step.
type StepResult struct {
	Name     string
	Action   Action
	Status   Status
	Fatal    bool
	Kind     string   // error kind; empty unless failed
	Error    string   // empty unless failed
	Reason   string   // why a step was skipped
	Summary  string   // one-line success message
	Details  []string // attribute lines reported on success
	Duration time.Duration
}

// Result records the outcome of an entire checklist run.
type Result struct {
	Checklist   string
	Description string
	RunID       string
	Passed      bool
	Aborted     bool // a fatal step failed and later steps did not run
	Steps       []StepResult
	Duration    time.Duration
}

// Counts tallies step outcomes.
func (r *Result) Counts() (passed, failed, skipped int) {
	for _, s := range r.Steps {
		switch s.Status {
		case StatusPassed:
			passed++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return
}
