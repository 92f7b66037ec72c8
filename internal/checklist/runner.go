package checklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acharya-hq/smokecheck/internal/api"
)

// Service is the set of endpoints a checklist drives. *api.Client
// implements it.
type Service interface {
	Login(ctx context.Context, creds api.Credentials) (*api.LoginResponse, error)
	AssignCompanyTest(ctx context.Context, token string, a api.Assignment) (*api.AssignResponse, error)
	ListCompanyTests(ctx context.Context, token string) (*api.ListResponse, error)
	GetCompanyTest(ctx context.Context, token, id string) (*api.DetailResponse, error)
	SubmitCompanyTest(ctx context.Context, token, id string, answers []api.Answer) (*api.SubmitResponse, error)
	CompanyTestResults(ctx context.Context, token, candidate string) (*api.ResultsResponse, error)
}

// Policy decides which failed steps halt a run.
type Policy struct {
	// Strict makes every step fatal.
	Strict bool
	// Overrides forces fatality per step name. It wins over the step's own
	// fatal field and the action default.
	Overrides map[string]bool
}

// Fatal reports whether a failure of s ends the run.
func (p Policy) Fatal(s *Step) bool {
	if p.Strict {
		return true
	}
	if v, ok := p.Overrides[s.Name]; ok {
		return v
	}
	if s.Fatal != nil {
		return *s.Fatal
	}
	return defaultFatal(s.Action)
}

// Observer is told about progress as a checklist runs.
type Observer interface {
	Begin(c *Checklist)
	StepStarted(n int, s *Step)
	StepFinished(n int, sr *StepResult)
	End(res *Result)
}

type nopObserver struct{}

func (nopObserver) Begin(*Checklist)              {}
func (nopObserver) StepStarted(int, *Step)        {}
func (nopObserver) StepFinished(int, *StepResult) {}
func (nopObserver) End(*Result)                   {}

// PreconditionError means a step could not be attempted because an
// earlier step did not leave what it needs, such as a session token.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return e.Msg }

// TemplateError wraps a failed template expansion.
type TemplateError struct {
	Err error
}

func (e *TemplateError) Error() string { return e.Err.Error() }
func (e *TemplateError) Unwrap() error { return e.Err }

// kindOf classifies a step error for reporting.
func kindOf(err error) string {
	if k := api.KindOf(err); k != "" {
		return string(k)
	}
	var (
		expErr  *ExpectationError
		preErr  *PreconditionError
		tmplErr *TemplateError
	)
	switch {
	case errors.As(err, &expErr):
		return KindExpectation
	case errors.As(err, &preErr):
		return KindPrecondition
	case errors.As(err, &tmplErr):
		return KindTemplate
	}
	return "error"
}

// Runner executes checklists one step at a time.
type Runner struct {
	svc      Service
	creds    map[string]api.Credentials
	policy   Policy
	observer Observer
	logger   *zap.Logger
	newRunID func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithPolicy sets the fatality policy.
func WithPolicy(p Policy) Option {
	return func(r *Runner) { r.policy = p }
}

// WithObserver sets the progress observer, typically a *Report.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// WithLogger sets the logger for run and step events.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithRunIDGenerator replaces the UUID run ID source.
func WithRunIDGenerator(fn func() string) Option {
	return func(r *Runner) { r.newRunID = fn }
}

// NewRunner creates a Runner that logs in with creds, keyed by role.
func NewRunner(svc Service, creds map[string]api.Credentials, opts ...Option) *Runner {
	r := &Runner{
		svc:      svc,
		creds:    creds,
		observer: nopObserver{},
		logger:   zap.NewNop(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run holds the state threaded from one step to the next.
type run struct {
	checklist  *Checklist
	tokens     map[string]string // role -> bearer token
	vars       map[string]string
	assignment *api.Assignment // as submitted, after template expansion
}

// Run executes c in order. A failed fatal step ends the run; the steps
// after it are recorded as skipped. The error is non-nil only when c
// itself is invalid.
func (r *Runner) Run(ctx context.Context, c *Checklist) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := r.newRunID()
	ctx = api.ContextWithRequestID(ctx, runID)
	logger := r.logger.With(zap.String("checklist", c.Name), zap.String("run_id", runID))

	st := &run{
		checklist: c,
		tokens:    make(map[string]string),
		vars:      make(map[string]string, len(c.Variables)),
	}
	for k, v := range c.Variables {
		st.vars[k] = v
	}

	result := &Result{
		Checklist:   c.Name,
		Description: c.Description,
		RunID:       runID,
		Passed:      true,
	}

	r.observer.Begin(c)
	logger.Info("checklist started", zap.Int("steps", len(c.Steps)))

	for i := range c.Steps {
		step := &c.Steps[i]
		if result.Aborted {
			result.Steps = append(result.Steps, StepResult{
				Name:   step.Name,
				Action: step.Action,
				Status: StatusSkipped,
				Fatal:  r.policy.Fatal(step),
				Reason: "not run: an earlier fatal step failed",
			})
			continue
		}

		r.observer.StepStarted(i+1, step)
		result.Steps = append(result.Steps, r.runStep(ctx, st, step))
		sr := &result.Steps[len(result.Steps)-1]
		r.observer.StepFinished(i+1, sr)

		logger.Debug("step finished",
			zap.Int("step", i+1),
			zap.String("name", sr.Name),
			zap.String("status", string(sr.Status)),
			zap.Bool("fatal", sr.Fatal),
			zap.Duration("duration", sr.Duration),
			zap.String("error", sr.Error),
		)

		if sr.Status == StatusFailed {
			result.Passed = false
			if sr.Fatal {
				result.Aborted = true
				logger.Warn("fatal step failed, aborting checklist",
					zap.String("step", sr.Name), zap.String("kind", sr.Kind), zap.String("error", sr.Error))
			}
		}
	}

	result.Duration = time.Since(start)
	passed, failed, skipped := result.Counts()
	logger.Info("checklist finished",
		zap.Bool("passed", result.Passed),
		zap.Int("steps_passed", passed),
		zap.Int("steps_failed", failed),
		zap.Int("steps_skipped", skipped),
		zap.Duration("duration", result.Duration),
	)
	r.observer.End(result)
	return result, nil
}

// runStep executes a single step and returns its result.
func (r *Runner) runStep(ctx context.Context, st *run, step *Step) StepResult {
	start := time.Now()
	sr := StepResult{
		Name:   step.Name,
		Action: step.Action,
		Fatal:  r.policy.Fatal(step),
	}

	for _, name := range append(impliedRequires(step.Action), step.Requires...) {
		if st.vars[name] == "" {
			sr.Status = StatusSkipped
			sr.Reason = fmt.Sprintf("no %s available", name)
			sr.Duration = time.Since(start)
			return sr
		}
	}

	out, err := r.perform(ctx, st, step)
	if err == nil && (len(step.Capture) > 0 || len(step.Expect) > 0) {
		err = r.checkResponse(st, step, &out)
	}

	sr.Details = out.details
	if err != nil {
		sr.Status = StatusFailed
		sr.Kind = kindOf(err)
		sr.Error = err.Error()
	} else {
		sr.Status = StatusPassed
		sr.Summary = out.summary
	}
	sr.Duration = time.Since(start)
	return sr
}

// checkResponse applies a step's captures, then its assertions.
func (r *Runner) checkResponse(st *run, step *Step, out *outcome) error {
	if out.doc == nil {
		doc, err := parseJSONDoc(out.raw)
		if err != nil {
			return &ExpectationError{Msg: err.Error()}
		}
		out.doc = doc
	}

	for name, path := range step.Capture {
		val, ok, err := jsonPathGet(out.doc, path)
		if err != nil {
			return &ExpectationError{Msg: fmt.Sprintf("capture %q: %v", name, err)}
		}
		if !ok {
			return expectErr(path, "capture %q: no match found", name)
		}
		st.vars[name] = fmt.Sprintf("%v", val)
	}

	if len(step.Expect) == 0 {
		return nil
	}
	expanded := make(map[string]any, len(step.Expect))
	for path, expected := range step.Expect {
		v, err := r.expandExpected(st, expected)
		if err != nil {
			return &TemplateError{Err: fmt.Errorf("expect %q: %w", path, err)}
		}
		expanded[path] = v
	}
	return EvaluateAssertions(out.doc, expanded)
}

// expandExpected expands templates in a string expectation or in the
// string operands of an operator map.
func (r *Runner) expandExpected(st *run, expected any) (any, error) {
	switch v := expected.(type) {
	case string:
		return ExpandTemplates(v, st.vars, st.target())
	case map[string]any:
		out := make(map[string]any, len(v))
		for op, operand := range v {
			if s, ok := operand.(string); ok && op != "regex" {
				e, err := ExpandTemplates(s, st.vars, st.target())
				if err != nil {
					return nil, err
				}
				out[op] = e
				continue
			}
			out[op] = operand
		}
		return out, nil
	default:
		return expected, nil
	}
}

// token returns the bearer token of the step's acting role.
func (st *run) token(step *Step) (string, error) {
	role := step.Role
	if role == "" {
		role = defaultRole(step.Action)
	}
	tok := st.tokens[role]
	if tok == "" {
		return "", &PreconditionError{Msg: fmt.Sprintf("no %s session: log in as %s first", role, role)}
	}
	return tok, nil
}

// target is the assignment later steps compare against: the one actually
// submitted, or the checklist's own when nothing was submitted yet.
func (st *run) target() *api.Assignment {
	if st.assignment != nil {
		return st.assignment
	}
	if st.checklist.Assignment == nil {
		return nil
	}
	a, err := expandAssignment(st.checklist.Assignment, st.vars)
	if err != nil {
		return st.checklist.Assignment
	}
	return a
}
