package checklist

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/acharya-hq/smokecheck/internal/api"
)

// outcome is what an action hands back for capture, assertions and the report.
type outcome struct {
	raw     []byte
	doc     any // pre-decoded document; set by verify
	summary string
	details []string
}

// perform executes the endpoint call behind step.Action.
func (r *Runner) perform(ctx context.Context, st *run, step *Step) (outcome, error) {
	switch step.Action {
	case ActionLogin:
		return r.login(ctx, st, step)
	case ActionAssign:
		return r.assign(ctx, st, step)
	case ActionList:
		return r.list(ctx, st, step)
	case ActionDetail:
		return r.detail(ctx, st, step)
	case ActionSubmit:
		return r.submit(ctx, st, step)
	case ActionResults:
		return r.results(ctx, st, step)
	case ActionVerify:
		return verify(st, step), nil
	default:
		return outcome{}, fmt.Errorf("unknown action %q", step.Action)
	}
}

func (r *Runner) login(ctx context.Context, st *run, step *Step) (outcome, error) {
	creds, ok := r.creds[step.Role]
	if !ok {
		return outcome{}, &PreconditionError{Msg: fmt.Sprintf("no credentials configured for role %q", step.Role)}
	}
	resp, err := r.svc.Login(ctx, creds)
	if err != nil {
		return outcome{}, err
	}
	if resp.Role != "" && !strings.EqualFold(resp.Role, step.Role) {
		return outcome{raw: resp.Raw}, &ExpectationError{
			Msg: fmt.Sprintf("logged in as %q but the service reports role %q, want %q", creds.Username, resp.Role, step.Role),
		}
	}

	st.tokens[step.Role] = resp.AccessToken
	st.vars[step.Role+"_token"] = resp.AccessToken
	return outcome{
		raw:     resp.Raw,
		summary: cases.Title(language.English).String(step.Role) + " login successful",
	}, nil
}

func (r *Runner) assign(ctx context.Context, st *run, step *Step) (outcome, error) {
	tok, err := st.token(step)
	if err != nil {
		return outcome{}, err
	}
	a, err := expandAssignment(st.checklist.Assignment, st.vars)
	if err != nil {
		return outcome{}, &TemplateError{Err: err}
	}
	resp, err := r.svc.AssignCompanyTest(ctx, tok, *a)
	if err != nil {
		return outcome{}, err
	}

	st.assignment = a
	st.vars["test_id"] = resp.TestID
	return outcome{
		raw:     resp.Raw,
		summary: "Company test assigned successfully! Test ID: " + resp.TestID,
	}, nil
}

func (r *Runner) list(ctx context.Context, st *run, step *Step) (outcome, error) {
	tok, err := st.token(step)
	if err != nil {
		return outcome{}, err
	}
	resp, err := r.svc.ListCompanyTests(ctx, tok)
	if err != nil {
		return outcome{}, err
	}

	out := outcome{
		raw:     resp.Raw,
		summary: fmt.Sprintf("Found %d assigned company tests", len(resp.Tests)),
	}
	if len(resp.Tests) > 0 {
		first := resp.Tests[0]
		out.details = []string{
			"Company: " + first.CompanyName,
			"Type: " + first.TestType,
			fmt.Sprintf("Duration: %d minutes", first.Duration),
			fmt.Sprintf("Questions: %d", len(first.Questions)),
		}
	}

	if step.MatchAssignment {
		want := st.target()
		for _, t := range resp.Tests {
			if t.CompanyName == want.CompanyName && t.TestType == want.TestType && len(t.Questions) == len(want.Questions) {
				return out, nil
			}
		}
		return out, &ExpectationError{Msg: fmt.Sprintf(
			"none of the %d assigned tests is %s / %s with %d questions",
			len(resp.Tests), want.CompanyName, want.TestType, len(want.Questions))}
	}
	return out, nil
}

func (r *Runner) detail(ctx context.Context, st *run, step *Step) (outcome, error) {
	id := st.vars["test_id"]
	tok, err := st.token(step)
	if err != nil {
		return outcome{}, err
	}
	resp, err := r.svc.GetCompanyTest(ctx, tok, id)
	if err != nil {
		return outcome{}, err
	}

	t := resp.Test
	out := outcome{
		raw:     resp.Raw,
		summary: "Test details retrieved successfully!",
		details: []string{
			"Company: " + t.CompanyName,
			"Type: " + t.TestType,
			fmt.Sprintf("Questions: %d", len(t.Questions)),
		},
	}

	if step.MatchAssignment {
		want := st.target()
		switch {
		case t.CompanyName != want.CompanyName:
			return out, &ExpectationError{Msg: fmt.Sprintf("companyName: submitted %q, got %q", want.CompanyName, t.CompanyName)}
		case t.TestType != want.TestType:
			return out, &ExpectationError{Msg: fmt.Sprintf("testType: submitted %q, got %q", want.TestType, t.TestType)}
		case len(t.Questions) != len(want.Questions):
			return out, &ExpectationError{Msg: fmt.Sprintf("questions: submitted %d, got %d", len(want.Questions), len(t.Questions))}
		}
	}
	return out, nil
}

func (r *Runner) submit(ctx context.Context, st *run, step *Step) (outcome, error) {
	id := st.vars["test_id"]
	tok, err := st.token(step)
	if err != nil {
		return outcome{}, err
	}

	answers := st.checklist.Answers
	if len(answers) == 0 {
		for i, q := range st.target().Questions {
			answers = append(answers, api.Answer{QuestionIndex: i, Answer: q.CorrectAnswer})
		}
	}

	resp, err := r.svc.SubmitCompanyTest(ctx, tok, id, answers)
	if err != nil {
		return outcome{}, err
	}

	out := outcome{
		raw:     resp.Raw,
		summary: fmt.Sprintf("Company test submitted successfully! Answers: %d", len(answers)),
	}
	if resp.Score != nil {
		st.vars["score"] = fmt.Sprintf("%g", *resp.Score)
		out.details = []string{fmt.Sprintf("Score: %g", *resp.Score)}
	}
	return out, nil
}

func (r *Runner) results(ctx context.Context, st *run, step *Step) (outcome, error) {
	tok, err := st.token(step)
	if err != nil {
		return outcome{}, err
	}
	candidate := st.target().Candidate
	resp, err := r.svc.CompanyTestResults(ctx, tok, candidate)
	if err != nil {
		return outcome{}, err
	}

	out := outcome{
		raw:     resp.Raw,
		summary: fmt.Sprintf("Found %d company test results for %s", len(resp.Tests), candidate),
	}
	if len(resp.Tests) > 0 {
		first := resp.Tests[0]
		out.details = []string{
			"Company: " + first.CompanyName,
			"Type: " + first.TestType,
		}
		if first.Status != "" {
			out.details = append(out.details, "Status: "+first.Status)
		}
		if first.Score != nil {
			out.details = append(out.details, fmt.Sprintf("Score: %g", *first.Score))
		}
	}
	return out, nil
}

// verify reports the run variables its assertions look at; the
// assertions themselves run in checkResponse against the same document.
func verify(st *run, step *Step) outcome {
	doc := varsDoc(st.vars)
	paths := make([]string, 0, len(step.Expect))
	for p := range step.Expect {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := outcome{doc: doc, summary: "All checks passed"}
	for _, p := range paths {
		val, ok, err := jsonPathGet(doc, p)
		if err != nil || !ok {
			continue
		}
		if s, isStr := val.(string); isStr {
			out.details = append(out.details, fmt.Sprintf("%s: '%s' (length %d)", strings.TrimPrefix(p, "$."), s, len(s)))
		} else {
			out.details = append(out.details, fmt.Sprintf("%s: %v", strings.TrimPrefix(p, "$."), val))
		}
	}
	return out
}
