package checklist

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/aymerick/raymond"

	"github.com/acharya-hq/smokecheck/internal/api"
)

// templateExpr matches simple {{path}} expressions. Block helpers and other
// handlebars constructs are left to raymond.
var templateExpr = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\s*\}\}`)

// ExpandTemplates renders the handlebars placeholders in s:
//   - {{env.VARIABLE}} from environment variables
//   - {{assignment.companyName}} and the other assignment fields
//   - {{variable_name}} from run variables
//
// A placeholder that resolves to nothing is an error.
func ExpandTemplates(s string, vars map[string]string, a *api.Assignment) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}

	ctx := make(map[string]any, len(vars)+2)
	for k, v := range vars {
		ctx[k] = raymond.SafeString(v)
	}
	env := make(map[string]any)
	ctx["env"] = env
	if a != nil {
		ctx["assignment"] = map[string]any{
			"candidate":     raymond.SafeString(a.Candidate),
			"companyName":   raymond.SafeString(a.CompanyName),
			"testType":      raymond.SafeString(a.TestType),
			"duration":      raymond.SafeString(strconv.Itoa(a.Duration)),
			"questionCount": raymond.SafeString(strconv.Itoa(len(a.Questions))),
		}
	}

	for _, m := range templateExpr.FindAllStringSubmatch(s, -1) {
		expr := m[1]
		if key, ok := strings.CutPrefix(expr, "env."); ok {
			env[key] = raymond.SafeString(os.Getenv(key))
			continue
		}
		if !resolvable(ctx, expr) {
			return "", fmt.Errorf("unresolved template expression: %q", expr)
		}
	}

	out, err := raymond.Render(s, ctx)
	if err != nil {
		return "", fmt.Errorf("rendering template %q: %w", s, err)
	}
	return out, nil
}

// resolvable reports whether a dotted path names a value in ctx.
func resolvable(ctx map[string]any, expr string) bool {
	var cur any = ctx
	for _, part := range strings.Split(expr, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return false
		}
		if cur, ok = m[part]; !ok {
			return false
		}
	}
	return true
}

// expandAssignment returns a copy of a with templates expanded in the
// candidate, company name and test type. Question and answer text is sent
// verbatim, since technical questions often contain {{...}} themselves.
func expandAssignment(a *api.Assignment, vars map[string]string) (*api.Assignment, error) {
	out := *a
	out.Questions = append([]api.Question(nil), a.Questions...)

	fields := []struct {
		name string
		dst  *string
	}{
		{"candidate", &out.Candidate},
		{"companyName", &out.CompanyName},
		{"testType", &out.TestType},
	}
	for _, f := range fields {
		v, err := ExpandTemplates(*f.dst, vars, nil)
		if err != nil {
			return nil, fmt.Errorf("assignment %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return &out, nil
}
