package checklist

import (
	"testing"

	"github.com/acharya-hq/smokecheck/internal/api"
)

func TestExpandTemplates(t *testing.T) {
	t.Setenv("SMOKECHECK_TEST_COMPANY", "Initech")

	vars := map[string]string{
		"test_id":   "65f0c0ffee0123456789abcd",
		"candidate": "candidate1",
		"quoted":    `a "b" & <c>`,
	}
	a := &api.Assignment{
		Candidate:   "candidate1",
		CompanyName: "Google",
		TestType:    "Technical Assessment",
		Duration:    30,
		Questions:   []api.Question{{Question: "q1"}, {Question: "q2"}},
	}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "no template", input: "plain", want: "plain"},
		{name: "run variable", input: "/tests/{{test_id}}", want: "/tests/65f0c0ffee0123456789abcd"},
		{name: "spaces inside braces", input: "{{ candidate }}", want: "candidate1"},
		{name: "env", input: "{{env.SMOKECHECK_TEST_COMPANY}}", want: "Initech"},
		{name: "unset env renders empty", input: "[{{env.SMOKECHECK_TEST_UNSET}}]", want: "[]"},
		{name: "assignment field", input: "{{assignment.companyName}}", want: "Google"},
		{name: "assignment numbers", input: "{{assignment.duration}}/{{assignment.questionCount}}", want: "30/2"},
		{name: "values are not escaped", input: "{{quoted}}", want: `a "b" & <c>`},
		{name: "unknown variable", input: "{{nope}}", wantErr: true},
		{name: "unknown assignment field", input: "{{assignment.salary}}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandTemplates(tt.input, vars, a)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExpandTemplates() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ExpandTemplates() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpandTemplates_NoAssignment(t *testing.T) {
	if _, err := ExpandTemplates("{{assignment.companyName}}", nil, nil); err == nil {
		t.Fatal("expected error when no assignment is known")
	}
}

func TestExpandAssignment(t *testing.T) {
	t.Setenv("SMOKECHECK_TEST_CANDIDATE", "candidate7")

	in := &api.Assignment{
		Candidate:   "{{env.SMOKECHECK_TEST_CANDIDATE}}",
		CompanyName: "{{company}}",
		TestType:    "Technical Assessment",
		Duration:    45,
		Questions: []api.Question{
			{Question: "What does {{ message }} render in Vue?", CorrectAnswer: "{{capital}}"},
		},
	}
	vars := map[string]string{"company": "Google", "country": "France", "capital": "Paris"}

	got, err := expandAssignment(in, vars)
	if err != nil {
		t.Fatalf("expandAssignment() error: %v", err)
	}
	if got.Candidate != "candidate7" || got.CompanyName != "Google" || got.Duration != 45 {
		t.Errorf("unexpected assignment: %+v", got)
	}
	want := api.Question{Question: "What does {{ message }} render in Vue?", CorrectAnswer: "{{capital}}"}
	if got.Questions[0] != want {
		t.Errorf("question text must be sent verbatim, got %+v", got.Questions[0])
	}
	if in.CompanyName != "{{company}}" {
		t.Error("expandAssignment modified its input")
	}
	got.Questions[0].Question = "changed"
	if in.Questions[0].Question != want.Question {
		t.Error("expandAssignment shares the questions slice with its input")
	}

	in.TestType = "{{missing}}"
	if _, err := expandAssignment(in, vars); err == nil {
		t.Error("expected error for unresolved field")
	}
}
