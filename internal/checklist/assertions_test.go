package checklist

import (
	"errors"
	"testing"
)

func TestEvaluateAssertions(t *testing.T) {
	doc, err := parseJSONDoc([]byte(`{
		"success": true,
		"test_id": "65f0c0ffee0123456789abcd",
		"count": 42,
		"message": "Company test assigned successfully",
		"test": {"companyName": "Google", "questions": [{"question": "a"}, {"question": "b"}]}
	}`))
	if err != nil {
		t.Fatalf("parseJSONDoc() error: %v", err)
	}

	tests := []struct {
		name       string
		assertions map[string]any
		wantErr    bool
	}{
		{"string match", map[string]any{"$.test.companyName": "Google"}, false},
		{"bool match", map[string]any{"$.success": true}, false},
		{"numeric match", map[string]any{"$.count": float64(42)}, false},
		{"int expected matches float actual", map[string]any{"$.count": 42}, false},
		{"string mismatch", map[string]any{"$.test.companyName": "Amazon"}, true},
		{"number vs string", map[string]any{"$.count": "42"}, true},
		{"missing field", map[string]any{"$.missing": "value"}, true},
		{"eq operator", map[string]any{"$.count": map[string]any{"eq": 42}}, false},
		{"gte passes", map[string]any{"$.count": map[string]any{"gte": 42}}, false},
		{"gte fails", map[string]any{"$.count": map[string]any{"gte": 100}}, true},
		{"lte passes", map[string]any{"$.count": map[string]any{"lte": 100}}, false},
		{"lte fails", map[string]any{"$.count": map[string]any{"lte": 10}}, true},
		{"gte on string", map[string]any{"$.message": map[string]any{"gte": 1}}, true},
		{"contains", map[string]any{"$.message": map[string]any{"contains": "assigned"}}, false},
		{"contains fails", map[string]any{"$.message": map[string]any{"contains": "rejected"}}, true},
		{"regex", map[string]any{"$.test_id": map[string]any{"regex": `^[0-9a-f]{24}$`}}, false},
		{"regex fails", map[string]any{"$.test_id": map[string]any{"regex": `^\d+$`}}, true},
		{"invalid regex", map[string]any{"$.test_id": map[string]any{"regex": `(`}}, true},
		{"len of string", map[string]any{"$.test_id": map[string]any{"len": 24}}, false},
		{"len of array", map[string]any{"$.test.questions": map[string]any{"len": 2}}, false},
		{"len mismatch", map[string]any{"$.test.questions": map[string]any{"len": 3}}, true},
		{"len of number", map[string]any{"$.count": map[string]any{"len": 2}}, true},
		{"exists", map[string]any{"$.test_id": map[string]any{"exists": true}}, false},
		{"exists fails", map[string]any{"$.nope": map[string]any{"exists": true}}, true},
		{"not exists", map[string]any{"$.nope": map[string]any{"exists": false}}, false},
		{"not exists fails", map[string]any{"$.test_id": map[string]any{"exists": false}}, true},
		{"exists needs bool", map[string]any{"$.test_id": map[string]any{"exists": "yes"}}, true},
		{"unknown operator", map[string]any{"$.count": map[string]any{"between": 1}}, true},
		{"operator on missing", map[string]any{"$.nope": map[string]any{"len": 1}}, true},
		{"several operators", map[string]any{"$.count": map[string]any{"gte": 40, "lte": 50}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EvaluateAssertions(doc, tt.assertions)
			if (err != nil) != tt.wantErr {
				t.Errorf("EvaluateAssertions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var expErr *ExpectationError
				if !errors.As(err, &expErr) {
					t.Errorf("error %v is %T, want *ExpectationError", err, err)
				}
			}
		})
	}
}

func TestParseJSONDoc_Invalid(t *testing.T) {
	if _, err := parseJSONDoc([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON body")
	}
}

func TestEvaluateAssertions_FirstFailureIsStable(t *testing.T) {
	doc := map[string]any{"a": "x", "b": "y"}
	assertions := map[string]any{"$.b": "nope", "$.a": "nope"}

	for i := 0; i < 20; i++ {
		err := EvaluateAssertions(doc, assertions)
		var expErr *ExpectationError
		if !errors.As(err, &expErr) {
			t.Fatalf("expected *ExpectationError, got %v", err)
		}
		if expErr.Path != "$.a" {
			t.Fatalf("first failure path = %q, want $.a", expErr.Path)
		}
	}
}

func TestJSONPathGet(t *testing.T) {
	doc, err := parseJSONDoc([]byte(`{"tests": [{"id": "t1", "questions": [{"question": "q"}]}]}`))
	if err != nil {
		t.Fatalf("parseJSONDoc() error: %v", err)
	}

	got, ok, err := jsonPathGet(doc, "$.tests[0].id")
	if err != nil || !ok {
		t.Fatalf("jsonPathGet() = %v, %v, %v", got, ok, err)
	}
	if got != "t1" {
		t.Errorf("got %v, want t1", got)
	}

	if _, ok, err := jsonPathGet(doc, "$.tests[0].missing"); err != nil || ok {
		t.Errorf("missing path: ok = %v, err = %v; want false, nil", ok, err)
	}
	if _, _, err := jsonPathGet(doc, "tests[0].id"); err == nil {
		t.Error("expected error for a path without the $ root")
	}
}
