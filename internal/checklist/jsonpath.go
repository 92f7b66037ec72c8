package checklist

import (
	"encoding/json"
	"fmt"

	"github.com/oliveagle/jsonpath"
)

// jsonPathGet evaluates a JSONPath expression such as $.test_id or
// $.tests[0].questions against a decoded document. A path that compiles
// but selects nothing reports ok=false.
func jsonPathGet(doc any, path string) (val any, ok bool, err error) {
	compiled, err := jsonpath.Compile(path)
	if err != nil {
		return nil, false, fmt.Errorf("invalid JSONPath %q: %w", path, err)
	}
	val, err = compiled.Lookup(doc)
	if err != nil {
		return nil, false, nil
	}
	return val, true, nil
}

// parseJSONDoc parses a JSON byte slice into a generic structure.
func parseJSONDoc(body []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("response body is not valid JSON: %w", err)
	}
	return doc, nil
}

// varsDoc presents run variables as a JSON object for verify steps.
func varsDoc(vars map[string]string) any {
	doc := make(map[string]any, len(vars))
	for k, v := range vars {
		doc[k] = v
	}
	return doc
}
