package runner

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Result is the aggregate outcome the external runner reports.
type Result struct {
	Failed           bool               `json:"failed"`
	FailedTests      []string           `json:"failed_tests"`
	Durations        map[string]float64 `json:"durations,omitempty"` // seconds per test id
	ShallowTemplates []string           `json:"shallow_tested_templates,omitempty"`
}

// resultsSchema pins the shape of the runner's results file. The runner is a
// separate codebase; validating here turns a drifted contract into one clear
// error instead of a zero-valued Result.
const resultsSchema = `{
  "type": "object",
  "required": ["failed", "failed_tests"],
  "properties": {
    "failed": {"type": "boolean"},
    "failed_tests": {
      "type": "array",
      "items": {"type": "string"}
    },
    "durations": {
      "type": "object",
      "additionalProperties": {"type": "number", "minimum": 0}
    },
    "shallow_tested_templates": {
      "type": "array",
      "items": {"type": "string"}
    }
  }
}`

// ParseResults validates and decodes a runner results file.
func ParseResults(data []byte) (*Result, error) {
	schema := gojsonschema.NewStringLoader(resultsSchema)
	doc := gojsonschema.NewBytesLoader(data)

	validation, err := gojsonschema.Validate(schema, doc)
	if err != nil {
		return nil, fmt.Errorf("validating results file: %w", err)
	}
	if !validation.Valid() {
		first := validation.Errors()[0]
		return nil, fmt.Errorf("results file does not match the runner contract: %s", first)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding results file: %w", err)
	}
	return &result, nil
}
