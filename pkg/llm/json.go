package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// codeFenceMarkers are removed literally from responses before the object scan.
// The language-tagged marker goes first so its tag does not survive the bare-fence pass.
var codeFenceMarkers = []string{"```json", "```"}

// objectSpanPattern matches greedily from the first '{' to the last '}', across newlines.
// Two sibling objects in one response are captured together and then fail to parse.
var objectSpanPattern = regexp.MustCompile(`(?s)\{.*\}`)

// StripCodeFences removes markdown code fence markers and surrounding whitespace.
func StripCodeFences(response string) string {
	cleaned := response
	for _, marker := range codeFenceMarkers {
		cleaned = strings.ReplaceAll(cleaned, marker, "")
	}
	return strings.TrimSpace(cleaned)
}

// ExtractJSON returns the JSON candidate in an LLM response: the span from the first
// '{' to the last '}' after code fences are stripped, or the whole cleaned text when
// no such span exists. The candidate is not validated.
func ExtractJSON(response string) (string, error) {
	cleaned := StripCodeFences(response)
	if span := objectSpanPattern.FindString(cleaned); span != "" {
		return span, nil
	}
	if cleaned == "" {
		return "", fmt.Errorf("empty response")
	}
	return cleaned, nil
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into the target.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}

// ParseJSONObject extracts a JSON object from a response, keeping field values raw.
// Arrays, scalars and null are rejected.
func ParseJSONObject(response string) (map[string]json.RawMessage, error) {
	obj, err := ParseJSONResponse[map[string]json.RawMessage](response)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	return obj, nil
}
