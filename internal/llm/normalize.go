package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when a model response carries no parseable JSON object.
var ErrNoJSONObject = errors.New("no JSON object in model response")

// ParseObject extracts a JSON object from a model response. The whole text is
// tried first; if that fails, the span from the first '{' to the last '}' is
// tried, which recovers objects wrapped in prose or markdown fences.
// It reports false when neither attempt yields an object.
func ParseObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := DecodeObject(text, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// DecodeObject unmarshals the JSON object found in text into v, using the same
// two attempts as ParseObject.
func DecodeObject(text string, v any) error {
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	span, ok := braceSpan(text)
	if !ok {
		return ErrNoJSONObject
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return errors.Join(ErrNoJSONObject, err)
	}
	return nil
}

// braceSpan returns text from the first '{' through the last '}'.
func braceSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
