package generator

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/myrjola/casefile/internal/errors"
)

// ErrNoJSON is returned when model output contains no JSON object.
var ErrNoJSON = errors.NewSentinel("no JSON object in model output")

// ExtractJSON returns the first complete JSON object in text. Models tend to wrap JSON in code fences or prose.
func ExtractJSON(text string) ([]byte, error) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		dec := json.NewDecoder(strings.NewReader(text[start:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return bytes.TrimSpace(raw), nil
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, errors.Wrap(ErrNoJSON, "extract JSON")
}
