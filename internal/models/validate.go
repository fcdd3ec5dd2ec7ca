package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/casefile/internal/errors"
)

// ErrValidation is matched by every [ValidationError].
var ErrValidation = errors.NewSentinel("case validation failed")

// Issue describes a single schema violation.
type Issue struct {
	// Path locates the offending value, e.g. "npcs[0].id".
	Path    string `json:"path"`
	Problem string `json:"problem"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Problem)
}

// ValidationError lists every schema violation found in the input.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	issues := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		issues[i] = issue.String()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(issues, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation //nolint:errorlint // sentinel comparison
}

// LogValue lets slog print the issues as a list.
func (e *ValidationError) LogValue() slog.Value {
	issues := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		issues[i] = issue.String()
	}
	return slog.GroupValue(slog.Any("issues", issues))
}

// Validate types untyped structured data, as produced by decoding JSON into any, into a Case.
//
// Every required field must be present with the expected type. List fields must hold elements of the nested
// shape. Unknown fields are ignored and empty strings are accepted. Cross-references between clues and NPCs are
// not checked here, see [CheckReferences].
func Validate(raw any) (*Case, error) {
	v := validator{}
	obj, ok := raw.(map[string]any)
	if !ok {
		v.fail("$", "expected object, got "+typeName(raw))
		return nil, v.err()
	}

	c := Case{
		CaseID:   v.str(obj, "", "case_id"),
		Crime:    v.str(obj, "", "crime"),
		Victim:   v.str(obj, "", "victim"),
		Location: v.str(obj, "", "location"),
		NPCs:     []NPC{},
		Clues:    []Clue{},
		Solution: v.str(obj, "", "solution"),
	}
	for i, item := range v.list(obj, "", "npcs") {
		prefix := fmt.Sprintf("npcs[%d]", i)
		npcObj, isObj := item.(map[string]any)
		if !isObj {
			v.fail(prefix, "expected object, got "+typeName(item))
			continue
		}
		c.NPCs = append(c.NPCs, NPC{
			ID:          v.str(npcObj, prefix, "id"),
			Name:        v.str(npcObj, prefix, "name"),
			Role:        v.str(npcObj, prefix, "role"),
			Personality: v.str(npcObj, prefix, "personality"),
			Motive:      v.str(npcObj, prefix, "motive"),
			Alibi:       v.str(npcObj, prefix, "alibi"),
		})
	}
	for i, item := range v.list(obj, "", "clues") {
		prefix := fmt.Sprintf("clues[%d]", i)
		clueObj, isObj := item.(map[string]any)
		if !isObj {
			v.fail(prefix, "expected object, got "+typeName(item))
			continue
		}
		clue := Clue{
			ID:           v.str(clueObj, prefix, "id"),
			Description:  v.str(clueObj, prefix, "description"),
			RelatesTo:    []string{},
			LocationHint: v.str(clueObj, prefix, "location_hint"),
		}
		for j, ref := range v.list(clueObj, prefix, "relates_to") {
			s, isStr := ref.(string)
			if !isStr {
				v.fail(fmt.Sprintf("%s.relates_to[%d]", prefix, j), "expected string, got "+typeName(ref))
				continue
			}
			clue.RelatesTo = append(clue.RelatesTo, s)
		}
		c.Clues = append(c.Clues, clue)
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DecodeCase decodes JSON data and validates it with [Validate]. Malformed JSON is reported as a validation error.
func DecodeCase(data []byte) (*Case, error) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	// Keep numbers distinct from strings so that mistyped fields are reported.
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, &ValidationError{Issues: []Issue{{Path: "$", Problem: "malformed JSON: " + err.Error()}}}
	}
	if dec.More() {
		return nil, &ValidationError{Issues: []Issue{{Path: "$", Problem: "trailing data after JSON value"}}}
	}
	return Validate(raw)
}

type validator struct {
	issues []Issue
}

func (v *validator) fail(path, problem string) {
	v.issues = append(v.issues, Issue{Path: path, Problem: problem})
}

func (v *validator) err() error {
	if len(v.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: v.issues}
}

func (v *validator) str(obj map[string]any, prefix, key string) string {
	path := joinPath(prefix, key)
	val, ok := obj[key]
	if !ok {
		v.fail(path, "missing")
		return ""
	}
	s, ok := val.(string)
	if !ok {
		v.fail(path, "expected string, got "+typeName(val))
		return ""
	}
	return s
}

func (v *validator) list(obj map[string]any, prefix, key string) []any {
	path := joinPath(prefix, key)
	val, ok := obj[key]
	if !ok {
		v.fail(path, "missing")
		return nil
	}
	l, ok := val.([]any)
	if !ok {
		v.fail(path, "expected array, got "+typeName(val))
		return nil
	}
	return l
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func typeName(val any) string {
	switch val.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, float32, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", val)
	}
}
