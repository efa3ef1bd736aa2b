package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"reward-advisor/domain"
)

// ExtractPayload returns the first balanced top-level object or array literal
// in text that parses as JSON. Prose, code fences and bracketed asides that
// are not JSON are skipped.
func ExtractPayload(text string) (string, error) {
	if len(text) > MaxOracleResponseBytes {
		text = text[:MaxOracleResponseBytes]
	}
	for _, candidate := range findLiteralCandidates(text) {
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}
	return "", domain.ErrNoStructuredPayload
}

// scanStepsPerByte bounds the total work of findLiteralCandidates. Each
// unterminated opener restarts the scan just past it, so hostile input such
// as a run of '[' would otherwise cost quadratic time.
const scanStepsPerByte = 16

// findLiteralCandidates collects balanced literals in order of appearance,
// resuming past any opener that never closes.
func findLiteralCandidates(s string) []string {
	var candidates []string
	budget := scanStepsPerByte*len(s) + 1024
	for pos := 0; pos < len(s) && budget > 0; {
		found, next := scanLiterals(s, pos, &budget)
		candidates = append(candidates, found...)
		pos = next
	}
	return candidates
}

// scanLiterals scans bytes from pos with a small state machine. Quotes are
// only tracked inside a literal so apostrophes and quoted prose outside JSON
// never desynchronize the scan. ASCII delimiters are safe to match bytewise
// in UTF-8. It stops at a mismatched closer or an unterminated opener and
// returns the index just past that opener.
func scanLiterals(s string, pos int, budget *int) ([]string, int) {
	var (
		candidates []string
		stack      []byte
		start      = -1
		inString   bool
		escaped    bool
	)

	for i := pos; i < len(s); i++ {
		if *budget <= 0 {
			return candidates, len(s)
		}
		*budget--
		ch := s[i]

		if len(stack) == 0 {
			if ch == '{' || ch == '[' {
				start = i
				stack = append(stack, ch)
			}
			continue
		}

		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, ch)
		case '}', ']':
			open := stack[len(stack)-1]
			if (ch == '}' && open != '{') || (ch == ']' && open != '[') {
				return candidates, start + 1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				candidates = append(candidates, s[start:i+1])
				start = -1
			}
		}
	}
	if len(stack) > 0 {
		return candidates, start + 1
	}
	return candidates, len(s)
}

// object is a decoded JSON object with keys folded so camelCase, snake_case
// and differently cased spellings of a field resolve alike.
type object map[string]any

func foldKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(k, "_", ""))
}

func decodeLiteral(payload string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSchemaViolation, err)
	}
	return v, nil
}

func asObject(v any, path string) (object, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, schemaErr(path, "expected an object")
	}
	o := make(object, len(m))
	for k, val := range m {
		o[foldKey(k)] = val
	}
	return o, nil
}

func (o object) get(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := o[foldKey(k)]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (o object) str(keys ...string) string {
	v, ok := o.get(keys...)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// number reads a finite number from a JSON number or numeric string.
func (o object) number(path string, keys ...string) (float64, bool, error) {
	v, ok := o.get(keys...)
	if !ok {
		return 0, false, nil
	}
	f, err := parseFinite(v)
	if err != nil {
		return 0, true, schemaErr(path+"."+keys[0], err.Error())
	}
	return f, true, nil
}

func (o object) array(path string, keys ...string) ([]any, error) {
	v, ok := o.get(keys...)
	if !ok {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, schemaErr(path+"."+keys[0], "expected an array")
	}
	return arr, nil
}

func (o object) stringList(path string, keys ...string) ([]string, error) {
	arr, err := o.array(path, keys...)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(arr))
	for i, v := range arr {
		s, ok := v.(string)
		if !ok {
			return nil, schemaErr(fmt.Sprintf("%s.%s[%d]", path, keys[0], i), "expected a string")
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, nil
}

func parseFinite(v any) (float64, error) {
	var raw string
	switch t := v.(type) {
	case json.Number:
		raw = t.String()
	case string:
		raw = strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(t), "$"), ",", "")
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || !finite(f) {
		return 0, fmt.Errorf("%q is not a finite number", raw)
	}
	return f, nil
}

func schemaErr(path, msg string) error {
	return fmt.Errorf("%w: %s: %s", domain.ErrSchemaViolation, path, msg)
}
