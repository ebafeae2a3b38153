// Package parser provides the header codec for rule documents: decoding a
// delimited header block into typed fields plus body, and encoding it back.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/c360studio/rulekit/source"
	"gopkg.in/yaml.v3"
)

// Delimiter opens and closes a header block.
const Delimiter = "---"

// ErrDecode is wrapped by every header decode failure.
var ErrDecode = errors.New("decode header")

// DecodeError locates a decode failure inside the raw text.
type DecodeError struct {
	// Line is the 1-based line number; the opening delimiter is line 1.
	Line int

	// Msg describes the failure.
	Msg string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: line %d: %s", ErrDecode, e.Line, e.Msg)
}

// Unwrap lets errors.Is match ErrDecode.
func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

type headerLine struct {
	num  int
	text string
}

// Decode splits raw into its header and body. When raw does not open with a
// delimiter line, the header is nil and the body is raw unchanged.
func Decode(raw string) (*source.Header, string, error) {
	if !strings.HasPrefix(raw, Delimiter) {
		return nil, raw, nil
	}
	first, rest := cutLine(raw)
	if !isDelimiter(first) {
		return nil, raw, nil
	}

	var lines []headerLine
	num := 1
	for {
		if rest == "" {
			return nil, "", &DecodeError{Line: 1, Msg: "unterminated header block"}
		}
		var line string
		line, rest = cutLine(rest)
		num++
		if isDelimiter(line) {
			break
		}
		lines = append(lines, headerLine{num: num, text: line})
	}

	header, err := decodeFields(lines)
	if err != nil {
		return nil, "", err
	}
	return header, rest, nil
}

// decodeFields parses `key: value` lines and `- item` sequences.
func decodeFields(lines []headerLine) (*source.Header, error) {
	header := &source.Header{}

	var (
		listKey string
		items   []string
	)
	flush := func() {
		if listKey == "" {
			return
		}
		if items == nil {
			header.Set(listKey, source.String(""))
		} else {
			header.Set(listKey, source.List(items...))
		}
		listKey, items = "", nil
	}

	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln.text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if item, ok := listItem(trimmed); ok {
			if listKey == "" {
				return nil, &DecodeError{Line: ln.num, Msg: "sequence item without a key"}
			}
			v, err := decodeItem(item)
			if err != nil {
				return nil, &DecodeError{Line: ln.num, Msg: err.Error()}
			}
			items = append(items, v)
			continue
		}

		if ln.text[0] == ' ' || ln.text[0] == '\t' {
			return nil, &DecodeError{Line: ln.num, Msg: "nested values are not supported"}
		}

		flush()

		key, value, found := strings.Cut(ln.text, ":")
		if !found {
			return nil, &DecodeError{Line: ln.num, Msg: "expected key: value"}
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, &DecodeError{Line: ln.num, Msg: "empty key"}
		}
		if header.Has(key) {
			return nil, &DecodeError{Line: ln.num, Msg: fmt.Sprintf("duplicate key %q", key)}
		}

		value = strings.TrimSpace(value)
		if value == "" {
			listKey = key
			continue
		}
		v, err := decodeScalar(value)
		if err != nil {
			return nil, &DecodeError{Line: ln.num, Msg: err.Error()}
		}
		header.Set(key, v)
	}
	flush()

	return header, nil
}

func decodeScalar(value string) (source.Value, error) {
	if b, ok := parseBool(value); ok {
		return source.Bool(b), nil
	}
	switch value[0] {
	case '"', '\'':
		s, err := unquote(value)
		if err != nil {
			return source.Value{}, err
		}
		return source.String(s), nil
	case '{':
		return source.Value{}, fmt.Errorf("mappings are not supported")
	case '[':
		if strings.HasSuffix(value, "]") {
			return decodeFlowList(value[1 : len(value)-1])
		}
	}
	return source.String(value), nil
}

func decodeFlowList(inner string) (source.Value, error) {
	if strings.TrimSpace(inner) == "" {
		return source.List(), nil
	}
	parts := strings.Split(inner, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		v, err := decodeItem(strings.TrimSpace(part))
		if err != nil {
			return source.Value{}, err
		}
		items = append(items, v)
	}
	return source.List(items...), nil
}

// decodeItem returns a sequence item. Items are always strings.
func decodeItem(item string) (string, error) {
	if item != "" && (item[0] == '"' || item[0] == '\'') {
		return unquote(item)
	}
	return item, nil
}

func unquote(s string) (string, error) {
	var out string
	if err := yaml.Unmarshal([]byte(s), &out); err != nil {
		return "", fmt.Errorf("invalid quoted scalar %s", s)
	}
	return out, nil
}

func listItem(trimmed string) (string, bool) {
	if trimmed == "-" {
		return "", true
	}
	if strings.HasPrefix(trimmed, "- ") {
		return strings.TrimSpace(trimmed[2:]), true
	}
	return "", false
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "true", "True", "TRUE":
		return true, true
	case "false", "False", "FALSE":
		return false, true
	default:
		return false, false
	}
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t") == Delimiter
}

// cutLine returns the first line of s without its terminator and the remainder
// after the newline.
func cutLine(s string) (string, string) {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSuffix(s[:i], "\r"), s[i+1:]
	}
	return strings.TrimSuffix(s, "\r"), ""
}
