package parser

import (
	"strconv"
	"strings"

	"github.com/c360studio/rulekit/source"
	"gopkg.in/yaml.v3"
)

// SequenceMode selects how list values are serialized.
type SequenceMode int

const (
	// SequenceNative writes lists as indented `- item` lines.
	SequenceNative SequenceMode = iota
	// SequenceFlattened joins list items with ", " into a single scalar.
	// Decoding the result yields a string, not a list.
	SequenceFlattened
)

// ListSeparator joins list items in SequenceFlattened mode.
const ListSeparator = ", "

// String returns a human-readable name for the mode.
func (m SequenceMode) String() string {
	switch m {
	case SequenceNative:
		return "native"
	case SequenceFlattened:
		return "flattened"
	default:
		return "unknown"
	}
}

// Encode renders header and body back into document text. A nil header
// returns body unchanged.
func Encode(header *source.Header, body string, mode SequenceMode) string {
	if header == nil {
		return body
	}

	var sb strings.Builder
	sb.WriteString(Delimiter)
	sb.WriteString("\n")
	for _, f := range header.Fields() {
		writeField(&sb, f, mode)
	}
	sb.WriteString(Delimiter)
	sb.WriteString("\n")
	sb.WriteString(body)
	return sb.String()
}

func writeField(sb *strings.Builder, f source.Field, mode SequenceMode) {
	sb.WriteString(f.Key)
	sb.WriteString(":")

	switch f.Value.Kind() {
	case source.ValueBool:
		b, _ := f.Value.AsBool()
		sb.WriteString(" ")
		sb.WriteString(strconv.FormatBool(b))
		sb.WriteString("\n")

	case source.ValueList:
		items, _ := f.Value.AsList()
		if mode == SequenceFlattened {
			sb.WriteString(" ")
			sb.WriteString(formatScalar(strings.Join(items, ListSeparator)))
			sb.WriteString("\n")
			return
		}
		if len(items) == 0 {
			sb.WriteString(" []\n")
			return
		}
		sb.WriteString("\n")
		for _, item := range items {
			sb.WriteString("  - ")
			sb.WriteString(formatItem(item))
			sb.WriteString("\n")
		}

	default:
		s, _ := f.Value.AsString()
		sb.WriteString(" ")
		sb.WriteString(formatScalar(s))
		sb.WriteString("\n")
	}
}

// formatScalar leaves s plain unless Decode would read it back as something else.
func formatScalar(s string) string {
	if s == "" {
		return quote(s)
	}
	if _, isBool := parseBool(s); isBool {
		return quote(s)
	}
	switch s[0] {
	case '"', '\'', '[', '{', '#':
		return quote(s)
	}
	if needsQuoting(s) {
		return quote(s)
	}
	return s
}

// itemIndicators are characters that YAML readers treat specially at the
// start of a sequence item. Glob items such as **/*.go would otherwise be
// read as aliases.
const itemIndicators = "\"'*&!|>%@`?-:,[]{}#"

func formatItem(s string) string {
	if s == "" || strings.IndexByte(itemIndicators, s[0]) >= 0 || needsQuoting(s) {
		return quote(s)
	}
	return s
}

func needsQuoting(s string) bool {
	if s != strings.TrimSpace(s) {
		return true
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	return false
}

func quote(s string) string {
	node := yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: s}
	out, err := yaml.Marshal(&node)
	if err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(string(out), "\n")
}
