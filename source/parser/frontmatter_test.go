package parser

import (
	"errors"
	"testing"

	"github.com/c360studio/rulekit/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_NoHeader(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"plain markdown", "# Hello World\n\nSome content.\n"},
		{"empty", ""},
		{"thematic break later", "intro\n---\nmore\n"},
		{"four dashes", "----\ntitle: x\n----\n"},
		{"crlf body", "line one\r\nline two\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, body, err := Decode(tt.raw)
			require.NoError(t, err)
			assert.Nil(t, header)
			assert.Equal(t, tt.raw, body)
		})
	}
}

func TestDecode_WithHeader(t *testing.T) {
	raw := `---
description: Go error handling guidelines
paths:
  - "**/*.go"
  - handlers/*.go
alwaysApply: false
severity: error
---
# Error Handling

Always wrap errors.
`

	header, body, err := Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, header)

	assert.Equal(t, "Go error handling guidelines", header.StringField("description"))

	paths, ok := header.Get("paths")
	require.True(t, ok)
	items, isList := paths.AsList()
	require.True(t, isList)
	assert.Equal(t, []string{"**/*.go", "handlers/*.go"}, items)

	always, _ := header.Get("alwaysApply")
	b, isBool := always.AsBool()
	assert.True(t, isBool)
	assert.False(t, b)

	assert.Equal(t, "error", header.StringField("severity"))
	assert.Equal(t, "# Error Handling\n\nAlways wrap errors.\n", body)

	keys := make([]string, 0, header.Len())
	for _, f := range header.Fields() {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"description", "paths", "alwaysApply", "severity"}, keys)
}

func TestDecode_Scalars(t *testing.T) {
	tests := []struct {
		name string
		line string
		want source.Value
	}{
		{"plain string", "k: hello world", source.String("hello world")},
		{"colon in value", "k: a: b", source.String("a: b")},
		{"bool true", "k: true", source.Bool(true)},
		{"bool capitalised", "k: False", source.Bool(false)},
		{"quoted bool is string", `k: "true"`, source.String("true")},
		{"single quoted", "k: 'it''s'", source.String("it's")},
		{"escaped double quoted", `k: "a\tb"`, source.String("a\tb")},
		{"flow list", "k: [a/**, 'b/**']", source.List("a/**", "b/**")},
		{"empty flow list", "k: []", source.List()},
		{"bracket prefix only", "k: [WIP] notes", source.String("[WIP] notes")},
		{"bare key", "k:", source.String("")},
		{"unquoted glob", "k: **/*.ts", source.String("**/*.ts")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, _, err := Decode("---\n" + tt.line + "\n---\n")
			require.NoError(t, err)
			got, ok := header.Get("k")
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_CRLF(t *testing.T) {
	raw := "---\r\ndescription: Windows\r\npaths:\r\n  - a/**\r\n---\r\nbody\r\n"

	header, body, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "Windows", header.StringField("description"))
	paths, _ := header.Get("paths")
	items, _ := paths.AsList()
	assert.Equal(t, []string{"a/**"}, items)
	assert.Equal(t, "body\r\n", body)
}

func TestDecode_SkipsCommentsAndBlankLines(t *testing.T) {
	raw := "---\n# owned by platform team\n\ndescription: x\n---\n"

	header, body, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, header.Len())
	assert.Equal(t, "", body)
}

func TestDecode_EmptyHeader(t *testing.T) {
	header, body, err := Decode("---\n---\nbody")
	require.NoError(t, err)
	require.NotNil(t, header)
	assert.Equal(t, 0, header.Len())
	assert.Equal(t, "body", body)
}

func TestDecode_ClosingDelimiterAtEOF(t *testing.T) {
	header, body, err := Decode("---\ndescription: x\n---")
	require.NoError(t, err)
	assert.Equal(t, "x", header.StringField("description"))
	assert.Equal(t, "", body)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		line int
	}{
		{"unterminated", "---\ndescription: x\nbody text\n", 1},
		{"delimiter only", "---", 1},
		{"missing colon", "---\njust words\n---\n", 2},
		{"empty key", "---\n: value\n---\n", 2},
		{"duplicate key", "---\na: 1\na: 2\n---\n", 3},
		{"nested mapping", "---\nouter:\n  inner: x\n---\n", 3},
		{"flow mapping", "---\nouter: {a: b}\n---\n", 2},
		{"item without key", "---\n- orphan\n---\n", 2},
		{"item after scalar", "---\na: 1\n  - b\n---\n", 3},
		{"bad quote", "---\na: \"open\n---\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecode))

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tt.line, decodeErr.Line)
		})
	}
}

func TestEncode_NilHeader(t *testing.T) {
	assert.Equal(t, "body only\n", Encode(nil, "body only\n", SequenceNative))
}

func TestEncode_Native(t *testing.T) {
	header := source.NewHeader(
		source.Field{Key: "description", Value: source.String("Go rules")},
		source.Field{Key: "globs", Value: source.List("a/**", "b/**")},
		source.Field{Key: "alwaysApply", Value: source.Bool(false)},
		source.Field{Key: "empty", Value: source.List()},
	)

	got := Encode(header, "Body\n", SequenceNative)

	want := `---
description: Go rules
globs:
  - a/**
  - b/**
alwaysApply: false
empty: []
---
Body
`
	assert.Equal(t, want, got)
}

func TestEncode_Flattened(t *testing.T) {
	header := source.NewHeader(
		source.Field{Key: "globs", Value: source.List("a/**", "b/**")},
	)

	got := Encode(header, "", SequenceFlattened)
	assert.Equal(t, "---\nglobs: a/**, b/**\n---\n", got)
}

func TestEncode_QuotesAmbiguousScalars(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"", `k: ""`},
		{"true", `k: "true"`},
		{" padded", `k: " padded"`},
		{"[not a list]", `k: "[not a list]"`},
		{"#hash", `k: "#hash"`},
		{"two\nlines", `k: "two\nlines"`},
		{"plain: text", `k: plain: text`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			header := source.NewHeader(source.Field{Key: "k", Value: source.String(tt.value)})
			got := Encode(header, "", SequenceNative)
			assert.Equal(t, "---\n"+tt.want+"\n---\n", got)
		})
	}
}

func TestFlattenedRoundTripYieldsString(t *testing.T) {
	header := source.NewHeader(
		source.Field{Key: "globs", Value: source.List("a/**", "b/**")},
	)

	decoded, body, err := Decode(Encode(header, "text", SequenceFlattened))
	require.NoError(t, err)
	assert.Equal(t, "text", body)

	got, ok := decoded.Get("globs")
	require.True(t, ok)
	assert.Equal(t, source.ValueString, got.Kind())
	s, _ := got.AsString()
	assert.Equal(t, "a/**, b/**", s)
}

func TestNativeRoundTrip_Examples(t *testing.T) {
	headers := []*source.Header{
		source.NewHeader(),
		source.NewHeader(
			source.Field{Key: "description", Value: source.String(`quote "inside" and \ slash`)},
			source.Field{Key: "paths", Value: source.List("", " spaced ", "'single", "- dash", "#hash", "true")},
			source.Field{Key: "alwaysApply", Value: source.Bool(true)},
		),
		source.NewHeader(
			source.Field{Key: "note", Value: source.String("{braces}")},
			source.Field{Key: "tabs", Value: source.String("a\tb")},
		),
	}

	for _, h := range headers {
		raw := Encode(h, "---\nbody with a delimiter inside\n", SequenceNative)
		decoded, body, err := Decode(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, h, decoded)
		assert.Equal(t, "---\nbody with a delimiter inside\n", body)
	}
}
