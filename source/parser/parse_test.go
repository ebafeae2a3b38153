package parser

import (
	"errors"
	"testing"

	"github.com/c360studio/rulekit/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Document(t *testing.T) {
	raw := "---\ndescription: Auth rules\nalwaysApply: true\n---\nAlways check tokens.\n"

	doc, err := Parse("rules/auth.md", source.KindRule, raw)
	require.NoError(t, err)

	assert.Equal(t, "rules/auth.md", doc.ID)
	assert.Equal(t, source.KindRule, doc.Kind)
	assert.True(t, doc.HasHeader())
	assert.True(t, doc.AlwaysApply())
	desc, ok := doc.Description()
	assert.True(t, ok)
	assert.Equal(t, "Auth rules", desc)
	assert.Equal(t, "Always check tokens.\n", doc.Body)
}

func TestParse_NoHeader(t *testing.T) {
	doc, err := ParseRaw(source.RawDocument{ID: "rules/plain.md", Kind: source.KindRule, Content: "just text"})
	require.NoError(t, err)
	assert.False(t, doc.HasHeader())
	assert.Equal(t, "just text", doc.Body)
}

func TestParse_InvalidFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"description bool", "---\ndescription: true\n---\n"},
		{"name list", "---\nname: [a]\n---\n"},
		{"alwaysApply string", "---\nalwaysApply: yes\n---\n"},
		{"paths bool", "---\npaths: false\n---\n"},
		{"paths bad glob", "---\npaths:\n  - \"src/[a-\"\n---\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("rules/x.md", source.KindRule, tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidField))
			assert.True(t, errors.Is(err, ErrDecode))
			assert.Contains(t, err.Error(), "rules/x.md")
		})
	}
}

func TestParse_PathsAsCommaString(t *testing.T) {
	doc, err := Parse("rules/x.md", source.KindRule, "---\npaths: a/**, b/**\n---\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/**", "b/**"}, doc.Paths())
}

func TestParse_UnknownFieldsAreNotValidated(t *testing.T) {
	doc, err := Parse("rules/x.md", source.KindRule, "---\nseverity: true\nowners: [a, b]\n---\n")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Header.Len())
}

func TestParse_DecodeErrorMentionsID(t *testing.T) {
	_, err := Parse("rules/broken.md", source.KindRule, "---\ndescription: x\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
	assert.False(t, errors.Is(err, ErrInvalidField))
	assert.Contains(t, err.Error(), "rules/broken.md")
}
