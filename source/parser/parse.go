package parser

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/rulekit/source"
)

// ErrInvalidField marks a recognized header field whose value has the wrong
// shape. Errors wrapping it also match ErrDecode.
var ErrInvalidField = errors.New("invalid header field")

// Parse decodes raw into a document and checks the recognized fields.
func Parse(id string, kind source.Kind, raw string) (*source.Document, error) {
	header, body, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	if err := ValidateHeader(header); err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	return &source.Document{
		ID:     id,
		Kind:   kind,
		Header: header,
		Body:   body,
	}, nil
}

// ParseRaw parses a discovered document.
func ParseRaw(raw source.RawDocument) (*source.Document, error) {
	return Parse(raw.ID, raw.Kind, raw.Content)
}

// ValidateHeader checks that recognized fields carry the expected shapes.
// Unrecognized fields are never checked.
func ValidateHeader(h *source.Header) error {
	for _, f := range h.Fields() {
		switch f.Key {
		case source.FieldDescription, source.FieldName:
			if f.Value.Kind() != source.ValueString {
				return fieldError(f, "expected a string")
			}

		case source.FieldAlwaysApply:
			if f.Value.Kind() != source.ValueBool {
				return fieldError(f, "expected true or false")
			}

		case source.FieldPaths:
			var patterns []string
			switch f.Value.Kind() {
			case source.ValueList:
				patterns, _ = f.Value.AsList()
			case source.ValueString:
				s, _ := f.Value.AsString()
				patterns = source.SplitPatterns(s)
			default:
				return fieldError(f, "expected a list of glob patterns")
			}
			for _, p := range patterns {
				if !doublestar.ValidatePattern(p) {
					return fieldError(f, fmt.Sprintf("invalid glob pattern %q", p))
				}
			}
		}
	}
	return nil
}

func fieldError(f source.Field, msg string) error {
	return fmt.Errorf("%w: %w: %s: %s (got %s)", ErrDecode, ErrInvalidField, f.Key, msg, f.Value.Kind())
}
