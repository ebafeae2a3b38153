// Package source provides the document model for the rule corpus and the
// discovery and watching helpers that feed it into the pipeline.
package source

import (
	"path"
	"strings"
)

// Recognized header fields.
const (
	FieldDescription = "description"
	FieldPaths       = "paths"
	FieldAlwaysApply = "alwaysApply"
	FieldName        = "name"
)

// Kind discriminates between rule and skill documents.
type Kind string

// KindRule and KindSkill enumerate the document kinds discovery can assign.
const (
	KindRule  Kind = "rule"
	KindSkill Kind = "skill"
)

// ValueKind identifies the shape of a header value.
type ValueKind int

// The closed set of header value shapes.
const (
	ValueString ValueKind = iota
	ValueBool
	ValueList
)

// String returns a human-readable name for the value kind.
func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "string"
	case ValueBool:
		return "bool"
	case ValueList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a single header field value: a string, a bool, or a list of strings.
type Value struct {
	kind ValueKind
	str  string
	b    bool
	list []string
}

// String creates a string value.
func String(s string) Value {
	return Value{kind: ValueString, str: s}
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	return Value{kind: ValueBool, b: b}
}

// List creates a list value. The items are copied.
func List(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: ValueList, list: cp}
}

// Kind returns the value's shape.
func (v Value) Kind() ValueKind {
	return v.kind
}

// AsString returns the string payload and whether the value is a string.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == ValueString
}

// AsBool returns the bool payload and whether the value is a bool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == ValueBool
}

// AsList returns a copy of the list payload and whether the value is a list.
func (v Value) AsList() ([]string, bool) {
	if v.kind != ValueList {
		return nil, false
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp, true
}

// Field is a single key/value pair in a header.
type Field struct {
	Key   string
	Value Value
}

// Header is an ordered mapping of field names to values.
// The zero value is an empty header ready to use.
type Header struct {
	fields []Field
}

// NewHeader creates a header from fields in order. Later duplicates replace
// earlier values in place.
func NewHeader(fields ...Field) *Header {
	h := &Header{}
	for _, f := range fields {
		h.Set(f.Key, f.Value)
	}
	return h
}

// Len returns the number of fields.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.fields)
}

// Fields returns a copy of the fields in order.
func (h *Header) Fields() []Field {
	if h == nil {
		return nil
	}
	out := make([]Field, len(h.fields))
	copy(out, h.fields)
	return out
}

// Get returns the value stored under key.
func (h *Header) Get(key string) (Value, bool) {
	if h == nil {
		return Value{}, false
	}
	for _, f := range h.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether key is present.
func (h *Header) Has(key string) bool {
	_, ok := h.Get(key)
	return ok
}

// Set stores value under key, keeping the original position if the key exists.
func (h *Header) Set(key string, value Value) {
	for i := range h.fields {
		if h.fields[i].Key == key {
			h.fields[i].Value = value
			return
		}
	}
	h.fields = append(h.fields, Field{Key: key, Value: value})
}

// Delete removes key if present.
func (h *Header) Delete(key string) {
	for i := range h.fields {
		if h.fields[i].Key == key {
			h.fields = append(h.fields[:i], h.fields[i+1:]...)
			return
		}
	}
}

// Clone returns an independent copy of the header.
func (h *Header) Clone() *Header {
	if h == nil {
		return nil
	}
	return &Header{fields: h.Fields()}
}

// StringField returns the string value of key, or "" when absent or not a string.
func (h *Header) StringField(key string) string {
	v, ok := h.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

// RawDocument is a source file as produced by discovery, before decoding.
type RawDocument struct {
	// ID is the slash-separated path relative to the corpus root.
	ID string `json:"id"`

	// Kind is the document kind inferred from its location.
	Kind Kind `json:"kind"`

	// Content is the raw file content.
	Content string `json:"content"`
}

// Document is a decoded source document.
type Document struct {
	// ID is an opaque hierarchical identifier used only for naming decisions.
	ID string `json:"id"`

	// Kind is the document kind.
	Kind Kind `json:"kind"`

	// Header holds the parsed header fields; nil when the document has no header.
	Header *Header `json:"-"`

	// Body is the content following the header block.
	Body string `json:"body"`
}

// HasHeader returns true if the document carried a header block.
func (d *Document) HasHeader() bool {
	return d.Header != nil
}

// Description returns the description field and whether it was set.
func (d *Document) Description() (string, bool) {
	v, ok := d.Header.Get(FieldDescription)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Paths returns the glob patterns the document is scoped to.
func (d *Document) Paths() []string {
	v, ok := d.Header.Get(FieldPaths)
	if !ok {
		return nil
	}
	if list, ok := v.AsList(); ok {
		return list
	}
	if s, ok := v.AsString(); ok {
		return SplitPatterns(s)
	}
	return nil
}

// AlwaysApply reports whether alwaysApply is literally true.
func (d *Document) AlwaysApply() bool {
	v, ok := d.Header.Get(FieldAlwaysApply)
	if !ok {
		return false
	}
	b, isBool := v.AsBool()
	return isBool && b
}

// BaseName returns the last element of the ID without its extension.
func (d *Document) BaseName() string {
	return BaseName(d.ID)
}

// BaseName returns the last element of a slash-separated ID without its extension.
func BaseName(id string) string {
	base := path.Base(id)
	return strings.TrimSuffix(base, path.Ext(base))
}

// GroupName returns the identifier of the directory directly owning id, or
// "" when id has no parent directory.
func GroupName(id string) string {
	dir := path.Dir(id)
	if dir == "." || dir == "/" {
		return ""
	}
	return path.Base(dir)
}

// SplitPatterns splits a comma-separated pattern string into trimmed,
// non-empty patterns.
func SplitPatterns(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
