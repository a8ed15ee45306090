package cwxml

import "fmt"

// FormatError is returned when a required element or attribute is missing
// or its text cannot be decoded. It aborts the parse of the enclosing
// document.
type FormatError struct {
	Tag  string
	Attr string
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Attr != "" {
		return fmt.Sprintf("format error in <%s> attribute %q: %s", e.Tag, e.Attr, e.Msg)
	}
	return fmt.Sprintf("format error in <%s>: %s", e.Tag, e.Msg)
}

func formatErrorf(tag, attr, format string, a ...interface{}) *FormatError {
	return &FormatError{Tag: tag, Attr: attr, Msg: fmt.Sprintf(format, a...)}
}

// SchemaError is returned on a structural mismatch between related parts
// of a document, like a vertex data row that disagrees with its layout.
type SchemaError struct {
	Tag string
	Msg string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in <%s>: %s", e.Tag, e.Msg)
}

func schemaErrorf(tag, format string, a ...interface{}) *SchemaError {
	return &SchemaError{Tag: tag, Msg: fmt.Sprintf(format, a...)}
}

// LimitExceeded is reported when an engine hard cap is hit. The offending
// sub-object is dropped while the rest of the asset continues.
type LimitExceeded struct {
	What  string
	Limit int
	Got   int
}

func (e *LimitExceeded) Error() string {
	return fmt.Sprintf("%s limit exceeded: %d > %d", e.What, e.Got, e.Limit)
}

// ReferentialError is a failed cross-reference lookup (bone tag, group
// index, material). The depending sub-object is skipped, not the file.
type ReferentialError struct {
	Kind string
	Name string
	Id   int
}

func (e *ReferentialError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unresolved %s reference %q", e.Kind, e.Name)
	}
	return fmt.Sprintf("unresolved %s reference %d", e.Kind, e.Id)
}
