package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors for programmatic checks via errors.Is().
var (
	// ErrDecode indicates the input was not syntactically valid JSON.
	ErrDecode = errors.New("decode error")

	// ErrSchema indicates a structural violation: missing field, wrong type
	// or malformed nested value.
	ErrSchema = errors.New("schema error")

	// ErrReference indicates an integrity violation found by CheckIntegrity:
	// empty or duplicate node ids, dangling relationship endpoints.
	ErrReference = errors.New("reference error")
)

// Code classifies a ValidationError.
type Code string

const (
	CodeInvalidJSON    Code = "invalid_json"
	CodeInvalidType    Code = "invalid_type"
	CodeRequired       Code = "required"
	CodeInvalidValue   Code = "invalid_value"
	CodeEmptyID        Code = "empty_id"
	CodeDuplicateID    Code = "duplicate_id"
	CodeDanglingSource Code = "dangling_source"
	CodeDanglingTarget Code = "dangling_target"
)

// Segment is one step of a Path: either a field name or an array index.
type Segment struct {
	Field   string
	Index   int
	isIndex bool
}

// Field returns a field-name segment.
func Field(name string) Segment { return Segment{Field: name} }

// Index returns an array-index segment.
func Index(i int) Segment { return Segment{Index: i, isIndex: true} }

// IsIndex reports whether s addresses an array element.
func (s Segment) IsIndex() bool { return s.isIndex }

// Path addresses a value from the document root. The empty path is the root.
type Path []Segment

// Child returns a new path extended by seg. p itself is never modified, so
// sibling paths never share a backing array.
func (p Path) Child(seg Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// String renders p as nodes[2].properties[0].value. The root renders as "".
func (p Path) String() string {
	var b strings.Builder
	for _, seg := range p {
		if seg.isIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Field)
	}
	return b.String()
}

// Dotted renders p with every segment joined by dots, as in
// nodes.2.properties.0.value.
func (p Path) Dotted() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		if seg.isIndex {
			parts[i] = strconv.Itoa(seg.Index)
		} else {
			parts[i] = seg.Field
		}
	}
	return strings.Join(parts, ".")
}

// MarshalJSON encodes p as a mixed array of strings and integers.
func (p Path) MarshalJSON() ([]byte, error) {
	out := make([]any, len(p))
	for i, seg := range p {
		if seg.isIndex {
			out[i] = seg.Index
		} else {
			out[i] = seg.Field
		}
	}
	return json.Marshal(out)
}

// ValidationError is one path-qualified violation.
type ValidationError struct {
	Path    Path   `json:"path"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unwrap maps the error code onto a sentinel.
func (e ValidationError) Unwrap() error {
	switch e.Code {
	case CodeInvalidJSON:
		return ErrDecode
	case CodeEmptyID, CodeDuplicateID, CodeDanglingSource, CodeDanglingTarget:
		return ErrReference
	default:
		return ErrSchema
	}
}

// InvalidError carries every violation of an invalid Result.
type InvalidError struct {
	Errors []ValidationError
}

func (e *InvalidError) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return "invalid graph document"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("invalid graph document: %v", e.Errors[0])
	}
	return fmt.Sprintf("invalid graph document: %v (and %d more)", e.Errors[0], len(e.Errors)-1)
}

func (e *InvalidError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, ve := range e.Errors {
		errs[i] = ve
	}
	return errs
}
