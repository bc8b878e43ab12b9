package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ritzau/promptgraph/pkg/model"
)

// Result is the outcome of validating one input. Exactly one of Document and
// Errors is set.
type Result struct {
	Document *model.GraphDocument
	Errors   []ValidationError
}

// Valid reports whether the input produced a document with no violations.
func (r Result) Valid() bool {
	return r.Document != nil && len(r.Errors) == 0
}

// Err returns nil for a valid result and an *InvalidError otherwise.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &InvalidError{Errors: r.Errors}
}

func (r Result) MarshalJSON() ([]byte, error) {
	errs := r.Errors
	if errs == nil {
		errs = []ValidationError{}
	}
	return json.Marshal(struct {
		Valid    bool                 `json:"valid"`
		Document *model.GraphDocument `json:"document,omitempty"`
		Errors   []ValidationError    `json:"errors"`
	}{r.Valid(), r.Document, errs})
}

// Option adjusts validation.
type Option func(*options)

type options struct {
	integrity bool
}

// WithIntegrity runs CheckIntegrity after a successful structural pass.
func WithIntegrity() Option {
	return func(o *options) { o.integrity = true }
}

// ValidateString validates a raw model response.
func ValidateString(raw string, opts ...Option) Result {
	return Validate(raw, opts...)
}

// Validate turns an untrusted value into a Result. Strings and byte slices are
// fence-stripped and decoded as JSON; json.RawMessage is decoded as is; any
// other value is treated as already decoded. Malformed input is reported in
// Result.Errors and never panics.
func Validate(raw any, opts ...Option) Result {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	value, err := prepare(raw)
	if err != nil {
		return Result{Errors: []ValidationError{{
			Path:    Path{},
			Code:    CodeInvalidJSON,
			Message: err.Error(),
		}}}
	}

	v := &validator{}
	doc := v.document(value)
	if len(v.errs) > 0 {
		return Result{Errors: v.errs}
	}

	if o.integrity {
		if errs := CheckIntegrity(doc); len(errs) > 0 {
			return Result{Errors: errs}
		}
	}
	return Result{Document: doc}
}

// prepare normalises raw into the canonical decoded form: map[string]any,
// []any, string, json.Number, float64, bool or nil.
func prepare(raw any) (any, error) {
	switch x := raw.(type) {
	case json.RawMessage:
		return decode(string(x))
	case string:
		return decode(StripFences(x))
	case []byte:
		return decode(StripFences(string(x)))
	}

	if canonical(raw) {
		return raw, nil
	}

	// Typed Go values (structs, typed maps and slices) are brought into the
	// canonical form through their JSON encoding.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("input is not JSON-encodable: %v", err)
	}
	return decode(string(data))
}

func decode(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("invalid JSON: empty input")
		}
		return nil, fmt.Errorf("invalid JSON: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid JSON: unexpected data after top-level value")
	}
	return value, nil
}

func canonical(v any) bool {
	switch x := v.(type) {
	case nil, string, bool, float64, json.Number:
		return true
	case map[string]any:
		for _, e := range x {
			if !canonical(e) {
				return false
			}
		}
		return true
	case []any:
		for _, e := range x {
			if !canonical(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// validator walks a decoded value and collects every violation.
type validator struct {
	errs []ValidationError
}

func (v *validator) fail(path Path, code Code, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Path:    path,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) typeMismatch(path Path, want string, got any) {
	v.fail(path, CodeInvalidType, "expected %s, received %s", want, typeName(got))
}

func (v *validator) object(path Path, value any) (map[string]any, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		v.typeMismatch(path, "object", value)
	}
	return obj, ok
}

func (v *validator) array(path Path, value any) ([]any, bool) {
	arr, ok := value.([]any)
	if !ok {
		v.typeMismatch(path, "array", value)
	}
	return arr, ok
}

// field returns obj[key], recording a required error when it is absent.
func (v *validator) field(obj map[string]any, path Path, key string) (any, bool) {
	value, ok := obj[key]
	if !ok {
		v.fail(path.Child(Field(key)), CodeRequired, "required")
	}
	return value, ok
}

func (v *validator) str(obj map[string]any, path Path, key string) string {
	value, ok := v.field(obj, path, key)
	if !ok {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		v.typeMismatch(path.Child(Field(key)), "string", value)
	}
	return s
}

func (v *validator) document(value any) *model.GraphDocument {
	root := Path{}
	obj, ok := v.object(root, value)
	if !ok {
		return nil
	}

	doc := &model.GraphDocument{}
	if m, ok := v.field(obj, root, "metadata"); ok {
		doc.Metadata = v.metadata(root.Child(Field("metadata")), m)
	}
	if n, ok := v.field(obj, root, "nodes"); ok {
		doc.Nodes = v.nodes(root.Child(Field("nodes")), n)
	}
	if r, ok := v.field(obj, root, "relationships"); ok {
		doc.Relationships = v.relationships(root.Child(Field("relationships")), r)
	}
	return doc
}

func (v *validator) metadata(path Path, value any) model.GraphMetadata {
	obj, ok := v.object(path, value)
	if !ok {
		return model.GraphMetadata{}
	}
	return model.GraphMetadata{
		Timestamp: v.str(obj, path, "timestamp"),
		Source:    v.str(obj, path, "source"),
		Date:      v.str(obj, path, "date"),
	}
}

func (v *validator) nodes(path Path, value any) []model.GraphNode {
	arr, ok := v.array(path, value)
	if !ok {
		return nil
	}

	nodes := make([]model.GraphNode, 0, len(arr))
	for i, elem := range arr {
		elemPath := path.Child(Index(i))
		obj, ok := v.object(elemPath, elem)
		if !ok {
			continue
		}
		node := model.GraphNode{
			ID:   v.str(obj, elemPath, "id"),
			Type: v.str(obj, elemPath, "type"),
			Name: v.str(obj, elemPath, "name"),
		}
		if props, ok := v.field(obj, elemPath, "properties"); ok {
			node.Properties = v.properties(elemPath.Child(Field("properties")), props)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func (v *validator) relationships(path Path, value any) []model.GraphRelationship {
	arr, ok := v.array(path, value)
	if !ok {
		return nil
	}

	rels := make([]model.GraphRelationship, 0, len(arr))
	for i, elem := range arr {
		elemPath := path.Child(Index(i))
		obj, ok := v.object(elemPath, elem)
		if !ok {
			continue
		}
		rel := model.GraphRelationship{
			SourceID: v.str(obj, elemPath, "source_id"),
			TargetID: v.str(obj, elemPath, "target_id"),
			Type:     v.str(obj, elemPath, "type"),
			Name:     v.str(obj, elemPath, "name"),
		}
		// properties is optional on relationships, but null is not absent.
		if props, ok := obj["properties"]; ok {
			rel.Properties = v.properties(elemPath.Child(Field("properties")), props)
		}
		rels = append(rels, rel)
	}
	return rels
}

func (v *validator) properties(path Path, value any) model.Properties {
	arr, ok := v.array(path, value)
	if !ok {
		return nil
	}

	props := make(model.Properties, 0, len(arr))
	for i, elem := range arr {
		elemPath := path.Child(Index(i))
		obj, ok := v.object(elemPath, elem)
		if !ok {
			continue
		}
		prop := model.Property{Key: v.str(obj, elemPath, "key")}
		if raw, ok := v.field(obj, elemPath, "value"); ok {
			prop.Value = v.propertyValue(elemPath.Child(Field("value")), raw)
		}
		props = append(props, prop)
	}
	return props
}

func (v *validator) propertyValue(path Path, value any) model.PropertyValue {
	switch x := value.(type) {
	case nil:
		return model.NullValue()
	case string:
		return model.StringValue(x)
	case bool:
		return model.BoolValue(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			v.fail(path, CodeInvalidValue, "number %v is not representable in JSON", x)
			return model.PropertyValue{}
		}
		return model.NumberValue(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			v.fail(path, CodeInvalidValue, "number %s is out of range", x.String())
			return model.PropertyValue{}
		}
		return model.NumberValue(f)
	default:
		v.fail(path, CodeInvalidValue, "expected string, number, boolean or null, received %s", typeName(value))
		return model.PropertyValue{}
	}
}
