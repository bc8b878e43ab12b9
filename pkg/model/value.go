package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueKind identifies which variant a PropertyValue holds.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// PropertyValue is a string, number, boolean or null.
// The zero value is null.
type PropertyValue struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
}

// StringValue returns a string property value.
func StringValue(s string) PropertyValue { return PropertyValue{Kind: KindString, Str: s} }

// NumberValue returns a numeric property value.
func NumberValue(f float64) PropertyValue { return PropertyValue{Kind: KindNumber, Num: f} }

// BoolValue returns a boolean property value.
func BoolValue(b bool) PropertyValue { return PropertyValue{Kind: KindBool, Bool: b} }

// NullValue returns the null property value.
func NullValue() PropertyValue { return PropertyValue{} }

// IsNull reports whether v is null.
func (v PropertyValue) IsNull() bool { return v.Kind == KindNull }

// Any returns v as a plain Go value: string, float64, bool or nil.
func (v PropertyValue) Any() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	default:
		return nil
	}
}

// String formats v for display. Numbers use their shortest decimal form,
// so 1 prints as "1" and 2.50 as "2.5".
func (v PropertyValue) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return formatNumber(v.Num)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return "null"
	}
}

func formatNumber(f float64) string {
	if math.Abs(f) >= 1e21 || (f != 0 && math.Abs(f) < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (v PropertyValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v *PropertyValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = NullValue()
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch x := raw.(type) {
	case string:
		*v = StringValue(x)
	case float64:
		*v = NumberValue(x)
	case bool:
		*v = BoolValue(x)
	default:
		return fmt.Errorf("property value must be a string, number, boolean or null, got %s", data)
	}
	return nil
}
