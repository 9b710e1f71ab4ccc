package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ExtraKind enumerates the scalar kinds an extra value may hold
type ExtraKind int

const (
	ExtraString ExtraKind = iota + 1
	ExtraInt
	ExtraFloat
	ExtraBool
)

func (k ExtraKind) String() string {
	switch k {
	case ExtraString:
		return "string"
	case ExtraInt:
		return "int"
	case ExtraFloat:
		return "float"
	case ExtraBool:
		return "bool"
	default:
		return "invalid"
	}
}

// ExtraValue is one scalar of a job's free-form extra map.
// The zero value is invalid and is never produced by the constructors.
type ExtraValue struct {
	kind ExtraKind
	s    string
	i    int64
	f    float64
	b    bool
}

func StringValue(s string) ExtraValue { return ExtraValue{kind: ExtraString, s: s} }
func IntValue(i int64) ExtraValue { return ExtraValue{kind: ExtraInt, i: i} }
func FloatValue(f float64) ExtraValue { return ExtraValue{kind: ExtraFloat, f: f} }
func BoolValue(b bool) ExtraValue { return ExtraValue{kind: ExtraBool, b: b} }
func (v ExtraValue) Kind() ExtraKind { return v.kind }
func (v ExtraValue) IsValid() bool { return v.kind != 0 }

// String renders the value as it travels in a push data block
func (v ExtraValue) String() string {
	switch v.kind {
	case ExtraString:
		return v.s
	case ExtraInt:
		return strconv.FormatInt(v.i, 10)
	case ExtraFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case ExtraBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Interface returns the native Go scalar, used when persisting the value
func (v ExtraValue) Interface() interface{} {
	switch v.kind {
	case ExtraString:
		return v.s
	case ExtraInt:
		return v.i
	case ExtraFloat:
		return v.f
	case ExtraBool:
		return v.b
	default:
		return nil
	}
}

// ExtraValueOf converts a decoded store or JSON scalar into an ExtraValue
func ExtraValueOf(raw interface{}) (ExtraValue, error) {
	switch x := raw.(type) {
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case int:
		return IntValue(int64(x)), nil
	case int32:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case float32:
		return FloatValue(float64(x)), nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return IntValue(int64(x)), nil
		}
		return FloatValue(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return IntValue(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return ExtraValue{}, fmt.Errorf("%w: %q", ErrInvalidExtra, x.String())
		}
		return FloatValue(f), nil
	default:
		return ExtraValue{}, fmt.Errorf("%w: %T", ErrInvalidExtra, raw)
	}
}

// ExtraFromMap converts a raw map, returning the keys whose values were
// dropped because they are not scalars (nested maps, arrays, nulls).
func ExtraFromMap(raw map[string]interface{}) (map[string]ExtraValue, []string) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]ExtraValue, len(raw))
	var dropped []string
	for k, r := range raw {
		v, err := ExtraValueOf(r)
		if err != nil {
			dropped = append(dropped, k)
			continue
		}
		out[k] = v
	}
	return out, dropped
}

// ExtraToMap is the inverse of ExtraFromMap
func ExtraToMap(extra map[string]ExtraValue) map[string]interface{} {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(extra))
	for k, v := range extra {
		out[k] = v.Interface()
	}
	return out
}

func (v ExtraValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *ExtraValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ExtraValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
