package udm

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// FromGo converts a native Go value into a UDM value. Maps are converted with
// their keys sorted, since Go maps carry no order. Values that already
// implement Value are returned as is.
func FromGo(x interface{}) (Value, error) {
	switch x := x.(type) {
	case nil:
		return NullValue, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Long(x), nil
	case int8:
		return Long(x), nil
	case int16:
		return Long(x), nil
	case int32:
		return Long(x), nil
	case int64:
		return Long(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return Double(float64(x)), nil
		}
		return Long(x), nil
	case uint8:
		return Long(x), nil
	case uint16:
		return Long(x), nil
	case uint32:
		return Long(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return Double(float64(x)), nil
		}
		return Long(x), nil
	case float32:
		return Double(x), nil
	case float64:
		return Double(x), nil
	case string:
		return String(x), nil
	case json.Number:
		return ParseNumber(string(x))
	case []byte:
		return NewBinary(x), nil
	case time.Time:
		return DateTime{T: x}, nil
	case []interface{}:
		items := make([]Value, len(x))
		for i, el := range x {
			v, err := FromGo(el)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return NewArray(items...), nil
	case []string:
		items := make([]Value, len(x))
		for i, el := range x {
			items[i] = String(el)
		}
		return NewArray(items...), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b := NewObjectBuilder(len(keys))
		for _, k := range keys {
			v, err := FromGo(x[k])
			if err != nil {
				return nil, err
			}
			b.Set(k, v)
		}
		return b.Build(), nil
	}
	return nil, fmt.Errorf("udm: unsupported Go type %T", x)
}

// ParseNumber parses a numeric literal, keeping integers that fit in int64
// as Long and everything else as Double.
func ParseNumber(s string) (Value, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Long(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("udm: invalid number %q: %w", s, err)
	}
	return Double(f), nil
}

// ToGo converts a UDM value into plain Go values: nil, bool, int64, float64,
// string, []byte, time.Time, []interface{} and map[string]interface{}.
// Function values are rejected with a *LambdaError.
func ToGo(v Value) (interface{}, error) {
	return toGo(v, "$")
}

func toGo(v Value, path string) (interface{}, error) {
	switch v := v.(type) {
	case nil, Null:
		return nil, nil
	case Bool:
		return bool(v), nil
	case Long:
		return int64(v), nil
	case Double:
		return float64(v), nil
	case String:
		return string(v), nil
	case Binary:
		return v.Bytes(), nil
	case Date, Time, LocalDateTime, DateTime:
		t, _ := Instant(v)
		return t, nil
	case *Array:
		out := make([]interface{}, v.Len())
		for i, el := range v.items {
			g, err := toGo(el, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case *Object:
		out := make(map[string]interface{}, v.Len())
		for _, k := range v.keys {
			g, err := toGo(v.values[k], path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = g
		}
		return out, nil
	case *Lambda:
		return nil, &LambdaError{Path: path}
	}
	return nil, fmt.Errorf("udm: unknown value %T", v)
}

// MustFromGo is like FromGo but panics on error.
func MustFromGo(x interface{}) Value {
	v, err := FromGo(x)
	if err != nil {
		panic(err)
	}
	return v
}
