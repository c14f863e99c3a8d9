// Package udm implements the Universal Data Model: the immutable tagged union
// that flows between codecs, the evaluator and the standard library.
//
// Every value implements the sealed [Value] interface. Consumers switch over
// the concrete types exhaustively:
//
//	switch v := v.(type) {
//	case udm.Null, udm.Bool, udm.Long, udm.Double, udm.String:
//	case *udm.Array, *udm.Object:
//	case udm.Date, udm.Time, udm.LocalDateTime, udm.DateTime:
//	case udm.Binary:
//	case *udm.Lambda:
//	}
//
// Long and Double are distinct: integers read from a document or a literal
// stay Long until an operation explicitly produces a floating-point result.
// Objects keep insertion order.
package udm

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindLong
	KindDouble
	KindString
	KindArray
	KindObject
	KindDate
	KindTime
	KindLocalDateTime
	KindDateTime
	KindBinary
	KindLambda
)

var kindNames = [...]string{
	KindNull:          "null",
	KindBool:          "boolean",
	KindLong:          "number",
	KindDouble:        "number",
	KindString:        "string",
	KindArray:         "array",
	KindObject:        "object",
	KindDate:          "date",
	KindTime:          "time",
	KindLocalDateTime: "localdatetime",
	KindDateTime:      "datetime",
	KindBinary:        "binary",
	KindLambda:        "function",
}

// String returns the user-facing type name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a UDM value. The interface is sealed.
type Value interface {
	Kind() Kind
	String() string
	udm()
}

// Null is the null scalar.
type Null struct{}

// Bool is the boolean scalar.
type Bool bool

// Long is the exact integer scalar.
type Long int64

// Double is the floating-point scalar.
type Double float64

// String is the string scalar.
type String string

// NullValue is the Null singleton.
var NullValue Value = Null{}

// Boolean constants.
var (
	True  Value = Bool(true)
	False Value = Bool(false)
)

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Long) Kind() Kind   { return KindLong }
func (Double) Kind() Kind { return KindDouble }
func (String) Kind() Kind { return KindString }

func (Null) udm()   {}
func (Bool) udm()   {}
func (Long) udm()   {}
func (Double) udm() {}
func (String) udm() {}

func (Null) String() string     { return "null" }
func (b Bool) String() string   { return strconv.FormatBool(bool(b)) }
func (l Long) String() string   { return strconv.FormatInt(int64(l), 10) }
func (d Double) String() string { return FormatDouble(float64(d)) }
func (s String) String() string { return string(s) }

// FormatDouble renders a float so that it reads back as a Double: integral
// values keep a ".0" suffix.
func FormatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// IsScalar reports whether v is Null, Bool, Long, Double or String.
func IsScalar(v Value) bool {
	switch v.(type) {
	case Null, Bool, Long, Double, String:
		return true
	}
	return false
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// IsNumber reports whether v is a Long or a Double.
func IsNumber(v Value) bool {
	switch v.(type) {
	case Long, Double:
		return true
	}
	return false
}

// AsFloat returns the numeric value of a Long or Double.
func AsFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Long:
		return float64(n), true
	case Double:
		return float64(n), true
	}
	return 0, false
}

// TypeName returns the user-facing type name of v.
func TypeName(v Value) string {
	if v == nil {
		return KindNull.String()
	}
	return v.Kind().String()
}

// Truthy implements the boolean interpretation used by conditionals and
// logical operators: null, false, 0, "" and empty collections are false.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case nil, Null:
		return false
	case Bool:
		return bool(v)
	case Long:
		return v != 0
	case Double:
		return v != 0 && !math.IsNaN(float64(v))
	case String:
		return v != ""
	case *Array:
		return v.Len() > 0
	case *Object:
		return v.Len() > 0
	case Binary:
		return v.Len() > 0
	}
	return true
}
