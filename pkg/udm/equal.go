package udm

import (
	"math"
	"strconv"
	"strings"
)

// Equal reports strict structural equality: Long(1) and Double(1.0) differ.
// Object equality ignores key order. Lambdas are equal only to themselves.
func Equal(a, b Value) bool {
	return equal(a, b, false)
}

// NumericEqual is structural equality where Long and Double compare by
// numeric value. It backs the == and != operators.
func NumericEqual(a, b Value) bool {
	return equal(a, b, true)
}

func equal(a, b Value, numeric bool) bool {
	if a == nil {
		a = NullValue
	}
	if b == nil {
		b = NullValue
	}
	if numeric {
		fa, aok := AsFloat(a)
		fb, bok := AsFloat(b)
		if aok && bok {
			la, aLong := a.(Long)
			lb, bLong := b.(Long)
			if aLong && bLong {
				return la == lb
			}
			return fa == fb
		}
	}
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Long:
		y, ok := b.(Long)
		return ok && x == y
	case Double:
		y, ok := b.(Double)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case *Array:
		y, ok := b.(*Array)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i := range x.items {
			if !equal(x.items[i], y.items[i], numeric) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			yv, ok := y.values[k]
			if !ok || !equal(x.values[k], yv, numeric) {
				return false
			}
		}
		return true
	case Date, Time, LocalDateTime, DateTime:
		if a.Kind() != b.Kind() {
			return false
		}
		ta, _ := Instant(a)
		tb, _ := Instant(b)
		return ta.Equal(tb)
	case Binary:
		y, ok := b.(Binary)
		return ok && x.data == y.data
	case *Lambda:
		y, ok := b.(*Lambda)
		return ok && x == y
	}
	return false
}

// Compare orders two values of a comparable pair: numbers (Long and Double
// mixed), strings, booleans and date-times of the same kind. ok is false for
// any other combination.
func Compare(a, b Value) (cmp int, ok bool) {
	if fa, aok := AsFloat(a); aok {
		fb, bok := AsFloat(b)
		if !bok {
			return 0, false
		}
		if la, isLong := a.(Long); isLong {
			if lb, isLong := b.(Long); isLong {
				return compareInts(int64(la), int64(lb)), true
			}
		}
		if math.IsNaN(fa) || math.IsNaN(fb) {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	switch x := a.(type) {
	case String:
		y, ok := b.(String)
		if !ok {
			return 0, false
		}
		return strings.Compare(string(x), string(y)), true
	case Bool:
		y, ok := b.(Bool)
		if !ok {
			return 0, false
		}
		return compareInts(boolInt(bool(x)), boolInt(bool(y))), true
	case Date, Time, LocalDateTime, DateTime:
		if a.Kind() != b.Kind() {
			return 0, false
		}
		ta, _ := Instant(a)
		tb, _ := Instant(b)
		return ta.Compare(tb), true
	}
	return 0, false
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// writeValue renders collections in a JSON-like form. Scalars nested in
// collections are quoted when they are strings.
func writeValue(b *strings.Builder, v Value) {
	switch v := v.(type) {
	case nil:
		b.WriteString("null")
	case *Array:
		b.WriteByte('[')
		v.Each(func(i int, el Value) bool {
			if i > 0 {
				b.WriteByte(',')
			}
			writeValue(b, el)
			return true
		})
		b.WriteByte(']')
	case *Object:
		b.WriteByte('{')
		first := true
		v.Each(func(k string, el Value) bool {
			if !first {
				b.WriteByte(',')
			}
			first = false
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeValue(b, el)
			return true
		})
		b.WriteByte('}')
	case Null, Bool, Long, Double:
		b.WriteString(v.String())
	default:
		b.WriteString(strconv.Quote(v.String()))
	}
}
