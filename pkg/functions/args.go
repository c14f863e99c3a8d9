package functions

import (
	"context"
	"math"

	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// Arg returns args[i], or Null when the optional argument was omitted.
func Arg(args []udm.Value, i int) udm.Value {
	if i >= len(args) || args[i] == nil {
		return udm.NullValue
	}
	return args[i]
}

// Has reports whether the optional argument i was supplied and is not null.
func Has(args []udm.Value, i int) bool {
	return !udm.IsNull(Arg(args, i))
}

// TypeError builds the TypeMismatch error for argument i.
func TypeError(i int, want string, got udm.Value) error {
	return types.Errorf(types.KindTypeMismatch, "argument %d must be %s, got %s", i+1, want, udm.TypeName(got))
}

// StringArg returns argument i as a string.
func StringArg(args []udm.Value, i int) (string, error) {
	v := Arg(args, i)
	s, ok := v.(udm.String)
	if !ok {
		return "", TypeError(i, "a string", v)
	}
	return string(s), nil
}

// OptionalString returns argument i as a string, or def when omitted or null.
func OptionalString(args []udm.Value, i int, def string) (string, error) {
	if !Has(args, i) {
		return def, nil
	}
	return StringArg(args, i)
}

// NumberArg returns argument i as a float64. Long and Double are accepted.
func NumberArg(args []udm.Value, i int) (float64, error) {
	v := Arg(args, i)
	f, ok := udm.AsFloat(v)
	if !ok {
		return 0, TypeError(i, "a number", v)
	}
	return f, nil
}

// IntArg returns argument i as an int. Doubles are accepted when integral.
func IntArg(args []udm.Value, i int) (int, error) {
	v := Arg(args, i)
	switch n := v.(type) {
	case udm.Long:
		return int(n), nil
	case udm.Double:
		f := float64(n)
		if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) <= math.MaxInt32 {
			return int(f), nil
		}
		return 0, TypeError(i, "an integer", v)
	}
	return 0, TypeError(i, "an integer", v)
}

// OptionalInt returns argument i as an int, or def when omitted or null.
func OptionalInt(args []udm.Value, i int, def int) (int, error) {
	if !Has(args, i) {
		return def, nil
	}
	return IntArg(args, i)
}

// BoolArg returns argument i as a bool.
func BoolArg(args []udm.Value, i int) (bool, error) {
	v := Arg(args, i)
	b, ok := v.(udm.Bool)
	if !ok {
		return false, TypeError(i, "a boolean", v)
	}
	return bool(b), nil
}

// ArrayArg returns argument i as an array.
func ArrayArg(args []udm.Value, i int) (*udm.Array, error) {
	v := Arg(args, i)
	a, ok := v.(*udm.Array)
	if !ok {
		return nil, TypeError(i, "an array", v)
	}
	return a, nil
}

// ObjectArg returns argument i as an object.
func ObjectArg(args []udm.Value, i int) (*udm.Object, error) {
	v := Arg(args, i)
	o, ok := v.(*udm.Object)
	if !ok {
		return nil, TypeError(i, "an object", v)
	}
	return o, nil
}

// FuncArg returns argument i as a function value.
func FuncArg(args []udm.Value, i int) (*udm.Lambda, error) {
	v := Arg(args, i)
	l, ok := v.(*udm.Lambda)
	if !ok {
		return nil, TypeError(i, "a function", v)
	}
	return l, nil
}

// ApplyIndexed calls fn with (item) or (item, index) depending on how many
// parameters fn declares. Native functions always receive only the item.
func ApplyIndexed(ctx context.Context, c Caller, fn *udm.Lambda, item udm.Value, index int) (udm.Value, error) {
	if fn.Arity() >= 2 {
		return c.Apply(ctx, fn, item, udm.Long(index))
	}
	return c.Apply(ctx, fn, item)
}
