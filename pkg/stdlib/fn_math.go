package stdlib

import (
	"context"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// maxExactFloat is the largest magnitude below which every integer is
// exactly representable as a float64.
const maxExactFloat = 1 << 53

// integral returns f as a Long when it is a whole number that fits,
// otherwise as a Double.
func integral(f float64) udm.Value {
	if f == math.Trunc(f) && math.Abs(f) < maxExactFloat {
		return udm.Long(int64(f))
	}
	return udm.Double(f)
}

func fnAbs(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	switch n := args[0].(type) {
	case udm.Long:
		if n == math.MinInt64 {
			return udm.Double(-float64(n)), nil
		}
		if n < 0 {
			return -n, nil
		}
		return n, nil
	case udm.Double:
		return udm.Double(math.Abs(float64(n))), nil
	}
	return nil, functions.TypeError(0, "a number", args[0])
}

func fnRound(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	decimals, err := functions.OptionalInt(args, 1, 0)
	if err != nil {
		return nil, err
	}
	if l, ok := args[0].(udm.Long); ok && decimals >= 0 {
		return l, nil
	}
	f, err := functions.NumberArg(args, 0)
	if err != nil {
		return nil, err
	}
	if decimals == 0 {
		return integral(math.Round(f)), nil
	}
	scale := math.Pow(10, float64(decimals))
	return udm.Double(math.Round(f*scale) / scale), nil
}

func rounding(fn func(float64) float64) functions.Impl {
	return func(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
		if l, ok := args[0].(udm.Long); ok {
			return l, nil
		}
		f, err := functions.NumberArg(args, 0)
		if err != nil {
			return nil, err
		}
		return integral(fn(f)), nil
	}
}

var (
	fnFloor = rounding(math.Floor)
	fnCeil  = rounding(math.Ceil)
)

func fnPow(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	base, err := functions.NumberArg(args, 0)
	if err != nil {
		return nil, err
	}
	exp, err := functions.NumberArg(args, 1)
	if err != nil {
		return nil, err
	}
	r := math.Pow(base, exp)
	_, baseLong := args[0].(udm.Long)
	_, expLong := args[1].(udm.Long)
	if baseLong && expLong && exp >= 0 {
		return integral(r), nil
	}
	return udm.Double(r), nil
}

func fnSqrt(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	f, err := functions.NumberArg(args, 0)
	if err != nil {
		return nil, err
	}
	return udm.Double(math.Sqrt(f)), nil
}

func fnToNumber(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	switch v := args[0].(type) {
	case udm.Null, udm.Long, udm.Double:
		return v, nil
	case udm.Bool:
		if v {
			return udm.Long(1), nil
		}
		return udm.Long(0), nil
	case udm.String:
		n, err := udm.ParseNumber(strings.TrimSpace(string(v)))
		if err != nil {
			return nil, types.Errorf(types.KindTypeMismatch, "cannot convert %q to a number", string(v))
		}
		return n, nil
	}
	return nil, functions.TypeError(0, "a string, number or boolean", args[0])
}

// fnFormatNumber renders a number with the grouping and decimal separators
// of a locale, defaulting to English.
func fnFormatNumber(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	f, err := functions.NumberArg(args, 0)
	if err != nil {
		return nil, err
	}
	decimals, err := functions.OptionalInt(args, 1, -1)
	if err != nil {
		return nil, err
	}
	locale, err := functions.OptionalString(args, 2, "en")
	if err != nil {
		return nil, err
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}

	var opts []number.Option
	if decimals >= 0 {
		opts = append(opts, number.MinFractionDigits(decimals), number.MaxFractionDigits(decimals))
	}
	p := message.NewPrinter(tag)
	return udm.String(p.Sprintf("%v", number.Decimal(f, opts...))), nil
}
