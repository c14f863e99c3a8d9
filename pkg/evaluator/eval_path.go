package evaluator

import (
	"context"
	"math"
	"unicode/utf8"

	"github.com/grauwen/utl-x-sub015/pkg/env"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// evalSelector walks a property/index chain. Reads never fail on missing
// data: absent properties and out-of-range indexes yield Null.
func (e *Evaluator) evalSelector(ctx context.Context, n *types.Selector, f *env.Frame) (udm.Value, error) {
	current, err := e.evalNode(ctx, n.Target, f)
	if err != nil {
		return nil, err
	}
	for _, step := range n.Steps {
		switch step.Kind {
		case types.StepField:
			current = field(current, step.Field)
		case types.StepIndex:
			idx, err := e.evalNode(ctx, step.Index, f)
			if err != nil {
				return nil, err
			}
			current, err = index(current, idx)
			if err != nil {
				return nil, withPos(err, step.Pos)
			}
		}
	}
	return current, nil
}

// field reads a property. On an array it maps over the elements and drops
// the ones without the property; nested arrays are flattened one level.
func field(v udm.Value, name string) udm.Value {
	switch v := v.(type) {
	case *udm.Object:
		got, _ := v.Get(name)
		return got
	case *udm.Array:
		out := make([]udm.Value, 0, v.Len())
		v.Each(func(_ int, el udm.Value) bool {
			switch el := el.(type) {
			case *udm.Object:
				if got, ok := el.Get(name); ok {
					out = append(out, got)
				}
			case *udm.Array:
				if got, ok := field(el, name).(*udm.Array); ok {
					out = append(out, got.Items()...)
				}
			}
			return true
		})
		return udm.NewArray(out...)
	}
	return udm.NullValue
}

// index reads v[idx]. Arrays and strings take integer indexes (negative
// counts from the end); objects take string keys.
func index(v, idx udm.Value) (udm.Value, error) {
	switch v := v.(type) {
	case *udm.Array:
		if key, ok := idx.(udm.String); ok {
			return field(v, string(key)), nil
		}
		i, err := intIndex(idx)
		if err != nil {
			return nil, err
		}
		got, _ := v.At(i)
		return got, nil
	case *udm.Object:
		key, ok := idx.(udm.String)
		if !ok {
			return nil, types.Errorf(types.KindTypeMismatch, "object index must be a string, got %s", udm.TypeName(idx))
		}
		got, _ := v.Get(string(key))
		return got, nil
	case udm.String:
		i, err := intIndex(idx)
		if err != nil {
			return nil, err
		}
		n := utf8.RuneCountInString(string(v))
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return udm.NullValue, nil
		}
		return udm.String(string([]rune(string(v))[i])), nil
	}
	return udm.NullValue, nil
}

func intIndex(idx udm.Value) (int, error) {
	switch n := idx.(type) {
	case udm.Long:
		if n > math.MaxInt32 || n < math.MinInt32 {
			return math.MaxInt32, nil
		}
		return int(n), nil
	case udm.Double:
		f := float64(n)
		if f == math.Trunc(f) && math.Abs(f) <= math.MaxInt32 {
			return int(f), nil
		}
	}
	return 0, types.Errorf(types.KindTypeMismatch, "index must be an integer, got %s", udm.TypeName(idx))
}
