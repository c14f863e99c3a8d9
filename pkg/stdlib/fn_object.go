package stdlib

import (
	"context"
	"strconv"
	"strings"

	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

func fnKeys(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	obj, err := functions.ObjectArg(args, 0)
	if err != nil {
		return nil, err
	}
	keys := obj.Keys()
	out := make([]udm.Value, len(keys))
	for i, k := range keys {
		out[i] = udm.String(k)
	}
	return udm.NewArray(out...), nil
}

func fnValues(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	obj, err := functions.ObjectArg(args, 0)
	if err != nil {
		return nil, err
	}
	out := make([]udm.Value, 0, obj.Len())
	obj.Each(func(_ string, v udm.Value) bool {
		out = append(out, v)
		return true
	})
	return udm.NewArray(out...), nil
}

func fnEntries(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	obj, err := functions.ObjectArg(args, 0)
	if err != nil {
		return nil, err
	}
	out := make([]udm.Value, 0, obj.Len())
	obj.Each(func(k string, v udm.Value) bool {
		out = append(out, udm.NewObjectBuilder(2).Set("key", udm.String(k)).Set("value", v).Build())
		return true
	})
	return udm.NewArray(out...), nil
}

// fnFromEntries accepts {key, value} objects or [key, value] pairs.
func fnFromEntries(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	b := udm.NewObjectBuilder(arr.Len())
	for i, item := range arr.Items() {
		var key, value udm.Value
		switch e := item.(type) {
		case *udm.Object:
			key, _ = e.Get("key")
			value, _ = e.Get("value")
		case *udm.Array:
			key, _ = e.At(0)
			value, _ = e.At(1)
		default:
			return nil, types.Errorf(types.KindTypeMismatch, "entry %d must be an object or a pair, got %s", i, udm.TypeName(item))
		}
		k, ok := key.(udm.String)
		if !ok {
			return nil, types.Errorf(types.KindTypeMismatch, "entry %d key must be a string, got %s", i, udm.TypeName(key))
		}
		b.Set(string(k), value)
	}
	return b.Build(), nil
}

func fnMerge(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	b := udm.NewObjectBuilder(0)
	for i, a := range args {
		switch o := a.(type) {
		case *udm.Object:
			b.Merge(o)
		case udm.Null:
		default:
			return nil, functions.TypeError(i, "an object", a)
		}
	}
	return b.Build(), nil
}

func keyList(args []udm.Value, i int) ([]string, error) {
	v := functions.Arg(args, i)
	if s, ok := v.(udm.String); ok {
		return []string{string(s)}, nil
	}
	arr, err := functions.ArrayArg(args, i)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, arr.Len())
	for _, item := range arr.Items() {
		s, ok := item.(udm.String)
		if !ok {
			return nil, types.Errorf(types.KindTypeMismatch, "keys must be strings, got %s", udm.TypeName(item))
		}
		keys = append(keys, string(s))
	}
	return keys, nil
}

func fnPick(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	obj, err := functions.ObjectArg(args, 0)
	if err != nil {
		return nil, err
	}
	keys, err := keyList(args, 1)
	if err != nil {
		return nil, err
	}
	b := udm.NewObjectBuilder(len(keys))
	obj.Each(func(k string, v udm.Value) bool {
		for _, want := range keys {
			if k == want {
				b.Set(k, v)
				break
			}
		}
		return true
	})
	return b.Build(), nil
}

func fnOmit(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	obj, err := functions.ObjectArg(args, 0)
	if err != nil {
		return nil, err
	}
	keys, err := keyList(args, 1)
	if err != nil {
		return nil, err
	}
	return obj.Without(keys...), nil
}

func fnHasKey(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	key, err := functions.StringArg(args, 1)
	if err != nil {
		return nil, err
	}
	obj, ok := args[0].(*udm.Object)
	if !ok {
		return udm.False, nil
	}
	return udm.Bool(obj.Has(key)), nil
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// fnSetPath returns a copy of the object with the dotted path set,
// creating intermediate objects as needed.
func fnSetPath(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	path, err := functions.StringArg(args, 1)
	if err != nil {
		return nil, err
	}
	segments := splitPath(path)
	if len(segments) == 0 {
		return args[2], nil
	}
	return setPath(args[0], segments, args[2]), nil
}

func setPath(v udm.Value, segments []string, value udm.Value) udm.Value {
	obj, ok := v.(*udm.Object)
	if !ok {
		obj = udm.NewObjectBuilder(0).Build()
	}
	if len(segments) == 1 {
		return obj.With(segments[0], value)
	}
	child, _ := obj.Get(segments[0])
	return obj.With(segments[0], setPath(child, segments[1:], value))
}

// fnGetPath reads a dotted path. Numeric segments index arrays.
func fnGetPath(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	path, err := functions.StringArg(args, 1)
	if err != nil {
		return nil, err
	}
	current := args[0]
	for _, seg := range splitPath(path) {
		switch v := current.(type) {
		case *udm.Object:
			current, _ = v.Get(seg)
		case *udm.Array:
			i, err := strconv.Atoi(seg)
			if err != nil {
				current = udm.NullValue
				break
			}
			current, _ = v.At(i)
		default:
			current = udm.NullValue
		}
	}
	if udm.IsNull(current) {
		return functions.Arg(args, 2), nil
	}
	return current, nil
}
