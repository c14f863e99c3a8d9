package stdlib

import (
	"context"
	"math"
	"sort"
	"unicode/utf8"

	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// maxRange bounds the number of elements range may produce.
const maxRange = 10_000_000

// arrayArg returns argument i as an array, treating null as empty.
func arrayArg(args []udm.Value, i int) (*udm.Array, error) {
	if udm.IsNull(functions.Arg(args, i)) {
		return udm.EmptyArray, nil
	}
	return functions.ArrayArg(args, i)
}

// --- Higher-order functions ---

func fnMap(ctx context.Context, c functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	fn, err := functions.FuncArg(args, 1)
	if err != nil {
		return nil, err
	}
	out := make([]udm.Value, 0, arr.Len())
	for i, item := range arr.Items() {
		v, err := functions.ApplyIndexed(ctx, c, fn, item, i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return udm.NewArray(out...), nil
}

func fnFilter(ctx context.Context, c functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	fn, err := functions.FuncArg(args, 1)
	if err != nil {
		return nil, err
	}
	out := make([]udm.Value, 0, arr.Len())
	for i, item := range arr.Items() {
		keep, err := functions.ApplyIndexed(ctx, c, fn, item, i)
		if err != nil {
			return nil, err
		}
		if udm.Truthy(keep) {
			out = append(out, item)
		}
	}
	return udm.NewArray(out...), nil
}

func fnReduce(ctx context.Context, c functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	fn, err := functions.FuncArg(args, 1)
	if err != nil {
		return nil, err
	}
	items := arr.Items()
	var acc udm.Value
	start := 0
	if len(args) > 2 {
		acc = args[2]
	} else {
		if len(items) == 0 {
			return udm.NullValue, nil
		}
		acc = items[0]
		start = 1
	}
	for i := start; i < len(items); i++ {
		if fn.Arity() >= 3 {
			acc, err = c.Apply(ctx, fn, acc, items[i], udm.Long(i))
		} else {
			acc, err = c.Apply(ctx, fn, acc, items[i])
		}
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// findIndex returns the index of the first element matching fn, or -1.
func findIndex(ctx context.Context, c functions.Caller, args []udm.Value) (*udm.Array, int, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, -1, err
	}
	fn, err := functions.FuncArg(args, 1)
	if err != nil {
		return nil, -1, err
	}
	for i, item := range arr.Items() {
		ok, err := functions.ApplyIndexed(ctx, c, fn, item, i)
		if err != nil {
			return nil, -1, err
		}
		if udm.Truthy(ok) {
			return arr, i, nil
		}
	}
	return arr, -1, nil
}

func fnFind(ctx context.Context, c functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, i, err := findIndex(ctx, c, args)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		return udm.NullValue, nil
	}
	v, _ := arr.At(i)
	return v, nil
}

func fnSome(ctx context.Context, c functions.Caller, args []udm.Value) (udm.Value, error) {
	_, i, err := findIndex(ctx, c, args)
	if err != nil {
		return nil, err
	}
	return udm.Bool(i >= 0), nil
}

func fnEvery(ctx context.Context, c functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	fn, err := functions.FuncArg(args, 1)
	if err != nil {
		return nil, err
	}
	for i, item := range arr.Items() {
		ok, err := functions.ApplyIndexed(ctx, c, fn, item, i)
		if err != nil {
			return nil, err
		}
		if !udm.Truthy(ok) {
			return udm.False, nil
		}
	}
	return udm.True, nil
}

func fnCount(ctx context.Context, c functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	if !functions.Has(args, 1) {
		return udm.Long(arr.Len()), nil
	}
	fn, err := functions.FuncArg(args, 1)
	if err != nil {
		return nil, err
	}
	n := 0
	for i, item := range arr.Items() {
		ok, err := functions.ApplyIndexed(ctx, c, fn, item, i)
		if err != nil {
			return nil, err
		}
		if udm.Truthy(ok) {
			n++
		}
	}
	return udm.Long(n), nil
}

// --- Aggregates ---

func fnSum(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	var (
		total    int64
		ftotal   float64
		floating bool
	)
	for _, item := range arr.Items() {
		switch n := item.(type) {
		case udm.Long:
			if floating {
				ftotal += float64(n)
				continue
			}
			s := total + int64(n)
			if (total > 0 && n > 0 && s < 0) || (total < 0 && n < 0 && s >= 0) {
				floating = true
				ftotal = float64(total) + float64(n)
				continue
			}
			total = s
		case udm.Double:
			if !floating {
				floating = true
				ftotal = float64(total)
			}
			ftotal += float64(n)
		default:
			return nil, types.Errorf(types.KindTypeMismatch, "sum expects numbers, got %s", udm.TypeName(item))
		}
	}
	if floating {
		return udm.Double(ftotal), nil
	}
	return udm.Long(total), nil
}

func fnAvg(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	if arr.Len() == 0 {
		return udm.NullValue, nil
	}
	var total float64
	for _, item := range arr.Items() {
		f, ok := udm.AsFloat(item)
		if !ok {
			return nil, types.Errorf(types.KindTypeMismatch, "avg expects numbers, got %s", udm.TypeName(item))
		}
		total += f
	}
	return udm.Double(total / float64(arr.Len())), nil
}

func extreme(args []udm.Value, want int) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	if arr.Len() == 0 {
		return udm.NullValue, nil
	}
	items := arr.Items()
	best := items[0]
	for _, item := range items[1:] {
		cmp, ok := udm.Compare(item, best)
		if !ok {
			return nil, types.Errorf(types.KindTypeMismatch, "cannot compare %s with %s", udm.TypeName(item), udm.TypeName(best))
		}
		if cmp == want {
			best = item
		}
	}
	return best, nil
}

func fnMin(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	return extreme(args, -1)
}

func fnMax(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	return extreme(args, 1)
}

// --- Positional reads ---

func elementAt(args []udm.Value, i int) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	v, _ := arr.At(i)
	return v, nil
}

func fnFirst(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	return elementAt(args, 0)
}

func fnLast(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	return elementAt(args, -1)
}

func fnGet(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	i, err := functions.IntArg(args, 1)
	if err != nil {
		return nil, err
	}
	return elementAt(args, i)
}

// --- Ranges ---

func fnSlice(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	from, err := functions.IntArg(args, 1)
	if err != nil {
		return nil, err
	}
	if s, ok := args[0].(udm.String); ok {
		to, err := functions.OptionalInt(args, 2, utf8.RuneCountInString(string(s)))
		if err != nil {
			return nil, err
		}
		return udm.String(runeSlice(string(s), from, to)), nil
	}
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	to, err := functions.OptionalInt(args, 2, arr.Len())
	if err != nil {
		return nil, err
	}
	return arr.Slice(from, to), nil
}

func fnTake(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	n, err := functions.IntArg(args, 1)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return udm.EmptyArray, nil
	}
	return arr.Slice(0, n), nil
}

func fnDrop(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	n, err := functions.IntArg(args, 1)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return arr, nil
	}
	return arr.Slice(n, arr.Len()), nil
}

func fnReverse(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	if s, ok := args[0].(udm.String); ok {
		r := []rune(string(s))
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return udm.String(string(r)), nil
	}
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	items := arr.Items()
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return udm.NewArray(items...), nil
}

// --- Ordering ---

func fnSort(ctx context.Context, c functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	items := arr.Items()
	var sortErr error
	if !functions.Has(args, 1) {
		sort.SliceStable(items, func(i, j int) bool {
			cmp, ok := udm.Compare(items[i], items[j])
			if !ok && sortErr == nil {
				sortErr = types.Errorf(types.KindTypeMismatch, "cannot compare %s with %s",
					udm.TypeName(items[i]), udm.TypeName(items[j]))
			}
			return cmp < 0
		})
		if sortErr != nil {
			return nil, sortErr
		}
		return udm.NewArray(items...), nil
	}

	fn, err := functions.FuncArg(args, 1)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		r, err := c.Apply(ctx, fn, items[i], items[j])
		if err != nil {
			sortErr = err
			return false
		}
		switch r := r.(type) {
		case udm.Bool:
			return bool(r)
		case udm.Long, udm.Double:
			f, _ := udm.AsFloat(r)
			return f < 0
		}
		sortErr = types.Errorf(types.KindTypeMismatch, "sort comparator must return a number or boolean, got %s", udm.TypeName(r))
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return udm.NewArray(items...), nil
}

func fnSortBy(ctx context.Context, c functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	fn, err := functions.FuncArg(args, 1)
	if err != nil {
		return nil, err
	}
	type keyed struct {
		key  udm.Value
		item udm.Value
	}
	pairs := make([]keyed, arr.Len())
	for i, item := range arr.Items() {
		k, err := functions.ApplyIndexed(ctx, c, fn, item, i)
		if err != nil {
			return nil, err
		}
		pairs[i] = keyed{key: k, item: item}
	}
	var sortErr error
	sort.SliceStable(pairs, func(i, j int) bool {
		cmp, ok := udm.Compare(pairs[i].key, pairs[j].key)
		if !ok && sortErr == nil {
			sortErr = types.Errorf(types.KindTypeMismatch, "cannot compare sort keys %s and %s",
				udm.TypeName(pairs[i].key), udm.TypeName(pairs[j].key))
		}
		return cmp < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	out := make([]udm.Value, len(pairs))
	for i, p := range pairs {
		out[i] = p.item
	}
	return udm.NewArray(out...), nil
}

// --- Restructuring ---

func fnDistinct(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	out := make([]udm.Value, 0, arr.Len())
outer:
	for _, item := range arr.Items() {
		for _, seen := range out {
			if udm.NumericEqual(item, seen) {
				continue outer
			}
		}
		out = append(out, item)
	}
	return udm.NewArray(out...), nil
}

func fnFlatten(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	depth, err := functions.OptionalInt(args, 1, 1)
	if err != nil {
		return nil, err
	}
	if depth < 0 {
		depth = math.MaxInt32
	}
	return udm.NewArray(flatten(nil, arr, depth)...), nil
}

func flatten(out []udm.Value, arr *udm.Array, depth int) []udm.Value {
	arr.Each(func(_ int, v udm.Value) bool {
		if inner, ok := v.(*udm.Array); ok && depth > 0 {
			out = flatten(out, inner, depth-1)
		} else {
			out = append(out, v)
		}
		return true
	})
	return out
}

func fnZip(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	arrays := make([]*udm.Array, len(args))
	size := math.MaxInt32
	for i := range args {
		arr, err := arrayArg(args, i)
		if err != nil {
			return nil, err
		}
		arrays[i] = arr
		if arr.Len() < size {
			size = arr.Len()
		}
	}
	out := make([]udm.Value, size)
	for i := 0; i < size; i++ {
		tuple := make([]udm.Value, len(arrays))
		for j, arr := range arrays {
			tuple[j], _ = arr.At(i)
		}
		out[i] = udm.NewArray(tuple...)
	}
	return udm.NewArray(out...), nil
}

func fnRange(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	start, err := functions.IntArg(args, 0)
	if err != nil {
		return nil, err
	}
	end, err := functions.IntArg(args, 1)
	if err != nil {
		return nil, err
	}
	step, err := functions.OptionalInt(args, 2, 1)
	if err != nil {
		return nil, err
	}
	if step == 0 {
		return nil, types.NewRuntimeError(types.KindTypeMismatch, "range step must not be zero")
	}
	n := rangeLen(start, end, step)
	if n == 0 {
		return udm.EmptyArray, nil
	}
	if n > maxRange {
		return nil, types.Errorf(types.KindIndexOutOfBounds, "range of %d elements exceeds the limit of %d", n, maxRange)
	}
	out := make([]udm.Value, n)
	v := start
	for i := range out {
		out[i] = udm.Long(v)
		v += step
	}
	return udm.NewArray(out...), nil
}

// rangeLen counts the elements of [start, end) taken every step. The span is
// computed in uint64 so that bounds far apart do not overflow.
func rangeLen(start, end, step int) uint64 {
	var span, stride uint64
	switch {
	case step > 0 && end > start:
		span, stride = uint64(end)-uint64(start), uint64(step)
	case step < 0 && end < start:
		span, stride = uint64(start)-uint64(end), uint64(-(step+1))+1
	default:
		return 0
	}
	return (span-1)/stride + 1
}

func fnGroupBy(ctx context.Context, c functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	fn, err := functions.FuncArg(args, 1)
	if err != nil {
		return nil, err
	}
	var order []string
	groups := make(map[string][]udm.Value)
	for i, item := range arr.Items() {
		k, err := functions.ApplyIndexed(ctx, c, fn, item, i)
		if err != nil {
			return nil, err
		}
		key := k.String()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], item)
	}
	b := udm.NewObjectBuilder(len(order))
	for _, key := range order {
		b.Set(key, udm.NewArray(groups[key]...))
	}
	return b.Build(), nil
}

// --- Search ---

func fnIndexOf(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	if s, ok := args[0].(udm.String); ok {
		sub, err := functions.StringArg(args, 1)
		if err != nil {
			return nil, err
		}
		return udm.Long(runeIndex(string(s), sub)), nil
	}
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	for i, item := range arr.Items() {
		if udm.NumericEqual(item, args[1]) {
			return udm.Long(i), nil
		}
	}
	return udm.Long(-1), nil
}

func fnContains(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	if s, ok := args[0].(udm.String); ok {
		sub, err := functions.StringArg(args, 1)
		if err != nil {
			return nil, err
		}
		return udm.Bool(runeIndex(string(s), sub) >= 0), nil
	}
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	for _, item := range arr.Items() {
		if udm.NumericEqual(item, args[1]) {
			return udm.True, nil
		}
	}
	return udm.False, nil
}

func fnIsEmpty(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	switch v := args[0].(type) {
	case udm.Null:
		return udm.True, nil
	case udm.String:
		return udm.Bool(v == ""), nil
	case *udm.Array:
		return udm.Bool(v.Len() == 0), nil
	case *udm.Object:
		return udm.Bool(v.Len() == 0), nil
	}
	return udm.False, nil
}

func fnSize(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	switch v := args[0].(type) {
	case udm.Null:
		return udm.Long(0), nil
	case udm.String:
		return udm.Long(utf8.RuneCountInString(string(v))), nil
	case *udm.Array:
		return udm.Long(v.Len()), nil
	case *udm.Object:
		return udm.Long(v.Len()), nil
	case udm.Binary:
		return udm.Long(v.Len()), nil
	}
	return nil, functions.TypeError(0, "a string, array or object", args[0])
}

// --- Positional writes ---

// position resolves a write index; negative counts from the end. limit is
// the largest accepted index.
func position(args []udm.Value, i, n, limit int) (int, error) {
	idx, err := functions.IntArg(args, i)
	if err != nil {
		return 0, err
	}
	pos := idx
	if pos < 0 {
		pos += n
	}
	if pos < 0 || pos > limit {
		return 0, types.Errorf(types.KindIndexOutOfBounds, "index %d out of bounds for length %d", idx, n)
	}
	return pos, nil
}

func fnAppend(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	return arr.Append(args[1:]...), nil
}

func fnInsertAt(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	pos, err := position(args, 1, arr.Len(), arr.Len())
	if err != nil {
		return nil, err
	}
	items := arr.Items()
	out := make([]udm.Value, 0, len(items)+1)
	out = append(out, items[:pos]...)
	out = append(out, args[2])
	out = append(out, items[pos:]...)
	return udm.NewArray(out...), nil
}

func fnRemoveAt(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	pos, err := position(args, 1, arr.Len(), arr.Len()-1)
	if err != nil {
		return nil, err
	}
	items := arr.Items()
	return udm.NewArray(append(items[:pos], items[pos+1:]...)...), nil
}

func fnSetAt(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	pos, err := position(args, 1, arr.Len(), arr.Len()-1)
	if err != nil {
		return nil, err
	}
	items := arr.Items()
	items[pos] = args[2]
	return udm.NewArray(items...), nil
}
