package udm

import (
	"strings"
)

// Array is an immutable ordered sequence of values.
type Array struct {
	items []Value
}

// NewArray creates an array that owns items. Callers must not modify the
// slice afterwards.
func NewArray(items ...Value) *Array {
	return &Array{items: items}
}

// EmptyArray is the shared empty array.
var EmptyArray = &Array{}

func (*Array) Kind() Kind { return KindArray }
func (*Array) udm()       {}

// Len returns the number of elements.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.items)
}

// At returns the element at i. Negative indexes count from the end. The
// second result is false when the index is out of range.
func (a *Array) At(i int) (Value, bool) {
	n := a.Len()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return NullValue, false
	}
	return a.items[i], true
}

// Items returns a copy of the elements.
func (a *Array) Items() []Value {
	out := make([]Value, a.Len())
	if a != nil {
		copy(out, a.items)
	}
	return out
}

// Each calls fn for every element in order until fn returns false.
func (a *Array) Each(fn func(i int, v Value) bool) {
	if a == nil {
		return
	}
	for i, v := range a.items {
		if !fn(i, v) {
			return
		}
	}
}

// Slice returns the elements in [from, to), clamped to the array bounds.
func (a *Array) Slice(from, to int) *Array {
	n := a.Len()
	from, to = clamp(from, n), clamp(to, n)
	if from >= to {
		return EmptyArray
	}
	return &Array{items: a.items[from:to:to]}
}

// Append returns a new array with vs appended.
func (a *Array) Append(vs ...Value) *Array {
	out := make([]Value, 0, a.Len()+len(vs))
	if a != nil {
		out = append(out, a.items...)
	}
	return &Array{items: append(out, vs...)}
}

func (a *Array) String() string {
	var b strings.Builder
	writeValue(&b, a)
	return b.String()
}

func clamp(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
	}
	if i > n {
		return n
	}
	return i
}

// Object is an immutable mapping that preserves insertion order. Keys are
// unique; setting an existing key keeps its original position.
type Object struct {
	keys   []string
	values map[string]Value
}

// EmptyObject is the shared empty object.
var EmptyObject = &Object{values: map[string]Value{}}

func (*Object) Kind() Kind { return KindObject }
func (*Object) udm()       {}

// Len returns the number of properties.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Get retrieves a value by key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return NullValue, false
	}
	v, ok := o.values[key]
	if !ok {
		return NullValue, false
	}
	return v, true
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, o.Len())
	if o != nil {
		copy(out, o.keys)
	}
	return out
}

// Each calls fn for every property in order until fn returns false.
func (o *Object) Each(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.values[k]) {
			return
		}
	}
}

// With returns a copy of o with key set to v.
func (o *Object) With(key string, v Value) *Object {
	b := NewObjectBuilder(o.Len() + 1)
	b.Merge(o)
	b.Set(key, v)
	return b.Build()
}

// Without returns a copy of o without the given keys.
func (o *Object) Without(keys ...string) *Object {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	b := NewObjectBuilder(o.Len())
	o.Each(func(k string, v Value) bool {
		if _, ok := drop[k]; !ok {
			b.Set(k, v)
		}
		return true
	})
	return b.Build()
}

// Merge returns a new object with the properties of o followed by those of
// other; keys of other win.
func (o *Object) Merge(other *Object) *Object {
	b := NewObjectBuilder(o.Len() + other.Len())
	b.Merge(o)
	b.Merge(other)
	return b.Build()
}

func (o *Object) String() string {
	var b strings.Builder
	writeValue(&b, o)
	return b.String()
}

// ObjectBuilder accumulates properties for a new Object. A builder must not
// be used after Build.
type ObjectBuilder struct {
	keys   []string
	values map[string]Value
}

// NewObjectBuilder creates a builder with room for size properties.
func NewObjectBuilder(size int) *ObjectBuilder {
	return &ObjectBuilder{
		keys:   make([]string, 0, size),
		values: make(map[string]Value, size),
	}
}

// Set adds or replaces a property. Replacing keeps the original position.
func (b *ObjectBuilder) Set(key string, v Value) *ObjectBuilder {
	if v == nil {
		v = NullValue
	}
	if _, ok := b.values[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.values[key] = v
	return b
}

// Merge copies every property of o into the builder.
func (b *ObjectBuilder) Merge(o *Object) *ObjectBuilder {
	o.Each(func(k string, v Value) bool {
		b.Set(k, v)
		return true
	})
	return b
}

// Len returns the number of properties set so far.
func (b *ObjectBuilder) Len() int { return len(b.keys) }

// Build returns the object.
func (b *ObjectBuilder) Build() *Object {
	return &Object{keys: b.keys, values: b.values}
}

// NewObject builds an object from alternating key/value pairs. It panics on
// an odd argument count or a non-string key and is meant for tests and
// literals in Go code.
func NewObject(pairs ...interface{}) *Object {
	if len(pairs)%2 != 0 {
		panic("udm.NewObject: odd number of arguments")
	}
	b := NewObjectBuilder(len(pairs) / 2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			panic("udm.NewObject: key is not a string")
		}
		v, err := FromGo(pairs[i+1])
		if err != nil {
			panic("udm.NewObject: " + err.Error())
		}
		b.Set(k, v)
	}
	return b.Build()
}
