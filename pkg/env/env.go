// Package env implements the lexical environment: a chain of frames mapping
// names to UDM values. User functions live in the same namespace as
// variables, as *udm.Lambda values.
package env

import (
	"fmt"

	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// Frame is one level of the scope chain. Closures keep a pointer to the frame
// they were created in, so a frame stays alive as long as any lambda
// references it.
type Frame struct {
	// parent is the enclosing frame, nil for the root
	parent *Frame

	// names keeps binding order for Names
	names []string

	// bindings stores the values of this frame only
	bindings map[string]udm.Value

	// depth is the distance to the root frame
	depth int
}

var _ udm.Scope = (*Frame)(nil)

// New creates an empty root frame.
func New() *Frame {
	return &Frame{bindings: make(map[string]udm.Value)}
}

// NewWith creates a root frame pre-populated with bindings, bound in the
// order given by names.
func NewWith(names []string, values map[string]udm.Value) *Frame {
	f := New()
	for _, n := range names {
		f.Bind(n, values[n])
	}
	return f
}

// Child creates an empty frame whose lookups fall through to f.
func (f *Frame) Child() *Frame {
	return &Frame{
		parent:   f,
		bindings: make(map[string]udm.Value),
		depth:    f.depth + 1,
	}
}

// Extend implements udm.Scope.
func (f *Frame) Extend() udm.Scope {
	return f.Child()
}

// Bind sets name in this frame, shadowing outer bindings. Rebinding a name in
// the same frame replaces its value.
func (f *Frame) Bind(name string, v udm.Value) {
	if v == nil {
		v = udm.NullValue
	}
	if _, ok := f.bindings[name]; !ok {
		f.names = append(f.names, name)
	}
	f.bindings[name] = v
}

// Get resolves name through the chain.
func (f *Frame) Get(name string) (udm.Value, bool) {
	for c := f; c != nil; c = c.parent {
		if v, ok := c.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Lookup resolves name through the chain and reports an UndefinedVariable
// error when no frame binds it.
func (f *Frame) Lookup(name string) (udm.Value, error) {
	if v, ok := f.Get(name); ok {
		return v, nil
	}
	return nil, types.Errorf(types.KindUndefinedVariable, "undefined variable %q", name)
}

// Has reports whether name is bound anywhere in the chain.
func (f *Frame) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

// HasLocal reports whether name is bound in this frame.
func (f *Frame) HasLocal(name string) bool {
	_, ok := f.bindings[name]
	return ok
}

// Names returns the names bound in this frame, in binding order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Parent returns the enclosing frame.
func (f *Frame) Parent() *Frame {
	return f.parent
}

// Depth returns the distance to the root frame.
func (f *Frame) Depth() int {
	return f.depth
}

// String returns a string representation of the frame.
func (f *Frame) String() string {
	return fmt.Sprintf("Frame{depth=%d, bindings=%d}", f.depth, len(f.bindings))
}
