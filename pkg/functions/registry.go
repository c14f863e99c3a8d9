// Package functions implements the function registry: the table of named
// native functions the evaluator falls back to when a call does not resolve
// to a lambda in scope.
//
// A registry is assembled once at bootstrap with a Builder and sealed by
// Build. The resulting *Registry is immutable and safe for concurrent use.
//
// # Example
//
//	b := functions.NewBuilder()
//	err := b.Register("greet", 1, 1,
//	    func(ctx context.Context, c functions.Caller, args []udm.Value) (udm.Value, error) {
//	        name, err := functions.StringArg(args, 0)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return udm.String("Hello, " + name + "!"), nil
//	    },
//	    functions.WithCategory("String"),
//	    functions.WithDescription("Greets someone"),
//	)
//	reg := b.Build()
package functions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// Variadic is the MaxArgs value of functions without an upper arity bound.
const Variadic = -1

// Caller can invoke a function value (a user lambda or a native registry
// reference) passed as an argument. Higher-order functions such as map and
// reduce use it to call back into the evaluator.
type Caller interface {
	Apply(ctx context.Context, fn udm.Value, args ...udm.Value) (udm.Value, error)
}

// Impl is the implementation of a registered function. args has already
// been checked against the declared arity.
type Impl func(ctx context.Context, c Caller, args []udm.Value) (udm.Value, error)

// Def describes a registered function.
type Def struct {
	Name        string
	MinArgs     int
	MaxArgs     int // Variadic for unlimited
	Category    string
	Description string
	Example     string
	Impl        Impl
}

// AcceptsArity reports whether n arguments are within the declared bounds.
func (d *Def) AcceptsArity(n int) bool {
	return n >= d.MinArgs && (d.MaxArgs == Variadic || n <= d.MaxArgs)
}

// ArityString renders the accepted argument counts, e.g. "2..3" or "1+".
func (d *Def) ArityString() string {
	switch {
	case d.MaxArgs == Variadic:
		return fmt.Sprintf("%d+", d.MinArgs)
	case d.MinArgs == d.MaxArgs:
		return fmt.Sprintf("%d", d.MinArgs)
	}
	return fmt.Sprintf("%d..%d", d.MinArgs, d.MaxArgs)
}

// Option sets descriptive metadata on a Def.
type Option func(*Def)

// WithCategory sets the documentation category (Array, String, ...).
func WithCategory(category string) Option {
	return func(d *Def) {
		d.Category = category
	}
}

// WithDescription sets the one-line description.
func WithDescription(description string) Option {
	return func(d *Def) {
		d.Description = description
	}
}

// WithExample sets a usage example.
func WithExample(example string) Option {
	return func(d *Def) {
		d.Example = example
	}
}

// Bootstrap errors returned by Register.
var (
	ErrEmptyName     = errors.New("function name is empty")
	ErrDuplicateName = errors.New("function is already registered")
	ErrInvalidArity  = errors.New("invalid arity bounds")
	ErrNilImpl       = errors.New("function implementation is nil")
)

// Builder collects function definitions during bootstrap.
type Builder struct {
	defs map[string]*Def
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{defs: make(map[string]*Def)}
}

// NewBuilderFrom creates a builder pre-populated with every definition of r,
// so that a sealed registry can be extended into a new one.
func NewBuilderFrom(r *Registry) *Builder {
	b := NewBuilder()
	if r != nil {
		for name, def := range r.defs {
			b.defs[name] = def
		}
	}
	return b
}

// Register adds a function. maxArgs may be Variadic.
func (b *Builder) Register(name string, minArgs, maxArgs int, impl Impl, opts ...Option) error {
	def := Def{Name: name, MinArgs: minArgs, MaxArgs: maxArgs, Impl: impl}
	for _, opt := range opts {
		opt(&def)
	}
	return b.Add(def)
}

// Add registers a complete definition.
func (b *Builder) Add(def Def) error {
	switch {
	case def.Name == "":
		return ErrEmptyName
	case def.Impl == nil:
		return fmt.Errorf("%s: %w", def.Name, ErrNilImpl)
	case def.MinArgs < 0, def.MaxArgs < Variadic, def.MaxArgs != Variadic && def.MinArgs > def.MaxArgs:
		return fmt.Errorf("%s: %w (min %d, max %d)", def.Name, ErrInvalidArity, def.MinArgs, def.MaxArgs)
	}
	if _, exists := b.defs[def.Name]; exists {
		return fmt.Errorf("%s: %w", def.Name, ErrDuplicateName)
	}
	d := def
	b.defs[def.Name] = &d
	return nil
}

// AddAll registers every definition, stopping at the first error.
func (b *Builder) AddAll(defs ...Def) error {
	for _, d := range defs {
		if err := b.Add(d); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// package-level bootstrap tables.
func (b *Builder) MustRegister(name string, minArgs, maxArgs int, impl Impl, opts ...Option) {
	if err := b.Register(name, minArgs, maxArgs, impl, opts...); err != nil {
		panic(err)
	}
}

// Build seals the collected definitions into an immutable Registry. The
// builder can keep being used; later registrations do not affect the
// returned registry.
func (b *Builder) Build() *Registry {
	defs := make(map[string]*Def, len(b.defs))
	names := make([]string, 0, len(b.defs))
	for name, def := range b.defs {
		defs[name] = def
		names = append(names, name)
	}
	sort.Strings(names)
	return &Registry{defs: defs, names: names}
}

// Extension contributes functions to a registry under construction.
type Extension func(b *Builder) error

// Defs returns an Extension that adds the given definitions.
func Defs(defs ...Def) Extension {
	return func(b *Builder) error {
		return b.AddAll(defs...)
	}
}

// Registry is an immutable table of functions.
type Registry struct {
	defs  map[string]*Def
	names []string
}

// Lookup returns a copy of the definition registered under name.
func (r *Registry) Lookup(name string) (Def, bool) {
	def, ok := r.lookup(name)
	if !ok {
		return Def{}, false
	}
	return *def, true
}

func (r *Registry) lookup(name string) (*Def, bool) {
	if r == nil {
		return nil, false
	}
	def, ok := r.defs[name]
	return def, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Call validates the argument count against the declared bounds and invokes
// the function. It does not recover panics; the evaluator does that at its
// single invocation point.
func (r *Registry) Call(ctx context.Context, c Caller, name string, args []udm.Value) (udm.Value, error) {
	def, ok := r.lookup(name)
	if !ok {
		return nil, types.Errorf(types.KindUndefinedFunction, "undefined function %q", name).WithFunction(name)
	}
	if err := CheckArity(def, len(args)); err != nil {
		return nil, err
	}
	return def.Impl(ctx, c, args)
}

// CheckArity returns an ArityMismatch error when n is outside the bounds of def.
func CheckArity(def *Def, n int) error {
	if def.AcceptsArity(n) {
		return nil
	}
	return types.Errorf(types.KindArityMismatch, "%s expects %s arguments, got %d", def.Name, def.ArityString(), n).
		WithFunction(def.Name)
}

// Entry is the exported metadata of one function.
type Entry struct {
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	MinArgs     int    `json:"minArgs" yaml:"minArgs"`
	MaxArgs     int    `json:"maxArgs" yaml:"maxArgs"`
	Example     string `json:"example,omitempty" yaml:"example,omitempty"`
}

// Catalog returns the metadata of every function, sorted by category and
// then name.
func (r *Registry) Catalog() []Entry {
	out := make([]Entry, 0, r.Len())
	for _, name := range r.Names() {
		d := r.defs[name]
		out = append(out, Entry{
			Name:        d.Name,
			Category:    d.Category,
			Description: d.Description,
			MinArgs:     d.MinArgs,
			MaxArgs:     d.MaxArgs,
			Example:     d.Example,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Category < out[j].Category
	})
	return out
}
