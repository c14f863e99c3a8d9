// Package extwasm exposes the exported functions of a WebAssembly module as
// registry functions.
//
// Only exports whose parameters and single result are numeric (i32, i64,
// f32, f64) are registered. Integer parameters take integral numbers and
// return Long; float parameters take any number and return Double. Exports
// without a result return null.
//
// The module is instantiated once by Load. Calls into it are serialized.
package extwasm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// DefaultCategory is the catalog category of registered exports.
const DefaultCategory = "Wasm"

type options struct {
	prefix   string
	category string
	logger   *slog.Logger
}

// Option configures Load.
type Option func(*options)

// WithPrefix prepends prefix to every registered function name.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithCategory sets the catalog category of the registered functions.
func WithCategory(category string) Option {
	return func(o *options) {
		o.category = category
	}
}

// WithLogger sets the logger used to report registered and skipped exports.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Module is an instantiated WebAssembly module.
type Module struct {
	mu      sync.Mutex
	runtime wazero.Runtime
	mod     api.Module
	defs    []functions.Def
}

// Load compiles and instantiates wasm and prepares a definition for every
// numeric export. The module must not import host functions.
func Load(ctx context.Context, wasm []byte, opts ...Option) (*Module, error) {
	o := options{category: DefaultCategory, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	rt := wazero.NewRuntime(ctx)
	mod, err := rt.Instantiate(ctx, wasm)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate wasm module: %w", err)
	}

	m := &Module{runtime: rt, mod: mod}
	exports := mod.ExportedFunctionDefinitions()
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fd := exports[name]
		if !numeric(fd.ParamTypes()) || !numeric(fd.ResultTypes()) || len(fd.ResultTypes()) > 1 {
			o.logger.Debug("skipping wasm export", "export", name, "signature", signature(fd))
			continue
		}
		m.defs = append(m.defs, functions.Def{
			Name:        o.prefix + name,
			MinArgs:     len(fd.ParamTypes()),
			MaxArgs:     len(fd.ParamTypes()),
			Category:    o.category,
			Description: "WebAssembly export " + signature(fd),
			Example:     example(o.prefix+name, len(fd.ParamTypes())),
			Impl:        m.impl(name, fd),
		})
		o.logger.Debug("registered wasm export", "export", name, "function", o.prefix+name)
	}
	o.logger.Info("wasm module loaded", "exports", len(exports), "functions", len(m.defs))
	return m, nil
}

// Defs returns the definitions of the registered exports.
func (m *Module) Defs() []functions.Def {
	return append([]functions.Def(nil), m.defs...)
}

// Extension registers every numeric export.
func (m *Module) Extension() functions.Extension {
	return functions.Defs(m.Defs()...)
}

// Close releases the module and its runtime.
func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runtime.Close(ctx)
}

func (m *Module) impl(name string, fd api.FunctionDefinition) functions.Impl {
	params, results := fd.ParamTypes(), fd.ResultTypes()
	return func(ctx context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
		stack := make([]uint64, len(params))
		for i, t := range params {
			v, err := encode(args, i, t)
			if err != nil {
				return nil, err
			}
			stack[i] = v
		}

		m.mu.Lock()
		fn := m.mod.ExportedFunction(name)
		var (
			out []uint64
			err error
		)
		if fn == nil {
			err = fmt.Errorf("export %q is no longer available", name)
		} else {
			out, err = fn.Call(ctx, stack...)
		}
		m.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("wasm %s: %w", name, err)
		}

		if len(results) == 0 || len(out) == 0 {
			return udm.NullValue, nil
		}
		return decode(out[0], results[0]), nil
	}
}

func numeric(ts []api.ValueType) bool {
	for _, t := range ts {
		switch t {
		case api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64:
		default:
			return false
		}
	}
	return true
}

func encode(args []udm.Value, i int, t api.ValueType) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		n, err := functions.IntArg(args, i)
		if err != nil {
			return 0, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, functions.TypeError(i, "a 32-bit integer", args[i])
		}
		return api.EncodeI32(int32(n)), nil
	case api.ValueTypeI64:
		n, err := functions.IntArg(args, i)
		if err != nil {
			return 0, err
		}
		return api.EncodeI64(int64(n)), nil
	case api.ValueTypeF32:
		f, err := functions.NumberArg(args, i)
		if err != nil {
			return 0, err
		}
		return api.EncodeF32(float32(f)), nil
	}
	f, err := functions.NumberArg(args, i)
	if err != nil {
		return 0, err
	}
	return api.EncodeF64(f), nil
}

func decode(v uint64, t api.ValueType) udm.Value {
	switch t {
	case api.ValueTypeI32:
		return udm.Long(api.DecodeI32(v))
	case api.ValueTypeI64:
		return udm.Long(int64(v))
	case api.ValueTypeF32:
		return udm.Double(api.DecodeF32(v))
	}
	return udm.Double(api.DecodeF64(v))
}

func signature(fd api.FunctionDefinition) string {
	s := "("
	for i, t := range fd.ParamTypes() {
		if i > 0 {
			s += ", "
		}
		s += api.ValueTypeName(t)
	}
	s += ")"
	for _, t := range fd.ResultTypes() {
		s += " " + api.ValueTypeName(t)
	}
	return s
}

func example(name string, arity int) string {
	s := name + "("
	for i := 0; i < arity; i++ {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprint(i + 1)
	}
	return s + ")"
}
