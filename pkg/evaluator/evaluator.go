// Package evaluator implements the tree-walking evaluator for compiled
// transformation programs.
//
// The evaluator receives a parsed Program and evaluates its body against an
// input UDM value. Variables resolve through a chain of env frames; function
// calls resolve to a lambda in lexical scope first and to the function
// registry second.
//
// # Example
//
//	ev := evaluator.New(evaluator.WithMaxDepth(1000))
//	result, err := ev.Evaluate(ctx, program, input, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Every error returned by Evaluate is a *types.RuntimeError. Failures of
// native function implementations, including panics, are rewrapped in
// exactly one place (invoke) and never escape as raw Go errors.
package evaluator

import (
	"context"
	"log/slog"
	"time"

	"github.com/grauwen/utl-x-sub015/pkg/env"
	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/stdlib"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// InputName is the name the input document is bound to.
const InputName = "input"

// Evaluator evaluates programs against UDM data. It holds no per-evaluation
// state and is safe for concurrent use.
type Evaluator struct {
	opts     EvalOptions
	logger   *slog.Logger
	registry *functions.Registry
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Registry is the function table consulted after lexical scope.
	// Defaults to the standard library.
	Registry *functions.Registry
	// MaxDepth limits nested function applications. Zero means unbounded.
	MaxDepth int
	// Debug enables debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
}

// EvalOption configures an Evaluator.
type EvalOption func(*EvalOptions)

// New creates a new Evaluator.
func New(opts ...EvalOption) *Evaluator {
	var options EvalOptions
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Registry == nil {
		options.Registry = stdlib.Default()
	}

	return &Evaluator{
		opts:     options,
		logger:   options.Logger,
		registry: options.Registry,
	}
}

// WithRegistry sets the function registry.
func WithRegistry(r *functions.Registry) EvalOption {
	return func(o *EvalOptions) {
		o.Registry = r
	}
}

// WithMaxDepth limits nested function applications; exceeding it fails
// with RecursionLimit.
func WithMaxDepth(depth int) EvalOption {
	return func(o *EvalOptions) {
		o.MaxDepth = depth
	}
}

// WithDebug enables debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(o *EvalOptions) {
		o.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(o *EvalOptions) {
		o.Logger = logger
	}
}

// Registry returns the function registry in use.
func (e *Evaluator) Registry() *functions.Registry {
	return e.registry
}

// Evaluate runs program against input. baseEnv, if non-nil, supplies host
// bindings visible to the program; it is never modified. The input is bound
// as "input" in a child frame.
func (e *Evaluator) Evaluate(ctx context.Context, program *types.Program, input udm.Value, baseEnv *env.Frame) (udm.Value, error) {
	if program == nil || program.Body() == nil {
		return nil, types.NewRuntimeError(types.KindTypeMismatch, "invalid program")
	}
	if errs := program.Errors(); len(errs) > 0 {
		return nil, types.NewRuntimeError(types.KindTypeMismatch, "program has parse errors").WithCause(errs)
	}
	if input == nil {
		input = udm.NullValue
	}
	if baseEnv == nil {
		baseEnv = env.New()
	}

	frame := baseEnv.Child()
	frame.Bind(InputName, input)

	start := time.Now()
	result, err := e.evalNode(ctx, program.Body(), frame)
	if e.opts.Debug {
		e.logger.Debug("evaluation finished",
			"duration", time.Since(start),
			"error", err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Apply invokes a function value with the given arguments. It implements
// functions.Caller so that higher-order natives can call back into the
// evaluator.
func (e *Evaluator) Apply(ctx context.Context, fn udm.Value, args ...udm.Value) (udm.Value, error) {
	l, ok := fn.(*udm.Lambda)
	if !ok {
		return nil, types.Errorf(types.KindTypeMismatch, "%s is not a function", udm.TypeName(fn))
	}
	return e.call(ctx, l, args, types.Pos{})
}

var _ functions.Caller = (*Evaluator)(nil)
