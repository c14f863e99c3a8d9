// Package utlx is the embedding API of the UTL-X transformation language.
//
// A UTL-X script is an optional directive header followed by an expression
// body. The body reads the document bound to @input and produces a new value:
//
//	%utlx 1.0
//	input json
//	output yaml
//	---
//	{
//	  names: @input.items |> map(i -> upperCase(i.name)),
//	  total: sum(@input.items |> map(i -> i.price))
//	}
//
// # Quick Start
//
//	// Evaluate against an in-memory value
//	out, err := utlx.Eval(ctx, `@input |> map(x -> x * 2)`, udm.NewArray(udm.Long(1)))
//
//	// Transform serialized documents, formats taken from the header
//	data, err := utlx.Transform(ctx, script, inputBytes)
//
//	// Compile once, evaluate many times
//	prog := utlx.MustCompile(script)
//	ev := evaluator.New()
//	out1, _ := ev.Evaluate(ctx, prog, doc1, nil)
//	out2, _ := ev.Evaluate(ctx, prog, doc2, nil)
//
// # More Information
//
//   - Parser: github.com/grauwen/utl-x-sub015/pkg/parser
//   - Evaluator: github.com/grauwen/utl-x-sub015/pkg/evaluator
//   - Functions: github.com/grauwen/utl-x-sub015/pkg/functions
//   - Values: github.com/grauwen/utl-x-sub015/pkg/udm
package utlx

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/grauwen/utl-x-sub015/pkg/cache"
	"github.com/grauwen/utl-x-sub015/pkg/codec"
	"github.com/grauwen/utl-x-sub015/pkg/evaluator"
	"github.com/grauwen/utl-x-sub015/pkg/ext"
	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/parser"
	"github.com/grauwen/utl-x-sub015/pkg/stdlib"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// Version returns the current version of the runtime.
func Version() string {
	return "v0.1.0-dev"
}

type config struct {
	evalOpts    []evaluator.EvalOption
	compileOpts []parser.CompileOption
	cache       *cache.Cache
}

// Option configures Eval and Transform.
type Option func(*config)

// WithEvalOptions passes options to the evaluator.
func WithEvalOptions(opts ...evaluator.EvalOption) Option {
	return func(c *config) {
		c.evalOpts = append(c.evalOpts, opts...)
	}
}

// WithCompileOptions passes options to the parser.
func WithCompileOptions(opts ...parser.CompileOption) Option {
	return func(c *config) {
		c.compileOpts = append(c.compileOpts, opts...)
	}
}

// WithCache compiles scripts through c so that repeated calls with the same
// source reuse the compiled program.
func WithCache(c *cache.Cache) Option {
	return func(cfg *config) {
		cfg.cache = c
	}
}

func buildConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c config) compile(src string) (*types.Program, error) {
	if c.cache == nil {
		return Compile(src, c.compileOpts...)
	}
	return c.cache.GetOrCompile(src, func() (*types.Program, error) {
		return Compile(src, c.compileOpts...)
	})
}

// Compile parses a script for repeated evaluation. The returned program is
// safe for concurrent use.
func Compile(src string, opts ...parser.CompileOption) (*types.Program, error) {
	return parser.Compile(src, opts...)
}

// MustCompile is like Compile but panics if the script cannot be compiled.
// It simplifies safe initialization of global variables.
func MustCompile(src string) *types.Program {
	prog, err := Compile(src)
	if err != nil {
		panic(fmt.Sprintf("utlx: Compile(%q): %v", src, err))
	}
	return prog
}

// NewRegistry returns the standard library extended with exts.
func NewRegistry(exts ...functions.Extension) (*functions.Registry, error) {
	return ext.Build(stdlib.Default(), exts...)
}

// Eval compiles src and evaluates it with input bound to @input.
func Eval(ctx context.Context, src string, input udm.Value, opts ...Option) (udm.Value, error) {
	cfg := buildConfig(opts)
	prog, err := cfg.compile(src)
	if err != nil {
		return nil, err
	}
	return evaluator.New(cfg.evalOpts...).Evaluate(ctx, prog, input, nil)
}

// Transform decodes input in the format named by the script header, runs
// the script and encodes the result in the header's output format. Both
// default to json. Empty input is bound as null.
//
// The output directive accepts indent=N.
func Transform(ctx context.Context, src string, input []byte, opts ...Option) ([]byte, error) {
	cfg := buildConfig(opts)
	prog, err := cfg.compile(src)
	if err != nil {
		return nil, err
	}
	h := prog.Header()

	var doc udm.Value = udm.NullValue
	if len(bytes.TrimSpace(input)) > 0 {
		doc, err = codec.Decode(h.Input, input)
		if err != nil {
			return nil, fmt.Errorf("decode input: %w", err)
		}
	}

	out, err := evaluator.New(cfg.evalOpts...).Evaluate(ctx, prog, doc, nil)
	if err != nil {
		return nil, err
	}

	encOpts, err := encodeOptions(h.OutputOptions)
	if err != nil {
		return nil, err
	}
	data, err := codec.Encode(h.Output, out, encOpts...)
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	return data, nil
}

func encodeOptions(opts map[string]string) ([]codec.Option, error) {
	var out []codec.Option
	if v, ok := opts["indent"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("output option indent=%q: expected a non-negative integer", v)
		}
		out = append(out, codec.WithIndent(n))
	}
	return out, nil
}
