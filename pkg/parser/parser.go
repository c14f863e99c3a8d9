// Package parser implements the lexer and Pratt parser of the transformation
// language.
//
// A source text is an optional header followed by the body expression:
//
//	%utlx 1.0
//	input json
//	output json
//	---
//	{
//	  let total = sum(@input.items |> map(i => i.price));
//	  id: @input.id, total: total
//	}
//
// The header is split off by ParseHeader. The body is tokenized by the Lexer
// and turned into an immutable AST rooted in a *types.Program.
//
// # Example
//
//	prog, err := parser.Compile(`@input.items |> map(x -> x * 2)`)
//	if err != nil {
//	    var pe *types.ParseError
//	    if errors.As(err, &pe) {
//	        fmt.Println(pe.Snippet(src))
//	    }
//	    return
//	}
package parser

import (
	"github.com/grauwen/utl-x-sub015/pkg/types"
)

// DefaultMaxDepth bounds parser nesting unless overridden by WithMaxDepth.
const DefaultMaxDepth = 256

// Parse parses a source text and returns the compiled Program.
//
// If parsing fails, it returns a *types.ParseError with position information.
func Parse(src string) (*types.Program, error) {
	return Compile(src)
}

// Compile parses a source text with options.
//
// Without recovery the first error aborts parsing. With WithRecovery(true)
// the parser resynchronizes after each error; the returned Program carries
// every error and err is the types.ParseErrors list.
func Compile(src string, opts ...CompileOption) (*types.Program, error) {
	p := NewParser(src, opts...)
	return p.Parse()
}

// CompileOption configures compilation behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// EnableRecovery enables error recovery mode for parsing invalid syntax.
	EnableRecovery bool
	// MaxDepth limits recursion depth to prevent stack overflow.
	MaxDepth int
}

// WithRecovery enables error recovery mode.
func WithRecovery(enable bool) CompileOption {
	return func(opts *CompileOptions) {
		opts.EnableRecovery = enable
	}
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}
