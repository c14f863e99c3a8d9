// Package types defines the core type system shared by the parser and the
// evaluator.
//
// This package contains type definitions for:
//   - Program: a compiled transformation script (header + expression body)
//   - Node: the closed set of Abstract Syntax Tree nodes
//   - ParseError / RuntimeError: structured errors with codes and kinds
package types

// Header holds the directives that precede the "---" separator of a script:
//
//	%utlx 1.0
//	input json
//	output yaml indent=2
//	---
//
// The core only records them; hosts use Input and Output to select codecs.
type Header struct {
	Version       string
	Input         string
	Output        string
	InputOptions  map[string]string
	OutputOptions map[string]string
	// Lines is the number of source lines consumed by the header, separator
	// included. Zero when the script has no header.
	Lines int
}

// Program represents a compiled transformation script.
//
// A Program can be evaluated many times against different inputs. The AST is
// never mutated after parsing, so a Program is safe for concurrent use by
// multiple goroutines.
type Program struct {
	header Header
	body   Node
	source string
	errors ParseErrors
}

// NewProgram creates a new Program from a parsed body.
func NewProgram(header Header, body Node, source string) *Program {
	return &Program{
		header: header,
		body:   body,
		source: source,
	}
}

// Header returns the parsed header directives.
func (p *Program) Header() Header {
	return p.header
}

// Body returns the root node of the expression body.
func (p *Program) Body() Node {
	return p.body
}

// Source returns the full script text. Node positions refer to it.
func (p *Program) Source() string {
	return p.source
}

// Errors returns any errors collected during parsing (in recovery mode).
func (p *Program) Errors() ParseErrors {
	return p.errors
}

// AddError adds an error to the program's error list.
func (p *Program) AddError(err *ParseError) {
	p.errors = append(p.errors, err)
}

// String returns the script text.
func (p *Program) String() string {
	return p.source
}
