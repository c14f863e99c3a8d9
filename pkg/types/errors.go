package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies a syntax error category.
type ErrorCode string

// Parse error codes.
const (
	// S01xx: lexical errors
	ErrStringNotClosed   ErrorCode = "S0101"
	ErrNumberOutOfRange  ErrorCode = "S0102"
	ErrUnsupportedEscape ErrorCode = "S0103"
	ErrUnexpectedEnd     ErrorCode = "S0104"
	ErrInvalidCharacter  ErrorCode = "S0105"
	ErrCommentNotClosed  ErrorCode = "S0106"

	// S02xx: grammar errors
	ErrSyntaxError     ErrorCode = "S0201"
	ErrExpectedToken   ErrorCode = "S0202"
	ErrExpectedKeyword ErrorCode = "S0203"
	ErrTooDeep         ErrorCode = "S0204"

	// S03xx: header errors
	ErrInvalidHeader ErrorCode = "S0301"
)

// Pos is a location in the source text. Line and Column are 1-based;
// Offset is the byte offset into the script text.
type Pos struct {
	Offset int
	Line   int
	Column int
}

// String renders the position as line:column.
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// ParseError is a syntactic error reported before evaluation.
type ParseError struct {
	Code    ErrorCode
	Message string
	Pos     Pos
	Token   string
}

// NewParseError creates a new parse error.
func NewParseError(code ErrorCode, message string, pos Pos) *ParseError {
	return &ParseError{
		Code:    code,
		Message: message,
		Pos:     pos,
	}
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Pos, e.Message)
}

// WithToken adds token information to the error.
func (e *ParseError) WithToken(token string) *ParseError {
	e.Token = token
	return e
}

// Snippet renders the error with up to one line of context on each side and
// a caret under the offending column. src must be the script text the
// positions refer to.
func (e *ParseError) Snippet(src string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PARSE ERROR at %s: %s\n\n", e.Pos, e.Message)

	lines := strings.Split(src, "\n")
	line := e.Pos.Line
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	width := len(fmt.Sprint(line + 1))

	for n := line - 1; n <= line+1; n++ {
		if n < 1 || n > len(lines) {
			continue
		}
		fmt.Fprintf(&b, "%*d | %s\n", width, n, lines[n-1])
		if n == line {
			col := e.Pos.Column
			if col < 1 {
				col = 1
			}
			if limit := len([]rune(lines[n-1])) + 1; col > limit {
				col = limit
			}
			fmt.Fprintf(&b, "%s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", col-1))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParseErrors is the list of errors collected in recovery mode.
type ParseErrors []*ParseError

// Error implements the error interface.
func (l ParseErrors) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
}

// Unwrap exposes the individual errors to errors.Is / errors.As.
func (l ParseErrors) Unwrap() []error {
	out := make([]error, len(l))
	for i, e := range l {
		out[i] = e
	}
	return out
}

// ErrorKind names a category of evaluation-time failure.
type ErrorKind string

// Runtime error kinds.
const (
	KindUndefinedVariable ErrorKind = "UndefinedVariable"
	KindUndefinedFunction ErrorKind = "UndefinedFunction"
	KindArityMismatch     ErrorKind = "ArityMismatch"
	KindTypeMismatch      ErrorKind = "TypeMismatch"
	KindDivisionByZero    ErrorKind = "DivisionByZero"
	KindIndexOutOfBounds  ErrorKind = "IndexOutOfBounds"
	KindNoMatchingPattern ErrorKind = "NoMatchingPattern"
	KindUserThrown        ErrorKind = "UserThrown"
	KindRecursionLimit    ErrorKind = "RecursionLimit"
)

// Sentinels for errors.Is. A RuntimeError matches the sentinel of its kind.
var (
	ErrUndefinedVariable = &RuntimeError{Kind: KindUndefinedVariable}
	ErrUndefinedFunction = &RuntimeError{Kind: KindUndefinedFunction}
	ErrArityMismatch     = &RuntimeError{Kind: KindArityMismatch}
	ErrTypeMismatch      = &RuntimeError{Kind: KindTypeMismatch}
	ErrDivisionByZero    = &RuntimeError{Kind: KindDivisionByZero}
	ErrIndexOutOfBounds  = &RuntimeError{Kind: KindIndexOutOfBounds}
	ErrNoMatchingPattern = &RuntimeError{Kind: KindNoMatchingPattern}
	ErrUserThrown        = &RuntimeError{Kind: KindUserThrown}
	ErrRecursionLimit    = &RuntimeError{Kind: KindRecursionLimit}
)

// RuntimeError is a structured evaluation failure.
type RuntimeError struct {
	Kind    ErrorKind
	Message string
	Pos     Pos
	// Function is the name of the function whose call produced the error, if any.
	Function string
	// OriginalMessage carries the message of a rewrapped implementation failure.
	OriginalMessage string
	Err             error
}

// NewRuntimeError creates a new runtime error.
func NewRuntimeError(kind ErrorKind, message string) *RuntimeError {
	return &RuntimeError{
		Kind:    kind,
		Message: message,
	}
}

// Errorf creates a runtime error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...interface{}) *RuntimeError {
	return NewRuntimeError(kind, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Pos.Line > 0 {
		fmt.Fprintf(&b, " at %s", e.Pos)
	}
	if e.Function != "" {
		fmt.Fprintf(&b, " in %s()", e.Function)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap returns the wrapped error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of the same kind.
func (e *RuntimeError) Is(target error) bool {
	t, ok := target.(*RuntimeError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// WithPos returns e with pos recorded. e is returned unchanged when it
// already has a position; otherwise a copy is annotated, so sentinels and
// errors shared between evaluations are never modified.
func (e *RuntimeError) WithPos(pos Pos) *RuntimeError {
	if e.Pos.Line != 0 {
		return e
	}
	cp := *e
	cp.Pos = pos
	return &cp
}

// WithFunction returns a copy of e naming the function, unless one is
// already recorded.
func (e *RuntimeError) WithFunction(name string) *RuntimeError {
	if e.Function != "" {
		return e
	}
	cp := *e
	cp.Function = name
	return &cp
}

// WithCause returns a copy of e wrapping err.
func (e *RuntimeError) WithCause(err error) *RuntimeError {
	cp := *e
	cp.Err = err
	return &cp
}

// IsKind reports whether err is a RuntimeError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *RuntimeError
	if !errors.As(err, &re) {
		return false
	}
	return re.Kind == kind
}
