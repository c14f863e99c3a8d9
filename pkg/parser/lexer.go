package parser

import (
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/grauwen/utl-x-sub015/pkg/types"
)

const eof = -1

// Lexer converts a transformation body into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
// Positions are reported as byte offsets into the full input together with
// 1-based line and column numbers.
type Lexer struct {
	input      string // Input string being scanned
	length     int    // Length of input string
	start      int    // Start position of current token
	current    int    // Current position in input
	width      int    // Width of last rune read
	lineStarts []int  // Offsets at which each line begins
	err        *types.ParseError
}

// NewLexer creates a new lexer from the provided input string.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	return newLexerAt(input, 0)
}

// newLexerAt creates a lexer that starts scanning at offset, keeping line
// numbers relative to the whole input.
func newLexerAt(input string, offset int) *Lexer {
	starts := []int{0}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Lexer{
		input:      input,
		length:     len(input),
		start:      offset,
		current:    offset,
		lineStarts: starts,
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all subsequent calls.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	// Check if skipWhitespace encountered an error (e.g., unclosed comment)
	if l.err != nil {
		return Token{Type: TokenError, Value: l.err.Message, Pos: l.err.Pos}
	}

	ch := l.nextRune()
	if ch == eof {
		return l.eof()
	}

	// Spread must be checked before the single dot
	if ch == '.' && l.acceptPrefix("..") {
		return l.newToken(TokenSpread)
	}

	// Check for two-character symbols first (e.g., !=, <=, |>)
	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
	}

	// Check for single-character symbols
	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	// String literals (single or double quoted)
	if ch == '"' || ch == '\'' {
		l.ignore()
		return l.scanString(ch)
	}

	// Number literals
	if isDigit(ch) {
		l.backup()
		return l.scanNumber()
	}

	// Variables: $name and @name
	if ch == '$' || ch == '@' {
		return l.scanVariable()
	}

	if isNameStart(ch) {
		l.backup()
		return l.scanName()
	}

	return l.error(types.ErrInvalidCharacter, fmt.Sprintf("Invalid character %q", ch))
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() *types.ParseError {
	return l.err
}

// Pos converts a byte offset into a position.
func (l *Lexer) Pos(offset int) types.Pos {
	line := sort.Search(len(l.lineStarts), func(i int) bool {
		return l.lineStarts[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}
	start := l.lineStarts[line]
	if offset > l.length {
		offset = l.length
	}
	return types.Pos{
		Offset: offset,
		Line:   line + 1,
		Column: utf8.RuneCountInString(l.input[start:offset]) + 1,
	}
}

// scanString reads a string literal from the current position.
// The opening quote has already been consumed. Escapes are validated and
// decoded by the parser.
func (l *Lexer) scanString(quote rune) Token {
Loop:
	for {
		switch l.nextRune() {
		case quote:
			break Loop
		case '\\':
			// Consume escaped character
			if r := l.nextRune(); r != eof {
				break
			}
			fallthrough
		case eof:
			// report at the opening quote
			l.start--
			return l.error(types.ErrStringNotClosed, "Unterminated string literal")
		}
	}

	l.backup()
	t := l.newToken(TokenString)
	l.acceptRune(quote)
	l.ignore()
	return t
}

// scanNumber reads a number literal from the current position.
// Format: [0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?
// Literals without a fraction or exponent are integers.
func (l *Lexer) scanNumber() Token {
	tt := TokenInteger
	l.acceptAll(isDigit)

	// Decimal part
	mark := l.current
	if l.acceptRune('.') {
		if !l.acceptAll(isDigit) {
			// "1." is an integer followed by a dot (e.g. a property step)
			l.current = mark
			return l.newToken(TokenInteger)
		}
		tt = TokenDecimal
	}

	// Exponent part
	mark = l.current
	if l.acceptRunes2('e', 'E') {
		l.acceptRunes2('+', '-')
		if !l.acceptAll(isDigit) {
			l.current = mark
			return l.newToken(tt)
		}
		tt = TokenDecimal
	}

	return l.newToken(tt)
}

// scanVariable reads the name following a $ or @ sigil. The sigil has
// already been consumed; the token starts at it but its value omits it.
func (l *Lexer) scanVariable() Token {
	if !l.accept(isNameStart) {
		return l.error(types.ErrInvalidCharacter, "Expected a name after variable sigil")
	}
	l.acceptAll(isNamePart)
	t := l.newToken(TokenVariable)
	t.Value = t.Value[1:]
	return t
}

// scanName reads a name or keyword from the current position.
// Names contain letters, digits and underscores and do not start with a digit.
func (l *Lexer) scanName() Token {
	l.acceptAll(isNamePart)
	t := l.newToken(TokenName)
	if tt := lookupKeyword(t.Value); tt > 0 {
		t.Type = tt
	}
	return t
}

// Helper methods

func (l *Lexer) eof() Token {
	return Token{
		Type: TokenEOF,
		Pos:  l.Pos(l.current),
	}
}

func (l *Lexer) error(code types.ErrorCode, message string) Token {
	t := l.newToken(TokenError)
	l.err = types.NewParseError(code, message, t.Pos).WithToken(t.Value)
	return t
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:  tt,
		Value: l.input[l.start:l.current],
		Pos:   l.Pos(l.start),
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.err != nil || l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
	l.width = 0
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

// acceptPrefix consumes s if the remaining input starts with it.
func (l *Lexer) acceptPrefix(s string) bool {
	if l.current+len(s) > l.length || l.input[l.current:l.current+len(s)] != s {
		return false
	}
	l.current += len(s)
	l.width = 0
	return true
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

func (l *Lexer) skipWhitespace() {
	for l.err == nil {
		l.acceptAll(isWhitespace)
		l.ignore()

		switch {
		case l.acceptPrefix("//"):
			for r := l.nextRune(); r != eof && r != '\n'; r = l.nextRune() {
			}
			l.ignore()
		case l.acceptPrefix("/*"):
			for {
				if l.acceptPrefix("*/") {
					break
				}
				if l.nextRune() == eof {
					l.err = types.NewParseError(types.ErrCommentNotClosed, "Unclosed comment", l.Pos(l.start))
					return
				}
			}
			l.ignore()
		default:
			return
		}
	}
}

// Character classification functions

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNamePart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
