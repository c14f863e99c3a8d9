package parser

import "github.com/grauwen/utl-x-sub015/pkg/types"

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenString   // "hello" or 'hello'
	TokenInteger  // 123
	TokenDecimal  // 3.14, 1e-10
	TokenBoolean  // true, false
	TokenNull     // null
	TokenName     // fieldName
	TokenVariable // $var, @var

	// Grouping symbols
	TokenBracketOpen  // [
	TokenBracketClose // ]
	TokenBraceOpen    // {
	TokenBraceClose   // }
	TokenParenOpen    // (
	TokenParenClose   // )

	// Basic symbols
	TokenDot       // .
	TokenComma     // ,
	TokenColon     // :
	TokenSemicolon // ;
	TokenSpread    // ...

	// Arithmetic operators
	TokenPlus  // +
	TokenMinus // -
	TokenMult  // *
	TokenDiv   // /
	TokenMod   // %

	// Comparison operators
	TokenEqual        // ==
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=

	// Logical operators
	TokenAnd      // && and
	TokenOr       // || or
	TokenNot      // ! not
	TokenCoalesce // ??

	// Special operators
	TokenAssign    // =
	TokenPipe      // |>
	TokenArrow     // =>
	TokenThinArrow // ->

	// Keywords
	TokenLet
	TokenIn
	TokenIf
	TokenElse
	TokenFunction
	TokenMatch
)

var tokenNames = [...]string{
	TokenEOF:          "(eof)",
	TokenError:        "(error)",
	TokenString:       "(string)",
	TokenInteger:      "(integer)",
	TokenDecimal:      "(decimal)",
	TokenBoolean:      "(boolean)",
	TokenNull:         "(null)",
	TokenName:         "(name)",
	TokenVariable:     "(variable)",
	TokenBracketOpen:  "[",
	TokenBracketClose: "]",
	TokenBraceOpen:    "{",
	TokenBraceClose:   "}",
	TokenParenOpen:    "(",
	TokenParenClose:   ")",
	TokenDot:          ".",
	TokenComma:        ",",
	TokenColon:        ":",
	TokenSemicolon:    ";",
	TokenSpread:       "...",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenMult:         "*",
	TokenDiv:          "/",
	TokenMod:          "%",
	TokenEqual:        "==",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenAnd:          "&&",
	TokenOr:           "||",
	TokenNot:          "!",
	TokenCoalesce:     "??",
	TokenAssign:       "=",
	TokenPipe:         "|>",
	TokenArrow:        "=>",
	TokenThinArrow:    "->",
	TokenLet:          "let",
	TokenIn:           "in",
	TokenIf:           "if",
	TokenElse:         "else",
	TokenFunction:     "function",
	TokenMatch:        "match",
}

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	if int(tt) < len(tokenNames) && tokenNames[tt] != "" {
		return tokenNames[tt]
	}
	return "(unknown)"
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType // Type of the token
	Value string    // Literal value of the token
	Pos   types.Pos // Starting position in the input string
}

// symbols1 maps single-character symbols to token types.
var symbols1 = [...]TokenType{
	'[': TokenBracketOpen,
	']': TokenBracketClose,
	'{': TokenBraceOpen,
	'}': TokenBraceClose,
	'(': TokenParenOpen,
	')': TokenParenClose,
	'.': TokenDot,
	',': TokenComma,
	';': TokenSemicolon,
	':': TokenColon,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenMult,
	'/': TokenDiv,
	'%': TokenMod,
	'=': TokenAssign,
	'<': TokenLess,
	'>': TokenGreater,
	'!': TokenNot,
}

// runeTokenType pairs a rune with its corresponding token type.
type runeTokenType struct {
	r  rune
	tt TokenType
}

// symbols2 maps two-character symbol sequences to token types.
// The key is the first character of the sequence.
var symbols2 = [...][]runeTokenType{
	'!': {{'=', TokenNotEqual}},
	'<': {{'=', TokenLessEqual}},
	'>': {{'=', TokenGreaterEqual}},
	'=': {{'=', TokenEqual}, {'>', TokenArrow}},
	'-': {{'>', TokenThinArrow}},
	'&': {{'&', TokenAnd}},
	'|': {{'|', TokenOr}, {'>', TokenPipe}},
	'?': {{'?', TokenCoalesce}},
}

const (
	symbol1Count = rune(len(symbols1))
	symbol2Count = rune(len(symbols2))
)

// lookupSymbol1 returns the token type for a single-character symbol.
// Returns 0 if the rune is not a valid symbol.
func lookupSymbol1(r rune) TokenType {
	if r < 0 || r >= symbol1Count {
		return 0
	}
	return symbols1[r]
}

// lookupSymbol2 returns possible two-character symbol completions.
// Returns nil if the rune cannot start a two-character symbol.
func lookupSymbol2(r rune) []runeTokenType {
	if r < 0 || r >= symbol2Count {
		return nil
	}
	return symbols2[r]
}

// lookupKeyword returns the token type for a keyword.
// Returns 0 if the string is not a recognized keyword.
func lookupKeyword(s string) TokenType {
	switch s {
	case "and":
		return TokenAnd
	case "or":
		return TokenOr
	case "not":
		return TokenNot
	case "let":
		return TokenLet
	case "in":
		return TokenIn
	case "if":
		return TokenIf
	case "else":
		return TokenElse
	case "function":
		return TokenFunction
	case "match":
		return TokenMatch
	case "true", "false":
		return TokenBoolean
	case "null":
		return TokenNull
	default:
		return 0
	}
}

// isKeyword reports whether tt is a word token that may also serve as a
// property name after a dot or as an object key.
func isKeyword(tt TokenType) bool {
	switch tt {
	case TokenLet, TokenIn, TokenIf, TokenElse, TokenFunction, TokenMatch,
		TokenBoolean, TokenNull:
		return true
	}
	return false
}
