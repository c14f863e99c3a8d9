package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/grauwen/utl-x-sub015/pkg/types"
)

// Parser implements a recursive descent parser for transformation scripts.
// It uses Pratt's "Top Down Operator Precedence" algorithm to handle
// operator precedence correctly.
type Parser struct {
	lexer   *Lexer
	current Token
	prev    Token
	errors  types.ParseErrors
	opts    CompileOptions

	source    string
	header    types.Header
	headerErr error

	// depth is the current parseExpression nesting
	depth int
	// nesting counts open brackets, braces and parentheses
	nesting int
	// guardNesting is the bracket nesting of the match guard being parsed, or
	// -1. At that level "name =>" ends the guard instead of starting a lambda.
	guardNesting int
}

// NewParser creates a new parser for the given source text.
func NewParser(src string, opts ...CompileOption) *Parser {
	options := CompileOptions{
		EnableRecovery: false,
		MaxDepth:       DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&options)
	}

	header, offset, err := ParseHeader(src)
	p := &Parser{
		lexer:        newLexerAt(src, offset),
		opts:         options,
		source:       src,
		header:       header,
		headerErr:    err,
		guardNesting: -1,
	}

	// Read the first token
	p.advance()

	return p
}

// Parse parses the entire script and returns the Program.
func (p *Parser) Parse() (*types.Program, error) {
	if p.headerErr != nil {
		return nil, p.headerErr
	}

	if p.current.Type == TokenEOF {
		return nil, p.error(types.ErrUnexpectedEnd, "Empty expression")
	}

	body, err := p.parseSequence(TokenEOF, p.current.Pos)
	if err == nil && p.current.Type != TokenEOF {
		err = p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", p.describe(p.current)))
	}
	if err != nil && !p.opts.EnableRecovery {
		return nil, err
	}

	if len(p.errors) == 0 {
		return types.NewProgram(p.header, body, p.source), nil
	}
	if !p.opts.EnableRecovery {
		return nil, p.errors[0]
	}

	prog := types.NewProgram(p.header, body, p.source)
	for _, e := range p.errors {
		prog.AddError(e)
	}
	return prog, p.errors
}

// Operator precedence table (binding power)
// Higher values bind more tightly
var precedence = map[TokenType]int{
	TokenPipe:         10,  // |>
	TokenCoalesce:     20,  // ??
	TokenOr:           30,  // || or
	TokenAnd:          40,  // && and
	TokenEqual:        50,  // ==
	TokenNotEqual:     50,  // !=
	TokenLess:         60,  // <
	TokenLessEqual:    60,  // <=
	TokenGreater:      60,  // >
	TokenGreaterEqual: 60,  // >=
	TokenPlus:         70,  // +
	TokenMinus:        70,  // -
	TokenMult:         80,  // *
	TokenDiv:          80,  // /
	TokenMod:          80,  // %
	TokenDot:          100, // .
	TokenBracketOpen:  100, // [
	TokenParenOpen:    100, // (
}

// unaryPrecedence binds prefix -, ! and not tighter than any binary operator
// but looser than postfix access.
const unaryPrecedence = 90

var binaryOperators = map[TokenType]types.Operator{
	TokenPlus:         types.OpAdd,
	TokenMinus:        types.OpSub,
	TokenMult:         types.OpMul,
	TokenDiv:          types.OpDiv,
	TokenMod:          types.OpMod,
	TokenEqual:        types.OpEq,
	TokenNotEqual:     types.OpNotEq,
	TokenLess:         types.OpLess,
	TokenLessEqual:    types.OpLessEq,
	TokenGreater:      types.OpGreater,
	TokenGreaterEqual: types.OpGreaterEq,
	TokenAnd:          types.OpAnd,
	TokenOr:           types.OpOr,
	TokenCoalesce:     types.OpCoalesce,
}

// getPrecedence returns the precedence of a token type.
func (p *Parser) getPrecedence(tt TokenType) int {
	if prec, ok := precedence[tt]; ok {
		return prec
	}
	return 0
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.prev = p.current
	p.current = p.lexer.Next()
}

// parserState is a snapshot used for bounded lookahead.
type parserState struct {
	lexer   Lexer
	current Token
	prev    Token
}

func (p *Parser) save() parserState {
	return parserState{lexer: *p.lexer, current: p.current, prev: p.prev}
}

func (p *Parser) restore(s parserState) {
	*p.lexer = s.lexer
	p.current = s.current
	p.prev = s.prev
}

// peek returns the token after the current one without consuming anything.
func (p *Parser) peek() Token {
	saved := *p.lexer
	t := p.lexer.Next()
	*p.lexer = saved
	return t
}

// expect checks if the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		if p.current.Type == TokenError {
			return p.lexError()
		}
		code := types.ErrExpectedToken
		if p.current.Type == TokenEOF {
			code = types.ErrUnexpectedEnd
		}
		return p.error(code, fmt.Sprintf("Expected %s but got %s", tt.String(), p.describe(p.current)))
	}
	p.advance()
	return nil
}

// error creates a parser error at the current token and records it.
func (p *Parser) error(code types.ErrorCode, message string) error {
	return p.errorAt(code, message, p.current)
}

func (p *Parser) errorAt(code types.ErrorCode, message string, t Token) error {
	err := types.NewParseError(code, message, t.Pos).WithToken(t.Value)
	p.errors = append(p.errors, err)
	return err
}

// lexError records the lexer's error.
func (p *Parser) lexError() error {
	err := p.lexer.Error()
	if err == nil {
		return p.error(types.ErrSyntaxError, "Invalid token")
	}
	if n := len(p.errors); n == 0 || p.errors[n-1] != err {
		p.errors = append(p.errors, err)
	}
	return err
}

func (p *Parser) describe(t Token) string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenName, TokenString, TokenInteger, TokenDecimal, TokenVariable:
		return fmt.Sprintf("%s %q", t.Type.String(), t.Value)
	}
	return fmt.Sprintf("%q", t.Type.String())
}

// synchronize skips tokens after an error up to the next statement or
// element boundary.
func (p *Parser) synchronize(end TokenType) {
	for {
		switch p.current.Type {
		case TokenSemicolon, TokenComma:
			p.advance()
			return
		case end, TokenEOF, TokenError:
			return
		case TokenBraceClose:
			// stray closing brace outside the block being parsed
			p.advance()
			return
		}
		p.advance()
	}
}

// parseSequence parses statements followed by a result expression until end.
// A sequence without statements is its result expression; otherwise it is a
// Block. Inside braces, a field (name: value) after the statements starts an
// object literal that becomes the result.
func (p *Parser) parseSequence(end TokenType, pos types.Pos) (types.Node, error) {
	var (
		stmts    []types.Node
		result   types.Node
		firstErr error
	)

	for p.current.Type != end && p.current.Type != TokenEOF {
		if result != nil {
			if p.current.Type == TokenError {
				return nil, p.lexError()
			}
			err := p.error(types.ErrExpectedToken, fmt.Sprintf("Expected %s but got %s", end.String(), p.describe(p.current)))
			if !p.opts.EnableRecovery {
				return nil, err
			}
			if firstErr == nil {
				firstErr = err
			}
			p.synchronize(end)
			continue
		}

		var (
			node   types.Node
			isStmt bool
			err    error
		)
		if end == TokenBraceClose && p.atObjectField() {
			node, err = p.parseObjectBody(pos)
		} else {
			node, isStmt, err = p.parseStatement()
		}
		if err != nil {
			if !p.opts.EnableRecovery || p.current.Type == TokenError {
				return nil, err
			}
			if firstErr == nil {
				firstErr = err
			}
			p.synchronize(end)
			continue
		}

		if isStmt {
			stmts = append(stmts, node)
		} else {
			result = node
		}
		for p.current.Type == TokenSemicolon {
			p.advance()
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if result == nil {
		if len(stmts) == 0 {
			if p.current.Type == TokenError {
				return nil, p.lexError()
			}
			return nil, p.error(types.ErrUnexpectedEnd, "Expected an expression")
		}
		result = &types.Literal{Base: types.At(p.current.Pos), Kind: types.LitNull}
	}
	if len(stmts) == 0 {
		return result, nil
	}
	return &types.Block{Base: types.At(pos), Statements: stmts, Result: result}, nil
}

// parseStatement parses a let binding, a function definition or an
// expression. isStmt is false for expressions, including let ... in.
func (p *Parser) parseStatement() (node types.Node, isStmt bool, err error) {
	switch p.current.Type {
	case TokenLet:
		let, err := p.parseLet(false)
		if err != nil {
			return nil, false, err
		}
		return let, let.Body == nil, nil
	case TokenFunction:
		if next := p.peek(); next.Type == TokenName {
			def, err := p.parseFunctionDef()
			return def, true, err
		}
	}
	node, err = p.parseExpression(0)
	return node, false, err
}

// parseExpression parses an expression with operator precedence.
// rbp is the right binding power (minimum precedence).
func (p *Parser) parseExpression(rbp int) (types.Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.opts.MaxDepth > 0 && p.depth > p.opts.MaxDepth {
		return nil, p.error(types.ErrTooDeep, fmt.Sprintf("Expression nesting exceeds %d levels", p.opts.MaxDepth))
	}

	// Parse prefix expression (nud - null denotation)
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	// Parse infix expressions while precedence allows (led - left denotation)
	for rbp < p.getPrecedence(p.current.Type) {
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parsePrefix parses a prefix expression (nud - null denotation).
// These are expressions that don't require a left-hand side.
func (p *Parser) parsePrefix() (types.Node, error) {
	token := p.current

	switch token.Type {
	case TokenString:
		return p.parseString()
	case TokenInteger, TokenDecimal:
		return p.parseNumber()
	case TokenBoolean:
		p.advance()
		return &types.Literal{Base: types.At(token.Pos), Kind: types.LitBool, Bool: token.Value == "true"}, nil
	case TokenNull:
		p.advance()
		return &types.Literal{Base: types.At(token.Pos), Kind: types.LitNull}, nil
	case TokenName, TokenVariable:
		if p.arrowFollows() {
			return p.parseArrowLambda()
		}
		p.advance()
		return &types.VariableRef{Base: types.At(token.Pos), Name: token.Value}, nil
	case TokenMinus:
		return p.parseUnaryMinus()
	case TokenNot:
		p.advance()
		operand, err := p.parseExpression(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		return &types.UnaryOp{Base: types.At(token.Pos), Op: types.OpNot, Operand: operand}, nil
	case TokenParenOpen:
		if p.lambdaParamsFollow() {
			return p.parseParenLambda()
		}
		return p.parseGrouping()
	case TokenBracketOpen:
		return p.parseArrayConstructor()
	case TokenBraceOpen:
		return p.parseBraced()
	case TokenLet:
		let, err := p.parseLet(true)
		if err != nil {
			return nil, err
		}
		return let, nil
	case TokenIf:
		return p.parseConditional()
	case TokenMatch:
		return p.parseMatch()
	case TokenFunction:
		return p.parseAnonymousFunction()
	case TokenError:
		return nil, p.lexError()
	case TokenEOF:
		return nil, p.error(types.ErrUnexpectedEnd, "Unexpected end of expression")
	default:
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", p.describe(token)))
	}
}

// parseInfix parses an infix expression (led - left denotation).
// These are expressions that require a left-hand side.
func (p *Parser) parseInfix(left types.Node) (types.Node, error) {
	token := p.current

	switch token.Type {
	case TokenDot:
		return p.parseField(left)
	case TokenBracketOpen:
		return p.parseIndex(left)
	case TokenParenOpen:
		return p.parseFunctionCall(left)
	case TokenPipe:
		p.advance()
		right, err := p.parseExpression(precedence[TokenPipe])
		if err != nil {
			return nil, err
		}
		return &types.PipeExpr{Base: types.At(token.Pos), Left: left, Right: right}, nil
	default:
		op, ok := binaryOperators[token.Type]
		if !ok {
			return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected infix token: %s", p.describe(token)))
		}
		p.advance()
		right, err := p.parseExpression(p.getPrecedence(token.Type))
		if err != nil {
			return nil, err
		}
		return &types.BinaryOp{Base: types.At(token.Pos), Op: op, Left: left, Right: right}, nil
	}
}

// unescapeString processes escape sequences in a string literal.
// Handles standard escapes (\n, \t, etc.) and Unicode escapes (\uXXXX).
// Also handles UTF-16 surrogate pairs for characters outside the BMP.
func unescapeString(s string) (string, error) {
	if !strings.Contains(s, "\\") {
		return s, nil // Fast path: no escapes
	}

	var result strings.Builder
	result.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			result.WriteByte(s[i])
			continue
		}

		i++ // Skip backslash
		if i >= len(s) {
			return "", fmt.Errorf("invalid escape sequence at end of string")
		}

		switch s[i] {
		case 'n':
			result.WriteByte('\n')
		case 't':
			result.WriteByte('\t')
		case 'r':
			result.WriteByte('\r')
		case 'b':
			result.WriteByte('\b')
		case 'f':
			result.WriteByte('\f')
		case '\\':
			result.WriteByte('\\')
		case '"':
			result.WriteByte('"')
		case '\'':
			result.WriteByte('\'')
		case '/':
			result.WriteByte('/')
		case '$':
			result.WriteByte('$')
		case 'u':
			if i+4 >= len(s) {
				return "", fmt.Errorf("invalid \\u escape: not enough characters")
			}
			code, err := strconv.ParseUint(s[i+1:i+5], 16, 16)
			if err != nil {
				return "", fmt.Errorf("invalid \\u escape: %s", s[i+1:i+5])
			}
			i += 4
			r := rune(code)

			// High surrogate: combine with a following \uDC00-\uDFFF
			if utf16.IsSurrogate(r) && i+6 < len(s) && s[i+1] == '\\' && s[i+2] == 'u' {
				if low, err := strconv.ParseUint(s[i+3:i+7], 16, 16); err == nil {
					if dec := utf16.DecodeRune(r, rune(low)); dec != unicode.ReplacementChar {
						result.WriteRune(dec)
						i += 6
						continue
					}
				}
			}
			result.WriteRune(r)
		default:
			return "", fmt.Errorf("unsupported escape sequence \\%c", s[i])
		}
	}

	return result.String(), nil
}

// parseString parses a string literal.
func (p *Parser) parseString() (types.Node, error) {
	token := p.current
	unescaped, err := unescapeString(token.Value)
	if err != nil {
		return nil, p.error(types.ErrUnsupportedEscape, fmt.Sprintf("Invalid string literal: %v", err))
	}
	p.advance()
	return &types.Literal{Base: types.At(token.Pos), Kind: types.LitString, Str: unescaped}, nil
}

// parseNumber parses a number literal. Integer literals that fit in int64
// stay integers; larger ones become decimals.
func (p *Parser) parseNumber() (types.Node, error) {
	token := p.current
	lit := &types.Literal{Base: types.At(token.Pos)}

	if token.Type == TokenInteger {
		if i, err := strconv.ParseInt(token.Value, 10, 64); err == nil {
			lit.Kind = types.LitLong
			lit.Long = i
			p.advance()
			return lit, nil
		}
	}

	f, err := strconv.ParseFloat(token.Value, 64)
	if err != nil || math.IsInf(f, 0) {
		return nil, p.error(types.ErrNumberOutOfRange, fmt.Sprintf("Number out of range: %s", token.Value))
	}
	lit.Kind = types.LitDouble
	lit.Double = f
	p.advance()
	return lit, nil
}

// parseUnaryMinus parses a unary minus operator. A minus in front of a
// number literal is folded into the literal.
func (p *Parser) parseUnaryMinus() (types.Node, error) {
	pos := p.current.Pos
	p.advance()

	// The magnitude of math.MinInt64 does not fit in int64 on its own.
	if p.current.Type == TokenInteger {
		if i, err := strconv.ParseInt("-"+p.current.Value, 10, 64); err == nil && i == math.MinInt64 {
			p.advance()
			return &types.Literal{Base: types.At(pos), Kind: types.LitLong, Long: i}, nil
		}
	}

	operand, err := p.parseExpression(unaryPrecedence)
	if err != nil {
		return nil, err
	}

	if lit, ok := operand.(*types.Literal); ok {
		switch lit.Kind {
		case types.LitLong:
			if lit.Long != math.MinInt64 {
				return &types.Literal{Base: types.At(pos), Kind: types.LitLong, Long: -lit.Long}, nil
			}
		case types.LitDouble:
			return &types.Literal{Base: types.At(pos), Kind: types.LitDouble, Double: -lit.Double}, nil
		}
	}

	return &types.UnaryOp{Base: types.At(pos), Op: types.OpNeg, Operand: operand}, nil
}

// arrowFollows reports whether the current name starts a single-parameter
// lambda (x => body or x -> body).
func (p *Parser) arrowFollows() bool {
	if p.nesting == p.guardNesting {
		return false
	}
	next := p.peek()
	return next.Type == TokenArrow || next.Type == TokenThinArrow
}

// parseArrowLambda parses "x => body".
func (p *Parser) parseArrowLambda() (types.Node, error) {
	token := p.current
	p.advance() // name
	p.advance() // arrow
	body, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	return &types.LambdaExpr{Base: types.At(token.Pos), Params: []string{token.Value}, Body: body}, nil
}

// lambdaParamsFollow reports whether the current "(" opens a parameter list
// followed by an arrow: (a, b) => body or () => body.
func (p *Parser) lambdaParamsFollow() bool {
	state := p.save()
	defer p.restore(state)

	p.advance() // (
	for p.current.Type != TokenParenClose {
		if p.current.Type != TokenName && p.current.Type != TokenVariable {
			return false
		}
		p.advance()
		if p.current.Type == TokenComma {
			p.advance()
			continue
		}
		if p.current.Type != TokenParenClose {
			return false
		}
	}
	p.advance() // )
	return p.current.Type == TokenArrow || p.current.Type == TokenThinArrow
}

// parseParenLambda parses "(a, b) => body".
func (p *Parser) parseParenLambda() (types.Node, error) {
	pos := p.current.Pos
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenArrow && p.current.Type != TokenThinArrow {
		return nil, p.error(types.ErrExpectedToken, fmt.Sprintf("Expected => but got %s", p.describe(p.current)))
	}
	p.advance()
	body, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	return &types.LambdaExpr{Base: types.At(pos), Params: params, Body: body}, nil
}

// parseParams parses a parenthesized, comma separated parameter list.
func (p *Parser) parseParams() ([]string, error) {
	if err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	params := []string{}
	seen := map[string]bool{}
	for p.current.Type != TokenParenClose {
		if p.current.Type != TokenName && p.current.Type != TokenVariable {
			return nil, p.error(types.ErrExpectedToken, fmt.Sprintf("Expected parameter name but got %s", p.describe(p.current)))
		}
		if seen[p.current.Value] {
			return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Duplicate parameter %q", p.current.Value))
		}
		seen[p.current.Value] = true
		params = append(params, p.current.Value)
		p.advance()
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return params, nil
}

// parseGrouping parses a parenthesized expression.
func (p *Parser) parseGrouping() (types.Node, error) {
	p.advance() // (
	p.nesting++
	defer func() { p.nesting-- }()

	expr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return expr, nil
}

// parseArrayConstructor parses [a, b, ...rest].
func (p *Parser) parseArrayConstructor() (types.Node, error) {
	pos := p.current.Pos
	p.advance() // [
	p.nesting++
	defer func() { p.nesting-- }()

	node := &types.ArrayConstruction{Base: types.At(pos)}
	for p.current.Type != TokenBracketClose {
		spread := false
		if p.current.Type == TokenSpread {
			spread = true
			p.advance()
		}
		value, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		node.Elements = append(node.Elements, types.ArrayElement{Value: value, Spread: spread})
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}

	if err := p.expect(TokenBracketClose); err != nil {
		return nil, err
	}
	return node, nil
}

// parseBraced parses "{ ... }", which is an object literal when it is empty,
// starts with a spread or starts with "key:"; otherwise it is a block.
func (p *Parser) parseBraced() (types.Node, error) {
	pos := p.current.Pos
	p.advance() // {
	p.nesting++
	defer func() { p.nesting-- }()

	var (
		node types.Node
		err  error
	)
	switch {
	case p.current.Type == TokenBraceClose:
		node = &types.ObjectConstruction{Base: types.At(pos)}
	case p.atObjectField():
		node, err = p.parseObjectBody(pos)
	default:
		node, err = p.parseSequence(TokenBraceClose, pos)
	}
	if err != nil {
		return nil, err
	}

	if err := p.expect(TokenBraceClose); err != nil {
		return nil, err
	}
	return node, nil
}

// atObjectField reports whether the current token starts an object field.
func (p *Parser) atObjectField() bool {
	if p.current.Type == TokenSpread {
		return true
	}
	if !p.isFieldName(p.current) {
		return false
	}
	return p.peek().Type == TokenColon
}

// isFieldName reports whether t can name a property: a name, a quoted
// string, a keyword or an @attribute.
func (p *Parser) isFieldName(t Token) bool {
	switch t.Type {
	case TokenName, TokenString, TokenVariable:
		return true
	case TokenAnd, TokenOr, TokenNot:
		return isNameStart(rune(t.Value[0]))
	}
	return isKeyword(t.Type)
}

// fieldName returns the property name carried by t. Attribute-style names
// keep their @ sigil.
func (p *Parser) fieldName(t Token) (string, error) {
	switch t.Type {
	case TokenString:
		s, err := unescapeString(t.Value)
		if err != nil {
			return "", p.errorAt(types.ErrUnsupportedEscape, fmt.Sprintf("Invalid string literal: %v", err), t)
		}
		return s, nil
	case TokenVariable:
		if off := t.Pos.Offset; off < len(p.source) && p.source[off] == '@' {
			return "@" + t.Value, nil
		}
	}
	return t.Value, nil
}

// parseObjectBody parses object fields up to (not including) the closing
// brace.
func (p *Parser) parseObjectBody(pos types.Pos) (types.Node, error) {
	node := &types.ObjectConstruction{Base: types.At(pos)}
	for p.current.Type != TokenBraceClose {
		if p.current.Type == TokenSpread {
			p.advance()
			value, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			node.Fields = append(node.Fields, types.ObjectField{Value: value, Spread: true})
		} else {
			if !p.isFieldName(p.current) {
				if p.current.Type == TokenError {
					return nil, p.lexError()
				}
				return nil, p.error(types.ErrExpectedToken, fmt.Sprintf("Expected property name but got %s", p.describe(p.current)))
			}
			key, err := p.fieldName(p.current)
			if err != nil {
				return nil, err
			}
			p.advance()
			if err := p.expect(TokenColon); err != nil {
				return nil, err
			}
			value, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			node.Fields = append(node.Fields, types.ObjectField{Key: key, Value: value})
		}

		if p.current.Type != TokenComma && p.current.Type != TokenSemicolon {
			break
		}
		p.advance()
	}
	return node, nil
}

// parseField parses ".name" and folds it into the selector chain.
func (p *Parser) parseField(left types.Node) (types.Node, error) {
	p.advance() // .
	token := p.current
	if !p.isFieldName(token) {
		if token.Type == TokenError {
			return nil, p.lexError()
		}
		return nil, p.error(types.ErrExpectedToken, fmt.Sprintf("Expected property name after '.' but got %s", p.describe(token)))
	}
	name, err := p.fieldName(token)
	if err != nil {
		return nil, err
	}
	p.advance()
	return appendStep(left, types.Step{Kind: types.StepField, Field: name, Pos: token.Pos}), nil
}

// parseIndex parses "[expr]" and folds it into the selector chain.
func (p *Parser) parseIndex(left types.Node) (types.Node, error) {
	pos := p.current.Pos
	p.advance() // [
	p.nesting++
	defer func() { p.nesting-- }()

	index, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenBracketClose); err != nil {
		return nil, err
	}
	return appendStep(left, types.Step{Kind: types.StepIndex, Index: index, Pos: pos}), nil
}

func appendStep(left types.Node, step types.Step) types.Node {
	if sel, ok := left.(*types.Selector); ok {
		steps := make([]types.Step, len(sel.Steps), len(sel.Steps)+1)
		copy(steps, sel.Steps)
		return &types.Selector{Base: sel.Base, Target: sel.Target, Steps: append(steps, step)}
	}
	return &types.Selector{Base: types.At(left.Pos()), Target: left, Steps: []types.Step{step}}
}

// parseFunctionCall parses an argument list applied to left. Calls through a
// plain name keep the name so the evaluator can fall back to the registry.
func (p *Parser) parseFunctionCall(left types.Node) (types.Node, error) {
	p.advance() // (
	p.nesting++
	defer func() { p.nesting-- }()

	call := &types.FunctionCall{Base: types.At(left.Pos()), Args: []types.Node{}}
	if ref, ok := left.(*types.VariableRef); ok {
		call.Name = ref.Name
	} else {
		call.Callee = left
	}

	for p.current.Type != TokenParenClose {
		arg, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}

	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return call, nil
}

// parseLet parses "let name = value" and, when followed by "in", its body.
// requireBody is set in expression position, where "in" is mandatory.
func (p *Parser) parseLet(requireBody bool) (*types.LetBinding, error) {
	pos := p.current.Pos
	p.advance() // let

	if p.current.Type != TokenName && p.current.Type != TokenVariable {
		return nil, p.error(types.ErrExpectedToken, fmt.Sprintf("Expected name after let but got %s", p.describe(p.current)))
	}
	name := p.current.Value
	p.advance()

	if err := p.expect(TokenAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	let := &types.LetBinding{Base: types.At(pos), Name: name, Value: value}
	if p.current.Type != TokenIn {
		if requireBody {
			return nil, p.error(types.ErrExpectedKeyword, fmt.Sprintf("Expected in but got %s", p.describe(p.current)))
		}
		return let, nil
	}
	p.advance() // in
	body, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	let.Body = body
	return let, nil
}

// parseFunctionDef parses "function name(params) { body }" or
// "function name(params) = expr".
func (p *Parser) parseFunctionDef() (types.Node, error) {
	pos := p.current.Pos
	p.advance() // function
	name := p.current.Value
	p.advance()

	params, body, err := p.parseFunctionRest()
	if err != nil {
		return nil, err
	}
	return &types.FunctionDef{Base: types.At(pos), Name: name, Params: params, Body: body}, nil
}

// parseAnonymousFunction parses "function (params) { body }" in expression
// position.
func (p *Parser) parseAnonymousFunction() (types.Node, error) {
	pos := p.current.Pos
	p.advance() // function
	if p.current.Type == TokenName {
		return nil, p.error(types.ErrSyntaxError, "Named function definitions are statements and cannot be used as values")
	}
	params, body, err := p.parseFunctionRest()
	if err != nil {
		return nil, err
	}
	return &types.LambdaExpr{Base: types.At(pos), Params: params, Body: body}, nil
}

func (p *Parser) parseFunctionRest() ([]string, types.Node, error) {
	params, err := p.parseParams()
	if err != nil {
		return nil, nil, err
	}

	switch p.current.Type {
	case TokenAssign:
		p.advance()
		body, err := p.parseExpression(0)
		return params, body, err
	case TokenBraceOpen:
		body, err := p.parseBraced()
		return params, body, err
	default:
		return nil, nil, p.error(types.ErrExpectedToken, fmt.Sprintf("Expected { or = but got %s", p.describe(p.current)))
	}
}

// parseConditional parses "if (cond) then else otherwise". The else branch is
// optional and defaults to null at evaluation time.
func (p *Parser) parseConditional() (types.Node, error) {
	pos := p.current.Pos
	p.advance() // if

	var (
		cond types.Node
		err  error
	)
	if p.current.Type == TokenParenOpen {
		cond, err = p.parseGrouping()
	} else {
		cond, err = p.parseExpression(0)
	}
	if err != nil {
		return nil, err
	}

	then, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	node := &types.Conditional{Base: types.At(pos), Cond: cond, Then: then}
	if p.current.Type == TokenElse {
		p.advance()
		if node.Else, err = p.parseExpression(0); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// parseMatch parses "match subject { pattern [if guard] => body, ... }".
func (p *Parser) parseMatch() (types.Node, error) {
	pos := p.current.Pos
	p.advance() // match

	subject, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenBraceOpen); err != nil {
		return nil, err
	}
	p.nesting++
	defer func() { p.nesting-- }()

	node := &types.MatchExpr{Base: types.At(pos), Subject: subject}
	for p.current.Type != TokenBraceClose {
		arm, err := p.parseMatchArm()
		if err != nil {
			return nil, err
		}
		node.Arms = append(node.Arms, arm)
		for p.current.Type == TokenComma || p.current.Type == TokenSemicolon {
			p.advance()
		}
		if p.current.Type == TokenEOF {
			break
		}
	}
	if len(node.Arms) == 0 {
		return nil, p.error(types.ErrSyntaxError, "match requires at least one case")
	}
	if err := p.expect(TokenBraceClose); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseMatchArm() (types.MatchArm, error) {
	arm := types.MatchArm{Pos: p.current.Pos}
	token := p.current

	switch token.Type {
	case TokenName, TokenVariable:
		p.advance()
		if token.Value == "_" {
			arm.Pattern = types.Pattern{Kind: types.PatternWildcard}
		} else {
			arm.Pattern = types.Pattern{Kind: types.PatternBinding, Name: token.Value}
		}
	case TokenString, TokenInteger, TokenDecimal, TokenBoolean, TokenNull, TokenMinus:
		lit, err := p.parsePrefix()
		if err != nil {
			return arm, err
		}
		l, ok := lit.(*types.Literal)
		if !ok {
			return arm, p.errorAt(types.ErrSyntaxError, "Expected a literal pattern", token)
		}
		arm.Pattern = types.Pattern{Kind: types.PatternLiteral, Literal: l}
	case TokenError:
		return arm, p.lexError()
	default:
		return arm, p.error(types.ErrExpectedToken, fmt.Sprintf("Expected pattern but got %s", p.describe(token)))
	}

	if p.current.Type == TokenIf {
		p.advance()
		saved := p.guardNesting
		p.guardNesting = p.nesting
		guard, err := p.parseExpression(0)
		p.guardNesting = saved
		if err != nil {
			return arm, err
		}
		arm.Guard = guard
	}

	if err := p.expect(TokenArrow); err != nil {
		return arm, err
	}
	body, err := p.parseExpression(0)
	if err != nil {
		return arm, err
	}
	arm.Body = body
	return arm, nil
}
