package types

import (
	"strconv"
	"strings"
)

// NodeType identifies the type of an AST node.
type NodeType string

// AST node types.
const (
	NodeLiteral     NodeType = "literal"
	NodeVariable    NodeType = "variable"
	NodeSelector    NodeType = "selector"
	NodeObject      NodeType = "object"
	NodeArray       NodeType = "array"
	NodeBinary      NodeType = "binary"
	NodeUnary       NodeType = "unary"
	NodeLambda      NodeType = "lambda"
	NodeFunctionDef NodeType = "function"
	NodeCall        NodeType = "call"
	NodeLet         NodeType = "let"
	NodeBlock       NodeType = "block"
	NodePipe        NodeType = "pipe"
	NodeMatch       NodeType = "match"
	NodeCondition   NodeType = "condition"
)

// Node is a node of the abstract syntax tree. The set of implementations is
// closed: every node type is declared in this file and evaluators switch over
// them exhaustively.
type Node interface {
	Type() NodeType
	Pos() Pos
	node()
}

// Base carries the source position shared by all nodes.
type Base struct {
	Position Pos
}

func (b Base) Pos() Pos { return b.Position }
func (Base) node()      {}

// LiteralKind identifies the scalar type of a literal.
type LiteralKind uint8

const (
	LitNull LiteralKind = iota
	LitBool
	LitLong
	LitDouble
	LitString
)

// Literal is a scalar constant. Integer literals are kept as Long so the
// integer/floating-point distinction survives from parse time.
type Literal struct {
	Base
	Kind   LiteralKind
	Bool   bool
	Long   int64
	Double float64
	Str    string
}

// VariableRef references a binding by name ($name, @name and bare names are equivalent).
type VariableRef struct {
	Base
	Name string
}

// StepKind distinguishes selector steps.
type StepKind uint8

const (
	StepField StepKind = iota
	StepIndex
)

// Step is one element of a selector chain.
type Step struct {
	Kind  StepKind
	Field string
	Index Node
	Pos   Pos
}

// Selector is a left-associative property/index access chain.
type Selector struct {
	Base
	Target Node
	Steps  []Step
}

// ObjectField is a key/value pair or a spread inside an object literal.
type ObjectField struct {
	Key    string
	Value  Node
	Spread bool
}

// ObjectConstruction builds an ordered object.
type ObjectConstruction struct {
	Base
	Fields []ObjectField
}

// ArrayElement is an element or a spread inside an array literal.
type ArrayElement struct {
	Value  Node
	Spread bool
}

// ArrayConstruction builds an array.
type ArrayConstruction struct {
	Base
	Elements []ArrayElement
}

// Operator is a binary or unary operator symbol.
type Operator string

// Operators.
const (
	OpAdd       Operator = "+"
	OpSub       Operator = "-"
	OpMul       Operator = "*"
	OpDiv       Operator = "/"
	OpMod       Operator = "%"
	OpEq        Operator = "=="
	OpNotEq     Operator = "!="
	OpLess      Operator = "<"
	OpLessEq    Operator = "<="
	OpGreater   Operator = ">"
	OpGreaterEq Operator = ">="
	OpAnd       Operator = "&&"
	OpOr        Operator = "||"
	OpCoalesce  Operator = "??"
	OpNot       Operator = "!"
	OpNeg       Operator = "neg"
)

// BinaryOp applies an infix operator.
type BinaryOp struct {
	Base
	Op    Operator
	Left  Node
	Right Node
}

// UnaryOp applies a prefix operator.
type UnaryOp struct {
	Base
	Op      Operator
	Operand Node
}

// LambdaExpr is an anonymous function literal.
type LambdaExpr struct {
	Base
	Params []string
	Body   Node
}

// FunctionDef is a named function statement. It binds Name in the
// enclosing block before any body is evaluated.
type FunctionDef struct {
	Base
	Name   string
	Params []string
	Body   Node
}

// FunctionCall invokes a function. Name is set for calls by identifier and is
// resolved against the lexical scope first, then the function registry.
// Callee is set instead when the callee is an arbitrary expression.
type FunctionCall struct {
	Base
	Name   string
	Callee Node
	Args   []Node
}

// LetBinding binds Name to Value. As an expression (let x = v in body) Body is
// the expression evaluated in the extended scope; as a block statement Body is nil.
type LetBinding struct {
	Base
	Name  string
	Value Node
	Body  Node
}

// Block is an ordered list of statements (*LetBinding without body or
// *FunctionDef) followed by a trailing result expression.
type Block struct {
	Base
	Statements []Node
	Result     Node
}

// PipeExpr is left |> right, evaluated as right(left, ...).
type PipeExpr struct {
	Base
	Left  Node
	Right Node
}

// PatternKind identifies the form of a match pattern.
type PatternKind uint8

const (
	PatternWildcard PatternKind = iota
	PatternLiteral
	PatternBinding
)

// Pattern is the left side of a match arm.
type Pattern struct {
	Kind    PatternKind
	Literal *Literal
	Name    string
}

// MatchArm is one "pattern [if guard] => body" case.
type MatchArm struct {
	Pattern Pattern
	Guard   Node
	Body    Node
	Pos     Pos
}

// MatchExpr tests arms in source order against Subject.
type MatchExpr struct {
	Base
	Subject Node
	Arms    []MatchArm
}

// Conditional is if (cond) then else otherwise. Else may be nil.
type Conditional struct {
	Base
	Cond Node
	Then Node
	Else Node
}

func (*Literal) Type() NodeType            { return NodeLiteral }
func (*VariableRef) Type() NodeType        { return NodeVariable }
func (*Selector) Type() NodeType           { return NodeSelector }
func (*ObjectConstruction) Type() NodeType { return NodeObject }
func (*ArrayConstruction) Type() NodeType  { return NodeArray }
func (*BinaryOp) Type() NodeType           { return NodeBinary }
func (*UnaryOp) Type() NodeType            { return NodeUnary }
func (*LambdaExpr) Type() NodeType         { return NodeLambda }
func (*FunctionDef) Type() NodeType        { return NodeFunctionDef }
func (*FunctionCall) Type() NodeType       { return NodeCall }
func (*LetBinding) Type() NodeType         { return NodeLet }
func (*Block) Type() NodeType              { return NodeBlock }
func (*PipeExpr) Type() NodeType           { return NodePipe }
func (*MatchExpr) Type() NodeType          { return NodeMatch }
func (*Conditional) Type() NodeType        { return NodeCondition }

// At returns a Base positioned at pos.
func At(pos Pos) Base { return Base{Position: pos} }

// Sprint renders a node as a compact S-expression. It is meant for tests
// and diagnostics, not for round-tripping source.
func Sprint(n Node) string {
	var b strings.Builder
	sprint(&b, n)
	return b.String()
}

func sprint(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Literal:
		switch n.Kind {
		case LitNull:
			b.WriteString("null")
		case LitBool:
			b.WriteString(strconv.FormatBool(n.Bool))
		case LitLong:
			b.WriteString(strconv.FormatInt(n.Long, 10))
		case LitDouble:
			s := strconv.FormatFloat(n.Double, 'g', -1, 64)
			if !strings.ContainsAny(s, ".eE") {
				s += ".0"
			}
			b.WriteString(s)
		case LitString:
			b.WriteString(strconv.Quote(n.Str))
		}
	case *VariableRef:
		b.WriteString(n.Name)
	case *Selector:
		sprint(b, n.Target)
		for _, st := range n.Steps {
			if st.Kind == StepField {
				b.WriteByte('.')
				b.WriteString(st.Field)
				continue
			}
			b.WriteByte('[')
			sprint(b, st.Index)
			b.WriteByte(']')
		}
	case *ObjectConstruction:
		b.WriteString("{")
		for i, f := range n.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			if f.Spread {
				b.WriteString("...")
			} else {
				b.WriteString(strconv.Quote(f.Key))
				b.WriteString(": ")
			}
			sprint(b, f.Value)
		}
		b.WriteString("}")
	case *ArrayConstruction:
		b.WriteString("[")
		for i, el := range n.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			if el.Spread {
				b.WriteString("...")
			}
			sprint(b, el.Value)
		}
		b.WriteString("]")
	case *BinaryOp:
		b.WriteString("(")
		b.WriteString(string(n.Op))
		b.WriteByte(' ')
		sprint(b, n.Left)
		b.WriteByte(' ')
		sprint(b, n.Right)
		b.WriteString(")")
	case *UnaryOp:
		b.WriteString("(")
		b.WriteString(string(n.Op))
		b.WriteByte(' ')
		sprint(b, n.Operand)
		b.WriteString(")")
	case *LambdaExpr:
		b.WriteString("(lambda (")
		b.WriteString(strings.Join(n.Params, " "))
		b.WriteString(") ")
		sprint(b, n.Body)
		b.WriteString(")")
	case *FunctionDef:
		b.WriteString("(function ")
		b.WriteString(n.Name)
		b.WriteString(" (")
		b.WriteString(strings.Join(n.Params, " "))
		b.WriteString(") ")
		sprint(b, n.Body)
		b.WriteString(")")
	case *FunctionCall:
		b.WriteString("(call ")
		if n.Name != "" {
			b.WriteString(n.Name)
		} else {
			sprint(b, n.Callee)
		}
		for _, a := range n.Args {
			b.WriteByte(' ')
			sprint(b, a)
		}
		b.WriteString(")")
	case *LetBinding:
		b.WriteString("(let ")
		b.WriteString(n.Name)
		b.WriteByte(' ')
		sprint(b, n.Value)
		if n.Body != nil {
			b.WriteByte(' ')
			sprint(b, n.Body)
		}
		b.WriteString(")")
	case *Block:
		b.WriteString("(block")
		for _, st := range n.Statements {
			b.WriteByte(' ')
			sprint(b, st)
		}
		b.WriteByte(' ')
		sprint(b, n.Result)
		b.WriteString(")")
	case *PipeExpr:
		b.WriteString("(|> ")
		sprint(b, n.Left)
		b.WriteByte(' ')
		sprint(b, n.Right)
		b.WriteString(")")
	case *MatchExpr:
		b.WriteString("(match ")
		sprint(b, n.Subject)
		for _, arm := range n.Arms {
			b.WriteString(" (")
			switch arm.Pattern.Kind {
			case PatternWildcard:
				b.WriteString("_")
			case PatternLiteral:
				sprint(b, arm.Pattern.Literal)
			case PatternBinding:
				b.WriteString(arm.Pattern.Name)
			}
			if arm.Guard != nil {
				b.WriteString(" if ")
				sprint(b, arm.Guard)
			}
			b.WriteString(" => ")
			sprint(b, arm.Body)
			b.WriteString(")")
		}
		b.WriteString(")")
	case *Conditional:
		b.WriteString("(if ")
		sprint(b, n.Cond)
		b.WriteByte(' ')
		sprint(b, n.Then)
		if n.Else != nil {
			b.WriteByte(' ')
			sprint(b, n.Else)
		}
		b.WriteString(")")
	}
}
