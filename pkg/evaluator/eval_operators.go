package evaluator

import (
	"context"
	"math"

	"github.com/grauwen/utl-x-sub015/pkg/env"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

func (e *Evaluator) evalBinary(ctx context.Context, n *types.BinaryOp, f *env.Frame) (udm.Value, error) {
	left, err := e.evalNode(ctx, n.Left, f)
	if err != nil {
		return nil, err
	}

	// Short-circuit operators evaluate the right side lazily.
	switch n.Op {
	case types.OpAnd:
		if !udm.Truthy(left) {
			return udm.False, nil
		}
		return e.truthOf(ctx, n.Right, f)
	case types.OpOr:
		if udm.Truthy(left) {
			return udm.True, nil
		}
		return e.truthOf(ctx, n.Right, f)
	case types.OpCoalesce:
		if !udm.IsNull(left) {
			return left, nil
		}
		return e.evalNode(ctx, n.Right, f)
	}

	right, err := e.evalNode(ctx, n.Right, f)
	if err != nil {
		return nil, err
	}

	var result udm.Value
	switch n.Op {
	case types.OpAdd:
		result, err = opAdd(left, right)
	case types.OpSub, types.OpMul, types.OpDiv, types.OpMod:
		result, err = arithmetic(n.Op, left, right)
	case types.OpEq:
		result = udm.Bool(udm.NumericEqual(left, right))
	case types.OpNotEq:
		result = udm.Bool(!udm.NumericEqual(left, right))
	case types.OpLess, types.OpLessEq, types.OpGreater, types.OpGreaterEq:
		result, err = compare(n.Op, left, right)
	default:
		err = types.Errorf(types.KindTypeMismatch, "unknown operator %s", n.Op)
	}
	if err != nil {
		return nil, withPos(err, n.Pos())
	}
	return result, nil
}

func (e *Evaluator) truthOf(ctx context.Context, node types.Node, f *env.Frame) (udm.Value, error) {
	v, err := e.evalNode(ctx, node, f)
	if err != nil {
		return nil, err
	}
	return udm.Bool(udm.Truthy(v)), nil
}

func (e *Evaluator) evalUnary(ctx context.Context, n *types.UnaryOp, f *env.Frame) (udm.Value, error) {
	v, err := e.evalNode(ctx, n.Operand, f)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case types.OpNot:
		return udm.Bool(!udm.Truthy(v)), nil
	case types.OpNeg:
		switch x := v.(type) {
		case udm.Long:
			if x == math.MinInt64 {
				return udm.Double(-float64(x)), nil
			}
			return -x, nil
		case udm.Double:
			return -x, nil
		}
		return nil, types.Errorf(types.KindTypeMismatch, "cannot negate %s", udm.TypeName(v)).WithPos(n.Pos())
	}
	return nil, types.Errorf(types.KindTypeMismatch, "unknown operator %s", n.Op).WithPos(n.Pos())
}

// opAdd adds numbers, concatenates strings when either side is a string,
// and concatenates two arrays.
func opAdd(left, right udm.Value) (udm.Value, error) {
	ls, lok := left.(udm.String)
	rs, rok := right.(udm.String)
	switch {
	case lok && rok:
		return ls + rs, nil
	case lok:
		return ls + udm.String(right.String()), nil
	case rok:
		return udm.String(left.String()) + rs, nil
	}
	if la, ok := left.(*udm.Array); ok {
		if ra, ok := right.(*udm.Array); ok {
			return la.Append(ra.Items()...), nil
		}
	}
	return arithmetic(types.OpAdd, left, right)
}

// arithmetic applies a numeric operator. Long op Long stays Long except for
// division, which always yields Double, and results that overflow int64,
// which widen to Double.
func arithmetic(op types.Operator, left, right udm.Value) (udm.Value, error) {
	if !udm.IsNumber(left) || !udm.IsNumber(right) {
		return nil, types.Errorf(types.KindTypeMismatch, "operator %s cannot be applied to %s and %s",
			op, udm.TypeName(left), udm.TypeName(right))
	}

	a, aLong := left.(udm.Long)
	b, bLong := right.(udm.Long)
	if aLong && bLong {
		return longArithmetic(op, int64(a), int64(b))
	}

	x, _ := udm.AsFloat(left)
	y, _ := udm.AsFloat(right)
	switch op {
	case types.OpAdd:
		return udm.Double(x + y), nil
	case types.OpSub:
		return udm.Double(x - y), nil
	case types.OpMul:
		return udm.Double(x * y), nil
	case types.OpDiv:
		if y == 0 {
			return nil, divisionByZero(op)
		}
		return udm.Double(x / y), nil
	case types.OpMod:
		if y == 0 {
			return nil, divisionByZero(op)
		}
		return udm.Double(math.Mod(x, y)), nil
	}
	return nil, types.Errorf(types.KindTypeMismatch, "unknown operator %s", op)
}

func longArithmetic(op types.Operator, a, b int64) (udm.Value, error) {
	switch op {
	case types.OpAdd:
		s := a + b
		if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
			return udm.Double(float64(a) + float64(b)), nil
		}
		return udm.Long(s), nil
	case types.OpSub:
		d := a - b
		if (a >= 0 && b < 0 && d < 0) || (a < 0 && b > 0 && d >= 0) {
			return udm.Double(float64(a) - float64(b)), nil
		}
		return udm.Long(d), nil
	case types.OpMul:
		if a == 0 || b == 0 {
			return udm.Long(0), nil
		}
		p := a * b
		if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return udm.Double(float64(a) * float64(b)), nil
		}
		return udm.Long(p), nil
	case types.OpDiv:
		if b == 0 {
			return nil, divisionByZero(op)
		}
		return udm.Double(float64(a) / float64(b)), nil
	case types.OpMod:
		if b == 0 {
			return nil, divisionByZero(op)
		}
		if b == -1 {
			return udm.Long(0), nil
		}
		return udm.Long(a % b), nil
	}
	return nil, types.Errorf(types.KindTypeMismatch, "unknown operator %s", op)
}

func divisionByZero(op types.Operator) error {
	if op == types.OpMod {
		return types.NewRuntimeError(types.KindDivisionByZero, "modulo by zero")
	}
	return types.NewRuntimeError(types.KindDivisionByZero, "division by zero")
}

// compare applies an ordering operator to numbers, strings, booleans or
// date-times.
func compare(op types.Operator, left, right udm.Value) (udm.Value, error) {
	c, ok := udm.Compare(left, right)
	if !ok {
		return nil, types.Errorf(types.KindTypeMismatch, "cannot compare %s with %s",
			udm.TypeName(left), udm.TypeName(right))
	}
	switch op {
	case types.OpLess:
		return udm.Bool(c < 0), nil
	case types.OpLessEq:
		return udm.Bool(c <= 0), nil
	case types.OpGreater:
		return udm.Bool(c > 0), nil
	}
	return udm.Bool(c >= 0), nil
}

// withPos attaches pos to a runtime error that has none.
func withPos(err error, pos types.Pos) error {
	if re, ok := err.(*types.RuntimeError); ok {
		return re.WithPos(pos)
	}
	return err
}
