package evaluator

import (
	"context"

	"github.com/grauwen/utl-x-sub015/pkg/env"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// evalNode evaluates an AST node in the given frame.
func (e *Evaluator) evalNode(ctx context.Context, node types.Node, f *env.Frame) (udm.Value, error) {
	if node == nil {
		return udm.NullValue, nil
	}

	if e.opts.Debug {
		e.logger.Debug("evaluating node",
			"type", node.Type(),
			"pos", node.Pos().String(),
			"depth", f.Depth())
	}

	switch n := node.(type) {
	case *types.Literal:
		return literalValue(n), nil
	case *types.VariableRef:
		return e.evalVariable(n, f)
	case *types.Selector:
		return e.evalSelector(ctx, n, f)
	case *types.ObjectConstruction:
		return e.evalObject(ctx, n, f)
	case *types.ArrayConstruction:
		return e.evalArray(ctx, n, f)
	case *types.BinaryOp:
		return e.evalBinary(ctx, n, f)
	case *types.UnaryOp:
		return e.evalUnary(ctx, n, f)
	case *types.LambdaExpr:
		return &udm.Lambda{Params: n.Params, Body: n.Body, Closure: f}, nil
	case *types.FunctionDef:
		return e.evalFunctionDef(n, f), nil
	case *types.FunctionCall:
		return e.evalCall(ctx, n, f, nil)
	case *types.LetBinding:
		return e.evalLet(ctx, n, f)
	case *types.Block:
		return e.evalBlock(ctx, n, f)
	case *types.PipeExpr:
		return e.evalPipe(ctx, n, f)
	case *types.MatchExpr:
		return e.evalMatch(ctx, n, f)
	case *types.Conditional:
		return e.evalConditional(ctx, n, f)
	}
	return nil, types.Errorf(types.KindTypeMismatch, "unsupported node type %s", node.Type()).WithPos(node.Pos())
}

// literalValue converts a literal node to its UDM value.
func literalValue(n *types.Literal) udm.Value {
	switch n.Kind {
	case types.LitBool:
		return udm.Bool(n.Bool)
	case types.LitLong:
		return udm.Long(n.Long)
	case types.LitDouble:
		return udm.Double(n.Double)
	case types.LitString:
		return udm.String(n.Str)
	}
	return udm.NullValue
}

// evalVariable resolves a name through the frame chain. A name that is not
// bound but names a registry function evaluates to a native function value.
func (e *Evaluator) evalVariable(n *types.VariableRef, f *env.Frame) (udm.Value, error) {
	if v, ok := f.Get(n.Name); ok {
		return v, nil
	}
	if e.registry.Has(n.Name) {
		return &udm.Lambda{Name: n.Name, Native: true}, nil
	}
	return nil, types.Errorf(types.KindUndefinedVariable, "undefined variable %q", n.Name).WithPos(n.Pos())
}

func (e *Evaluator) evalObject(ctx context.Context, n *types.ObjectConstruction, f *env.Frame) (udm.Value, error) {
	b := udm.NewObjectBuilder(len(n.Fields))
	for _, field := range n.Fields {
		v, err := e.evalNode(ctx, field.Value, f)
		if err != nil {
			return nil, err
		}
		if !field.Spread {
			b.Set(field.Key, v)
			continue
		}
		switch src := v.(type) {
		case *udm.Object:
			b.Merge(src)
		case udm.Null:
		default:
			return nil, types.Errorf(types.KindTypeMismatch, "cannot spread %s into an object", udm.TypeName(v)).
				WithPos(field.Value.Pos())
		}
	}
	return b.Build(), nil
}

func (e *Evaluator) evalArray(ctx context.Context, n *types.ArrayConstruction, f *env.Frame) (udm.Value, error) {
	items := make([]udm.Value, 0, len(n.Elements))
	for _, el := range n.Elements {
		v, err := e.evalNode(ctx, el.Value, f)
		if err != nil {
			return nil, err
		}
		if !el.Spread {
			items = append(items, v)
			continue
		}
		switch src := v.(type) {
		case *udm.Array:
			items = append(items, src.Items()...)
		case udm.Null:
		default:
			return nil, types.Errorf(types.KindTypeMismatch, "cannot spread %s into an array", udm.TypeName(v)).
				WithPos(el.Value.Pos())
		}
	}
	return udm.NewArray(items...), nil
}

func (e *Evaluator) evalConditional(ctx context.Context, n *types.Conditional, f *env.Frame) (udm.Value, error) {
	cond, err := e.evalNode(ctx, n.Cond, f)
	if err != nil {
		return nil, err
	}
	if udm.Truthy(cond) {
		return e.evalNode(ctx, n.Then, f)
	}
	if n.Else == nil {
		return udm.NullValue, nil
	}
	return e.evalNode(ctx, n.Else, f)
}
