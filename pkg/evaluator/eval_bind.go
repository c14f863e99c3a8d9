package evaluator

import (
	"context"

	"github.com/grauwen/utl-x-sub015/pkg/env"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// evalLet evaluates "let name = value in body". The value is computed in f
// and bound in a fresh child frame, where body is then evaluated; its result
// is returned as is.
func (e *Evaluator) evalLet(ctx context.Context, n *types.LetBinding, f *env.Frame) (udm.Value, error) {
	v, err := e.evalNode(ctx, n.Value, f)
	if err != nil {
		return nil, err
	}
	if n.Body == nil {
		return v, nil
	}
	frame := f.Child()
	frame.Bind(n.Name, v)
	return e.evalNode(ctx, n.Body, frame)
}

// evalBlock runs the statements of a block in order, each binding extending
// a new child frame, then evaluates the result expression in the innermost
// frame. Adjacent function definitions share a single frame and are all
// bound before any of their bodies can run, which makes them mutually
// recursive.
func (e *Evaluator) evalBlock(ctx context.Context, n *types.Block, f *env.Frame) (udm.Value, error) {
	frame := f
	for i := 0; i < len(n.Statements); i++ {
		switch s := n.Statements[i].(type) {
		case *types.LetBinding:
			v, err := e.evalNode(ctx, s.Value, frame)
			if err != nil {
				return nil, err
			}
			frame = frame.Child()
			frame.Bind(s.Name, v)
		case *types.FunctionDef:
			frame = frame.Child()
			for ; i < len(n.Statements); i++ {
				def, ok := n.Statements[i].(*types.FunctionDef)
				if !ok {
					break
				}
				frame.Bind(def.Name, &udm.Lambda{Name: def.Name, Params: def.Params, Body: def.Body, Closure: frame})
			}
			i--
		default:
			if _, err := e.evalNode(ctx, s, frame); err != nil {
				return nil, err
			}
		}
	}
	if n.Result == nil {
		return udm.NullValue, nil
	}
	return e.evalNode(ctx, n.Result, frame)
}

// evalFunctionDef handles a function definition outside a block: the
// function is bound in its own frame so that it can call itself.
func (e *Evaluator) evalFunctionDef(n *types.FunctionDef, f *env.Frame) udm.Value {
	frame := f.Child()
	fn := &udm.Lambda{Name: n.Name, Params: n.Params, Body: n.Body, Closure: frame}
	frame.Bind(n.Name, fn)
	return fn
}

// evalMatch tests the arms in source order; the first arm whose pattern
// matches and whose guard holds is evaluated.
func (e *Evaluator) evalMatch(ctx context.Context, n *types.MatchExpr, f *env.Frame) (udm.Value, error) {
	subject, err := e.evalNode(ctx, n.Subject, f)
	if err != nil {
		return nil, err
	}
	for _, arm := range n.Arms {
		frame := f
		switch arm.Pattern.Kind {
		case types.PatternLiteral:
			if !udm.NumericEqual(literalValue(arm.Pattern.Literal), subject) {
				continue
			}
		case types.PatternBinding:
			frame = f.Child()
			frame.Bind(arm.Pattern.Name, subject)
		}
		if arm.Guard != nil {
			ok, err := e.evalNode(ctx, arm.Guard, frame)
			if err != nil {
				return nil, err
			}
			if !udm.Truthy(ok) {
				continue
			}
		}
		return e.evalNode(ctx, arm.Body, frame)
	}
	return nil, types.Errorf(types.KindNoMatchingPattern, "no pattern matches %s", describe(subject)).WithPos(n.Pos())
}

func describe(v udm.Value) string {
	s := v.String()
	if str, ok := v.(udm.String); ok {
		s = `"` + string(str) + `"`
	}
	if r := []rune(s); len(r) > 40 {
		s = string(r[:37]) + "..."
	}
	return s
}
