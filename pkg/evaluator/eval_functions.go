package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/grauwen/utl-x-sub015/pkg/env"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// evalCall evaluates a function call. prefix holds already-evaluated leading
// arguments; the pipe operator uses it to supply its left operand.
func (e *Evaluator) evalCall(ctx context.Context, n *types.FunctionCall, f *env.Frame, prefix []udm.Value) (udm.Value, error) {
	fn, err := e.resolveCallee(ctx, n, f)
	if err != nil {
		return nil, err
	}

	args := make([]udm.Value, 0, len(prefix)+len(n.Args))
	args = append(args, prefix...)
	for _, a := range n.Args {
		v, err := e.evalNode(ctx, a, f)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	return e.call(ctx, fn, args, n.Pos())
}

// resolveCallee applies the call resolution order: a function value bound in
// lexical scope, then the registry.
func (e *Evaluator) resolveCallee(ctx context.Context, n *types.FunctionCall, f *env.Frame) (*udm.Lambda, error) {
	if n.Name == "" {
		v, err := e.evalNode(ctx, n.Callee, f)
		if err != nil {
			return nil, err
		}
		fn, ok := v.(*udm.Lambda)
		if !ok {
			return nil, types.Errorf(types.KindTypeMismatch, "cannot call a value of type %s", udm.TypeName(v)).
				WithPos(n.Pos())
		}
		return fn, nil
	}

	if v, ok := f.Get(n.Name); ok {
		fn, ok := v.(*udm.Lambda)
		if !ok {
			return nil, types.Errorf(types.KindTypeMismatch, "%s is a %s, not a function", n.Name, udm.TypeName(v)).
				WithPos(n.Pos())
		}
		return fn, nil
	}
	if e.registry.Has(n.Name) {
		return &udm.Lambda{Name: n.Name, Native: true}, nil
	}
	return nil, types.Errorf(types.KindUndefinedFunction, "undefined function %q", n.Name).WithPos(n.Pos())
}

// call applies a function value.
func (e *Evaluator) call(ctx context.Context, fn *udm.Lambda, args []udm.Value, pos types.Pos) (udm.Value, error) {
	if fn.Native {
		v, err := e.invoke(ctx, fn.Name, args)
		if err != nil {
			return nil, withPos(err, pos)
		}
		return v, nil
	}
	return e.applyLambda(ctx, fn, args, pos)
}

// invoke calls a registry function. It is the only place where failures of
// native implementations are caught: typed runtime errors keep their kind
// and gain the function name, anything else (including a panic) becomes
// UserThrown carrying the original message.
func (e *Evaluator) invoke(ctx context.Context, name string, args []udm.Value) (result udm.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = e.rewrap(name, fmt.Errorf("%v", r))
		}
	}()

	result, err = e.registry.Call(ctx, e, name, args)
	if err != nil {
		return nil, e.rewrap(name, err)
	}
	if result == nil {
		result = udm.NullValue
	}
	return result, nil
}

func (e *Evaluator) rewrap(name string, err error) *types.RuntimeError {
	var re *types.RuntimeError
	if errors.As(err, &re) {
		return re.WithFunction(name)
	}
	if e.opts.Debug {
		e.logger.Debug("function failed",
			"function", name,
			"error", err)
	}
	return &types.RuntimeError{
		Kind:            types.KindUserThrown,
		Message:         err.Error(),
		Function:        name,
		OriginalMessage: err.Error(),
		Err:             err,
	}
}

// applyLambda binds args positionally in a frame chained off the closure
// and evaluates the body there.
func (e *Evaluator) applyLambda(ctx context.Context, fn *udm.Lambda, args []udm.Value, pos types.Pos) (udm.Value, error) {
	if len(args) != len(fn.Params) {
		return nil, types.Errorf(types.KindArityMismatch, "%s expects %d arguments, got %d",
			lambdaName(fn), len(fn.Params), len(args)).WithPos(pos)
	}

	closure, ok := fn.Closure.(*env.Frame)
	if !ok {
		return nil, types.Errorf(types.KindTypeMismatch, "%s has no evaluable scope", lambdaName(fn)).WithPos(pos)
	}

	ctx, err := e.enter(ctx, pos)
	if err != nil {
		return nil, err
	}

	frame := closure.Child()
	for i, p := range fn.Params {
		frame.Bind(p, args[i])
	}
	return e.evalNode(ctx, fn.Body, frame)
}

func lambdaName(fn *udm.Lambda) string {
	if fn.Name != "" {
		return fn.Name
	}
	return "lambda"
}

// evalPipe evaluates left |> right. A call on the right receives the left
// value as its first argument; any other right side must evaluate to a
// function, which is applied to the left value alone.
func (e *Evaluator) evalPipe(ctx context.Context, n *types.PipeExpr, f *env.Frame) (udm.Value, error) {
	left, err := e.evalNode(ctx, n.Left, f)
	if err != nil {
		return nil, err
	}

	if c, ok := n.Right.(*types.FunctionCall); ok {
		return e.evalCall(ctx, c, f, []udm.Value{left})
	}

	if ref, ok := n.Right.(*types.VariableRef); ok {
		return e.evalCall(ctx, &types.FunctionCall{Base: types.At(ref.Pos()), Name: ref.Name}, f, []udm.Value{left})
	}

	v, err := e.evalNode(ctx, n.Right, f)
	if err != nil {
		return nil, err
	}
	fn, ok := v.(*udm.Lambda)
	if !ok {
		return nil, types.Errorf(types.KindTypeMismatch, "cannot pipe into a value of type %s", udm.TypeName(v)).
			WithPos(n.Right.Pos())
	}
	return e.call(ctx, fn, []udm.Value{left}, n.Pos())
}
