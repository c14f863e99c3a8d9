package evaluator

import (
	"context"

	"github.com/grauwen/utl-x-sub015/pkg/types"
)

// depthKey stores the current function application depth in a context.Context.
type depthKey struct{}

// depth returns the current application depth of ctx.
func depth(ctx context.Context) int {
	if d, ok := ctx.Value(depthKey{}).(int); ok {
		return d
	}
	return 0
}

// enter returns a context one application deeper, or RecursionLimit when
// the configured maximum would be exceeded. Without a maximum ctx is
// returned unchanged.
func (e *Evaluator) enter(ctx context.Context, pos types.Pos) (context.Context, error) {
	if e.opts.MaxDepth <= 0 {
		return ctx, nil
	}
	d := depth(ctx) + 1
	if d > e.opts.MaxDepth {
		return nil, types.Errorf(types.KindRecursionLimit, "maximum recursion depth %d exceeded", e.opts.MaxDepth).WithPos(pos)
	}
	return context.WithValue(ctx, depthKey{}, d), nil
}
