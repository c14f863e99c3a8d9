package stdlib

import (
	"context"
	"strings"

	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

func fnTypeOf(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	return udm.String(udm.TypeName(args[0])), nil
}

func isKind(pred func(udm.Value) bool) functions.Impl {
	return func(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
		return udm.Bool(pred(args[0])), nil
	}
}

func isString(v udm.Value) bool {
	_, ok := v.(udm.String)
	return ok
}

func isArray(v udm.Value) bool {
	_, ok := v.(*udm.Array)
	return ok
}

func isObject(v udm.Value) bool {
	_, ok := v.(*udm.Object)
	return ok
}

var (
	isNumber = udm.IsNumber
	isNull   = udm.IsNull
)

func fnToString(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	if s, ok := args[0].(udm.String); ok {
		return s, nil
	}
	if path := udm.FindLambda(args[0]); path != "" {
		return nil, &udm.LambdaError{Path: path}
	}
	return udm.String(args[0].String()), nil
}

func fnToBoolean(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, ok := args[0].(udm.String)
	if !ok {
		return udm.Bool(udm.Truthy(args[0])), nil
	}
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "true", "yes", "1":
		return udm.True, nil
	case "false", "no", "0", "":
		return udm.False, nil
	}
	return nil, types.Errorf(types.KindTypeMismatch, "cannot convert %q to a boolean", string(s))
}

// fnError raises a user error carrying the given message.
func fnError(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	msg := text(args[0])
	return nil, &types.RuntimeError{
		Kind:            types.KindUserThrown,
		Message:         msg,
		OriginalMessage: msg,
	}
}
