package stdlib

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/grauwen/utl-x-sub015/pkg/codec"
	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

func fnBase64Encode(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	switch v := args[0].(type) {
	case udm.Binary:
		return udm.String(base64.StdEncoding.EncodeToString(v.Bytes())), nil
	case udm.String:
		return udm.String(base64.StdEncoding.EncodeToString([]byte(v))), nil
	}
	return nil, functions.TypeError(0, "a string or binary", args[0])
}

func fnBase64Decode(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, err := functions.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 input: %w", err)
	}
	return udm.String(data), nil
}

func fnURLEncode(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, err := functions.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	return udm.String(url.QueryEscape(s)), nil
}

func fnURLDecode(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, err := functions.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	out, err := url.QueryUnescape(s)
	if err != nil {
		return nil, fmt.Errorf("invalid url encoding: %w", err)
	}
	return udm.String(out), nil
}

func fnToJSON(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	indent, err := functions.OptionalInt(args, 1, 0)
	if err != nil {
		return nil, err
	}
	data, err := codec.EncodeJSON(args[0], codec.WithIndent(indent))
	if err != nil {
		return nil, err
	}
	return udm.String(data), nil
}

func fnParseJSON(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, err := functions.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	return codec.DecodeJSON([]byte(s))
}
