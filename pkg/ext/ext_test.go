package ext_test

import (
	"context"
	"errors"
	"testing"

	"github.com/grauwen/utl-x-sub015/pkg/evaluator"
	"github.com/grauwen/utl-x-sub015/pkg/ext"
	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/parser"
	"github.com/grauwen/utl-x-sub015/pkg/stdlib"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

func eval(t *testing.T, reg *functions.Registry, src string) udm.Value {
	t.Helper()
	prog, err := parser.Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	v, err := evaluator.New(evaluator.WithRegistry(reg)).Evaluate(context.Background(), prog, nil, nil)
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", src, err)
	}
	return v
}

func TestBuildLayersPacksOnStdlib(t *testing.T) {
	reg, err := ext.Build(stdlib.Default(), ext.All()...)
	if err != nil {
		t.Fatal(err)
	}
	if !reg.Has("upperCase") || !reg.Has("hash") {
		t.Fatalf("registry missing functions: %v", reg.Names())
	}
	if stdlib.Default().Has("hash") {
		t.Fatal("Build modified the base registry")
	}

	got := eval(t, reg, `upperCase(hash("abc", "md5"))`)
	if got.String() != "900150983CD24FB0D6963F7D28E17F72" {
		t.Fatalf("got %s", got)
	}
}

func TestBuildRejectsClashes(t *testing.T) {
	clash := functions.Defs(functions.Def{
		Name: "map",
		Impl: func(context.Context, functions.Caller, []udm.Value) (udm.Value, error) {
			return udm.NullValue, nil
		},
	})
	_, err := ext.Build(stdlib.Default(), clash)
	if !errors.Is(err, functions.ErrDuplicateName) {
		t.Fatalf("error = %v, want ErrDuplicateName", err)
	}
}

func TestBuildWithoutBase(t *testing.T) {
	reg, err := ext.Build(nil, ext.All()...)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Has("map") {
		t.Fatal("nil base should not include the standard library")
	}
	if reg.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", reg.Len())
	}
}
