package env_test

import (
	"errors"
	"testing"

	"github.com/grauwen/utl-x-sub015/pkg/env"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

func TestLookupFallsThroughToParent(t *testing.T) {
	root := env.New()
	root.Bind("a", udm.Long(1))
	child := root.Child()
	child.Bind("b", udm.Long(2))

	if v, err := child.Lookup("a"); err != nil || v != udm.Long(1) {
		t.Errorf("Lookup(a) = %v, %v", v, err)
	}
	if v, err := child.Lookup("b"); err != nil || v != udm.Long(2) {
		t.Errorf("Lookup(b) = %v, %v", v, err)
	}
	if root.Has("b") {
		t.Error("child binding leaked into parent")
	}
}

func TestShadowing(t *testing.T) {
	root := env.New()
	root.Bind("x", udm.String("outer"))
	inner := root.Child()
	inner.Bind("x", udm.String("inner"))

	if v, _ := inner.Lookup("x"); v != udm.String("inner") {
		t.Errorf("inner x = %v", v)
	}
	if v, _ := root.Lookup("x"); v != udm.String("outer") {
		t.Errorf("outer x = %v", v)
	}
}

func TestLookupUndefined(t *testing.T) {
	f := env.New().Child()
	_, err := f.Lookup("missing")
	if !errors.Is(err, types.ErrUndefinedVariable) {
		t.Fatalf("err = %v, want UndefinedVariable", err)
	}
}

func TestNamesKeepBindingOrder(t *testing.T) {
	f := env.New()
	f.Bind("z", udm.NullValue)
	f.Bind("a", udm.NullValue)
	f.Bind("z", udm.Long(1))

	names := f.Names()
	if len(names) != 2 || names[0] != "z" || names[1] != "a" {
		t.Errorf("Names = %v", names)
	}
	if !f.HasLocal("a") || f.Child().HasLocal("a") {
		t.Error("HasLocal mismatch")
	}
}

func TestClosureSeesLaterBindingsInCapturedFrame(t *testing.T) {
	// a closure holds the frame itself, so a binding added to that frame after
	// capture is visible through it (needed for recursive definitions)
	f := env.New()
	var scope udm.Scope = f
	f.Bind("fact", udm.String("defined later"))

	if v, err := scope.Lookup("fact"); err != nil || v != udm.String("defined later") {
		t.Errorf("Lookup through captured scope = %v, %v", v, err)
	}
	child := scope.Extend()
	child.Bind("n", udm.Long(3))
	if f.Has("n") {
		t.Error("Extend bound into the captured frame")
	}
}

func TestDepth(t *testing.T) {
	f := env.New().Child().Child()
	if f.Depth() != 2 || f.Parent().Depth() != 1 {
		t.Errorf("depth = %d", f.Depth())
	}
}
