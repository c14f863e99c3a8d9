package evaluator_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/grauwen/utl-x-sub015/pkg/env"
	"github.com/grauwen/utl-x-sub015/pkg/evaluator"
	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/parser"
	"github.com/grauwen/utl-x-sub015/pkg/stdlib"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

func run(t *testing.T, src string, input udm.Value, opts ...evaluator.EvalOption) (udm.Value, error) {
	t.Helper()
	prog, err := parser.Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	return evaluator.New(opts...).Evaluate(context.Background(), prog, input, nil)
}

func mustRun(t *testing.T, src string, input udm.Value, opts ...evaluator.EvalOption) udm.Value {
	t.Helper()
	v, err := run(t, src, input, opts...)
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", src, err)
	}
	return v
}

func arr(items ...udm.Value) *udm.Array { return udm.NewArray(items...) }

func TestEvalOperators(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want udm.Value
	}{
		{"long addition", "1 + 2", udm.Long(3)},
		{"mixed addition", "1 + 2.5", udm.Double(3.5)},
		{"division is double", "4 / 2", udm.Double(2)},
		{"fractional division", "7 / 2", udm.Double(3.5)},
		{"long modulo", "7 % 3", udm.Long(1)},
		{"double modulo", "7.5 % 2", udm.Double(1.5)},
		{"precedence", "2 + 3 * 4", udm.Long(14)},
		{"negation", "-(3 - 5)", udm.Long(2)},
		{"add overflow widens", "9223372036854775807 + 1", udm.Double(9223372036854775808.0)},
		{"mul overflow widens", "9223372036854775807 * 2", udm.Double(18446744073709551614.0)},
		{"sub overflow widens", "-9223372036854775807 - 10", udm.Double(-9223372036854775817.0)},
		{"min long literal", "-9223372036854775808", udm.Long(math.MinInt64)},
		{"min long stays long", "-9223372036854775808 + 1", udm.Long(math.MinInt64 + 1)},
		{"min long negation widens", "-(-9223372036854775808)", udm.Double(9223372036854775808.0)},
		{"string concat", `"a" + 1`, udm.String("a1")},
		{"concat double", `"v" + 2.0`, udm.String("v2.0")},
		{"array concat", "[1] + [2]", arr(udm.Long(1), udm.Long(2))},
		{"less", "1 < 2", udm.True},
		{"string compare", `"b" >= "a"`, udm.True},
		{"numeric equality", "1 == 1.0", udm.True},
		{"structural equality", "{a: [1, 2]} == {a: [1, 2]}", udm.True},
		{"inequality", `"a" != "b"`, udm.True},
		{"and truthiness", "1 && \"x\"", udm.True},
		{"and short circuit", "false && nope()", udm.False},
		{"or short circuit", "true || nope()", udm.True},
		{"coalesce null", "null ?? 5", udm.Long(5)},
		{"coalesce keeps value", "0 ?? 5", udm.Long(0)},
		{"not", "!0", udm.True},
		{"conditional", `if (2 > 1) "yes" else "no"`, udm.String("yes")},
		{"conditional without else", `if (false) 1`, udm.NullValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustRun(t, tt.src, nil)
			if !udm.Equal(got, tt.want) {
				t.Errorf("%s = %v (%s), want %v (%s)", tt.src, got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"division by zero", "1 / 0", types.ErrDivisionByZero},
		{"double division by zero", "1.5 / 0.0", types.ErrDivisionByZero},
		{"modulo by zero", "5 % 0", types.ErrDivisionByZero},
		{"compare mismatch", `1 < "a"`, types.ErrTypeMismatch},
		{"negate string", `-"a"`, types.ErrTypeMismatch},
		{"arithmetic on object", "{} * 2", types.ErrTypeMismatch},
		{"undefined variable", "missing + 1", types.ErrUndefinedVariable},
		{"undefined function", "nope(1)", types.ErrUndefinedFunction},
		{"call a number", "let x = 1; x(2)", types.ErrTypeMismatch},
		{"lambda arity", "let f = (a, b) -> a; f(1)", types.ErrArityMismatch},
		{"stdlib arity", "upperCase()", types.ErrArityMismatch},
		{"no matching pattern", `match 3 { 1 => "a", 2 => "b" }`, types.ErrNoMatchingPattern},
		{"spread non-object", "{ ...[1] }", types.ErrTypeMismatch},
		{"user error", `error("boom")`, types.ErrUserThrown},
		{"write out of bounds", "insertAt([1], 5, 0)", types.ErrIndexOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.src, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("%s: error = %v, want %v", tt.src, err, tt.want)
			}
			var re *types.RuntimeError
			if !errors.As(err, &re) {
				t.Fatalf("error %T is not a *types.RuntimeError", err)
			}
		})
	}
}

func TestEvalErrorPosition(t *testing.T) {
	_, err := run(t, "let a = 1;\nnope(a)", nil)
	var re *types.RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if re.Pos.Line != 2 {
		t.Errorf("error line = %d, want 2", re.Pos.Line)
	}
}

func TestEvalSelectors(t *testing.T) {
	input := udm.MustFromGo(map[string]interface{}{
		"n": 1,
		"items": []interface{}{
			map[string]interface{}{"name": "a", "tags": []interface{}{"x"}},
			map[string]interface{}{"name": "b"},
			map[string]interface{}{"other": true},
		},
	})
	tests := []struct {
		src  string
		want udm.Value
	}{
		{"@input.n", udm.Long(1)},
		{"$input.n", udm.Long(1)},
		{"input.n", udm.Long(1)},
		{"@input.items[0].name", udm.String("a")},
		{"@input.items[-2].name", udm.String("b")},
		{"@input.items[10]", udm.NullValue},
		{"@input.items[10].name", udm.NullValue},
		{"@input.missing.deep", udm.NullValue},
		{"@input.n.deep", udm.NullValue},
		{"@input.items.name", arr(udm.String("a"), udm.String("b"))},
		{`@input["n"]`, udm.Long(1)},
		{`"hello"[1]`, udm.String("e")},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := mustRun(t, tt.src, input)
			if !udm.Equal(got, tt.want) {
				t.Errorf("%s = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestEvalConstructors(t *testing.T) {
	got := mustRun(t, `{ a: 1, ...{ b: 2, a: 9 }, c: [0, ...@input, 4] }`, arr(udm.Long(1), udm.Long(2)))
	obj, ok := got.(*udm.Object)
	if !ok {
		t.Fatalf("result is %T", got)
	}
	keys := obj.Keys()
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Errorf("keys = %v", keys)
	}
	if a, _ := obj.Get("a"); a != udm.Long(9) {
		t.Errorf("a = %v, want spread override 9", a)
	}
	if c, _ := obj.Get("c"); c.String() != "[0,1,2,4]" {
		t.Errorf("c = %s", c)
	}
}

func TestPipeMapEndToEnd(t *testing.T) {
	got := mustRun(t, `@input |> map(x -> x * 2)`, arr(udm.Long(1), udm.Long(2), udm.Long(3)))
	want := arr(udm.Long(2), udm.Long(4), udm.Long(6))
	if !udm.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPipeForms(t *testing.T) {
	tests := []struct {
		src  string
		want udm.Value
	}{
		{`"abc" |> upperCase`, udm.String("ABC")},
		{`"abc" |> upperCase()`, udm.String("ABC")},
		{`3 |> (x => x + 1)`, udm.Long(4)},
		{`[1, -2] |> map(abs)`, arr(udm.Long(1), udm.Long(2))},
		{`[3, 1, 2] |> sort |> map((x, i) -> x * 10 + i)`, arr(udm.Long(10), udm.Long(21), udm.Long(32))},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := mustRun(t, tt.src, nil)
			if !udm.Equal(got, tt.want) {
				t.Errorf("%s = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestLetBindingTransparency(t *testing.T) {
	src := `function classify(x) = if (x > 10) "HIGH" else "LOW"
let cat = classify(5)
{value: cat}`
	got := mustRun(t, src, nil)
	want := udm.NewObject("value", "LOW")
	if !udm.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestClosureInFunctionRegression(t *testing.T) {
	src := `[1, 2] |> map(x -> { let t = x * 2; if (t > 2) "BIG" else "SMALL" })`
	got := mustRun(t, src, nil)
	want := arr(udm.String("SMALL"), udm.String("BIG"))
	if !udm.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if path := udm.FindLambda(got); path != "" {
		t.Fatalf("result contains a function at %s", path)
	}

	src = `function label(n) { let v = n + 1 in if (v > 2) "BIG" else "SMALL" }
@input |> map(x -> label(x * 1))`
	got = mustRun(t, src, arr(udm.Long(1), udm.Long(5)))
	if !udm.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestScopingAndClosures(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want udm.Value
	}{
		{"let in", "let x = 2 in x * 3", udm.Long(6)},
		{"shadowing", "let x = 1; let x = x + 1; x", udm.Long(2)},
		{"capture is lexical", "let x = 1; let f = (y) -> x + y; let x = 100; f(0)", udm.Long(1)},
		{"curried closure", "let add = (a) -> (b) -> a + b; let inc = add(1); inc(41)", udm.Long(42)},
		{"recursion", "function fact(n) { if (n <= 1) 1 else n * fact(n - 1) }; fact(10)", udm.Long(3628800)},
		{"mutual recursion", `function isEven(n) = if (n == 0) true else isOdd(n - 1)
function isOdd(n) = if (n == 0) false else isEven(n - 1)
isEven(10)`, udm.True},
		{"local lambda shadows stdlib", "let upperCase = (s) -> \"shadowed\"; upperCase(\"a\")", udm.String("shadowed")},
		{"block scope does not leak", "let r = { let inner = 5; inner * 2 }; r", udm.Long(10)},
		{"statements without result", "{ let a = 1; }", udm.NullValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustRun(t, tt.src, nil)
			if !udm.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	src := `match @input { 1 => "one", n if n > 5 => "big:" + n, _ => "other" }`
	tests := []struct {
		input udm.Value
		want  string
	}{
		{udm.Long(1), "one"},
		{udm.Double(1), "one"},
		{udm.Long(7), "big:7"},
		{udm.Long(3), "other"},
	}
	for _, tt := range tests {
		got := mustRun(t, src, tt.input)
		if got != udm.String(tt.want) {
			t.Errorf("match %v = %v, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNoMatchingPatternMessage(t *testing.T) {
	subject := udm.String(strings.Repeat("é", 60))
	_, err := run(t, `match @input { 1 => "one" }`, subject)
	if !errors.Is(err, types.ErrNoMatchingPattern) {
		t.Fatalf("error = %v, want NoMatchingPattern", err)
	}
	if msg := err.Error(); !utf8.ValidString(msg) || !strings.Contains(msg, "...") {
		t.Fatalf("message %q is not a valid truncated excerpt", msg)
	}
}

func TestArityContractThroughEvaluator(t *testing.T) {
	if got := mustRun(t, "reduce([1, 2, 3], (a, x) -> a + x)", nil); got != udm.Long(6) {
		t.Errorf("reduce/2 = %v", got)
	}
	if got := mustRun(t, "reduce([1, 2, 3], (a, x) -> a + x, 10)", nil); got != udm.Long(16) {
		t.Errorf("reduce/3 = %v", got)
	}
	for _, src := range []string{"reduce([1])", "reduce([1], (a, x) -> a, 0, 1)"} {
		_, err := run(t, src, nil)
		if !errors.Is(err, types.ErrArityMismatch) {
			t.Errorf("%s: error = %v, want ArityMismatch", src, err)
		}
	}
}

func TestInvokeRewrapsFailures(t *testing.T) {
	b := functions.NewBuilderFrom(stdlib.Default())
	b.MustRegister("explode", 0, 0, func(context.Context, functions.Caller, []udm.Value) (udm.Value, error) {
		var xs []int
		return udm.Long(xs[3]), nil
	})
	b.MustRegister("fail", 0, 0, func(context.Context, functions.Caller, []udm.Value) (udm.Value, error) {
		return nil, errors.New("disk on fire")
	})
	reg := b.Build()

	t.Run("panic", func(t *testing.T) {
		_, err := run(t, "explode()", nil, evaluator.WithRegistry(reg))
		var re *types.RuntimeError
		if !errors.As(err, &re) || re.Kind != types.KindUserThrown {
			t.Fatalf("error = %v, want UserThrown", err)
		}
		if re.Function != "explode" || re.OriginalMessage == "" {
			t.Errorf("error = %+v", re)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		_, err := run(t, "[1] |> map(x -> fail())", nil, evaluator.WithRegistry(reg))
		var re *types.RuntimeError
		if !errors.As(err, &re) || re.Kind != types.KindUserThrown {
			t.Fatalf("error = %v, want UserThrown", err)
		}
		if re.OriginalMessage != "disk on fire" || re.Function != "fail" {
			t.Errorf("error = %+v", re)
		}
	})

	t.Run("typed error keeps kind", func(t *testing.T) {
		_, err := run(t, "[1, 0] |> map(x -> 1 / x)", nil)
		if !errors.Is(err, types.ErrDivisionByZero) {
			t.Fatalf("error = %v, want DivisionByZero", err)
		}
		var re *types.RuntimeError
		errors.As(err, &re)
		if re.Function != "map" {
			t.Errorf("function = %q, want map", re.Function)
		}
	})

	t.Run("user error message", func(t *testing.T) {
		_, err := run(t, `error("invalid order")`, nil)
		var re *types.RuntimeError
		if !errors.As(err, &re) || re.OriginalMessage != "invalid order" {
			t.Fatalf("error = %v", err)
		}
	})
}

func TestSentinelErrorsStayUnannotated(t *testing.T) {
	divByZero := func(context.Context, functions.Caller, []udm.Value) (udm.Value, error) {
		return nil, types.ErrDivisionByZero
	}
	b := functions.NewBuilderFrom(stdlib.Default())
	b.MustRegister("safeDiv", 0, 0, divByZero)
	b.MustRegister("ratio", 0, 0, divByZero)
	reg := b.Build()

	tests := []struct {
		src      string
		function string
		col      int
	}{
		{"safeDiv()", "safeDiv", 1},
		{"1 + ratio()", "ratio", 5},
		{"safeDiv()", "safeDiv", 1},
	}
	for _, tt := range tests {
		_, err := run(t, tt.src, nil, evaluator.WithRegistry(reg))
		var re *types.RuntimeError
		if !errors.As(err, &re) || re.Kind != types.KindDivisionByZero {
			t.Fatalf("%s: error = %v, want DivisionByZero", tt.src, err)
		}
		if re.Function != tt.function || re.Pos.Column != tt.col {
			t.Errorf("%s: error = %v, want function %s at column %d", tt.src, err, tt.function, tt.col)
		}
	}
	if types.ErrDivisionByZero.Function != "" || types.ErrDivisionByZero.Pos.Line != 0 {
		t.Fatalf("sentinel modified: %+v", types.ErrDivisionByZero)
	}
}

func TestMaxDepth(t *testing.T) {
	src := "function loop(n) = loop(n + 1); loop(0)"
	_, err := run(t, src, nil, evaluator.WithMaxDepth(50))
	if !errors.Is(err, types.ErrRecursionLimit) {
		t.Fatalf("error = %v, want RecursionLimit", err)
	}

	got := mustRun(t, "function fact(n) { if (n <= 1) 1 else n * fact(n - 1) }; fact(20)", nil, evaluator.WithMaxDepth(50))
	if got != udm.Long(2432902008176640000) {
		t.Fatalf("fact(20) = %v", got)
	}
}

func TestBaseEnv(t *testing.T) {
	prog, err := parser.Compile(`greeting + ", " + @input.name`)
	if err != nil {
		t.Fatal(err)
	}
	base := env.New()
	base.Bind("greeting", udm.String("Hello"))

	got, err := evaluator.New().Evaluate(context.Background(), prog, udm.NewObject("name", "Ada"), base)
	if err != nil {
		t.Fatal(err)
	}
	if got != udm.String("Hello, Ada") {
		t.Fatalf("got %v", got)
	}
	if base.HasLocal("input") {
		t.Fatal("input leaked into the base environment")
	}
}

func TestDeterminismAndConcurrency(t *testing.T) {
	prog, err := parser.Compile(`{ total: sum(@input |> map(x -> x * 1.5)), count: count(@input) }`)
	if err != nil {
		t.Fatal(err)
	}
	input := arr(udm.Long(1), udm.Long(2), udm.Long(3))
	ev := evaluator.New()
	first, err := ev.Evaluate(context.Background(), prog, input, nil)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := ev.Evaluate(context.Background(), prog, input, nil)
			if err != nil {
				errs <- err
				return
			}
			if !udm.Equal(got, first) {
				errs <- errors.New("result differs: " + got.String())
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestApplyNativeValue(t *testing.T) {
	ev := evaluator.New()
	got, err := ev.Apply(context.Background(), &udm.Lambda{Name: "sqrt", Native: true}, udm.Long(16))
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := udm.AsFloat(got); math.Abs(f-4) > 1e-9 {
		t.Fatalf("sqrt(16) = %v", got)
	}
	if _, err := ev.Apply(context.Background(), udm.Long(1)); !errors.Is(err, types.ErrTypeMismatch) {
		t.Fatalf("Apply(non-function) error = %v", err)
	}
}

func TestInvalidProgram(t *testing.T) {
	_, err := evaluator.New().Evaluate(context.Background(), nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil program")
	}
	prog, _ := parser.Compile("(1 +", parser.WithRecovery(true))
	if prog != nil {
		if _, err := evaluator.New().Evaluate(context.Background(), prog, nil, nil); err == nil {
			t.Fatal("expected error for program with parse errors")
		}
	}
}
