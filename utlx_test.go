package utlx_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	utlx "github.com/grauwen/utl-x-sub015"
	"github.com/grauwen/utl-x-sub015/pkg/cache"
	"github.com/grauwen/utl-x-sub015/pkg/codec"
	"github.com/grauwen/utl-x-sub015/pkg/evaluator"
	"github.com/grauwen/utl-x-sub015/pkg/ext/extcrypto"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

func TestEval(t *testing.T) {
	input := udm.NewArray(udm.Long(1), udm.Long(2), udm.Long(3))
	got, err := utlx.Eval(context.Background(), `@input |> map(x -> x * 2)`, input)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "[2,4,6]" {
		t.Fatalf("got %s", got)
	}
}

func TestEvalCompileError(t *testing.T) {
	_, err := utlx.Eval(context.Background(), `(1 +`, nil)
	var pe *types.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %T %v, want *types.ParseError", err, err)
	}
}

func TestTransform(t *testing.T) {
	script := `%utlx 1.0
input json
output yaml
---
{
  names: @input.items |> map(i -> upperCase(i.name)),
  total: sum(@input.items |> map(i -> i.price))
}`
	input := []byte(`{"items": [{"name": "a", "price": 2}, {"name": "b", "price": 3}]}`)

	out, err := utlx.Transform(context.Background(), script, input)
	if err != nil {
		t.Fatal(err)
	}
	want := "names:\n  - A\n  - B\ntotal: 5\n"
	if string(out) != want {
		t.Fatalf("got\n%s\nwant\n%s", out, want)
	}
}

func TestTransformDefaultsAndOptions(t *testing.T) {
	tests := []struct {
		name   string
		script string
		input  string
		want   string
	}{
		{"no header", `@input.a + 1`, `{"a": 1}`, "2"},
		{"empty input is null", `@input ?? "none"`, ``, `"none"`},
		{"json indent", "output json indent=2\n---\n{a: [1]}", ``, "{\n  \"a\": [\n    1\n  ]\n}"},
		{"yaml to json keeps order", "input yaml\n---\n@input", "z: 1\na: 2.5\n", `{"z":1,"a":2.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := utlx.Transform(context.Background(), tt.script, []byte(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			if string(out) != tt.want {
				t.Errorf("got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestTransformErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := utlx.Transform(ctx, "output xml\n---\n1", nil); !errors.Is(err, codec.ErrUnsupportedFormat) {
		t.Errorf("xml output: error = %v", err)
	}
	if _, err := utlx.Transform(ctx, "output json indent=x\n---\n1", nil); err == nil {
		t.Error("invalid indent accepted")
	}
	if _, err := utlx.Transform(ctx, `@input`, []byte(`{`)); err == nil {
		t.Error("malformed input accepted")
	}
	if _, err := utlx.Transform(ctx, `x -> x`, nil); !errors.Is(err, udm.ErrLambdaValue) {
		t.Errorf("function result: error = %v", err)
	}
	if _, err := utlx.Transform(ctx, `1 / 0`, nil); !errors.Is(err, types.ErrDivisionByZero) {
		t.Errorf("runtime error: error = %v", err)
	}
}

func TestWithCache(t *testing.T) {
	c := cache.New(8)
	for i := 0; i < 3; i++ {
		got, err := utlx.Eval(context.Background(), `@input + 1`, udm.Long(i), utlx.WithCache(c))
		if err != nil {
			t.Fatal(err)
		}
		if got != udm.Long(i+1) {
			t.Fatalf("got %s", got)
		}
	}
	if st := c.Stats(); st.Len != 1 || st.Hits != 2 {
		t.Fatalf("Stats() = %+v", st)
	}
}

func TestNewRegistry(t *testing.T) {
	reg, err := utlx.NewRegistry(extcrypto.Extension())
	if err != nil {
		t.Fatal(err)
	}
	got, err := utlx.Eval(context.Background(), `hash("abc", "sha1")`, nil,
		utlx.WithEvalOptions(evaluator.WithRegistry(reg)))
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Fatalf("got %s", got)
	}

	if _, err := utlx.Eval(context.Background(), `hash("abc")`, nil); !errors.Is(err, types.ErrUndefinedFunction) {
		t.Errorf("default registry: error = %v", err)
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	utlx.MustCompile(`let = 1`)
}

func TestVersion(t *testing.T) {
	if utlx.Version() == "" {
		t.Fatal("empty version")
	}
}

func ExampleTransform() {
	script := "output json\n---\n{ greeting: \"Hello, \" + @input.name }"
	out, err := utlx.Transform(context.Background(), script, []byte(`{"name": "World"}`))
	if err != nil {
		panic(err)
	}
	fmt.Println(string(out))
	// Output: {"greeting":"Hello, World"}
}

func BenchmarkEvalCompiled(b *testing.B) {
	prog := utlx.MustCompile(`@input |> filter(x -> x % 2 == 0) |> map(x -> x * x) |> sum()`)
	items := make([]udm.Value, 1000)
	for i := range items {
		items[i] = udm.Long(i)
	}
	input := udm.NewArray(items...)
	ev := evaluator.New()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ev.Evaluate(ctx, prog, input, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTransformCached(b *testing.B) {
	c := cache.New(4)
	script := "input json\noutput json\n---\n@input.items |> map(i -> { id: i.id, name: upperCase(i.name) })"
	input := []byte(`{"items": [{"id": 1, "name": "a"}, {"id": 2, "name": "b"}, {"id": 3, "name": "c"}]}`)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := utlx.Transform(ctx, script, input, utlx.WithCache(c)); err != nil {
			b.Fatal(err)
		}
	}
}
