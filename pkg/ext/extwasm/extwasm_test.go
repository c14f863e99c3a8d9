package extwasm_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/grauwen/utl-x-sub015/pkg/evaluator"
	"github.com/grauwen/utl-x-sub015/pkg/ext"
	"github.com/grauwen/utl-x-sub015/pkg/ext/extwasm"
	"github.com/grauwen/utl-x-sub015/pkg/parser"
	"github.com/grauwen/utl-x-sub015/pkg/stdlib"
	"github.com/grauwen/utl-x-sub015/pkg/types"
)

// arithWasm exports add(i64, i64) i64 and mul(f64, f64) f64.
var arithWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section
	0x01, 0x0d, 0x02,
	0x60, 0x02, 0x7e, 0x7e, 0x01, 0x7e,
	0x60, 0x02, 0x7c, 0x7c, 0x01, 0x7c,
	// function section
	0x03, 0x03, 0x02, 0x00, 0x01,
	// export section
	0x07, 0x0d, 0x02,
	0x03, 'a', 'd', 'd', 0x00, 0x00,
	0x03, 'm', 'u', 'l', 0x00, 0x01,
	// code section
	0x0a, 0x11, 0x02,
	0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x7c, 0x0b,
	0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0xa2, 0x0b,
}

// echoWasm exports echo32(i32) i32.
var echoWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section
	0x01, 0x06, 0x01,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	// function section
	0x03, 0x02, 0x01, 0x00,
	// export section
	0x07, 0x0a, 0x01,
	0x06, 'e', 'c', 'h', 'o', '3', '2', 0x00, 0x00,
	// code section
	0x0a, 0x06, 0x01,
	0x04, 0x00, 0x20, 0x00, 0x0b,
}

func quiet() extwasm.Option {
	return extwasm.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func load(t *testing.T, opts ...extwasm.Option) *extwasm.Module {
	t.Helper()
	ctx := context.Background()
	m, err := extwasm.Load(ctx, arithWasm, append(opts, quiet())...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(ctx) })
	return m
}

func TestLoadRegistersNumericExports(t *testing.T) {
	m := load(t, extwasm.WithPrefix("wasm_"), extwasm.WithCategory("Native"))
	defs := m.Defs()
	if len(defs) != 2 {
		t.Fatalf("got %d defs, want 2", len(defs))
	}
	if defs[0].Name != "wasm_add" || defs[1].Name != "wasm_mul" {
		t.Fatalf("names = %s, %s", defs[0].Name, defs[1].Name)
	}
	for _, d := range defs {
		if d.MinArgs != 2 || d.MaxArgs != 2 || d.Category != "Native" {
			t.Errorf("%s: %+v", d.Name, d)
		}
	}
}

func TestCallExportsThroughEvaluator(t *testing.T) {
	m := load(t)
	reg, err := ext.Build(stdlib.Default(), m.Extension())
	if err != nil {
		t.Fatal(err)
	}
	ev := evaluator.New(evaluator.WithRegistry(reg))

	tests := []struct {
		src  string
		want string
	}{
		{`add(2, 3)`, "5"},
		{`add(9007199254740993, 0)`, "9007199254740993"},
		{`mul(1.5, 2)`, "3.0"},
		{`[1, 2, 3] |> map(x -> add(x, 10))`, "[11,12,13]"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			prog, err := parser.Compile(tt.src)
			if err != nil {
				t.Fatal(err)
			}
			got, err := ev.Evaluate(context.Background(), prog, nil, nil)
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("%s = %s, want %s", tt.src, got, tt.want)
			}
		})
	}

	prog, _ := parser.Compile(`add(1.5, 1)`)
	if _, err := ev.Evaluate(context.Background(), prog, nil, nil); !errors.Is(err, types.ErrTypeMismatch) {
		t.Errorf("non-integral i64 argument: error = %v", err)
	}
}

func TestI32ArgumentRange(t *testing.T) {
	ctx := context.Background()
	m, err := extwasm.Load(ctx, echoWasm, quiet())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer func() { _ = m.Close(ctx) }()
	reg, err := ext.Build(stdlib.Default(), m.Extension())
	if err != nil {
		t.Fatal(err)
	}
	ev := evaluator.New(evaluator.WithRegistry(reg))

	tests := []struct {
		src     string
		want    string
		wantErr bool
	}{
		{src: `echo32(-7)`, want: "-7"},
		{src: `echo32(2147483647)`, want: "2147483647"},
		{src: `echo32(2147483648)`, wantErr: true},
		{src: `echo32(-2147483649)`, wantErr: true},
	}
	for _, tt := range tests {
		prog, err := parser.Compile(tt.src)
		if err != nil {
			t.Fatal(err)
		}
		got, err := ev.Evaluate(ctx, prog, nil, nil)
		if tt.wantErr {
			if !errors.Is(err, types.ErrTypeMismatch) {
				t.Errorf("%s: error = %v, want TypeMismatch", tt.src, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.src, err)
		}
		if got.String() != tt.want {
			t.Errorf("%s = %s, want %s", tt.src, got, tt.want)
		}
	}
}

func TestLoadRejectsInvalidModule(t *testing.T) {
	if _, err := extwasm.Load(context.Background(), []byte("not wasm"), quiet()); err == nil {
		t.Fatal("Load accepted invalid bytes")
	}
}
