package stdlib_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/grauwen/utl-x-sub015/pkg/evaluator"
	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/parser"
	"github.com/grauwen/utl-x-sub015/pkg/stdlib"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

func eval(t *testing.T, src string) (udm.Value, error) {
	t.Helper()
	prog, err := parser.Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	return evaluator.New().Evaluate(context.Background(), prog, nil, nil)
}

type stdlibCase struct {
	src  string
	want string
}

func runCases(t *testing.T, tests []stdlibCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := eval(t, tt.src)
			if err != nil {
				t.Fatalf("%s: %v", tt.src, err)
			}
			if got.String() != tt.want {
				t.Errorf("%s = %s, want %s", tt.src, got.String(), tt.want)
			}
		})
	}
}

func TestDefaultIsBuiltOnce(t *testing.T) {
	if stdlib.Default() != stdlib.Default() {
		t.Fatal("Default() returned different registries")
	}
	if got, want := stdlib.Default().Len(), len(stdlib.Defs()); got != want {
		t.Fatalf("registry has %d functions, want %d", got, want)
	}
}

func TestMetadata(t *testing.T) {
	for _, d := range stdlib.Defs() {
		if d.Category == "" || d.Description == "" || d.Example == "" {
			t.Errorf("%s: incomplete metadata %+v", d.Name, d)
		}
	}
}

// Every function is callable at its declared minimum and maximum arity:
// no panic escapes and dispatch never reports UndefinedFunction.
func TestArityContract(t *testing.T) {
	reg := stdlib.Default()
	ev := evaluator.New(evaluator.WithRegistry(reg))
	samples := []udm.Value{
		udm.NewArray(udm.Long(1), udm.Long(2)),
		udm.Long(1),
		udm.String("a"),
		udm.NullValue,
	}

	for _, name := range reg.Names() {
		def, _ := reg.Lookup(name)
		maxArgs := def.MaxArgs
		if maxArgs == functions.Variadic {
			maxArgs = def.MinArgs + 2
		}
		for _, n := range []int{def.MinArgs, maxArgs} {
			for _, sample := range samples {
				args := make([]udm.Value, n)
				for i := range args {
					args[i] = sample
				}
				t.Run(fmt.Sprintf("%s/%d/%s", name, n, udm.TypeName(sample)), func(t *testing.T) {
					defer func() {
						if r := recover(); r != nil {
							t.Fatalf("panic: %v", r)
						}
					}()
					_, err := reg.Call(context.Background(), ev, name, args)
					if types.IsKind(err, types.KindUndefinedFunction) || types.IsKind(err, types.KindArityMismatch) {
						t.Fatalf("unexpected dispatch error: %v", err)
					}
				})
			}
		}

		if def.MinArgs > 0 {
			_, err := reg.Call(context.Background(), ev, name, make([]udm.Value, def.MinArgs-1))
			if !errors.Is(err, types.ErrArityMismatch) {
				t.Errorf("%s below min arity: error = %v", name, err)
			}
		}
		if def.MaxArgs != functions.Variadic {
			_, err := reg.Call(context.Background(), ev, name, make([]udm.Value, def.MaxArgs+1))
			if !errors.Is(err, types.ErrArityMismatch) {
				t.Errorf("%s above max arity: error = %v", name, err)
			}
		}
	}
}

func TestArrayFunctions(t *testing.T) {
	runCases(t, []stdlibCase{
		{`map([1, 2], x -> x + 1)`, "[2,3]"},
		{`map(["a", "b"], (x, i) -> x + i)`, `["a0","b1"]`},
		{`map(null, x -> x)`, "[]"},
		{`filter([1, 2, 3, 4], x -> x % 2 == 0)`, "[2,4]"},
		{`reduce([1, 2, 3], (acc, x) -> acc + x, 0)`, "6"},
		{`reduce([], (acc, x) -> acc + x)`, "null"},
		{`reduce(["a", "b"], (acc, x, i) -> acc + x + i, "")`, "a0b1"},
		{`find([{id: 1}, {id: 2}], x -> x.id == 2)`, `{"id":2}`},
		{`find([1], x -> x > 5)`, "null"},
		{`some([1, 2], x -> x > 1)`, "true"},
		{`every([1, 2], x -> x > 1)`, "false"},
		{`count([1, 2, 3])`, "3"},
		{`count([1, 2, 3], x -> x > 1)`, "2"},
		{`sum([1, 2, 3])`, "6"},
		{`sum([1, 2.5])`, "3.5"},
		{`sum([])`, "0"},
		{`avg([1, 2, 3, 4])`, "2.5"},
		{`avg([])`, "null"},
		{`min([3, 1.5, 2])`, "1.5"},
		{`max(["a", "c", "b"])`, "c"},
		{`first([1, 2])`, "1"},
		{`first([])`, "null"},
		{`last([1, 2])`, "2"},
		{`get([1, 2, 3], -1)`, "3"},
		{`get([1, 2, 3], 7)`, "null"},
		{`elementAt([1, 2, 3], 1)`, "2"},
		{`slice([1, 2, 3, 4], 1, 3)`, "[2,3]"},
		{`slice([1, 2, 3, 4], -2)`, "[3,4]"},
		{`slice([1, 2], 5, 9)`, "[]"},
		{`take([1, 2, 3], 2)`, "[1,2]"},
		{`take([1, 2, 3], 10)`, "[1,2,3]"},
		{`drop([1, 2, 3], 2)`, "[3]"},
		{`drop([1, 2, 3], 10)`, "[]"},
		{`reverse([1, 2, 3])`, "[3,2,1]"},
		{`reverse("abc")`, "cba"},
		{`sort([3, 1, 2])`, "[1,2,3]"},
		{`sort([3, 1, 2], (a, b) -> b - a)`, "[3,2,1]"},
		{`sortBy([{n: "b"}, {n: "a"}], x -> x.n)`, `[{"n":"a"},{"n":"b"}]`},
		{`distinct([1, 1.0, 2, 1])`, "[1,2]"},
		{`flatten([[1], [2, [3]]])`, "[1,2,[3]]"},
		{`flatten([[1], [2, [3]]], -1)`, "[1,2,3]"},
		{`zip([1, 2, 3], ["a", "b"])`, `[[1,"a"],[2,"b"]]`},
		{`range(0, 4)`, "[0,1,2,3]"},
		{`range(5, 0, -2)`, "[5,3,1]"},
		{`range(3, 1)`, "[]"},
		{`range(0, 9223372036854775807, 4611686018427387904)`, "[0,4611686018427387904]"},
		{`range(9223372036854775807, 0, -4611686018427387904)`, "[9223372036854775807,4611686018427387903]"},
		{`groupBy([{t: "x", v: 1}, {t: "y", v: 2}, {t: "x", v: 3}], e -> e.t)`, `{"x":[{"t":"x","v":1},{"t":"x","v":3}],"y":[{"t":"y","v":2}]}`},
		{`indexOf([1, 2, 3], 2)`, "1"},
		{`indexOf([1], 9)`, "-1"},
		{`indexOf("héllo", "l")`, "2"},
		{`append([1], 2, 3)`, "[1,2,3]"},
		{`insertAt([1, 3], 1, 2)`, "[1,2,3]"},
		{`insertAt([1], 1, 2)`, "[1,2]"},
		{`removeAt([1, 2, 3], -1)`, "[1,2]"},
		{`setAt([1, 2], 0, 9)`, "[9,2]"},
		{`isEmpty([])`, "true"},
		{`isEmpty("x")`, "false"},
		{`contains([1, 2], 2.0)`, "true"},
		{`contains("hello", "ell")`, "true"},
		{`size({a: 1, b: 2})`, "2"},
	})
}

func TestPositionalWritesOutOfBounds(t *testing.T) {
	for _, src := range []string{
		`insertAt([1], 3, 0)`,
		`insertAt([1], -3, 0)`,
		`removeAt([], 0)`,
		`setAt([1, 2], 2, 0)`,
	} {
		_, err := eval(t, src)
		if !errors.Is(err, types.ErrIndexOutOfBounds) {
			t.Errorf("%s: error = %v, want IndexOutOfBounds", src, err)
		}
		if types.IsKind(err, types.KindUndefinedFunction) {
			t.Errorf("%s reported UndefinedFunction", src)
		}
	}
}

func TestSizeLimits(t *testing.T) {
	for _, src := range []string{
		`padLeft("x", 100000000000)`,
		`padRight("x", 100000000000, "ab")`,
		`range(0, 100000000)`,
	} {
		_, err := eval(t, src)
		if !errors.Is(err, types.ErrIndexOutOfBounds) {
			t.Errorf("%s: error = %v, want IndexOutOfBounds", src, err)
		}
	}
}

func TestStringFunctions(t *testing.T) {
	runCases(t, []stdlibCase{
		{`upperCase("abc")`, "ABC"},
		{`lowerCase("ABC")`, "abc"},
		{`titleCase("hello wORLD")`, "Hello World"},
		{`trim("  a b  ")`, "a b"},
		{`substring("hello", 1, 3)`, "el"},
		{`substring("hello", 3)`, "lo"},
		{`substring("hello", 2, 99)`, "llo"},
		{`substring("hello", -3, -1)`, "ll"},
		{`truncate("hello world", 5, "...")`, "hello..."},
		{`truncate("hi", 5)`, "hi"},
		{`split("a,b,c", ",")`, `["a","b","c"]`},
		{`split("", ",")`, "[]"},
		{`join(["a", 1, null], "-")`, "a-1-"},
		{`replace("a-b-c", "-", "+")`, "a+b+c"},
		{`startsWith("hello", "he")`, "true"},
		{`endsWith("hello", "x")`, "false"},
		{`length("héllo")`, "5"},
		{`padLeft("7", 3, "0")`, "007"},
		{`padLeft(7, 3, "0")`, "007"},
		{`padRight("a", 4, "xy")`, "axyx"},
		{`padLeft("long", 2)`, "long"},
		{`normalize("é") == "é"`, "true"},
		{`normalize("é", "NFD") == "é"`, "true"},
		{`matches("abc123", "^[a-z]+[0-9]+$")`, "true"},
	})
}

func TestMatchesInvalidPattern(t *testing.T) {
	_, err := eval(t, `matches("a", "(")`)
	var re *types.RuntimeError
	if !errors.As(err, &re) || re.Kind != types.KindUserThrown {
		t.Fatalf("error = %v, want UserThrown", err)
	}
	if !strings.Contains(re.OriginalMessage, "invalid regular expression") {
		t.Errorf("original message = %q", re.OriginalMessage)
	}
}

func TestMathFunctions(t *testing.T) {
	runCases(t, []stdlibCase{
		{`abs(-3)`, "3"},
		{`abs(-2.5)`, "2.5"},
		{`round(2.5)`, "3"},
		{`round(-2.5)`, "-3"},
		{`round(2.346, 2)`, "2.35"},
		{`round(7)`, "7"},
		{`floor(2.7)`, "2"},
		{`ceil(2.1)`, "3"},
		{`pow(2, 10)`, "1024"},
		{`pow(2, -1)`, "0.5"},
		{`pow(2.0, 2)`, "4.0"},
		{`sqrt(16)`, "4.0"},
		{`toNumber("42")`, "42"},
		{`toNumber(" 4.5 ")`, "4.5"},
		{`toNumber(true)`, "1"},
		{`formatNumber(1234.5, 2)`, "1,234.50"},
		{`formatNumber(1234567)`, "1,234,567"},
		{`formatNumber(1234.5, 2, "de")`, "1.234,50"},
	})

	if _, err := eval(t, `toNumber("abc")`); !errors.Is(err, types.ErrTypeMismatch) {
		t.Errorf("toNumber(abc) error = %v", err)
	}
}

func TestObjectFunctions(t *testing.T) {
	runCases(t, []stdlibCase{
		{`keys({b: 1, a: 2})`, `["b","a"]`},
		{`values({b: 1, a: 2})`, "[1,2]"},
		{`entries({a: 1})`, `[{"key":"a","value":1}]`},
		{`fromEntries([{key: "a", value: 1}, ["b", 2]])`, `{"a":1,"b":2}`},
		{`merge({a: 1, b: 1}, {b: 2}, null, {c: 3})`, `{"a":1,"b":2,"c":3}`},
		{`pick({a: 1, b: 2, c: 3}, ["c", "a"])`, `{"a":1,"c":3}`},
		{`omit({a: 1, b: 2}, "a")`, `{"b":2}`},
		{`hasKey({a: null}, "a")`, "true"},
		{`hasKey(1, "a")`, "false"},
		{`setPath({a: {x: 1}}, "a.b.c", 2)`, `{"a":{"x":1,"b":{"c":2}}}`},
		{`getPath({a: {b: [10, 20]}}, "a.b.1")`, "20"},
		{`getPath({}, "a.b", "none")`, "none"},
	})
}

func TestObjectFunctionsDoNotMutate(t *testing.T) {
	got, err := eval(t, `let o = {a: 1}; let p = setPath(o, "b", 2); [o, p]`)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != `[{"a":1},{"a":1,"b":2}]` {
		t.Fatalf("got %s", got)
	}
}

func TestTypeFunctions(t *testing.T) {
	runCases(t, []stdlibCase{
		{`typeOf(1)`, "number"},
		{`typeOf(1.5)`, "number"},
		{`typeOf("a")`, "string"},
		{`typeOf([])`, "array"},
		{`typeOf({})`, "object"},
		{`typeOf(null)`, "null"},
		{`typeOf(x -> x)`, "function"},
		{`isString("a")`, "true"},
		{`isNumber("1")`, "false"},
		{`isArray([])`, "true"},
		{`isObject([])`, "false"},
		{`isNull(null)`, "true"},
		{`toString(1.0)`, "1.0"},
		{`toString([1, "a"])`, `[1,"a"]`},
		{`toBoolean("yes")`, "true"},
		{`toBoolean(0)`, "false"},
	})
}

func TestDateFunctions(t *testing.T) {
	runCases(t, []stdlibCase{
		{`typeOf(parseDate("2024-01-15"))`, "date"},
		{`formatDate(parseDate("2024-01-15"), "dd/MM/yyyy")`, "15/01/2024"},
		{`formatDate(parseDate("15.01.2024 10:30", "dd.MM.yyyy HH:mm"), "yyyy-MM-dd'T'HH:mm")`, "2024-01-15T10:30"},
		{`toString(addDays(parseDate("2024-02-28"), 2))`, "2024-03-01"},
		{`diffDays("2024-01-01", "2024-01-15")`, "14"},
		{`parseDate("2024-01-15T10:00:00Z") < now()`, "true"},
	})

	if _, err := eval(t, `parseDate("not a date")`); !errors.Is(err, types.ErrTypeMismatch) {
		t.Errorf("parseDate error = %v", err)
	}
}

func TestEncodingFunctions(t *testing.T) {
	runCases(t, []stdlibCase{
		{`base64Encode("hi")`, "aGk="},
		{`base64Decode("aGk=")`, "hi"},
		{`urlEncode("a b&c")`, "a+b%26c"},
		{`urlDecode("a%20b")`, "a b"},
		{`toJson({b: 1, a: [1.0, "x"]})`, `{"b":1,"a":[1.0,"x"]}`},
		{`parseJson("{\"z\": 1, \"a\": 2.5}")`, `{"z":1,"a":2.5}`},
		{`typeOf(parseJson("1.0"))`, "number"},
	})

	if _, err := eval(t, `toJson(x -> x)`); !errors.Is(err, udm.ErrLambdaValue) {
		t.Errorf("toJson(lambda) error = %v, want ErrLambdaValue", err)
	}
}
