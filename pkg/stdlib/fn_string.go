package stdlib

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// runeSlice returns the characters of s in [from, to). Negative indexes
// count from the end; both bounds are clamped.
func runeSlice(s string, from, to int) string {
	r := []rune(s)
	n := len(r)
	from, to = clampIndex(from, n), clampIndex(to, n)
	if from >= to {
		return ""
	}
	return string(r[from:to])
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
	}
	if i > n {
		return n
	}
	return i
}

// runeIndex returns the character index of sub in s, or -1.
func runeIndex(s, sub string) int {
	i := strings.Index(s, sub)
	if i < 0 {
		return -1
	}
	return utf8.RuneCountInString(s[:i])
}

// text renders a scalar for string building. Null renders as empty.
func text(v udm.Value) string {
	if udm.IsNull(v) {
		return ""
	}
	return v.String()
}

func stringFunc(fn func(string) string) functions.Impl {
	return func(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
		s, err := functions.StringArg(args, 0)
		if err != nil {
			return nil, err
		}
		return udm.String(fn(s)), nil
	}
}

var (
	fnUpperCase = stringFunc(strings.ToUpper)
	fnLowerCase = stringFunc(strings.ToLower)
	fnTrim      = stringFunc(strings.TrimSpace)
	fnTitleCase = stringFunc(func(s string) string {
		return cases.Title(language.Und).String(s)
	})
)

func fnSubstring(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, err := functions.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	from, err := functions.IntArg(args, 1)
	if err != nil {
		return nil, err
	}
	to, err := functions.OptionalInt(args, 2, utf8.RuneCountInString(s))
	if err != nil {
		return nil, err
	}
	return udm.String(runeSlice(s, from, to)), nil
}

func fnTruncate(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, err := functions.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	limit, err := functions.IntArg(args, 1)
	if err != nil {
		return nil, err
	}
	suffix, err := functions.OptionalString(args, 2, "")
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		limit = 0
	}
	if utf8.RuneCountInString(s) <= limit {
		return udm.String(s), nil
	}
	return udm.String(runeSlice(s, 0, limit) + suffix), nil
}

func fnSplit(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, err := functions.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	sep, err := functions.StringArg(args, 1)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return udm.EmptyArray, nil
	}
	parts := strings.Split(s, sep)
	out := make([]udm.Value, len(parts))
	for i, p := range parts {
		out[i] = udm.String(p)
	}
	return udm.NewArray(out...), nil
}

func fnJoin(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	arr, err := arrayArg(args, 0)
	if err != nil {
		return nil, err
	}
	sep, err := functions.OptionalString(args, 1, "")
	if err != nil {
		return nil, err
	}
	parts := make([]string, 0, arr.Len())
	for _, item := range arr.Items() {
		parts = append(parts, text(item))
	}
	return udm.String(strings.Join(parts, sep)), nil
}

func fnReplace(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, err := functions.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	old, err := functions.StringArg(args, 1)
	if err != nil {
		return nil, err
	}
	repl, err := functions.StringArg(args, 2)
	if err != nil {
		return nil, err
	}
	return udm.String(strings.ReplaceAll(s, old, repl)), nil
}

func stringTest(fn func(s, sub string) bool) functions.Impl {
	return func(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
		s, err := functions.StringArg(args, 0)
		if err != nil {
			return nil, err
		}
		sub, err := functions.StringArg(args, 1)
		if err != nil {
			return nil, err
		}
		return udm.Bool(fn(s, sub)), nil
	}
}

var (
	fnStartsWith = stringTest(strings.HasPrefix)
	fnEndsWith   = stringTest(strings.HasSuffix)
)

// maxPadWidth bounds the width padLeft and padRight may pad to.
const maxPadWidth = 10_000_000

// padding builds the fill needed to bring s to width characters.
func padding(args []udm.Value) (string, string, error) {
	v := functions.Arg(args, 0)
	if !udm.IsScalar(v) {
		return "", "", functions.TypeError(0, "a string", v)
	}
	s := text(v)
	width, err := functions.IntArg(args, 1)
	if err != nil {
		return "", "", err
	}
	if width > maxPadWidth {
		return "", "", types.Errorf(types.KindIndexOutOfBounds, "pad width %d exceeds the limit of %d", width, maxPadWidth)
	}
	pad, err := functions.OptionalString(args, 2, " ")
	if err != nil {
		return "", "", err
	}
	missing := width - utf8.RuneCountInString(s)
	if missing <= 0 || pad == "" {
		return s, "", nil
	}
	fill := []rune(strings.Repeat(pad, missing/utf8.RuneCountInString(pad)+1))
	return s, string(fill[:missing]), nil
}

func fnPadLeft(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, fill, err := padding(args)
	if err != nil {
		return nil, err
	}
	return udm.String(fill + s), nil
}

func fnPadRight(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, fill, err := padding(args)
	if err != nil {
		return nil, err
	}
	return udm.String(s + fill), nil
}

var normForms = map[string]norm.Form{
	"NFC":  norm.NFC,
	"NFD":  norm.NFD,
	"NFKC": norm.NFKC,
	"NFKD": norm.NFKD,
}

func fnNormalize(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, err := functions.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	name, err := functions.OptionalString(args, 1, "NFC")
	if err != nil {
		return nil, err
	}
	form, ok := normForms[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("unknown normalization form %q", name)
	}
	return udm.String(form.String(s)), nil
}

func fnMatches(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, err := functions.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	pattern, err := functions.StringArg(args, 1)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression: %w", err)
	}
	return udm.Bool(re.MatchString(s)), nil
}
