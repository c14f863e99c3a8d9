package stdlib

import (
	"context"
	"strings"
	"time"

	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/types"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// datePatternTokens maps pattern letters (yyyy-MM-dd style) to Go layout
// fragments. Longer tokens come first so that matching is greedy.
var datePatternTokens = []struct {
	token  string
	layout string
}{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dd", "02"},
	{"d", "2"},
	{"EEEE", "Monday"},
	{"EEE", "Mon"},
	{"HH", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"SSS", "000"},
	{"a", "PM"},
	{"XXX", "Z07:00"},
	{"Z", "-0700"},
}

// goLayout converts a date pattern to a Go time layout. Text in single
// quotes is copied literally.
func goLayout(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] == '\'' {
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				b.WriteString(pattern[i+1:])
				break
			}
			b.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
			continue
		}
		matched := false
		for _, t := range datePatternTokens {
			if strings.HasPrefix(pattern[i:], t.token) {
				b.WriteString(t.layout)
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}

// temporalArg returns argument i as a date-time value, parsing strings.
func temporalArg(args []udm.Value, i int) (udm.Value, time.Time, error) {
	v := functions.Arg(args, i)
	if s, ok := v.(udm.String); ok {
		parsed, ok := udm.ParseTemporal(string(s))
		if !ok {
			return nil, time.Time{}, types.Errorf(types.KindTypeMismatch, "cannot parse %q as a date", string(s))
		}
		v = parsed
	}
	t, ok := udm.Instant(v)
	if !ok {
		return nil, time.Time{}, functions.TypeError(i, "a date", v)
	}
	return v, t, nil
}

func fnNow(_ context.Context, _ functions.Caller, _ []udm.Value) (udm.Value, error) {
	return udm.DateTime{T: time.Now().UTC()}, nil
}

func fnParseDate(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	s, err := functions.StringArg(args, 0)
	if err != nil {
		return nil, err
	}
	if !functions.Has(args, 1) {
		v, ok := udm.ParseTemporal(strings.TrimSpace(s))
		if !ok {
			return nil, types.Errorf(types.KindTypeMismatch, "cannot parse %q as a date", s)
		}
		return v, nil
	}

	pattern, err := functions.StringArg(args, 1)
	if err != nil {
		return nil, err
	}
	layout := goLayout(pattern)
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil, types.Errorf(types.KindTypeMismatch, "cannot parse %q with pattern %q", s, pattern)
	}
	switch {
	case strings.Contains(layout, "Z07") || strings.Contains(layout, "-0700"):
		return udm.DateTime{T: t}, nil
	case strings.Contains(layout, "15") || strings.Contains(layout, "03") || strings.Contains(layout, "04"):
		return udm.LocalDateTime{T: t}, nil
	}
	return udm.Date{T: t}, nil
}

func fnFormatDate(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	v, t, err := temporalArg(args, 0)
	if err != nil {
		return nil, err
	}
	if !functions.Has(args, 1) {
		return udm.String(v.String()), nil
	}
	pattern, err := functions.StringArg(args, 1)
	if err != nil {
		return nil, err
	}
	return udm.String(t.Format(goLayout(pattern))), nil
}

func fnAddDays(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	v, t, err := temporalArg(args, 0)
	if err != nil {
		return nil, err
	}
	days, err := functions.IntArg(args, 1)
	if err != nil {
		return nil, err
	}
	t = t.AddDate(0, 0, days)
	switch v.(type) {
	case udm.Date:
		return udm.Date{T: t}, nil
	case udm.LocalDateTime:
		return udm.LocalDateTime{T: t}, nil
	case udm.Time:
		return nil, functions.TypeError(0, "a date", v)
	}
	return udm.DateTime{T: t}, nil
}

func fnDiffDays(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
	_, from, err := temporalArg(args, 0)
	if err != nil {
		return nil, err
	}
	_, to, err := temporalArg(args, 1)
	if err != nil {
		return nil, err
	}
	return udm.Long(int64(to.Sub(from).Hours() / 24)), nil
}
