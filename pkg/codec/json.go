package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// DecodeJSON parses a JSON document. Object key order is kept and numbers
// without fraction or exponent that fit in int64 become Long.
func DecodeJSON(data []byte) (udm.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, fmt.Errorf("json: %w", err)
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (udm.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	switch t := tok.(type) {
	case nil:
		return udm.NullValue, nil
	case bool:
		return udm.Bool(t), nil
	case string:
		return udm.String(t), nil
	case json.Number:
		return jsonNumber(t)
	case json.Delim:
		switch t {
		case '{':
			b := udm.NewObjectBuilder(0)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				b.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return b.Build(), nil
		case '[':
			var items []udm.Value
			for dec.More() {
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return udm.NewArray(items...), nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func jsonNumber(n json.Number) (udm.Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return udm.Long(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return udm.Double(f), nil
}

// EncodeJSON serializes v as JSON. Doubles always carry a fraction or an
// exponent so that they decode back as Double.
func EncodeJSON(v udm.Value, opts ...Option) ([]byte, error) {
	if err := checkLambda(v); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	o := buildOptions(opts)
	w := &jsonWriter{indent: o.Indent}
	if err := w.value(v, 0); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return w.buf.Bytes(), nil
}

type jsonWriter struct {
	buf    bytes.Buffer
	indent int
}

func (w *jsonWriter) newline(level int) {
	if w.indent == 0 {
		return
	}
	w.buf.WriteByte('\n')
	w.buf.WriteString(strings.Repeat(" ", level*w.indent))
}

func (w *jsonWriter) value(v udm.Value, level int) error {
	switch v := v.(type) {
	case nil, udm.Null:
		w.buf.WriteString("null")
	case udm.Bool:
		w.buf.WriteString(strconv.FormatBool(bool(v)))
	case udm.Long:
		w.buf.WriteString(strconv.FormatInt(int64(v), 10))
	case udm.Double:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("cannot encode %s", udm.FormatDouble(f))
		}
		w.buf.WriteString(udm.FormatDouble(f))
	case udm.String:
		writeJSONString(&w.buf, string(v))
	case udm.Binary:
		writeJSONString(&w.buf, base64.StdEncoding.EncodeToString(v.Bytes()))
	case udm.Date, udm.Time, udm.LocalDateTime, udm.DateTime:
		writeJSONString(&w.buf, v.String())
	case *udm.Array:
		if v.Len() == 0 {
			w.buf.WriteString("[]")
			return nil
		}
		w.buf.WriteByte('[')
		var err error
		v.Each(func(i int, el udm.Value) bool {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			w.newline(level + 1)
			err = w.value(el, level+1)
			return err == nil
		})
		if err != nil {
			return err
		}
		w.newline(level)
		w.buf.WriteByte(']')
	case *udm.Object:
		if v.Len() == 0 {
			w.buf.WriteString("{}")
			return nil
		}
		w.buf.WriteByte('{')
		first := true
		var err error
		v.Each(func(k string, el udm.Value) bool {
			if !first {
				w.buf.WriteByte(',')
			}
			first = false
			w.newline(level + 1)
			writeJSONString(&w.buf, k)
			w.buf.WriteByte(':')
			if w.indent > 0 {
				w.buf.WriteByte(' ')
			}
			err = w.value(el, level+1)
			return err == nil
		})
		if err != nil {
			return err
		}
		w.newline(level)
		w.buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode %s", udm.TypeName(v))
	}
	return nil
}

const hexDigits = "0123456789abcdef"

// writeJSONString writes s as a JSON string literal without HTML escaping.
func writeJSONString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				buf.WriteByte('\\')
				buf.WriteByte(c)
			case c == '\n':
				buf.WriteString(`\n`)
			case c == '\r':
				buf.WriteString(`\r`)
			case c == '\t':
				buf.WriteString(`\t`)
			case c < 0x20:
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[c>>4])
				buf.WriteByte(hexDigits[c&0xF])
			default:
				buf.WriteByte(c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf.WriteString(`\ufffd`)
		} else {
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}
