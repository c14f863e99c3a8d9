// Package codec converts between serialized documents and UDM values.
//
// Decoders preserve object key order and the integer/floating-point
// distinction (integers become udm.Long, everything else udm.Double).
// Encoders reject function values with an error wrapping udm.ErrLambdaValue.
package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// Supported formats.
const (
	JSON = "json"
	YAML = "yaml"
)

// ErrUnsupportedFormat is returned for formats without a codec.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Options configures encoders.
type Options struct {
	// Indent is the number of spaces per nesting level. Zero renders JSON
	// compactly; YAML always indents and uses 2 when unset.
	Indent int
}

// Option configures an encoder.
type Option func(*Options)

// WithIndent sets the indentation width.
func WithIndent(n int) Option {
	return func(o *Options) {
		o.Indent = n
	}
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.Indent < 0 {
		o.Indent = 0
	}
	return o
}

// Supported reports whether format has a codec.
func Supported(format string) bool {
	switch strings.ToLower(format) {
	case JSON, YAML:
		return true
	}
	return false
}

// Decode parses data in the given format.
func Decode(format string, data []byte) (udm.Value, error) {
	switch strings.ToLower(format) {
	case JSON:
		return DecodeJSON(data)
	case YAML:
		return DecodeYAML(data)
	}
	return nil, fmt.Errorf("decode %q: %w", format, ErrUnsupportedFormat)
}

// Encode serializes v in the given format.
func Encode(format string, v udm.Value, opts ...Option) ([]byte, error) {
	switch strings.ToLower(format) {
	case JSON:
		return EncodeJSON(v, opts...)
	case YAML:
		return EncodeYAML(v, opts...)
	}
	return nil, fmt.Errorf("encode %q: %w", format, ErrUnsupportedFormat)
}

// checkLambda rejects values containing functions.
func checkLambda(v udm.Value) error {
	if path := udm.FindLambda(v); path != "" {
		return &udm.LambdaError{Path: path}
	}
	return nil
}
