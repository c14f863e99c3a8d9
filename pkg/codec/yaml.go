package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// YAML tags.
const (
	tagNull      = "!!null"
	tagBool      = "!!bool"
	tagInt       = "!!int"
	tagFloat     = "!!float"
	tagStr       = "!!str"
	tagTimestamp = "!!timestamp"
	tagBinary    = "!!binary"
	tagMerge     = "!!merge"
)

// DecodeYAML parses a single YAML document through yaml.Node so that
// mapping order is kept. An empty document decodes to Null.
func DecodeYAML(data []byte) (udm.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return udm.NullValue, nil
	}
	v, err := fromNode(doc.Content[0])
	if err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return v, nil
}

func fromNode(n *yaml.Node) (udm.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return udm.NullValue, nil
		}
		return fromNode(n.Content[0])
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.SequenceNode:
		items := make([]udm.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return udm.NewArray(items...), nil
	case yaml.MappingNode:
		b := udm.NewObjectBuilder(len(n.Content) / 2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			v, err := fromNode(value)
			if err != nil {
				return nil, err
			}
			if key.ShortTag() == tagMerge {
				if o, ok := v.(*udm.Object); ok {
					b.Merge(o)
				}
				continue
			}
			b.Set(key.Value, v)
		}
		return b.Build(), nil
	case yaml.ScalarNode:
		return fromScalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
}

func fromScalar(n *yaml.Node) (udm.Value, error) {
	switch n.ShortTag() {
	case tagNull:
		return udm.NullValue, nil
	case tagBool:
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return udm.Bool(b), nil
	case tagInt:
		var i int64
		if err := n.Decode(&i); err == nil {
			return udm.Long(i), nil
		}
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid integer %q", n.Line, n.Value)
		}
		return udm.Double(f), nil
	case tagFloat:
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return udm.Double(f), nil
	case tagTimestamp:
		if v, ok := udm.ParseTemporal(n.Value); ok {
			return v, nil
		}
		return udm.String(n.Value), nil
	case tagBinary:
		data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binary: %w", n.Line, err)
		}
		return udm.NewBinary(data), nil
	}
	return udm.String(n.Value), nil
}

// EncodeYAML serializes v as a YAML document.
func EncodeYAML(v udm.Value, opts ...Option) ([]byte, error) {
	if err := checkLambda(v); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	o := buildOptions(opts)
	if o.Indent == 0 {
		o.Indent = 2
	}

	node, err := toNode(v)
	if err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(o.Indent)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func toNode(v udm.Value) (*yaml.Node, error) {
	switch v := v.(type) {
	case nil, udm.Null:
		return scalar(tagNull, "null"), nil
	case udm.Bool:
		return scalar(tagBool, strconv.FormatBool(bool(v))), nil
	case udm.Long:
		return scalar(tagInt, strconv.FormatInt(int64(v), 10)), nil
	case udm.Double:
		return scalar(tagFloat, yamlFloat(float64(v))), nil
	case udm.String:
		return scalar(tagStr, string(v)), nil
	case udm.Binary:
		return scalar(tagBinary, base64.StdEncoding.EncodeToString(v.Bytes())), nil
	case udm.Date, udm.LocalDateTime, udm.DateTime:
		return scalar(tagTimestamp, v.String()), nil
	case udm.Time:
		return scalar(tagStr, v.String()), nil
	case *udm.Array:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, el := range v.Items() {
			c, err := toNode(el)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, c)
		}
		return n, nil
	case *udm.Object:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		var err error
		v.Each(func(k string, el udm.Value) bool {
			var c *yaml.Node
			c, err = toNode(el)
			if err != nil {
				return false
			}
			n.Content = append(n.Content, scalar(tagStr, k), c)
			return true
		})
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, fmt.Errorf("cannot encode %s", udm.TypeName(v))
}

func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	return udm.FormatDouble(f)
}
