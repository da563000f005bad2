package codec

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
)

// RegexTag is the YAML tag of pattern values.
const RegexTag = "!regex"

var errNotMapping = errors.New("header is not a mapping")

// marshalAttributes renders attributes as a YAML mapping with sorted keys. The
// output never contains a blank line, so it can always be followed by the
// header separator.
func marshalAttributes(attrs map[string]domain.Value) ([]byte, error) {
	node, err := mappingNode(attrs)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unmarshalAttributes parses a YAML mapping. An empty input is an empty map.
func unmarshalAttributes(data []byte) (map[string]domain.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return map[string]domain.Value{}, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return map[string]domain.Value{}, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, errNotMapping
	}
	v, err := fromNode(root)
	if err != nil {
		return nil, err
	}
	return v.Fields(), nil
}

func mappingNode(fields map[string]domain.Value) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		val, err := toNode(fields[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		node.Content = append(node.Content, strNode(k), val)
	}
	return node, nil
}

func strNode(s string) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	if strings.ContainsAny(s, "\n\r") {
		node.Style = yaml.DoubleQuotedStyle
	}
	return node
}

func toNode(v domain.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case domain.KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case domain.KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.Bool())}, nil
	case domain.KindNumber:
		return numberNode(v.Num()), nil
	case domain.KindString:
		return strNode(v.Str()), nil
	case domain.KindPattern:
		node := strNode(v.Regexp().String())
		node.Tag = RegexTag
		return node, nil
	case domain.KindArray:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Items() {
			child, err := toNode(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case domain.KindMap:
		return mappingNode(v.Fields())
	default:
		return nil, fmt.Errorf("unsupported value kind %s", v.Kind())
	}
}

func numberNode(n float64) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float"}
	switch {
	case math.IsNaN(n):
		node.Value = ".nan"
	case math.IsInf(n, 1):
		node.Value = ".inf"
	case math.IsInf(n, -1):
		node.Value = "-.inf"
	case n == math.Trunc(n) && math.Abs(n) < 1e15:
		node.Tag = "!!int"
		node.Value = strconv.FormatFloat(n, 'f', -1, 64)
	default:
		node.Value = strconv.FormatFloat(n, 'g', -1, 64)
	}
	return node
}

func fromNode(node *yaml.Node) (domain.Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return domain.Null(), nil
		}
		return fromNode(node.Content[0])
	case yaml.AliasNode:
		return fromNode(node.Alias)
	case yaml.SequenceNode:
		items := make([]domain.Value, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := fromNode(child)
			if err != nil {
				return domain.Value{}, err
			}
			items = append(items, item)
		}
		return domain.Array(items...), nil
	case yaml.MappingNode:
		fields := make(map[string]domain.Value, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			item, err := fromNode(node.Content[i+1])
			if err != nil {
				return domain.Value{}, err
			}
			fields[node.Content[i].Value] = item
		}
		return domain.Map(fields), nil
	default:
		return fromScalar(node)
	}
}

func fromScalar(node *yaml.Node) (domain.Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return domain.Null(), nil
	case "!!bool":
		var b bool
		err := node.Decode(&b)
		return domain.Bool(b), err
	case "!!int", "!!float":
		var f float64
		err := node.Decode(&f)
		return domain.Number(f), err
	case "!!binary":
		var s string
		err := node.Decode(&s)
		return domain.String(s), err
	case RegexTag:
		re, err := regexp.Compile(node.Value)
		if err != nil {
			return domain.Value{}, err
		}
		return domain.Pattern(re), nil
	default:
		return domain.String(node.Value), nil
	}
}
