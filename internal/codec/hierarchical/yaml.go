package hierarchical

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
)

// FormatYAML is the format name of the YAML codec.
const FormatYAML = "yaml"

const (
	tagNull = "!!null"
	tagStr  = "!!str"
	tagInt  = "!!int"
	tagBool = "!!bool"
)

// YAML reads and writes the YAML rendering. Records are mappings from field
// names to values, lists are sequences of single-key mappings naming each
// element, and null values are written as an explicit null.
type YAML struct {
	base
}

// NewYAML creates a YAML codec for the registry's types.
func NewYAML(reg *schema.Registry, opts ...Option) *YAML {
	return &YAML{base{reg: reg, options: buildOptions(opts)}}
}

// Format returns "yaml".
func (c *YAML) Format() string { return FormatYAML }

// Encode writes ds as a YAML document.
func (c *YAML) Encode(ds *ir.Dataset, w io.Writer) error {
	root, err := buildTree(c.reg, ds, c.docName)
	if err != nil {
		return err
	}
	doc := &yaml.Node{
		Kind:    yaml.DocumentNode,
		Content: []*yaml.Node{mapping(root.Name, toYAML(root))},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("write yaml: %w", err)
	}
	c.logger.Debug("yaml document written", "records", ds.RecordCount(), "links", ds.LinkCount())
	return nil
}

// toYAML renders the value side of a node.
func toYAML(n *Node) *yaml.Node {
	switch {
	case n.Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagNull, Value: "null"}
	case n.Kind == KindText:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: scalarTag(n.Value), Value: n.Text}
	case n.Kind == KindList:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, child := range n.Children {
			seq.Content = append(seq.Content, mapping(child.Name, toYAML(child)))
		}
		return seq
	default:
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, child := range n.Children {
			m.Content = append(m.Content, scalar(child.Name), toYAML(child))
		}
		return m
	}
}

func scalarTag(v ir.Value) string {
	switch v.(type) {
	case ir.Int:
		return tagInt
	case ir.Bool:
		return tagBool
	default:
		return tagStr
	}
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagStr, Value: s}
}

func mapping(key string, value *yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{scalar(key), value}}
}

// Decode reads a YAML document.
func (c *YAML) Decode(r io.Reader) (*ir.Dataset, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ir.NewFormatError("empty document")
		}
		e := ir.NewFormatError("malformed yaml")
		e.Err = err
		return nil, e
	}
	if len(doc.Content) != 1 {
		return nil, ir.NewFormatError("empty document")
	}
	top := doc.Content[0]
	if top.Kind != yaml.MappingNode || len(top.Content) != 2 {
		return nil, ir.NewFormatError("document must be a mapping with a single root key").WithDetail("line", fmt.Sprint(top.Line))
	}
	root, err := fromYAML(top.Content[0], top.Content[1])
	if err != nil {
		return nil, err
	}

	ds, err := c.parser().dataset(root)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("yaml document decoded", "records", ds.RecordCount(), "links", ds.LinkCount())
	return ds, nil
}

// fromYAML converts a key and its value into a tree node.
func fromYAML(key, value *yaml.Node) (*Node, error) {
	if key.Kind != yaml.ScalarNode {
		return nil, yamlError(key, "element names must be scalars")
	}
	n := &Node{Name: key.Value, Line: key.Line}

	switch value.Kind {
	case yaml.ScalarNode:
		n.Kind = KindText
		n.Null = value.ShortTag() == tagNull
		if !n.Null {
			n.Text = value.Value
		}
	case yaml.MappingNode:
		n.Kind = KindRecord
		for i := 0; i+1 < len(value.Content); i += 2 {
			child, err := fromYAML(value.Content[i], value.Content[i+1])
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	case yaml.SequenceNode:
		n.Kind = KindList
		for _, item := range value.Content {
			if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
				return nil, yamlError(item, "list items of %s must be single-key mappings", n.Name)
			}
			child, err := fromYAML(item.Content[0], item.Content[1])
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	case yaml.AliasNode:
		return nil, yamlError(value, "aliases are not supported")
	default:
		return nil, yamlError(value, "unexpected node")
	}
	return n, nil
}

func yamlError(n *yaml.Node, format string, args ...any) error {
	return ir.NewFormatError(format, args...).WithDetail("line", fmt.Sprint(n.Line))
}
