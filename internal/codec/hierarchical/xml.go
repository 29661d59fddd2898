package hierarchical

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
)

// FormatXML is the format name of the XML codec.
const FormatXML = "xml"

// XML reads and writes the XML rendering.
type XML struct {
	base
}

// NewXML creates an XML codec for the registry's types.
func NewXML(reg *schema.Registry, opts ...Option) *XML {
	return &XML{base{reg: reg, options: buildOptions(opts)}}
}

// Format returns "xml".
func (c *XML) Format() string { return FormatXML }

// Encode writes ds as an indented XML document. Null fields are omitted.
func (c *XML) Encode(ds *ir.Dataset, w io.Writer) error {
	root, err := buildTree(c.reg, ds, c.docName)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write xml: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := writeElement(enc, root); err != nil {
		return fmt.Errorf("write xml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("write xml: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write xml: %w", err)
	}
	c.logger.Debug("xml document written", "records", ds.RecordCount(), "links", ds.LinkCount())
	return nil
}

func writeElement(enc *xml.Encoder, n *Node) error {
	if n.Null {
		return nil
	}
	start := xml.StartElement{Name: xml.Name{Local: n.Name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.Kind == KindText {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, child := range n.Children {
		if err := writeElement(enc, child); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// Decode reads an XML document. Comments, processing instructions and
// directives are ignored, as is whitespace between elements. Attributes
// are not part of the format and are ignored.
func (c *XML) Decode(r io.Reader) (*ir.Dataset, error) {
	root, err := readXML(r)
	if err != nil {
		return nil, err
	}
	ds, err := c.parser().dataset(root)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("xml document decoded", "records", ds.RecordCount(), "links", ds.LinkCount())
	return ds, nil
}

// readXML parses a document into a tree of elements.
func readXML(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	var root *Node
	var stack []*Node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e := ir.NewFormatError("malformed xml")
			e.Err = err
			return nil, e
		}
		line, _ := dec.InputPos()

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, Line: line}
			if len(stack) == 0 {
				if root != nil {
					return nil, ir.NewFormatError("second root element %q", n.Name).WithDetail("line", fmt.Sprint(line))
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					return nil, ir.NewFormatError("text outside the root element").WithDetail("line", fmt.Sprint(line))
				}
				continue
			}
			top := stack[len(stack)-1]
			top.Text += string(t)
		}
	}
	if root == nil {
		return nil, ir.NewFormatError("empty document")
	}
	return root, nil
}
