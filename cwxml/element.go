package cwxml

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Node is the generic XML node every schema type parses from and
// serializes to. Attribute order is preserved.
type Node struct {
	Tag      string
	Attrs    []xml.Attr
	Text     string
	Children []*Node
}

func NewNode(tag string) *Node {
	return &Node{Tag: tag}
}

func (n *Node) Add(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

func (n *Node) SetAttr(name, value string) *Node {
	for i := range n.Attrs {
		if n.Attrs[i].Name.Local == name {
			n.Attrs[i].Value = value
			return n
		}
	}
	n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
	return n
}

func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first child with the given tag, or nil.
func (n *Node) Child(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func (n *Node) ChildrenByTag(tag string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// ReadDocument decodes an XML stream into a Node tree rooted at the
// document element.
func ReadDocument(r io.Reader) (*Node, error) {
	d := xml.NewDecoder(r)
	var stack []*Node
	var root *Node
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to decode xml token")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Tag: t.Name.Local}
			for _, a := range t.Attr {
				node.Attrs = append(node.Attrs, xml.Attr{Name: xml.Name{Local: a.Name.Local}, Value: a.Value})
			}
			if len(stack) == 0 {
				root = node
			} else {
				stack[len(stack)-1].Add(node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errors.Errorf("Unbalanced end element </%s>", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) != 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, errors.Errorf("Empty xml document")
	}
	return root, nil
}

// WriteDocument emits the node tree with the XML declaration and
// two-space indentation. Leaf text is emitted verbatim (escaped), so
// table codecs stay byte-exact.
func WriteDocument(w io.Writer, root *Node) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return writeNode(w, root, 0)
}

func writeNode(w io.Writer, n *Node, depth int) error {
	indent := strings.Repeat("  ", depth)
	var sb strings.Builder
	sb.WriteString(indent)
	sb.WriteByte('<')
	sb.WriteString(n.Tag)
	for _, a := range n.Attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.Name.Local)
		sb.WriteString(`="`)
		xml.EscapeText(&sb, []byte(a.Value))
		sb.WriteByte('"')
	}
	if len(n.Children) == 0 && n.Text == "" {
		sb.WriteString(" />\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}
	sb.WriteByte('>')
	if n.Text != "" {
		xml.EscapeText(&sb, []byte(n.Text))
	}
	if len(n.Children) != 0 {
		sb.WriteByte('\n')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
		for _, c := range n.Children {
			if err := writeNode(w, c, depth+1); err != nil {
				return err
			}
		}
		sb.Reset()
		sb.WriteString(indent)
	}
	sb.WriteString("</")
	sb.WriteString(n.Tag)
	sb.WriteString(">\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatFloat renders a float32 the shortest way that round-trips.
func FormatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func parseFloat(s string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	return float32(f), err
}

// Leaf property codecs. Scalars live in a `value` attribute, vectors in
// one attribute per axis, text in char data. Absent optional leaves
// yield the declared default.

func (n *Node) ValueFloat(tag string, def float32) (float32, error) {
	c := n.Child(tag)
	if c == nil {
		return def, nil
	}
	raw, ok := c.Attr("value")
	if !ok {
		return def, formatErrorf(tag, "value", "missing attribute")
	}
	f, err := parseFloat(raw)
	if err != nil {
		return def, formatErrorf(tag, "value", "bad float %q", raw)
	}
	return f, nil
}

func (n *Node) ValueInt(tag string, def int64) (int64, error) {
	c := n.Child(tag)
	if c == nil {
		return def, nil
	}
	raw, ok := c.Attr("value")
	if !ok {
		return def, formatErrorf(tag, "value", "missing attribute")
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return def, formatErrorf(tag, "value", "bad integer %q", raw)
	}
	return v, nil
}

func (n *Node) ValueUint(tag string, def uint32) (uint32, error) {
	c := n.Child(tag)
	if c == nil {
		return def, nil
	}
	raw, ok := c.Attr("value")
	if !ok {
		return def, formatErrorf(tag, "value", "missing attribute")
	}
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return def, formatErrorf(tag, "value", "bad unsigned %q", raw)
	}
	return uint32(v), nil
}

func (n *Node) TextOf(tag string) string {
	c := n.Child(tag)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text)
}

// FlagsOf reads a space-joined token list.
func (n *Node) FlagsOf(tag string) []string {
	c := n.Child(tag)
	if c == nil {
		return nil
	}
	return strings.Fields(c.Text)
}

func (n *Node) vectorAttr(c *Node, name string) (float32, error) {
	raw, ok := c.Attr(name)
	if !ok {
		return 0, formatErrorf(c.Tag, name, "missing attribute")
	}
	f, err := parseFloat(raw)
	if err != nil {
		return 0, formatErrorf(c.Tag, name, "bad float %q", raw)
	}
	return f, nil
}

func (n *Node) Vector3(tag string) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	c := n.Child(tag)
	if c == nil {
		return v, nil
	}
	for i, name := range [3]string{"x", "y", "z"} {
		f, err := n.vectorAttr(c, name)
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

func (n *Node) Vector4(tag string) (mgl32.Vec4, error) {
	var v mgl32.Vec4
	c := n.Child(tag)
	if c == nil {
		return v, nil
	}
	for i, name := range [4]string{"x", "y", "z", "w"} {
		f, err := n.vectorAttr(c, name)
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// Color reads r,g,b,a integer attributes.
func (n *Node) Color(tag string) ([4]int64, error) {
	var v [4]int64
	c := n.Child(tag)
	if c == nil {
		return v, nil
	}
	for i, name := range [4]string{"r", "g", "b", "a"} {
		raw, ok := c.Attr(name)
		if !ok {
			return v, formatErrorf(tag, name, "missing attribute")
		}
		p, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return v, formatErrorf(tag, name, "bad integer %q", raw)
		}
		v[i] = p
	}
	return v, nil
}

func AddValueFloat(parent *Node, tag string, v float32) {
	parent.Add(NewNode(tag)).SetAttr("value", FormatFloat(v))
}

func AddValueInt(parent *Node, tag string, v int64) {
	parent.Add(NewNode(tag)).SetAttr("value", strconv.FormatInt(v, 10))
}

func AddValueUint(parent *Node, tag string, v uint32) {
	parent.Add(NewNode(tag)).SetAttr("value", strconv.FormatUint(uint64(v), 10))
}

func AddText(parent *Node, tag, s string) {
	parent.Add(NewNode(tag)).Text = s
}

func AddFlags(parent *Node, tag string, flags []string) {
	parent.Add(NewNode(tag)).Text = strings.Join(flags, " ")
}

func AddVector3(parent *Node, tag string, v mgl32.Vec3) {
	parent.Add(NewNode(tag)).
		SetAttr("x", FormatFloat(v[0])).
		SetAttr("y", FormatFloat(v[1])).
		SetAttr("z", FormatFloat(v[2]))
}

func AddVector4(parent *Node, tag string, v mgl32.Vec4) {
	parent.Add(NewNode(tag)).
		SetAttr("x", FormatFloat(v[0])).
		SetAttr("y", FormatFloat(v[1])).
		SetAttr("z", FormatFloat(v[2])).
		SetAttr("w", FormatFloat(v[3]))
}

func AddColor(parent *Node, tag string, c [4]int64) {
	parent.Add(NewNode(tag)).
		SetAttr("r", strconv.FormatInt(c[0], 10)).
		SetAttr("g", strconv.FormatInt(c[1], 10)).
		SetAttr("b", strconv.FormatInt(c[2], 10)).
		SetAttr("a", strconv.FormatInt(c[3], 10))
}

func hasFlag(flags []string, name string) bool {
	for _, f := range flags {
		if f == name {
			return true
		}
	}
	return false
}
