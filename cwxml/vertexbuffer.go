package cwxml

import (
	"strconv"
	"strings"
)

// VertexLayout is the ordered list of semantic channels of a vertex
// buffer. Channel tags double as the element names inside <Layout>.
type VertexLayout struct {
	Type     string // GTAV1..GTAV4
	Channels []string
}

// Arity returns the number of values a channel contributes to a row.
func ChannelArity(name string) int {
	switch {
	case strings.HasPrefix(name, "Position"):
		return 3
	case strings.HasPrefix(name, "Normal"):
		return 3
	case strings.HasPrefix(name, "Colour"):
		return 4
	case strings.HasPrefix(name, "TexCoord"):
		return 2
	case name == "BlendWeights" || name == "BlendIndices":
		return 4
	case strings.HasPrefix(name, "Tangent"):
		return 4
	}
	return 0
}

// ChannelSemantic returns the single-letter semantic code of a channel.
func ChannelSemantic(name string) byte {
	return name[0]
}

func integerChannel(name string) bool {
	return strings.HasPrefix(name, "Colour") || name == "BlendWeights" || name == "BlendIndices"
}

func (l *VertexLayout) Parse(n *Node) error {
	if t, ok := n.Attr("type"); ok {
		l.Type = t
	} else {
		l.Type = "GTAV1"
	}
	l.Channels = nil
	for _, c := range n.Children {
		l.Channels = append(l.Channels, c.Tag)
	}
	return nil
}

func (l *VertexLayout) Serialize(tag string) *Node {
	n := NewNode(tag).SetAttr("type", l.Type)
	for _, c := range l.Channels {
		n.Add(NewNode(c))
	}
	return n
}

// VertexData holds one slice of values per row; the grouping into
// channels is implied by the resolved layout. Data cannot be parsed
// without the layout, so the two-phase contract is explicit in the
// signature.
type VertexData struct {
	Rows [][][]float32
}

func (d *VertexData) Parse(n *Node, layout *VertexLayout) error {
	d.Rows = nil
	text := strings.TrimSpace(n.Text)
	if text == "" {
		return nil
	}
	for _, line := range strings.Split(text, "\n") {
		groups := splitGroups(line)
		if len(groups) != len(layout.Channels) {
			return schemaErrorf(n.Tag, "data row has %d value groups, layout has %d channels",
				len(groups), len(layout.Channels))
		}
		row := make([][]float32, len(groups))
		for i, g := range groups {
			words := strings.Fields(g)
			vals := make([]float32, len(words))
			for j, w := range words {
				v, err := parseFloat(w)
				if err != nil {
					return formatErrorf(n.Tag, "", "bad vertex value %q", w)
				}
				vals[j] = v
			}
			row[i] = vals
		}
		d.Rows = append(d.Rows, row)
	}
	return nil
}

func splitGroups(line string) []string {
	var out []string
	for _, g := range strings.Split(strings.TrimSpace(line), "   ") {
		g = strings.TrimSpace(g)
		if g != "" {
			out = append(out, g)
		}
	}
	return out
}

// Serialize reproduces the exact on-disk text: every channel group is
// followed by three spaces, every row by a newline. Integer channels
// keep integer formatting.
func (d *VertexData) Serialize(tag string, layout *VertexLayout) *Node {
	n := NewNode(tag)
	var sb strings.Builder
	sb.WriteByte('\n')
	for _, row := range d.Rows {
		for gi, group := range row {
			for vi, v := range group {
				if vi != 0 {
					sb.WriteByte(' ')
				}
				if gi < len(layout.Channels) && integerChannel(layout.Channels[gi]) {
					sb.WriteString(strconv.FormatInt(int64(v), 10))
				} else {
					sb.WriteString(FormatFloat(v))
				}
			}
			sb.WriteString("   ")
		}
		sb.WriteByte('\n')
	}
	n.Text = sb.String()
	return n
}

// Channel extracts the values of one named channel across all rows.
func (d *VertexData) Channel(layout *VertexLayout, name string) [][]float32 {
	idx := -1
	for i, c := range layout.Channels {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([][]float32, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out
}

// IndexData is the flat triangle index list. Order is triangle winding,
// never to be shuffled. Written 24 values per line.
type IndexData struct {
	Indices []int
}

const indexColumns = 24

func (d *IndexData) Parse(n *Node) error {
	d.Indices = nil
	for _, w := range strings.Fields(n.Text) {
		v, err := strconv.Atoi(w)
		if err != nil {
			return formatErrorf(n.Tag, "", "bad index %q", w)
		}
		d.Indices = append(d.Indices, v)
	}
	return nil
}

func (d *IndexData) Serialize(tag string) *Node {
	n := NewNode(tag)
	var sb strings.Builder
	sb.WriteByte('\n')
	for i, v := range d.Indices {
		sb.WriteString(strconv.Itoa(v))
		if i < len(d.Indices)-1 {
			sb.WriteByte(' ')
		}
		if (i+1)%indexColumns == 0 {
			sb.WriteByte('\n')
		}
	}
	n.Text = sb.String()
	return n
}

type VertexBuffer struct {
	Flags  uint32
	Layout VertexLayout
	Data   VertexData
	Data2  VertexData
}

func (b *VertexBuffer) Parse(n *Node) error {
	flags, err := n.ValueUint("Flags", 0)
	if err != nil {
		return err
	}
	b.Flags = flags

	layoutNode := n.Child("Layout")
	if layoutNode == nil {
		return formatErrorf(n.Tag, "", "missing <Layout>")
	}
	if err := b.Layout.Parse(layoutNode); err != nil {
		return err
	}
	if dn := n.Child("Data"); dn != nil {
		if err := b.Data.Parse(dn, &b.Layout); err != nil {
			return err
		}
	}
	if dn := n.Child("Data2"); dn != nil {
		if err := b.Data2.Parse(dn, &b.Layout); err != nil {
			return err
		}
	}
	return nil
}

func (b *VertexBuffer) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueUint(n, "Flags", b.Flags)
	n.Add(b.Layout.Serialize("Layout"))
	if len(b.Data.Rows) != 0 {
		n.Add(b.Data.Serialize("Data", &b.Layout))
	}
	if len(b.Data2.Rows) != 0 {
		n.Add(b.Data2.Serialize("Data2", &b.Layout))
	}
	return n
}

// ActiveData returns whichever of the two data tables is populated.
func (b *VertexBuffer) ActiveData() *VertexData {
	if len(b.Data.Rows) != 0 {
		return &b.Data
	}
	return &b.Data2
}

type IndexBuffer struct {
	Data IndexData
}

func (b *IndexBuffer) Parse(n *Node) error {
	if dn := n.Child("Data"); dn != nil {
		return b.Data.Parse(dn)
	}
	return nil
}

func (b *IndexBuffer) Serialize(tag string) *Node {
	n := NewNode(tag)
	n.Add(b.Data.Serialize("Data"))
	return n
}
