package cwxml

// BoundsFile is the root of a standalone collision document. It holds a
// single composite bound under the Bounds tag.
type BoundsFile struct {
	Bounds Bound
}

func (f *BoundsFile) Parse(n *Node) error {
	if n.Tag != "BoundsFile" {
		return schemaErrorf(n.Tag, "expected BoundsFile root")
	}
	c := n.Child("Bounds")
	if c == nil {
		return schemaErrorf(n.Tag, "missing Bounds element")
	}
	b, err := ParseBoundNode(c)
	if err != nil {
		return err
	}
	f.Bounds = b
	return nil
}

func (f *BoundsFile) Serialize() *Node {
	n := NewNode("BoundsFile")
	if f.Bounds != nil {
		n.Add(f.Bounds.Serialize("Bounds"))
	}
	return n
}
