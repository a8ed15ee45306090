package cwxml

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/arifsezeraktas/Sollumz/status"
)

// Bound is the closed variant set of collision bounds. The concrete
// variant of a child node is picked by its `type` attribute; whatever
// the variant, a bound owned by a drawable or archetype serializes
// under the tag "Bounds".
type Bound interface {
	Type() string
	Common() *BoundCommon
	Parse(n *Node) error
	Serialize(tag string) *Node
}

var boundConstructors = map[string]func() Bound{
	"Composite":   func() Bound { return &BoundComposite{} },
	"Box":         func() Bound { return &BoundBox{} },
	"Sphere":      func() Bound { return &BoundSphere{} },
	"Capsule":     func() Bound { return &BoundCapsule{} },
	"Cylinder":    func() Bound { return &BoundCylinder{} },
	"Disc":        func() Bound { return &BoundDisc{} },
	"Cloth":       func() Bound { return &BoundCloth{} },
	"Geometry":    func() Bound { return &BoundGeometry{} },
	"GeometryBVH": func() Bound { return &BoundGeometryBVH{} },
}

// ParseBoundNode dispatches on the discriminator. An unknown type is
// dropped with a warning rather than failing the document.
func ParseBoundNode(n *Node) (Bound, error) {
	t, ok := n.Attr("type")
	if !ok {
		return nil, formatErrorf(n.Tag, "type", "missing bound discriminator")
	}
	ctor, ok := boundConstructors[t]
	if !ok {
		status.Warning("dropping bound with unknown type %q", t)
		return nil, nil
	}
	b := ctor()
	if err := b.Parse(n); err != nil {
		return nil, err
	}
	return b, nil
}

// BoundCommon carries the fields shared by every bound variant.
// SphereCenter doubles as the center of gravity of the bound.
type BoundCommon struct {
	BoxMin             mgl32.Vec3
	BoxMax             mgl32.Vec3
	BoxCenter          mgl32.Vec3
	SphereCenter       mgl32.Vec3
	SphereRadius       float32
	Margin             float32
	Volume             float32
	Inertia            mgl32.Vec3
	MaterialIndex      int64
	MaterialColorIndex int64
	ProceduralId       int64
	RoomId             int64
	PedDensity         int64
	UnkFlags           int64
	PolyFlags          int64
	UnkType            int64
	CompositeTransform Matrix4
	CompositeFlags1    []string
	CompositeFlags2    []string
}

func (c *BoundCommon) Common() *BoundCommon { return c }

func (c *BoundCommon) parseCommon(n *Node) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { c.BoxMin, e = n.Vector3("BoxMin"); return })
	read(func() (e error) { c.BoxMax, e = n.Vector3("BoxMax"); return })
	read(func() (e error) { c.BoxCenter, e = n.Vector3("BoxCenter"); return })
	read(func() (e error) { c.SphereCenter, e = n.Vector3("SphereCenter"); return })
	read(func() (e error) { c.SphereRadius, e = n.ValueFloat("SphereRadius", 0); return })
	read(func() (e error) { c.Margin, e = n.ValueFloat("Margin", 0); return })
	read(func() (e error) { c.Volume, e = n.ValueFloat("Volume", 0); return })
	read(func() (e error) { c.Inertia, e = n.Vector3("Inertia"); return })
	read(func() (e error) { c.MaterialIndex, e = n.ValueInt("MaterialIndex", 0); return })
	read(func() (e error) { c.MaterialColorIndex, e = n.ValueInt("MaterialColourIndex", 0); return })
	read(func() (e error) { c.ProceduralId, e = n.ValueInt("ProceduralID", 0); return })
	read(func() (e error) { c.RoomId, e = n.ValueInt("RoomID", 0); return })
	read(func() (e error) { c.PedDensity, e = n.ValueInt("PedDensity", 0); return })
	read(func() (e error) { c.UnkFlags, e = n.ValueInt("UnkFlags", 0); return })
	read(func() (e error) { c.PolyFlags, e = n.ValueInt("PolyFlags", 0); return })
	read(func() (e error) { c.UnkType, e = n.ValueInt("UnkType", 0); return })
	if err != nil {
		return err
	}
	if n.Child("CompositeTransform") != nil {
		if c.CompositeTransform, err = n.Matrix4Of("CompositeTransform"); err != nil {
			return err
		}
	} else {
		c.CompositeTransform = Matrix4Identity()
	}
	c.CompositeFlags1 = n.FlagsOf("CompositeFlags1")
	c.CompositeFlags2 = n.FlagsOf("CompositeFlags2")
	return nil
}

func (c *BoundCommon) serializeCommon(tag, boundType string) *Node {
	n := NewNode(tag).SetAttr("type", boundType)
	AddVector3(n, "BoxMin", c.BoxMin)
	AddVector3(n, "BoxMax", c.BoxMax)
	AddVector3(n, "BoxCenter", c.BoxCenter)
	AddVector3(n, "SphereCenter", c.SphereCenter)
	AddValueFloat(n, "SphereRadius", c.SphereRadius)
	AddValueFloat(n, "Margin", c.Margin)
	AddValueFloat(n, "Volume", c.Volume)
	AddVector3(n, "Inertia", c.Inertia)
	AddValueInt(n, "MaterialIndex", c.MaterialIndex)
	AddValueInt(n, "MaterialColourIndex", c.MaterialColorIndex)
	AddValueInt(n, "ProceduralID", c.ProceduralId)
	AddValueInt(n, "RoomID", c.RoomId)
	AddValueInt(n, "PedDensity", c.PedDensity)
	AddValueInt(n, "UnkFlags", c.UnkFlags)
	AddValueInt(n, "PolyFlags", c.PolyFlags)
	AddValueInt(n, "UnkType", c.UnkType)
	AddMatrix4(n, "CompositeTransform", c.CompositeTransform)
	AddFlags(n, "CompositeFlags1", c.CompositeFlags1)
	AddFlags(n, "CompositeFlags2", c.CompositeFlags2)
	return n
}

// WorldCenter is the bound's center of gravity transformed by its
// composite transform.
func (c *BoundCommon) WorldCenter() mgl32.Vec3 {
	m := c.CompositeTransform.Mat4().Transpose()
	v := m.Mul4x1(c.SphereCenter.Vec4(1))
	return v.Vec3()
}

type BoundBox struct{ BoundCommon }

func (b *BoundBox) Type() string { return "Box" }
func (b *BoundBox) Parse(n *Node) error {
	return b.parseCommon(n)
}
func (b *BoundBox) Serialize(tag string) *Node {
	return b.serializeCommon(tag, b.Type())
}

type BoundSphere struct{ BoundCommon }

func (b *BoundSphere) Type() string { return "Sphere" }
func (b *BoundSphere) Parse(n *Node) error {
	return b.parseCommon(n)
}
func (b *BoundSphere) Serialize(tag string) *Node {
	return b.serializeCommon(tag, b.Type())
}

type BoundCapsule struct{ BoundCommon }

func (b *BoundCapsule) Type() string { return "Capsule" }
func (b *BoundCapsule) Parse(n *Node) error {
	return b.parseCommon(n)
}
func (b *BoundCapsule) Serialize(tag string) *Node {
	return b.serializeCommon(tag, b.Type())
}

type BoundCylinder struct{ BoundCommon }

func (b *BoundCylinder) Type() string { return "Cylinder" }
func (b *BoundCylinder) Parse(n *Node) error {
	return b.parseCommon(n)
}
func (b *BoundCylinder) Serialize(tag string) *Node {
	return b.serializeCommon(tag, b.Type())
}

type BoundDisc struct{ BoundCommon }

func (b *BoundDisc) Type() string { return "Disc" }
func (b *BoundDisc) Parse(n *Node) error {
	return b.parseCommon(n)
}
func (b *BoundDisc) Serialize(tag string) *Node {
	return b.serializeCommon(tag, b.Type())
}

type BoundCloth struct{ BoundCommon }

func (b *BoundCloth) Type() string { return "Cloth" }
func (b *BoundCloth) Parse(n *Node) error {
	return b.parseCommon(n)
}
func (b *BoundCloth) Serialize(tag string) *Node {
	return b.serializeCommon(tag, b.Type())
}

// BoundPolygon is one collision primitive of a geometry bound. The
// variant is the element tag itself, lower-cased in the document.
type BoundPolygon struct {
	Kind     string // Triangle, Sphere, Capsule, Box, Cylinder
	Vertices []int64
	Radius   float32
	Material int64
	// Triangle neighbor edges, -1 when open.
	Edges [3]int64
}

func parseBoundPolygon(n *Node) (BoundPolygon, error) {
	p := BoundPolygon{Kind: n.Tag, Edges: [3]int64{-1, -1, -1}}
	intAttr := func(name string, def int64) (int64, error) {
		raw, ok := n.Attr(name)
		if !ok {
			return def, nil
		}
		v, err := parseFloat(raw)
		if err != nil {
			return def, formatErrorf(n.Tag, name, "bad value %q", raw)
		}
		return int64(v), nil
	}
	m, err := intAttr("m", 0)
	if err != nil {
		return p, err
	}
	p.Material = m
	if raw, ok := n.Attr("radius"); ok {
		if p.Radius, err = parseFloat(raw); err != nil {
			return p, formatErrorf(n.Tag, "radius", "bad float %q", raw)
		}
	}
	vertexAttrs := []string{"v1", "v2", "v3", "v4", "v"}
	for _, name := range vertexAttrs {
		if _, ok := n.Attr(name); !ok {
			continue
		}
		v, err := intAttr(name, 0)
		if err != nil {
			return p, err
		}
		p.Vertices = append(p.Vertices, v)
	}
	for i, name := range [3]string{"f1", "f2", "f3"} {
		if _, ok := n.Attr(name); !ok {
			continue
		}
		v, err := intAttr(name, -1)
		if err != nil {
			return p, err
		}
		p.Edges[i] = v
	}
	return p, nil
}

func (p *BoundPolygon) serialize() *Node {
	n := NewNode(p.Kind)
	AddInlineInt := func(name string, v int64) {
		n.SetAttr(name, FormatFloat(float32(v)))
	}
	AddInlineInt("m", p.Material)
	names := []string{"v1", "v2", "v3", "v4"}
	if len(p.Vertices) == 1 {
		n.SetAttr("v", FormatFloat(float32(p.Vertices[0])))
	} else {
		for i, v := range p.Vertices {
			if i < len(names) {
				AddInlineInt(names[i], v)
			}
		}
	}
	if p.Kind == "Sphere" || p.Kind == "Capsule" || p.Kind == "Cylinder" {
		n.SetAttr("radius", FormatFloat(p.Radius))
	}
	if p.Kind == "Triangle" {
		AddInlineInt("f1", p.Edges[0])
		AddInlineInt("f2", p.Edges[1])
		AddInlineInt("f3", p.Edges[2])
	}
	return n
}

type BoundMaterial struct {
	Type         int64
	ProceduralId int64
	RoomId       int64
	PedDensity   int64
	Flags        []string
}

type BoundGeometry struct {
	BoundCommon
	GeometryCenter mgl32.Vec3
	Vertices       []mgl32.Vec3
	VertexColors   [][4]int64
	Polygons       []BoundPolygon
	Materials      []BoundMaterial
}

func (b *BoundGeometry) Type() string { return "Geometry" }

func (b *BoundGeometry) Parse(n *Node) error {
	if err := b.parseCommon(n); err != nil {
		return err
	}
	return b.parseGeometry(n)
}

func (b *BoundGeometry) parseGeometry(n *Node) error {
	var err error
	if b.GeometryCenter, err = n.Vector3("GeometryCenter"); err != nil {
		return err
	}
	if vn := n.Child("Vertices"); vn != nil {
		for _, line := range strings.Split(strings.TrimSpace(vn.Text), "\n") {
			coords := strings.Split(line, ",")
			if len(coords) != 3 {
				return formatErrorf("Vertices", "", "expected 3 coordinates, got %d", len(coords))
			}
			var v mgl32.Vec3
			for i, c := range coords {
				if v[i], err = parseFloat(c); err != nil {
					return formatErrorf("Vertices", "", "bad float %q", c)
				}
			}
			b.Vertices = append(b.Vertices, v)
		}
	}
	if pn := n.Child("Polygons"); pn != nil {
		for _, c := range pn.Children {
			p, err := parseBoundPolygon(c)
			if err != nil {
				return err
			}
			b.Polygons = append(b.Polygons, p)
		}
	}
	if mn := n.Child("Materials"); mn != nil {
		for _, c := range mn.ChildrenByTag("Item") {
			var m BoundMaterial
			if m.Type, err = c.ValueInt("Type", 0); err != nil {
				return err
			}
			if m.ProceduralId, err = c.ValueInt("ProceduralID", 0); err != nil {
				return err
			}
			if m.RoomId, err = c.ValueInt("RoomID", 0); err != nil {
				return err
			}
			if m.PedDensity, err = c.ValueInt("PedDensity", 0); err != nil {
				return err
			}
			m.Flags = c.FlagsOf("Flags")
			b.Materials = append(b.Materials, m)
		}
	}
	return nil
}

func (b *BoundGeometry) Serialize(tag string) *Node {
	n := b.serializeCommon(tag, b.Type())
	b.serializeGeometry(n)
	return n
}

func (b *BoundGeometry) serializeGeometry(n *Node) {
	AddVector3(n, "GeometryCenter", b.GeometryCenter)
	vn := n.Add(NewNode("Vertices"))
	var sb strings.Builder
	sb.WriteByte('\n')
	for _, v := range b.Vertices {
		sb.WriteString(FormatFloat(v[0]))
		sb.WriteString(", ")
		sb.WriteString(FormatFloat(v[1]))
		sb.WriteString(", ")
		sb.WriteString(FormatFloat(v[2]))
		sb.WriteByte('\n')
	}
	vn.Text = sb.String()
	pn := n.Add(NewNode("Polygons"))
	for i := range b.Polygons {
		pn.Add(b.Polygons[i].serialize())
	}
	mn := n.Add(NewNode("Materials"))
	for _, m := range b.Materials {
		item := mn.Add(NewNode("Item"))
		AddValueInt(item, "Type", m.Type)
		AddValueInt(item, "ProceduralID", m.ProceduralId)
		AddValueInt(item, "RoomID", m.RoomId)
		AddValueInt(item, "PedDensity", m.PedDensity)
		AddFlags(item, "Flags", m.Flags)
	}
}

type BoundGeometryBVH struct {
	BoundGeometry
}

func (b *BoundGeometryBVH) Type() string { return "GeometryBVH" }

func (b *BoundGeometryBVH) Serialize(tag string) *Node {
	n := b.serializeCommon(tag, b.Type())
	b.serializeGeometry(n)
	return n
}

type BoundComposite struct {
	BoundCommon
	Children []Bound
}

func (b *BoundComposite) Type() string { return "Composite" }

func (b *BoundComposite) Parse(n *Node) error {
	if err := b.parseCommon(n); err != nil {
		return err
	}
	if cn := n.Child("Children"); cn != nil {
		for _, item := range cn.ChildrenByTag("Item") {
			child, err := ParseBoundNode(item)
			if err != nil {
				return err
			}
			if child != nil {
				b.Children = append(b.Children, child)
			}
		}
	}
	return nil
}

func (b *BoundComposite) Serialize(tag string) *Node {
	n := b.serializeCommon(tag, b.Type())
	cn := n.Add(NewNode("Children"))
	for _, child := range b.Children {
		if child != nil {
			cn.Add(child.Serialize("Item"))
		}
	}
	return n
}
