package cwxml

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// NavCoverPoint marks a position an actor can take cover at.
type NavCoverPoint struct {
	Type     int64
	Angle    float32
	Position mgl32.Vec3
}

func (p *NavCoverPoint) Parse(n *Node) error {
	var err error
	if p.Type, err = n.ValueInt("Type", 0); err != nil {
		return err
	}
	if p.Angle, err = n.ValueFloat("Angle", 0); err != nil {
		return err
	}
	if p.Position, err = n.Vector3("Position"); err != nil {
		return err
	}
	return nil
}

func (p *NavCoverPoint) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "Type", p.Type)
	AddValueFloat(n, "Angle", p.Angle)
	AddVector3(n, "Position", p.Position)
	return n
}

// NavLink is a portal connecting two polygons, possibly in different
// navmesh cells.
type NavLink struct {
	Type         int64
	Angle        float32
	PolyFrom     int64
	PolyTo       int64
	PositionFrom mgl32.Vec3
	PositionTo   mgl32.Vec3
}

func (l *NavLink) Parse(n *Node) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { l.Type, e = n.ValueInt("Type", 0); return })
	read(func() (e error) { l.Angle, e = n.ValueFloat("Angle", 0); return })
	read(func() (e error) { l.PolyFrom, e = n.ValueInt("PolyFrom", 0); return })
	read(func() (e error) { l.PolyTo, e = n.ValueInt("PolyTo", 0); return })
	read(func() (e error) { l.PositionFrom, e = n.Vector3("PositionFrom"); return })
	read(func() (e error) { l.PositionTo, e = n.Vector3("PositionTo"); return })
	return err
}

func (l *NavLink) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "Type", l.Type)
	AddValueFloat(n, "Angle", l.Angle)
	AddValueInt(n, "PolyFrom", l.PolyFrom)
	AddValueInt(n, "PolyTo", l.PolyTo)
	AddVector3(n, "PositionFrom", l.PositionFrom)
	AddVector3(n, "PositionTo", l.PositionTo)
	return n
}

// NavPolygon owns its vertices. Flags text is six space-separated
// integers: four flag words then the compressed centroid X and Y.
// Edges text is one "cell:poly, cell:poly" pair per vertex edge.
type NavPolygon struct {
	Flags    string
	Vertices []mgl32.Vec3
	Edges    string
}

func (p *NavPolygon) Parse(n *Node) error {
	p.Flags = n.TextOf("Flags")
	p.Edges = n.TextOf("Edges")
	if c := n.Child("Vertices"); c != nil {
		verts, err := parseVectorRows(c)
		if err != nil {
			return err
		}
		p.Vertices = verts
	}
	return nil
}

func (p *NavPolygon) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddText(n, "Flags", p.Flags)
	addVectorRows(n, "Vertices", p.Vertices)
	AddText(n, "Edges", p.Edges)
	return n
}

// Navmesh content flag tokens.
const (
	NavContentPolygons = "Polygons"
	NavContentPortals  = "Portals"
	NavContentVehicle  = "Vehicle"
)

type NavMesh struct {
	ContentFlags string
	AreaID       int64
	BBMin        mgl32.Vec3
	BBMax        mgl32.Vec3
	BBSize       mgl32.Vec3
	Polygons     []*NavPolygon
	Links        []*NavLink
	CoverPoints  []*NavCoverPoint
}

func (m *NavMesh) HasContentFlag(name string) bool {
	for _, tok := range strings.Split(m.ContentFlags, ",") {
		if strings.TrimSpace(tok) == name {
			return true
		}
	}
	return false
}

func (m *NavMesh) Parse(n *Node) error {
	if n.Tag != "NavMesh" {
		return schemaErrorf(n.Tag, "expected NavMesh root")
	}
	var err error
	m.ContentFlags = n.TextOf("ContentFlags")
	if m.AreaID, err = n.ValueInt("AreaID", 0); err != nil {
		return err
	}
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { m.BBMin, e = n.Vector3("BBMin"); return })
	read(func() (e error) { m.BBMax, e = n.Vector3("BBMax"); return })
	read(func() (e error) { m.BBSize, e = n.Vector3("BBSize"); return })
	if err != nil {
		return err
	}
	if c := n.Child("Polygons"); c != nil {
		for _, item := range c.ChildrenByTag("Item") {
			p := &NavPolygon{}
			if err := p.Parse(item); err != nil {
				return err
			}
			m.Polygons = append(m.Polygons, p)
		}
	}
	if c := n.Child("Portals"); c != nil {
		for _, item := range c.ChildrenByTag("Item") {
			l := &NavLink{}
			if err := l.Parse(item); err != nil {
				return err
			}
			m.Links = append(m.Links, l)
		}
	}
	if c := n.Child("Points"); c != nil {
		for _, item := range c.ChildrenByTag("Item") {
			p := &NavCoverPoint{}
			if err := p.Parse(item); err != nil {
				return err
			}
			m.CoverPoints = append(m.CoverPoints, p)
		}
	}
	return nil
}

func (m *NavMesh) Serialize() *Node {
	n := NewNode("NavMesh")
	AddText(n, "ContentFlags", m.ContentFlags)
	AddValueInt(n, "AreaID", m.AreaID)
	AddVector3(n, "BBMin", m.BBMin)
	AddVector3(n, "BBMax", m.BBMax)
	AddVector3(n, "BBSize", m.BBSize)
	pn := n.Add(NewNode("Polygons"))
	for _, p := range m.Polygons {
		pn.Add(p.Serialize("Item"))
	}
	ln := n.Add(NewNode("Portals"))
	for _, l := range m.Links {
		ln.Add(l.Serialize("Item"))
	}
	cn := n.Add(NewNode("Points"))
	for _, p := range m.CoverPoints {
		cn.Add(p.Serialize("Item"))
	}
	return n
}
