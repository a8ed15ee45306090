package ybn

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
)

// BoundToNode converts any bound variant into a scene node. Geometry
// variants get a Mesh carrying their triangles; every variant keeps its
// tunables in BoundProps so exports round-trip.
func BoundToNode(b cwxml.Bound, name string) *scene.Node {
	c := b.Common()
	n := scene.NewNode(name)
	n.Transform = c.CompositeTransform.Mat4().Transpose()
	n.Bound = &scene.BoundProps{
		Kind:          b.Type(),
		Radius:        c.SphereRadius,
		Margin:        c.Margin,
		Volume:        c.Volume,
		Inertia:       c.Inertia,
		BoxMin:        c.BoxMin,
		BoxMax:        c.BoxMax,
		Center:        c.SphereCenter,
		MaterialIndex: c.MaterialIndex,
		Flags1:        c.CompositeFlags1,
		Flags2:        c.CompositeFlags2,
	}
	switch v := b.(type) {
	case *cwxml.BoundComposite:
		for i, child := range v.Children {
			if child == nil {
				continue
			}
			n.AddChild(BoundToNode(child, fmt.Sprintf("%s.%03d", name, i)))
		}
	case *cwxml.BoundGeometry:
		fillGeometryNode(n, v)
	case *cwxml.BoundGeometryBVH:
		fillGeometryNode(n, &v.BoundGeometry)
	}
	return n
}

func fillGeometryNode(n *scene.Node, g *cwxml.BoundGeometry) {
	mesh := &scene.Mesh{}
	for _, v := range g.Vertices {
		mesh.Positions = append(mesh.Positions, v.Add(g.GeometryCenter))
	}
	for _, p := range g.Polygons {
		poly := scene.BoundPoly{Kind: p.Kind, Radius: p.Radius, Material: p.Material}
		for _, v := range p.Vertices {
			poly.Verts = append(poly.Verts, int(v))
		}
		n.Bound.Polys = append(n.Bound.Polys, poly)
		if p.Kind == "Triangle" && len(p.Vertices) == 3 {
			mesh.Triangles = append(mesh.Triangles,
				int(p.Vertices[0]), int(p.Vertices[1]), int(p.Vertices[2]))
		}
	}
	for _, m := range g.Materials {
		n.Bound.Materials = append(n.Bound.Materials, scene.BoundMaterial{
			Type:         m.Type,
			ProceduralId: m.ProceduralId,
			RoomId:       m.RoomId,
			PedDensity:   m.PedDensity,
			Flags:        m.Flags,
		})
	}
	n.Mesh = mesh
}

// NodeToBound rebuilds a bound from a scene node. Missing BoundProps is
// a referential failure naming the node.
func NodeToBound(n *scene.Node) (cwxml.Bound, error) {
	if n.Bound == nil {
		return nil, errors.WithStack(&cwxml.ReferentialError{Kind: "bound", Name: n.Name})
	}
	var common *cwxml.BoundCommon
	var out cwxml.Bound
	switch n.Bound.Kind {
	case "Composite":
		comp := &cwxml.BoundComposite{}
		for _, c := range n.Children {
			child, err := NodeToBound(c)
			if err != nil {
				return nil, err
			}
			comp.Children = append(comp.Children, child)
		}
		common, out = &comp.BoundCommon, comp
	case "Geometry":
		geom := &cwxml.BoundGeometry{}
		if err := fillGeometryBound(geom, n); err != nil {
			return nil, err
		}
		common, out = &geom.BoundCommon, geom
	case "GeometryBVH":
		geom := &cwxml.BoundGeometryBVH{}
		if err := fillGeometryBound(&geom.BoundGeometry, n); err != nil {
			return nil, err
		}
		common, out = &geom.BoundCommon, geom
	case "Box":
		b := &cwxml.BoundBox{}
		common, out = &b.BoundCommon, b
	case "Sphere":
		b := &cwxml.BoundSphere{}
		common, out = &b.BoundCommon, b
	case "Capsule":
		b := &cwxml.BoundCapsule{}
		common, out = &b.BoundCommon, b
	case "Cylinder":
		b := &cwxml.BoundCylinder{}
		common, out = &b.BoundCommon, b
	case "Disc":
		b := &cwxml.BoundDisc{}
		common, out = &b.BoundCommon, b
	case "Cloth":
		b := &cwxml.BoundCloth{}
		common, out = &b.BoundCommon, b
	default:
		return nil, errors.WithStack(&cwxml.ReferentialError{Kind: "bound variant", Name: n.Bound.Kind})
	}
	fillCommon(common, n)
	return out, nil
}

func fillCommon(c *cwxml.BoundCommon, n *scene.Node) {
	p := n.Bound
	c.BoxMin = p.BoxMin
	c.BoxMax = p.BoxMax
	c.BoxCenter = p.BoxMin.Add(p.BoxMax).Mul(0.5)
	c.SphereCenter = p.Center
	c.SphereRadius = p.Radius
	c.Margin = p.Margin
	c.Volume = p.Volume
	c.Inertia = p.Inertia
	c.MaterialIndex = p.MaterialIndex
	c.CompositeTransform = cwxml.Matrix4FromMat4(n.Transform.Transpose())
	c.CompositeFlags1 = p.Flags1
	c.CompositeFlags2 = p.Flags2
}

func fillGeometryBound(g *cwxml.BoundGeometry, n *scene.Node) error {
	if n.Mesh == nil {
		return errors.WithStack(&cwxml.ReferentialError{Kind: "bound mesh", Name: n.Name})
	}
	min, max := meshBounds(n.Mesh)
	center := min.Add(max).Mul(0.5)
	g.GeometryCenter = center
	for _, v := range n.Mesh.Positions {
		g.Vertices = append(g.Vertices, v.Sub(center))
	}
	polys := n.Bound.Polys
	if len(polys) == 0 {
		// bare mesh: every face becomes a triangle primitive
		for i := 0; i+2 < len(n.Mesh.Triangles); i += 3 {
			polys = append(polys, scene.BoundPoly{
				Kind:  "Triangle",
				Verts: []int{n.Mesh.Triangles[i], n.Mesh.Triangles[i+1], n.Mesh.Triangles[i+2]},
			})
		}
	}
	neighbors := triangleNeighbors(polys)
	for i, p := range polys {
		poly := cwxml.BoundPolygon{
			Kind:     p.Kind,
			Radius:   p.Radius,
			Material: p.Material,
			Edges:    [3]int64{-1, -1, -1},
		}
		for _, v := range p.Verts {
			poly.Vertices = append(poly.Vertices, int64(v))
		}
		if p.Kind == "Triangle" {
			poly.Edges = neighbors[i]
		}
		g.Polygons = append(g.Polygons, poly)
	}
	for _, m := range n.Bound.Materials {
		g.Materials = append(g.Materials, cwxml.BoundMaterial{
			Type:         m.Type,
			ProceduralId: m.ProceduralId,
			RoomId:       m.RoomId,
			PedDensity:   m.PedDensity,
			Flags:        m.Flags,
		})
	}
	return nil
}

func meshBounds(m *scene.Mesh) (min, max mgl32.Vec3) {
	if len(m.Positions) == 0 {
		return
	}
	min, max = m.Positions[0], m.Positions[0]
	for _, v := range m.Positions[1:] {
		for i := 0; i < 3; i++ {
			if v[i] < min[i] {
				min[i] = v[i]
			}
			if v[i] > max[i] {
				max[i] = v[i]
			}
		}
	}
	return
}

type edgeKey struct{ a, b int }

func makeEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// triangleNeighbors pairs triangles over shared undirected edges. An
// open edge stays -1; when more than two triangles share an edge the
// first two are paired and the rest stay open.
func triangleNeighbors(polys []scene.BoundPoly) [][3]int64 {
	owners := make(map[edgeKey][]int)
	for i, p := range polys {
		if p.Kind != "Triangle" || len(p.Verts) != 3 {
			continue
		}
		for e := 0; e < 3; e++ {
			k := makeEdgeKey(p.Verts[e], p.Verts[(e+1)%3])
			owners[k] = append(owners[k], i)
		}
	}
	out := make([][3]int64, len(polys))
	for i, p := range polys {
		out[i] = [3]int64{-1, -1, -1}
		if p.Kind != "Triangle" || len(p.Verts) != 3 {
			continue
		}
		for e := 0; e < 3; e++ {
			k := makeEdgeKey(p.Verts[e], p.Verts[(e+1)%3])
			for _, other := range owners[k] {
				if other != i {
					out[i][e] = int64(other)
					break
				}
			}
		}
	}
	return out
}
