package yft

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
	"github.com/arifsezeraktas/Sollumz/status"
)

const shatterMapThickness = 0.01

// shatterProjection builds the crack-texture projection from the three
// UV-corner vertices of the shattermap plane. The plane's texture space
// is spanned per texel, then inverted into object space.
func shatterProjection(mesh *scene.Mesh, world mgl32.Mat4, rows []string) (cwxml.Matrix34, error) {
	if len(mesh.UVs) == 0 || len(rows) == 0 || len(rows[0]) == 0 {
		return cwxml.Matrix34{}, errors.WithStack(&cwxml.SchemaError{
			Tag: "ShatterMap", Msg: "shattermap plane needs uvs and rows"})
	}
	uv := mesh.UVs[0]
	var v1, v2, v3 mgl32.Vec3
	for i, p := range mesh.Positions {
		switch {
		case uv[i][0] == 0 && uv[i][1] == 1:
			v1 = p
		case uv[i][0] == 1 && uv[i][1] == 1:
			v2 = p
		case uv[i][0] == 0 && uv[i][1] == 0:
			v3 = p
		}
	}

	resx := float32(len(rows[0]))
	resy := float32(len(rows))
	edge1 := v2.Sub(v1).Mul(1 / resx)
	edge2 := v3.Sub(v1).Mul(1 / resy)
	edge3 := edge1.Normalize().Cross(edge2.Normalize()).Mul(shatterMapThickness)

	m := mgl32.Mat4FromCols(
		edge1.Vec4(0), edge2.Vec4(0), edge3.Vec4(0), v1.Vec4(1))
	m = world.Mul4(m)
	if m.Det() == 0 {
		return cwxml.Matrix34{}, errors.WithStack(&cwxml.SchemaError{
			Tag: "ShatterMap", Msg: "plane does not span a volume, cannot project"})
	}
	return cwxml.Matrix34FromMat4(m.Inv()), nil
}

// BuildVehicleWindow derives one breakable vehicle window. childIndex is
// the physics child the window belongs to, geometryIndex the render
// geometry drawn with the glass shader.
func BuildVehicleWindow(n *scene.Node, world mgl32.Mat4, childIndex, geometryIndex int64) (*cwxml.Window, error) {
	w := &cwxml.Window{
		ItemId:              childIndex,
		UnkUshort1:          geometryIndex,
		UnkFloat17:          n.Window.DataMin,
		UnkFloat18:          n.Window.DataMax,
		CracksTextureTiling: n.Window.CracksTextureTiling,
		ShatterMap:          n.Window.ShatterMap,
	}
	if len(n.Window.ShatterMap) > 0 {
		if n.Mesh == nil {
			return nil, errors.WithStack(&cwxml.SchemaError{
				Tag: "ShatterMap", Msg: "window has a shattermap but no plane mesh"})
		}
		proj, err := shatterProjection(n.Mesh, world, n.Window.ShatterMap)
		if err != nil {
			return nil, err
		}
		w.ProjectionMatrix = proj
	}
	return w, nil
}

// meshPlanes splits the triangle list into components linked by shared
// vertices, each component one flat pane of the window.
func meshPlanes(triangles []int) [][]int {
	nTris := len(triangles) / 3
	owner := map[int]int{} // vertex -> plane
	planes := [][]int{}
	for t := 0; t < nTris; t++ {
		found := -1
		for e := 0; e < 3; e++ {
			if p, ok := owner[triangles[t*3+e]]; ok {
				found = p
				break
			}
		}
		if found < 0 {
			found = len(planes)
			planes = append(planes, nil)
		}
		planes[found] = append(planes[found], t)
		for e := 0; e < 3; e++ {
			owner[triangles[t*3+e]] = found
		}
	}
	return planes
}

func triangleNormal(m *scene.Mesh, t int) mgl32.Vec3 {
	a := m.Positions[m.Triangles[t*3]]
	b := m.Positions[m.Triangles[t*3+1]]
	c := m.Positions[m.Triangles[t*3+2]]
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() > 0 {
		n = n.Normalize()
	}
	return n
}

func triangleCenter(m *scene.Mesh, t int) mgl32.Vec3 {
	a := m.Positions[m.Triangles[t*3]]
	b := m.Positions[m.Triangles[t*3+1]]
	c := m.Positions[m.Triangles[t*3+2]]
	return a.Add(b).Add(c).Mul(1.0 / 3.0)
}

// glassBoundsOffset measures how far the window plane sits from the
// front and back faces of the collision box around it.
func glassBoundsOffset(boxMin, boxMax mgl32.Vec3, boxWorld mgl32.Mat4, point, pointNormal mgl32.Vec3) (front, back float32) {
	type plane struct{ co, no mgl32.Vec3 }
	corner := func(x, y, z float32) mgl32.Vec3 {
		return boxWorld.Mul4x1(mgl32.Vec3{x, y, z}.Vec4(1)).Vec3()
	}
	mins, maxs := boxMin, boxMax
	planes := []plane{
		{corner(mins[0], mins[1], mins[2]), boxWorld.Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3()},
		{corner(maxs[0], maxs[1], maxs[2]), boxWorld.Mul4x1(mgl32.Vec4{0, 0, 1, 0}).Vec3()},
		{corner(mins[0], mins[1], mins[2]), boxWorld.Mul4x1(mgl32.Vec4{-1, 0, 0, 0}).Vec3()},
		{corner(maxs[0], maxs[1], maxs[2]), boxWorld.Mul4x1(mgl32.Vec4{1, 0, 0, 0}).Vec3()},
		{corner(mins[0], mins[1], mins[2]), boxWorld.Mul4x1(mgl32.Vec4{0, -1, 0, 0}).Vec3()},
		{corner(maxs[0], maxs[1], maxs[2]), boxWorld.Mul4x1(mgl32.Vec4{0, 1, 0, 0}).Vec3()},
	}
	var frontDot, backDot float32
	for _, p := range planes {
		no := p.no
		if no.Len() > 0 {
			no = no.Normalize()
		}
		d := pointNormal.Dot(no)
		dist := point.Sub(p.co).Dot(no)
		if d > frontDot {
			frontDot, front = d, dist
		} else if d < backDot {
			backDot, back = d, dist
		}
	}
	return
}

// BuildGlassWindow derives a breakable fragment window from a two-pane
// mesh plus its box collision. meshWorld/colWorld are the nodes' world
// transforms, shaderIndex the drawable material drawn on the glass.
func BuildGlassWindow(name string, mesh *scene.Mesh, meshWorld mgl32.Mat4,
	col *scene.BoundProps, colWorld mgl32.Mat4, glassType, shaderIndex int64) (*cwxml.GlassWindow, error) {

	g := &cwxml.GlassWindow{
		Flags: glassType&0xFF | (shaderIndex&0xFF)<<8,
		Layout: cwxml.VertexLayout{Type: "GTAV4",
			Channels: []string{"Position", "Normal", "Colour0", "TexCoord0", "TexCoord1"}},
	}

	planes := meshPlanes(mesh.Triangles)
	if len(planes) != 2 {
		status.Warning("[yft] glass window %q needs two separate panes, found %d", name, len(planes))
		if len(planes) < 2 {
			return g, nil
		}
	}
	planeA, planeB := planes[0], planes[1]
	if len(planeA) < 2 || len(planeB) < 2 {
		status.Warning("[yft] glass window %q panes need two triangles each", name)
		return g, nil
	}

	normals := []mgl32.Vec3{
		triangleNormal(mesh, planeA[0]), triangleNormal(mesh, planeA[1]),
		triangleNormal(mesh, planeB[0]), triangleNormal(mesh, planeB[1]),
	}
	for i := 0; i < len(normals); i++ {
		for j := i + 1; j < len(normals); j++ {
			if c := normals[i].Cross(normals[j]); c.Dot(c) > 1e-6 {
				status.Warning("[yft] glass window %q panes are not parallel", name)
				i = len(normals)
				break
			}
		}
	}

	if len(mesh.UVs) == 0 {
		return nil, errors.WithStack(&cwxml.SchemaError{
			Tag: "GlassWindows", Msg: "glass window mesh has no uv channel"})
	}
	uv := mesh.UVs[0]
	uvMin, uvMax := uv[0], uv[0]
	for _, u := range uv[1:] {
		for i := 0; i < 2; i++ {
			if u[i] < uvMin[i] {
				uvMin[i] = u[i]
			}
			if u[i] > uvMax[i] {
				uvMax[i] = u[i]
			}
		}
	}

	centerA := triangleCenter(mesh, planeA[0]).Add(triangleCenter(mesh, planeA[1])).Mul(0.5)
	centerB := triangleCenter(mesh, planeB[0]).Add(triangleCenter(mesh, planeB[1])).Mul(0.5)
	thickness := centerA.Sub(centerB).Len()
	tangent := normals[0].Cross(mgl32.Vec3{0, 0, 1})

	proj, err := glassProjection(mesh, planeA, uv, uvMin, uvMax, meshWorld)
	if err != nil {
		return nil, err
	}

	centerAWorld := meshWorld.Mul4x1(centerA.Vec4(1)).Vec3()
	normalAWorld := meshWorld.Mul4x1(normals[0].Vec4(0)).Vec3()
	front, back := glassBoundsOffset(col.BoxMin, col.BoxMax, colWorld, centerAWorld, normalAWorld)

	g.ProjectionMatrix = proj
	g.UnkFloat13, g.UnkFloat14 = uvMin[0], uvMin[1]
	g.UnkFloat15, g.UnkFloat16 = uvMax[0], uvMax[1]
	g.Thickness = thickness
	g.UnkFloat18 = front
	g.UnkFloat19 = back
	g.Tangent = tangent
	return g, nil
}

// glassProjection picks the three UV-corner vertices of the first pane
// and builds the shatter-space basis from them.
func glassProjection(mesh *scene.Mesh, planeTris []int, uv []mgl32.Vec2,
	uvMin, uvMax mgl32.Vec2, world mgl32.Mat4) (cwxml.Matrix34, error) {

	type cand struct {
		vert int
		uv   mgl32.Vec2
		dist float64
	}
	uvSpan := uvMax.Sub(uvMin)
	for i := 0; i < 2; i++ {
		if uvSpan[i] == 0 {
			uvSpan[i] = 1
		}
	}
	seen := map[int]bool{}
	var cands []cand
	for _, t := range planeTris {
		for e := 0; e < 3; e++ {
			v := mesh.Triangles[t*3+e]
			if seen[v] {
				continue
			}
			seen[v] = true
			n := mgl32.Vec2{(uv[v][0] - uvMin[0]) / uvSpan[0], (uv[v][1] - uvMin[1]) / uvSpan[1]}
			cands = append(cands, cand{v, uv[v], float64(n.Len())})
		}
	}
	if len(cands) < 3 {
		return cwxml.Matrix34{}, errors.WithStack(&cwxml.SchemaError{
			Tag: "GlassWindows", Msg: "glass pane has fewer than three vertices"})
	}
	// selection sort by uv distance to the uv-min corner
	for i := range cands {
		for j := i + 1; j < len(cands); j++ {
			if cands[j].dist < cands[i].dist {
				cands[i], cands[j] = cands[j], cands[i]
			}
		}
	}
	v0 := cands[0]
	pick := func(right bool) int {
		for _, c := range cands[1:] {
			du := math.Abs(float64(c.uv[0] - v0.uv[0]))
			dv := math.Abs(float64(c.uv[1] - v0.uv[1]))
			if right && du > dv {
				return c.vert
			}
			if !right && dv > du {
				return c.vert
			}
		}
		return -1
	}
	r, d := pick(true), pick(false)
	if r < 0 || d < 0 {
		return cwxml.Matrix34{}, errors.WithStack(&cwxml.SchemaError{
			Tag: "GlassWindows", Msg: "glass pane uvs do not form a grid"})
	}

	inv := world.Inv().Transpose()
	p0 := mesh.Positions[v0.vert]
	row := func(v mgl32.Vec4) mgl32.Vec4 {
		return mgl32.Vec4{v[0], v[1], v[2], 0}
	}
	var m cwxml.Matrix34
	m[0] = row(inv.Mul4x1(p0.Vec4(1)))
	m[1] = row(inv.Mul4x1(mesh.Positions[r].Sub(p0).Vec4(0)))
	m[2] = row(inv.Mul4x1(mesh.Positions[d].Sub(p0).Vec4(0)))
	return m, nil
}
