package ynv

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
)

func quadPoly(flags string, verts ...mgl32.Vec3) *cwxml.NavPolygon {
	return &cwxml.NavPolygon{Flags: flags, Vertices: verts}
}

func TestNavMeshToNodeDeduplicatesVertices(t *testing.T) {
	m := &cwxml.NavMesh{
		Polygons: []*cwxml.NavPolygon{
			quadPoly("1 2 3 4 0 0",
				mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{1, 1, 0}, mgl32.Vec3{0, 1, 0}),
			quadPoly("5 6 7 8 0 0",
				mgl32.Vec3{1, 0, 0}, mgl32.Vec3{2, 0, 0}, mgl32.Vec3{1, 1, 0}),
		},
	}
	root, err := NavMeshToNode(m, "nav")
	if err != nil {
		t.Fatalf("NavMeshToNode: %v", err)
	}
	if root.Mesh == nil {
		t.Fatalf("expected a mesh on the root")
	}
	if got := len(root.Mesh.Positions); got != 5 {
		t.Errorf("expected 5 deduplicated positions, got %d", got)
	}
	if got := len(root.Children); got != 2 {
		t.Fatalf("expected 2 polygon nodes, got %d", got)
	}
	second := root.Children[1].Poly
	if second == nil {
		t.Fatalf("second polygon node has no props")
	}
	if second.Verts[0] != 1 || second.Verts[2] != 2 {
		t.Errorf("shared vertices not reused: %v", second.Verts)
	}
	if second.Flags0 != 5 || second.Flags3 != 8 {
		t.Errorf("flag words not unpacked: %+v", second)
	}
}

func TestNavMeshToNodeSkipsDegeneratePolygons(t *testing.T) {
	m := &cwxml.NavMesh{
		Polygons: []*cwxml.NavPolygon{
			quadPoly("0 0 0 0 0 0",
				mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}),
			// Zero-area stitch polygon, two distinct vertices only.
			quadPoly("0 0 0 0 0 0",
				mgl32.Vec3{5, 0, 0}, mgl32.Vec3{6, 0, 0}, mgl32.Vec3{5, 0, 0}),
		},
	}
	root, err := NavMeshToNode(m, "nav")
	if err != nil {
		t.Fatalf("NavMeshToNode: %v", err)
	}
	if got := len(root.Children); got != 1 {
		t.Fatalf("expected the degenerate polygon to be skipped, got %d nodes", got)
	}
	// Roll-back must leave no orphaned vertices in the pool.
	if got := len(root.Mesh.Positions); got != 3 {
		t.Errorf("expected 3 positions after roll-back, got %d", got)
	}
}

func TestNavMeshToNodeRepeatedVertexEdge(t *testing.T) {
	m := &cwxml.NavMesh{
		Polygons: []*cwxml.NavPolygon{
			quadPoly("0 0 0 0 0 0",
				mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}),
		},
	}
	root, err := NavMeshToNode(m, "nav")
	if err != nil {
		t.Fatalf("NavMeshToNode: %v", err)
	}
	if got := len(root.Children); got != 1 {
		t.Fatalf("expected 1 polygon node, got %d", got)
	}
	if got := root.Children[0].Poly.Verts; len(got) != 3 {
		t.Errorf("expected the repeated vertex to collapse, got %v", got)
	}
}

func TestNavMeshToNodeBadFlags(t *testing.T) {
	m := &cwxml.NavMesh{
		Polygons: []*cwxml.NavPolygon{
			quadPoly("1 2",
				mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}),
		},
	}
	_, err := NavMeshToNode(m, "nav")
	var fe *cwxml.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected a FormatError, got %v", err)
	}
}

func navScene(name string) *scene.Node {
	root := scene.NewNode(name)
	root.Mesh = &scene.Mesh{Positions: []mgl32.Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {2, 0, 0},
	}}
	a := root.AddChild(scene.NewNode(name + ".poly.000"))
	a.Poly = &scene.PolyProps{Verts: []int{0, 1, 2, 3}}
	b := root.AddChild(scene.NewNode(name + ".poly.001"))
	b.Poly = &scene.PolyProps{Flags0: 300, Flags1: 7, Verts: []int{1, 4, 2}}
	return root
}

func TestNodeToNavMeshStandalone(t *testing.T) {
	m, err := NodeToNavMesh(navScene("vehicle_nav"))
	if err != nil {
		t.Fatalf("NodeToNavMesh: %v", err)
	}
	if m.AreaID != standaloneAreaID {
		t.Errorf("AreaID = %d, want %d", m.AreaID, standaloneAreaID)
	}
	if !m.HasContentFlag(cwxml.NavContentVehicle) || !m.HasContentFlag(cwxml.NavContentPolygons) {
		t.Errorf("content flags = %q", m.ContentFlags)
	}
	if m.HasContentFlag(cwxml.NavContentPortals) {
		t.Errorf("portals flag set without links: %q", m.ContentFlags)
	}
	if m.BBMin != (mgl32.Vec3{0, 0, 0}) || m.BBMax != (mgl32.Vec3{2, 1, 0}) {
		t.Errorf("bounds = %v %v", m.BBMin, m.BBMax)
	}
}

func TestNodeToNavMeshMapCell(t *testing.T) {
	root := navScene("navmesh[009][012]")
	m, err := NodeToNavMesh(root)
	if err != nil {
		t.Fatalf("NodeToNavMesh: %v", err)
	}
	// Sectors 9,12 live in grid cell 3,4.
	if m.AreaID != 3+4*gridSize {
		t.Errorf("AreaID = %d, want %d", m.AreaID, 3+4*gridSize)
	}
	wantMin := mgl32.Vec3{-6000 + 3*gridCellSize, -6000 + 4*gridCellSize, 0}
	if m.BBMin != wantMin {
		t.Errorf("BBMin = %v, want %v", m.BBMin, wantMin)
	}
	if got := m.BBMax.Sub(m.BBMin); got != (mgl32.Vec3{gridCellSize, gridCellSize, 0}) {
		t.Errorf("cell size = %v", got)
	}
	if m.HasContentFlag(cwxml.NavContentVehicle) {
		t.Errorf("map navmesh marked as vehicle: %q", m.ContentFlags)
	}
}

func TestNodeToNavMeshFlagsAndCentroid(t *testing.T) {
	m, err := NodeToNavMesh(navScene("vehicle_nav"))
	if err != nil {
		t.Fatalf("NodeToNavMesh: %v", err)
	}
	if len(m.Polygons) != 2 {
		t.Fatalf("expected 2 polygons, got %d", len(m.Polygons))
	}
	// Unit square snapped to the 0.25 grid: centroid 0.5,0.5 lands in
	// the middle of the compressed byte range.
	if got := m.Polygons[0].Flags; got != "0 0 0 0 128 128" {
		t.Errorf("Flags = %q", got)
	}
	// Flag words clamp to a byte.
	if fields := strings.Fields(m.Polygons[1].Flags); fields[0] != "255" || fields[1] != "7" {
		t.Errorf("Flags = %q", m.Polygons[1].Flags)
	}
}

func TestNodeToNavMeshEdgeAdjacency(t *testing.T) {
	m, err := NodeToNavMesh(navScene("vehicle_nav"))
	if err != nil {
		t.Fatalf("NodeToNavMesh: %v", err)
	}
	lines := strings.Split(m.Polygons[0].Edges, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected one edge line per vertex, got %d", len(lines))
	}
	// Edge 1-2 is shared with the second polygon, the rest are borders.
	if lines[1] != "10000:1, 10000:1" {
		t.Errorf("shared edge = %q", lines[1])
	}
	if lines[0] != "-1:-1, -1:-1" {
		t.Errorf("border edge = %q", lines[0])
	}
}

func TestNavMeshRoundTripLinksAndCoverPoints(t *testing.T) {
	src := &cwxml.NavMesh{
		ContentFlags: "Polygons, Portals",
		Links: []*cwxml.NavLink{{
			Type: 2, Angle: 1.5, PolyFrom: 3, PolyTo: 9,
			PositionFrom: mgl32.Vec3{1, 2, 3}, PositionTo: mgl32.Vec3{4, 5, 6},
		}},
		CoverPoints: []*cwxml.NavCoverPoint{{Type: 5, Angle: 0.5, Position: mgl32.Vec3{7, 8, 9}}},
	}
	root, err := NavMeshToNode(src, "nav")
	if err != nil {
		t.Fatalf("NavMeshToNode: %v", err)
	}
	out, err := NodeToNavMesh(root)
	if err != nil {
		t.Fatalf("NodeToNavMesh: %v", err)
	}
	if len(out.Links) != 1 || *out.Links[0] != *src.Links[0] {
		t.Errorf("links did not survive: %+v", out.Links)
	}
	if len(out.CoverPoints) != 1 || *out.CoverPoints[0] != *src.CoverPoints[0] {
		t.Errorf("cover points did not survive: %+v", out.CoverPoints)
	}
	if !out.HasContentFlag(cwxml.NavContentPortals) {
		t.Errorf("content flags = %q", out.ContentFlags)
	}
}

func TestNodeToNavMeshBadVertexIndex(t *testing.T) {
	root := scene.NewNode("nav")
	root.Mesh = &scene.Mesh{Positions: []mgl32.Vec3{{0, 0, 0}}}
	pn := root.AddChild(scene.NewNode("nav.poly.000"))
	pn.Poly = &scene.PolyProps{Verts: []int{0, 1, 2}}
	_, err := NodeToNavMesh(root)
	var re *cwxml.ReferentialError
	if !errors.As(err, &re) {
		t.Fatalf("expected a ReferentialError, got %v", err)
	}
}
