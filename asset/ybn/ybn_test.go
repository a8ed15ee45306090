package ybn

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/arifsezeraktas/Sollumz/config"
	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
)

func quadBoundNode(name string) *scene.Node {
	n := scene.NewNode(name)
	n.Bound = &scene.BoundProps{
		Kind:          "Geometry",
		Margin:        0.04,
		MaterialIndex: 0,
		Materials: []scene.BoundMaterial{
			{Type: 4, ProceduralId: 0, RoomId: 0, PedDensity: 0, Flags: []string{"NONE"}},
		},
	}
	n.Mesh = &scene.Mesh{
		Positions: []mgl32.Vec3{{0, 0, 0}, {2, 0, 0}, {2, 2, 0}, {0, 2, 0}},
		Triangles: []int{0, 1, 2, 0, 2, 3},
	}
	return n
}

func TestGeometryBoundRoundTrip(t *testing.T) {
	src := quadBoundNode("col_test")
	b, err := NodeToBound(src)
	if err != nil {
		t.Fatalf("NodeToBound: %v", err)
	}
	if b.Type() != "Geometry" {
		t.Fatalf("Type = %q", b.Type())
	}
	geom := b.(*cwxml.BoundGeometry)
	if geom.GeometryCenter != (mgl32.Vec3{1, 1, 0}) {
		t.Errorf("GeometryCenter = %v", geom.GeometryCenter)
	}
	// vertices are stored center-relative
	if geom.Vertices[0] != (mgl32.Vec3{-1, -1, 0}) {
		t.Errorf("Vertices[0] = %v", geom.Vertices[0])
	}
	if len(geom.Polygons) != 2 {
		t.Fatalf("polygons = %d", len(geom.Polygons))
	}

	out := BoundToNode(b, "col_test")
	if out.Bound == nil || out.Bound.Kind != "Geometry" {
		t.Fatalf("Bound = %+v", out.Bound)
	}
	for i, p := range src.Mesh.Positions {
		if !out.Mesh.Positions[i].ApproxEqual(p) {
			t.Errorf("position %d = %v, want %v", i, out.Mesh.Positions[i], p)
		}
	}
	if len(out.Bound.Polys) != 2 || out.Bound.Polys[0].Kind != "Triangle" {
		t.Fatalf("polys = %+v", out.Bound.Polys)
	}
	if len(out.Bound.Materials) != 1 || out.Bound.Materials[0].Type != 4 {
		t.Errorf("materials = %+v", out.Bound.Materials)
	}
}

func TestTriangleNeighborEdges(t *testing.T) {
	b, err := NodeToBound(quadBoundNode("col_test"))
	if err != nil {
		t.Fatalf("NodeToBound: %v", err)
	}
	geom := b.(*cwxml.BoundGeometry)
	// the two triangles share the 0-2 diagonal
	if geom.Polygons[0].Edges != [3]int64{-1, -1, 1} {
		t.Errorf("Edges[0] = %v", geom.Polygons[0].Edges)
	}
	if geom.Polygons[1].Edges != [3]int64{0, -1, -1} {
		t.Errorf("Edges[1] = %v", geom.Polygons[1].Edges)
	}
}

func TestCompositeBoundRoundTrip(t *testing.T) {
	root := scene.NewNode("col_comp")
	root.Bound = &scene.BoundProps{Kind: "Composite"}
	box := root.AddChild(scene.NewNode("col_comp.000"))
	box.Bound = &scene.BoundProps{
		Kind:   "Box",
		BoxMin: mgl32.Vec3{-1, -1, -1},
		BoxMax: mgl32.Vec3{1, 1, 1},
		Radius: 1.75,
	}
	box.Transform = mgl32.Translate3D(0, 0, 3)

	b, err := NodeToBound(root)
	if err != nil {
		t.Fatalf("NodeToBound: %v", err)
	}
	comp, ok := b.(*cwxml.BoundComposite)
	if !ok || len(comp.Children) != 1 {
		t.Fatalf("composite = %+v", b)
	}
	if comp.Children[0].Type() != "Box" {
		t.Errorf("child type = %q", comp.Children[0].Type())
	}

	out := BoundToNode(b, "col_comp")
	if len(out.Children) != 1 {
		t.Fatalf("children = %d", len(out.Children))
	}
	child := out.Children[0]
	if child.Bound.BoxMax != (mgl32.Vec3{1, 1, 1}) || child.Bound.Radius != 1.75 {
		t.Errorf("child props = %+v", child.Bound)
	}
	if got := child.Transform.Col(3).Vec3(); !got.ApproxEqual(mgl32.Vec3{0, 0, 3}) {
		t.Errorf("child translation = %v", got)
	}
}

func TestNodeToBoundErrors(t *testing.T) {
	var refErr *cwxml.ReferentialError
	if _, err := NodeToBound(scene.NewNode("naked")); !errors.As(err, &refErr) {
		t.Errorf("expected ReferentialError, got %v", err)
	}

	n := scene.NewNode("weird")
	n.Bound = &scene.BoundProps{Kind: "Dodecahedron"}
	if _, err := NodeToBound(n); !errors.As(err, &refErr) {
		t.Errorf("expected ReferentialError, got %v", err)
	}
}

func TestHandlerFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "col_test.ybn.xml")
	s := config.Default()

	root := scene.NewNode("col_comp")
	root.Bound = &scene.BoundProps{Kind: "Composite"}
	root.AddChild(quadBoundNode("col_comp.000"))

	var h handler
	if err := h.Save(root, path, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := h.Load(path, s)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Name != "col_test" {
		t.Errorf("Name = %q", out.Name)
	}
	if out.Bound == nil || out.Bound.Kind != "Composite" {
		t.Fatalf("Bound = %+v", out.Bound)
	}
	if len(out.Children) != 1 || out.Children[0].Bound.Kind != "Geometry" {
		t.Fatalf("children = %+v", out.Children)
	}
	if got := len(out.Children[0].Mesh.Positions); got != 4 {
		t.Errorf("positions = %d, want 4", got)
	}
}
