package cwxml

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestParseBoundDispatch(t *testing.T) {
	doc := `<BoundsFile>
  <Bounds type="Composite">
    <Children>
      <Item type="Box">
        <SphereCenter x="1" y="2" z="3" />
        <SphereRadius value="0.5" />
      </Item>
      <Item type="GeometryBVH">
        <GeometryCenter x="0" y="0" z="0" />
        <Vertices>
1, 2, 3
4, 5, 6
</Vertices>
        <Polygons>
          <Triangle m="0" v1="0" v2="1" v3="0" f1="-1" f2="-1" f3="-1" />
        </Polygons>
      </Item>
      <Item type="Torus">
        <SphereRadius value="1" />
      </Item>
    </Children>
  </Bounds>
</BoundsFile>`
	root, err := ReadDocument(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	var f BoundsFile
	if err := f.Parse(root); err != nil {
		t.Fatal(err)
	}
	comp, ok := f.Bounds.(*BoundComposite)
	if !ok {
		t.Fatalf("root bound is %T; expected *BoundComposite", f.Bounds)
	}
	// the unknown Torus child is dropped, not fatal
	if len(comp.Children) != 2 {
		t.Fatalf("composite has %d children; expected 2", len(comp.Children))
	}
	if comp.Children[0].Type() != "Box" {
		t.Errorf("first child type=%q", comp.Children[0].Type())
	}
	bvh, ok := comp.Children[1].(*BoundGeometryBVH)
	if !ok {
		t.Fatalf("second child is %T; expected *BoundGeometryBVH", comp.Children[1])
	}
	if len(bvh.Vertices) != 2 || bvh.Vertices[1] != (mgl32.Vec3{4, 5, 6}) {
		t.Errorf("bvh vertices=%v", bvh.Vertices)
	}
	if len(bvh.Polygons) != 1 || bvh.Polygons[0].Kind != "Triangle" {
		t.Fatalf("bvh polygons=%v", bvh.Polygons)
	}
	if bvh.Polygons[0].Edges != [3]int64{-1, -1, -1} {
		t.Errorf("triangle edges=%v", bvh.Polygons[0].Edges)
	}
}

func TestBoundSerializeKeepsDiscriminator(t *testing.T) {
	b := &BoundCapsule{}
	b.SphereRadius = 2
	n := b.Serialize("Bounds")
	if typ, _ := n.Attr("type"); typ != "Capsule" {
		t.Errorf("type attr=%q; expected Capsule", typ)
	}
	if n.Tag != "Bounds" {
		t.Errorf("tag=%q; expected Bounds", n.Tag)
	}
}

func TestWorldCenter(t *testing.T) {
	var c BoundCommon
	c.SphereCenter = mgl32.Vec3{1, 0, 0}
	// row-major storage of a translation by (0, 5, 0); the transform is
	// applied transposed, column-vector style
	c.CompositeTransform = Matrix4FromMat4(
		mgl32.Translate3D(0, 5, 0).Transpose())
	got := c.WorldCenter()
	want := mgl32.Vec3{1, 5, 0}
	for i := 0; i < 3; i++ {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Fatalf("WorldCenter=%v; expected %v", got, want)
		}
	}
}

func TestMissingDiscriminator(t *testing.T) {
	n := NewNode("Bounds")
	if _, err := ParseBoundNode(n); err == nil {
		t.Error("expected error for bound without type attribute")
	}
}
