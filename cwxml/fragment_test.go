package cwxml

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFragmentRoundTrip(t *testing.T) {
	frag := &Fragment{
		Name:                 "prop_fnclink_03gate5",
		BoundingSphereRadius: 2.5,
		UnknownB0:            1,
		GravityFactor:        1,
		BuoyancyFactor:       1,
		Physics: &Physics{
			LOD1: &PhysicsLOD{
				Unknown14: 0.001,
				Unknown18: 10,
				Unknown1C: 150,
				Groups: []*PhysicsGroup{
					{Name: "gate", ParentIndex: NoParentGroup, Mass: 120},
					{Name: "hinge", ParentIndex: 0, Mass: 5},
				},
				Children: []*PhysicsChild{
					{GroupIndex: 0, BoneTag: 0, PristineMass: 120,
						InertiaTensor: mgl32.Vec4{1, 2, 3, 40}},
					{GroupIndex: 1, BoneTag: 1234, PristineMass: 5},
				},
				Transforms: []Matrix4{Matrix4Identity()},
			},
		},
		Cloths: []*EnvironmentCloth{{
			Flags: 0,
			Controller: &ClothController{
				Name:  "prop_fnclink_03gate5_cloth",
				Flags: ControllerOwnsMorphAndBridge,
				Bridge: &ClothBridge{
					VertexCountHigh: 3,
					PinRadiusHigh:   []float32{0, 0, 0},
					DisplayMapHigh:  []int{2, 0, 1},
					PinnableList:    []int{0},
				},
				ClothHigh: &VerletCloth{
					SwitchDistanceUp:    500,
					SwitchDistanceDown:  0,
					DynamicPinListSize:  6,
					ClothWeight:         1,
					PinnedVerticesCount: 1,
					VertexPositions: []mgl32.Vec3{
						{0, 0, 2}, {1, 0, 1}, {0, 1, 1},
					},
					Edges: []*VerletClothEdge{
						{Vertex0: 0, Vertex1: 1, LengthSqr: 2, Weight0: 0, CompressionWeight: 0.25},
						{Vertex0: 0, Vertex1: 0, LengthSqr: 1e8},
					},
				},
			},
		}},
	}

	var buf bytes.Buffer
	if err := WriteDocument(&buf, frag.Serialize("Fragment")); err != nil {
		t.Fatal(err)
	}
	root, err := ReadDocument(&buf)
	if err != nil {
		t.Fatal(err)
	}
	var back Fragment
	if err := back.Parse(root); err != nil {
		t.Fatal(err)
	}

	if back.Name != frag.Name {
		t.Errorf("Name=%q", back.Name)
	}
	lod := back.Physics.LOD1
	if lod == nil {
		t.Fatal("LOD1 lost in round trip")
	}
	if len(lod.Groups) != 2 || lod.Groups[0].ParentIndex != NoParentGroup {
		t.Errorf("groups=%v", lod.Groups)
	}
	if len(lod.Children) != 2 || lod.Children[0].InertiaTensor != (mgl32.Vec4{1, 2, 3, 40}) {
		t.Errorf("children lost inertia: %v", lod.Children[0])
	}
	if len(lod.Transforms) != 1 || lod.Transforms[0] != Matrix4Identity() {
		t.Errorf("transforms=%v", lod.Transforms)
	}
	if len(back.Cloths) != 1 {
		t.Fatal("cloth lost in round trip")
	}
	ctrl := back.Cloths[0].Controller
	if ctrl.Flags != ControllerOwnsMorphAndBridge {
		t.Errorf("controller flags=%d", ctrl.Flags)
	}
	verlet := ctrl.ClothHigh
	if verlet == nil {
		t.Fatal("high lod verlet cloth lost")
	}
	if verlet.PinnedVerticesCount != 1 || len(verlet.VertexPositions) != 3 {
		t.Errorf("verlet=%+v", verlet)
	}
	if len(verlet.Edges) != 2 || verlet.Edges[0].CompressionWeight != 0.25 {
		t.Errorf("edges=%v", verlet.Edges)
	}
	if verlet.Edges[1].LengthSqr != 1e8 {
		t.Errorf("dummy edge length=%v", verlet.Edges[1].LengthSqr)
	}
	if len(ctrl.Bridge.DisplayMapHigh) != 3 || ctrl.Bridge.DisplayMapHigh[0] != 2 {
		t.Errorf("display map=%v", ctrl.Bridge.DisplayMapHigh)
	}
}
