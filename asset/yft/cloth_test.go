package yft

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
)

func TestPartitionPinned(t *testing.T) {
	meshToCloth, clothToMesh := partitionPinned([]bool{false, true, false, true})
	wantC2M := []int{1, 3, 0, 2}
	for i, want := range wantC2M {
		if clothToMesh[i] != want {
			t.Errorf("clothToMesh[%d] = %d, want %d", i, clothToMesh[i], want)
		}
	}
	for mi, ci := range meshToCloth {
		if clothToMesh[ci] != mi {
			t.Errorf("meshToCloth[%d] = %d does not round trip", mi, ci)
		}
	}
}

func TestBuildClothEdgesWeightRule(t *testing.T) {
	positions := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 2, 0}}
	triangles := []int{0, 1, 2}
	meshToCloth := []int{0, 1, 2}

	edges := buildClothEdges(triangles, meshToCloth, 1, positions)
	if len(edges) != 3 {
		t.Fatalf("edges = %d, want 3", len(edges))
	}
	byPair := map[edgeKey]*cwxml.VerletClothEdge{}
	for _, e := range edges {
		byPair[makeEdgeKey(e.Vertex0, e.Vertex1)] = e
		if e.CompressionWeight != 0.25 {
			t.Errorf("edge %d-%d compression weight = %v, want 0.25", e.Vertex0, e.Vertex1, e.CompressionWeight)
		}
	}
	if e := byPair[makeEdgeKey(0, 1)]; e.Vertex0 != 0 || e.Weight0 != 0 {
		t.Errorf("pinned first end: weight0 = %v, want 0", e.Weight0)
	}
	if e := byPair[makeEdgeKey(1, 2)]; e.Weight0 != 0.5 {
		t.Errorf("free edge: weight0 = %v, want 0.5", e.Weight0)
	}
	if e := byPair[makeEdgeKey(2, 0)]; e.Vertex1 != 0 || e.Weight0 != 1 {
		t.Errorf("pinned second end: weight0 = %v, want 1", e.Weight0)
	}
	if e := byPair[makeEdgeKey(1, 2)]; e.LengthSqr != 5 {
		t.Errorf("rest length sq = %v, want 5", e.LengthSqr)
	}
}

func TestBuildClothEdgesSkipsBothPinned(t *testing.T) {
	positions := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	edges := buildClothEdges([]int{0, 1, 2}, []int{0, 1, 2}, 2, positions)
	for _, e := range edges {
		if e.Vertex0 == 0 && e.Vertex1 == 1 || e.Vertex0 == 1 && e.Vertex1 == 0 {
			t.Error("edge between two pinned vertices was not dropped")
		}
	}
	if len(edges) != 2 {
		t.Errorf("edges = %d, want 2", len(edges))
	}
}

func TestBucketEdgesPadsWithDummies(t *testing.T) {
	// every edge shares vertex 0, so each one opens its own bucket
	var edges []*cwxml.VerletClothEdge
	for i := 1; i <= 3; i++ {
		edges = append(edges, &cwxml.VerletClothEdge{Vertex0: 0, Vertex1: i, LengthSqr: 1})
	}
	out := bucketEdges(edges)
	if len(out) != 3*clothEdgeBucketSize {
		t.Fatalf("bucketed edges = %d, want %d", len(out), 3*clothEdgeBucketSize)
	}
	for b := 0; b < 3; b++ {
		if out[b*clothEdgeBucketSize].LengthSqr != 1 {
			t.Errorf("bucket %d does not start with a real edge", b)
		}
		for s := 1; s < clothEdgeBucketSize; s++ {
			d := out[b*clothEdgeBucketSize+s]
			if d.Vertex0 != 0 || d.Vertex1 != 0 || d.LengthSqr != clothDummyEdgeLength {
				t.Errorf("bucket %d slot %d is not a dummy edge: %+v", b, s, d)
			}
		}
	}
}

func TestBucketEdgesSharesBucketsWhenDisjoint(t *testing.T) {
	edges := []*cwxml.VerletClothEdge{
		{Vertex0: 0, Vertex1: 1, LengthSqr: 1},
		{Vertex0: 2, Vertex1: 3, LengthSqr: 1},
	}
	out := bucketEdges(edges)
	if len(out) != clothEdgeBucketSize {
		t.Errorf("disjoint edges should share one bucket, got %d entries", len(out))
	}
}

func TestDisplayMap(t *testing.T) {
	render := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}
	cloth := []mgl32.Vec3{{1, 0.0005, 0}, {0, 0, 0}}
	dm, err := displayMap(render, cloth)
	if err != nil {
		t.Fatalf("displayMap: %v", err)
	}
	if dm[0] != 1 || dm[1] != 0 {
		t.Errorf("display map = %v, want [1 0]", dm)
	}

	if _, err := displayMap([]mgl32.Vec3{{5, 5, 5}}, cloth); err == nil {
		t.Error("expected an error for an unmatched render vertex")
	} else {
		var re *cwxml.ReferentialError
		if !errors.As(err, &re) {
			t.Errorf("error = %T, want *cwxml.ReferentialError", errors.Cause(err))
		}
	}
}

func clothQuad() *scene.Mesh {
	return &scene.Mesh{
		Positions: []mgl32.Vec3{{0, 0, 1}, {1, 0, 1}, {0, 0, 0}, {1, 0, 0}},
		Triangles: []int{0, 1, 2, 1, 3, 2},
	}
}

func TestBuildEnvironmentCloth(t *testing.T) {
	mesh := clothQuad()
	props := &scene.ClothProps{
		Pinned:  []bool{true, true, false, false},
		Weights: []float32{1, 1, 2, 2},
	}
	env, err := BuildEnvironmentCloth("curtain", mesh, props, &cwxml.Drawable{})
	if err != nil {
		t.Fatalf("BuildEnvironmentCloth: %v", err)
	}
	ctrl := env.Controller
	if ctrl.Flags != cwxml.ControllerOwnsMorphAndBridge {
		t.Errorf("controller flags = %d, want %d", ctrl.Flags, cwxml.ControllerOwnsMorphAndBridge)
	}
	if ctrl.MorphController.MapDataHigh.PolyCount != 2 {
		t.Errorf("poly count = %d, want 2", ctrl.MorphController.MapDataHigh.PolyCount)
	}

	verlet := ctrl.ClothHigh
	if verlet.PinnedVerticesCount != 2 {
		t.Errorf("pinned count = %d, want 2", verlet.PinnedVerticesCount)
	}
	if verlet.SwitchDistanceUp != 500 || verlet.DynamicPinListSize != 6 || verlet.ClothWeight != 1 {
		t.Errorf("verlet defaults: up=%v pins=%d weight=%v",
			verlet.SwitchDistanceUp, verlet.DynamicPinListSize, verlet.ClothWeight)
	}
	if len(verlet.Edges)%clothEdgeBucketSize != 0 {
		t.Errorf("edges = %d, want a multiple of %d", len(verlet.Edges), clothEdgeBucketSize)
	}

	br := ctrl.Bridge
	if br.VertexCountHigh != 4 {
		t.Errorf("vertex count = %d, want 4", br.VertexCountHigh)
	}
	if len(br.PinnableList) != 1 {
		t.Errorf("pinnable list words = %d, want 1", len(br.PinnableList))
	}
	// bridge arrays live in cloth vertex order, pinned first
	if br.VertexWeightsHigh[0] != 1 || br.VertexWeightsHigh[2] != 2 {
		t.Errorf("vertex weights = %v, want pinned-first order", br.VertexWeightsHigh)
	}
	for mi, ci := range br.DisplayMapHigh {
		if verlet.VertexPositions[ci] != mesh.Positions[mi] {
			t.Errorf("display map entry %d points at the wrong cloth vertex", mi)
		}
	}
}

func TestBuildEnvironmentClothVertexCap(t *testing.T) {
	mesh := &scene.Mesh{Positions: make([]mgl32.Vec3, ClothMaxVertices+1)}
	_, err := BuildEnvironmentCloth("big", mesh, &scene.ClothProps{}, nil)
	if err == nil {
		t.Fatal("expected a vertex cap error")
	}
	var limit *cwxml.LimitExceeded
	if !errors.As(err, &limit) {
		t.Fatalf("error = %T, want *cwxml.LimitExceeded", errors.Cause(err))
	}
	if limit.Limit != ClothMaxVertices {
		t.Errorf("limit = %d, want %d", limit.Limit, ClothMaxVertices)
	}
}

func TestDummyPhysicsForClothOnlyFragment(t *testing.T) {
	p := dummyPhysics("curtain")
	lod := p.LOD1
	if lod == nil || len(lod.Groups) != 1 || len(lod.Children) != 1 {
		t.Fatal("dummy physics must carry one group and one child")
	}
	if lod.Groups[0].Mass != 1 || lod.Children[0].PristineMass != 1 {
		t.Error("dummy physics masses must be 1")
	}
	if lod.Children[0].BoneTag != 0 {
		t.Errorf("dummy child bone tag = %d, want 0", lod.Children[0].BoneTag)
	}
	b := lod.Archetype.Bounds.Children[0]
	if b.Common().Volume != 1 || b.Common().Inertia != (mgl32.Vec3{1, 1, 1}) {
		t.Error("dummy bound must have volume 1 and unit inertia")
	}
}
