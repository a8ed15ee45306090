package yft

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
)

// ClothMaxVertices is the engine hard cap per verlet cloth.
const ClothMaxVertices = 254

const (
	clothCompressionWeight = 0.25
	clothEdgeBucketSize    = 8
	clothDummyEdgeLength   = 1e8
	clothSwitchDistanceUp  = 500
	clothDynamicPinList    = 6
	clothDefaultWeight     = 1
)

// partitionPinned orders cloth vertices pinned-first, keeping relative
// order inside each half, and returns both direction maps.
func partitionPinned(pinned []bool) (meshToCloth, clothToMesh []int) {
	n := len(pinned)
	meshToCloth = make([]int, n)
	clothToMesh = make([]int, 0, n)
	for i := 0; i < n; i++ {
		if pinned[i] {
			meshToCloth[i] = len(clothToMesh)
			clothToMesh = append(clothToMesh, i)
		}
	}
	for i := 0; i < n; i++ {
		if !pinned[i] {
			meshToCloth[i] = len(clothToMesh)
			clothToMesh = append(clothToMesh, i)
		}
	}
	return
}

// buildClothEdges emits one constraint per unique triangle edge in
// cloth index space. Edges between two pinned vertices are dropped;
// weight0 encodes which end is free.
func buildClothEdges(triangles []int, meshToCloth []int, pinnedCount int,
	positions []mgl32.Vec3) []*cwxml.VerletClothEdge {

	seen := make(map[edgeKey]bool)
	var out []*cwxml.VerletClothEdge
	for t := 0; t+2 < len(triangles); t += 3 {
		for e := 0; e < 3; e++ {
			v0 := meshToCloth[triangles[t+e]]
			v1 := meshToCloth[triangles[t+(e+1)%3]]
			k := makeEdgeKey(v0, v1)
			if seen[k] {
				continue
			}
			seen[k] = true
			p0, p1 := v0 < pinnedCount, v1 < pinnedCount
			if p0 && p1 {
				continue
			}
			var w0 float32 = 0.5
			if p0 {
				w0 = 0
			} else if p1 {
				w0 = 1
			}
			d := positions[v1].Sub(positions[v0])
			out = append(out, &cwxml.VerletClothEdge{
				Vertex0:           v0,
				Vertex1:           v1,
				LengthSqr:         d.Dot(d),
				Weight0:           w0,
				CompressionWeight: clothCompressionWeight,
			})
		}
	}
	return out
}

type edgeKey struct{ a, b int }

func makeEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// bucketEdges packs constraints into 8-slot buckets the solver iterates
// in parallel: an edge goes to the first bucket with free capacity that
// holds none of its two vertices, then every bucket is padded to 8 with
// inert dummy edges.
func bucketEdges(edges []*cwxml.VerletClothEdge) []*cwxml.VerletClothEdge {
	type bucket struct {
		edges []*cwxml.VerletClothEdge
		verts map[int]bool
	}
	var buckets []*bucket
	for _, e := range edges {
		placed := false
		for _, b := range buckets {
			if len(b.edges) >= clothEdgeBucketSize {
				continue
			}
			if b.verts[e.Vertex0] || b.verts[e.Vertex1] {
				continue
			}
			b.edges = append(b.edges, e)
			b.verts[e.Vertex0] = true
			b.verts[e.Vertex1] = true
			placed = true
			break
		}
		if !placed {
			b := &bucket{verts: map[int]bool{e.Vertex0: true, e.Vertex1: true}}
			b.edges = append(b.edges, e)
			buckets = append(buckets, b)
		}
	}
	var out []*cwxml.VerletClothEdge
	for _, b := range buckets {
		out = append(out, b.edges...)
		for i := len(b.edges); i < clothEdgeBucketSize; i++ {
			out = append(out, &cwxml.VerletClothEdge{
				Vertex0: 0, Vertex1: 0, LengthSqr: clothDummyEdgeLength})
		}
	}
	return out
}

// displayMap matches every render vertex to a cloth vertex by position.
func displayMap(renderPositions, clothPositions []mgl32.Vec3) ([]int, error) {
	const atol = 1e-3
	out := make([]int, len(renderPositions))
	for ri, rp := range renderPositions {
		found := -1
		for ci, cp := range clothPositions {
			d := rp.Sub(cp)
			if math.Abs(float64(d[0])) <= atol &&
				math.Abs(float64(d[1])) <= atol &&
				math.Abs(float64(d[2])) <= atol {
				found = ci
				break
			}
		}
		if found < 0 {
			return nil, errors.WithStack(&cwxml.ReferentialError{Kind: "cloth vertex", Id: ri})
		}
		out[ri] = found
	}
	return out, nil
}

// BuildEnvironmentCloth derives the full cloth block from an authored
// mesh node. The render drawable is produced by the caller; here the
// simulation side is built.
func BuildEnvironmentCloth(name string, mesh *scene.Mesh, props *scene.ClothProps,
	drawable *cwxml.Drawable) (*cwxml.EnvironmentCloth, error) {

	n := len(mesh.Positions)
	if n > ClothMaxVertices {
		return nil, errors.WithStack(&cwxml.LimitExceeded{
			What: "cloth vertices", Limit: ClothMaxVertices, Got: n})
	}
	pinned := props.Pinned
	if len(pinned) != n {
		pinned = make([]bool, n)
	}
	meshToCloth, clothToMesh := partitionPinned(pinned)
	pinnedCount := 0
	for _, p := range pinned {
		if p {
			pinnedCount++
		}
	}

	positions := make([]mgl32.Vec3, n)
	for ci, mi := range clothToMesh {
		positions[ci] = mesh.Positions[mi]
	}
	var normals []mgl32.Vec3
	if len(mesh.Normals) == n {
		normals = make([]mgl32.Vec3, n)
		for ci, mi := range clothToMesh {
			normals[ci] = mesh.Normals[mi]
		}
	}

	edges := bucketEdges(buildClothEdges(mesh.Triangles, meshToCloth, pinnedCount, positions))

	min, max := positions[0], positions[0]
	for _, v := range positions[1:] {
		for i := 0; i < 3; i++ {
			if v[i] < min[i] {
				min[i] = v[i]
			}
			if v[i] > max[i] {
				max[i] = v[i]
			}
		}
	}

	verlet := &cwxml.VerletCloth{
		BBMin:               min,
		BBMax:               max,
		SwitchDistanceUp:    clothSwitchDistanceUp,
		SwitchDistanceDown:  0,
		DynamicPinListSize:  clothDynamicPinList,
		ClothWeight:         clothDefaultWeight,
		VertexPositions:     positions,
		VertexNormals:       normals,
		PinnedVerticesCount: int64(pinnedCount),
		Edges:               edges,
	}

	dmap, err := displayMap(mesh.Positions, positions)
	if err != nil {
		return nil, err
	}
	bridge := &cwxml.ClothBridge{
		VertexCountHigh:    int64(n),
		PinRadiusHigh:      clothVertexArray(props.PinRadius, clothToMesh, 0),
		VertexWeightsHigh:  clothVertexArray(props.Weights, clothToMesh, clothDefaultWeight),
		InflationScaleHigh: clothVertexArray(props.InflationScale, clothToMesh, 0),
		DisplayMapHigh:     dmap,
		PinnableList:       make([]int, (n+31)/32),
	}

	ctrl := &cwxml.ClothController{
		Name:            name + "_controller",
		Flags:           cwxml.ControllerOwnsMorphAndBridge,
		Bridge:          bridge,
		MorphController: &cwxml.MorphController{MapDataHigh: &cwxml.MorphMapData{PolyCount: int64(mesh.TriangleCount())}},
		ClothHigh:       verlet,
	}
	return &cwxml.EnvironmentCloth{Controller: ctrl, Drawable: drawable}, nil
}

func clothVertexArray(src []float32, clothToMesh []int, def float32) []float32 {
	out := make([]float32, len(clothToMesh))
	for ci, mi := range clothToMesh {
		if mi < len(src) {
			out[ci] = src[mi]
		} else {
			out[ci] = def
		}
	}
	return out
}

// dummyPhysics is the minimal physics block a cloth-only fragment needs
// to stream: one massless-but-nonzero group anchored to the root bone.
func dummyPhysics(name string) *cwxml.Physics {
	bound := &cwxml.BoundComposite{}
	child := &cwxml.BoundBox{}
	child.Volume = 1
	child.Inertia = mgl32.Vec3{1, 1, 1}
	child.CompositeTransform = cwxml.Matrix4Identity()
	bound.Children = append(bound.Children, child)
	bound.CompositeTransform = cwxml.Matrix4Identity()

	lod := &cwxml.PhysicsLOD{
		Groups: []*cwxml.PhysicsGroup{{
			Name:        name,
			ParentIndex: cwxml.NoParentGroup,
			Mass:        1,
		}},
		Children: []*cwxml.PhysicsChild{{
			BoneTag:       0,
			PristineMass:  1,
			InertiaTensor: mgl32.Vec4{},
		}},
		Archetype: &cwxml.Archetype{
			Name:   name,
			Mass:   1,
			Bounds: bound,
		},
	}
	lod.Transforms = append(lod.Transforms, cwxml.Matrix4Identity())
	return &cwxml.Physics{LOD1: lod}
}
