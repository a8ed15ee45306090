package ydr

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
)

func TestBaseName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"props/chair.ydr.xml", "chair"},
		{"chair.ydr.xml", "chair"},
		{"chair", "chair"},
		{"/data/v_med_cor_chair01.yft.xml", "v_med_cor_chair01"},
	}
	for _, c := range cases {
		if got := BaseName(c.in); got != c.want {
			t.Errorf("BaseName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func testMesh() *scene.Mesh {
	return &scene.Mesh{
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 2, 0}},
		Normals:   []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Colors:    [][4]uint8{{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}},
		UVs: [][]mgl32.Vec2{
			{{0, 0}, {1, 0}, {0, 1}},
		},
		Triangles: []int{0, 1, 2},
	}
}

func TestMeshGeometryRoundTrip(t *testing.T) {
	src := testMesh()
	g := GeometryFromMesh(src, 3, "GTAV1")

	if g.ShaderIndex != 3 {
		t.Errorf("ShaderIndex = %d, want 3", g.ShaderIndex)
	}
	want := []string{"Position", "Normal", "Colour0", "TexCoord0"}
	if len(g.VertexBuffer.Layout.Channels) != len(want) {
		t.Fatalf("channels = %v, want %v", g.VertexBuffer.Layout.Channels, want)
	}
	for i, name := range want {
		if g.VertexBuffer.Layout.Channels[i] != name {
			t.Errorf("channel %d = %q, want %q", i, g.VertexBuffer.Layout.Channels[i], name)
		}
	}
	if g.BoundingBoxMax != (mgl32.Vec3{1, 2, 0}) {
		t.Errorf("BoundingBoxMax = %v", g.BoundingBoxMax)
	}

	out, err := MeshFromGeometry(g)
	if err != nil {
		t.Fatalf("MeshFromGeometry: %v", err)
	}
	if len(out.Positions) != 3 || out.Positions[2] != src.Positions[2] {
		t.Errorf("positions %v, want %v", out.Positions, src.Positions)
	}
	if len(out.Normals) != 3 || out.Normals[0] != src.Normals[0] {
		t.Errorf("normals %v, want %v", out.Normals, src.Normals)
	}
	if len(out.Colors) != 3 || out.Colors[1] != src.Colors[1] {
		t.Errorf("colors %v, want %v", out.Colors, src.Colors)
	}
	if len(out.UVs) != 1 || out.UVs[0][1] != src.UVs[0][1] {
		t.Errorf("uvs %v, want %v", out.UVs, src.UVs)
	}
	if len(out.Triangles) != 3 {
		t.Errorf("triangles %v", out.Triangles)
	}
}

func TestMeshGeometrySkinnedRoundTrip(t *testing.T) {
	src := testMesh()
	src.BlendWeights = [][4]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}}
	src.BlendIndices = [][4]uint8{{0, 0, 0, 0}, {1, 0, 0, 0}, {2, 0, 0, 0}}
	g := GeometryFromMesh(src, 0, "GTAV1")

	if g.VertexBuffer.Layout.Channels[1] != "BlendWeights" {
		t.Fatalf("channels = %v", g.VertexBuffer.Layout.Channels)
	}
	out, err := MeshFromGeometry(g)
	if err != nil {
		t.Fatalf("MeshFromGeometry: %v", err)
	}
	if out.BlendWeights[1] != src.BlendWeights[1] {
		t.Errorf("weights %v, want %v", out.BlendWeights[1], src.BlendWeights[1])
	}
	if out.BlendIndices[2] != src.BlendIndices[2] {
		t.Errorf("indices %v, want %v", out.BlendIndices[2], src.BlendIndices[2])
	}
}

func TestMeshFromGeometryArityMismatch(t *testing.T) {
	g := &cwxml.Geometry{}
	g.VertexBuffer.Layout.Channels = []string{"Position"}
	g.VertexBuffer.Data.Rows = [][][]float32{{{1, 2}}}
	if _, err := MeshFromGeometry(g); err == nil {
		t.Errorf("expected arity error")
	}
}

func TestShaderGroupMaterialsRoundTrip(t *testing.T) {
	sg := &cwxml.ShaderGroup{
		Shaders: []*cwxml.Shader{
			{
				Name:         "vehicle_paint1",
				FileName:     "vehicle_paint1.sps",
				RenderBucket: 0,
				Parameters: []cwxml.ShaderParameter{
					&cwxml.TextureShaderParameter{Name: "DiffuseSampler", TextureName: "car_diff"},
					&cwxml.VectorShaderParameter{Name: "matDiffuseColor", Value: mgl32.Vec4{1, 0, 0, 1}},
				},
			},
			{Name: "default", FileName: "default.sps", RenderBucket: 1},
		},
	}

	mats := MaterialsFromShaderGroup(sg)
	if len(mats) != 2 {
		t.Fatalf("got %d materials", len(mats))
	}
	if mats[0].Name != "vehicle_paint1.000" {
		t.Errorf("Name = %q", mats[0].Name)
	}
	if mats[0].Textures["DiffuseSampler"] != "car_diff" {
		t.Errorf("texture missing: %v", mats[0].Textures)
	}
	if mats[0].Vectors["matDiffuseColor"] != (mgl32.Vec4{1, 0, 0, 1}) {
		t.Errorf("vector missing: %v", mats[0].Vectors)
	}

	back := ShaderGroupFromMaterials(mats)
	if len(back.Shaders) != 2 {
		t.Fatalf("got %d shaders back", len(back.Shaders))
	}
	if back.Shaders[0].Name != "vehicle_paint1" || back.Shaders[1].RenderBucket != 1 {
		t.Errorf("shader fields lost: %+v %+v", back.Shaders[0], back.Shaders[1])
	}
	if len(back.Shaders[0].Parameters) != 2 {
		t.Fatalf("got %d parameters back", len(back.Shaders[0].Parameters))
	}
	// textures serialize before vectors
	if back.Shaders[0].Parameters[0].ParamType() != "Texture" {
		t.Errorf("parameter order: %v", back.Shaders[0].Parameters[0].ParamType())
	}
}

func testSkeleton() *cwxml.Skeleton {
	sk := cwxml.NewSkeleton()
	sk.Bones = []*cwxml.Bone{
		{
			Name: "chassis", Tag: 0, Index: 0, ParentIndex: -1,
			Rotation: mgl32.Vec4{0, 0, 0, 1}, Scale: mgl32.Vec3{1, 1, 1},
		},
		{
			Name: "door_dside_f", Tag: 257, Index: 1, ParentIndex: 0,
			Translation: mgl32.Vec3{1, 0, 0.5},
			Rotation:    mgl32.Vec4{0, 0, 0, 1}, Scale: mgl32.Vec3{1, 1, 1},
			Flags: []string{"RotX", "RotY", "RotZ", "LimitRotation"},
		},
	}
	return sk
}

func TestArmatureFromSkeletonWorldChain(t *testing.T) {
	sk := testSkeleton()
	sk.Bones[0].Translation = mgl32.Vec3{0, 0, 1}

	arm := ArmatureFromSkeleton(sk)
	if arm == nil || len(arm.Bones) != 2 {
		t.Fatalf("armature = %+v", arm)
	}
	world := arm.Bones[1].World.Col(3).Vec3()
	want := mgl32.Vec3{1, 0, 1.5}
	if !world.ApproxEqual(want) {
		t.Errorf("child world translation = %v, want %v", world, want)
	}
	if arm.Bones[1].ParentIndex != 0 {
		t.Errorf("ParentIndex = %d", arm.Bones[1].ParentIndex)
	}
}

func TestArmatureFromSkeletonDefaultsScale(t *testing.T) {
	sk := testSkeleton()
	sk.Bones[1].Scale = mgl32.Vec3{}
	arm := ArmatureFromSkeleton(sk)
	if arm.Bones[1].Scale != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("Scale = %v", arm.Bones[1].Scale)
	}
}

func TestJointsFromArmature(t *testing.T) {
	arm := ArmatureFromSkeleton(testSkeleton())
	j := JointsFromArmature(arm)
	if j == nil || len(j.RotationLimits) != 1 {
		t.Fatalf("joints = %+v", j)
	}
	if j.RotationLimits[0].BoneId != 257 {
		t.Errorf("BoneId = %d", j.RotationLimits[0].BoneId)
	}
	if len(j.TranslationLimits) != 0 {
		t.Errorf("unexpected translation limits")
	}

	arm.Bones[1].Flags = nil
	if JointsFromArmature(arm) != nil {
		t.Errorf("expected nil joints without limit flags")
	}
}

func TestDrawableNodeRoundTrip(t *testing.T) {
	d := &cwxml.Drawable{Name: "prop_chair_01"}
	d.ShaderGroup = &cwxml.ShaderGroup{
		Shaders: []*cwxml.Shader{{Name: "default", FileName: "default.sps"}},
	}
	model := &cwxml.DrawableModel{RenderMask: 255}
	model.Geometries = append(model.Geometries, GeometryFromMesh(testMesh(), 0, "GTAV1"))
	d.Models[0] = append(d.Models[0], model)
	d.Lights = append(d.Lights, &cwxml.Light{
		Position:  mgl32.Vec3{0, 0, 2},
		LightType: "Point",
		Color:     [4]int64{255, 200, 100, 255},
		Intensity: 5,
	})

	root, err := DrawableToNode(d, "ignored")
	if err != nil {
		t.Fatalf("DrawableToNode: %v", err)
	}
	if root.Name != "prop_chair_01" {
		t.Errorf("Name = %q", root.Name)
	}
	var meshes, lights int
	root.Walk(func(n *scene.Node) {
		if n.Mesh != nil {
			meshes++
			if n.Mesh.Material != root.Materials[0] {
				t.Errorf("mesh not bound to shader 0 material")
			}
		}
		if n.Light != nil {
			lights++
			if got := n.Transform.Col(3).Vec3(); got != (mgl32.Vec3{0, 0, 2}) {
				t.Errorf("light position = %v", got)
			}
		}
	})
	if meshes != 1 || lights != 1 {
		t.Fatalf("meshes = %d, lights = %d", meshes, lights)
	}

	back, err := NodeToDrawable(root, "ignored")
	if err != nil {
		t.Fatalf("NodeToDrawable: %v", err)
	}
	if back.Name != "prop_chair_01" {
		t.Errorf("Name = %q", back.Name)
	}
	if len(back.Models[0]) != 1 {
		t.Fatalf("high models = %d", len(back.Models[0]))
	}
	if back.LodDistHigh != DefaultLodDist || back.FlagsHigh != 1 {
		t.Errorf("lod fields = %v %v", back.LodDistHigh, back.FlagsHigh)
	}
	if back.BoundingBoxMax != (mgl32.Vec3{1, 2, 0}) {
		t.Errorf("BoundingBoxMax = %v", back.BoundingBoxMax)
	}
	if back.BoundingSphereRadius == 0 {
		t.Errorf("sphere radius not derived")
	}
	if len(back.Lights) != 1 || back.Lights[0].LightType != "Point" {
		t.Fatalf("lights = %+v", back.Lights)
	}
	if back.Lights[0].Position != (mgl32.Vec3{0, 0, 2}) {
		t.Errorf("light position = %v", back.Lights[0].Position)
	}
}

func TestNodeToDrawableSkinnedModel(t *testing.T) {
	root := scene.NewNode("skin_test")
	mesh := testMesh()
	mesh.BlendWeights = [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}}
	mesh.BlendIndices = [][4]uint8{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}
	root.AddChild(scene.NewNode("skin_test.0.0")).Mesh = mesh

	d, err := NodeToDrawable(root, "skin_test")
	if err != nil {
		t.Fatalf("NodeToDrawable: %v", err)
	}
	if d.Models[0][0].HasSkin != 1 {
		t.Errorf("HasSkin = %d, want 1", d.Models[0][0].HasSkin)
	}
}

func TestNodeToDrawableLodTiers(t *testing.T) {
	root := scene.NewNode("lod_test")
	hi := root.AddChild(scene.NewNode("lod_test.hi"))
	hi.Mesh = testMesh()
	low := root.AddChild(scene.NewNode("lod_test.low"))
	low.Mesh = testMesh()
	low.Lod = 2

	d, err := NodeToDrawable(root, "lod_test")
	if err != nil {
		t.Fatalf("NodeToDrawable: %v", err)
	}
	if len(d.Models[0]) != 1 || len(d.Models[2]) != 1 {
		t.Fatalf("models per tier: %d %d %d %d",
			len(d.Models[0]), len(d.Models[1]), len(d.Models[2]), len(d.Models[3]))
	}
	if d.LodDistLow != DefaultLodDist || d.FlagsLow != 1 {
		t.Errorf("low tier fields = %v %v", d.LodDistLow, d.FlagsLow)
	}
	if d.LodDistMed != 0 || d.FlagsMed != 0 {
		t.Errorf("empty tier should stay zero")
	}
}
