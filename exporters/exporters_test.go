package exporters

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/arifsezeraktas/Sollumz/scene"
)

func triangleScene() *scene.Node {
	root := scene.NewNode("tri")
	mat := scene.NewMaterial("body")
	root.Materials = []*scene.Material{mat}
	mn := root.AddChild(scene.NewNode("tri.mesh"))
	mn.Mesh = &scene.Mesh{
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:   []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		UVs:       [][]mgl32.Vec2{{{0, 0}, {1, 0}, {0, 1}}},
		Triangles: []int{0, 1, 2},
		Material:  mat,
	}
	return root
}

func skinnedScene() *scene.Node {
	root := triangleScene()
	root.Armature = &scene.Armature{Bones: []*scene.Bone{
		{Name: "root", Tag: 0, ParentIndex: -1, Scale: mgl32.Vec3{1, 1, 1},
			Rotation: mgl32.QuatIdent(), World: mgl32.Ident4()},
		{Name: "tip", Tag: 10, ParentIndex: 0, Scale: mgl32.Vec3{1, 1, 1},
			Rotation: mgl32.QuatIdent(), World: mgl32.Translate3D(0, 0, 1)},
	}}
	mesh := root.Children[0].Mesh
	mesh.BlendWeights = [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {0.5, 0.5, 0, 0}}
	mesh.BlendIndices = [][4]uint8{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 1, 0, 0}}
	return root
}

func decodeGLB(t *testing.T, data []byte) *gltf.Document {
	t.Helper()
	var doc gltf.Document
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		t.Fatalf("decode glb: %v", err)
	}
	return &doc
}

func TestSaveGLTF(t *testing.T) {
	var buf bytes.Buffer
	if err := SaveGLTF(&buf, triangleScene()); err != nil {
		t.Fatalf("SaveGLTF: %v", err)
	}
	doc := decodeGLB(t, buf.Bytes())

	if len(doc.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(doc.Meshes))
	}
	attrs := doc.Meshes[0].Primitives[0].Attributes
	for _, want := range []string{"POSITION", "NORMAL", "TEXCOORD_0"} {
		if _, ok := attrs[want]; !ok {
			t.Errorf("missing %s attribute: %v", want, attrs)
		}
	}
	if len(doc.Materials) != 1 || doc.Materials[0].Name != "body" {
		t.Errorf("materials = %+v", doc.Materials)
	}
	if doc.Meshes[0].Primitives[0].Material == nil {
		t.Errorf("primitive not bound to a material")
	}
	if len(doc.Scenes[0].Nodes) != 1 {
		t.Errorf("expected a single scene root, got %v", doc.Scenes[0].Nodes)
	}
}

func TestSaveGLTFSkinned(t *testing.T) {
	var buf bytes.Buffer
	if err := SaveGLTF(&buf, skinnedScene()); err != nil {
		t.Fatalf("SaveGLTF: %v", err)
	}
	doc := decodeGLB(t, buf.Bytes())

	if len(doc.Skins) != 1 {
		t.Fatalf("expected 1 skin, got %d", len(doc.Skins))
	}
	skin := doc.Skins[0]
	if len(skin.Joints) != 2 {
		t.Errorf("joints = %v", skin.Joints)
	}
	if skin.InverseBindMatrices == nil {
		t.Fatalf("no inverse bind matrices")
	}
	ibm := doc.Accessors[*skin.InverseBindMatrices]
	if ibm.Type != gltf.AccessorMat4 || ibm.Count != 2 {
		t.Errorf("inverse bind accessor = %+v", ibm)
	}
	attrs := doc.Meshes[0].Primitives[0].Attributes
	if _, ok := attrs["JOINTS_0"]; !ok {
		t.Errorf("missing JOINTS_0: %v", attrs)
	}
	if _, ok := attrs["WEIGHTS_0"]; !ok {
		t.Errorf("missing WEIGHTS_0: %v", attrs)
	}
}

func TestSaveGLTFSkipsBoundsAndLowerLods(t *testing.T) {
	root := triangleScene()
	bn := root.AddChild(scene.NewNode("tri.col"))
	bn.Bound = &scene.BoundProps{Kind: "Box"}
	bn.Mesh = &scene.Mesh{Positions: []mgl32.Vec3{{0, 0, 0}}}
	ln := root.AddChild(scene.NewNode("tri.med"))
	ln.Lod = 1
	ln.Mesh = root.Children[0].Mesh

	var buf bytes.Buffer
	if err := SaveGLTF(&buf, root); err != nil {
		t.Fatalf("SaveGLTF: %v", err)
	}
	doc := decodeGLB(t, buf.Bytes())
	if len(doc.Meshes) != 1 {
		t.Errorf("expected only the high mesh, got %d", len(doc.Meshes))
	}
}

func TestSaveFBX(t *testing.T) {
	var buf bytes.Buffer
	if err := SaveFBX(&buf, triangleScene()); err != nil {
		t.Fatalf("SaveFBX: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("Kaydara FBX Binary")) {
		t.Errorf("missing binary fbx magic, got %q", buf.Bytes()[:20])
	}
	if buf.Len() < 1000 {
		t.Errorf("suspiciously small fbx: %d bytes", buf.Len())
	}
}
