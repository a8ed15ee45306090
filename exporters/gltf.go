// Package exporters bridges the scene graph to interchange formats for
// viewing in external tools. They are one-way: nothing here survives a
// round trip back into game assets.
package exporters

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/arifsezeraktas/Sollumz/scene"
	"github.com/arifsezeraktas/Sollumz/utils"
	"github.com/arifsezeraktas/Sollumz/utils/gltfutils"
)

type gltfExporter struct {
	doc       *gltf.Document
	materials map[*scene.Material]uint32
	skin      *uint32
}

// SaveGLTF writes the scene as a binary glTF (.glb) document. Only the
// high detail tier is exported; collision bounds stay out.
func SaveGLTF(w io.Writer, root *scene.Node) error {
	e := &gltfExporter{
		doc:       gltfutils.NewDocument(),
		materials: make(map[*scene.Material]uint32),
	}
	for _, m := range root.Materials {
		e.addMaterial(m)
	}
	e.addNode(root)
	return gltfutils.ExportBinary(w, e.doc)
}

func (e *gltfExporter) addMaterial(m *scene.Material) uint32 {
	if idx, ok := e.materials[m]; ok {
		return idx
	}
	name := m.Name
	if name == "" {
		name = utils.RandomName()
	}
	idx := uint32(len(e.doc.Materials))
	e.doc.Materials = append(e.doc.Materials, &gltf.Material{
		Name:                 name,
		DoubleSided:          true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{},
	})
	e.materials[m] = idx
	return idx
}

func (e *gltfExporter) addNode(n *scene.Node) uint32 {
	name := n.Name
	if name == "" {
		name = utils.RandomName()
	}
	node := &gltf.Node{Name: name}
	if n.Transform != mgl32.Ident4() {
		node.Matrix = [16]float32(n.Transform)
	}

	nodeIndex := uint32(len(e.doc.Nodes))
	e.doc.Nodes = append(e.doc.Nodes, node)

	if n.Armature != nil {
		joints := e.addArmature(n.Armature)
		for i, b := range n.Armature.Bones {
			if b.ParentIndex < 0 {
				node.Children = append(node.Children, joints[i])
			}
		}
	}

	if n.Mesh != nil && n.Bound == nil && n.Lod == 0 {
		node.Mesh = gltf.Index(e.addMesh(n.Mesh))
		if e.skin != nil && len(n.Mesh.BlendIndices) > 0 {
			node.Skin = e.skin
		}
	}

	for _, c := range n.Children {
		node.Children = append(node.Children, e.addNode(c))
	}
	return nodeIndex
}

// addArmature emits one glTF node per bone, wires the parent chain and
// registers a skin over all of them.
func (e *gltfExporter) addArmature(a *scene.Armature) []uint32 {
	joints := make([]uint32, len(a.Bones))
	for i, b := range a.Bones {
		joints[i] = uint32(len(e.doc.Nodes))
		e.doc.Nodes = append(e.doc.Nodes, &gltf.Node{
			Name:        b.Name,
			Translation: b.Translation,
			Rotation:    [4]float32{b.Rotation.V[0], b.Rotation.V[1], b.Rotation.V[2], b.Rotation.W},
			Scale:       b.Scale,
		})
	}
	for i, b := range a.Bones {
		if b.ParentIndex >= 0 && b.ParentIndex < len(a.Bones) {
			parent := e.doc.Nodes[joints[b.ParentIndex]]
			parent.Children = append(parent.Children, joints[i])
		}
	}

	inverseBind := make([][4][4]float32, len(a.Bones))
	for i, b := range a.Bones {
		inv := b.World.Inv()
		for col := 0; col < 4; col++ {
			inverseBind[i][col] = [4]float32{inv[col*4], inv[col*4+1], inv[col*4+2], inv[col*4+3]}
		}
	}

	skinIndex := uint32(len(e.doc.Skins))
	e.doc.Skins = append(e.doc.Skins, &gltf.Skin{
		Joints:              joints,
		InverseBindMatrices: gltf.Index(gltfutils.WriteMatrices(e.doc, inverseBind)),
	})
	e.skin = &skinIndex
	return joints
}

func (e *gltfExporter) addMesh(m *scene.Mesh) uint32 {
	verticesCount := len(m.Positions)
	attributes := make(map[string]uint32)

	positions := make([][3]float32, verticesCount)
	for i, p := range m.Positions {
		positions[i] = p
	}
	attributes["POSITION"] = modeler.WritePosition(e.doc, positions)

	if len(m.Normals) == verticesCount {
		normals := make([][3]float32, verticesCount)
		for i, n := range m.Normals {
			if n.Len() > 0.5 {
				n = n.Normalize()
			}
			normals[i] = n
		}
		attributes["NORMAL"] = modeler.WriteNormal(e.doc, normals)
	}

	for iLayer, uvs := range m.UVs {
		if len(uvs) != verticesCount {
			continue
		}
		coords := make([][2]float32, verticesCount)
		for i, uv := range uvs {
			coords[i] = uv
		}
		attributes[fmt.Sprintf("TEXCOORD_%d", iLayer)] = modeler.WriteTextureCoord(e.doc, coords)
	}

	if len(m.Colors) == verticesCount {
		attributes["COLOR_0"] = modeler.WriteColor(e.doc, m.Colors)
	}
	if len(m.Colors2) == verticesCount {
		attributes["COLOR_1"] = modeler.WriteColor(e.doc, m.Colors2)
	}

	if len(m.BlendIndices) == verticesCount && len(m.BlendWeights) == verticesCount && e.skin != nil {
		joints := make([][4]uint16, verticesCount)
		for i, bi := range m.BlendIndices {
			for j, weight := range m.BlendWeights[i] {
				if weight > 0 {
					joints[i][j] = uint16(bi[j])
				}
			}
		}
		attributes["JOINTS_0"] = modeler.WriteJoints(e.doc, joints)
		attributes["WEIGHTS_0"] = modeler.WriteWeights(e.doc, m.BlendWeights)
	}

	indices := make([]uint32, len(m.Triangles))
	for i, idx := range m.Triangles {
		indices[i] = uint32(idx)
	}
	indicesAccessor := modeler.WriteIndices(e.doc, indices)

	primitive := &gltf.Primitive{
		Indices:    &indicesAccessor,
		Attributes: attributes,
	}
	if m.Material != nil {
		primitive.Material = gltf.Index(e.addMaterial(m.Material))
	}

	meshIndex := uint32(len(e.doc.Meshes))
	e.doc.Meshes = append(e.doc.Meshes, &gltf.Mesh{
		Name:       fmt.Sprintf("mesh_%d", meshIndex),
		Primitives: []*gltf.Primitive{primitive},
	})
	return meshIndex
}
