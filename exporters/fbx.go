package exporters

import (
	"fmt"
	"io"

	"github.com/mogaika/fbx/builders/bfbx73"

	"github.com/arifsezeraktas/Sollumz/scene"
	"github.com/arifsezeraktas/Sollumz/utils"
	"github.com/arifsezeraktas/Sollumz/utils/fbxbuilder"
)

type fbxExporter struct {
	f         *fbxbuilder.FBXBuilder
	materials map[*scene.Material]int64
}

// SaveFBX writes the scene as a binary FBX 7.4 document. Same scope as
// SaveGLTF: high detail meshes only, no collision bounds.
func SaveFBX(w io.Writer, root *scene.Node) error {
	e := &fbxExporter{
		f:         fbxbuilder.NewFBXBuilder(root.Name),
		materials: make(map[*scene.Material]int64),
	}
	e.exportNode(root, 0)
	return e.f.Write(w)
}

func (e *fbxExporter) exportNode(n *scene.Node, parentId int64) {
	modelId := parentId
	if n.Mesh != nil && n.Bound == nil && n.Lod == 0 {
		modelId = e.exportMesh(n, parentId)
	}
	for _, c := range n.Children {
		e.exportNode(c, modelId)
	}
}

func (e *fbxExporter) materialId(m *scene.Material) int64 {
	if id, ok := e.materials[m]; ok {
		return id
	}
	name := m.Name
	if name == "" {
		name = utils.RandomName()
	}

	id := e.f.GenerateId()
	material := bfbx73.Material(id, fmt.Sprintf("%s\x00\x01Material", name), "").AddNodes(
		bfbx73.Version(102),
		bfbx73.ShadingModel("lambert"),
		bfbx73.MultiLayer(0),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("AmbientColor", "Color", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("DiffuseColor", "Color", "", "A", float64(1), float64(1), float64(1)),
			bfbx73.P("Emissive", "Vector3D", "Vector", "", float64(0), float64(0), float64(0)),
			bfbx73.P("Ambient", "Vector3D", "Vector", "", float64(0), float64(0), float64(0)),
			bfbx73.P("Diffuse", "Vector3D", "Vector", "", float64(1), float64(1), float64(1)),
			bfbx73.P("Opacity", "double", "Number", "", float64(1)),
		),
	)
	e.f.AddObjects(material)
	e.materials[m] = id
	return id
}

func (e *fbxExporter) exportMesh(n *scene.Node, parentId int64) int64 {
	m := n.Mesh
	verticesCount := len(m.Positions)

	vertices := make([]float64, 0, verticesCount*3)
	for _, p := range m.Positions {
		vertices = append(vertices, float64(p[0]), float64(p[1]), float64(p[2]))
	}

	indexes := make([]int32, 0, len(m.Triangles))
	uvindexes := make([]int32, 0, len(m.Triangles))
	for i := 0; i+2 < len(m.Triangles); i += 3 {
		i0, i1, i2 := int32(m.Triangles[i]), int32(m.Triangles[i+1]), int32(m.Triangles[i+2])
		// Last index of a polygon is stored negated minus one.
		indexes = append(indexes, i0, i1, -i2-1)
		uvindexes = append(uvindexes, i0, i1, i2)
	}

	name := n.Name
	if name == "" {
		name = utils.RandomName()
	}

	geometryId := e.f.GenerateId()
	geometryLayer := bfbx73.Layer(0).AddNodes(
		bfbx73.Version(100),
	)
	geometry := bfbx73.Geometry(geometryId, "\x00\x01Geometry", "Mesh").AddNodes(
		bfbx73.Properties70().AddNodes(
			bfbx73.P("Color", "ColorRGB", "Color", "", float64(1), float64(1), float64(1)),
		),
		bfbx73.GeometryVersion(124),
		bfbx73.Vertices(vertices),
		bfbx73.PolygonVertexIndex(indexes),
		geometryLayer,
	)

	if len(m.Normals) == verticesCount {
		normals := make([]float64, 0, verticesCount*3)
		for _, nm := range m.Normals {
			normals = append(normals, float64(nm[0]), float64(nm[1]), float64(nm[2]))
		}
		geometry.AddNode(
			bfbx73.LayerElementNormal(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByVertice"),
				bfbx73.ReferenceInformationType("Direct"),
				bfbx73.Normals(normals),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementNormal"),
				bfbx73.TypedIndex(0),
			),
		)
	}

	if len(m.Colors) == verticesCount {
		rgba := make([]float64, 0, verticesCount*4)
		for _, c := range m.Colors {
			rgba = append(rgba,
				float64(c[0])/255.0, float64(c[1])/255.0,
				float64(c[2])/255.0, float64(c[3])/255.0)
		}
		geometry.AddNode(
			bfbx73.LayerElementColor(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByVertice"),
				bfbx73.ReferenceInformationType("Direct"),
				bfbx73.Colors(rgba),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementColor"),
				bfbx73.TypedIndex(0),
			),
		)
	}

	if len(m.UVs) > 0 && len(m.UVs[0]) == verticesCount {
		uv := make([]float64, 0, verticesCount*2)
		for _, t := range m.UVs[0] {
			uv = append(uv, float64(t[0]), float64(-t[1]))
		}
		geometry.AddNode(
			bfbx73.LayerElementUV(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByPolygonVertex"),
				bfbx73.ReferenceInformationType("IndexToDirect"),
				bfbx73.UV(uv),
				bfbx73.UVIndex(uvindexes),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementUV"),
				bfbx73.TypedIndex(0),
			),
		)
	}

	geometry.AddNode(
		bfbx73.LayerElementMaterial(0).AddNodes(
			bfbx73.Version(101),
			bfbx73.Name(""),
			bfbx73.MappingInformationType("AllSame"),
			bfbx73.ReferenceInformationType("IndexToDirect"),
			bfbx73.Materials([]int32{0}),
		),
	)
	geometryLayer.AddNode(
		bfbx73.LayerElement().AddNodes(
			bfbx73.Type("LayerElementMaterial"),
			bfbx73.TypedIndex(0),
		),
	)

	translation := n.Transform.Col(3)
	modelId := e.f.GenerateId()
	model := bfbx73.Model(modelId, name+"\x00\x01Model", "Mesh").AddNodes(
		bfbx73.Version(232),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("InheritType", "enum", "", "", int32(1)),
			bfbx73.P("DefaultAttributeIndex", "int", "Integer", "", int32(0)),
			bfbx73.P("Lcl Translation", "Lcl Translation", "", "A",
				float64(translation[0]), float64(translation[1]), float64(translation[2])),
			bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A", float64(1), float64(1), float64(1)),
		),
		bfbx73.Shading(true),
		bfbx73.Culling("CullingOff"),
	)

	e.f.AddObjects(model, geometry)
	e.f.AddConnections(
		bfbx73.C("OO", geometryId, modelId),
		bfbx73.C("OO", modelId, parentId),
	)
	if m.Material != nil {
		e.f.AddConnections(bfbx73.C("OO", e.materialId(m.Material), modelId))
	}
	return modelId
}
