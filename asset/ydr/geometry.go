package ydr

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
)

func channelVec3(vals []float32, tag string) (mgl32.Vec3, error) {
	if len(vals) != 3 {
		return mgl32.Vec3{}, errors.Errorf("channel %s has %d values, expected 3", tag, len(vals))
	}
	return mgl32.Vec3{vals[0], vals[1], vals[2]}, nil
}

// MeshFromGeometry decodes one geometry's vertex table into a mesh.
// Channel arity is validated here, not at parse time.
func MeshFromGeometry(g *cwxml.Geometry) (*scene.Mesh, error) {
	mesh := &scene.Mesh{}
	layout := &g.VertexBuffer.Layout
	data := g.VertexBuffer.ActiveData()

	uvChannels := 0
	for _, name := range layout.Channels {
		if strings.HasPrefix(name, "TexCoord") {
			uvChannels++
		}
	}
	mesh.UVs = make([][]mgl32.Vec2, uvChannels)

	for _, row := range data.Rows {
		uvSlot := 0
		for ci, name := range layout.Channels {
			vals := row[ci]
			if want := cwxml.ChannelArity(name); want != 0 && len(vals) != want {
				return nil, errors.WithStack(&cwxml.SchemaError{
					Tag: name,
					Msg: "vertex channel arity mismatch",
				})
			}
			switch {
			case name == "Position":
				v, err := channelVec3(vals, name)
				if err != nil {
					return nil, err
				}
				mesh.Positions = append(mesh.Positions, v)
			case name == "Normal":
				v, err := channelVec3(vals, name)
				if err != nil {
					return nil, err
				}
				mesh.Normals = append(mesh.Normals, v)
			case name == "Colour0":
				mesh.Colors = append(mesh.Colors, [4]uint8{
					uint8(vals[0]), uint8(vals[1]), uint8(vals[2]), uint8(vals[3])})
			case name == "Colour1":
				mesh.Colors2 = append(mesh.Colors2, [4]uint8{
					uint8(vals[0]), uint8(vals[1]), uint8(vals[2]), uint8(vals[3])})
			case strings.HasPrefix(name, "TexCoord"):
				mesh.UVs[uvSlot] = append(mesh.UVs[uvSlot], mgl32.Vec2{vals[0], vals[1]})
				uvSlot++
			case name == "BlendWeights":
				mesh.BlendWeights = append(mesh.BlendWeights, [4]float32{
					vals[0] / 255, vals[1] / 255, vals[2] / 255, vals[3] / 255})
			case name == "BlendIndices":
				mesh.BlendIndices = append(mesh.BlendIndices, [4]uint8{
					uint8(vals[0]), uint8(vals[1]), uint8(vals[2]), uint8(vals[3])})
			case strings.HasPrefix(name, "Tangent"):
				mesh.Tangents = append(mesh.Tangents, mgl32.Vec4{vals[0], vals[1], vals[2], vals[3]})
			}
		}
	}
	mesh.Triangles = append(mesh.Triangles, g.IndexBuffer.Data.Indices...)
	return mesh, nil
}

// layoutForMesh lists the channels the mesh can feed, in the fixed
// channel order of the format.
func layoutForMesh(m *scene.Mesh, layoutType string) *cwxml.VertexLayout {
	l := &cwxml.VertexLayout{Type: layoutType}
	l.Channels = append(l.Channels, "Position")
	if len(m.BlendWeights) != 0 {
		l.Channels = append(l.Channels, "BlendWeights")
	}
	if len(m.BlendIndices) != 0 {
		l.Channels = append(l.Channels, "BlendIndices")
	}
	if len(m.Normals) != 0 {
		l.Channels = append(l.Channels, "Normal")
	}
	if len(m.Colors) != 0 {
		l.Channels = append(l.Channels, "Colour0")
	}
	if len(m.Colors2) != 0 {
		l.Channels = append(l.Channels, "Colour1")
	}
	for i := range m.UVs {
		if len(m.UVs[i]) != 0 {
			l.Channels = append(l.Channels, "TexCoord"+strconv.Itoa(i))
		}
	}
	if len(m.Tangents) != 0 {
		l.Channels = append(l.Channels, "Tangent")
	}
	return l
}

func roundByte(f float32) float32 {
	return float32(math.Round(float64(f)))
}

// GeometryFromMesh encodes a mesh into a geometry with the standard
// channel order and a computed bounding box.
func GeometryFromMesh(m *scene.Mesh, shaderIndex int64, layoutType string) *cwxml.Geometry {
	g := &cwxml.Geometry{ShaderIndex: shaderIndex}
	layout := layoutForMesh(m, layoutType)
	g.VertexBuffer.Layout = *layout

	for vi := range m.Positions {
		uvSlot := 0
		row := make([][]float32, 0, len(layout.Channels))
		for _, name := range layout.Channels {
			switch {
			case name == "Position":
				p := m.Positions[vi]
				row = append(row, []float32{p[0], p[1], p[2]})
			case name == "BlendWeights":
				w := m.BlendWeights[vi]
				row = append(row, []float32{
					roundByte(w[0] * 255), roundByte(w[1] * 255),
					roundByte(w[2] * 255), roundByte(w[3] * 255)})
			case name == "BlendIndices":
				b := m.BlendIndices[vi]
				row = append(row, []float32{float32(b[0]), float32(b[1]), float32(b[2]), float32(b[3])})
			case name == "Normal":
				nv := m.Normals[vi]
				row = append(row, []float32{nv[0], nv[1], nv[2]})
			case name == "Colour0":
				c := m.Colors[vi]
				row = append(row, []float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])})
			case name == "Colour1":
				c := m.Colors2[vi]
				row = append(row, []float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])})
			case strings.HasPrefix(name, "TexCoord"):
				uv := m.UVs[uvSlot][vi]
				uvSlot++
				row = append(row, []float32{uv[0], uv[1]})
			case strings.HasPrefix(name, "Tangent"):
				t := m.Tangents[vi]
				row = append(row, []float32{t[0], t[1], t[2], t[3]})
			}
		}
		g.VertexBuffer.Data.Rows = append(g.VertexBuffer.Data.Rows, row)
	}
	g.IndexBuffer.Data.Indices = append(g.IndexBuffer.Data.Indices, m.Triangles...)

	if len(m.Positions) != 0 {
		min, max := m.Positions[0], m.Positions[0]
		for _, v := range m.Positions[1:] {
			for i := 0; i < 3; i++ {
				if v[i] < min[i] {
					min[i] = v[i]
				}
				if v[i] > max[i] {
					max[i] = v[i]
				}
			}
		}
		g.BoundingBoxMin, g.BoundingBoxMax = min, max
	}
	return g
}
