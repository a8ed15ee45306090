package gltfutils

import (
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func NewDocument() *gltf.Document {
	return gltf.NewDocument()
}

// ExportBinary writes the document as .glb. Nodes without a parent are
// promoted to scene roots first.
func ExportBinary(w io.Writer, doc *gltf.Document) error {
	child := make(map[int]bool)
	for _, node := range doc.Nodes {
		for _, c := range node.Children {
			child[int(c)] = true
		}
	}
	doc.Scenes[0].Nodes = doc.Scenes[0].Nodes[:0]
	for iNode := range doc.Nodes {
		if !child[iNode] {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(iNode))
		}
	}

	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// WriteMatrices stores a Mat4 accessor, used for skin inverse bind
// matrices. The modeler package has no mat4 writer, so write the rows
// as vec4 and repair the accessor.
func WriteMatrices(doc *gltf.Document, matrices [][4][4]float32) uint32 {
	rows := make([][4]float32, len(matrices)*4)
	for i, m := range matrices {
		rows[i*4+0] = m[0]
		rows[i*4+1] = m[1]
		rows[i*4+2] = m[2]
		rows[i*4+3] = m[3]
	}
	acc := modeler.WriteTangent(doc, rows)
	doc.Accessors[acc].Type = gltf.AccessorMat4
	doc.Accessors[acc].Count /= 4
	doc.BufferViews[*doc.Accessors[acc].BufferView].ByteStride *= 4
	return acc
}
