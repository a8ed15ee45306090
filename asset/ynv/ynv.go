// Package ynv handles navigation mesh files (.ynv.xml).
package ynv

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/arifsezeraktas/Sollumz/asset"
	"github.com/arifsezeraktas/Sollumz/asset/ydr"
	"github.com/arifsezeraktas/Sollumz/config"
	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
	"github.com/arifsezeraktas/Sollumz/status"
)

const Extension = ".ynv.xml"

// Map navmeshes tile a fixed world grid; each grid cell spans three
// name sectors per axis. Anything not placed on the grid (vehicle
// navmeshes) is standalone and gets the reserved area id.
const (
	gridSize           = 100
	gridCellSize       = 150.0
	sectorsPerGridCell = 3
	standaloneAreaID   = 10000

	// Polygon bounding boxes are snapped to this grid before the
	// centroid is compressed into two bytes.
	polyBBoxResolution = 0.25

	adjacencyNone = -1
)

var gridBoundsMin = mgl32.Vec3{-6000, -6000, 0}

// Map navmeshes carry their sector coordinates in the name, like
// "navmesh[020][037]".
var mapNameRegexp = regexp.MustCompile(`\[(\d+)\]\[(\d+)\]`)

type handler struct{}

func init() {
	asset.SetHandler(Extension, handler{})
}

func (handler) LoadRaw(path string, s *config.Settings) (*cwxml.Node, error) {
	return asset.ReadDocumentFile(path, s)
}

func (h handler) Load(path string, s *config.Settings) (*scene.Node, error) {
	root, err := h.LoadRaw(path, s)
	if err != nil {
		return nil, err
	}
	var m cwxml.NavMesh
	if err := m.Parse(root); err != nil {
		return nil, err
	}
	return NavMeshToNode(&m, ydr.BaseName(path))
}

func (handler) Save(root *scene.Node, path string, s *config.Settings) error {
	m, err := NodeToNavMesh(root)
	if err != nil {
		return err
	}
	return asset.WriteDocumentFile(path, m.Serialize())
}

// NavMeshToNode builds a scene tree from a parsed navmesh. Vertices
// shared between polygons are merged into one position pool on the root
// mesh; each surviving polygon becomes a child node indexing that pool.
// Edge adjacency is not kept, it is recomputed on export.
func NavMeshToNode(m *cwxml.NavMesh, name string) (*scene.Node, error) {
	root := scene.NewNode(name)

	vertToIdx := make(map[mgl32.Vec3]int)
	var positions []mgl32.Vec3
	var triangles []int

	for _, p := range m.Polygons {
		var face []int
		newVerts := 0
		prev := -1
		for _, v := range p.Vertices {
			idx, known := vertToIdx[v]
			if known && idx == prev {
				// Zero-length edges show up in DLC stitch
				// polygons, drop the repeated vertex.
				continue
			}
			if !known {
				idx = len(positions)
				vertToIdx[v] = idx
				positions = append(positions, v)
				newVerts++
			}
			face = append(face, idx)
			prev = idx
		}

		if countDistinct(face) <= 2 {
			// Degenerate stitch polygon. Roll the position pool
			// back so unused vertices don't leak into the mesh.
			for ; newVerts > 0; newVerts-- {
				last := positions[len(positions)-1]
				positions = positions[:len(positions)-1]
				delete(vertToIdx, last)
			}
			continue
		}

		f0, f1, f2, f3, err := parsePolyFlags(p.Flags)
		if err != nil {
			return nil, err
		}

		pn := root.AddChild(scene.NewNode(fmt.Sprintf("%s.poly.%03d", name, len(root.Children))))
		pn.Poly = &scene.PolyProps{Flags0: f0, Flags1: f1, Flags2: f2, Flags3: f3, Verts: face}

		for i := 1; i+1 < len(face); i++ {
			triangles = append(triangles, face[0], face[i], face[i+1])
		}
	}

	if len(positions) > 0 {
		root.Mesh = &scene.Mesh{Positions: positions, Triangles: triangles}
	}

	for i, l := range m.Links {
		ln := root.AddChild(scene.NewNode(fmt.Sprintf("%s.link.%03d", name, i)))
		ln.Link = &scene.NavLinkProps{
			Type:         l.Type,
			Angle:        l.Angle,
			PolyFrom:     l.PolyFrom,
			PolyTo:       l.PolyTo,
			PositionFrom: l.PositionFrom,
			PositionTo:   l.PositionTo,
		}
	}
	for i, p := range m.CoverPoints {
		cn := root.AddChild(scene.NewNode(fmt.Sprintf("%s.cover.%03d", name, i)))
		cn.Cover = &scene.NavCoverProps{Type: p.Type, Angle: p.Angle, Position: p.Position}
	}

	return root, nil
}

func countDistinct(face []int) int {
	seen := make(map[int]struct{}, len(face))
	for _, v := range face {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// Polygon flags text is four flag words followed by the compressed
// centroid. The centroid is derived, only the flag words survive import.
func parsePolyFlags(text string) (f0, f1, f2, f3 int64, err error) {
	fields := strings.Fields(text)
	if len(fields) < 4 {
		return 0, 0, 0, 0, errors.WithStack(&cwxml.FormatError{
			Tag: "Flags", Msg: fmt.Sprintf("expected at least 4 fields, got %d", len(fields)),
		})
	}
	out := [4]int64{}
	for i := 0; i < 4; i++ {
		v, perr := strconv.ParseInt(fields[i], 10, 64)
		if perr != nil {
			return 0, 0, 0, 0, errors.WithStack(&cwxml.FormatError{
				Tag: "Flags", Msg: fmt.Sprintf("bad flag word %q", fields[i]),
			})
		}
		out[i] = v
	}
	return out[0], out[1], out[2], out[3], nil
}

// NodeToNavMesh rebuilds the navmesh document from a scene tree made by
// NavMeshToNode or an editor: area id and cell bounds from the node
// name, polygon flags text with the compressed centroid, and edge
// adjacency from shared vertex pairs.
func NodeToNavMesh(root *scene.Node) (*cwxml.NavMesh, error) {
	var polys []*scene.PolyProps
	var links []*scene.NavLinkProps
	var covers []*scene.NavCoverProps
	root.Walk(func(n *scene.Node) {
		if n.Poly != nil {
			polys = append(polys, n.Poly)
		}
		if n.Link != nil {
			links = append(links, n.Link)
		}
		if n.Cover != nil {
			covers = append(covers, n.Cover)
		}
	})

	var positions []mgl32.Vec3
	if root.Mesh != nil {
		positions = root.Mesh.Positions
	}
	if len(polys) > 0 && len(positions) == 0 {
		return nil, errors.WithStack(&cwxml.ReferentialError{Kind: "navmesh mesh", Name: root.Name})
	}
	for _, p := range polys {
		for _, v := range p.Verts {
			if v < 0 || v >= len(positions) {
				return nil, errors.WithStack(&cwxml.ReferentialError{Kind: "navmesh vertex", Id: v})
			}
		}
	}

	m := &cwxml.NavMesh{}

	bbMin, bbMax := positionsBounds(positions)
	if cx, cy, ok := gridCell(root.Name); ok {
		cellMin := gridBoundsMin.Add(mgl32.Vec3{float32(cx), float32(cy), 0}.Mul(gridCellSize))
		cellMax := cellMin.Add(mgl32.Vec3{gridCellSize, gridCellSize, 0})
		cellMin[2], cellMax[2] = bbMin[2], bbMax[2]
		m.BBMin, m.BBMax = cellMin, cellMax
		m.AreaID = int64(cx + cy*gridSize)
	} else {
		m.BBMin, m.BBMax = bbMin, bbMax
		m.AreaID = standaloneAreaID
	}
	m.BBSize = m.BBMax.Sub(m.BBMin)

	adjacency := edgeAdjacency(polys)
	for pi, p := range polys {
		m.Polygons = append(m.Polygons, buildPolygon(p, positions, adjacency[pi], m.AreaID))
	}

	for _, l := range links {
		m.Links = append(m.Links, &cwxml.NavLink{
			Type:         l.Type,
			Angle:        l.Angle,
			PolyFrom:     l.PolyFrom,
			PolyTo:       l.PolyTo,
			PositionFrom: l.PositionFrom,
			PositionTo:   l.PositionTo,
		})
	}
	for _, c := range covers {
		m.CoverPoints = append(m.CoverPoints, &cwxml.NavCoverPoint{
			Type: c.Type, Angle: c.Angle, Position: c.Position,
		})
	}

	tokens := []string{cwxml.NavContentPolygons}
	if len(m.Links) > 0 {
		tokens = append(tokens, cwxml.NavContentPortals)
	}
	if m.AreaID == standaloneAreaID {
		tokens = append(tokens, cwxml.NavContentVehicle)
	}
	m.ContentFlags = strings.Join(tokens, ", ")

	if len(m.Polygons) == 0 {
		status.Warning("[ynv] %s has no polygons", root.Name)
	}
	return m, nil
}

// gridCell extracts the map grid cell from a "[x][y]" sector pair in
// the navmesh name. Standalone navmeshes have no such pair.
func gridCell(name string) (x, y int, ok bool) {
	match := mapNameRegexp.FindStringSubmatch(name)
	if match == nil {
		return -1, -1, false
	}
	sx, _ := strconv.Atoi(match[1])
	sy, _ := strconv.Atoi(match[2])
	return sx / sectorsPerGridCell, sy / sectorsPerGridCell, true
}

func positionsBounds(positions []mgl32.Vec3) (min, max mgl32.Vec3) {
	for vi, v := range positions {
		if vi == 0 {
			min, max = v, v
			continue
		}
		for i := 0; i < 3; i++ {
			if v[i] < min[i] {
				min[i] = v[i]
			}
			if v[i] > max[i] {
				max[i] = v[i]
			}
		}
	}
	return min, max
}

type navEdgeKey struct{ a, b int }

func makeNavEdgeKey(a, b int) navEdgeKey {
	if a > b {
		a, b = b, a
	}
	return navEdgeKey{a, b}
}

// edgeAdjacency finds, per polygon and per edge in winding order, the
// index of the other polygon sharing that edge, adjacencyNone when the
// edge is a border.
func edgeAdjacency(polys []*scene.PolyProps) [][]int {
	owners := make(map[navEdgeKey][]int)
	for pi, p := range polys {
		for i := range p.Verts {
			key := makeNavEdgeKey(p.Verts[i], p.Verts[(i+1)%len(p.Verts)])
			owners[key] = append(owners[key], pi)
		}
	}
	out := make([][]int, len(polys))
	for pi, p := range polys {
		adj := make([]int, len(p.Verts))
		for i := range p.Verts {
			key := makeNavEdgeKey(p.Verts[i], p.Verts[(i+1)%len(p.Verts)])
			adj[i] = adjacencyNone
			for _, owner := range owners[key] {
				if owner != pi {
					adj[i] = owner
					break
				}
			}
		}
		out[pi] = adj
	}
	return out
}

func buildPolygon(p *scene.PolyProps, positions []mgl32.Vec3, adjacent []int, areaID int64) *cwxml.NavPolygon {
	verts := make([]mgl32.Vec3, len(p.Verts))
	var centroid mgl32.Vec3
	for i, vi := range p.Verts {
		verts[i] = positions[vi]
		centroid = centroid.Add(verts[i])
	}
	centroid = centroid.Mul(1 / float32(len(verts)))

	polyMin, polyMax := positionsBounds(verts)
	lowMin := snapToGrid(polyMin)
	lowSize := snapToGrid(polyMax).Sub(lowMin)
	cx := compressCentroid(centroid[0], lowMin[0], lowSize[0])
	cy := compressCentroid(centroid[1], lowMin[1], lowSize[1])

	lines := make([]string, len(adjacent))
	for i, adj := range adjacent {
		cell, poly := int64(adjacencyNone), int64(adjacencyNone)
		if adj != adjacencyNone {
			cell, poly = areaID, int64(adj)
		}
		lines[i] = fmt.Sprintf("%d:%d, %d:%d", cell, poly, cell, poly)
	}

	return &cwxml.NavPolygon{
		Flags: fmt.Sprintf("%d %d %d %d %d %d",
			clampInt(p.Flags0, 0, 255), clampInt(p.Flags1, 0, 255),
			clampInt(p.Flags2, 0, 255), clampInt(p.Flags3, 0, 255),
			cx, cy),
		Vertices: verts,
		Edges:    strings.Join(lines, "\n"),
	}
}

func snapToGrid(v mgl32.Vec3) mgl32.Vec3 {
	for i := 0; i < 3; i++ {
		v[i] = float32(math.Trunc(float64(v[i])/polyBBoxResolution)) * polyBBoxResolution
	}
	return v
}

func compressCentroid(c, min, size float32) int64 {
	if size == 0 {
		return 0
	}
	return clampInt(int64((c-min)/size*256), 0, 255)
}

func clampInt(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
