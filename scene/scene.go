// Package scene is the neutral boundary between asset formats and the
// host side: importers produce this graph, exporters and the derivation
// passes consume it. Nothing here knows about XML.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Node struct {
	Name      string
	Transform mgl32.Mat4
	// Detail tier of a render mesh node: 0 high .. 3 very low. -1 is
	// the very-high tier that only the hi fragment companion uses.
	Lod      int
	Children []*Node

	Mesh     *Mesh
	Armature *Armature
	Light    *Light
	// Material table of the whole asset, set on the root node.
	Materials []*Material

	// Format-specific attachments, nil when not applicable.
	Group  *GroupProps
	Child  *ChildProps
	Cloth  *ClothProps
	Window *WindowProps
	Poly   *PolyProps
	Link   *NavLinkProps
	Cover  *NavCoverProps
	Bound  *BoundProps
}

func NewNode(name string) *Node {
	return &Node{Name: name, Transform: mgl32.Ident4()}
}

func (n *Node) AddChild(c *Node) *Node {
	n.Children = append(n.Children, c)
	return c
}

// Walk visits n and every descendant depth-first.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// FindArmature returns the first armature in the subtree.
func (n *Node) FindArmature() *Armature {
	var found *Armature
	n.Walk(func(c *Node) {
		if found == nil && c.Armature != nil {
			found = c.Armature
		}
	})
	return found
}

// Mesh is indexed triangle geometry with per-vertex attribute arrays.
// All attribute slices are either empty or len == len(Positions).
type Mesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Tangents  []mgl32.Vec4
	// Up to two vertex color layers, RGBA 0..255.
	Colors [][4]uint8
	Colors2 [][4]uint8
	// UV sets in channel order.
	UVs          [][]mgl32.Vec2
	BlendWeights [][4]float32
	BlendIndices [][4]uint8
	// Flat triangle list, 3 indices per face, winding preserved.
	Triangles []int
	Material  *Material
}

func (m *Mesh) TriangleCount() int {
	return len(m.Triangles) / 3
}

// Material carries the shader binding of a mesh: textures and vector
// parameters keyed by shader parameter name.
type Material struct {
	Name         string
	ShaderName   string
	ShaderFile   string
	RenderBucket int64
	// Vehicle paint layer slot, 0 when the material is not paintable.
	PaintLayer   int64
	Textures     map[string]string
	Vectors      map[string]mgl32.Vec4
	Arrays       map[string][]mgl32.Vec4
}

func NewMaterial(name string) *Material {
	return &Material{
		Name:     name,
		Textures: make(map[string]string),
		Vectors:  make(map[string]mgl32.Vec4),
		Arrays:   make(map[string][]mgl32.Vec4),
	}
}

type Bone struct {
	Name        string
	Tag         int64
	ParentIndex int
	Flags       []string
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
	// Parent-chain world transform, column-vector convention.
	World mgl32.Mat4
}

type Armature struct {
	Bones []*Bone
}

// BoneByTag returns the bone carrying the given tag, or nil.
func (a *Armature) BoneByTag(tag int64) *Bone {
	for _, b := range a.Bones {
		if b.Tag == tag {
			return b
		}
	}
	return nil
}

type Light struct {
	Type      string
	Color     [4]uint8
	Intensity float32
	Falloff   float32
	ConeInner float32
	ConeOuter float32
	Direction mgl32.Vec3
	BoneTag   int64
}

// GroupProps mirrors a breakable physics group on the node that owns
// its geometry. Mass is derived on export, never authored.
type GroupProps struct {
	Name                       string
	Parent                     string
	GlassWindowIndex           int64
	GlassFlags                 int64
	Strength                   float32
	ForceTransmissionScaleUp   float32
	ForceTransmissionScaleDown float32
	JointStiffness             float32
	MinSoftAngle1              float32
	MaxSoftAngle1              float32
	MaxSoftAngle2              float32
	MaxSoftAngle3              float32
	RotationSpeed              float32
	RotationStrength           float32
	RestoringStrength          float32
	RestoringMaxTorque         float32
	LatchStrength              float32
	MinDamageForce             float32
	DamageHealth               float32
	WeaponHealth               float32
	WeaponScale                float32
	VehicleScale               float32
	PedScale                   float32
	RagdollScale               float32
	ExplosionScale             float32
	ObjectScale                float32
	PedInvMassScale            float32
	MeleeScale                 float32
}

// ChildProps ties a node's geometry to a physics child.
type ChildProps struct {
	GroupName string
	BoneTag   int64
	Mass      float32
	Damaged   bool
}

// ClothProps is the per-vertex cloth authoring data of a mesh node.
// Slices are indexed by mesh vertex.
type ClothProps struct {
	Pinned         []bool
	Weights        []float32
	InflationScale []float32
	PinRadius      []float32
	WorldScale     mgl32.Vec3
}

// WindowProps marks a mesh as breakable glass. Vehicle windows carry a
// shattermap; fragment windows carry a glass type instead.
type WindowProps struct {
	Vehicle             bool
	ItemId              int64
	GlassType           int64
	DataMin             float32
	DataMax             float32
	CracksTextureTiling float32
	ShatterMap          []string
}

// PolyProps is the navmesh per-polygon attribute block; the four flag
// words pass through as opaque ints. Verts index the root mesh position
// pool in winding order.
type PolyProps struct {
	Flags0 int64
	Flags1 int64
	Flags2 int64
	Flags3 int64
	Verts  []int
}

// NavLinkProps is an off-mesh connection between two navmesh polygons.
type NavLinkProps struct {
	Type         int64
	Angle        float32
	PolyFrom     int64
	PolyTo       int64
	PositionFrom mgl32.Vec3
	PositionTo   mgl32.Vec3
}

// NavCoverProps is a position an actor can take cover at.
type NavCoverProps struct {
	Type     int64
	Angle    float32
	Position mgl32.Vec3
}

// BoundProps marks a node as a collision bound. Geometry variants keep
// their vertices and triangles in the node's Mesh; primitive variants
// are fully described here.
type BoundProps struct {
	Kind          string
	Radius        float32
	Margin        float32
	Volume        float32
	Inertia       mgl32.Vec3
	BoxMin        mgl32.Vec3
	BoxMax        mgl32.Vec3
	Center        mgl32.Vec3
	MaterialIndex int64
	Flags1        []string
	Flags2        []string
	// Polygon records for geometry variants, in document order. Triangle
	// entries are mirrored into the node's Mesh for the viewers.
	Polys []BoundPoly
	// Material palette of a geometry bound.
	Materials []BoundMaterial
}

// BoundPoly is one collision primitive inside a geometry bound. Verts
// index the geometry's vertex list.
type BoundPoly struct {
	Kind     string
	Verts    []int
	Radius   float32
	Material int64
}

type BoundMaterial struct {
	Type         int64
	ProceduralId int64
	RoomId       int64
	PedDensity   int64
	Flags        []string
}
