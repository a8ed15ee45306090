package cwxml

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// NoParentGroup marks a physics group without a parent. 255 is what the
// binary format stores for root groups.
const NoParentGroup = 255

type PhysicsGroup struct {
	Name                       string
	ParentIndex                int64
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
	// Sum of the pristine masses of the group's children, derived.
	Mass           float32
	MinDamageForce float32
	DamageHealth   float32
	UnkFloat5C     float32
	UnkFloat60     float32
	UnkFloat64     float32
	UnkFloat68     float32
	UnkFloat6C     float32
	UnkFloat70     float32
	UnkFloat74     float32
	UnkFloat78     float32
	UnkFloatA8     float32
}

func (g *PhysicsGroup) Parse(n *Node) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	g.Name = n.TextOf("Name")
	read(func() (e error) { g.ParentIndex, e = n.ValueInt("ParentIndex", NoParentGroup); return })
	read(func() (e error) { g.GlassWindowIndex, e = n.ValueInt("GlassWindowIndex", 0); return })
	read(func() (e error) { g.GlassFlags, e = n.ValueInt("GlassFlags", 0); return })
	read(func() (e error) { g.Strength, e = n.ValueFloat("Strength", 0); return })
	read(func() (e error) { g.ForceTransmissionScaleUp, e = n.ValueFloat("ForceTransmissionScaleUp", 0); return })
	read(func() (e error) { g.ForceTransmissionScaleDown, e = n.ValueFloat("ForceTransmissionScaleDown", 0); return })
	read(func() (e error) { g.JointStiffness, e = n.ValueFloat("JointStiffness", 0); return })
	read(func() (e error) { g.MinSoftAngle1, e = n.ValueFloat("MinSoftAngle1", 0); return })
	read(func() (e error) { g.MaxSoftAngle1, e = n.ValueFloat("MaxSoftAngle1", 0); return })
	read(func() (e error) { g.MaxSoftAngle2, e = n.ValueFloat("MaxSoftAngle2", 0); return })
	read(func() (e error) { g.MaxSoftAngle3, e = n.ValueFloat("MaxSoftAngle3", 0); return })
	read(func() (e error) { g.RotationSpeed, e = n.ValueFloat("RotationSpeed", 0); return })
	read(func() (e error) { g.RotationStrength, e = n.ValueFloat("RotationStrength", 0); return })
	read(func() (e error) { g.RestoringStrength, e = n.ValueFloat("RestoringStrength", 0); return })
	read(func() (e error) { g.RestoringMaxTorque, e = n.ValueFloat("RestoringMaxTorque", 0); return })
	read(func() (e error) { g.LatchStrength, e = n.ValueFloat("LatchStrength", 0); return })
	read(func() (e error) { g.Mass, e = n.ValueFloat("Mass", 0); return })
	read(func() (e error) { g.MinDamageForce, e = n.ValueFloat("MinDamageForce", 0); return })
	read(func() (e error) { g.DamageHealth, e = n.ValueFloat("DamageHealth", 0); return })
	read(func() (e error) { g.UnkFloat5C, e = n.ValueFloat("UnkFloat5C", 0); return })
	read(func() (e error) { g.UnkFloat60, e = n.ValueFloat("UnkFloat60", 0); return })
	read(func() (e error) { g.UnkFloat64, e = n.ValueFloat("UnkFloat64", 0); return })
	read(func() (e error) { g.UnkFloat68, e = n.ValueFloat("UnkFloat68", 0); return })
	read(func() (e error) { g.UnkFloat6C, e = n.ValueFloat("UnkFloat6C", 0); return })
	read(func() (e error) { g.UnkFloat70, e = n.ValueFloat("UnkFloat70", 0); return })
	read(func() (e error) { g.UnkFloat74, e = n.ValueFloat("UnkFloat74", 0); return })
	read(func() (e error) { g.UnkFloat78, e = n.ValueFloat("UnkFloat78", 0); return })
	read(func() (e error) { g.UnkFloatA8, e = n.ValueFloat("UnkFloatA8", 0); return })
	return err
}

func (g *PhysicsGroup) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddText(n, "Name", g.Name)
	AddValueInt(n, "ParentIndex", g.ParentIndex)
	AddValueInt(n, "GlassWindowIndex", g.GlassWindowIndex)
	AddValueInt(n, "GlassFlags", g.GlassFlags)
	AddValueFloat(n, "Strength", g.Strength)
	AddValueFloat(n, "ForceTransmissionScaleUp", g.ForceTransmissionScaleUp)
	AddValueFloat(n, "ForceTransmissionScaleDown", g.ForceTransmissionScaleDown)
	AddValueFloat(n, "JointStiffness", g.JointStiffness)
	AddValueFloat(n, "MinSoftAngle1", g.MinSoftAngle1)
	AddValueFloat(n, "MaxSoftAngle1", g.MaxSoftAngle1)
	AddValueFloat(n, "MaxSoftAngle2", g.MaxSoftAngle2)
	AddValueFloat(n, "MaxSoftAngle3", g.MaxSoftAngle3)
	AddValueFloat(n, "RotationSpeed", g.RotationSpeed)
	AddValueFloat(n, "RotationStrength", g.RotationStrength)
	AddValueFloat(n, "RestoringStrength", g.RestoringStrength)
	AddValueFloat(n, "RestoringMaxTorque", g.RestoringMaxTorque)
	AddValueFloat(n, "LatchStrength", g.LatchStrength)
	AddValueFloat(n, "Mass", g.Mass)
	AddValueFloat(n, "MinDamageForce", g.MinDamageForce)
	AddValueFloat(n, "DamageHealth", g.DamageHealth)
	AddValueFloat(n, "UnkFloat5C", g.UnkFloat5C)
	AddValueFloat(n, "UnkFloat60", g.UnkFloat60)
	AddValueFloat(n, "UnkFloat64", g.UnkFloat64)
	AddValueFloat(n, "UnkFloat68", g.UnkFloat68)
	AddValueFloat(n, "UnkFloat6C", g.UnkFloat6C)
	AddValueFloat(n, "UnkFloat70", g.UnkFloat70)
	AddValueFloat(n, "UnkFloat74", g.UnkFloat74)
	AddValueFloat(n, "UnkFloat78", g.UnkFloat78)
	AddValueFloat(n, "UnkFloatA8", g.UnkFloatA8)
	return n
}

type PhysicsChild struct {
	GroupIndex   int64
	BoneTag      int64
	PristineMass float32
	DamagedMass  float32
	// xyz angular inertia, w = bound volume * pristine mass.
	InertiaTensor mgl32.Vec4
	Drawable      *Drawable
}

func (c *PhysicsChild) Parse(n *Node) error {
	var err error
	if c.GroupIndex, err = n.ValueInt("GroupIndex", 0); err != nil {
		return err
	}
	if c.BoneTag, err = n.ValueInt("BoneTag", 0); err != nil {
		return err
	}
	if c.PristineMass, err = n.ValueFloat("PristineMass", 0); err != nil {
		return err
	}
	if c.DamagedMass, err = n.ValueFloat("DamagedMass", 0); err != nil {
		return err
	}
	if c.InertiaTensor, err = n.Vector4("InertiaTensor"); err != nil {
		return err
	}
	if dn := n.Child("Drawable"); dn != nil {
		c.Drawable = &Drawable{}
		if err := c.Drawable.Parse(dn); err != nil {
			return err
		}
	}
	return nil
}

func (c *PhysicsChild) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "GroupIndex", c.GroupIndex)
	AddValueInt(n, "BoneTag", c.BoneTag)
	AddValueFloat(n, "PristineMass", c.PristineMass)
	AddValueFloat(n, "DamagedMass", c.DamagedMass)
	AddVector4(n, "InertiaTensor", c.InertiaTensor)
	if c.Drawable != nil {
		n.Add(c.Drawable.Serialize("Drawable"))
	}
	return n
}

type Archetype struct {
	Name             string
	Mass             float32
	MassInv          float32
	Unknown48        float32 // gravity factor
	Unknown4C        float32 // max speed
	Unknown50        float32 // max angular speed
	Unknown54        float32 // buoyancy factor
	InertiaTensor    mgl32.Vec3
	InertiaTensorInv mgl32.Vec3
	Bounds           *BoundComposite
}

func (a *Archetype) Parse(n *Node) error {
	var err error
	a.Name = n.TextOf("Name")
	if a.Mass, err = n.ValueFloat("Mass", 0); err != nil {
		return err
	}
	if a.MassInv, err = n.ValueFloat("MassInv", 0); err != nil {
		return err
	}
	if a.Unknown48, err = n.ValueFloat("Unknown48", 0); err != nil {
		return err
	}
	if a.Unknown4C, err = n.ValueFloat("Unknown4C", 0); err != nil {
		return err
	}
	if a.Unknown50, err = n.ValueFloat("Unknown50", 0); err != nil {
		return err
	}
	if a.Unknown54, err = n.ValueFloat("Unknown54", 0); err != nil {
		return err
	}
	if a.InertiaTensor, err = n.Vector3("InertiaTensor"); err != nil {
		return err
	}
	if a.InertiaTensorInv, err = n.Vector3("InertiaTensorInv"); err != nil {
		return err
	}
	if bn := n.Child("Bounds"); bn != nil {
		b, err := ParseBoundNode(bn)
		if err != nil {
			return err
		}
		if comp, ok := b.(*BoundComposite); ok {
			a.Bounds = comp
		} else if b != nil {
			return schemaErrorf("Bounds", "archetype bounds must be a composite, got %s", b.Type())
		}
	}
	return nil
}

func (a *Archetype) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddText(n, "Name", a.Name)
	AddValueFloat(n, "Mass", a.Mass)
	AddValueFloat(n, "MassInv", a.MassInv)
	AddValueFloat(n, "Unknown48", a.Unknown48)
	AddValueFloat(n, "Unknown4C", a.Unknown4C)
	AddValueFloat(n, "Unknown50", a.Unknown50)
	AddValueFloat(n, "Unknown54", a.Unknown54)
	AddVector3(n, "InertiaTensor", a.InertiaTensor)
	AddVector3(n, "InertiaTensorInv", a.InertiaTensorInv)
	if a.Bounds != nil {
		n.Add(a.Bounds.Serialize("Bounds"))
	}
	return n
}

type PhysicsLOD struct {
	Unknown14 float32 // smallest angular inertia
	Unknown18 float32 // largest angular inertia
	Unknown1C float32 // min move force
	// Root link center of gravity; Unknown40 keeps the original value,
	// Unknown50 is the user offset added on top of the weighted mean.
	PositionOffset   mgl32.Vec3
	Unknown40        mgl32.Vec3
	Unknown50        mgl32.Vec3
	DampingLinearC   mgl32.Vec3
	DampingLinearV   mgl32.Vec3
	DampingLinearV2  mgl32.Vec3
	DampingAngularC  mgl32.Vec3
	DampingAngularV  mgl32.Vec3
	DampingAngularV2 mgl32.Vec3
	Archetype        *Archetype
	Archetype2       *Archetype
	Groups           []*PhysicsGroup
	Children         []*PhysicsChild
	Transforms       []Matrix4
}

func (l *PhysicsLOD) Parse(n *Node) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { l.Unknown14, e = n.ValueFloat("Unknown14", 0); return })
	read(func() (e error) { l.Unknown18, e = n.ValueFloat("Unknown18", 0); return })
	read(func() (e error) { l.Unknown1C, e = n.ValueFloat("Unknown1C", 0); return })
	read(func() (e error) { l.PositionOffset, e = n.Vector3("PositionOffset"); return })
	read(func() (e error) { l.Unknown40, e = n.Vector3("Unknown40"); return })
	read(func() (e error) { l.Unknown50, e = n.Vector3("Unknown50"); return })
	read(func() (e error) { l.DampingLinearC, e = n.Vector3("DampingLinearC"); return })
	read(func() (e error) { l.DampingLinearV, e = n.Vector3("DampingLinearV"); return })
	read(func() (e error) { l.DampingLinearV2, e = n.Vector3("DampingLinearV2"); return })
	read(func() (e error) { l.DampingAngularC, e = n.Vector3("DampingAngularC"); return })
	read(func() (e error) { l.DampingAngularV, e = n.Vector3("DampingAngularV"); return })
	read(func() (e error) { l.DampingAngularV2, e = n.Vector3("DampingAngularV2"); return })
	if err != nil {
		return err
	}
	if an := n.Child("Archetype"); an != nil {
		l.Archetype = &Archetype{}
		if err := l.Archetype.Parse(an); err != nil {
			return err
		}
	}
	if an := n.Child("Archetype2"); an != nil {
		l.Archetype2 = &Archetype{}
		if err := l.Archetype2.Parse(an); err != nil {
			return err
		}
	}
	if gn := n.Child("Groups"); gn != nil {
		for _, item := range gn.ChildrenByTag("Item") {
			g := &PhysicsGroup{}
			if err := g.Parse(item); err != nil {
				return err
			}
			l.Groups = append(l.Groups, g)
		}
	}
	if cn := n.Child("Children"); cn != nil {
		for _, item := range cn.ChildrenByTag("Item") {
			c := &PhysicsChild{}
			if err := c.Parse(item); err != nil {
				return err
			}
			l.Children = append(l.Children, c)
		}
	}
	if tn := n.Child("Transforms"); tn != nil {
		for _, item := range tn.ChildrenByTag("Item") {
			rows, err := parseMatrixText(item, 4, 4)
			if err != nil {
				return err
			}
			var m Matrix4
			for r := 0; r < 4; r++ {
				copy(m[r][:], rows[r])
			}
			l.Transforms = append(l.Transforms, m)
		}
	}
	return nil
}

func (l *PhysicsLOD) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueFloat(n, "Unknown14", l.Unknown14)
	AddValueFloat(n, "Unknown18", l.Unknown18)
	AddValueFloat(n, "Unknown1C", l.Unknown1C)
	AddVector3(n, "PositionOffset", l.PositionOffset)
	AddVector3(n, "Unknown40", l.Unknown40)
	AddVector3(n, "Unknown50", l.Unknown50)
	AddVector3(n, "DampingLinearC", l.DampingLinearC)
	AddVector3(n, "DampingLinearV", l.DampingLinearV)
	AddVector3(n, "DampingLinearV2", l.DampingLinearV2)
	AddVector3(n, "DampingAngularC", l.DampingAngularC)
	AddVector3(n, "DampingAngularV", l.DampingAngularV)
	AddVector3(n, "DampingAngularV2", l.DampingAngularV2)
	if l.Archetype != nil {
		n.Add(l.Archetype.Serialize("Archetype"))
	}
	if l.Archetype2 != nil {
		n.Add(l.Archetype2.Serialize("Archetype2"))
	}
	gn := n.Add(NewNode("Groups"))
	for _, g := range l.Groups {
		gn.Add(g.Serialize("Item"))
	}
	cn := n.Add(NewNode("Children"))
	for _, c := range l.Children {
		cn.Add(c.Serialize("Item"))
	}
	tn := n.Add(NewNode("Transforms"))
	for _, m := range l.Transforms {
		AddMatrix4(tn, "Item", m)
	}
	return n
}

type Physics struct {
	LOD1 *PhysicsLOD
	LOD2 *PhysicsLOD
	LOD3 *PhysicsLOD
}

func (p *Physics) Parse(n *Node) error {
	parseLOD := func(tag string) (*PhysicsLOD, error) {
		ln := n.Child(tag)
		if ln == nil {
			return nil, nil
		}
		l := &PhysicsLOD{}
		if err := l.Parse(ln); err != nil {
			return nil, err
		}
		return l, nil
	}
	var err error
	if p.LOD1, err = parseLOD("LOD1"); err != nil {
		return err
	}
	if p.LOD2, err = parseLOD("LOD2"); err != nil {
		return err
	}
	if p.LOD3, err = parseLOD("LOD3"); err != nil {
		return err
	}
	return nil
}

func (p *Physics) Serialize(tag string) *Node {
	n := NewNode(tag)
	if p.LOD1 != nil {
		n.Add(p.LOD1.Serialize("LOD1"))
	}
	if p.LOD2 != nil {
		n.Add(p.LOD2.Serialize("LOD2"))
	}
	if p.LOD3 != nil {
		n.Add(p.LOD3.Serialize("LOD3"))
	}
	return n
}

// Window is a breakable vehicle glass window with its shattermap.
type Window struct {
	ItemId              int64
	UnkUshort1          int64
	UnkUshort4          int64
	UnkUshort5          int64
	ProjectionMatrix    Matrix34
	UnkFloat17          float32
	UnkFloat18          float32
	CracksTextureTiling float32
	// Shattermap rows as text, one string of hex digits per row.
	ShatterMap []string
}

func (w *Window) Parse(n *Node) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { w.ItemId, e = n.ValueInt("ItemID", 0); return })
	read(func() (e error) { w.UnkUshort1, e = n.ValueInt("UnkUshort1", 0); return })
	read(func() (e error) { w.UnkUshort4, e = n.ValueInt("UnkUshort4", 0); return })
	read(func() (e error) { w.UnkUshort5, e = n.ValueInt("UnkUshort5", 0); return })
	read(func() (e error) { w.ProjectionMatrix, e = n.Matrix34Of("ProjectionMatrix"); return })
	read(func() (e error) { w.UnkFloat17, e = n.ValueFloat("UnkFloat17", 0); return })
	read(func() (e error) { w.UnkFloat18, e = n.ValueFloat("UnkFloat18", 0); return })
	read(func() (e error) { w.CracksTextureTiling, e = n.ValueFloat("CracksTextureTiling", 0); return })
	if err != nil {
		return err
	}
	if sm := n.Child("ShatterMap"); sm != nil {
		for _, line := range strings.Split(strings.TrimSpace(sm.Text), "\n") {
			w.ShatterMap = append(w.ShatterMap, strings.TrimSpace(line))
		}
	}
	return nil
}

func (w *Window) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "ItemID", w.ItemId)
	AddValueInt(n, "UnkUshort1", w.UnkUshort1)
	AddValueInt(n, "UnkUshort4", w.UnkUshort4)
	AddValueInt(n, "UnkUshort5", w.UnkUshort5)
	AddMatrix34(n, "ProjectionMatrix", w.ProjectionMatrix)
	AddValueFloat(n, "UnkFloat17", w.UnkFloat17)
	AddValueFloat(n, "UnkFloat18", w.UnkFloat18)
	AddValueFloat(n, "CracksTextureTiling", w.CracksTextureTiling)
	if len(w.ShatterMap) != 0 {
		AddText(n, "ShatterMap", "\n"+strings.Join(w.ShatterMap, "\n")+"\n")
	}
	return n
}

// GlassWindow is the breakable (non-vehicle) glass pane description.
type GlassWindow struct {
	Flags            int64
	ProjectionMatrix Matrix34
	UnkFloat13       float32 // uv min x
	UnkFloat14       float32 // uv min y
	UnkFloat15       float32 // uv max x
	UnkFloat16       float32 // uv max y
	Thickness        float32
	UnkFloat18       float32 // bounds offset front
	UnkFloat19       float32 // bounds offset back
	Tangent          mgl32.Vec3
	Layout           VertexLayout
}

func (g *GlassWindow) Parse(n *Node) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { g.Flags, e = n.ValueInt("Flags", 0); return })
	read(func() (e error) { g.ProjectionMatrix, e = n.Matrix34Of("ProjectionMatrix"); return })
	read(func() (e error) { g.UnkFloat13, e = n.ValueFloat("UnkFloat13", 0); return })
	read(func() (e error) { g.UnkFloat14, e = n.ValueFloat("UnkFloat14", 0); return })
	read(func() (e error) { g.UnkFloat15, e = n.ValueFloat("UnkFloat15", 0); return })
	read(func() (e error) { g.UnkFloat16, e = n.ValueFloat("UnkFloat16", 0); return })
	read(func() (e error) { g.Thickness, e = n.ValueFloat("Thickness", 0); return })
	read(func() (e error) { g.UnkFloat18, e = n.ValueFloat("UnkFloat18", 0); return })
	read(func() (e error) { g.UnkFloat19, e = n.ValueFloat("UnkFloat19", 0); return })
	read(func() (e error) { g.Tangent, e = n.Vector3("Tangent"); return })
	if err != nil {
		return err
	}
	if ln := n.Child("Layout"); ln != nil {
		return g.Layout.Parse(ln)
	}
	return nil
}

func (g *GlassWindow) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "Flags", g.Flags)
	AddMatrix34(n, "ProjectionMatrix", g.ProjectionMatrix)
	AddValueFloat(n, "UnkFloat13", g.UnkFloat13)
	AddValueFloat(n, "UnkFloat14", g.UnkFloat14)
	AddValueFloat(n, "UnkFloat15", g.UnkFloat15)
	AddValueFloat(n, "UnkFloat16", g.UnkFloat16)
	AddValueFloat(n, "Thickness", g.Thickness)
	AddValueFloat(n, "UnkFloat18", g.UnkFloat18)
	AddValueFloat(n, "UnkFloat19", g.UnkFloat19)
	AddVector3(n, "Tangent", g.Tangent)
	n.Add(g.Layout.Serialize("Layout"))
	return n
}

type Fragment struct {
	Name                 string
	BoundingSphereCenter mgl32.Vec3
	BoundingSphereRadius float32
	UnknownB0            int64
	UnknownB8            int64
	UnknownBC            int64
	UnknownC0            int64
	UnknownC4            int64
	UnknownCC            float32
	GravityFactor        float32
	BuoyancyFactor       float32
	Drawable             *Drawable
	// World-space chain transform per bone, 3x4, in bone list order.
	BoneTransforms      []Matrix34
	Physics             *Physics
	GlassWindows        []*GlassWindow
	VehicleGlassWindows []*Window
	// The engine reads at most one cloth.
	Cloths []*EnvironmentCloth
	Lights []*Light
}

func (f *Fragment) Parse(n *Node) error {
	var err error
	read := func(fn func() error) {
		if err == nil {
			err = fn()
		}
	}
	f.Name = n.TextOf("Name")
	read(func() (e error) { f.BoundingSphereCenter, e = n.Vector3("BoundingSphereCenter"); return })
	read(func() (e error) { f.BoundingSphereRadius, e = n.ValueFloat("BoundingSphereRadius", 0); return })
	read(func() (e error) { f.UnknownB0, e = n.ValueInt("UnknownB0", 0); return })
	read(func() (e error) { f.UnknownB8, e = n.ValueInt("UnknownB8", 0); return })
	read(func() (e error) { f.UnknownBC, e = n.ValueInt("UnknownBC", 0); return })
	read(func() (e error) { f.UnknownC0, e = n.ValueInt("UnknownC0", 0); return })
	read(func() (e error) { f.UnknownC4, e = n.ValueInt("UnknownC4", 0); return })
	read(func() (e error) { f.UnknownCC, e = n.ValueFloat("UnknownCC", 0); return })
	read(func() (e error) { f.GravityFactor, e = n.ValueFloat("GravityFactor", 0); return })
	read(func() (e error) { f.BuoyancyFactor, e = n.ValueFloat("BuoyancyFactor", 0); return })
	if err != nil {
		return err
	}
	if dn := n.Child("Drawable"); dn != nil {
		f.Drawable = &Drawable{}
		if err := f.Drawable.Parse(dn); err != nil {
			return err
		}
	}
	if bt := n.Child("BoneTransforms"); bt != nil {
		for _, item := range bt.ChildrenByTag("Item") {
			rows, err := parseMatrixText(item, 3, 4)
			if err != nil {
				return err
			}
			var m Matrix34
			for r := 0; r < 3; r++ {
				copy(m[r][:], rows[r])
			}
			f.BoneTransforms = append(f.BoneTransforms, m)
		}
	}
	if pn := n.Child("Physics"); pn != nil {
		f.Physics = &Physics{}
		if err := f.Physics.Parse(pn); err != nil {
			return err
		}
	}
	if gn := n.Child("GlassWindows"); gn != nil {
		for _, item := range gn.ChildrenByTag("Item") {
			g := &GlassWindow{}
			if err := g.Parse(item); err != nil {
				return err
			}
			f.GlassWindows = append(f.GlassWindows, g)
		}
	}
	if vn := n.Child("VehicleGlassWindows"); vn != nil {
		for _, item := range vn.ChildrenByTag("Item") {
			w := &Window{}
			if err := w.Parse(item); err != nil {
				return err
			}
			f.VehicleGlassWindows = append(f.VehicleGlassWindows, w)
		}
	}
	if cn := n.Child("Cloths"); cn != nil {
		for _, item := range cn.ChildrenByTag("Item") {
			c := &EnvironmentCloth{}
			if err := c.Parse(item); err != nil {
				return err
			}
			f.Cloths = append(f.Cloths, c)
		}
	}
	if ln := n.Child("Lights"); ln != nil {
		for _, item := range ln.ChildrenByTag("Item") {
			l := &Light{}
			if err := l.Parse(item); err != nil {
				return err
			}
			f.Lights = append(f.Lights, l)
		}
	}
	return nil
}

func (f *Fragment) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddText(n, "Name", f.Name)
	AddVector3(n, "BoundingSphereCenter", f.BoundingSphereCenter)
	AddValueFloat(n, "BoundingSphereRadius", f.BoundingSphereRadius)
	AddValueInt(n, "UnknownB0", f.UnknownB0)
	AddValueInt(n, "UnknownB8", f.UnknownB8)
	AddValueInt(n, "UnknownBC", f.UnknownBC)
	AddValueInt(n, "UnknownC0", f.UnknownC0)
	AddValueInt(n, "UnknownC4", f.UnknownC4)
	AddValueFloat(n, "UnknownCC", f.UnknownCC)
	AddValueFloat(n, "GravityFactor", f.GravityFactor)
	AddValueFloat(n, "BuoyancyFactor", f.BuoyancyFactor)
	if f.Drawable != nil {
		n.Add(f.Drawable.Serialize("Drawable"))
	}
	if len(f.BoneTransforms) != 0 {
		bt := n.Add(NewNode("BoneTransforms"))
		for _, m := range f.BoneTransforms {
			AddMatrix34(bt, "Item", m)
		}
	}
	if f.Physics != nil {
		n.Add(f.Physics.Serialize("Physics"))
	}
	if len(f.GlassWindows) != 0 {
		gn := n.Add(NewNode("GlassWindows"))
		for _, g := range f.GlassWindows {
			gn.Add(g.Serialize("Item"))
		}
	}
	if len(f.VehicleGlassWindows) != 0 {
		vn := n.Add(NewNode("VehicleGlassWindows"))
		for _, w := range f.VehicleGlassWindows {
			vn.Add(w.Serialize("Item"))
		}
	}
	if len(f.Cloths) != 0 {
		cn := n.Add(NewNode("Cloths"))
		for _, c := range f.Cloths {
			cn.Add(c.Serialize("Item"))
		}
	}
	if len(f.Lights) != 0 {
		ln := n.Add(NewNode("Lights"))
		for _, l := range f.Lights {
			ln.Add(l.Serialize("Item"))
		}
	}
	return n
}
