// Package yft bridges fragment documents (.yft.xml) and the scene
// graph. Physics, cloth and window blocks are derived on export from
// node metadata; authored values never enter the document directly.
package yft

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/arifsezeraktas/Sollumz/asset"
	"github.com/arifsezeraktas/Sollumz/asset/ybn"
	"github.com/arifsezeraktas/Sollumz/asset/ydr"
	"github.com/arifsezeraktas/Sollumz/config"
	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
	"github.com/arifsezeraktas/Sollumz/status"
)

const Extension = ".yft.xml"

// HiSuffix marks the companion document carrying very-high geometry.
const HiSuffix = "_hi"

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
	var f cwxml.Fragment
	if err := f.Parse(root); err != nil {
		return nil, err
	}
	return FragmentToNode(&f, ydr.BaseName(path))
}

func (handler) Save(root *scene.Node, path string, s *config.Settings) error {
	f, err := NodeToFragment(root, ydr.BaseName(path))
	if err != nil {
		return err
	}
	if err := asset.WriteDocumentFile(path, f.Serialize("Fragment")); err != nil {
		return err
	}
	if s.ExportHiLOD && HasVeryHighLods(root) {
		hi, err := buildFragment(root, ydr.BaseName(path)+HiSuffix, true)
		if err != nil {
			return err
		}
		hiPath := strings.TrimSuffix(path, Extension) + HiSuffix + Extension
		return asset.WriteDocumentFile(hiPath, hi.Serialize("Fragment"))
	}
	return nil
}

// HasVeryHighLods reports whether any render mesh in the tree sits on
// the very-high tier, which triggers the companion export.
func HasVeryHighLods(root *scene.Node) bool {
	found := false
	root.Walk(func(n *scene.Node) {
		if n.Mesh != nil && n.Lod < 0 {
			found = true
		}
	})
	return found
}

func groupToProps(g *cwxml.PhysicsGroup, groups []*cwxml.PhysicsGroup) *scene.GroupProps {
	p := &scene.GroupProps{
		Name:                       g.Name,
		GlassWindowIndex:           g.GlassWindowIndex,
		GlassFlags:                 g.GlassFlags,
		Strength:                   g.Strength,
		ForceTransmissionScaleUp:   g.ForceTransmissionScaleUp,
		ForceTransmissionScaleDown: g.ForceTransmissionScaleDown,
		JointStiffness:             g.JointStiffness,
		MinSoftAngle1:              g.MinSoftAngle1,
		MaxSoftAngle1:              g.MaxSoftAngle1,
		MaxSoftAngle2:              g.MaxSoftAngle2,
		MaxSoftAngle3:              g.MaxSoftAngle3,
		RotationSpeed:              g.RotationSpeed,
		RotationStrength:           g.RotationStrength,
		RestoringStrength:          g.RestoringStrength,
		RestoringMaxTorque:         g.RestoringMaxTorque,
		LatchStrength:              g.LatchStrength,
		MinDamageForce:             g.MinDamageForce,
		DamageHealth:               g.DamageHealth,
		WeaponHealth:               g.UnkFloat5C,
		WeaponScale:                g.UnkFloat60,
		VehicleScale:               g.UnkFloat64,
		PedScale:                   g.UnkFloat68,
		RagdollScale:               g.UnkFloat6C,
		ExplosionScale:             g.UnkFloat70,
		ObjectScale:                g.UnkFloat74,
		PedInvMassScale:            g.UnkFloat78,
		MeleeScale:                 g.UnkFloatA8,
	}
	if g.ParentIndex != cwxml.NoParentGroup && int(g.ParentIndex) < len(groups) {
		p.Parent = groups[g.ParentIndex].Name
	}
	return p
}

func propsToGroup(p *scene.GroupProps, name string) *cwxml.PhysicsGroup {
	return &cwxml.PhysicsGroup{
		Name:                       name,
		ParentIndex:                cwxml.NoParentGroup,
		Strength:                   p.Strength,
		ForceTransmissionScaleUp:   p.ForceTransmissionScaleUp,
		ForceTransmissionScaleDown: p.ForceTransmissionScaleDown,
		JointStiffness:             p.JointStiffness,
		MinSoftAngle1:              p.MinSoftAngle1,
		MaxSoftAngle1:              p.MaxSoftAngle1,
		MaxSoftAngle2:              p.MaxSoftAngle2,
		MaxSoftAngle3:              p.MaxSoftAngle3,
		RotationSpeed:              p.RotationSpeed,
		RotationStrength:           p.RotationStrength,
		RestoringStrength:          p.RestoringStrength,
		RestoringMaxTorque:         p.RestoringMaxTorque,
		LatchStrength:              p.LatchStrength,
		MinDamageForce:             p.MinDamageForce,
		DamageHealth:               p.DamageHealth,
		UnkFloat5C:                 p.WeaponHealth,
		UnkFloat60:                 p.WeaponScale,
		UnkFloat64:                 p.VehicleScale,
		UnkFloat68:                 p.PedScale,
		UnkFloat6C:                 p.RagdollScale,
		UnkFloat70:                 p.ExplosionScale,
		UnkFloat74:                 p.ObjectScale,
		UnkFloat78:                 p.PedInvMassScale,
		UnkFloatA8:                 p.MeleeScale,
	}
}

// FragmentToNode unfolds a fragment into a scene tree. Physics groups
// become nested nodes so the hierarchy survives the round trip.
func FragmentToNode(f *cwxml.Fragment, name string) (*scene.Node, error) {
	if f.Name != "" {
		name = strings.TrimPrefix(f.Name, "pack:/")
	}

	var root *scene.Node
	if f.Drawable != nil {
		f.Drawable.Lights = append(f.Drawable.Lights, f.Lights...)
		r, err := ydr.DrawableToNode(f.Drawable, name)
		if err != nil {
			return nil, err
		}
		root = r
	} else {
		root = scene.NewNode(name)
	}
	root.Name = name

	if f.Physics != nil && f.Physics.LOD1 != nil {
		if err := physicsToNodes(f, f.Physics.LOD1, root, name); err != nil {
			return nil, err
		}
	}

	for wi, w := range f.VehicleGlassWindows {
		wn := root.AddChild(scene.NewNode(fmt.Sprintf("%s.window.%03d", name, wi)))
		wn.Window = &scene.WindowProps{
			Vehicle:             true,
			ItemId:              w.ItemId,
			DataMin:             w.UnkFloat17,
			DataMax:             w.UnkFloat18,
			CracksTextureTiling: w.CracksTextureTiling,
			ShatterMap:          w.ShatterMap,
		}
	}

	for _, cl := range f.Cloths {
		cn := root.AddChild(scene.NewNode(name + ".cloth"))
		if err := clothToNode(cl, cn, root); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func physicsToNodes(f *cwxml.Fragment, lod *cwxml.PhysicsLOD, root *scene.Node, name string) error {
	groupNodes := make([]*scene.Node, len(lod.Groups))
	for i, g := range lod.Groups {
		gn := scene.NewNode(g.Name)
		gn.Group = groupToProps(g, lod.Groups)
		groupNodes[i] = gn
	}
	for i, g := range lod.Groups {
		if g.ParentIndex != cwxml.NoParentGroup && int(g.ParentIndex) < len(groupNodes) {
			groupNodes[g.ParentIndex].AddChild(groupNodes[i])
		} else {
			root.AddChild(groupNodes[i])
		}
	}

	// glass windows re-attach to the group that owns them
	for wi, gw := range f.GlassWindows {
		for gi, g := range lod.Groups {
			if g.GlassFlags == 0 || g.GlassWindowIndex != int64(wi) {
				continue
			}
			wn := groupNodes[gi].AddChild(scene.NewNode(g.Name + ".glass"))
			wn.Window = &scene.WindowProps{GlassType: gw.Flags & 0xFF}
			break
		}
	}

	var bounds []cwxml.Bound
	if lod.Archetype != nil && lod.Archetype.Bounds != nil {
		bounds = lod.Archetype.Bounds.Children
	}
	for i, c := range lod.Children {
		cn := scene.NewNode(fmt.Sprintf("%s.child.%03d", name, i))
		props := &scene.ChildProps{BoneTag: c.BoneTag, Mass: c.PristineMass}
		if c.GroupIndex >= 0 && int(c.GroupIndex) < len(lod.Groups) {
			props.GroupName = lod.Groups[c.GroupIndex].Name
			groupNodes[c.GroupIndex].AddChild(cn)
		} else {
			root.AddChild(cn)
		}
		cn.Child = props
		if i < len(bounds) && bounds[i] != nil {
			cn.AddChild(ybn.BoundToNode(bounds[i], cn.Name+".col"))
		}
		if c.Drawable != nil {
			for tier := range c.Drawable.Models {
				for mi, model := range c.Drawable.Models[tier] {
					for gi, geom := range model.Geometries {
						mesh, err := ydr.MeshFromGeometry(geom)
						if err != nil {
							return err
						}
						if geom.ShaderIndex >= 0 && int(geom.ShaderIndex) < len(root.Materials) {
							mesh.Material = root.Materials[geom.ShaderIndex]
						}
						mn := cn.AddChild(scene.NewNode(fmt.Sprintf("%s.%d.%d", cn.Name, mi, gi)))
						mn.Lod = tier
						mn.Mesh = mesh
					}
				}
			}
		}
	}
	return nil
}

func clothToNode(cl *cwxml.EnvironmentCloth, cn *scene.Node, root *scene.Node) error {
	props := &scene.ClothProps{}
	cn.Cloth = props
	if cl.Drawable != nil {
		mats := ydr.MaterialsFromShaderGroup(cl.Drawable.ShaderGroup)
		root.Materials = append(root.Materials, mats...)
		for tier := range cl.Drawable.Models {
			for _, model := range cl.Drawable.Models[tier] {
				for _, geom := range model.Geometries {
					mesh, err := ydr.MeshFromGeometry(geom)
					if err != nil {
						return err
					}
					if geom.ShaderIndex >= 0 && int(geom.ShaderIndex) < len(mats) {
						mesh.Material = mats[geom.ShaderIndex]
					}
					if cn.Mesh == nil {
						cn.Mesh = mesh
					}
				}
			}
			break
		}
	}
	if cl.Controller == nil || cl.Controller.Bridge == nil || cn.Mesh == nil {
		return nil
	}
	br := cl.Controller.Bridge
	verlet := cl.Controller.ClothHigh
	n := len(cn.Mesh.Positions)
	props.Pinned = make([]bool, n)
	props.Weights = make([]float32, n)
	props.InflationScale = make([]float32, n)
	props.PinRadius = make([]float32, n)
	for i := 0; i < n && i < len(br.DisplayMapHigh); i++ {
		ci := br.DisplayMapHigh[i]
		if verlet != nil {
			props.Pinned[i] = int64(ci) < verlet.PinnedVerticesCount
		}
		if ci < len(br.VertexWeightsHigh) {
			props.Weights[i] = br.VertexWeightsHigh[ci]
		}
		if ci < len(br.InflationScaleHigh) {
			props.InflationScale[i] = br.InflationScaleHigh[ci]
		}
		if ci < len(br.PinRadiusHigh) {
			props.PinRadius[i] = br.PinRadiusHigh[ci]
		}
	}
	return nil
}

// NodeToFragment collapses a scene tree back into a fragment.
func NodeToFragment(root *scene.Node, name string) (*cwxml.Fragment, error) {
	return buildFragment(root, name, false)
}

type childRec struct {
	node      *scene.Node
	groupName string
	boundNode *scene.Node
	meshNodes []*scene.Node
}

type groupRec struct {
	node       *scene.Node
	parentName string
	windowNode *scene.Node
	childIdx   []int // indices into childRecs
}

type fragScan struct {
	materials []*scene.Material
	render    []*scene.Node
	groups    []*groupRec
	chRecs    []*childRec
	cloth     *scene.Node
	windows   []*scene.Node // vehicle windows, paired with winOwn
	winOwn    []*childRec
}

func scanFragment(root *scene.Node) *fragScan {
	s := &fragScan{materials: root.Materials}

	var walkNode func(n *scene.Node, group *groupRec, child *childRec)
	walkNode = func(n *scene.Node, group *groupRec, child *childRec) {
		switch {
		case n.Group != nil:
			g := &groupRec{node: n, parentName: n.Group.Parent}
			if g.parentName == "" && group != nil {
				g.parentName = group.node.Name
			}
			s.groups = append(s.groups, g)
			group = g
		case n.Child != nil:
			cr := &childRec{node: n, groupName: n.Child.GroupName}
			if cr.groupName == "" && group != nil {
				cr.groupName = group.node.Name
			}
			if group != nil {
				group.childIdx = append(group.childIdx, len(s.chRecs))
			}
			s.chRecs = append(s.chRecs, cr)
			child = cr
		case n.Cloth != nil:
			if s.cloth == nil {
				s.cloth = n
			}
			return
		case n.Window != nil:
			if n.Window.Vehicle {
				s.windows = append(s.windows, n)
				s.winOwn = append(s.winOwn, child)
			} else if group != nil {
				group.windowNode = n
			}
			return
		case n.Bound != nil:
			if child != nil && child.boundNode == nil {
				child.boundNode = n
			}
			return
		case n.Mesh != nil || n.Light != nil:
			if child != nil {
				child.meshNodes = append(child.meshNodes, n)
			} else if group == nil {
				s.render = append(s.render, n)
			}
		}
		for _, cc := range n.Children {
			walkNode(cc, group, child)
		}
	}
	for _, c := range root.Children {
		walkNode(c, nil, nil)
	}
	return s
}

// applyPaintLayers rewrites matDiffuseColor on paintable materials the
// way vehicle shaders expect: (2, layer, layer, 0).
func applyPaintLayers(mats []*scene.Material, sg *cwxml.ShaderGroup) {
	if sg == nil {
		return
	}
	for i, m := range mats {
		if m.PaintLayer == 0 || i >= len(sg.Shaders) {
			continue
		}
		for _, p := range sg.Shaders[i].Parameters {
			vp, ok := p.(*cwxml.VectorShaderParameter)
			if !ok || vp.Name != "matDiffuseColor" {
				continue
			}
			v := float32(m.PaintLayer)
			vp.Value = mgl32.Vec4{2, v, v, 0}
		}
	}
}

func buildFragment(root *scene.Node, name string, hi bool) (*cwxml.Fragment, error) {
	if root.Name != "" {
		name = root.Name
	}
	if hi && !strings.HasSuffix(name, HiSuffix) {
		name += HiSuffix
	}
	sc := scanFragment(root)

	dRoot := &scene.Node{Name: "skel", Materials: root.Materials, Armature: root.Armature}
	for _, rn := range sc.render {
		mapped, ok := remapLod(rn, hi)
		if !ok {
			continue
		}
		dRoot.Children = append(dRoot.Children, mapped)
	}
	drawable, err := ydr.NodeToDrawable(dRoot, "skel")
	if err != nil {
		return nil, err
	}
	applyPaintLayers(root.Materials, drawable.ShaderGroup)

	f := &cwxml.Fragment{
		Name:                 "pack:/" + name,
		BoundingSphereCenter: drawable.BoundingSphereCenter,
		BoundingSphereRadius: drawable.BoundingSphereRadius,
		GravityFactor:        1,
		BuoyancyFactor:       1,
		Drawable:             drawable,
	}
	f.Lights = drawable.Lights
	drawable.Lights = nil

	var boneWorlds map[int64]mgl32.Mat4
	if root.Armature != nil {
		boneWorlds = make(map[int64]mgl32.Mat4, len(root.Armature.Bones))
		for _, b := range root.Armature.Bones {
			boneWorlds[b.Tag] = b.World
			f.BoneTransforms = append(f.BoneTransforms, cwxml.Matrix34FromMat4(b.World))
		}
	}

	if len(sc.chRecs) != 0 && root.Armature != nil {
		lod, err := buildPhysicsLOD(sc, drawable, boneWorlds, name, hi)
		if err != nil {
			return nil, err
		}
		f.Physics = &cwxml.Physics{LOD1: lod}
		f.GlassWindows = buildGlassWindows(sc, lod)
		if !hi {
			f.VehicleGlassWindows = buildVehicleWindows(sc, drawable, lod)
		}
	}

	if sc.cloth != nil && sc.cloth.Mesh != nil {
		env, err := buildCloth(sc.cloth, name, root)
		if err != nil {
			var limit *cwxml.LimitExceeded
			if !errors.As(err, &limit) {
				return nil, err
			}
			status.Warning("[yft] %s: %v, cloth dropped", name, err)
		} else {
			f.Cloths = []*cwxml.EnvironmentCloth{env}
			if f.Drawable.IsEmpty() {
				f.Drawable = nil
				f.BoundingSphereCenter = env.Drawable.BoundingSphereCenter
				f.BoundingSphereRadius = env.Drawable.BoundingSphereRadius
			}
			if f.Physics == nil {
				f.Physics = dummyPhysics(name)
			}
		}
	}
	return f, nil
}

// remapLod filters a render node for the chosen export: the primary
// document drops the very-high tier, the companion keeps only it.
func remapLod(n *scene.Node, hi bool) (*scene.Node, bool) {
	if n.Mesh == nil {
		return n, !hi
	}
	if hi {
		if n.Lod != -1 {
			return nil, false
		}
		c := *n
		c.Lod = 0
		return &c, true
	}
	if n.Lod < 0 {
		return nil, false
	}
	return n, true
}

func buildPhysicsLOD(sc *fragScan, drawable *cwxml.Drawable,
	boneWorlds map[int64]mgl32.Mat4, name string, hi bool) (*cwxml.PhysicsLOD, error) {

	lod := &cwxml.PhysicsLOD{}
	groupIndex := map[string]int64{}
	for i, g := range sc.groups {
		lod.Groups = append(lod.Groups, propsToGroup(g.node.Group, g.node.Name))
		groupIndex[g.node.Name] = int64(i)
	}
	for i, g := range sc.groups {
		if g.parentName == "" {
			continue
		}
		pi, ok := groupIndex[g.parentName]
		if !ok {
			return nil, errors.WithStack(&cwxml.ReferentialError{
				Kind: "parent group", Name: g.parentName})
		}
		lod.Groups[i].ParentIndex = pi
	}

	comp := &cwxml.BoundComposite{}
	comp.UnkType = 2
	comp.CompositeTransform = cwxml.Matrix4Identity()

	for _, cr := range sc.chRecs {
		if cr.boundNode == nil {
			return nil, errors.WithStack(&cwxml.ReferentialError{
				Kind: "child bound", Name: cr.node.Name})
		}
		b, err := ybn.NodeToBound(cr.boundNode)
		if err != nil {
			return nil, err
		}
		b.Common().UnkType = 2
		comp.Children = append(comp.Children, b)

		gi, ok := groupIndex[cr.groupName]
		if !ok {
			return nil, errors.WithStack(&cwxml.ReferentialError{
				Kind: "physics group", Name: cr.groupName})
		}
		child := &cwxml.PhysicsChild{
			GroupIndex:   gi,
			BoneTag:      cr.node.Child.BoneTag,
			PristineMass: cr.node.Child.Mass,
			DamagedMass:  cr.node.Child.Mass,
			Drawable:     buildChildDrawable(cr, sc.materials, hi),
		}
		lod.Children = append(lod.Children, child)
	}
	compositeExtents(comp)

	lod.Archetype = &cwxml.Archetype{
		Name:      name,
		Unknown48: 1,         // gravity factor
		Unknown4C: 150,       // max speed
		Unknown50: 6.2831853, // max angular speed
		Unknown54: 1,         // buoyancy factor
		Bounds:    comp,
	}

	if err := derivePhysicsLOD(lod, drawable.Skeleton, drawable.Joints, boneWorlds); err != nil {
		return nil, err
	}
	return lod, nil
}

func buildChildDrawable(cr *childRec, mats []*scene.Material, hi bool) *cwxml.Drawable {
	d := &cwxml.Drawable{}
	var min, max mgl32.Vec3
	first := true
	for _, mn := range cr.meshNodes {
		if mn.Mesh == nil {
			continue
		}
		mapped, ok := remapLod(mn, hi)
		if !ok {
			continue
		}
		tier := mapped.Lod
		if tier < 0 || tier >= len(d.Models) {
			tier = 0
		}
		layout := "GTAV1"
		if len(mapped.Mesh.Tangents) != 0 {
			layout = "GTAV2"
		}
		shaderIndex := materialIndex(mats, mapped.Mesh.Material)
		if shaderIndex < 0 {
			shaderIndex = 0
		}
		geom := ydr.GeometryFromMesh(mapped.Mesh, shaderIndex, layout)
		model := &cwxml.DrawableModel{RenderMask: 255}
		model.Geometries = append(model.Geometries, geom)
		d.Models[tier] = append(d.Models[tier], model)
		for _, v := range mapped.Mesh.Positions {
			if first {
				min, max, first = v, v, false
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
	}
	if !first {
		d.BoundingBoxMin, d.BoundingBoxMax = min, max
		center := min.Add(max).Mul(0.5)
		d.BoundingSphereCenter = center
		d.BoundingSphereRadius = max.Sub(center).Len()
	}
	return d
}

// compositeExtents grows the composite's box around its children's
// world-space boxes.
func compositeExtents(comp *cwxml.BoundComposite) {
	var min, max mgl32.Vec3
	first := true
	for _, b := range comp.Children {
		if b == nil {
			continue
		}
		c := b.Common()
		world := c.CompositeTransform.Mat4().Transpose()
		for corner := 0; corner < 8; corner++ {
			p := mgl32.Vec3{c.BoxMin[0], c.BoxMin[1], c.BoxMin[2]}
			if corner&1 != 0 {
				p[0] = c.BoxMax[0]
			}
			if corner&2 != 0 {
				p[1] = c.BoxMax[1]
			}
			if corner&4 != 0 {
				p[2] = c.BoxMax[2]
			}
			w := world.Mul4x1(p.Vec4(1)).Vec3()
			if first {
				min, max, first = w, w, false
				continue
			}
			for i := 0; i < 3; i++ {
				if w[i] < min[i] {
					min[i] = w[i]
				}
				if w[i] > max[i] {
					max[i] = w[i]
				}
			}
		}
	}
	if first {
		return
	}
	comp.BoxMin, comp.BoxMax = min, max
	center := min.Add(max).Mul(0.5)
	comp.BoxCenter = center
	comp.SphereCenter = center
	comp.SphereRadius = max.Sub(center).Len()
}

// material tables are small, a scan beats carrying a map around
func materialIndex(mats []*scene.Material, m *scene.Material) int64 {
	for i, c := range mats {
		if c == m {
			return int64(i)
		}
	}
	return -1
}

func buildGlassWindows(sc *fragScan, lod *cwxml.PhysicsLOD) []*cwxml.GlassWindow {
	var out []*cwxml.GlassWindow
	for gi, g := range sc.groups {
		wn := g.windowNode
		if wn == nil {
			continue
		}
		var col *scene.Node
		for _, ci := range g.childIdx {
			if sc.chRecs[ci].boundNode != nil {
				col = sc.chRecs[ci].boundNode
				break
			}
		}
		if wn.Mesh == nil || col == nil {
			status.Warning("[yft] glass window %q is missing the mesh or collision, skipping", g.node.Name)
			continue
		}
		shaderIndex := materialIndex(sc.materials, wn.Mesh.Material)
		if shaderIndex < 0 {
			status.Warning("[yft] glass window %q mesh is missing a material", g.node.Name)
		}
		gw, err := BuildGlassWindow(g.node.Name, wn.Mesh, wn.Transform,
			col.Bound, col.Transform, wn.Window.GlassType, shaderIndex)
		if err != nil {
			status.Warning("[yft] glass window %q: %v, skipping", g.node.Name, err)
			continue
		}
		lod.Groups[gi].GlassWindowIndex = int64(len(out))
		out = append(out, gw)
	}
	return out
}

func buildVehicleWindows(sc *fragScan,
	drawable *cwxml.Drawable, lod *cwxml.PhysicsLOD) []*cwxml.Window {

	childByTag := map[int64]int64{}
	for i, c := range lod.Children {
		if _, seen := childByTag[c.BoneTag]; !seen {
			childByTag[c.BoneTag] = int64(i)
		}
	}

	var out []*cwxml.Window
	for wi, wn := range sc.windows {
		var childIndex int64 = -1
		if own := sc.winOwn[wi]; own != nil {
			ci, ok := childByTag[own.node.Child.BoneTag]
			if !ok {
				status.Warning("[yft] no physics child for vehicle window %q, skipping", wn.Name)
				continue
			}
			childIndex = ci
		} else if wn.Window.ItemId < int64(len(lod.Children)) {
			childIndex = wn.Window.ItemId
		}
		if childIndex < 0 {
			status.Warning("[yft] no physics child for vehicle window %q, skipping", wn.Name)
			continue
		}
		geometryIndex := windowGeometryIndex(drawable, sc.materials, wn)
		w, err := BuildVehicleWindow(wn, wn.Transform, childIndex, geometryIndex)
		if err != nil {
			status.Warning("[yft] vehicle window %q: %v, skipping", wn.Name, err)
			continue
		}
		out = append(out, w)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ItemId < out[j].ItemId })
	return out
}

// windowGeometryIndex finds the high-detail geometry drawn with the
// window's glass material.
func windowGeometryIndex(d *cwxml.Drawable, mats []*scene.Material, wn *scene.Node) int64 {
	if wn.Mesh == nil || wn.Mesh.Material == nil {
		return 0
	}
	shaderIndex := materialIndex(mats, wn.Mesh.Material)
	for _, model := range d.Models[0] {
		for gi, geom := range model.Geometries {
			if geom.ShaderIndex == shaderIndex {
				return int64(gi)
			}
		}
	}
	return 0
}

func buildCloth(cn *scene.Node, name string, root *scene.Node) (*cwxml.EnvironmentCloth, error) {
	mesh := cn.Mesh
	layout := "GTAV3"
	if len(mesh.Tangents) != 0 {
		layout = "GTAV2"
	}
	cd := &cwxml.Drawable{Name: name + "_cloth"}
	var shaderIndex int64
	if mesh.Material != nil {
		cd.ShaderGroup = ydr.ShaderGroupFromMaterials([]*scene.Material{mesh.Material})
	}
	geom := ydr.GeometryFromMesh(mesh, shaderIndex, layout)
	model := &cwxml.DrawableModel{RenderMask: 255}
	model.Geometries = append(model.Geometries, geom)
	cd.Models[0] = append(cd.Models[0], model)
	cd.BoundingBoxMin, cd.BoundingBoxMax = geom.BoundingBoxMin, geom.BoundingBoxMax
	center := cd.BoundingBoxMin.Add(cd.BoundingBoxMax).Mul(0.5)
	cd.BoundingSphereCenter = center
	cd.BoundingSphereRadius = cd.BoundingBoxMax.Sub(center).Len()
	cd.LodDistHigh = ydr.DefaultLodDist
	cd.FlagsHigh = 1

	props := cn.Cloth
	if props == nil {
		props = &scene.ClothProps{}
	}
	return BuildEnvironmentCloth(name, mesh, props, cd)
}
