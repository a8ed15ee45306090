package yft

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/utils"
)

// The derivation below runs in a fixed order; every step feeds the
// next. Reordering the steps changes the output mass/inertia chain.

// computeGroupMasses sums each group's mass from the pristine masses of
// its children.
func computeGroupMasses(groups []*cwxml.PhysicsGroup, children []*cwxml.PhysicsChild) {
	for gi, g := range groups {
		g.Mass = 0
		for _, c := range children {
			if int(c.GroupIndex) == gi {
				g.Mass += c.PristineMass
			}
		}
	}
}

// sortChildrenByGroup stable-sorts children and their bounds by group
// index. Both lists move through the same permutation so child i keeps
// owning bound i.
func sortChildrenByGroup(children []*cwxml.PhysicsChild, bounds []cwxml.Bound) ([]*cwxml.PhysicsChild, []cwxml.Bound) {
	perm := make([]int, len(children))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return children[perm[a]].GroupIndex < children[perm[b]].GroupIndex
	})
	outC := make([]*cwxml.PhysicsChild, len(children))
	outB := make([]cwxml.Bound, len(bounds))
	for i, p := range perm {
		outC[i] = children[p]
		if p < len(bounds) {
			outB[i] = bounds[p]
		}
	}
	return outC, outB
}

// firstChildOfGroup returns the index of the first child belonging to
// the group, or -1.
func firstChildOfGroup(children []*cwxml.PhysicsChild, group int) int {
	for i, c := range children {
		if int(c.GroupIndex) == group {
			return i
		}
	}
	return -1
}

// formLinks assigns each group to a rigid link. The root group opens
// link 0; a child group opens a new link only when its first child's
// bone both carries a limit flag and has a matching joint limit entry;
// otherwise it rides its parent's link.
func formLinks(groups []*cwxml.PhysicsGroup, children []*cwxml.PhysicsChild,
	boneByTag map[int64]*cwxml.Bone, joints *cwxml.Joints) ([]int, int, error) {

	links := make([]int, len(groups))
	next := 1
	for gi, g := range groups {
		if g.ParentIndex == cwxml.NoParentGroup {
			links[gi] = 0
			continue
		}
		if int(g.ParentIndex) >= len(groups) {
			return nil, 0, errors.WithStack(&cwxml.ReferentialError{Kind: "parent group", Name: g.Name})
		}
		ci := firstChildOfGroup(children, gi)
		if ci < 0 {
			return nil, 0, errors.WithStack(&cwxml.ReferentialError{Kind: "group children", Name: g.Name})
		}
		bone := boneByTag[children[ci].BoneTag]
		if bone == nil {
			return nil, 0, errors.WithStack(&cwxml.ReferentialError{Kind: "bone tag", Id: int(children[ci].BoneTag)})
		}
		jointed := false
		if joints != nil {
			if bone.HasFlag("LimitRotation") && joints.HasRotationLimit(bone.Tag) {
				jointed = true
			}
			if bone.HasFlag("LimitTranslation") && joints.HasTranslationLimit(bone.Tag) {
				jointed = true
			}
		}
		if jointed {
			links[gi] = next
			next++
		} else {
			links[gi] = links[g.ParentIndex]
		}
	}
	return links, next, nil
}

// linkCenters is the mass-weighted center of gravity per link, from the
// bound world centers of the link's children. The root link gets the
// authored offset added on top.
func linkCenters(nLinks int, links []int, children []*cwxml.PhysicsChild,
	bounds []cwxml.Bound, rootOffset mgl32.Vec3) []mgl32.Vec3 {

	sums := make([]mgl32.Vec3, nLinks)
	masses := make([]float32, nLinks)
	for i, c := range children {
		if i >= len(bounds) || bounds[i] == nil {
			continue
		}
		link := links[c.GroupIndex]
		sums[link] = sums[link].Add(bounds[i].Common().WorldCenter().Mul(c.PristineMass))
		masses[link] += c.PristineMass
	}
	out := make([]mgl32.Vec3, nLinks)
	for l := range out {
		if masses[l] != 0 {
			out[l] = sums[l].Mul(1 / masses[l])
		}
	}
	out[0] = out[0].Add(rootOffset)
	return out
}

// linkAttachment is the per-child transform: the bound's world matrix
// re-centered on its link's CG, stored transposed with a cleared
// projection column.
func linkAttachment(bound cwxml.Bound, linkCG mgl32.Vec3) cwxml.Matrix4 {
	world := bound.Common().CompositeTransform.Mat4().Transpose()
	m := mgl32.Translate3D(-linkCG[0], -linkCG[1], -linkCG[2]).Mul4(world)
	stored := cwxml.Matrix4FromMat4(m.Transpose())
	for r := range stored {
		stored[r][3] = 0
	}
	return stored
}

// childInertia derives the stored inertia 4-vector: bound inertia
// scaled by pristine mass, w carrying the scaled volume.
func childInertia(bound cwxml.Bound, pristineMass float32) mgl32.Vec4 {
	c := bound.Common()
	i := c.Inertia.Mul(pristineMass)
	return mgl32.Vec4{i[0], i[1], i[2], c.Volume * pristineMass}
}

// inertiaLimits: the largest axis value across all child inertias, and
// a smallest fixed four orders of magnitude below it.
func inertiaLimits(children []*cwxml.PhysicsChild) (smallest, largest float32) {
	for _, c := range children {
		v := utils.MaxComponent(c.InertiaTensor.Vec3())
		if v > largest {
			largest = v
		}
	}
	smallest = largest / 10000
	return
}

// childDrawableMatrix is the bone-relative placement of a physics
// child's render mesh.
func childDrawableMatrix(ct cwxml.Matrix4, boneWorld mgl32.Mat4) cwxml.Matrix43 {
	m := ct.Mat4().Mul4(boneWorld.Inv().Transpose())
	return cwxml.Matrix43FromMat4(m)
}

// derivePhysicsLOD runs the whole pipeline in place on a LOD whose
// groups, children and archetype bound children are already populated
// in authoring order.
func derivePhysicsLOD(lod *cwxml.PhysicsLOD, skel *cwxml.Skeleton, joints *cwxml.Joints,
	boneWorlds map[int64]mgl32.Mat4) error {

	if lod.Archetype == nil || lod.Archetype.Bounds == nil {
		return errors.WithStack(&cwxml.ReferentialError{Kind: "archetype bounds", Name: lod.Archetype.Name})
	}
	bounds := lod.Archetype.Bounds.Children
	if len(bounds) != len(lod.Children) {
		return errors.WithStack(&cwxml.SchemaError{Tag: "Children",
			Msg: "archetype bound count disagrees with physics child count"})
	}

	computeGroupMasses(lod.Groups, lod.Children)

	// bone-relative drawable matrices, before any reordering
	childrenPerGroup := make(map[int64][]int)
	for i, c := range lod.Children {
		childrenPerGroup[c.GroupIndex] = append(childrenPerGroup[c.GroupIndex], i)
	}
	for i, c := range lod.Children {
		if c.Drawable == nil || i >= len(bounds) || bounds[i] == nil {
			continue
		}
		world, ok := boneWorlds[c.BoneTag]
		if !ok {
			return errors.WithStack(&cwxml.ReferentialError{Kind: "bone tag", Id: int(c.BoneTag)})
		}
		m := childDrawableMatrix(bounds[i].Common().CompositeTransform, world)
		mc := m
		c.Drawable.Matrix = &mc
		group := childrenPerGroup[c.GroupIndex]
		if len(group) > 1 && group[0] != i {
			// later siblings also collect on the group's first child
			first := lod.Children[group[0]]
			if first.Drawable != nil {
				first.Drawable.MatrixArray = append(first.Drawable.MatrixArray, m)
			}
		}
	}

	lod.Children, lod.Archetype.Bounds.Children = sortChildrenByGroup(lod.Children, bounds)
	bounds = lod.Archetype.Bounds.Children

	var boneByTag map[int64]*cwxml.Bone
	if skel != nil {
		boneByTag = skel.BoneByTag()
	}
	links, nLinks, err := formLinks(lod.Groups, lod.Children, boneByTag, joints)
	if err != nil {
		return err
	}
	cgs := linkCenters(nLinks, links, lod.Children, bounds, lod.Unknown50)
	lod.PositionOffset = cgs[0]
	lod.Unknown40 = cgs[0]

	lod.Transforms = lod.Transforms[:0]
	for i, c := range lod.Children {
		if i >= len(bounds) || bounds[i] == nil {
			return errors.WithStack(&cwxml.ReferentialError{Kind: "child bound", Id: i})
		}
		c.InertiaTensor = childInertia(bounds[i], c.PristineMass)
		lod.Transforms = append(lod.Transforms, linkAttachment(bounds[i], cgs[links[c.GroupIndex]]))
	}

	var totalMass float32
	centers := make([]mgl32.Vec3, len(lod.Children))
	inertias := make([]mgl32.Vec3, len(lod.Children))
	masses := make([]float32, len(lod.Children))
	for i, c := range lod.Children {
		totalMass += c.PristineMass
		centers[i] = bounds[i].Common().WorldCenter()
		inertias[i] = c.InertiaTensor.Vec3()
		masses[i] = c.PristineMass
	}
	arch := lod.Archetype
	arch.Mass = totalMass
	arch.MassInv = utils.SafeInv(totalMass)
	arch.InertiaTensor = utils.CompositeInertia(cgs[0], centers, inertias, masses)
	arch.InertiaTensorInv = utils.SafeInvVec(arch.InertiaTensor)

	lod.Unknown14, lod.Unknown18 = inertiaLimits(lod.Children)
	return nil
}
