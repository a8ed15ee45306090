package yft

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/arifsezeraktas/Sollumz/cwxml"
)

func boxBound(center mgl32.Vec3, inertia mgl32.Vec3, volume float32) cwxml.Bound {
	b := &cwxml.BoundBox{}
	b.SphereCenter = center
	b.Inertia = inertia
	b.Volume = volume
	b.CompositeTransform = cwxml.Matrix4Identity()
	return b
}

func TestComputeGroupMasses(t *testing.T) {
	groups := []*cwxml.PhysicsGroup{{Name: "a"}, {Name: "b"}}
	children := []*cwxml.PhysicsChild{
		{GroupIndex: 0, PristineMass: 2},
		{GroupIndex: 1, PristineMass: 3},
		{GroupIndex: 0, PristineMass: 5},
	}
	computeGroupMasses(groups, children)
	if groups[0].Mass != 7 {
		t.Errorf("group a mass = %v, want 7", groups[0].Mass)
	}
	if groups[1].Mass != 3 {
		t.Errorf("group b mass = %v, want 3", groups[1].Mass)
	}
}

func TestSortChildrenByGroupIsStable(t *testing.T) {
	children := []*cwxml.PhysicsChild{
		{GroupIndex: 1, BoneTag: 10},
		{GroupIndex: 0, BoneTag: 20},
		{GroupIndex: 1, BoneTag: 30},
	}
	bounds := []cwxml.Bound{
		boxBound(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{}, 0),
		boxBound(mgl32.Vec3{2, 0, 0}, mgl32.Vec3{}, 0),
		boxBound(mgl32.Vec3{3, 0, 0}, mgl32.Vec3{}, 0),
	}
	outC, outB := sortChildrenByGroup(children, bounds)
	wantTags := []int64{20, 10, 30}
	for i, want := range wantTags {
		if outC[i].BoneTag != want {
			t.Errorf("child %d: bone tag %d, want %d", i, outC[i].BoneTag, want)
		}
	}
	// bounds must follow their children
	if c := outB[0].Common().SphereCenter; c[0] != 2 {
		t.Errorf("bound 0 center x = %v, want 2", c[0])
	}
	if c := outB[1].Common().SphereCenter; c[0] != 1 {
		t.Errorf("bound 1 center x = %v, want 1", c[0])
	}
}

func TestFormLinks(t *testing.T) {
	groups := []*cwxml.PhysicsGroup{
		{Name: "chassis", ParentIndex: cwxml.NoParentGroup},
		{Name: "door", ParentIndex: 0},
		{Name: "handle", ParentIndex: 1},
	}
	children := []*cwxml.PhysicsChild{
		{GroupIndex: 0, BoneTag: 100},
		{GroupIndex: 1, BoneTag: 200},
		{GroupIndex: 2, BoneTag: 300},
	}
	bones := map[int64]*cwxml.Bone{
		100: {Tag: 100},
		200: {Tag: 200, Flags: []string{"LimitRotation"}},
		300: {Tag: 300},
	}
	joints := &cwxml.Joints{RotationLimits: []*cwxml.JointLimit{{BoneId: 200}}}

	links, nLinks, err := formLinks(groups, children, bones, joints)
	if err != nil {
		t.Fatalf("formLinks: %v", err)
	}
	if nLinks != 2 {
		t.Fatalf("nLinks = %d, want 2", nLinks)
	}
	// the jointed door opens a link, the handle rides it
	want := []int{0, 1, 1}
	for gi, w := range want {
		if links[gi] != w {
			t.Errorf("group %d link = %d, want %d", gi, links[gi], w)
		}
	}
}

func TestFormLinksWithoutJointEntry(t *testing.T) {
	// a limit flag alone does not open a link, the joints table must
	// carry a matching entry too
	groups := []*cwxml.PhysicsGroup{
		{Name: "chassis", ParentIndex: cwxml.NoParentGroup},
		{Name: "door", ParentIndex: 0},
	}
	children := []*cwxml.PhysicsChild{
		{GroupIndex: 0, BoneTag: 100},
		{GroupIndex: 1, BoneTag: 200},
	}
	bones := map[int64]*cwxml.Bone{
		100: {Tag: 100},
		200: {Tag: 200, Flags: []string{"LimitRotation"}},
	}
	links, nLinks, err := formLinks(groups, children, bones, &cwxml.Joints{})
	if err != nil {
		t.Fatalf("formLinks: %v", err)
	}
	if nLinks != 1 || links[1] != 0 {
		t.Errorf("links = %v nLinks = %d, want door on root link", links, nLinks)
	}
}

func TestLinkCentersWeightsByMass(t *testing.T) {
	children := []*cwxml.PhysicsChild{
		{GroupIndex: 0, PristineMass: 1},
		{GroupIndex: 0, PristineMass: 3},
	}
	bounds := []cwxml.Bound{
		boxBound(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{}, 0),
		boxBound(mgl32.Vec3{4, 0, 0}, mgl32.Vec3{}, 0),
	}
	cgs := linkCenters(1, []int{0}, children, bounds, mgl32.Vec3{0, 0, 1})
	if got := cgs[0]; got[0] != 3 || got[2] != 1 {
		t.Errorf("root cg = %v, want (3, 0, 1)", got)
	}
}

func TestDerivePhysicsLOD(t *testing.T) {
	lod := &cwxml.PhysicsLOD{
		Groups: []*cwxml.PhysicsGroup{
			{Name: "root", ParentIndex: cwxml.NoParentGroup},
		},
		Children: []*cwxml.PhysicsChild{
			{GroupIndex: 0, BoneTag: 0, PristineMass: 2},
		},
		Archetype: &cwxml.Archetype{Name: "prop"},
	}
	comp := &cwxml.BoundComposite{}
	comp.Children = []cwxml.Bound{
		boxBound(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 2, 3}, 4),
	}
	lod.Archetype.Bounds = comp

	if err := derivePhysicsLOD(lod, nil, nil, nil); err != nil {
		t.Fatalf("derivePhysicsLOD: %v", err)
	}

	if lod.Groups[0].Mass != 2 {
		t.Errorf("group mass = %v, want 2", lod.Groups[0].Mass)
	}
	arch := lod.Archetype
	if arch.Mass != 2 || arch.MassInv != 0.5 {
		t.Errorf("archetype mass = %v inv = %v, want 2 / 0.5", arch.Mass, arch.MassInv)
	}
	if got := lod.PositionOffset; got != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("position offset = %v, want (0, 1, 0)", got)
	}
	if lod.Unknown40 != lod.PositionOffset {
		t.Errorf("Unknown40 = %v, want the position offset", lod.Unknown40)
	}

	c := lod.Children[0]
	if c.InertiaTensor != (mgl32.Vec4{2, 4, 6, 8}) {
		t.Errorf("child inertia = %v, want (2, 4, 6, 8)", c.InertiaTensor)
	}
	// single child at the cg: no parallel-axis term
	if arch.InertiaTensor != (mgl32.Vec3{2, 4, 6}) {
		t.Errorf("archetype inertia = %v, want (2, 4, 6)", arch.InertiaTensor)
	}
	if math.Abs(float64(arch.InertiaTensorInv[1]-0.25)) > 1e-6 {
		t.Errorf("archetype inertia inv y = %v, want 0.25", arch.InertiaTensorInv[1])
	}

	if lod.Unknown18 != 6 {
		t.Errorf("largest inertia = %v, want 6", lod.Unknown18)
	}
	if math.Abs(float64(lod.Unknown14-6.0/10000)) > 1e-9 {
		t.Errorf("smallest inertia = %v, want largest/10000", lod.Unknown14)
	}

	if len(lod.Transforms) != 1 {
		t.Fatalf("transforms = %d, want 1", len(lod.Transforms))
	}
	// offset from the bound to the link cg, transposed, 4th column zero
	want := cwxml.Matrix4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, -1, 0, 0},
	}
	if lod.Transforms[0] != want {
		t.Errorf("transform = %v, want %v", lod.Transforms[0], want)
	}
}

func TestDerivePhysicsLODBoundCountMismatch(t *testing.T) {
	lod := &cwxml.PhysicsLOD{
		Groups:    []*cwxml.PhysicsGroup{{Name: "root", ParentIndex: cwxml.NoParentGroup}},
		Children:  []*cwxml.PhysicsChild{{GroupIndex: 0}},
		Archetype: &cwxml.Archetype{Bounds: &cwxml.BoundComposite{}},
	}
	if err := derivePhysicsLOD(lod, nil, nil, nil); err == nil {
		t.Error("expected an error for bound/child count mismatch")
	}
}
