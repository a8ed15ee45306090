package ydd

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/arifsezeraktas/Sollumz/asset"
	"github.com/arifsezeraktas/Sollumz/config"
	"github.com/arifsezeraktas/Sollumz/cwxml"
)

func skeletonWithBone(name string, tag int64) *cwxml.Skeleton {
	sk := cwxml.NewSkeleton()
	sk.Bones = append(sk.Bones, &cwxml.Bone{
		Name:         name,
		Tag:          tag,
		ParentIndex:  -1,
		SiblingIndex: -1,
		Scale:        mgl32.Vec3{1, 1, 1},
	})
	return sk
}

func TestExternalArmatureFromDictionary(t *testing.T) {
	dd := &cwxml.DrawableDictionary{
		Drawables: []*cwxml.Drawable{
			{Name: "bare"},
			{Name: "rigged", Skeleton: skeletonWithBone("root", 23)},
		},
	}
	arm := externalArmature(dd, "ignored.ydd.xml", config.Default())
	if arm == nil {
		t.Fatal("expected the dictionary's own skeleton")
	}
	if len(arm.Bones) != 1 || arm.Bones[0].Tag != 23 {
		t.Errorf("armature bones = %v, want the tag 23 bone", arm.Bones)
	}
}

func TestExternalArmatureFromNeighbourFragment(t *testing.T) {
	dir := t.TempDir()
	frag := &cwxml.Fragment{
		Name:     "pack:/donor",
		Drawable: &cwxml.Drawable{Name: "skel", Skeleton: skeletonWithBone("chassis", 7)},
	}
	fragPath := filepath.Join(dir, "donor.yft.xml")
	if err := asset.WriteDocumentFile(fragPath, frag.Serialize("Fragment")); err != nil {
		t.Fatalf("writing donor fragment: %v", err)
	}

	dd := &cwxml.DrawableDictionary{Drawables: []*cwxml.Drawable{{Name: "bare"}}}
	arm := externalArmature(dd, filepath.Join(dir, "props.ydd.xml"), config.Default())
	if arm == nil {
		t.Fatal("expected the neighbouring fragment's skeleton")
	}
	if len(arm.Bones) != 1 || arm.Bones[0].Tag != 7 {
		t.Errorf("armature bones = %v, want the tag 7 bone", arm.Bones)
	}
}

func TestExternalArmatureAbsent(t *testing.T) {
	dd := &cwxml.DrawableDictionary{Drawables: []*cwxml.Drawable{{Name: "bare"}}}
	if arm := externalArmature(dd, filepath.Join(t.TempDir(), "x.ydd.xml"), config.Default()); arm != nil {
		t.Errorf("armature = %v, want nil when no skeleton exists anywhere", arm)
	}
}
