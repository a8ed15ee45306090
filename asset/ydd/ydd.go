// Package ydd bridges drawable dictionaries (.ydd.xml) and the scene
// graph. Skinned members without a skeleton of their own borrow one
// from the dictionary, or from a fragment sitting next to the file.
package ydd

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arifsezeraktas/Sollumz/asset"
	"github.com/arifsezeraktas/Sollumz/asset/ydr"
	"github.com/arifsezeraktas/Sollumz/config"
	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
	"github.com/arifsezeraktas/Sollumz/status"
)

const Extension = ".ydd.xml"

const fragmentExtension = ".yft.xml"

type handler struct{}

func init() {
	asset.SetHandler(Extension, handler{})
}

func (handler) LoadRaw(path string, s *config.Settings) (*cwxml.Node, error) {
	return asset.ReadDocumentFile(path, s)
}

func (h handler) Load(path string, s *config.Settings) (*scene.Node, error) {
	doc, err := h.LoadRaw(path, s)
	if err != nil {
		return nil, err
	}
	var dd cwxml.DrawableDictionary
	if err := dd.Parse(doc); err != nil {
		return nil, err
	}

	root := scene.NewNode(ydr.BaseName(path))
	external := externalArmature(&dd, path, s)

	for _, d := range dd.Drawables {
		dn, err := ydr.DrawableToNode(d, d.Name)
		if err != nil {
			return nil, err
		}
		if dn.Armature == nil && needsArmature(d) {
			dn.Armature = external
		}
		root.Materials = append(root.Materials, dn.Materials...)
		root.AddChild(dn)
	}
	return root, nil
}

func (handler) Save(root *scene.Node, path string, s *config.Settings) error {
	dd := &cwxml.DrawableDictionary{}
	for _, child := range root.Children {
		d, err := ydr.NodeToDrawable(child, child.Name)
		if err != nil {
			return err
		}
		dd.Drawables = append(dd.Drawables, d)
	}
	return asset.WriteDocumentFile(path, dd.Serialize("DrawableDictionary"))
}

func needsArmature(d *cwxml.Drawable) bool {
	for tier := range d.Models {
		for _, m := range d.Models[tier] {
			if m.HasSkin != 0 {
				return true
			}
		}
	}
	return false
}

// externalArmature resolves the shared skeleton: the dictionary's own
// first non-empty skeleton wins, else the first fragment document in
// the same directory lends its one.
func externalArmature(dd *cwxml.DrawableDictionary, path string, s *config.Settings) *scene.Armature {
	if sk := dd.FirstSkeleton(); sk != nil {
		return ydr.ArmatureFromSkeleton(sk)
	}
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), fragmentExtension) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		doc, err := asset.ReadDocumentFile(filepath.Join(dir, name), s)
		if err != nil {
			status.Warning("[ydd] skipping skeleton donor %s: %v", name, err)
			continue
		}
		var f cwxml.Fragment
		if err := f.Parse(doc); err != nil {
			status.Warning("[ydd] skipping skeleton donor %s: %v", name, err)
			continue
		}
		if f.Drawable != nil && f.Drawable.Skeleton != nil && len(f.Drawable.Skeleton.Bones) != 0 {
			return ydr.ArmatureFromSkeleton(f.Drawable.Skeleton)
		}
	}
	return nil
}
