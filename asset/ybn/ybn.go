// Package ybn handles standalone collision files (.ybn.xml) and lends
// its bound conversion to the drawable and fragment packages.
package ybn

import (
	"path/filepath"
	"strings"

	"github.com/arifsezeraktas/Sollumz/asset"
	"github.com/arifsezeraktas/Sollumz/config"
	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
)

const Extension = ".ybn.xml"

type handler struct{}

func init() {
	asset.SetHandler(Extension, handler{})
}

func baseName(path string) string {
	name := filepath.Base(path)
	for {
		ext := filepath.Ext(name)
		if ext == "" {
			return name
		}
		name = strings.TrimSuffix(name, ext)
	}
}

func (handler) LoadRaw(path string, s *config.Settings) (*cwxml.Node, error) {
	return asset.ReadDocumentFile(path, s)
}

func (h handler) Load(path string, s *config.Settings) (*scene.Node, error) {
	root, err := h.LoadRaw(path, s)
	if err != nil {
		return nil, err
	}
	var f cwxml.BoundsFile
	if err := f.Parse(root); err != nil {
		return nil, err
	}
	if f.Bounds == nil {
		return scene.NewNode(baseName(path)), nil
	}
	return BoundToNode(f.Bounds, baseName(path)), nil
}

func (handler) Save(root *scene.Node, path string, s *config.Settings) error {
	b, err := NodeToBound(root)
	if err != nil {
		return err
	}
	f := cwxml.BoundsFile{Bounds: b}
	return asset.WriteDocumentFile(path, f.Serialize())
}
