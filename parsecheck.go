package main

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/arifsezeraktas/Sollumz/asset"
	"github.com/arifsezeraktas/Sollumz/asset/ydr"
	"github.com/arifsezeraktas/Sollumz/config"
)

// parseCheck parses every recognized asset under the asset directory and
// reports the failures. With RoundTripCheck set, each parsed tree is also
// serialized back and parsed again.
func parseCheck(s *config.Settings) error {
	var total, failed int
	err := filepath.WalkDir(s.AssetDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		h, ext, err := asset.HandlerForPath(path)
		if err != nil {
			return nil
		}
		total++
		root, err := h.Load(path, s)
		if err != nil {
			failed++
			log.Printf("E %q: %v", path, err)
			return nil
		}
		if s.RoundTripCheck {
			tmp, err := os.CreateTemp("", ydr.BaseName(path)+"-*"+ext)
			if err != nil {
				return err
			}
			tmp.Close()
			defer os.Remove(tmp.Name())
			if err := h.Save(root, tmp.Name(), s); err != nil {
				failed++
				log.Printf("E %q: serialize: %v", path, err)
				return nil
			}
			if _, err := h.Load(tmp.Name(), s); err != nil {
				failed++
				log.Printf("E %q: reparse: %v", path, err)
			}
		}
		return nil
	})
	log.Printf("Checked %d assets, %d failed", total, failed)
	return err
}
