// Package asset is the extension-keyed format registry. Format packages
// register themselves from init(); main selects formats by blank import.
package asset

import (
	"log"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/arifsezeraktas/Sollumz/config"
	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
)

type Handler interface {
	// Load parses the document at path into a scene tree.
	Load(path string, s *config.Settings) (*scene.Node, error)
	// Save serializes the scene tree to a document at path.
	Save(root *scene.Node, path string, s *config.Settings) error
	// LoadRaw returns the parsed document for dump views.
	LoadRaw(path string, s *config.Settings) (*cwxml.Node, error)
}

var handlers map[string]Handler = make(map[string]Handler)

func SetHandler(ext string, h Handler) {
	if _, ok := handlers[ext]; ok {
		log.Panicf("[asset] duplicate handler for %q", ext)
	}
	handlers[ext] = h
}

// HandlerForPath matches the longest registered suffix, so ".yft.xml"
// wins over a hypothetical ".xml".
func HandlerForPath(path string) (Handler, string, error) {
	lower := strings.ToLower(path)
	best := ""
	for ext := range handlers {
		if strings.HasSuffix(lower, ext) && len(ext) > len(best) {
			best = ext
		}
	}
	if best == "" {
		return nil, "", errors.Errorf("No handler for %q", path)
	}
	return handlers[best], best, nil
}

func Load(path string, s *config.Settings) (*scene.Node, error) {
	h, _, err := HandlerForPath(path)
	if err != nil {
		return nil, err
	}
	return h.Load(path, s)
}

func Save(root *scene.Node, path string, s *config.Settings) error {
	h, _, err := HandlerForPath(path)
	if err != nil {
		return err
	}
	return h.Save(root, path, s)
}

func LoadRaw(path string, s *config.Settings) (*cwxml.Node, error) {
	h, _, err := HandlerForPath(path)
	if err != nil {
		return nil, err
	}
	return h.LoadRaw(path, s)
}

func Extensions() []string {
	exts := make([]string, 0, len(handlers))
	for ext := range handlers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
