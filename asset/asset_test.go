package asset

import (
	"testing"

	"github.com/arifsezeraktas/Sollumz/config"
	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
)

type fakeHandler struct {
	loaded string
}

func (h *fakeHandler) Load(path string, s *config.Settings) (*scene.Node, error) {
	h.loaded = path
	return &scene.Node{Name: "fake"}, nil
}

func (h *fakeHandler) Save(root *scene.Node, path string, s *config.Settings) error {
	return nil
}

func (h *fakeHandler) LoadRaw(path string, s *config.Settings) (*cwxml.Node, error) {
	return &cwxml.Node{Tag: "Fake"}, nil
}

func init() {
	SetHandler(".fk.xml", &fakeHandler{})
	SetHandler(".fakedict.fk.xml", &fakeHandler{})
}

func TestHandlerForPathLongestSuffix(t *testing.T) {
	h1, ext, err := HandlerForPath("props/chair.fk.xml")
	if err != nil {
		t.Fatalf("HandlerForPath: %v", err)
	}
	if ext != ".fk.xml" {
		t.Errorf("ext = %q, want %q", ext, ".fk.xml")
	}
	h2, ext, err := HandlerForPath("props/chairs.fakedict.fk.xml")
	if err != nil {
		t.Fatalf("HandlerForPath: %v", err)
	}
	if ext != ".fakedict.fk.xml" {
		t.Errorf("ext = %q, want %q", ext, ".fakedict.fk.xml")
	}
	if h1 == h2 {
		t.Errorf("longest suffix should win over the shorter registration")
	}
}

func TestHandlerForPathCaseInsensitive(t *testing.T) {
	_, ext, err := HandlerForPath("PROPS/CHAIR.FK.XML")
	if err != nil {
		t.Fatalf("HandlerForPath: %v", err)
	}
	if ext != ".fk.xml" {
		t.Errorf("ext = %q, want %q", ext, ".fk.xml")
	}
}

func TestHandlerForPathUnknown(t *testing.T) {
	if _, _, err := HandlerForPath("readme.txt"); err == nil {
		t.Errorf("expected error for unhandled path")
	}
}

func TestLoadDispatch(t *testing.T) {
	root, err := Load("x.fk.xml", config.Default())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if root.Name != "fake" {
		t.Errorf("Name = %q, want %q", root.Name, "fake")
	}
	h, _, _ := HandlerForPath("x.fk.xml")
	if h.(*fakeHandler).loaded != "x.fk.xml" {
		t.Errorf("handler saw %q", h.(*fakeHandler).loaded)
	}
}

func TestExtensionsSorted(t *testing.T) {
	exts := Extensions()
	for i := 1; i < len(exts); i++ {
		if exts[i-1] >= exts[i] {
			t.Fatalf("extensions not sorted: %v", exts)
		}
	}
}
