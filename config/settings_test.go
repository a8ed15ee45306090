package config

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.AssetDir != "." {
		t.Errorf("AssetDir = %q, want %q", s.AssetDir, ".")
	}
	if !s.ExportHiLOD {
		t.Errorf("ExportHiLOD should default to true")
	}
	if s.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %q, want %q", s.ListenAddr, ":8000")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	src := Default()
	src.AssetDir = "/tmp/assets"
	src.ApplyTransforms = true
	src.ExportHiLOD = false
	src.ListenAddr = ":9001"

	path := filepath.Join(t.TempDir(), "sollumz.yaml")
	if err := src.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *out != *src {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, src)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sollumz.yaml")
	if err := ioutil.WriteFile(path, []byte("asset_dir: /data\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.AssetDir != "/data" {
		t.Errorf("AssetDir = %q, want %q", s.AssetDir, "/data")
	}
	if !s.ExportHiLOD {
		t.Errorf("unset field should keep its default")
	}
}

func TestSetEncodingUnknown(t *testing.T) {
	if err := SetEncoding("KOI-4096"); err == nil {
		t.Errorf("expected error for unknown encoding")
	}
}

func TestDocumentReaderDecodes(t *testing.T) {
	if err := SetEncoding("Windows 1252"); err != nil {
		t.Fatalf("SetEncoding: %v", err)
	}
	s := Default()
	s.Encoding = "Windows 1252"
	// 0xE9 is é in 1252
	r := s.DocumentReader(bytes.NewReader([]byte{'c', 'a', 'f', 0xE9}))
	data, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "café" {
		t.Errorf("decoded %q, want %q", data, "café")
	}
}

func TestListEncodings(t *testing.T) {
	list := ListEncodings()
	if len(list) == 0 {
		t.Fatal("no encodings listed")
	}
	found := false
	for _, name := range list {
		if strings.Contains(name, "1252") {
			found = true
		}
	}
	if !found {
		t.Errorf("Windows 1252 missing from %v", list)
	}
}
