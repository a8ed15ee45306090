package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/arifsezeraktas/Sollumz/asset"
	"github.com/arifsezeraktas/Sollumz/asset/ydr"
	"github.com/arifsezeraktas/Sollumz/config"
	"github.com/arifsezeraktas/Sollumz/exporters"
	"github.com/arifsezeraktas/Sollumz/utils"
	"github.com/arifsezeraktas/Sollumz/web"

	_ "github.com/arifsezeraktas/Sollumz/asset/ybn"
	_ "github.com/arifsezeraktas/Sollumz/asset/ydd"
	_ "github.com/arifsezeraktas/Sollumz/asset/yft"
	_ "github.com/arifsezeraktas/Sollumz/asset/ynv"
)

func main() {
	var settingsPath, addr, dir, convertPath, format, out, encoding string
	var check, roundtrip, noHi bool
	flag.StringVar(&settingsPath, "settings", "sollumz.yaml", "Path to the settings yaml")
	flag.StringVar(&addr, "i", "", "Address of server, overrides settings")
	flag.StringVar(&dir, "dir", "", "Path to the asset directory")
	flag.StringVar(&convertPath, "convert", "", "Convert one asset and exit")
	flag.StringVar(&format, "format", "glb", "Convert output format: glb, fbx, xml, json, yaml, txt")
	flag.StringVar(&out, "o", "", "Convert output path, next to the input when empty")
	flag.StringVar(&encoding, "encoding", "", "Charmap of non-UTF-8 asset xml")
	flag.BoolVar(&check, "parsecheck", false, "Parse every asset under -dir and report failures")
	flag.BoolVar(&roundtrip, "roundtrip", false, "Verify serialize(parse(x)) == x during -parsecheck")
	flag.BoolVar(&noHi, "nohi", false, "Skip the _hi companion on fragment export")
	flag.Parse()

	s, err := config.Load(settingsPath)
	if err != nil {
		log.Fatal(err)
	}
	if addr != "" {
		s.ListenAddr = addr
	}
	if dir != "" {
		s.AssetDir = dir
	}
	if encoding != "" {
		s.Encoding = encoding
		if err := config.SetEncoding(encoding); err != nil {
			log.Fatal(err)
		}
	}
	if roundtrip {
		s.RoundTripCheck = true
	}
	if noHi {
		s.ExportHiLOD = false
	}

	switch {
	case convertPath != "":
		if err := convert(convertPath, out, format, s); err != nil {
			log.Fatal(err)
		}
	case check:
		if err := parseCheck(s); err != nil {
			log.Fatal(err)
		}
	default:
		if err := web.StartServer(s, "web"); err != nil {
			log.Fatal(err)
		}
	}
}

func convert(in, out, format string, s *config.Settings) error {
	if out == "" {
		out = filepath.Join(filepath.Dir(in), ydr.BaseName(in)+"."+format)
	}

	switch format {
	case "xml":
		root, err := asset.LoadRaw(in, s)
		if err != nil {
			return err
		}
		return asset.WriteDocumentFile(out, root)
	case "json":
		root, err := asset.LoadRaw(in, s)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(root, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(out, data, 0644)
	case "yaml":
		root, err := asset.LoadRaw(in, s)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(root)
		if err != nil {
			return err
		}
		return os.WriteFile(out, data, 0644)
	case "txt":
		// scene tree dump, what the exporters actually see
		root, err := asset.Load(in, s)
		if err != nil {
			return err
		}
		return os.WriteFile(out, []byte(utils.SDump(root)), 0644)
	case "glb", "fbx":
		root, err := asset.Load(in, s)
		if err != nil {
			return err
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		if format == "glb" {
			return exporters.SaveGLTF(f, root)
		}
		return exporters.SaveFBX(f, root)
	default:
		return errors.Errorf("Unknown format %q, supported: glb, fbx, xml, json, yaml, txt", format)
	}
}
