package config

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Settings drives both import and export behavior. The zero value plus
// Default() covers everything; a yaml file and CLI flags override.
type Settings struct {
	// Directory served and scanned by the web browser and parsecheck.
	AssetDir string `yaml:"asset_dir"`
	// Charmap name for non-UTF-8 asset XML, empty means UTF-8.
	Encoding string `yaml:"encoding"`
	// Bake node transforms into vertex positions on export.
	ApplyTransforms bool `yaml:"apply_transforms"`
	// Write the _hi companion next to fragment exports.
	ExportHiLOD bool `yaml:"export_hi_lod"`
	// Verify write(read(x)) == read(x) during parsecheck runs.
	RoundTripCheck bool `yaml:"round_trip_check"`
	ListenAddr     string `yaml:"listen_addr"`
}

func Default() *Settings {
	return &Settings{
		AssetDir:    ".",
		ExportHiLOD: true,
		ListenAddr:  ":8000",
	}
}

func Load(path string) (*Settings, error) {
	s := Default()
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrapf(err, "Failed to read settings %q", path)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse settings %q", path)
	}
	if s.Encoding != "" {
		if err := SetEncoding(s.Encoding); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrapf(err, "Failed to marshal settings")
	}
	return ioutil.WriteFile(path, data, 0644)
}

// DocumentReader wraps r with the configured charmap decoder so the XML
// layer always sees UTF-8.
func (s *Settings) DocumentReader(r io.Reader) io.Reader {
	if s.Encoding == "" {
		return r
	}
	return GetEncoding().NewDecoder().Reader(r)
}
