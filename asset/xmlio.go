package asset

import (
	"bufio"
	"os"

	"github.com/pkg/errors"

	"github.com/arifsezeraktas/Sollumz/config"
	"github.com/arifsezeraktas/Sollumz/cwxml"
)

// ReadDocumentFile opens and parses one asset XML document, decoding
// through the configured charmap when set.
func ReadDocumentFile(path string, s *config.Settings) (*cwxml.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %q", path)
	}
	defer f.Close()
	root, err := cwxml.ReadDocument(s.DocumentReader(bufio.NewReader(f)))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse %q", path)
	}
	return root, nil
}

// WriteDocumentFile writes the document with header and indentation.
func WriteDocumentFile(path string, root *cwxml.Node) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to create %q", path)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := cwxml.WriteDocument(w, root); err != nil {
		return errors.Wrapf(err, "Failed to write %q", path)
	}
	return w.Flush()
}
