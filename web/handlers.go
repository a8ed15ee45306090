package web

import (
	"bytes"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/arifsezeraktas/Sollumz/asset"
	"github.com/arifsezeraktas/Sollumz/asset/ydr"
	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/exporters"
	"github.com/arifsezeraktas/Sollumz/status"
	"github.com/arifsezeraktas/Sollumz/webutils"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// resolveAssetPath maps a request path onto the served directory,
// refusing anything that climbs out of it.
func resolveAssetPath(rel string) (string, error) {
	rel = filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", errors.Errorf("Bad asset path %q", rel)
	}
	return filepath.Join(serverSettings.AssetDir, rel), nil
}

// HandlerTree lists every loadable asset under the served directory,
// as slash-separated relative paths.
func HandlerTree(w http.ResponseWriter, r *http.Request) {
	files := make([]string, 0)
	err := filepath.WalkDir(serverSettings.AssetDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if _, _, herr := asset.HandlerForPath(path); herr != nil {
			return nil
		}
		rel, rerr := filepath.Rel(serverSettings.AssetDir, path)
		if rerr != nil {
			return rerr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	sort.Strings(files)
	webutils.WriteJson(w, files)
}

// HandlerAsset returns the parsed document of one asset as JSON.
func HandlerAsset(w http.ResponseWriter, r *http.Request) {
	path, err := resolveAssetPath(r.URL.Query().Get("path"))
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	root, err := asset.LoadRaw(path, serverSettings)
	if err != nil {
		log.Printf("[web] Error loading %q: %v", path, err)
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, root)
}

// HandlerDumpAsset downloads one asset converted to the requested
// format: xml (reserialized), yaml, json, glb or fbx.
func HandlerDumpAsset(w http.ResponseWriter, r *http.Request) {
	path, err := resolveAssetPath(r.URL.Query().Get("path"))
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	name := ydr.BaseName(path)
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xml"
	}

	switch format {
	case "xml":
		root, err := asset.LoadRaw(path, serverSettings)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		var buf bytes.Buffer
		if err := cwxml.WriteDocument(&buf, root); err != nil {
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteFile(w, &buf, name+".xml")
	case "json":
		root, err := asset.LoadRaw(path, serverSettings)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteJsonFile(w, root, name)
	case "yaml":
		root, err := asset.LoadRaw(path, serverSettings)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteYamlFile(w, root, name)
	case "glb":
		root, err := asset.Load(path, serverSettings)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		var buf bytes.Buffer
		if err := exporters.SaveGLTF(&buf, root); err != nil {
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteFile(w, &buf, name+".glb")
	case "fbx":
		root, err := asset.Load(path, serverSettings)
		if err != nil {
			webutils.WriteError(w, err)
			return
		}
		var buf bytes.Buffer
		if err := exporters.SaveFBX(&buf, root); err != nil {
			webutils.WriteError(w, err)
			return
		}
		webutils.WriteFile(w, &buf, name+".fbx")
	default:
		webutils.WriteError(w, errors.Errorf("Unknown dump format %q", format))
	}
}

// HandlerStatusWebsocket feeds import/export progress to the browser.
func HandlerStatusWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] ws upgrade error: %v", err)
		return
	}
	status.NewClient(conn)
}
