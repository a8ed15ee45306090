// Package web serves the asset browser: a JSON view of the asset tree,
// raw and converted dumps per asset, and a websocket status feed.
package web

import (
	"log"
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/arifsezeraktas/Sollumz/config"
)

var serverSettings *config.Settings

// NewRouter builds the route table; split out of StartServer so tests
// can drive it without a listener.
func NewRouter(s *config.Settings, webPath string) http.Handler {
	serverSettings = s

	r := mux.NewRouter()
	r.HandleFunc("/json/tree", HandlerTree)
	r.HandleFunc("/json/asset", HandlerAsset)
	r.HandleFunc("/dump/asset", HandlerDumpAsset)
	r.HandleFunc("/ws/status", HandlerStatusWebsocket)

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))

	h := handlers.RecoveryHandler()(r)
	h = handlers.CompressHandler(h)
	return h
}

func StartServer(s *config.Settings, webPath string) error {
	h := handlers.LoggingHandler(os.Stdout, NewRouter(s, webPath))

	log.Printf("[web] Starting server %v", s.ListenAddr)

	return http.ListenAndServe(s.ListenAddr, h)
}
