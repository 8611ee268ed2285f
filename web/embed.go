// Package web embeds the static chat page served at the site root.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// Handler serves the chat page. Requests for a missing asset get 404 and any
// path without an extension renders index.html.
func Handler() http.Handler {
	page, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	assets := http.FileServerFS(page)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if path.Ext(name) == "" {
			w.Header().Set("Cache-Control", "no-cache")
			http.ServeFileFS(w, r, page, "index.html")
			return
		}
		assets.ServeHTTP(w, r)
	})
}
