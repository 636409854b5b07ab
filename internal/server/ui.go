package server

import (
	"io/fs"
	"net/http"
	"strings"
)

const indexPage = "index.html"

// uiFS is the front-end bundle, nil when the binary was built without one.
var uiFS fs.FS

// SetUI installs the front-end bundle. Call it before New.
func SetUI(fsys fs.FS) {
	uiFS = fsys
}

// spaHandler serves bundle files as they are. Any other path, directories
// included, gets index.html so views like /timeline load from a deep link.
// index.html is never cached, so a rebuilt bundle shows up on reload.
func spaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if uiFS == nil {
			writeErrorMessage(w, http.StatusNotFound, "ui not embedded")
			return
		}

		name := strings.TrimPrefix(r.URL.Path, "/")
		if info, err := fs.Stat(uiFS, name); name == "" || err != nil || info.IsDir() {
			name = indexPage
		}
		if name == indexPage {
			w.Header().Set("Cache-Control", "no-cache")
		}
		http.ServeFileFS(w, r, uiFS, name)
	}
}
