package engine

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// indexFile is served for paths that match no file, so client-side routes
// of the dashboard resolve.
const indexFile = "index.html"

// newStaticHandler serves files from dir with an index.html fallback.
// It returns nil when dir does not exist.
func newStaticHandler(dir string) http.Handler {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}
	return staticFS(os.DirFS(dir))
}

func staticFS(fsys fs.FS) http.Handler {
	files := http.FileServerFS(fsys)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = "."
		}
		if servable(fsys, name) {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFileFS(w, r, fsys, indexFile)
	})
}

// servable reports whether name is a file, or a directory with an index.
func servable(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return true
	}
	_, err = fs.Stat(fsys, path.Join(name, indexFile))
	return err == nil
}
