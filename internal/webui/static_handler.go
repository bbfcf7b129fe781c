package webui

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const landingText = "Saquarema bus API is up. See /api/lines to get started.\n"

// assetTypes lists the file extensions served from public/assets.
var assetTypes = map[string]bool{
	".html": true, ".css": true, ".js": true, ".json": true,
	".png": true, ".jpg": true, ".jpeg": true, ".svg": true,
	".ico": true, ".webmanifest": true,
}

func (webUI *WebUI) publicDir() string {
	if webUI.PublicDir != "" {
		return webUI.PublicDir
	}
	return "./public"
}

// indexHandler serves the front end's index.html when present, otherwise a plain banner.
func (webUI *WebUI) indexHandler(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(webUI.publicDir(), "index.html")
	if stat, err := os.Stat(index); err == nil && !stat.IsDir() {
		http.ServeFile(w, r, index)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(landingText))
}

// staticHandler serves flat file names from public/assets. Lookups go through an
// os.Root so nothing outside the assets directory can be opened.
func (webUI *WebUI) staticHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if !assetTypes[strings.ToLower(filepath.Ext(name))] {
		http.NotFound(w, r)
		return
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		slog.Warn("rejected asset name", slog.String("file", name))
		http.Error(w, "Invalid file name", http.StatusBadRequest)
		return
	}

	root, err := os.OpenRoot(filepath.Join(webUI.publicDir(), "assets"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer root.Close() //nolint:errcheck

	f, err := root.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close() //nolint:errcheck

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, name, stat.ModTime(), f)
}
