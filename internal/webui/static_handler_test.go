package webui

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticHandler(t *testing.T) {
	publicDir := t.TempDir()
	assetsDir := filepath.Join(publicDir, "assets")
	require.NoError(t, os.MkdirAll(assetsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assetsDir, "app.js"), []byte("console.log('ok')"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(assetsDir, "notes.txt"), []byte("private"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(publicDir, "secret.js"), []byte("SECRET"), 0o644))

	webUI := &WebUI{PublicDir: publicDir}
	mux := http.NewServeMux()
	webUI.SetWebUIRoutes(mux)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"asset", "/assets/app.js", http.StatusOK},
		{"extension not served", "/assets/notes.txt", http.StatusNotFound},
		{"missing asset", "/assets/missing.css", http.StatusNotFound},
		{"dot dot name", "/assets/..js", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "SECRET")
		})
	}
}

func TestIndexHandler(t *testing.T) {
	t.Run("banner without a front end", func(t *testing.T) {
		webUI := &WebUI{PublicDir: t.TempDir()}
		rec := httptest.NewRecorder()
		webUI.indexHandler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, landingText, rec.Body.String())
	})

	t.Run("front end index", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>Saquabus</html>"), 0o644))

		webUI := &WebUI{PublicDir: dir}
		rec := httptest.NewRecorder()
		webUI.indexHandler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Saquabus")
	})
}

func TestStaticHandler_RejectsTraversal(t *testing.T) {
	publicDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(publicDir, "secret.js"), []byte("SECRET"), 0o644))
	webUI := &WebUI{PublicDir: publicDir}

	for _, name := range []string{"../secret.js", `..\secret.js`, "sub/app.js"} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/assets/x.js", nil)
			req.SetPathValue("file", name)
			rec := httptest.NewRecorder()

			webUI.staticHandler(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotContains(t, rec.Body.String(), "SECRET")
		})
	}
}
