package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtmedia/mediacache/internal/cache"
	"github.com/veldtmedia/mediacache/internal/catalog"
	"github.com/veldtmedia/mediacache/internal/remote"
)

func newTestRouter(t *testing.T, files map[string]string) (http.Handler, *cache.Manager) {
	t.Helper()
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/bucket/")
		content, ok := files[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(content))
	}))
	t.Cleanup(origin.Close)

	rem := remote.NewHTTPStore(origin.URL+"/bucket", nil)
	m := cache.New(t.TempDir(), rem, &catalog.StaticCatalog{}, cache.Limits{})
	require.False(t, m.Disabled())
	return NewRouter(m, rem), m
}

func TestServeMedia(t *testing.T) {
	router, _ := newTestRouter(t, map[string]string{
		"hero1.mp4": "0123456789",
		"thumb.jpg": "jpeg-bytes",
	})

	t.Run("MissThenServe", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/video/hero1.mp4", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "0123456789", w.Body.String())
	})

	t.Run("RangeRequest", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/video/hero1.mp4", nil)
		req.Header.Set("Range", "bytes=2-5")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusPartialContent, w.Code)
		assert.Equal(t, "2345", w.Body.String())
		assert.Equal(t, "bytes 2-5/10", w.Header().Get("Content-Range"))
	})

	t.Run("ImageKind", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/image/thumb.jpg", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "jpeg-bytes", w.Body.String())
	})

	t.Run("NotFound", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/video/ghost.mp4", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("UnknownKindRejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/audio/track.mp3", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServeMediaPassThroughWhenDisabled(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bucket/hero1.mp4" {
			_, _ = w.Write([]byte("direct-bytes"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer origin.Close()

	rem := remote.NewHTTPStore(origin.URL+"/bucket", nil)

	// Cache root colliding with a plain file disables the cache.
	rootAsFile := filepath.Join(t.TempDir(), "root")
	require.NoError(t, os.WriteFile(rootAsFile, []byte("x"), 0o644))
	m := cache.New(rootAsFile, rem, &catalog.StaticCatalog{}, cache.Limits{})
	require.True(t, m.Disabled())

	router := NewRouter(m, rem)

	req := httptest.NewRequest(http.MethodGet, "/media/video/hero1.mp4", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "direct-bytes", w.Body.String(), "disabled cache must stream through")

	req = httptest.NewRequest(http.MethodGet, "/media/video/ghost.mp4", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminEndpoints(t *testing.T) {
	router, m := newTestRouter(t, map[string]string{"hero1.mp4": "h1"})

	_, err := m.Resolve(context.Background(), "hero1.mp4", catalog.KindVideo)
	require.NoError(t, err)

	t.Run("Stats", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/cache/stats", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), `"items":1`)
		assert.Contains(t, w.Body.String(), `"byKind"`)
	})

	t.Run("Status", func(t *testing.T) {
		body := strings.NewReader(`{"filenames":["hero1.mp4","ghost.mp4"]}`)
		req := httptest.NewRequest(http.MethodPost, "/admin/cache/status", body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"hero1.mp4":{"cached":true`)
		assert.Contains(t, w.Body.String(), `"ghost.mp4":{"cached":false`)
	})

	t.Run("StatusBadBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/cache/status", strings.NewReader("not json"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Refresh", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/cache/refresh", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		// Empty catalog, nothing critical: the cached hero1 is now stale.
		assert.Contains(t, w.Body.String(), `"removed":["hero1.mp4"]`)
		assert.Contains(t, w.Body.String(), `"cached":[]`)
	})

	t.Run("Clear", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/cache/clear", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"videosRemoved":0`)
	})
}
