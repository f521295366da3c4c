package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewServerPreloadsCritical(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bucket/hero1.mp4" {
			_, _ = w.Write([]byte("hero"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer origin.Close()

	cacheDir := t.TempDir()
	server, cleanup, err := NewServer(Config{
		Port:         0,
		CacheDir:     cacheDir,
		BucketURL:    origin.URL + "/bucket",
		Critical:     []string{"hero1.mp4"},
		FetchTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer cleanup()

	if server.Handler == nil {
		t.Fatal("Server has no handler")
	}

	// The critical set must be on disk before the listener would accept traffic.
	if _, err := os.Stat(filepath.Join(cacheDir, "videos", "hero1.mp4")); err != nil {
		t.Errorf("Critical asset not preloaded: %v", err)
	}

	// The preloaded asset serves without touching the origin again.
	origin.Close()
	req := httptest.NewRequest(http.MethodGet, "/media/video/hero1.mp4", nil)
	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from warm cache, got %d", w.Code)
	}
	if w.Body.String() != "hero" {
		t.Errorf("Expected hero, got %q", w.Body.String())
	}
}

func TestNewServerConfigErrors(t *testing.T) {
	cases := map[string]Config{
		"MissingBucketURL": {CacheDir: "x", RemoteBackend: "http"},
		"MissingS3Bucket":  {CacheDir: "x", RemoteBackend: "s3"},
		"UnknownBackend":   {CacheDir: "x", RemoteBackend: "ftp", BucketURL: "http://example.com"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			cfg.CacheDir = t.TempDir()
			if _, _, err := NewServer(cfg); err == nil {
				t.Error("Expected configuration error, got nil")
			}
		})
	}
}
