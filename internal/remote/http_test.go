package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPStoreFetch(t *testing.T) {
	var gotUserAgent string
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/bucket/hero1.mp4":
			_, _ = w.Write([]byte("hero-bytes"))
		case "/bucket/broken.mp4":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer origin.Close()

	s := NewHTTPStore(origin.URL+"/bucket/", nil)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rc, size, err := s.Fetch(ctx, "hero1.mp4")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		defer func() { _ = rc.Close() }()

		body, _ := io.ReadAll(rc)
		if string(body) != "hero-bytes" {
			t.Errorf("Expected hero-bytes, got %q", body)
		}
		if size != int64(len("hero-bytes")) {
			t.Errorf("Expected size %d, got %d", len("hero-bytes"), size)
		}
		if !strings.HasPrefix(gotUserAgent, "mediacache/") {
			t.Errorf("Expected descriptive user agent, got %q", gotUserAgent)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, _, err := s.Fetch(ctx, "missing.mp4")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		_, _, err := s.Fetch(ctx, "broken.mp4")
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("Expected StatusError, got %v", err)
		}
		if statusErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", statusErr.StatusCode)
		}
		if errors.Is(err, ErrNotFound) {
			t.Error("Server error must not be ErrNotFound")
		}
	})
}
