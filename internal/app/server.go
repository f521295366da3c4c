package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/veldtmedia/mediacache/internal/cache"
	"github.com/veldtmedia/mediacache/internal/catalog"
	"github.com/veldtmedia/mediacache/internal/handler"
	"github.com/veldtmedia/mediacache/internal/remote"
)

// Config carries every knob the serve command exposes. All of it is set
// explicitly at startup; nothing reads configuration after this point.
type Config struct {
	Port          int
	CacheDir      string
	BucketURL     string
	RemoteBackend string // "http" or "s3"
	S3Bucket      string
	CatalogDB     string
	Critical      []string
	MaxItems      int
	PruneTo       int
	SweepInterval time.Duration
	MaxAge        time.Duration
	MaxBytes      int64
	FetchTimeout  time.Duration
}

// NewServer wires remote store, catalog, cache manager and HTTP routes, and
// runs the startup preload before returning so the critical set is warm
// before the listener accepts traffic.
func NewServer(cfg Config) (*http.Server, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())

	rem, err := newRemote(ctx, cfg)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	cat, closeCatalog, err := newCatalog(cfg)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	mgr := cache.New(cfg.CacheDir, rem, cat, cache.Limits{
		MaxItems:      cfg.MaxItems,
		PruneTo:       cfg.PruneTo,
		MaxAge:        cfg.MaxAge,
		MaxBytes:      cfg.MaxBytes,
		SweepInterval: cfg.SweepInterval,
	})

	// Warm the critical set before the first request can arrive.
	mgr.Preload(ctx)
	mgr.StartSweeper(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("Starting media cache server",
		"addr", addr, "cache_dir", cfg.CacheDir, "backend", cfg.RemoteBackend,
		"pass_through", mgr.Disabled())

	server := &http.Server{
		Addr:    addr,
		Handler: handler.NewRouter(mgr, rem),
	}

	cleanup := func() {
		closeCatalog()
		cancel()
	}
	return server, cleanup, nil
}

func newRemote(ctx context.Context, cfg Config) (remote.Store, error) {
	switch cfg.RemoteBackend {
	case "", "http":
		if cfg.BucketURL == "" {
			return nil, fmt.Errorf("bucket-url is required for the http backend")
		}
		client := &http.Client{Timeout: cfg.FetchTimeout}
		return remote.NewHTTPStore(cfg.BucketURL, client), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3-bucket is required for the s3 backend")
		}
		return remote.NewS3Store(ctx, cfg.S3Bucket)
	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.RemoteBackend)
	}
}

func newCatalog(cfg Config) (catalog.Catalog, func(), error) {
	if cfg.CatalogDB == "" {
		slog.Info("No catalog database configured, serving critical set only")
		return &catalog.StaticCatalog{CriticalAssets: cfg.Critical}, func() {}, nil
	}
	cat, err := catalog.OpenSQL(cfg.CatalogDB, cfg.Critical)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog at %s: %w", cfg.CatalogDB, err)
	}
	return cat, func() { _ = cat.Close() }, nil
}
