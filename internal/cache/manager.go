package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"github.com/veldtmedia/mediacache/internal/catalog"
	"github.com/veldtmedia/mediacache/internal/errutil"
	"github.com/veldtmedia/mediacache/internal/remote"
	"github.com/veldtmedia/mediacache/internal/store"
)

// ErrDisabled is returned by Resolve when the cache directories could not be
// created at startup. The caller should pass through to the remote store.
var ErrDisabled = errors.New("cache disabled, pass through to remote store")

// Limits holds the capacity knobs.
//
// MaxItems/PruneTo drive the active, count-based pressure relief: when a kind
// directory reaches MaxItems entries, the oldest entries (by mtime) are
// removed until PruneTo remain. MaxAge/MaxBytes only apply to the optional
// background sweep, which stays off unless SweepInterval is positive.
type Limits struct {
	MaxItems      int
	PruneTo       int
	MaxAge        time.Duration
	MaxBytes      int64
	SweepInterval time.Duration
}

// Report lists what a reconciliation pass changed.
type Report struct {
	Removed []string `json:"removed"`
	Cached  []string `json:"cached"`
}

// KindStats is the per-kind slice of Stats.
type KindStats struct {
	Items int   `json:"items"`
	Bytes int64 `json:"bytes"`
}

// Stats summarizes cache contents for the admin UI.
type Stats struct {
	Items      int                  `json:"items"`
	TotalBytes int64                `json:"totalBytes"`
	TotalSize  string               `json:"totalSize"`
	ByKind     map[string]KindStats `json:"byKind"`
}

// Status is the cached/not-cached answer for a single filename.
type Status struct {
	Cached     bool       `json:"cached"`
	Size       int64      `json:"size,omitempty"`
	ModifiedAt *time.Time `json:"modifiedAt,omitempty"`
}

// Manager decides what to cache and when. Its only persistent state is the
// two kind directories; everything else is derived by scanning them.
type Manager struct {
	stores  map[catalog.Kind]*store.Store
	remote  remote.Store
	catalog catalog.Catalog
	limits  Limits

	// g collapses concurrent downloads of the same filename into one
	// remote fetch. The entry clears on completion so a failed fetch can
	// be retried by the next request.
	g singleflight.Group

	// mu serializes the admin operations (refresh, clear) so two
	// reconciliation passes never interleave deletes and downloads.
	mu sync.Mutex

	disabled bool
}

// New builds a manager rooted at cacheRoot, creating the videos/ and images/
// directories. If either cannot be created the manager comes up in
// pass-through mode: the process keeps running, Resolve returns ErrDisabled.
func New(cacheRoot string, rem remote.Store, cat catalog.Catalog, limits Limits) *Manager {
	m := &Manager{
		stores:  make(map[catalog.Kind]*store.Store, 2),
		remote:  rem,
		catalog: cat,
		limits:  limits,
	}

	dirs := map[catalog.Kind]string{
		catalog.KindVideo: filepath.Join(cacheRoot, "videos"),
		catalog.KindImage: filepath.Join(cacheRoot, "images"),
	}
	for kind, dir := range dirs {
		st, err := store.New(dir)
		if err != nil {
			errutil.ReportError(err, "Cache directory unavailable, degrading to pass-through", "dir", dir)
			m.disabled = true
			m.stores = map[catalog.Kind]*store.Store{}
			return m
		}
		m.stores[kind] = st
	}
	return m
}

// Disabled reports whether the manager is in pass-through mode.
func (m *Manager) Disabled() bool {
	return m.disabled
}

// Resolve returns the local path for name, downloading it first on a miss.
//
// Concurrent resolves of the same filename share one download. Download
// failures are not retried here; the caller decides between streaming
// through and failing the request. remote.ErrNotFound is passed through so
// the proxy can answer 404.
func (m *Manager) Resolve(ctx context.Context, name string, kind catalog.Kind) (string, error) {
	if m.disabled {
		return "", ErrDisabled
	}
	st, ok := m.stores[kind]
	if !ok {
		return "", fmt.Errorf("unknown asset kind %q", kind)
	}
	name = store.CleanName(name)
	if name == "" {
		return "", fmt.Errorf("invalid filename")
	}

	if st.Exists(name) {
		cacheHits.WithLabelValues(string(kind)).Inc()
		return st.Path(name), nil
	}
	cacheMisses.WithLabelValues(string(kind)).Inc()

	// The download runs on a detached context: a disconnecting client must
	// not cancel a fetch that will serve every future request.
	dlCtx := context.WithoutCancel(ctx)
	key := string(kind) + "/" + name
	_, err, _ := m.g.Do(key, func() (interface{}, error) {
		if st.Exists(name) {
			return nil, nil
		}
		return nil, m.download(dlCtx, st, kind, name)
	})
	if err != nil {
		return "", err
	}
	return st.Path(name), nil
}

func (m *Manager) download(ctx context.Context, st *store.Store, kind catalog.Kind, name string) error {
	m.pruneForWrite(st, kind)

	body, _, err := m.remote.Fetch(ctx, name)
	if err != nil {
		fetchFailures.WithLabelValues(string(kind)).Inc()
		return err
	}
	defer func() { _ = body.Close() }()

	written, err := st.Write(name, body)
	if err != nil {
		fetchFailures.WithLabelValues(string(kind)).Inc()
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	slog.Info("Cached asset", "kind", kind, "filename", name, "size", written)
	return nil
}

// pruneForWrite is the count-based pressure relief, run before each new
// write. At MaxItems entries the oldest are deleted until PruneTo remain.
func (m *Manager) pruneForWrite(st *store.Store, kind catalog.Kind) {
	if m.limits.MaxItems <= 0 {
		return
	}
	entries, err := st.List()
	if err != nil {
		errutil.LogMsg(err, "Failed to scan cache dir before write", "kind", kind)
		return
	}
	if len(entries) < m.limits.MaxItems {
		return
	}

	floor := m.limits.PruneTo
	if floor < 0 || floor >= m.limits.MaxItems {
		floor = m.limits.MaxItems - 1
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.Before(entries[j].ModTime)
	})

	for _, e := range entries[:len(entries)-floor] {
		if err := st.Delete(e.Name); err != nil {
			errutil.LogMsg(err, "Failed to evict cache entry", "kind", kind, "filename", e.Name)
			continue
		}
		evictions.Inc()
		slog.Info("Evicted cache entry", "kind", kind, "filename", e.Name, "modified", e.ModTime)
	}
}

// Preload eagerly caches the critical video set. Catalog assets are left to
// lazy caching on first request, keeping startup time bounded. Items are
// fetched sequentially; one failure never aborts the rest.
func (m *Manager) Preload(ctx context.Context) int {
	if m.disabled {
		return 0
	}
	critical, err := m.catalog.Critical(ctx)
	if err != nil {
		errutil.ReportError(err, "Failed to query critical assets, skipping preload")
		return 0
	}

	st := m.stores[catalog.KindVideo]
	cached := 0
	for _, raw := range critical {
		name := store.CleanName(raw)
		if name == "" || st.Exists(name) {
			continue
		}
		if err := m.download(ctx, st, catalog.KindVideo, name); err != nil {
			errutil.LogMsg(err, "Preload failed", "filename", name)
			continue
		}
		cached++
	}
	slog.Info("Startup preload complete", "cached", cached, "critical", len(critical))
	return cached
}

// Refresh reconciles the cache against the live catalog: cached files
// referenced by neither the catalog nor the critical set are deleted, and
// referenced files not yet cached are downloaded. Per-item failures are
// logged and skipped so one bad asset never aborts the pass.
func (m *Manager) Refresh(ctx context.Context) (Report, error) {
	report := Report{Removed: []string{}, Cached: []string{}}
	if m.disabled {
		return report, ErrDisabled
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	assets, err := m.catalog.Assets(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to query catalog assets: %w", err)
	}
	criticalList, err := m.catalog.Critical(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to query critical assets: %w", err)
	}

	referenced := map[catalog.Kind]map[string]bool{
		catalog.KindVideo: {},
		catalog.KindImage: {},
	}
	for _, a := range assets {
		if name := store.CleanName(a.Filename); name != "" && a.Kind.Valid() {
			referenced[a.Kind][name] = true
		}
	}
	critical := make(map[string]bool, len(criticalList))
	for _, raw := range criticalList {
		if name := store.CleanName(raw); name != "" {
			critical[name] = true
		}
	}

	for kind, st := range m.stores {
		entries, err := st.List()
		if err != nil {
			errutil.LogMsg(err, "Failed to scan cache dir during refresh", "kind", kind)
			continue
		}
		for _, e := range entries {
			if referenced[kind][e.Name] || critical[e.Name] {
				continue
			}
			if err := st.Delete(e.Name); err != nil {
				errutil.LogMsg(err, "Failed to remove stale cache entry", "kind", kind, "filename", e.Name)
				continue
			}
			slog.Info("Removed stale cache entry", "kind", kind, "filename", e.Name)
			report.Removed = append(report.Removed, e.Name)
		}
	}

	for _, a := range assets {
		name := store.CleanName(a.Filename)
		st := m.stores[a.Kind]
		if name == "" || st == nil || st.Exists(name) {
			continue
		}
		if err := m.download(ctx, st, a.Kind, name); err != nil {
			errutil.LogMsg(err, "Refresh failed to cache asset", "kind", a.Kind, "filename", name)
			continue
		}
		report.Cached = append(report.Cached, name)
	}

	sort.Strings(report.Removed)
	sort.Strings(report.Cached)
	slog.Info("Cache refresh complete", "removed", len(report.Removed), "cached", len(report.Cached))
	return report, nil
}

// Clear deletes every cached file in both directories. With rewarm the
// critical set is preloaded again right away so the site stays responsive.
func (m *Manager) Clear(ctx context.Context, rewarm bool) (videosRemoved, imagesRemoved int) {
	if m.disabled {
		return 0, 0
	}
	m.mu.Lock()
	videosRemoved = m.clearStore(m.stores[catalog.KindVideo], catalog.KindVideo)
	imagesRemoved = m.clearStore(m.stores[catalog.KindImage], catalog.KindImage)
	m.mu.Unlock()

	if rewarm {
		m.Preload(ctx)
	}
	return videosRemoved, imagesRemoved
}

func (m *Manager) clearStore(st *store.Store, kind catalog.Kind) int {
	entries, err := st.List()
	if err != nil {
		errutil.LogMsg(err, "Failed to scan cache dir during clear", "kind", kind)
		return 0
	}
	removed := 0
	for _, e := range entries {
		if err := st.Delete(e.Name); err != nil {
			errutil.LogMsg(err, "Failed to delete cache entry during clear", "kind", kind, "filename", e.Name)
			continue
		}
		removed++
	}
	return removed
}

// Stats scans both directories and reports item count and byte totals.
func (m *Manager) Stats() Stats {
	s := Stats{ByKind: make(map[string]KindStats, len(m.stores))}
	for kind, st := range m.stores {
		entries, err := st.List()
		if err != nil {
			errutil.LogMsg(err, "Failed to scan cache dir for stats", "kind", kind)
			continue
		}
		ks := KindStats{Items: len(entries)}
		for _, e := range entries {
			ks.Bytes += e.Size
		}
		s.ByKind[string(kind)] = ks
		s.Items += ks.Items
		s.TotalBytes += ks.Bytes
	}
	s.TotalSize = humanize.Bytes(uint64(s.TotalBytes))
	cacheBytes.Set(float64(s.TotalBytes))
	return s
}

// StatusFor reports cache coverage for each requested filename, used by the
// admin UI to show which catalog assets are warm. The videos directory is
// checked first.
func (m *Manager) StatusFor(names []string) map[string]Status {
	out := make(map[string]Status, len(names))
	for _, raw := range names {
		name := store.CleanName(raw)
		status := Status{}
		for _, kind := range []catalog.Kind{catalog.KindVideo, catalog.KindImage} {
			st, ok := m.stores[kind]
			if !ok || name == "" {
				continue
			}
			info, err := os.Stat(st.Path(name))
			if err == nil && info.Mode().IsRegular() {
				mt := info.ModTime()
				status = Status{Cached: true, Size: info.Size(), ModifiedAt: &mt}
				break
			}
		}
		out[raw] = status
	}
	return out
}
