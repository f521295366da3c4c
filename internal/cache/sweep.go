package cache

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/veldtmedia/mediacache/internal/catalog"
	"github.com/veldtmedia/mediacache/internal/errutil"
	"github.com/veldtmedia/mediacache/internal/store"
)

// StartSweeper runs the optional age/size sweep on a ticker until ctx is
// done. It is a safety net behind the count-based pressure relief and does
// nothing unless SweepInterval is positive.
func (m *Manager) StartSweeper(ctx context.Context) {
	if m.disabled || m.limits.SweepInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.limits.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

type sweepEntry struct {
	store.Entry
	kind catalog.Kind
}

// Sweep removes entries older than MaxAge, then deletes oldest-first while
// the combined directories exceed MaxBytes. It treats all entries alike: a
// swept critical asset is re-fetched on the next resolve.
func (m *Manager) Sweep() {
	if m.disabled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []sweepEntry
	var total int64
	for kind, st := range m.stores {
		entries, err := st.List()
		if err != nil {
			errutil.LogMsg(err, "Failed to scan cache dir during sweep", "kind", kind)
			continue
		}
		for _, e := range entries {
			all = append(all, sweepEntry{Entry: e, kind: kind})
			total += e.Size
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ModTime.Before(all[j].ModTime)
	})

	now := time.Now()
	removed := 0
	for _, e := range all {
		tooOld := m.limits.MaxAge > 0 && now.Sub(e.ModTime) > m.limits.MaxAge
		overSize := m.limits.MaxBytes > 0 && total > m.limits.MaxBytes
		if !tooOld && !overSize {
			// Entries are oldest-first, so once neither bound applies
			// nothing later will be removed either.
			break
		}
		if err := m.stores[e.kind].Delete(e.Name); err != nil {
			errutil.LogMsg(err, "Failed to sweep cache entry", "kind", e.kind, "filename", e.Name)
			continue
		}
		evictions.Inc()
		total -= e.Size
		removed++
	}
	if removed > 0 {
		slog.Info("Sweep complete", "removed", removed, "remaining_bytes", total)
	}
}
