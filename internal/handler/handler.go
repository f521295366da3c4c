package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veldtmedia/mediacache/internal/cache"
	"github.com/veldtmedia/mediacache/internal/catalog"
	"github.com/veldtmedia/mediacache/internal/errutil"
	"github.com/veldtmedia/mediacache/internal/remote"
)

// MediaHandler serves asset bytes through the cache and exposes the admin
// cache operations consumed by the CMS.
type MediaHandler struct {
	Manager *cache.Manager
	Remote  remote.Store
}

// NewRouter wires every route: the public media endpoint, the admin cache
// API, prometheus metrics and a health check.
func NewRouter(m *cache.Manager, rem remote.Store) *mux.Router {
	h := &MediaHandler{Manager: m, Remote: rem}

	r := mux.NewRouter()
	r.HandleFunc("/media/{kind:video|image}/{filename}", h.ServeMedia).Methods(http.MethodGet, http.MethodHead)

	admin := r.PathPrefix("/admin/cache").Subrouter()
	admin.HandleFunc("/refresh", h.AdminRefresh).Methods(http.MethodPost)
	admin.HandleFunc("/clear", h.AdminClear).Methods(http.MethodPost)
	admin.HandleFunc("/stats", h.AdminStats).Methods(http.MethodGet)
	admin.HandleFunc("/status", h.AdminStatus).Methods(http.MethodPost)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return r
}

// ServeMedia resolves the asset through the cache and streams it, honoring
// range requests. When the cache cannot serve (disabled or fetch failure)
// the handler falls back to streaming straight from the remote store, so a
// broken disk degrades latency instead of availability.
func (h *MediaHandler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := catalog.Kind(vars["kind"])
	filename := vars["filename"]

	path, err := h.Manager.Resolve(r.Context(), filename, kind)
	if err == nil {
		http.ServeFile(w, r, path)
		return
	}
	if errors.Is(err, remote.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if !errors.Is(err, cache.ErrDisabled) {
		errutil.LogMsg(err, "Cache resolve failed, streaming through", "kind", kind, "filename", filename)
	}
	h.streamThrough(w, r, filename)
}

func (h *MediaHandler) streamThrough(w http.ResponseWriter, r *http.Request, filename string) {
	body, size, err := h.Remote.Fetch(r.Context(), filename)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		errutil.ReportError(err, "Pass-through fetch failed", "filename", filename)
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}
	defer func() { _ = body.Close() }()

	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, body); err != nil {
		slog.Debug("Client went away during pass-through", "filename", filename, "error", err)
	}
}

// AdminRefresh reconciles the cache against the live catalog and reports
// what changed.
func (h *MediaHandler) AdminRefresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.Manager.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, report)
}

// AdminClear empties both cache directories. mode=rewarm re-runs the
// critical preload right after, mode=cold (the default) leaves the cache empty.
func (h *MediaHandler) AdminClear(w http.ResponseWriter, r *http.Request) {
	rewarm := r.URL.Query().Get("mode") == "rewarm"
	videos, images := h.Manager.Clear(r.Context(), rewarm)
	writeJSON(w, map[string]int{
		"videosRemoved": videos,
		"imagesRemoved": images,
	})
}

// AdminStats reports item counts and sizes for the admin UI.
func (h *MediaHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Manager.Stats())
}

type statusRequest struct {
	Filenames []string `json:"filenames"`
}

// AdminStatus reports per-filename cache coverage for the requested names.
func (h *MediaHandler) AdminStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.Manager.StatusFor(req.Filenames))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		errutil.LogMsg(err, "Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, cache.ErrDisabled) {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
