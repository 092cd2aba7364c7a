package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zarawatch/catalog-scraper/internal/fetcher"
	"github.com/zarawatch/catalog-scraper/internal/pipeline"
	"github.com/zarawatch/catalog-scraper/internal/store"
)

type Handlers struct {
	pipeline *pipeline.Pipeline
	store    store.Store
	logger   *slog.Logger
}

func NewHandlers(p *pipeline.Pipeline, st store.Store, logger *slog.Logger) *Handlers {
	return &Handlers{
		pipeline: p,
		store:    st,
		logger:   logger.With("component", "api"),
	}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", h.TriggerRun)
		r.Get("/products", h.ListProducts)
		r.Get("/stats", h.GetStats)
		r.Delete("/products/stale", h.DeleteStale)
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// TriggerRun executes a scrape run synchronously and returns its report.
func (h *Handlers) TriggerRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.pipeline.Run(r.Context())
	if err != nil {
		h.logger.Error("run failed", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, fetcher.ErrFetch) {
			status = http.StatusBadGateway
		}
		h.respondJSON(w, status, report)
		return
	}

	h.respondJSON(w, http.StatusOK, report)
}

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	f := store.Filter{
		Category: r.URL.Query().Get("category"),
		Limit:    100,
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = limit
	}

	if v := r.URL.Query().Get("on_sale"); v != "" {
		onSale, err := strconv.ParseBool(v)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "on_sale must be a boolean")
			return
		}
		f.OnSale = &onSale
	}

	products, err := h.store.Select(r.Context(), f)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(products),
		"products": products,
	})
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.pipeline.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// DeleteStale is the explicit retention operation.
func (h *Handlers) DeleteStale(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.respondError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	deleted, err := h.pipeline.Cleanup(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		h.logger.Error("cleanup failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": deleted,
		"days":    days,
	})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
