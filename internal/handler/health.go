package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ohmbajaj/Neurotune-Backend/internal/cache"
)

// Pinger checks that a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheStatter exposes cache counters (*cache.Memory).
type CacheStatter interface {
	Stats() cache.Stats
}

// HealthHandler reports whether the service can reach its database.
type HealthHandler struct {
	db     Pinger
	cache  CacheStatter
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler. stats may be nil.
func NewHealthHandler(db Pinger, stats CacheStatter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, cache: stats, logger: logger}
}

type healthStatus struct {
	Status   string       `json:"status"`
	Database string       `json:"database"`
	Cache    *cache.Stats `json:"cache,omitempty"`
}

// HandleHealth answers 200 when the database responds, 503 otherwise.
//
// HTTP: GET /api/healthcheck
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := healthStatus{Status: "ok", Database: "ok"}
	if h.cache != nil {
		stats := h.cache.Stats()
		status.Cache = &stats
	}

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check: database unreachable", slog.Any("error", err))
		status.Status = "degraded"
		status.Database = "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, Response{Success: false, Data: status, Error: "Database unreachable"})
		return
	}
	writeData(w, status)
}
