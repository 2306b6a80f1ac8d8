package health

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"sigflow/internal/httputil"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	pool        *pgxpool.Pool
	startedAt   time.Time
	internalTok string
}

// NewHandler accepts a nil pool when the service runs without a database.
func NewHandler(pool *pgxpool.Pool, startedAt time.Time, internalToken string) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{pool: pool, startedAt: start, internalTok: strings.TrimSpace(internalToken)}
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UptimeSec int64  `json:"uptime_sec"`
}

type readyResponse struct {
	Status    string   `json:"status"`
	Timestamp string   `json:"timestamp"`
	UptimeSec int64    `json:"uptime_sec"`
	Database  dbStatus `json:"database"`
}

type dbStatus struct {
	Configured bool   `json:"configured"`
	Reachable  bool   `json:"reachable"`
	PingMs     int64  `json:"ping_ms"`
	Error      string `json:"error,omitempty"`
}

func (h *Handler) uptime(now time.Time) time.Duration {
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		return 0
	}
	return uptime
}

// Live does not touch the database.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	now := time.Now().UTC()
	httputil.WriteJSON(w, http.StatusOK, liveResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(h.uptime(now).Seconds()),
	})
}

// Ready returns 503 when a configured database is unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	db := h.pingDB(r.Context())
	status := "ok"
	httpStatus := http.StatusOK
	if db.Configured && !db.Reachable {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, httpStatus, readyResponse{
		Status:    status,
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(h.uptime(now).Seconds()),
		Database:  db,
	})
}

func (h *Handler) pingDB(ctx context.Context) dbStatus {
	if h.pool == nil {
		return dbStatus{}
	}
	out := dbStatus{Configured: true}
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	start := time.Now()
	err := h.pool.Ping(pingCtx)
	out.PingMs = time.Since(start).Milliseconds()
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Reachable = true
	return out
}

// Metrics returns basic Prometheus-compatible metrics, protected by
// X-Internal-Token.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.internalTok == "" {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: "internal token is not configured"})
		return
	}
	provided := strings.TrimSpace(r.Header.Get("X-Internal-Token"))
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.internalTok)) != 1 {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid internal token"})
		return
	}

	now := time.Now().UTC()
	db := h.pingDB(r.Context())
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	dbUp := 0
	if db.Reachable {
		dbUp = 1
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "# HELP sigflow_up Service process is running.\n")
	_, _ = fmt.Fprintf(w, "# TYPE sigflow_up gauge\n")
	_, _ = fmt.Fprintf(w, "sigflow_up 1\n")
	_, _ = fmt.Fprintf(w, "sigflow_uptime_seconds %d\n", int64(h.uptime(now).Seconds()))
	_, _ = fmt.Fprintf(w, "sigflow_db_up %d\n", dbUp)
	_, _ = fmt.Fprintf(w, "sigflow_db_ping_milliseconds %d\n", db.PingMs)
	_, _ = fmt.Fprintf(w, "sigflow_go_goroutines %d\n", runtime.NumGoroutine())
	_, _ = fmt.Fprintf(w, "sigflow_go_mem_alloc_bytes %d\n", mem.Alloc)
	_, _ = fmt.Fprintf(w, "sigflow_go_gc_count %d\n", mem.NumGC)
	if h.pool != nil {
		stat := h.pool.Stat()
		_, _ = fmt.Fprintf(w, "sigflow_db_pool_total_conns %d\n", stat.TotalConns())
		_, _ = fmt.Fprintf(w, "sigflow_db_pool_idle_conns %d\n", stat.IdleConns())
		_, _ = fmt.Fprintf(w, "sigflow_db_pool_acquired_conns %d\n", stat.AcquiredConns())
	}
}
