package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splax/teamboard/internal/events"
	"github.com/splax/teamboard/internal/service/auth"
	"github.com/splax/teamboard/internal/service/inventory"
	"github.com/splax/teamboard/internal/service/project"
	"github.com/splax/teamboard/internal/service/task"
	"github.com/splax/teamboard/internal/service/team"
	"github.com/splax/teamboard/pkg/config"
)

// Services bundles the engine entry points the router exposes.
type Services struct {
	Auth      auth.Service
	Teams     team.Service
	Projects  project.Service
	Tasks     task.Service
	Inventory inventory.Service
}

// Subscriber opens change subscriptions for live views.
type Subscriber interface {
	Subscribe(scope string, buffer int) *events.Subscription
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	auth          auth.Service
	teams         team.Service
	projects      project.Service
	tasks         task.Service
	inventory     inventory.Service
	changes       Subscriber
	upgrader      websocket.Upgrader
	limiter       RateLimiter
	budgets       rateBudgets
	liveBuffer    int
	dbHealth      func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	mutations          *prometheus.CounterVec
	liveViews          prometheus.Gauge
}

const (
	healthCheckTimeout = 2 * time.Second
	sseHeartbeat       = 15 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, svc Services, changes Subscriber, limiter RateLimiter, cfg config.APIConfig, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		logger:    logger,
		auth:      svc.Auth,
		teams:     svc.Teams,
		projects:  svc.Projects,
		tasks:     svc.Tasks,
		inventory: svc.Inventory,
		changes:   changes,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:       limiter,
		budgets:       budgetsFrom(cfg.RateLimitPerMinute, cfg.RateLimitWritesPerMinute),
		liveBuffer:    cfg.LiveViewBuffer,
		dbHealth:      dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.liveBuffer <= 0 {
		r.liveBuffer = 64
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("GET /healthz", r.audit(r.handleHealthz))
	r.mux.Handle("GET /metrics", promhttp.Handler())

	r.handle("POST /teams", r.handleCreateTeam)
	r.handle("GET /teams", r.handleListTeams)
	r.handle("GET /teams/{id}", r.handleGetTeam)
	r.handle("PUT /teams/{id}/members/{userID}", r.handleSetMember)
	r.handle("DELETE /teams/{id}/members/{userID}", r.handleRemoveMember)

	r.handle("GET /projects", r.handleListProjects)
	r.handle("POST /projects", r.handleCreateProject)
	r.handle("GET /projects/{id}", r.handleGetProject)
	r.handle("PATCH /projects/{id}", r.handleUpdateProject)
	r.handle("DELETE /projects/{id}", r.handleDeleteProject)
	r.handle("GET /projects/{id}/stats", r.handleProjectStats)
	r.handle("GET /projects/{id}/stats/stream", r.handleProjectStatsStream)

	r.handle("GET /projects/{id}/tasks", r.handleListTasks)
	r.handle("POST /projects/{id}/tasks", r.handleCreateTask)
	r.handle("GET /tasks/{id}", r.handleGetTask)
	r.handle("PATCH /tasks/{id}", r.handleUpdateTask)
	r.handle("DELETE /tasks/{id}", r.handleDeleteTask)
	r.handle("PUT /tasks/{id}/status", r.handleMoveTask)

	r.handle("GET /teams/{id}/parts", r.handleListParts)
	r.handle("POST /teams/{id}/parts", r.handleCreatePart)
	r.handle("GET /teams/{id}/parts/stats", r.handlePartStats)
	r.handle("GET /teams/{id}/parts/categories", r.handlePartCategories)
	r.handle("PATCH /parts/{id}", r.handleUpdatePart)
	r.handle("DELETE /parts/{id}", r.handleDeletePart)

	r.handle("GET /ws/tasks", r.handleTasksWS)
	r.handle("GET /ws/parts", r.handlePartsWS)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		route := req.Pattern
		if route == "" {
			route = "unmatched"
		}
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"route", route,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		sr.status = http.StatusSwitchingProtocols
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}
