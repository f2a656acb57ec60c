package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/service/paging"
	"github.com/splax/teamboard/internal/ws"
)

type statsResponse struct {
	domain.TaskStats
	CompletionRate int `json:"completion_rate"`
}

func statsPayload(stats domain.TaskStats) statsResponse {
	return statsResponse{TaskStats: stats, CompletionRate: stats.CompletionRate()}
}

// handleTasksWS serves a live view of a project's tasks.
func (r *Router) handleTasksWS(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	filter, _, limit, err := liveQuery(req, "project_id")
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	view, err := r.tasks.OpenView(req.Context(), callerID, filter, limit)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	serveLiveView(r, w, req, callerID, view)
}

// handlePartsWS serves a live view of a team's inventory.
func (r *Router) handlePartsWS(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	filter, _, limit, err := liveQuery(req, "team_id")
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	view, err := r.inventory.OpenView(req.Context(), callerID, filter, limit)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	serveLiveView(r, w, req, callerID, view)
}

func liveQuery(req *http.Request, scopeParam string) (paging.Filter, string, int, error) {
	filter, cursor, limit, err := pageQuery(req, req.URL.Query().Get(scopeParam))
	if err != nil {
		return filter, cursor, limit, err
	}
	if strings.TrimSpace(filter.Scope) == "" {
		return filter, cursor, limit, fmt.Errorf("%w: %s query parameter required", domain.ErrInvalidInput, scopeParam)
	}
	return filter, cursor, limit, nil
}

// serveLiveView upgrades the connection and streams view until the client
// leaves or the view closes. The subscription is opened before the first
// page is read so no committed change falls between the two.
func serveLiveView[T any](r *Router, w http.ResponseWriter, req *http.Request, callerID string, view *paging.View[T]) {
	scope := view.Filter().Scope
	sub := r.changes.Subscribe(scope, r.liveBuffer)
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		sub.Close()
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	r.trackLiveView(1)
	defer r.trackLiveView(-1)

	stream := ws.NewStream[T](view, sub, ws.NewClient(conn, r.logger), r.logger)
	if err := stream.Run(req.Context()); err != nil {
		r.logger.Info("live view closed", "scope", scope, "user_id", callerID, "error", err)
	}
}

// handleProjectStatsStream pushes fresh stats over SSE after every change in
// the project and a final deleted event when the project goes away.
func (r *Router) handleProjectStatsStream(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	projectID := req.PathValue("id")
	sub := r.changes.Subscribe(projectID, r.liveBuffer)
	defer sub.Close()

	ctx := req.Context()
	stats, err := r.projects.Stats(ctx, callerID, projectID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	client := ws.NewSSEClient(w, flusher, r.logger)
	defer client.Close()
	send := func(stats domain.TaskStats) error {
		payload, err := json.Marshal(statsPayload(stats))
		if err != nil {
			return err
		}
		return client.SendEvent("stats", payload)
	}
	gone := func() {
		payload, _ := json.Marshal(map[string]string{"project_id": projectID})
		_ = client.SendEvent("deleted", payload)
	}
	if err := send(stats); err != nil {
		return
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		case event, ok := <-sub.C():
			if !ok {
				return
			}
			if event.ScopeDeleted() {
				gone()
				return
			}
			stats, err := r.projects.Stats(ctx, callerID, projectID)
			if errors.Is(err, domain.ErrNotFound) {
				gone()
				return
			}
			if err != nil {
				r.logger.Error("stats refresh failed", "project_id", projectID, "error", err)
				return
			}
			if err := send(stats); err != nil {
				return
			}
		}
	}
}
