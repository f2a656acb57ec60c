package httpx

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/splax/teamboard/internal/domain"
	"github.com/splax/teamboard/internal/service/paging"
	"github.com/splax/teamboard/internal/service/task"
)

// pageQuery reads the shared paging parameters: status, search, category,
// order (asc|desc), cursor and limit.
func pageQuery(req *http.Request, scope string) (paging.Filter, string, int, error) {
	q := req.URL.Query()
	filter := paging.Filter{
		Scope:    scope,
		Status:   q.Get("status"),
		Search:   q.Get("search"),
		Category: q.Get("category"),
	}
	switch strings.ToLower(strings.TrimSpace(q.Get("order"))) {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		return paging.Filter{}, "", 0, fmt.Errorf("%w: order must be asc or desc", domain.ErrInvalidInput)
	}
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return paging.Filter{}, "", 0, fmt.Errorf("%w: limit must be a number", domain.ErrInvalidInput)
		}
		limit = n
	}
	return filter, strings.TrimSpace(q.Get("cursor")), limit, nil
}

func (r *Router) handleListTasks(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	filter, cursor, limit, err := pageQuery(req, req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	page, err := r.tasks.Page(req.Context(), callerID, filter, cursor, limit)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (r *Router) handleCreateTask(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	var payload task.CreateInput
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	payload.ProjectID = req.PathValue("id")
	created, err := r.tasks.Create(req.Context(), callerID, payload)
	r.recordMutation("task.create", err)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleGetTask(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	found, err := r.tasks.Get(req.Context(), callerID, req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (r *Router) handleUpdateTask(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	var payload task.UpdateInput
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	payload.TaskID = req.PathValue("id")
	updated, err := r.tasks.Update(req.Context(), callerID, payload)
	r.recordMutation("task.update", err)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleMoveTask(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	moved, err := r.tasks.UpdateStatus(req.Context(), callerID, req.PathValue("id"), payload.Status)
	r.recordMutation("task.move", err)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

func (r *Router) handleDeleteTask(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	err := r.tasks.Delete(req.Context(), callerID, req.PathValue("id"))
	r.recordMutation("task.delete", err)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
