package httpx

import (
	"net/http"

	"github.com/splax/teamboard/internal/service/project"
)

func (r *Router) handleListProjects(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	projects, err := r.projects.ListForCaller(req.Context(), callerID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (r *Router) handleCreateProject(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	var payload project.CreateInput
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	created, err := r.projects.Create(req.Context(), callerID, payload)
	r.recordMutation("project.create", err)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleGetProject(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	view, err := r.projects.Get(req.Context(), callerID, req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (r *Router) handleUpdateProject(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	var payload project.UpdateInput
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	payload.ProjectID = req.PathValue("id")
	updated, err := r.projects.Update(req.Context(), callerID, payload)
	r.recordMutation("project.update", err)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleDeleteProject(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	err := r.projects.Delete(req.Context(), callerID, req.PathValue("id"))
	r.recordMutation("project.delete", err)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleProjectStats(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	stats, err := r.projects.Stats(req.Context(), callerID, req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, statsPayload(stats))
}
