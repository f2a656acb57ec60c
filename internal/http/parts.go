package httpx

import (
	"net/http"

	"github.com/splax/teamboard/internal/service/inventory"
)

func (r *Router) handleListParts(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	filter, cursor, limit, err := pageQuery(req, req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	page, err := r.inventory.Page(req.Context(), callerID, filter, cursor, limit)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (r *Router) handleCreatePart(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	var payload inventory.CreateInput
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	payload.TeamID = req.PathValue("id")
	created, err := r.inventory.Create(req.Context(), callerID, payload)
	r.recordMutation("part.create", err)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handlePartStats(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	stats, err := r.inventory.Stats(req.Context(), callerID, req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (r *Router) handlePartCategories(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	categories, err := r.inventory.Categories(req.Context(), callerID, req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (r *Router) handleUpdatePart(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	var payload inventory.UpdateInput
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	payload.PartID = req.PathValue("id")
	updated, err := r.inventory.Update(req.Context(), callerID, payload)
	r.recordMutation("part.update", err)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleDeletePart(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	err := r.inventory.Delete(req.Context(), callerID, req.PathValue("id"))
	r.recordMutation("part.delete", err)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
