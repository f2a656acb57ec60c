package httpx

import (
	"net/http"
)

func (r *Router) handleCreateTeam(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	created, err := r.teams.Create(req.Context(), callerID, payload.Name)
	r.recordMutation("team.create", err)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleListTeams(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	teams, err := r.teams.ListForCaller(req.Context(), callerID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (r *Router) handleGetTeam(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	detail, err := r.teams.Get(req.Context(), callerID, req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (r *Router) handleSetMember(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	var payload struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	member, err := r.teams.SetMemberRole(req.Context(), callerID, req.PathValue("id"), req.PathValue("userID"), payload.Role)
	r.recordMutation("team.set_member", err)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (r *Router) handleRemoveMember(w http.ResponseWriter, req *http.Request) {
	callerID, ok := r.caller(w, req)
	if !ok {
		return
	}
	err := r.teams.RemoveMember(req.Context(), callerID, req.PathValue("id"), req.PathValue("userID"))
	r.recordMutation("team.remove_member", err)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
