package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nikhilbhutani/washgeo/internal/assignment"
	"github.com/nikhilbhutani/washgeo/internal/models"
)

type AssignmentHandler struct {
	engine *assignment.Engine
}

func NewAssignmentHandler(engine *assignment.Engine) *AssignmentHandler {
	return &AssignmentHandler{engine: engine}
}

// assignRequest is the body of the PUT endpoints. Version is optional:
// absent means last write wins, 0 means the assignment must not exist yet.
type assignRequest struct {
	Cities  []string `json:"cities"`
	Talukas []string `json:"talukas"`
	Version *int64   `json:"version"`
}

type assignFunc func(ctx context.Context, manager models.Profile, subordinateID uuid.UUID, regions []string, expectedVersion *int64) (*models.Assignment, error)

func (h *AssignmentHandler) AssignCities(w http.ResponseWriter, r *http.Request) {
	h.put(w, r, h.engine.AssignCities, func(req assignRequest) []string { return req.Cities }, "cities")
}

func (h *AssignmentHandler) AssignTalukas(w http.ResponseWriter, r *http.Request) {
	h.put(w, r, h.engine.AssignTalukas, func(req assignRequest) []string { return req.Talukas }, "talukas")
}

func (h *AssignmentHandler) AssignAreas(w http.ResponseWriter, r *http.Request) {
	h.put(w, r, h.engine.AssignAreas, func(req assignRequest) []string { return req.Talukas }, "talukas")
}

func (h *AssignmentHandler) put(w http.ResponseWriter, r *http.Request, assign assignFunc, regions func(assignRequest) []string, field string) {
	manager, ok := caller(w, r)
	if !ok {
		return
	}
	subID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	list := regions(req)
	if list == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": field + " required"})
		return
	}

	a, err := assign(r.Context(), *manager, subID, list, req.Version)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	subID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	role, ok := roleParam(w, chi.URLParam(r, "role"))
	if !ok {
		return
	}

	a, err := h.engine.Get(r.Context(), *p, subID, role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AssignmentHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	manager, ok := caller(w, r)
	if !ok {
		return
	}
	subID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	role, ok := roleParam(w, chi.URLParam(r, "role"))
	if !ok {
		return
	}

	if err := h.engine.Revoke(r.Context(), *manager, subID, role); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AssignmentHandler) Subordinates(w http.ResponseWriter, r *http.Request) {
	manager, ok := caller(w, r)
	if !ok {
		return
	}

	subs, err := h.engine.ListSubordinates(r.Context(), *manager)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subordinates": subs, "count": len(subs)})
}

func (h *AssignmentHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}

	perm, err := h.engine.Permissions(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, perm)
}

// Users lists users of ?role= inside the caller's regions.
func (h *AssignmentHandler) Users(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	role, ok := roleParam(w, r.URL.Query().Get("role"))
	if !ok {
		return
	}

	users, err := h.engine.VisibleUsers(r.Context(), *p, role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users, "count": len(users)})
}
