package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nikhilbhutani/washgeo/internal/assignment"
	"github.com/nikhilbhutani/washgeo/internal/models"
	"github.com/nikhilbhutani/washgeo/internal/profile"
	"github.com/nikhilbhutani/washgeo/internal/rbac"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps engine errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *rbac.ValidationError
	var se *rbac.StoreError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":     ve.Error(),
			"rule":      ve.Rule,
			"invalid":   ve.Invalid,
			"permitted": ve.Permitted,
		})
	case errors.Is(err, assignment.ErrRoleMismatch):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, rbac.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, rbac.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, rbac.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.As(err, &se):
		slog.Error("store failure", "path", r.URL.Path, "op", se.Op, "error", se.Err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "assignment store unavailable"})
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func caller(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
	p := profile.FromContext(r.Context())
	if p == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no profile in context"})
		return nil, false
	}
	return p, true
}

func userIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return uuid.Nil, false
	}
	return id, true
}

func roleParam(w http.ResponseWriter, raw string) (models.Role, bool) {
	role, err := models.ParseRole(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return "", false
	}
	return role, true
}
