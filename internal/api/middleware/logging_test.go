package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/washgeo/internal/api/middleware"
	"github.com/nikhilbhutani/washgeo/internal/models"
	"github.com/nikhilbhutani/washgeo/internal/profile"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLoggingRecordsAuthenticatedUser(t *testing.T) {
	buf := captureLog(t)
	id := uuid.New()

	// Stands in for the auth middleware, which attaches the profile to a
	// derived request.
	authed := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := profile.WithProfile(r.Context(), &models.Profile{ID: id, Role: models.RoleAdmin})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	h := middleware.Logging(authed(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/me/permissions", nil))

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line: %v (%s)", err, buf.String())
	}
	if line["user_id"] != id.String() {
		t.Errorf("user_id = %v, want %s", line["user_id"], id)
	}
	if line["status"] != float64(http.StatusNoContent) {
		t.Errorf("status = %v", line["status"])
	}
}

func TestLoggingOmitsAnonymousUser(t *testing.T) {
	buf := captureLog(t)
	h := middleware.Logging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/subordinates", nil))

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatal(err)
	}
	if _, ok := line["user_id"]; ok {
		t.Errorf("anonymous request logged user_id %v", line["user_id"])
	}
	if line["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", line["level"])
	}
}
