package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nikhilbhutani/washgeo/internal/auth"
	"github.com/nikhilbhutani/washgeo/internal/models"
	"github.com/nikhilbhutani/washgeo/internal/profile"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, sub string, exp time.Time) string {
	t.Helper()
	claims := auth.Claims{
		Sub:  sub,
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestAuthenticate(t *testing.T) {
	washer := models.Profile{ID: uuid.New(), Email: "w@example.com", Role: models.RoleWasher}
	dir := profile.NewMemoryStore(washer)
	mw := auth.NewJWTMiddleware(secret, dir)

	var seen *models.Profile
	h := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = profile.FromContext(r.Context())
		if c := auth.ClaimsFromContext(r.Context()); c == nil || c.Sub != washer.ID.String() {
			t.Errorf("claims = %+v", c)
		}
		w.WriteHeader(http.StatusOK)
	}))

	future := time.Now().Add(time.Hour)
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), washer.ID.String(), future), http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), washer.ID.String(), future), http.StatusUnauthorized},
		{"wrong alg", "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(secret), washer.ID.String(), future), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), washer.ID.String(), time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"bad subject", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), "not-a-uuid", future), http.StatusUnauthorized},
		{"unknown profile", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), uuid.NewString(), future), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusOK && (seen == nil || seen.ID != washer.ID) {
				t.Errorf("profile in context = %+v", seen)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := auth.RequireRole(models.RoleAdmin, models.RoleGeneral)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name    string
		profile *models.Profile
		want    int
	}{
		{"admin", &models.Profile{Role: models.RoleAdmin}, http.StatusNoContent},
		{"general", &models.Profile{Role: models.RoleGeneral}, http.StatusNoContent},
		{"washer", &models.Profile{Role: models.RoleWasher}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.profile != nil {
				req = req.WithContext(profile.WithProfile(req.Context(), tt.profile))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
