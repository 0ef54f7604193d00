package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nikhilbhutani/washgeo/internal/models"
	"github.com/nikhilbhutani/washgeo/internal/profile"
	"github.com/nikhilbhutani/washgeo/internal/rbac"
)

// Claims are the fields read from a Supabase access token. Role is the
// Postgres role ("authenticated"); the platform role lives in profiles.
type Claims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type ProfileGetter interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type JWTMiddleware struct {
	secret   []byte
	profiles ProfileGetter
	parser   *jwt.Parser
}

func NewJWTMiddleware(secret string, profiles ProfileGetter) *JWTMiddleware {
	return &JWTMiddleware{
		secret:   []byte(secret),
		profiles: profiles,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Authenticate verifies the bearer token and puts the caller's profile in
// the request context.
func (m *JWTMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractBearerToken(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims := &Claims{}
		_, err := m.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
			return m.secret, nil
		})
		if errors.Is(err, jwt.ErrTokenExpired) {
			writeError(w, http.StatusUnauthorized, "token expired")
			return
		}
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		userID, err := uuid.Parse(claims.Sub)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid user ID in token")
			return
		}

		ctx := r.Context()
		p, err := m.profiles.GetProfile(ctx, userID)
		if errors.Is(err, rbac.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "profile not found")
			return
		}
		if err != nil {
			slog.Error("load profile failed", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load profile")
			return
		}

		ctx = profile.WithProfile(ctx, p)
		ctx = context.WithValue(ctx, claimsKey, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers whose platform role is not one of roles.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := profile.FromContext(r.Context())
			if p == nil {
				writeError(w, http.StatusUnauthorized, "no profile in context")
				return
			}
			if !allowed[p.Role] {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type ctxKey string

const claimsKey ctxKey = "claims"

func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
