package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/washgeo/internal/audit"
	"github.com/nikhilbhutani/washgeo/internal/models"
	"github.com/nikhilbhutani/washgeo/internal/profile"
	"github.com/nikhilbhutani/washgeo/internal/rbac"
	"github.com/nikhilbhutani/washgeo/internal/region"
)

// ErrRoleMismatch means the subordinate does not hold the role the
// operation assigns regions for.
var ErrRoleMismatch = errors.New("subordinate role mismatch")

// Directory looks up user profiles.
type Directory interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListByAttribute(ctx context.Context, attr profile.Attribute, value string) ([]models.Profile, error)
}

type PermissionCache interface {
	GetPermissions(ctx context.Context, userID uuid.UUID) (*models.Permissions, error)
	SetPermissions(ctx context.Context, p models.Permissions) error
	InvalidatePermissions(ctx context.Context, userIDs ...uuid.UUID) error
}

type Auditor interface {
	Log(ctx context.Context, entry audit.LogEntry) error
}

// ReconcileQueue schedules an asynchronous reconciliation pass.
type ReconcileQueue interface {
	EnqueueReconcile(mode string) error
}

type Engine struct {
	store     Store
	dir       Directory
	resolver  *rbac.Resolver
	validator *rbac.Validator

	cache         PermissionCache
	auditor       Auditor
	queue         ReconcileQueue
	reconcileMode ReconcileMode
}

type Option func(*Engine)

func WithPermissionCache(c PermissionCache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithAuditor(a Auditor) Option {
	return func(e *Engine) { e.auditor = a }
}

// WithReconcileQueue makes every change to a manager's own assignment
// enqueue a reconciliation pass in mode.
func WithReconcileQueue(q ReconcileQueue, mode ReconcileMode) Option {
	return func(e *Engine) {
		e.queue = q
		e.reconcileMode = mode
	}
}

func NewEngine(store Store, dir Directory, regions *region.Table, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		dir:           dir,
		resolver:      rbac.NewResolver(regions),
		validator:     rbac.NewValidator(regions),
		reconcileMode: ReconcileModeReport,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Resolver() *rbac.Resolver {
	return e.resolver
}

func (e *Engine) Validator() *rbac.Validator {
	return e.validator
}

// Permissions resolves what userID may see. A user without an assignment
// gets empty region sets.
func (e *Engine) Permissions(ctx context.Context, userID uuid.UUID) (*models.Permissions, error) {
	if e.cache != nil {
		if perm, err := e.cache.GetPermissions(ctx, userID); err == nil {
			return perm, nil
		}
	}

	p, err := e.dir.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	a, err := e.lookup(ctx, p.ID, p.Role)
	if err != nil {
		return nil, err
	}

	perm := e.resolver.Permissions(*p, a)
	if e.cache != nil {
		if err := e.cache.SetPermissions(ctx, perm); err != nil {
			slog.Warn("cache permissions failed", "user_id", userID, "error", err)
		}
	}
	return &perm, nil
}

// Scope returns the regions a manager may hand out. Admin covers the whole
// table; everyone else is limited to their own assignment.
func (e *Engine) Scope(ctx context.Context, manager models.Profile) (cities, talukas []string, err error) {
	if manager.Role == models.RoleAdmin {
		regions := e.resolver.Regions()
		return regions.Cities(), regions.AllTalukas(), nil
	}
	a, err := e.lookup(ctx, manager.ID, manager.Role)
	if err != nil {
		return nil, nil, err
	}
	if a == nil {
		return []string{}, []string{}, nil
	}
	return a.AssignedCities, a.AssignedTalukas, nil
}

// AssignCities replaces a sub-general's cities.
func (e *Engine) AssignCities(ctx context.Context, manager models.Profile, subordinateID uuid.UUID, cities []string, expectedVersion *int64) (*models.Assignment, error) {
	cities = normalize(cities)
	return e.assign(ctx, manager, subordinateID, []models.Role{models.RoleSubGeneral}, expectedVersion,
		func(sub *models.Profile) (models.Assignment, error) {
			if err := e.validator.ValidateGeneralAssignment(cities).Err(); err != nil {
				return models.Assignment{}, err
			}
			return models.Assignment{AssignedCities: cities, AssignedTalukas: []string{}}, nil
		})
}

// AssignTalukas replaces an hr-general's talukas. Each taluka must lie in
// one of the manager's cities.
func (e *Engine) AssignTalukas(ctx context.Context, manager models.Profile, subordinateID uuid.UUID, talukas []string, expectedVersion *int64) (*models.Assignment, error) {
	talukas = normalize(talukas)
	return e.assign(ctx, manager, subordinateID, []models.Role{models.RoleHRGeneral}, expectedVersion,
		func(sub *models.Profile) (models.Assignment, error) {
			cities, _, err := e.Scope(ctx, manager)
			if err != nil {
				return models.Assignment{}, err
			}
			res := e.validator.ValidateSubGeneralToHRAssignment(cities, talukas)
			if err := res.Err(rbac.RuleSubGeneralTaluka); err != nil {
				return models.Assignment{}, err
			}
			return models.Assignment{AssignedCities: []string{}, AssignedTalukas: talukas}, nil
		})
}

// AssignAreas replaces a sales or washer user's talukas. Each taluka must
// be one of the manager's own talukas.
func (e *Engine) AssignAreas(ctx context.Context, manager models.Profile, subordinateID uuid.UUID, talukas []string, expectedVersion *int64) (*models.Assignment, error) {
	talukas = normalize(talukas)
	return e.assign(ctx, manager, subordinateID, []models.Role{models.RoleSales, models.RoleWasher}, expectedVersion,
		func(sub *models.Profile) (models.Assignment, error) {
			_, own, err := e.Scope(ctx, manager)
			if err != nil {
				return models.Assignment{}, err
			}
			res := e.validator.ValidateHRToFieldAssignments(own, talukas)
			if err := res.Err(rbac.RuleHRFieldTaluka); err != nil {
				return models.Assignment{}, err
			}
			return models.Assignment{AssignedCities: []string{}, AssignedTalukas: talukas}, nil
		})
}

func (e *Engine) assign(
	ctx context.Context,
	manager models.Profile,
	subordinateID uuid.UUID,
	accepted []models.Role,
	expectedVersion *int64,
	build func(sub *models.Profile) (models.Assignment, error),
) (*models.Assignment, error) {
	allowed := false
	for _, r := range accepted {
		if manager.Role.Manages(r) {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s cannot assign regions to %s", rbac.ErrForbidden, manager.Role, joinRoles(accepted))
	}

	sub, err := e.dir.GetProfile(ctx, subordinateID)
	if err != nil {
		return nil, err
	}
	if !roleIn(sub.Role, accepted) {
		return nil, fmt.Errorf("%w: user %s is %s, expected %s", ErrRoleMismatch, sub.ID, sub.Role, joinRoles(accepted))
	}

	existing, err := e.current(ctx, sub.ID, sub.Role)
	if err != nil {
		return nil, err
	}
	if err := e.mayReplace(ctx, manager, existing); err != nil {
		return nil, err
	}

	a, err := build(sub)
	if err != nil {
		return nil, err
	}
	a.UserID = sub.ID
	a.Role = sub.Role
	by := manager.ID
	a.AssignedBy = &by

	saved, err := e.store.Upsert(ctx, a, expectedVersion)
	if err != nil {
		return nil, rbac.WrapStore("upsert", err)
	}

	slog.Info("assignment saved",
		"manager_id", manager.ID, "user_id", saved.UserID, "role", saved.Role,
		"cities", len(saved.AssignedCities), "talukas", len(saved.AssignedTalukas), "version", saved.Version)

	e.afterChange(ctx, saved.UserID, saved.Role, audit.ActionAssignmentUpsert, map[string]interface{}{
		"assigned_cities":  saved.AssignedCities,
		"assigned_talukas": saved.AssignedTalukas,
		"version":          saved.Version,
	})
	return saved, nil
}

// Get returns subordinateID's assignment for role. Users may read their own
// rows; managers may read the rows of roles they manage.
func (e *Engine) Get(ctx context.Context, caller models.Profile, subordinateID uuid.UUID, role models.Role) (*models.Assignment, error) {
	if caller.ID != subordinateID && !caller.Role.Manages(role) {
		return nil, fmt.Errorf("%w: %s cannot read %s assignments", rbac.ErrForbidden, caller.Role, role)
	}
	a, err := e.store.Get(ctx, subordinateID, role)
	if err != nil {
		return nil, rbac.WrapStore("get", err)
	}
	return a, nil
}

// Revoke deletes subordinateID's assignment for role. The same ownership
// rule as assign applies.
func (e *Engine) Revoke(ctx context.Context, manager models.Profile, subordinateID uuid.UUID, role models.Role) error {
	if !manager.Role.Manages(role) {
		return fmt.Errorf("%w: %s cannot revoke %s assignments", rbac.ErrForbidden, manager.Role, role)
	}
	existing, err := e.current(ctx, subordinateID, role)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: %s has no %s assignment", rbac.ErrNotFound, subordinateID, role)
	}
	if err := e.mayReplace(ctx, manager, existing); err != nil {
		return err
	}
	if err := e.store.Delete(ctx, subordinateID, role); err != nil {
		return rbac.WrapStore("delete", err)
	}

	slog.Info("assignment revoked", "manager_id", manager.ID, "user_id", subordinateID, "role", role)
	e.afterChange(ctx, subordinateID, role, audit.ActionAssignmentRevoke, nil)
	return nil
}

// ListSubordinates lists every user in the roles manager assigns to,
// together with their current assignment.
func (e *Engine) ListSubordinates(ctx context.Context, manager models.Profile) ([]models.Subordinate, error) {
	var out []models.Subordinate
	for _, role := range manager.Role.Subordinates() {
		users, err := e.dir.ListByAttribute(ctx, profile.AttrRole, string(role))
		if err != nil {
			return nil, err
		}
		rows, err := e.store.ListByRole(ctx, role)
		if err != nil {
			return nil, rbac.WrapStore("list", err)
		}
		byUser := make(map[uuid.UUID]models.Assignment, len(rows))
		for _, a := range rows {
			byUser[a.UserID] = a
		}

		for _, u := range users {
			s := models.Subordinate{
				UserID:          u.ID,
				Name:            u.FullName,
				Email:           u.Email,
				Role:            u.Role,
				AssignedCities:  []string{},
				AssignedTalukas: []string{},
			}
			if a, ok := byUser[u.ID]; ok {
				s.HasAssignment = true
				s.AssignedCities = a.AssignedCities
				s.AssignedTalukas = a.AssignedTalukas
				s.Version = a.Version
			}
			out = append(out, s)
		}
	}
	if out == nil {
		out = []models.Subordinate{}
	}
	return out, nil
}

// VisibleUsers lists users holding role that lie inside the caller's
// assigned regions.
func (e *Engine) VisibleUsers(ctx context.Context, caller models.Profile, role models.Role) ([]models.Profile, error) {
	perm, err := e.Permissions(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	users, err := e.dir.ListByAttribute(ctx, profile.AttrRole, string(role))
	if err != nil {
		return nil, err
	}
	return e.resolver.FilterUsersByGeographicAccess(users, perm.Role, perm.AssignedCities, perm.AssignedTalukas), nil
}

func (e *Engine) lookup(ctx context.Context, userID uuid.UUID, role models.Role) (*models.Assignment, error) {
	a, err := e.store.Get(ctx, userID, role)
	if errors.Is(err, rbac.ErrNotFound) {
		if needsAssignment(role) {
			slog.Warn("no assignment found", "user_id", userID, "role", role)
		}
		return nil, nil
	}
	if err != nil {
		return nil, rbac.WrapStore("get", err)
	}
	return a, nil
}

// current returns the stored row, or nil when there is none.
func (e *Engine) current(ctx context.Context, userID uuid.UUID, role models.Role) (*models.Assignment, error) {
	a, err := e.store.Get(ctx, userID, role)
	if errors.Is(err, rbac.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, rbac.WrapStore("get", err)
	}
	return a, nil
}

// mayReplace checks that manager may overwrite or delete existing. Admin
// and the manager who granted the row always may. Any other manager only
// when every region in the row already lies inside their own scope.
func (e *Engine) mayReplace(ctx context.Context, manager models.Profile, existing *models.Assignment) error {
	if existing == nil || manager.Role == models.RoleAdmin {
		return nil
	}
	if existing.AssignedBy != nil && *existing.AssignedBy == manager.ID {
		return nil
	}

	var outside []string
	regions := e.resolver.Regions()
	switch manager.Role {
	case models.RoleGeneral:
		// Generals hand out any city in the table.
		for _, c := range existing.AssignedCities {
			if !regions.HasCity(c) {
				outside = append(outside, c)
			}
		}
	default:
		cities, talukas, err := e.Scope(ctx, manager)
		if err != nil {
			return err
		}
		if manager.Role == models.RoleSubGeneral {
			talukas = e.resolver.AccessibleTalukas(models.RoleSubGeneral, cities, nil)
		}
		allowed := make(map[string]bool, len(talukas))
		for _, tk := range talukas {
			allowed[tk] = true
		}
		for _, tk := range existing.AssignedTalukas {
			if !allowed[tk] {
				outside = append(outside, tk)
			}
		}
	}
	if len(outside) > 0 {
		return fmt.Errorf("%w: %s %s was assigned by another manager and holds %s outside your regions",
			rbac.ErrForbidden, existing.Role, existing.UserID, strings.Join(outside, ", "))
	}
	return nil
}

func (e *Engine) afterChange(ctx context.Context, userID uuid.UUID, role models.Role, action string, details map[string]interface{}) {
	if e.cache != nil {
		if err := e.cache.InvalidatePermissions(ctx, userID); err != nil {
			slog.Warn("invalidate permissions failed", "user_id", userID, "error", err)
		}
	}
	if e.auditor != nil {
		id := userID
		if err := e.auditor.Log(ctx, audit.LogEntry{
			Action:      action,
			SubjectID:   &id,
			SubjectRole: role,
			Details:     details,
		}); err != nil {
			slog.Warn("audit log failed", "action", action, "user_id", userID, "error", err)
		}
	}
	if e.queue != nil && len(role.Subordinates()) > 0 {
		if err := e.queue.EnqueueReconcile(string(e.reconcileMode)); err != nil {
			slog.Warn("enqueue reconcile failed", "error", err)
		}
	}
}

func needsAssignment(role models.Role) bool {
	switch role {
	case models.RoleSubGeneral, models.RoleHRGeneral, models.RoleSales, models.RoleWasher:
		return true
	}
	return false
}

// normalize trims names and drops blanks and duplicates, keeping order.
func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func roleIn(r models.Role, set []models.Role) bool {
	for _, s := range set {
		if s == r {
			return true
		}
	}
	return false
}

func joinRoles(rs []models.Role) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, " or ")
}
