// Package rbac answers "what may this role see" and "may this manager hand
// these regions to a subordinate" over the region reference table. All
// functions are pure; persistence lives in package assignment.
package rbac

import (
	"github.com/nikhilbhutani/washgeo/internal/models"
	"github.com/nikhilbhutani/washgeo/internal/region"
)

// Resolver computes the regions each role may see.
type Resolver struct {
	regions *region.Table
}

// NewResolver returns a Resolver over regions.
func NewResolver(regions *region.Table) *Resolver {
	return &Resolver{regions: regions}
}

// Regions returns the table r resolves against.
func (r *Resolver) Regions() *region.Table {
	return r.regions
}

// AccessibleCities returns the cities role may see. Sub-general cities are
// returned as assigned, without re-checking them against the table.
func (r *Resolver) AccessibleCities(role models.Role, assignedCities []string) []string {
	switch role {
	case models.RoleAdmin:
		return r.regions.Cities()
	case models.RoleSubGeneral:
		return dedupe(assignedCities)
	case models.RoleGeneral, models.RoleHRGeneral, models.RoleSales, models.RoleWasher, models.RoleCustomer:
		return []string{}
	default:
		return []string{}
	}
}

// AccessibleTalukas returns the deduplicated talukas role may see.
func (r *Resolver) AccessibleTalukas(role models.Role, assignedCities, assignedTalukas []string) []string {
	switch role {
	case models.RoleAdmin:
		return r.regions.AllTalukas()
	case models.RoleSubGeneral:
		var out []string
		for _, c := range assignedCities {
			out = append(out, r.regions.TalukasOf(c)...)
		}
		return dedupe(out)
	case models.RoleHRGeneral:
		return dedupe(assignedTalukas)
	case models.RoleGeneral, models.RoleSales, models.RoleWasher, models.RoleCustomer:
		return []string{}
	default:
		return []string{}
	}
}

// Permissions resolves a full permission view for a profile and its
// assignment. a may be nil.
func (r *Resolver) Permissions(p models.Profile, a *models.Assignment) models.Permissions {
	perm := models.Permissions{
		UserID:          p.ID,
		Role:            p.Role,
		AssignedCities:  []string{},
		AssignedTalukas: []string{},
	}
	if a != nil {
		perm.AssignedCities = nonNil(a.AssignedCities)
		perm.AssignedTalukas = nonNil(a.AssignedTalukas)
		perm.Version = a.Version
	}
	perm.AccessibleCities = r.AccessibleCities(p.Role, perm.AssignedCities)
	perm.AccessibleTalukas = r.AccessibleTalukas(p.Role, perm.AssignedCities, perm.AssignedTalukas)
	return perm
}

// FilterUsersByGeographicAccess keeps the users whose home location lies in
// the caller's assigned regions.
func (r *Resolver) FilterUsersByGeographicAccess(users []models.Profile, role models.Role, assignedCities, assignedTalukas []string) []models.Profile {
	return FilterResourcesByGeographicAccess(users, func(p models.Profile) (models.Location, bool) {
		return p.Location(), true
	}, role, assignedCities, assignedTalukas)
}

// FilterResourcesByGeographicAccess applies the user filter to any resource
// that can be joined to its owner's location. Resources whose locate call
// reports false (no owner) are dropped unless role is admin.
func FilterResourcesByGeographicAccess[T any](items []T, locate func(T) (models.Location, bool), role models.Role, assignedCities, assignedTalukas []string) []T {
	var inScope func(models.Location) bool
	switch role {
	case models.RoleAdmin:
		return append([]T(nil), items...)
	case models.RoleSubGeneral:
		cities := toSet(assignedCities)
		inScope = func(l models.Location) bool { return cities[l.City] }
	case models.RoleHRGeneral:
		talukas := toSet(assignedTalukas)
		inScope = func(l models.Location) bool { return talukas[l.Taluka] }
	default:
		return []T{}
	}

	out := make([]T, 0, len(items))
	for _, it := range items {
		loc, ok := locate(it)
		if !ok {
			continue
		}
		if inScope(loc) {
			out = append(out, it)
		}
	}
	return out
}

// OwnerLocator builds a locate func for FilterResourcesByGeographicAccess
// from an owner lookup, e.g. a car joined to its customer.
func OwnerLocator[T any, K comparable](ownerOf func(T) K, owners map[K]models.Profile) func(T) (models.Location, bool) {
	return func(item T) (models.Location, bool) {
		p, ok := owners[ownerOf(item)]
		if !ok {
			return models.Location{}, false
		}
		return p.Location(), true
	}
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func toSet(in []string) map[string]bool {
	m := make(map[string]bool, len(in))
	for _, s := range in {
		m[s] = true
	}
	return m
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}
