package models

import "fmt"

// Role is the closed set of roles a profile can hold.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleGeneral    Role = "general"
	RoleSubGeneral Role = "sub-general"
	RoleHRGeneral  Role = "hr-general"
	RoleSales      Role = "sales"
	RoleWasher     Role = "washer"
	RoleCustomer   Role = "customer"
)

var allRoles = []Role{
	RoleAdmin,
	RoleGeneral,
	RoleSubGeneral,
	RoleHRGeneral,
	RoleSales,
	RoleWasher,
	RoleCustomer,
}

func Roles() []Role {
	return append([]Role(nil), allRoles...)
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleGeneral, RoleSubGeneral, RoleHRGeneral, RoleSales, RoleWasher, RoleCustomer:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Subordinates returns the roles r assigns regions to. Admin can act for
// every management tier.
func (r Role) Subordinates() []Role {
	switch r {
	case RoleAdmin:
		return []Role{RoleSubGeneral, RoleHRGeneral, RoleSales, RoleWasher}
	case RoleGeneral:
		return []Role{RoleSubGeneral}
	case RoleSubGeneral:
		return []Role{RoleHRGeneral}
	case RoleHRGeneral:
		return []Role{RoleSales, RoleWasher}
	default:
		return nil
	}
}

// Manages reports whether r may assign regions to sub.
func (r Role) Manages(sub Role) bool {
	for _, s := range r.Subordinates() {
		if s == sub {
			return true
		}
	}
	return false
}

// Superior returns the management role that assigns regions to r.
func (r Role) Superior() (Role, bool) {
	switch r {
	case RoleSubGeneral:
		return RoleGeneral, true
	case RoleHRGeneral:
		return RoleSubGeneral, true
	case RoleSales, RoleWasher:
		return RoleHRGeneral, true
	default:
		return "", false
	}
}

// Field roles are the leaf roles working inside an hr-general's talukas.
func (r Role) IsField() bool {
	return r == RoleSales || r == RoleWasher
}
