// Package auth provides JWT authentication, the role/permission model, and
// credential handling for staff and patient principals.
package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const principalKey contextKey = "principal"

// Role is the closed set of principal roles. Roles are not subject to runtime
// mutation; permissions derive from them via PermissionsFor.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleAdmin        Role = "admin"
	RoleDentist      Role = "dentist"
	RoleHygienist    Role = "hygienist"
	RoleAssistant    Role = "assistant"
	RoleReceptionist Role = "receptionist"
	RolePatient      Role = "patient"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{
		RoleSuperAdmin, RoleAdmin, RoleDentist, RoleHygienist,
		RoleAssistant, RoleReceptionist, RolePatient,
	}
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleDentist, RoleHygienist,
		RoleAssistant, RoleReceptionist, RolePatient:
		return true
	}
	return false
}

// Principal is the authenticated actor attached to a request. Patient
// principals additionally carry the patient record they belong to.
type Principal struct {
	UserID     uuid.UUID
	Role       Role
	PracticeID uuid.UUID
	PatientID  *uuid.UUID
}

// WithPrincipal stores the principal on the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated principal, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}
