package auth

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Permission is a single capability a role grants.
type Permission string

const (
	PermPracticeManage   Permission = "practice.manage"
	PermPracticeCrossAll Permission = "practice.cross_all"
	PermStaffManage      Permission = "staff.manage"
	PermPatientRead      Permission = "patient.read"
	PermPatientWrite     Permission = "patient.write"
	PermBSNReveal        Permission = "patient.bsn_reveal"
	PermAppointmentRead  Permission = "appointment.read"
	PermAppointmentWrite Permission = "appointment.write"
	PermClinicalRead     Permission = "clinical.read"
	PermClinicalWrite    Permission = "clinical.write"
	PermBillingRead      Permission = "billing.read"
	PermBillingWrite     Permission = "billing.write"
	PermConsentRead      Permission = "consent.read"
	PermConsentWrite     Permission = "consent.write"
	PermMessageRead      Permission = "message.read"
	PermMessageWrite     Permission = "message.write"
	PermAuditRead        Permission = "audit.read"
	PermPortalOwn        Permission = "portal.own"
)

// rolePermissions is the static capability table. It is consulted only
// through PermissionsFor and never mutated at runtime.
var rolePermissions = map[Role][]Permission{
	RoleSuperAdmin: {
		PermPracticeManage, PermPracticeCrossAll, PermStaffManage,
		PermPatientRead, PermPatientWrite, PermBSNReveal,
		PermAppointmentRead, PermAppointmentWrite,
		PermClinicalRead, PermClinicalWrite,
		PermBillingRead, PermBillingWrite,
		PermConsentRead, PermConsentWrite,
		PermMessageRead, PermMessageWrite,
		PermAuditRead,
	},
	RoleAdmin: {
		PermPracticeManage, PermStaffManage,
		PermPatientRead, PermPatientWrite, PermBSNReveal,
		PermAppointmentRead, PermAppointmentWrite,
		PermClinicalRead, PermClinicalWrite,
		PermBillingRead, PermBillingWrite,
		PermConsentRead, PermConsentWrite,
		PermMessageRead, PermMessageWrite,
		PermAuditRead,
	},
	RoleDentist: {
		PermPatientRead, PermPatientWrite, PermBSNReveal,
		PermAppointmentRead, PermAppointmentWrite,
		PermClinicalRead, PermClinicalWrite,
		PermBillingRead,
		PermConsentRead, PermConsentWrite,
		PermMessageRead, PermMessageWrite,
	},
	RoleHygienist: {
		PermPatientRead,
		PermAppointmentRead, PermAppointmentWrite,
		PermClinicalRead, PermClinicalWrite,
		PermConsentRead,
		PermMessageRead, PermMessageWrite,
	},
	RoleAssistant: {
		PermPatientRead,
		PermAppointmentRead, PermAppointmentWrite,
		PermClinicalRead,
		PermMessageRead, PermMessageWrite,
	},
	RoleReceptionist: {
		PermPatientRead, PermPatientWrite,
		PermAppointmentRead, PermAppointmentWrite,
		PermBillingRead, PermBillingWrite,
		PermMessageRead, PermMessageWrite,
	},
	RolePatient: {
		PermPortalOwn,
		PermMessageRead, PermMessageWrite,
	},
}

// PermissionsFor returns the capability set of a role. Unknown roles get no
// capabilities.
func PermissionsFor(role Role) map[Permission]bool {
	perms := make(map[Permission]bool, len(rolePermissions[role]))
	for _, p := range rolePermissions[role] {
		perms[p] = true
	}
	return perms
}

// HasPermission reports whether role grants perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// RequirePermission gates a route group on a capability.
func RequirePermission(perm Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			if p == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			if !HasPermission(p.Role, perm) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("required permission: %s", perm))
			}
			return next(c)
		}
	}
}

// RequireRole gates a route group on role membership.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			if p == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}
