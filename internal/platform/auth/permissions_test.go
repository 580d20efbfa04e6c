package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestPermissionsForIsTotalOverRoles(t *testing.T) {
	for _, role := range Roles() {
		perms := PermissionsFor(role)
		if len(perms) == 0 {
			t.Errorf("role %s has no permissions", role)
		}
	}
}

func TestPermissionsForUnknownRole(t *testing.T) {
	if perms := PermissionsFor(Role("burglar")); len(perms) != 0 {
		t.Fatalf("unknown role must have no permissions, got %v", perms)
	}
}

func TestBSNRevealRestrictedToElevatedRoles(t *testing.T) {
	allowed := map[Role]bool{RoleSuperAdmin: true, RoleAdmin: true, RoleDentist: true}
	for _, role := range Roles() {
		got := HasPermission(role, PermBSNReveal)
		if got != allowed[role] {
			t.Errorf("role %s: PermBSNReveal = %v, want %v", role, got, allowed[role])
		}
	}
}

func TestCrossPracticeOnlySuperAdmin(t *testing.T) {
	for _, role := range Roles() {
		got := HasPermission(role, PermPracticeCrossAll)
		if got != (role == RoleSuperAdmin) {
			t.Errorf("role %s: PermPracticeCrossAll = %v", role, got)
		}
	}
}

func TestReceptionistHasNoClinicalWrite(t *testing.T) {
	if HasPermission(RoleReceptionist, PermClinicalWrite) {
		t.Error("receptionist must not write clinical records")
	}
}

func newPrincipalContext(t *testing.T, role Role) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetRequest(req.WithContext(WithPrincipal(req.Context(), &Principal{
		UserID:     uuid.New(),
		Role:       role,
		PracticeID: uuid.New(),
	})))
	return c
}

func TestRequirePermission(t *testing.T) {
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	t.Run("granted", func(t *testing.T) {
		c := newPrincipalContext(t, RoleDentist)
		if err := RequirePermission(PermBSNReveal)(next)(c); err != nil {
			t.Fatalf("expected pass, got %v", err)
		}
	})

	t.Run("denied", func(t *testing.T) {
		c := newPrincipalContext(t, RoleHygienist)
		err := RequirePermission(PermBSNReveal)(next)(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %v", err)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		err := RequirePermission(PermPatientRead)(next)(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})
}

func TestRequireRole(t *testing.T) {
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	c := newPrincipalContext(t, RoleReceptionist)
	if err := RequireRole(RoleReceptionist, RoleAdmin)(next)(c); err != nil {
		t.Fatalf("expected pass, got %v", err)
	}

	c = newPrincipalContext(t, RolePatient)
	err := RequireRole(RoleAdmin)(next)(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}
