package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-signing-key-for-hmac-mode!!")

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims() *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		PracticeID: uuid.New().String(),
		Role:       string(RoleDentist),
	}
}

func runMiddleware(t *testing.T, cfg JWTConfig, authHeader string) (*Principal, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var principal *Principal
	err := JWTMiddleware(cfg)(func(c echo.Context) error {
		principal = PrincipalFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})(c)
	return principal, err
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	claims := validClaims()
	tokenStr := signToken(t, claims)

	principal, err := runMiddleware(t, JWTConfig{SigningKey: testSigningKey}, "Bearer "+tokenStr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if principal == nil {
		t.Fatal("expected principal in context")
	}
	if principal.Role != RoleDentist {
		t.Errorf("expected dentist role, got %s", principal.Role)
	}
	if principal.PracticeID.String() != claims.PracticeID {
		t.Errorf("practice id mismatch")
	}
}

func TestJWTMiddlewarePatientClaims(t *testing.T) {
	claims := validClaims()
	claims.Role = string(RolePatient)
	claims.PatientID = uuid.New().String()

	principal, err := runMiddleware(t, JWTConfig{SigningKey: testSigningKey}, "Bearer "+signToken(t, claims))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if principal.PatientID == nil || principal.PatientID.String() != claims.PatientID {
		t.Error("expected patient id on principal")
	}
}

func TestJWTMiddlewareRejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMiddleware(t, JWTConfig{SigningKey: testSigningKey}, tt.header)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != tt.code {
				t.Fatalf("expected %d, got %v", tt.code, err)
			}
		})
	}
}

func TestJWTMiddlewareRejectsUnknownRole(t *testing.T) {
	claims := validClaims()
	claims.Role = "superuser"

	_, err := runMiddleware(t, JWTConfig{SigningKey: testSigningKey}, "Bearer "+signToken(t, claims))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown role, got %v", err)
	}
}

func TestJWTMiddlewareRejectsExpiredToken(t *testing.T) {
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	_, err := runMiddleware(t, JWTConfig{SigningKey: testSigningKey}, "Bearer "+signToken(t, claims))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %v", err)
	}
}

func TestJWTMiddlewareRejectsRevokedToken(t *testing.T) {
	store := NewMemoryRevocationStore()
	claims := validClaims()
	if err := store.Revoke(context.Background(), claims.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	cfg := JWTConfig{SigningKey: testSigningKey, Revocations: store}
	_, err := runMiddleware(t, cfg, "Bearer "+signToken(t, claims))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked token, got %v", err)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	practiceID := uuid.New()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := DevAuthMiddleware(practiceID)(func(c echo.Context) error {
		p := PrincipalFromContext(c.Request().Context())
		if p == nil || p.Role != RoleAdmin || p.PracticeID != practiceID {
			t.Errorf("unexpected dev principal: %+v", p)
		}
		if got, _ := c.Get("auth_practice_id").(string); got != practiceID.String() {
			t.Errorf("auth_practice_id not set for db middleware")
		}
		return c.NoContent(http.StatusOK)
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
