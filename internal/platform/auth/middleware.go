package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/praktijk/praktijk/internal/platform/metrics"
)

// Claims are the JWT claims issued for staff and patient principals.
type Claims struct {
	jwt.RegisteredClaims
	PracticeID string `json:"practice_id"`
	Role       string `json:"role"`
	PatientID  string `json:"patient_id,omitempty"`
}

// JWTConfig configures token validation.
type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey enables HMAC validation for development and tests.
	SigningKey []byte
	// Revocations, when set, rejects tokens whose jti has been revoked.
	Revocations RevocationStore
}

// jwksKey is a single RSA key from a JWKS endpoint.
type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksResponse struct {
	Keys []jwksKey `json:"keys"`
}

// jwksCache caches JWKS keys with a TTL.
type jwksCache struct {
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	url       string
	ttl       time.Duration
	fetchedAt time.Time
	client    *http.Client
}

func newJWKSCache(url string, ttl time.Duration) *jwksCache {
	return &jwksCache{
		keys:   make(map[string]*rsa.PublicKey),
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *jwksCache) getKey(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	expired := time.Since(c.fetchedAt) > c.ttl
	c.mu.RUnlock()

	if ok && !expired {
		return key, nil
	}

	if err := c.fetch(); err != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("key with kid %q not found in JWKS", kid)
	}
	return key, nil
}

func (c *jwksCache) fetch() error {
	resp, err := c.client.Get(c.url)
	if err != nil {
		return fmt.Errorf("GET %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("decoding JWKS response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return nil
}

func parseRSAPublicKey(k jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

const jwksCacheTTL = 5 * time.Minute

// JWTMiddleware validates bearer tokens and attaches the resulting Principal
// to the request context. Practice scope is derived from the token claims
// only, never from client-supplied input.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	var cache *jwksCache
	if len(cfg.SigningKey) == 0 {
		cache = newJWKSCache(cfg.JWKSURL, jwksCacheTTL)
	}

	keyFunc := func(token *jwt.Token) (any, error) {
		if len(cfg.SigningKey) > 0 {
			return cfg.SigningKey, nil
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return cache.getKey(kid)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "HS256"}),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				metrics.AuthFailures.Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			scheme, tokenStr, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") {
				metrics.AuthFailures.Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				metrics.AuthFailures.Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if cfg.Revocations != nil && claims.ID != "" {
				revoked, err := cfg.Revocations.IsRevoked(c.Request().Context(), claims.ID)
				if err != nil {
					return echo.NewHTTPError(http.StatusServiceUnavailable, "authorization unavailable")
				}
				if revoked {
					metrics.AuthFailures.Inc()
					return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
				}
			}

			principal, err := principalFromClaims(claims)
			if err != nil {
				metrics.AuthFailures.Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
			}

			// The db middleware reads the practice id from here.
			c.Set("auth_practice_id", claims.PracticeID)
			c.SetRequest(c.Request().WithContext(
				WithPrincipal(c.Request().Context(), principal)))

			return next(c)
		}
	}
}

func principalFromClaims(claims *Claims) (*Principal, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}
	practiceID, err := uuid.Parse(claims.PracticeID)
	if err != nil {
		return nil, fmt.Errorf("practice_id: %w", err)
	}
	role := Role(claims.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}

	p := &Principal{UserID: userID, Role: role, PracticeID: practiceID}
	if claims.PatientID != "" {
		patientID, err := uuid.Parse(claims.PatientID)
		if err != nil {
			return nil, fmt.Errorf("patient_id: %w", err)
		}
		p.PatientID = &patientID
	}
	return p, nil
}

// DevAuthMiddleware authenticates every request as a practice admin. It is
// only wired when the server runs with ENV=development.
func DevAuthMiddleware(practiceID uuid.UUID) echo.MiddlewareFunc {
	devUser := uuid.New()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("auth_practice_id", practiceID.String())
			c.SetRequest(c.Request().WithContext(
				WithPrincipal(c.Request().Context(), &Principal{
					UserID:     devUser,
					Role:       RoleAdmin,
					PracticeID: practiceID,
				})))
			return next(c)
		}
	}
}
