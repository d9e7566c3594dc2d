package hubauth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// JWTCfg holds the signed-identity-token validation configuration: RS256
// via a configured JWKS endpoint for real identity providers, HS256 via a
// shared secret for backend-issued and dev tokens.
type JWTCfg struct {
	HS256Secret       string
	DevMode           bool // not read by JWTValidator; the X-Debug-Sub bypass is controlled by NewResolver's devMode argument
	Issuer            string
	JWKSURL           string
	Audience          string
	AcceptedAudiences []string
	OrgClaim          string // claim name mapped to tenantId, default "org_id"
}

func (c JWTCfg) orgClaim() string {
	if c.OrgClaim == "" {
		return "org_id"
	}
	return c.OrgClaim
}

type jwksCache struct {
	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	lastFetch  time.Time
	cacheTTL   time.Duration
	jwksURL    string
	httpClient *http.Client
}

type jwksResponse struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (c *jwksCache) fetchJWKS(forceRefresh bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !forceRefresh && time.Since(c.lastFetch) < c.cacheTTL && len(c.keys) > 0 {
		return nil
	}

	resp, err := c.httpClient.Get(c.jwksURL)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read JWKS response: %w", err)
	}

	var jwks jwksResponse
	if err := json.Unmarshal(body, &jwks); err != nil {
		return fmt.Errorf("failed to parse JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" || key.Use != "sig" {
			continue
		}

		nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
		if err != nil {
			log.Warn().Err(err).Str("kid", key.Kid).Msg("failed to decode jwks modulus")
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
		if err != nil {
			log.Warn().Err(err).Str("kid", key.Kid).Msg("failed to decode jwks exponent")
			continue
		}

		var eInt int
		for _, b := range eBytes {
			eInt = eInt<<8 | int(b)
		}

		keys[key.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: eInt}
	}

	if len(keys) == 0 {
		return errors.New("no valid RSA signing keys found in JWKS")
	}

	c.keys = keys
	c.lastFetch = time.Now()
	log.Info().Int("key_count", len(keys)).Msg("refreshed JWKS cache")
	return nil
}

func (c *jwksCache) getPublicKey(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	expired := time.Since(c.lastFetch) >= c.cacheTTL
	c.mu.RUnlock()

	if expired {
		if err := c.fetchJWKS(false); err != nil {
			log.Warn().Err(err).Msg("failed to refresh expired JWKS cache, using stale keys")
		}
	}

	c.mu.RLock()
	key, ok := c.keys[kid]
	c.mu.RUnlock()
	if ok {
		return key, nil
	}

	if err := c.fetchJWKS(true); err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS for missing key %s: %w", kid, err)
	}

	c.mu.RLock()
	key, ok = c.keys[kid]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("key ID %s not found in JWKS even after refresh", kid)
	}
	return key, nil
}

// Identity is what a validated signed identity token yields: a subject and
// (if present) an organization claim.
type Identity struct {
	Subject string
	OrgID   string // "" if the token carries no organization claim
}

// JWTValidator validates signed identity tokens and maps claims to an
// Identity. One validator is built per process from JWTCfg and shared by
// every request.
type JWTValidator struct {
	cfg   JWTCfg
	jwks  *jwksCache
}

// NewJWTValidator constructs a validator and, if a JWKS URL is configured,
// pre-fetches its keys.
func NewJWTValidator(cfg JWTCfg) (*JWTValidator, error) {
	v := &JWTValidator{cfg: cfg}
	if cfg.JWKSURL != "" {
		v.jwks = &jwksCache{
			keys:     make(map[string]*rsa.PublicKey),
			cacheTTL: time.Hour,
			jwksURL:  cfg.JWKSURL,
			httpClient: &http.Client{
				Timeout: 10 * time.Second,
			},
		}
		if err := v.jwks.fetchJWKS(false); err != nil {
			log.Warn().Err(err).Msg("failed to pre-fetch JWKS (will retry on first request)")
		}
	}
	return v, nil
}

// Validate parses and verifies tokenString, supporting both RS256 (via the
// JWKS cache) and HS256 (via the shared secret) signing. The RS256 path is
// the real-IdP path; HS256 is reserved for backend-minted and dev tokens.
func (v *JWTValidator) Validate(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, errors.New("token is empty")
	}

	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodRSA:
			if v.jwks == nil {
				return nil, errors.New("no JWKS endpoint configured for RS256 tokens")
			}
			kid, ok := t.Header["kid"].(string)
			if !ok || kid == "" {
				return nil, errors.New("missing kid in token header")
			}
			return v.jwks.getPublicKey(kid)

		case *jwt.SigningMethodHMAC:
			if v.cfg.HS256Secret == "" {
				return nil, errors.New("HS256 secret not configured")
			}
			return []byte(v.cfg.HS256Secret), nil

		default:
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
	})
	if err != nil || !t.Valid {
		return Identity{}, fmt.Errorf("jwt validation failed: %w", err)
	}

	tokenType, _ := claims["token_type"].(string)
	issuer, _ := claims["iss"].(string)
	isBackendToken := tokenType == "backend" || (tokenType == "" && issuer == "agent-hub")

	if !isBackendToken {
		if v.cfg.Issuer != "" {
			if iss, ok := claims["iss"].(string); !ok || iss != v.cfg.Issuer {
				return Identity{}, fmt.Errorf("invalid issuer: expected %s, got %v", v.cfg.Issuer, claims["iss"])
			}
		}

		skipAudience := v.cfg.Issuer != "" && issuer == v.cfg.Issuer && v.cfg.Audience == "" && len(v.cfg.AcceptedAudiences) == 0
		if !skipAudience && (v.cfg.Audience != "" || len(v.cfg.AcceptedAudiences) > 0) {
			accepted := append([]string{}, v.cfg.AcceptedAudiences...)
			if v.cfg.Audience != "" {
				accepted = append(accepted, v.cfg.Audience)
			}
			if !audienceMatches(claims["aud"], accepted) {
				return Identity{}, fmt.Errorf("invalid audience: expected one of %v, got %v", accepted, claims["aud"])
			}
		}
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Identity{}, errors.New("missing or invalid sub claim")
	}

	orgID, _ := claims[v.cfg.orgClaim()].(string)
	return Identity{Subject: sub, OrgID: orgID}, nil
}

func audienceMatches(aud any, accepted []string) bool {
	switch v := aud.(type) {
	case string:
		for _, a := range accepted {
			if v == a {
				return true
			}
		}
	case []interface{}:
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				continue
			}
			for _, a := range accepted {
				if s == a {
					return true
				}
			}
		}
	}
	return false
}
